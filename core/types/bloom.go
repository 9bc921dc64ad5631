// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package types

import (
	"github.com/coreeth-io/coreeth/crypto"
)

// BloomByteLength is the number of bytes in a log bloom (2048 bits).
const BloomByteLength = 256

// Bloom is the 2048-bit log bloom filter carried in a block header,
// accelerating logs(address, topics) queries (spec §3/§4.6).
type Bloom [BloomByteLength]byte

// BytesToBloom sets b to the last BloomByteLength bytes of b, left padded.
func BytesToBloom(b []byte) Bloom {
	var bl Bloom
	if len(b) > BloomByteLength {
		b = b[len(b)-BloomByteLength:]
	}
	copy(bl[BloomByteLength-len(b):], b)
	return bl
}

// Add ORs the bloom bits for the given datum (address or topic) into b.
func (b *Bloom) Add(data []byte) {
	h := crypto.Keccak256(data)
	for i := 0; i < 6; i += 2 {
		bit := (uint(h[i+1]) + (uint(h[i]) << 8)) & 2047
		b[BloomByteLength-1-bit/8] |= 1 << (bit % 8)
	}
}

// Test reports whether every bit set by Add(data) is already set in b.
func (b Bloom) Test(data []byte) bool {
	var probe Bloom
	probe.Add(data)
	for i := range b {
		if probe[i]&b[i] != probe[i] {
			return false
		}
	}
	return true
}

// OrBloom returns the bitwise OR of the given blooms — the aggregation
// operation the level-k bloom hierarchy uses (spec §4.6/§9).
func OrBloom(blooms ...Bloom) Bloom {
	var out Bloom
	for _, bl := range blooms {
		for i := range out {
			out[i] |= bl[i]
		}
	}
	return out
}

// CreateBloom computes the log bloom for a receipt from its logs.
func CreateBloom(logs []*Log) Bloom {
	var bl Bloom
	for _, l := range logs {
		bl.Add(l.Address.Bytes())
		for _, t := range l.Topics {
			bl.Add(t.Bytes())
		}
	}
	return bl
}
