// Package common holds the fixed-size identifiers (addresses, hashes) and
// small helpers shared by every other package in the module.
package common

import (
	"encoding/hex"
	"fmt"
)

const (
	// HashLength is the expected length of a Hash256 digest.
	HashLength = 32
	// AddressLength is the expected length of an account address.
	AddressLength = 20
)

// Hash is a 32-byte cryptographic digest.
type Hash [HashLength]byte

// BytesToHash sets b to the last HashLength bytes of b, left-padded with zero.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// HexToHash parses s (with or without "0x" prefix) into a Hash.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) Hex() string    { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == (Hash{}) }

// MarshalText renders h as a 0x-prefixed hex string, the convention every
// text-based encoding in the module (genesis TOML, JSON-RPC responses) uses
// for fixed-size identifiers.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText parses a 0x-prefixed (or bare) hex string into h.
func (h *Hash) UnmarshalText(text []byte) error {
	*h = HexToHash(string(text))
	return nil
}

// Cmp compares two hashes lexicographically.
func (h Hash) Cmp(other Hash) int {
	for i := range h {
		if h[i] != other[i] {
			if h[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToAddress sets a to the last AddressLength bytes of b.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses s into an Address.
func HexToAddress(s string) Address { return BytesToAddress(FromHex(s)) }

// IsHexAddress reports whether s is a well-formed hex address: exactly 40
// hex digits, with or without a "0x" prefix.
func IsHexAddress(s string) bool {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s) != 2*AddressLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) Hex() string    { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) IsZero() bool   { return a == (Address{}) }

// MarshalText renders a as a 0x-prefixed hex string.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText parses a 0x-prefixed (or bare) hex string into a.
func (a *Address) UnmarshalText(text []byte) error {
	*a = HexToAddress(string(text))
	return nil
}

// Hash computes keccak(address). The account trie in core/state is keyed by
// the raw 20-byte address, not by this hash. Defined here as a thin
// indirection so common has no import cycle on crypto; the real digest is
// filled in by crypto.Keccak256Hash via SetAddressHasher.
var addressHasher func([]byte) Hash

// SetAddressHasher installs the keccak implementation; called once from
// package crypto's init to break the common<->crypto import cycle.
func SetAddressHasher(f func([]byte) Hash) { addressHasher = f }

func (a Address) Hash() Hash {
	if addressHasher == nil {
		panic("common: address hasher not installed (import crypto)")
	}
	return addressHasher(a[:])
}

// FromHex decodes a 0x-prefixed (or bare) hex string, ignoring errors by
// returning whatever was successfully decoded up to the bad nibble.
func FromHex(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

// CopyBytes returns an independent copy of b.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cpy := make([]byte, len(b))
	copy(cpy, b)
	return cpy
}

// TrimLeftZeroes returns a subslice of b with leading zero bytes removed.
func TrimLeftZeroes(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}

// LeftPadBytes pads b on the left with zero bytes to length l.
func LeftPadBytes(b []byte, l int) []byte {
	if len(b) >= l {
		return b
	}
	out := make([]byte, l)
	copy(out[l-len(b):], b)
	return out
}

// Hash256Set/AddressSet style printers used by logging.
func (h Hash) Format(f fmt.State, c rune) { fmt.Fprint(f, h.Hex()) }
func (a Address) Format(f fmt.State, c rune) { fmt.Fprint(f, a.Hex()) }
