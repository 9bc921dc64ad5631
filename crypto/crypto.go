// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package crypto wraps the hash and signature primitives the rest of the
// module needs: Keccak256 (golang.org/x/crypto/sha3) and secp256k1
// signature recovery (github.com/btcsuite/btcd/btcec/v2), the same split
// go-ethereum uses between "crypto" (ours) and third-party elliptic-curve
// code.
package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"

	"github.com/coreeth-io/coreeth/common"
)

const (
	// DigestLength is the length in bytes of a Keccak256 digest.
	DigestLength = 32
	// SignatureLength is r || s || v, v in {0,1}.
	SignatureLength = 64 + 1
	// RecoveryIDOffset is the byte offset of the recovery id within a signature.
	RecoveryIDOffset = 64
)

func init() {
	common.SetAddressHasher(func(b []byte) common.Hash { return Keccak256Hash(b) })
}

// EmptyKeccak is keccak(nil), the code hash of an account with no code.
var EmptyKeccak = Keccak256Hash(nil)

// KeccakState is a Keccak hash that can also read intermediate state without
// affecting the underlying digest, mirroring go-ethereum's crypto.KeccakState.
type KeccakState interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Sum(b []byte) []byte
	Reset()
}

// NewKeccakState creates a fresh Keccak256 sponge supporting Read for cheap
// repeated digests without re-allocating.
func NewKeccakState() KeccakState { return sha3.NewLegacyKeccak256().(KeccakState) }

// Keccak256 computes the Keccak256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := NewKeccakState()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Hash computes Keccak256 and returns it as a common.Hash.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewKeccakState()
	for _, b := range data {
		d.Write(b)
	}
	d.Read(h[:])
	return h
}

// CreateAddress computes the address of a contract created via CREATE:
// keccak(rlp([sender, nonce]))[12:].
func CreateAddress(b common.Address, nonce uint64) common.Address {
	data := rlpEncodeCreate(b, nonce)
	return common.BytesToAddress(Keccak256(data)[12:])
}

// CreateAddress2 computes the address of a contract created via CREATE2
// (EIP-1014): keccak(0xff ++ sender ++ salt ++ keccak(initcode))[12:].
func CreateAddress2(b common.Address, salt [32]byte, initCodeHash []byte) common.Address {
	data := make([]byte, 0, 1+20+32+32)
	data = append(data, 0xff)
	data = append(data, b.Bytes()...)
	data = append(data, salt[:]...)
	data = append(data, initCodeHash...)
	return common.BytesToAddress(Keccak256(data)[12:])
}

// rlpEncodeCreate encodes [sender, nonce] without importing package rlp, to
// avoid a crypto<->rlp import cycle (rlp depends on nothing of ours, so this
// is just kept local and trivial: a byte string header plus a minimal
// integer encoding).
func rlpEncodeCreate(sender common.Address, nonce uint64) []byte {
	nonceBytes := big.NewInt(0).SetUint64(nonce).Bytes()
	senderItem := encodeString(sender.Bytes())
	nonceItem := encodeString(nonceBytes)
	payload := append(senderItem, nonceItem...)
	return append(encodeListHeader(len(payload)), payload...)
}

func encodeString(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	lb := big.NewInt(int64(len(b))).Bytes()
	return append(append([]byte{byte(0xb7 + len(lb))}, lb...), b...)
}

func encodeListHeader(size int) []byte {
	if size < 56 {
		return []byte{byte(0xc0 + size)}
	}
	lb := big.NewInt(int64(size)).Bytes()
	return append([]byte{byte(0xf7 + len(lb))}, lb...)
}

// Signature errors.
var (
	ErrInvalidSignatureLen = errors.New("crypto: invalid signature length")
	ErrInvalidRecoveryID   = errors.New("crypto: invalid recovery id")
)

// Ecrecover recovers the uncompressed public key that produced sig over hash.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	pub, err := sigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	return elliptic_Marshal(pub), nil
}

// SigToAddress recovers the sender address from a signature, the operation
// the executive uses at the start of every transaction (spec §4.5 step 1).
func SigToAddress(hash, sig []byte) (common.Address, error) {
	pub, err := sigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	raw := elliptic_Marshal(pub)
	return common.BytesToAddress(Keccak256(raw[1:])[12:]), nil
}

func sigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, ErrInvalidSignatureLen
	}
	if sig[RecoveryIDOffset] > 1 {
		return nil, ErrInvalidRecoveryID
	}
	// btcec wants the recovery-id-prefixed 65 byte compact signature.
	compact := make([]byte, SignatureLength)
	compact[0] = sig[RecoveryIDOffset] + 27
	copy(compact[1:], sig[:64])
	pub, _, err := btcecRecoverCompact(compact, hash)
	if err != nil {
		return nil, fmt.Errorf("crypto: recover failed: %w", err)
	}
	return pub.ToECDSA(), nil
}

func btcecRecoverCompact(sig, hash []byte) (*btcec.PublicKey, bool, error) {
	return btcec.RecoverCompact(sig, hash)
}

func elliptic_Marshal(pub *ecdsa.PublicKey) []byte {
	byteLen := (pub.Curve.Params().BitSize + 7) / 8
	out := make([]byte, 1+2*byteLen)
	out[0] = 4
	pub.X.FillBytes(out[1 : 1+byteLen])
	pub.Y.FillBytes(out[1+byteLen:])
	return out
}
