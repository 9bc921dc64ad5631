// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package state

import (
	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/core/types"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/rlp"
)

// encodeAccount/decodeAccount are the account trie's value codec: the RLP
// encoding of a types.StateAccount, unchanged from the teacher's wire
// format so existing tooling reading an account trie leaf still works.
func encodeAccount(acct *types.StateAccount) ([]byte, error) {
	return rlp.EncodeToBytes(acct)
}

func decodeAccount(enc []byte, acct *types.StateAccount) error {
	return rlp.DecodeBytes(enc, acct)
}

func codeHashOf(code []byte) common.Hash {
	return crypto.Keccak256Hash(code)
}
