// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package trie

import (
	"fmt"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/crypto"
	"github.com/coreeth-io/coreeth/rlp"
)

// node is the in-memory representation of a trie node: a 16-way fullNode, a
// shortNode (extension or leaf, distinguished by whether Val is another node
// or a valueNode), a hashNode (an unresolved reference by hash) or a
// valueNode (raw leaf bytes).
type node interface {
	fstring(string) string
}

type (
	fullNode struct {
		Children [17]node // 16 nibble branches + value at this node
	}
	shortNode struct {
		Key []byte // hex-encoded, possibly with terminator
		Val node
	}
	hashNode  []byte
	valueNode []byte
)

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, child := range n.Children {
		if child == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
			continue
		}
		resp += fmt.Sprintf("%s: %v", indices[i], child.fstring(ind+"  "))
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}
func (n hashNode) fstring(ind string) string  { return fmt.Sprintf("<%x> ", []byte(n)) }
func (n valueNode) fstring(ind string) string { return fmt.Sprintf("%x ", []byte(n)) }

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[17]"}

func (n *fullNode) copy() *fullNode {
	cpy := *n
	return &cpy
}

// nodeToRLP returns the canonical encoding of n as it would appear inlined
// inside a parent node (values/hashes pass through, short/full nodes are
// RLP-list-encoded from their resolved children).
func nodeToRLP(n node) []byte {
	switch n := n.(type) {
	case valueNode:
		b, _ := rlp.EncodeToBytes([]byte(n))
		return b
	case hashNode:
		b, _ := rlp.EncodeToBytes([]byte(n))
		return b
	case *shortNode:
		payload := append([]byte{}, encodeString(hexToCompactForHash(n))...)
		payload = append(payload, childRLP(n.Val)...)
		return wrapList(payload)
	case *fullNode:
		var payload []byte
		for _, c := range n.Children {
			payload = append(payload, childRLP(c)...)
		}
		return wrapList(payload)
	case nil:
		b, _ := rlp.EncodeToBytes([]byte(nil))
		return b
	}
	panic(fmt.Sprintf("trie: unknown node type %T", n))
}

// childRLP returns the RLP representation of a child slot. nil is the empty
// string and a valueNode/hashNode always passes through unchanged: only a
// structural child (*shortNode/*fullNode) is subject to the "store by
// reference once its own encoding reaches 32 bytes" rule, since that rule
// bounds sibling subtree encodings, not leaf values or existing references.
func childRLP(n node) []byte {
	switch n := n.(type) {
	case nil:
		b, _ := rlp.EncodeToBytes([]byte(nil))
		return b
	case valueNode, hashNode:
		return nodeToRLP(n)
	default:
		enc := nodeToRLP(n)
		if len(enc) >= 32 {
			h := crypto.Keccak256(enc)
			b, _ := rlp.EncodeToBytes(h)
			return b
		}
		return enc
	}
}

func hexToCompactForHash(n *shortNode) []byte { return hexToCompact(n.Key) }

func encodeString(b []byte) []byte {
	out, _ := rlp.EncodeToBytes(b)
	return out
}

func wrapList(payload []byte) []byte {
	hdr := rlpListHeader(len(payload))
	return append(hdr, payload...)
}

func rlpListHeader(size int) []byte {
	if size < 56 {
		return []byte{byte(0xc0 + size)}
	}
	// Long form: a full node with several hashed children (33 bytes each)
	// or a leaf with a long value exceeds 55 bytes of payload.
	var lb []byte
	for s := size; s > 0; s >>= 8 {
		lb = append([]byte{byte(s)}, lb...)
	}
	return append([]byte{byte(0xf7 + len(lb))}, lb...)
}

// hashNodeOf returns the keccak256 hash of n's canonical encoding, the
// content address used to key the HashDB (spec §4.2).
func hashNodeOf(n node) common.Hash {
	return crypto.Keccak256Hash(nodeToRLP(n))
}
