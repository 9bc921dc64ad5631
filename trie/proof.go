// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package trie

import (
	"fmt"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/rlp"
)

// proofTracer records every node blob resolved by hash while a trie read is
// underway, keyed by hash, so the touched set can be handed out as a
// self-contained Merkle proof (spec §4.2 "proving variant").
type proofTracer struct {
	nodes map[common.Hash][]byte
}

func newProofTracer() *proofTracer {
	return &proofTracer{nodes: make(map[common.Hash][]byte)}
}

func (p *proofTracer) record(h common.Hash, blob []byte) {
	p.nodes[h] = common.CopyBytes(blob)
}

// VerifyProof checks that key (and, if found, its value) is consistent with
// rootHash given only the node blobs in proof. Any hash reference the walk
// needs but cannot find in proof fails closed with ErrBadProof (spec §4.2:
// "proof verification fails closed: any missing node is BadProof").
func VerifyProof(rootHash common.Hash, key []byte, proof map[common.Hash][]byte) (value []byte, err error) {
	wantHash := rootHash
	k := keybytesToHex(key)
	for {
		buf, ok := proof[wantHash]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadProof, wantHash.Hex())
		}
		n, err := decodeNodeUnsafe(buf)
		if err != nil {
			return nil, fmt.Errorf("trie: corrupt proof node: %w", err)
		}
		for {
			if n == nil {
				return nil, nil
			}
			if vn, ok := n.(valueNode); ok {
				return []byte(vn), nil
			}
			if sn, ok := n.(*shortNode); ok {
				if len(k) < len(sn.Key) || !bytesEqual(sn.Key, k[:len(sn.Key)]) {
					return nil, nil
				}
				k = k[len(sn.Key):]
				n = sn.Val
				continue
			}
			if fn, ok := n.(*fullNode); ok {
				n = fn.Children[k[0]]
				k = k[1:]
				continue
			}
			if hn, ok := n.(hashNode); ok {
				wantHash = common.BytesToHash(hn)
				break
			}
			return nil, fmt.Errorf("trie: invalid proof node type %T", n)
		}
	}
}

// decodeNodeUnsafe parses buf (a node's full RLP encoding, as produced by
// nodeToRLP/stored by Database) into its in-memory representation. It is
// "unsafe" in the same sense go-ethereum's mustDecodeNode is: malformed
// input returns an error rather than panicking, but no canonical-encoding
// re-check is performed.
func decodeNodeUnsafe(buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	content, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, err
	}
	items, err := splitItems(content)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 2:
		return decodeShort(items)
	case 17:
		return decodeFull(items)
	default:
		return nil, fmt.Errorf("trie: invalid node item count %d", len(items))
	}
}

func splitItems(content []byte) ([][]byte, error) {
	var items [][]byte
	for len(content) > 0 {
		item, rest, err := rlp.SplitAny(content)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		content = rest
	}
	return items, nil
}

func decodeShort(items [][]byte) (node, error) {
	keyContent, _, err := rlp.SplitString(items[0])
	if err != nil {
		return nil, err
	}
	key := compactToHex(keyContent)
	if hasTerm(key) {
		val, err := decodeValueItem(items[1])
		if err != nil {
			return nil, err
		}
		return &shortNode{key, val}, nil
	}
	val, err := decodeRef(items[1])
	if err != nil {
		return nil, err
	}
	return &shortNode{key, val}, nil
}

func decodeFull(items [][]byte) (node, error) {
	n := &fullNode{}
	for i := 0; i < 16; i++ {
		child, err := decodeRef(items[i])
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	val, err := decodeValueItem(items[16])
	if err != nil {
		return nil, err
	}
	n.Children[16] = val
	return n, nil
}

// decodeRef parses a child reference item: empty, a 32-byte hash, or (for
// small subtrees) a fully embedded node.
func decodeRef(item []byte) (node, error) {
	if len(item) == 1 && item[0] == 0x80 {
		return nil, nil
	}
	if len(item) > 0 && item[0] >= 0xc0 {
		return decodeNodeUnsafe(item)
	}
	content, _, err := rlp.SplitString(item)
	if err != nil {
		return nil, err
	}
	switch len(content) {
	case 0:
		return nil, nil
	case 32:
		return hashNode(content), nil
	default:
		return nil, fmt.Errorf("trie: invalid reference length %d", len(content))
	}
}

func decodeValueItem(item []byte) (node, error) {
	content, _, err := rlp.SplitString(item)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, nil
	}
	return valueNode(content), nil
}
