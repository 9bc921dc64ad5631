// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package trie implements the content-addressed Merkle-Patricia trie
// (component B) that backs every account's state and storage root.
package trie

import (
	"errors"

	"github.com/coreeth-io/coreeth/common"
)

// EmptyRootHash is the keccak256 of RLP(nil), the root of an empty trie and
// therefore every freshly created account's storage root.
var EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

var (
	// ErrIncompleteDatabase is returned when resolving a hash reference hits
	// a node missing from the backing HashDB, e.g. a pruned or never-synced
	// subtree.
	ErrIncompleteDatabase = errors.New("trie: missing node in database")
	// ErrBadProof is returned by VerifyProof when a referenced hash is not
	// present anywhere in the supplied proof set (spec §4.2 "proof
	// verification fails closed: any missing node is BadProof").
	ErrBadProof = errors.New("trie: bad proof: missing node")
)

// Trie is a Merkle-Patricia trie whose nodes are content-addressed by
// keccak256 hash (spec §4.2). The zero value is not usable; use New.
type Trie struct {
	db   *Database
	root node

	// originalRoot is the root this trie was opened with; no method reads
	// it.
	originalRoot common.Hash

	// tracer, when non-nil, records every node resolved during a read so a
	// Merkle proof can be extracted for the touched path (spec §4.2
	// "proving variant").
	tracer *proofTracer
}

// New opens the trie rooted at root, backed by db. Passing the zero hash or
// EmptyRootHash yields a fresh, empty trie.
func New(root common.Hash, db *Database) (*Trie, error) {
	t := &Trie{db: db, originalRoot: root}
	if root == (common.Hash{}) || root == EmptyRootHash {
		return t, nil
	}
	rootnode, err := t.resolveHash(root[:])
	if err != nil {
		return nil, err
	}
	t.root = rootnode
	return t, nil
}

// NewEmpty returns an empty trie over db without resolving any root,
// suitable for Hash()-only computations (e.g. deriving a transactions root from a slice
// that is never looked up again).
func NewEmpty(db *Database) *Trie {
	return &Trie{db: db}
}

// StartProof begins recording every node resolved by subsequent Get calls,
// so ExtractProof can return a self-contained proof for the touched keys.
func (t *Trie) StartProof() {
	t.tracer = newProofTracer()
}

// ExtractProof returns the accumulated proof nodes keyed by hash, and stops
// recording.
func (t *Trie) ExtractProof() map[common.Hash][]byte {
	if t.tracer == nil {
		return nil
	}
	out := t.tracer.nodes
	t.tracer = nil
	return out
}

// Get returns the value stored for key, or nil if key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	value, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err != nil {
		return nil, err
	}
	if didResolve {
		t.root = newroot
	}
	if value == nil {
		return nil, nil
	}
	return []byte(value.(valueNode)), nil
}

func (t *Trie) get(origNode node, key []byte, pos int) (value node, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytesEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		child, err := t.resolveHash(n)
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(child, key, pos)
		return value, newnode, true, err
	default:
		panic(invalidNodeErr(origNode))
	}
}

func (n *shortNode) copy() *shortNode {
	cpy := *n
	return &cpy
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Insert associates key with value, creating any intermediate nodes needed.
// An empty value is equivalent to Delete.
func (t *Trie) Insert(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	k := keybytesToHex(key)
	newroot, err := t.insert(t.root, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = newroot
	return nil
}

func (t *Trie) insert(n node, key []byte, value node) (node, error) {
	if len(key) == 0 {
		return value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			newval, err := t.insert(n.Val, key[matchlen:], value)
			if err != nil {
				return nil, err
			}
			return &shortNode{n.Key, newval}, nil
		}
		branch := &fullNode{}
		var err error
		branch.Children[n.Key[matchlen]], err = t.insert(nil, n.Key[matchlen+1:], n.Val)
		if err != nil {
			return nil, err
		}
		branch.Children[key[matchlen]], err = t.insert(nil, key[matchlen+1:], value)
		if err != nil {
			return nil, err
		}
		if matchlen == 0 {
			return branch, nil
		}
		return &shortNode{key[:matchlen], branch}, nil

	case *fullNode:
		cpy := n.copy()
		var err error
		cpy.Children[key[0]], err = t.insert(n.Children[key[0]], key[1:], value)
		if err != nil {
			return nil, err
		}
		return cpy, nil

	case nil:
		return &shortNode{common.CopyBytes(key), value}, nil

	case hashNode:
		rn, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.insert(rn, key, value)

	default:
		panic(invalidNodeErr(n))
	}
}

// Delete removes key from the trie, collapsing any node left with a single
// child (the standard Patricia-trie invariant: no node may have exactly one
// remaining child once a leaf is removed).
func (t *Trie) Delete(key []byte) error {
	k := keybytesToHex(key)
	_, newroot, err := t.delete(t.root, k)
	if err != nil {
		return err
	}
	t.root = newroot
	return nil
}

func (t *Trie) delete(n node, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil
		}
		if matchlen == len(key) {
			return true, nil, nil
		}
		dirty, child, err := t.delete(n.Val, key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			return true, &shortNode{concat(n.Key, child.Key), child.Val}, nil
		default:
			return true, &shortNode{n.Key, child}, nil
		}

	case *fullNode:
		cpy := n.copy()
		dirty, nn, err := t.delete(cpy.Children[key[0]], key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		cpy.Children[key[0]] = nn

		pos := -1
		for i, child := range cpy.Children {
			if child != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				cnode, err := t.resolve(cpy.Children[pos])
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					k := append([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{k, cnode.Val}, nil
				}
			}
			return true, &shortNode{[]byte{byte(pos)}, cpy.Children[pos]}, nil
		}
		return true, cpy, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		rn, err := t.resolveHash(n)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.delete(rn, key)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(invalidNodeErr(n))
	}
}

func (t *Trie) resolve(n node) (node, error) {
	if hn, ok := n.(hashNode); ok {
		return t.resolveHash(hn)
	}
	return n, nil
}

func (t *Trie) resolveHash(n hashNode) (node, error) {
	h := common.BytesToHash(n)
	blob, err := t.db.node(h)
	if err != nil {
		return nil, err
	}
	if t.tracer != nil {
		t.tracer.record(h, blob)
	}
	return decodeNodeUnsafe(blob)
}

func concat(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b))
	copy(out, a)
	copy(out[len(a):], b)
	return out
}

func invalidNodeErr(n node) string {
	return "trie: invalid node type encountered"
}

// Hash returns the root hash of the trie without writing anything to the
// database; Commit must be called afterward to persist dirty nodes.
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return EmptyRootHash
	}
	return hashNodeOf(t.root)
}

// Commit hashes every dirty node bottom-up, inserts every subtree whose own
// RLP encoding reaches 32 bytes into the backing Database with an
// incremented reference count, and returns the new root hash. Subtrees
// smaller than that stay embedded in their parent's encoding exactly as the
// canonical Merkle-Patricia encoding requires (spec §4.2/§6): a node is only
// a unit of storage once its reference would otherwise be cheaper than
// inlining it. The caller must still call (*Database).Commit to flush to
// disk.
func (t *Trie) Commit() (common.Hash, error) {
	if t.root == nil {
		return EmptyRootHash, nil
	}
	collapsed := t.collapse(t.root)
	h := hashNodeOf(collapsed)
	t.db.insert(h, nodeToRLP(collapsed))
	t.root = hashNode(h[:])
	return h, nil
}

// collapse recursively commits n's structural children, returning n itself
// with every child replaced by whatever commitChild decided for it.
func (t *Trie) collapse(n node) node {
	switch n := n.(type) {
	case *shortNode:
		return &shortNode{n.Key, t.commitChild(n.Val)}
	case *fullNode:
		cpy := n.copy()
		for i, child := range n.Children {
			cpy.Children[i] = t.commitChild(child)
		}
		return cpy
	default:
		return n
	}
}

// commitChild commits a single child slot: a structural node either gets
// inserted into the database and replaced by a hashNode reference (once its
// own encoding reaches 32 bytes) or is collapsed in place and left embedded.
// nil, valueNode and already-resolved hashNode children pass through as-is.
func (t *Trie) commitChild(n node) node {
	switch n.(type) {
	case *shortNode, *fullNode:
		c := t.collapse(n)
		if len(nodeToRLP(c)) >= 32 {
			h := hashNodeOf(c)
			t.db.insert(h, nodeToRLP(c))
			return hashNode(h[:])
		}
		return c
	default:
		return n
	}
}
