package trie

import (
	"testing"

	"github.com/coreeth-io/coreeth/common"
	"github.com/coreeth-io/coreeth/ethdb/memorydb"
	"github.com/stretchr/testify/require"
)

func newTestTrie(t *testing.T) (*Trie, *Database) {
	t.Helper()
	db := NewDatabase(memorydb.New())
	tr, err := New(common.Hash{}, db)
	require.NoError(t, err)
	return tr, db
}

func TestEmptyTrieHash(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.Equal(t, EmptyRootHash, tr.Hash())
}

// Known root hashes below match go-ethereum's trie test vectors, since the
// hex-prefix encoding and RLP node layout are bit-for-bit identical.
func TestInsertKnownVector1(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.NoError(t, tr.Insert([]byte("doe"), []byte("reindeer")))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("dogglesworth"), []byte("cat")))

	want := common.HexToHash("8aad789dff2f538bca5d8ea56e8abe10f4c7ba3a5dea95fea4cd6e7c3a1168d3")
	require.Equal(t, want, tr.Hash())
}

func TestInsertKnownVector2(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.NoError(t, tr.Insert([]byte("A"), []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")))

	want := common.HexToHash("d23786fb4a010da3ce639d66d5e904a11dbc02746d1ce25029e53290cabf28ab")
	require.Equal(t, want, tr.Hash())
}

func TestDeleteKnownVector(t *testing.T) {
	tr, _ := newTestTrie(t)
	require.NoError(t, tr.Insert([]byte("do"), []byte("verb")))
	require.NoError(t, tr.Insert([]byte("ether"), []byte("wookiedoo")))
	require.NoError(t, tr.Insert([]byte("horse"), []byte("stallion")))
	require.NoError(t, tr.Insert([]byte("shaman"), []byte("horse")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	require.NoError(t, tr.Delete([]byte("ether")))
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Delete([]byte("shaman")))

	want := common.HexToHash("5991bb8c6514148a29db676a14ac506cd2cd5775ace63c30a4fe457715e9ac84")
	require.Equal(t, want, tr.Hash())
}

func TestEmptyValueIsDelete(t *testing.T) {
	tr1, _ := newTestTrie(t)
	require.NoError(t, tr1.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr1.Insert([]byte("ether"), []byte("")))

	tr2, _ := newTestTrie(t)
	require.NoError(t, tr2.Insert([]byte("dog"), []byte("puppy")))

	require.Equal(t, tr2.Hash(), tr1.Hash())
}

func TestGetRoundTrip(t *testing.T) {
	tr, _ := newTestTrie(t)
	entries := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
	}
	for k, v := range entries {
		require.NoError(t, tr.Insert([]byte(k), []byte(v)))
	}
	for k, v := range entries {
		got, err := tr.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, string(got))
	}
	missing, err := tr.Get([]byte("nope"))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCommitPersistsAndReopens(t *testing.T) {
	tr, db := newTestTrie(t)
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	root, err := tr.Commit()
	require.NoError(t, err)
	require.NoError(t, db.Commit())

	reopened, err := New(root, db)
	require.NoError(t, err)
	v, err := reopened.Get([]byte("dog"))
	require.NoError(t, err)
	require.Equal(t, "puppy", string(v))
}

func TestVerifyProofRoundTrip(t *testing.T) {
	tr, db := newTestTrie(t)
	keys := [][]byte{[]byte("do"), []byte("dog"), []byte("doge"), []byte("horse")}
	vals := [][]byte{[]byte("verb"), []byte("puppy"), []byte("coin"), []byte("stallion")}
	for i, k := range keys {
		require.NoError(t, tr.Insert(k, vals[i]))
	}
	root, err := tr.Commit()
	require.NoError(t, err)
	require.NoError(t, db.Commit())

	reopened, err := New(root, db)
	require.NoError(t, err)
	reopened.StartProof()
	got, err := reopened.Get([]byte("dog"))
	require.NoError(t, err)
	require.Equal(t, "puppy", string(got))
	proof := reopened.ExtractProof()
	require.NotEmpty(t, proof)

	val, err := VerifyProof(root, []byte("dog"), proof)
	require.NoError(t, err)
	require.Equal(t, "puppy", string(val))
}

func TestVerifyProofRejectsMissingNode(t *testing.T) {
	tr, db := newTestTrie(t)
	require.NoError(t, tr.Insert([]byte("dog"), []byte("puppy")))
	require.NoError(t, tr.Insert([]byte("doge"), []byte("coin")))
	root, err := tr.Commit()
	require.NoError(t, err)
	require.NoError(t, db.Commit())

	reopened, err := New(root, db)
	require.NoError(t, err)
	reopened.StartProof()
	_, err = reopened.Get([]byte("dog"))
	require.NoError(t, err)
	proof := reopened.ExtractProof()

	for h := range proof {
		delete(proof, h)
		break
	}
	_, err = VerifyProof(root, []byte("dog"), proof)
	require.ErrorIs(t, err, ErrBadProof)
}
