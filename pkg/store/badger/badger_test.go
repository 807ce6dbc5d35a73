package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merkleproof/fileserver/pkg/apperr"
	"github.com/merkleproof/fileserver/pkg/logger"
	"github.com/merkleproof/fileserver/pkg/merkle"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	bs, err := NewBadgerStore(t.TempDir(), l)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

func TestBadgerStore_CommitAndProof(t *testing.T) {
	bs := newTestStore(t)

	names := []string{"a.txt", "b.txt", "c.txt", "d.txt"}
	contents := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc"), []byte("ddd")}

	tree, err := merkle.BuildTree(contents)
	require.NoError(t, err)
	require.NoError(t, bs.Commit(names, tree))

	root, err := bs.Root()
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), root)

	n, err := bs.NumFiles()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for i, name := range names {
		proof, err := bs.Proof(name)
		require.NoError(t, err)
		assert.True(t, merkle.VerifyProof(contents[i], proof, root))
	}
}

func TestBadgerStore_NoCommitmentYet(t *testing.T) {
	bs := newTestStore(t)

	_, err := bs.Root()
	assert.ErrorIs(t, err, apperr.ErrNoCommitment)

	_, err = bs.Proof("anything")
	assert.ErrorIs(t, err, apperr.ErrNoCommitment)
}

func TestBadgerStore_UnknownFile(t *testing.T) {
	bs := newTestStore(t)

	tree, err := merkle.BuildTree([][]byte{[]byte("aaa")})
	require.NoError(t, err)
	require.NoError(t, bs.Commit([]string{"a.txt"}, tree))

	_, err = bs.Proof("missing.txt")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)
}

func TestBadgerStore_RecommitClearsPriorNodesAndFilenames(t *testing.T) {
	bs := newTestStore(t)

	bigTree, err := merkle.BuildTree([][]byte{[]byte("1"), []byte("2"), []byte("3"), []byte("4"), []byte("5")})
	require.NoError(t, err)
	require.NoError(t, bs.Commit([]string{"1", "2", "3", "4", "5"}, bigTree))

	smallTree, err := merkle.BuildTree([][]byte{[]byte("only")})
	require.NoError(t, err)
	require.NoError(t, bs.Commit([]string{"only"}, smallTree))

	_, err = bs.Proof("1")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)

	root, err := bs.Root()
	require.NoError(t, err)
	assert.Equal(t, smallTree.Root(), root)
}

func TestBadgerStore_HealthCheck(t *testing.T) {
	bs := newTestStore(t)
	assert.NoError(t, bs.HealthCheck())
}

func TestBadgerStore_ClosedRejectsOperations(t *testing.T) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	bs, err := NewBadgerStore(t.TempDir(), l)
	require.NoError(t, err)

	require.NoError(t, bs.Close())
	require.NoError(t, bs.Close(), "Close must be idempotent")

	_, err = bs.Root()
	assert.ErrorIs(t, err, apperr.ErrClosed)
}
