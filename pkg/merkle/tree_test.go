package merkle

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merkleproof/fileserver/internal/testutil"
	"github.com/merkleproof/fileserver/pkg/hash"
)

func contents(values ...string) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}

func TestBuildTree_SingleLeaf(t *testing.T) {
	tree, err := BuildTree(contents("only"))
	require.NoError(t, err)

	assert.Equal(t, 1, tree.NumFiles)
	assert.Equal(t, 2, tree.LeafCount, "a lone leaf is duplicated to keep the tree pair-balanced")
	assert.Len(t, tree.Nodes, 3)

	leaf := hash.HashLeaf([]byte("only"))
	assert.Equal(t, hash.HashInner(leaf, leaf), tree.Root())
}

func TestBuildTree_TwoLeaves(t *testing.T) {
	tree, err := BuildTree(contents("a", "b"))
	require.NoError(t, err)

	want := hash.HashInner(hash.HashLeaf([]byte("a")), hash.HashLeaf([]byte("b")))
	assert.Equal(t, want, tree.Root())
	assert.Len(t, tree.Nodes, 3)
}

func TestBuildTree_OddLeafCountDuplicatesLast(t *testing.T) {
	tree, err := BuildTree(contents("a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, 3, tree.NumFiles)
	assert.Equal(t, 4, tree.LeafCount)

	ha := hash.HashLeaf([]byte("a"))
	hb := hash.HashLeaf([]byte("b"))
	hc := hash.HashLeaf([]byte("c"))
	want := hash.HashInner(hash.HashInner(ha, hb), hash.HashInner(hc, hc))
	assert.Equal(t, want, tree.Root())
}

func TestBuildTree_RejectsEmptyInput(t *testing.T) {
	_, err := BuildTree(nil)
	require.Error(t, err)
}

func TestProofAndVerify_RoundTrip(t *testing.T) {
	files := contents("a", "b", "c", "d", "e")
	tree, err := BuildTree(files)
	require.NoError(t, err)

	for i, content := range files {
		proof, err := tree.Proof(i)
		require.NoError(t, err)
		assert.True(t, VerifyProof(content, proof, tree.Root()), "file %d should verify", i)
	}
}

func TestVerifyProof_RejectsTamperedByte(t *testing.T) {
	files := contents("a", "b", "c")
	tree, err := BuildTree(files)
	require.NoError(t, err)

	proof, err := tree.Proof(1)
	require.NoError(t, err)

	assert.False(t, VerifyProof([]byte("B"), proof, tree.Root()))
}

func TestVerifyProof_RejectsTamperedRoot(t *testing.T) {
	files := contents("a", "b", "c", "d")
	tree, err := BuildTree(files)
	require.NoError(t, err)

	proof, err := tree.Proof(2)
	require.NoError(t, err)

	var wrongRoot hash.Hash
	wrongRoot[0] = tree.Root()[0] ^ 0xFF

	assert.False(t, VerifyProof(files[2], proof, wrongRoot))
}

func TestVerifyProof_RejectsTamperedPath(t *testing.T) {
	files := contents("a", "b", "c", "d")
	tree, err := BuildTree(files)
	require.NoError(t, err)

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	proof[0].Sibling[0] ^= 0xFF
	assert.False(t, VerifyProof(files[0], proof, tree.Root()))
}

func TestProof_RejectsOutOfBoundsIndex(t *testing.T) {
	tree, err := BuildTree(contents("a", "b"))
	require.NoError(t, err)

	_, err = tree.Proof(5)
	require.Error(t, err)
}

func TestBuildTree_ReorderingChangesRoot(t *testing.T) {
	forward, err := BuildTree(contents("a", "b", "c", "d"))
	require.NoError(t, err)
	reordered, err := BuildTree(contents("b", "a", "c", "d"))
	require.NoError(t, err)

	assert.NotEqual(t, forward.Root(), reordered.Root(), "leaf order is part of the commitment")
}

func TestBuildTreeStreaming_MatchesBuildTree(t *testing.T) {
	files := contents("alpha content", "beta content", "gamma content")

	inMemory, err := BuildTree(files)
	require.NoError(t, err)

	readers := make([]io.Reader, len(files))
	for i, f := range files {
		readers[i] = bytes.NewReader(f)
	}
	streamed, err := BuildTreeStreaming(readers)
	require.NoError(t, err)

	assert.Equal(t, inMemory.Root(), streamed.Root())
}

func TestBuildTreeFromLeafHashes_MatchesBuildTree(t *testing.T) {
	files := contents("x", "y", "z")
	fromContents, err := BuildTree(files)
	require.NoError(t, err)

	leaves := make([]hash.Hash, len(files))
	for i, f := range files {
		leaves[i] = hash.HashLeaf(f)
	}
	fromHashes, err := BuildTreeFromLeafHashes(leaves)
	require.NoError(t, err)

	assert.Equal(t, fromContents.Root(), fromHashes.Root())
}

func TestProofAndVerify_RoundTrip_SampleFixture(t *testing.T) {
	_, names := testutil.WriteSampleFiles(t, testutil.SampleFiles)
	files := testutil.Contents(names, testutil.SampleFiles)

	tree, err := BuildTree(files)
	require.NoError(t, err)

	for i, name := range names {
		proof, err := tree.Proof(i)
		require.NoError(t, err)
		assert.True(t, VerifyProof(files[i], proof, tree.Root()), "fixture file %q should verify", name)
	}
}

func TestSiblingAndParentIndex(t *testing.T) {
	assert.Equal(t, 2, SiblingIndex(1))
	assert.Equal(t, 1, SiblingIndex(2))
	assert.Equal(t, 0, ParentIndex(1))
	assert.Equal(t, 0, ParentIndex(2))
	assert.True(t, IsRightChild(2))
	assert.False(t, IsRightChild(1))
}

func TestCeilEvenAndTreeSize(t *testing.T) {
	assert.Equal(t, 2, CeilEven(1))
	assert.Equal(t, 2, CeilEven(2))
	assert.Equal(t, 4, CeilEven(3))
	assert.Equal(t, 3, TreeSize(1))
	assert.Equal(t, 3, TreeSize(2))
	assert.Equal(t, 7, TreeSize(3))
}
