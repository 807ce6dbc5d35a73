// Package merkle builds the pair-balanced, flat-array binary Merkle tree
// over an ordered list of files and verifies authentication paths against a
// committed root. It mirrors the shape of a classic implicit-heap array:
// index 0 is the root, children of i are at 2i+1 and 2i+2.
package merkle

import (
	"fmt"
	"io"

	"github.com/merkleproof/fileserver/pkg/hash"
)

// Tree is the flat-array Merkle tree built over a leaf sequence.
type Tree struct {
	// Nodes has length 2*LeafCount-1. Nodes[0] is the root.
	Nodes []hash.Hash
	// NumFiles is n, the leaf count before odd-leaf duplication.
	NumFiles int
	// LeafCount is m = CeilEven(NumFiles).
	LeafCount int
}

// CeilEven rounds n up to the nearest even number.
func CeilEven(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

// TreeSize returns the total node count 2*CeilEven(n)-1 for n leaves.
func TreeSize(n int) int {
	m := CeilEven(n)
	return 2*m - 1
}

// BuildTree hashes each file's content with hash.HashLeaf and constructs the
// flat-array tree. n = 0 is not supported; callers must enforce n >= 1.
func BuildTree(contents [][]byte) (*Tree, error) {
	leaves := make([]hash.Hash, len(contents))
	for i, c := range contents {
		leaves[i] = hash.HashLeaf(c)
	}
	return buildFromLeaves(leaves)
}

// BuildTreeStreaming is equivalent to BuildTree but reads each file as a
// stream of chunks to bound peak memory, preserving bit-exact output.
func BuildTreeStreaming(readers []io.Reader) (*Tree, error) {
	leaves := make([]hash.Hash, len(readers))
	for i, r := range readers {
		h, err := hash.HashLeafStream(r)
		if err != nil {
			return nil, fmt.Errorf("merkle: reading leaf %d: %w", i, err)
		}
		leaves[i] = h
	}
	return buildFromLeaves(leaves)
}

// BuildTreeFromLeafHashes constructs the tree directly from pre-computed
// leaf digests, used when the caller (e.g. the client's /hashform endpoint)
// has already hashed each file and only needs the tree shape.
func BuildTreeFromLeafHashes(leaves []hash.Hash) (*Tree, error) {
	cp := make([]hash.Hash, len(leaves))
	copy(cp, leaves)
	return buildFromLeaves(cp)
}

func buildFromLeaves(leaves []hash.Hash) (*Tree, error) {
	n := len(leaves)
	if n == 0 {
		return nil, fmt.Errorf("merkle: cannot build a tree from zero leaves")
	}

	numFiles := n
	if n%2 != 0 {
		leaves = append(leaves, leaves[n-1])
	}
	m := len(leaves)

	total := 2*m - 1
	nodes := make([]hash.Hash, total)
	leafStart := m - 1
	copy(nodes[leafStart:], leaves)

	for i := leafStart - 1; i >= 0; i-- {
		nodes[i] = hash.HashInner(nodes[2*i+1], nodes[2*i+2])
	}

	return &Tree{Nodes: nodes, NumFiles: numFiles, LeafCount: m}, nil
}

// Root returns the tree's root digest, node index 0.
func (t *Tree) Root() hash.Hash {
	return t.Nodes[0]
}

// ProofElement is one step of an authentication path: a sibling digest and
// whether that sibling lies to the left of the running hash during
// reconstruction.
type ProofElement struct {
	Sibling hash.Hash `json:"sibling"`
	IsLeft  bool      `json:"is_left"`
}

// Proof is an authentication path, ordered from the leaf's sibling up to the
// sibling just below the root.
type Proof []ProofElement

// Proof returns the authentication path for the leaf at position
// fileIndex (0-based, in original pre-duplication order).
func (t *Tree) Proof(fileIndex int) (Proof, error) {
	if fileIndex < 0 || fileIndex >= t.NumFiles {
		return nil, fmt.Errorf("merkle: leaf index %d out of bounds (tree has %d files)", fileIndex, t.NumFiles)
	}

	idx := (t.LeafCount - 1) + fileIndex
	return proofFromIndex(t.Nodes, idx)
}

// proofFromIndex walks from a leaf slot up to (but excluding) the root,
// recording each sibling and whether the current node is the right child
// (in which case the sibling lies to the left).
func proofFromIndex(nodes []hash.Hash, idx int) (Proof, error) {
	var path Proof
	for idx > 0 {
		sibling := SiblingIndex(idx)
		if sibling < 0 || sibling >= len(nodes) {
			return nil, fmt.Errorf("merkle: sibling index %d out of bounds", sibling)
		}
		path = append(path, ProofElement{
			Sibling: nodes[sibling],
			IsLeft:  IsRightChild(idx),
		})
		idx = ParentIndex(idx)
	}
	return path, nil
}

// SiblingIndex returns the flat-array index of idx's sibling.
func SiblingIndex(idx int) int {
	if idx%2 == 0 {
		return idx - 1
	}
	return idx + 1
}

// ParentIndex returns the flat-array index of idx's parent.
func ParentIndex(idx int) int {
	return (idx - 1) / 2
}

// IsRightChild reports whether idx is a right child (even index); right
// children have their sibling on the left during path reconstruction.
func IsRightChild(idx int) bool {
	return idx%2 == 0
}

// VerifyProof recomputes the root from leaf bytes and an authentication
// path and checks it against the expected root. It returns a plain boolean:
// any mismatch, including a malformed path, is a verification failure.
func VerifyProof(leaf []byte, proof Proof, root hash.Hash) bool {
	h := hash.HashLeaf(leaf)
	return verifyFromLeafHash(h, proof, root)
}

// VerifyProofStream is equivalent to VerifyProof but streams the leaf bytes,
// bounding peak memory for large files.
func VerifyProofStream(r io.Reader, proof Proof, root hash.Hash) (bool, error) {
	h, err := hash.HashLeafStream(r)
	if err != nil {
		return false, err
	}
	return verifyFromLeafHash(h, proof, root), nil
}

func verifyFromLeafHash(h hash.Hash, proof Proof, root hash.Hash) bool {
	for _, step := range proof {
		if step.IsLeft {
			h = hash.HashInner(step.Sibling, h)
		} else {
			h = hash.HashInner(h, step.Sibling)
		}
	}
	return h == root
}
