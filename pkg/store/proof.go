package store

import (
	"github.com/merkleproof/fileserver/pkg/hash"
	"github.com/merkleproof/fileserver/pkg/merkle"
)

// NodeGetter reads the node stored at flat-array index i.
type NodeGetter func(i int) (hash.Hash, error)

// ComputeProof runs the authentication-path algorithm shared by every
// backend: given the persisted tree_size, num_of_files and the leaf's
// file_index, it walks
// from the leaf slot up to (but excluding) the root, reading one sibling per
// level through get.
func ComputeProof(treeSize, numOfFiles, fileIndex int, get NodeGetter) (merkle.Proof, error) {
	m := merkle.CeilEven(numOfFiles)
	idx := (treeSize - m) + fileIndex

	var path merkle.Proof
	for idx > 0 {
		siblingIdx := merkle.SiblingIndex(idx)
		siblingHash, err := get(siblingIdx)
		if err != nil {
			return nil, err
		}
		path = append(path, merkle.ProofElement{
			Sibling: siblingHash,
			IsLeft:  merkle.IsRightChild(idx),
		})
		idx = merkle.ParentIndex(idx)
	}
	return path, nil
}
