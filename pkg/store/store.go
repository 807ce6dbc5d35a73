// Package store defines the Proof Store contract: the persisted key/value
// layout for a Merkle commitment, and the interface its backends (badger,
// redis, memory) implement.
package store

import (
	"encoding/binary"
	"fmt"

	"github.com/merkleproof/fileserver/pkg/hash"
	"github.com/merkleproof/fileserver/pkg/merkle"
)

// Reserved metadata keys. Filename keys are namespaced under
// filenameKeyPrefix so a filename can never collide with these, regardless
// of what the uploader names a file.
const (
	KeyTreeSize   = "tree_size"
	KeyNumOfFiles = "num_of_files"

	// filenameKeyPrefix is prepended to every filename key. Node keys are
	// always exactly 8 bytes (a little-endian uint64), so this prefix also
	// can't collide with a node key unless the tree has on the order of
	// 2^56 nodes, which is unreachable.
	filenameKeyPrefix = byte(0xFF)
)

// Store is the Proof Store: it persists a commitment (the node array, the
// filename->leaf-index map, and the leaf counts) and answers proof queries
// in O(log n).
type Store interface {
	// Commit atomically replaces the persisted commitment. files must be in
	// the same order as the leaves used to build tree.
	Commit(files []string, tree *merkle.Tree) error

	// Root returns the committed root hash. It returns apperr.ErrNoCommitment
	// if the store has never been committed.
	Root() (hash.Hash, error)

	// NumFiles returns n, the number of leaves committed before
	// odd-leaf duplication. It returns apperr.ErrNoCommitment if the store
	// has never been committed.
	NumFiles() (int, error)

	// Proof returns the authentication path for filename. It returns
	// apperr.ErrNoCommitment if the store is empty, or apperr.ErrUnknownFile
	// if a commitment exists but does not include filename.
	Proof(filename string) (merkle.Proof, error)

	// Close shuts down the store. Idempotent.
	Close() error

	// HealthCheck verifies the store is operational.
	HealthCheck() error
}

// EncodeNodeKey returns the 8-byte little-endian key for tree node i.
func EncodeNodeKey(i int) []byte {
	return EncodeUint64(uint64(i))
}

// EncodeUint64 little-endian-encodes v into an 8-byte key/value.
func EncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// DecodeUint64 parses an 8-byte little-endian value.
func DecodeUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("store: expected 8-byte value, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// EncodeFilenameKey namespaces a filename so it can never collide with
// KeyTreeSize, KeyNumOfFiles, or a node key.
func EncodeFilenameKey(name string) []byte {
	key := make([]byte, 0, len(name)+1)
	key = append(key, filenameKeyPrefix)
	key = append(key, name...)
	return key
}

// DecodeNodeHash parses a 32-byte stored node value.
func DecodeNodeHash(b []byte) (hash.Hash, error) {
	return hash.FromBytes(b)
}
