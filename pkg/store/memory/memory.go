// Package memory is an in-memory Store implementation, intended for tests
// and the "memory" persistence type. All data is lost when the process
// exits.
package memory

import (
	"fmt"
	"sync"

	"github.com/merkleproof/fileserver/pkg/apperr"
	"github.com/merkleproof/fileserver/pkg/hash"
	"github.com/merkleproof/fileserver/pkg/merkle"
	"github.com/merkleproof/fileserver/pkg/store"
)

// MemoryStore is a thread-safe, map-backed Store. It exists TESTING ONLY;
// production deployments should use store/badger or store/redis.
type MemoryStore struct {
	mu sync.RWMutex

	nodes       map[uint64]hash.Hash
	filenames   map[string]uint64
	treeSize    int
	numOfFiles  int
	hasCommit   bool
	closed      bool
}

// NewMemoryStore creates a new in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:     make(map[uint64]hash.Hash),
		filenames: make(map[string]uint64),
	}
}

// Commit implements store.Store.
func (m *MemoryStore) Commit(files []string, tree *merkle.Tree) error {
	if len(files) != tree.NumFiles {
		return fmt.Errorf("%w: got %d filenames for %d leaves", apperr.ErrInputShape, len(files), tree.NumFiles)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return apperr.ErrClosed
	}

	m.nodes = make(map[uint64]hash.Hash, len(tree.Nodes))
	m.filenames = make(map[string]uint64, len(files))

	for i, n := range tree.Nodes {
		m.nodes[uint64(i)] = n
	}
	for i, f := range files {
		m.filenames[f] = uint64(i)
	}

	m.numOfFiles = tree.NumFiles
	m.treeSize = len(tree.Nodes)
	m.hasCommit = true
	return nil
}

// Root implements store.Store.
func (m *MemoryStore) Root() (hash.Hash, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return hash.Hash{}, apperr.ErrClosed
	}
	if !m.hasCommit {
		return hash.Hash{}, apperr.ErrNoCommitment
	}
	return m.nodes[0], nil
}

// NumFiles implements store.Store.
func (m *MemoryStore) NumFiles() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, apperr.ErrClosed
	}
	if !m.hasCommit {
		return 0, apperr.ErrNoCommitment
	}
	return m.numOfFiles, nil
}

// Proof implements store.Store.
func (m *MemoryStore) Proof(filename string) (merkle.Proof, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, apperr.ErrClosed
	}
	if !m.hasCommit {
		return nil, apperr.ErrNoCommitment
	}

	fileIndex, ok := m.filenames[filename]
	if !ok {
		return nil, apperr.ErrUnknownFile
	}

	return store.ComputeProof(m.treeSize, m.numOfFiles, int(fileIndex), func(i int) (hash.Hash, error) {
		n, ok := m.nodes[uint64(i)]
		if !ok {
			return hash.Hash{}, fmt.Errorf("memory store: missing node %d", i)
		}
		return n, nil
	})
}

// Close implements store.Store. Idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// HealthCheck implements store.Store.
func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return apperr.ErrClosed
	}
	return nil
}

var _ store.Store = (*MemoryStore)(nil)
