// Package badger is the production-ready Store backend, built on Badger:
// namespaced keys, SyncWrites durability, a background value-log GC loop,
// and a closed-guard behind a RWMutex.
package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/merkleproof/fileserver/pkg/apperr"
	"github.com/merkleproof/fileserver/pkg/hash"
	"github.com/merkleproof/fileserver/pkg/merkle"
	"github.com/merkleproof/fileserver/pkg/store"
)

// BadgerStore is a Badger-backed Store, suitable for a single-node
// deployment with durable on-disk commitments.
type BadgerStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBadgerStore opens (or creates) a Badger database at dataPath and
// starts a background GC goroutine.
func NewBadgerStore(dataPath string, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("store/badger: failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &loggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store/badger: failed to open database at %s: %w", absPath, err)
	}

	bs := &BadgerStore{db: db, logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	bs.gcCancel = cancel
	bs.gcWg.Add(1)
	go bs.runGC(ctx)

	logger.Sugar().Infow("badger proof store initialized", "path", absPath)
	return bs, nil
}

func (b *BadgerStore) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && err != badgerdb.ErrNoRewrite {
				b.logger.Sugar().Warnw("badger value log GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Commit implements store.Store. The whole clear+write sequence runs inside
// a single Badger transaction, so a reader never observes a partially
// cleared or partially written commitment.
func (b *BadgerStore) Commit(files []string, tree *merkle.Tree) error {
	if len(files) != tree.NumFiles {
		return fmt.Errorf("%w: got %d filenames for %d leaves", apperr.ErrInputShape, len(files), tree.NumFiles)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return apperr.ErrClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		if err := deletePrefix(txn, []byte{0xFF}); err != nil {
			return fmt.Errorf("store/badger: clearing filename index: %w", err)
		}

		if err := deletePriorNodes(txn); err != nil {
			return fmt.Errorf("store/badger: clearing prior nodes: %w", err)
		}

		for i, n := range tree.Nodes {
			if err := txn.Set(store.EncodeNodeKey(i), n.Bytes()); err != nil {
				return fmt.Errorf("store/badger: writing node %d: %w", i, err)
			}
		}
		for i, f := range files {
			if err := txn.Set(store.EncodeFilenameKey(f), store.EncodeUint64(uint64(i))); err != nil {
				return fmt.Errorf("store/badger: writing filename index for %q: %w", f, err)
			}
		}
		if err := txn.Set([]byte(store.KeyNumOfFiles), store.EncodeUint64(uint64(tree.NumFiles))); err != nil {
			return fmt.Errorf("store/badger: writing num_of_files: %w", err)
		}

		// tree_size is written last: its absence is how a reader tells "no
		// commitment" apart from a half-written one.
		if err := txn.Set([]byte(store.KeyTreeSize), store.EncodeUint64(uint64(len(tree.Nodes)))); err != nil {
			return fmt.Errorf("store/badger: writing tree_size: %w", err)
		}
		return nil
	})
}

func deletePriorNodes(txn *badgerdb.Txn) error {
	item, err := txn.Get([]byte(store.KeyTreeSize))
	if err == badgerdb.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	var oldSize uint64
	err = item.Value(func(val []byte) error {
		oldSize, err = store.DecodeUint64(val)
		return err
	})
	if err != nil {
		return err
	}

	for i := uint64(0); i < oldSize; i++ {
		if err := txn.Delete(store.EncodeNodeKey(int(i))); err != nil {
			return err
		}
	}
	return nil
}

func deletePrefix(txn *badgerdb.Txn, prefix []byte) error {
	opts := badgerdb.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Root implements store.Store.
func (b *BadgerStore) Root() (hash.Hash, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return hash.Hash{}, apperr.ErrClosed
	}

	var root hash.Hash
	err := b.db.View(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get([]byte(store.KeyTreeSize)); err == badgerdb.ErrKeyNotFound {
			return apperr.ErrNoCommitment
		} else if err != nil {
			return err
		}

		item, err := txn.Get(store.EncodeNodeKey(0))
		if err != nil {
			return fmt.Errorf("store/badger: reading root node: %w", err)
		}
		return item.Value(func(val []byte) error {
			h, err := store.DecodeNodeHash(val)
			if err != nil {
				return err
			}
			root = h
			return nil
		})
	})
	if err != nil {
		return hash.Hash{}, err
	}
	return root, nil
}

// NumFiles implements store.Store.
func (b *BadgerStore) NumFiles() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, apperr.ErrClosed
	}

	var n uint64
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(store.KeyNumOfFiles))
		if err == badgerdb.ErrKeyNotFound {
			return apperr.ErrNoCommitment
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			n, err = store.DecodeUint64(val)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Proof implements store.Store.
func (b *BadgerStore) Proof(filename string) (merkle.Proof, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, apperr.ErrClosed
	}

	var (
		treeSize, numOfFiles uint64
		fileIndex            uint64
	)

	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(store.KeyTreeSize))
		if err == badgerdb.ErrKeyNotFound {
			return apperr.ErrNoCommitment
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			treeSize, err = store.DecodeUint64(val)
			return err
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte(store.KeyNumOfFiles))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			numOfFiles, err = store.DecodeUint64(val)
			return err
		}); err != nil {
			return err
		}

		item, err = txn.Get(store.EncodeFilenameKey(filename))
		if err == badgerdb.ErrKeyNotFound {
			return apperr.ErrUnknownFile
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			fileIndex, err = store.DecodeUint64(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return store.ComputeProof(int(treeSize), int(numOfFiles), int(fileIndex), func(i int) (hash.Hash, error) {
		var h hash.Hash
		err := b.db.View(func(txn *badgerdb.Txn) error {
			item, err := txn.Get(store.EncodeNodeKey(i))
			if err != nil {
				return fmt.Errorf("store/badger: reading node %d: %w", i, err)
			}
			return item.Value(func(val []byte) error {
				h, err = store.DecodeNodeHash(val)
				return err
			})
		})
		return h, err
	})
}

// Close implements store.Store. Idempotent.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("store/badger: failed to close database: %w", err)
	}
	b.logger.Sugar().Info("badger proof store closed")
	return nil
}

// HealthCheck implements store.Store.
func (b *BadgerStore) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return apperr.ErrClosed
	}
	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(store.KeyTreeSize))
		if err != nil && err != badgerdb.ErrKeyNotFound {
			return fmt.Errorf("store/badger: health check read failed: %w", err)
		}
		return nil
	})
}

var _ store.Store = (*BadgerStore)(nil)

// loggerAdapter satisfies badger's Logger interface using zap's sugared API.
type loggerAdapter struct {
	logger *zap.Logger
}

func (l *loggerAdapter) Errorf(f string, v ...interface{})   { l.logger.Sugar().Errorf(f, v...) }
func (l *loggerAdapter) Warningf(f string, v ...interface{}) { l.logger.Sugar().Warnf(f, v...) }
func (l *loggerAdapter) Infof(f string, v ...interface{})    { l.logger.Sugar().Infof(f, v...) }
func (l *loggerAdapter) Debugf(f string, v ...interface{})   { l.logger.Sugar().Debugf(f, v...) }
