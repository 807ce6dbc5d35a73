// Package redis is a distributed Store backend for multi-node deployments:
// key prefixing, a schema-version sentinel, and a key-set index to stand in
// for the prefix iteration Redis doesn't support natively.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/merkleproof/fileserver/pkg/apperr"
	"github.com/merkleproof/fileserver/pkg/hash"
	"github.com/merkleproof/fileserver/pkg/merkle"
	"github.com/merkleproof/fileserver/pkg/store"
)

const (
	keySchemaVersion     = "fileserver:metadata:schema_version"
	currentSchemaVersion = "v1"

	keyNodePrefix     = "fileserver:node:"
	keyFilenamePrefix = "fileserver:file:"
	keyTreeSize       = "fileserver:tree_size"
	keyNumOfFiles     = "fileserver:num_of_files"

	// keySetFilenames indexes every live filename key, since Redis has no
	// native prefix scan cheap enough to use on every Commit.
	keySetFilenames = "fileserver:files:index"
)

// Config holds the connection parameters for the Redis-backed Store.
type Config struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore is a Redis-backed Store, suited to a multi-node deployment
// sharing one commitment.
type RedisStore struct {
	client    *goredis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// NewRedisStore connects to Redis and validates (or initializes) the schema.
func NewRedisStore(cfg *Config, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store/redis: config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("store/redis: address cannot be empty")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store/redis: failed to connect to %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{client: client, logger: logger, keyPrefix: cfg.KeyPrefix}

	if err := rs.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store/redis: failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("redis proof store initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return rs, nil
}

func (r *RedisStore) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisStore) initSchema(ctx context.Context) error {
	key := r.prefixKey(keySchemaVersion)
	existing, err := r.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return r.client.Set(ctx, key, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected %s)", existing, currentSchemaVersion)
	}
	return nil
}

func (r *RedisStore) nodeKey(i int) string {
	return r.prefixKey(fmt.Sprintf("%s%d", keyNodePrefix, i))
}

func (r *RedisStore) filenameKey(name string) string {
	return r.prefixKey(keyFilenamePrefix + name)
}

// Commit implements store.Store. It clears the previous commitment's node
// and filename keys, then writes the new ones, all inside a single
// pipelined transaction so the write lands atomically from Redis's
// perspective.
func (r *RedisStore) Commit(files []string, tree *merkle.Tree) error {
	if len(files) != tree.NumFiles {
		return fmt.Errorf("%w: got %d filenames for %d leaves", apperr.ErrInputShape, len(files), tree.NumFiles)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return apperr.ErrClosed
	}

	ctx := context.Background()

	oldFilenames, err := r.client.SMembers(ctx, r.prefixKey(keySetFilenames)).Result()
	if err != nil {
		return fmt.Errorf("store/redis: reading prior filename index: %w", err)
	}
	oldTreeSize, err := r.readUint64(ctx, r.prefixKey(keyTreeSize))
	if err != nil && err != apperr.ErrNoCommitment {
		return fmt.Errorf("store/redis: reading prior tree_size: %w", err)
	}

	pipe := r.client.TxPipeline()

	for _, f := range oldFilenames {
		pipe.Del(ctx, r.filenameKey(f))
	}
	pipe.Del(ctx, r.prefixKey(keySetFilenames))
	for i := uint64(0); i < oldTreeSize; i++ {
		pipe.Del(ctx, r.nodeKey(int(i)))
	}

	for i, n := range tree.Nodes {
		pipe.Set(ctx, r.nodeKey(i), n.Bytes(), 0)
	}
	filenameKeys := make([]interface{}, 0, len(files))
	for i, f := range files {
		pipe.Set(ctx, r.filenameKey(f), store.EncodeUint64(uint64(i)), 0)
		filenameKeys = append(filenameKeys, f)
	}
	if len(filenameKeys) > 0 {
		pipe.SAdd(ctx, r.prefixKey(keySetFilenames), filenameKeys...)
	}
	pipe.Set(ctx, r.prefixKey(keyNumOfFiles), store.EncodeUint64(uint64(tree.NumFiles)), 0)

	// tree_size last: its absence is how a reader distinguishes "never
	// committed" from "commit in flight".
	pipe.Set(ctx, r.prefixKey(keyTreeSize), store.EncodeUint64(uint64(len(tree.Nodes))), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store/redis: commit pipeline failed: %w", err)
	}
	return nil
}

func (r *RedisStore) readUint64(ctx context.Context, key string) (uint64, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return 0, apperr.ErrNoCommitment
	}
	if err != nil {
		return 0, err
	}
	return store.DecodeUint64(b)
}

func (r *RedisStore) readNode(ctx context.Context, i int) (hash.Hash, error) {
	b, err := r.client.Get(ctx, r.nodeKey(i)).Bytes()
	if err != nil {
		return hash.Hash{}, fmt.Errorf("store/redis: reading node %d: %w", i, err)
	}
	return store.DecodeNodeHash(b)
}

// Root implements store.Store.
func (r *RedisStore) Root() (hash.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return hash.Hash{}, apperr.ErrClosed
	}

	ctx := context.Background()
	if _, err := r.readUint64(ctx, r.prefixKey(keyTreeSize)); err != nil {
		return hash.Hash{}, err
	}
	return r.readNode(ctx, 0)
}

// NumFiles implements store.Store.
func (r *RedisStore) NumFiles() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, apperr.ErrClosed
	}

	n, err := r.readUint64(context.Background(), r.prefixKey(keyNumOfFiles))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Proof implements store.Store.
func (r *RedisStore) Proof(filename string) (merkle.Proof, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, apperr.ErrClosed
	}

	ctx := context.Background()

	treeSize, err := r.readUint64(ctx, r.prefixKey(keyTreeSize))
	if err != nil {
		return nil, err
	}
	numOfFiles, err := r.readUint64(ctx, r.prefixKey(keyNumOfFiles))
	if err != nil {
		return nil, err
	}

	b, err := r.client.Get(ctx, r.filenameKey(filename)).Bytes()
	if err == goredis.Nil {
		return nil, apperr.ErrUnknownFile
	}
	if err != nil {
		return nil, fmt.Errorf("store/redis: reading filename index for %q: %w", filename, err)
	}
	fileIndex, err := store.DecodeUint64(b)
	if err != nil {
		return nil, err
	}

	return store.ComputeProof(int(treeSize), int(numOfFiles), int(fileIndex), func(i int) (hash.Hash, error) {
		return r.readNode(ctx, i)
	})
}

// Close implements store.Store. Idempotent.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("store/redis: failed to close client: %w", err)
	}
	r.logger.Sugar().Info("redis proof store closed")
	return nil
}

// HealthCheck implements store.Store.
func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return apperr.ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("store/redis: ping failed: %w", err)
	}
	return nil
}

var _ store.Store = (*RedisStore)(nil)
