package redis

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merkleproof/fileserver/pkg/apperr"
	"github.com/merkleproof/fileserver/pkg/logger"
	"github.com/merkleproof/fileserver/pkg/merkle"
)

// getTestRedisAddress returns the Redis address for testing. Uses
// REDIS_TEST_ADDRESS if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

var keyPrefixCounter int64

// requireRedis skips the test if Redis is not reachable, and gives each test
// a unique key prefix so concurrent test runs don't collide.
func requireRedis(t *testing.T) *RedisStore {
	t.Helper()

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)

	prefix := fmt.Sprintf("test:%d:", atomic.AddInt64(&keyPrefixCounter, 1))
	rs, err := NewRedisStore(&Config{
		Address:   getTestRedisAddress(),
		DB:        15,
		KeyPrefix: prefix,
	}, l)
	if err != nil {
		t.Skipf("redis not available at %s: %v", getTestRedisAddress(), err)
		return nil
	}
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}

func TestRedisStore_CommitAndProof(t *testing.T) {
	rs := requireRedis(t)

	names := []string{"a.txt", "b.txt", "c.txt"}
	contents := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}

	tree, err := merkle.BuildTree(contents)
	require.NoError(t, err)
	require.NoError(t, rs.Commit(names, tree))

	root, err := rs.Root()
	require.NoError(t, err)
	assert.Equal(t, tree.Root(), root)

	for i, name := range names {
		proof, err := rs.Proof(name)
		require.NoError(t, err)
		assert.True(t, merkle.VerifyProof(contents[i], proof, root))
	}
}

func TestRedisStore_UnknownFile(t *testing.T) {
	rs := requireRedis(t)

	tree, err := merkle.BuildTree([][]byte{[]byte("aaa")})
	require.NoError(t, err)
	require.NoError(t, rs.Commit([]string{"a.txt"}, tree))

	_, err = rs.Proof("missing.txt")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)
}

func TestRedisStore_RecommitClearsPriorFilenames(t *testing.T) {
	rs := requireRedis(t)

	tree1, err := merkle.BuildTree([][]byte{[]byte("1"), []byte("2")})
	require.NoError(t, err)
	require.NoError(t, rs.Commit([]string{"1", "2"}, tree1))

	tree2, err := merkle.BuildTree([][]byte{[]byte("only")})
	require.NoError(t, err)
	require.NoError(t, rs.Commit([]string{"only"}, tree2))

	_, err = rs.Proof("1")
	assert.ErrorIs(t, err, apperr.ErrUnknownFile)
}
