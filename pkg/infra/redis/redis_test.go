package redis_wrapper

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := InitRedis(context.Background(), &RedisConfig{
		ConnectionURL:      "redis://" + mr.Addr() + "/0",
		PoolSize:           4,
		ReadTimeoutSeconds: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, 4, client.Options().PoolSize)

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestInitRedisBadURL(t *testing.T) {
	_, err := InitRedis(context.Background(), &RedisConfig{ConnectionURL: "nope://"})
	require.Error(t, err)
}

func TestInitRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := InitRedis(context.Background(), &RedisConfig{
		ConnectionURL:      "redis://" + addr,
		DialTimeoutSeconds: 1,
	})
	require.Error(t, err)
}
