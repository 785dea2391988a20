package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IDGenerator issues order IDs. Implementations must never return the same ID
// twice for the lifetime of the registry.
type IDGenerator interface {
	NextID(ctx context.Context) (string, error)
}

const DefaultIDPrefix = "ORD-"

// SequenceIDGenerator issues prefix+N with N strictly increasing in call order.
type SequenceIDGenerator struct {
	prefix string
	seq    atomic.Uint64
}

func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{prefix: prefix}
}

func (g *SequenceIDGenerator) NextID(_ context.Context) (string, error) {
	return g.prefix + strconv.FormatUint(g.seq.Add(1), 10), nil
}

// Observe advances the sequence past id so restored orders are never reissued.
func (g *SequenceIDGenerator) Observe(id string) {
	n, err := strconv.ParseUint(strings.TrimPrefix(id, g.prefix), 10, 64)
	if err != nil || !strings.HasPrefix(id, g.prefix) {
		return
	}
	for {
		cur := g.seq.Load()
		if n <= cur || g.seq.CompareAndSwap(cur, n) {
			return
		}
	}
}

type UUIDGenerator struct {
	prefix string
}

func NewUUIDGenerator(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

func (g *UUIDGenerator) NextID(_ context.Context) (string, error) {
	return g.prefix + uuid.NewString(), nil
}

// RedisIDGenerator shares one counter between every OMS instance pointing at
// the same key.
type RedisIDGenerator struct {
	client redis.UniversalClient
	key    string
	prefix string
}

func NewRedisIDGenerator(client redis.UniversalClient, key, prefix string) *RedisIDGenerator {
	return &RedisIDGenerator{client: client, key: key, prefix: prefix}
}

func (g *RedisIDGenerator) NextID(ctx context.Context) (string, error) {
	n, err := g.client.Incr(ctx, g.key).Result()
	if err != nil {
		return "", fmt.Errorf("allocate order id: %w", err)
	}
	return g.prefix + strconv.FormatInt(n, 10), nil
}
