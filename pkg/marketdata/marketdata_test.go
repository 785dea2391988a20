package marketdata

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticSource(t *testing.T) {
	s := NewStaticSource(map[string]decimal.Decimal{"EURUSD": decimal.RequireFromString("1.1")})
	ctx := context.Background()

	p, ok, err := s.ReferencePrice(ctx, "EURUSD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.1", p.String())

	s.Delete("EURUSD")
	_, ok, err = s.ReferencePrice(ctx, "EURUSD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSource(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisSource(client, "px:")
	ctx := context.Background()

	_, ok, err := s.ReferencePrice(ctx, "EURUSD")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.Set("px:EURUSD", "1.1000")
	p, ok, err := s.ReferencePrice(ctx, "EURUSD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, p.Equal(decimal.RequireFromString("1.1")))

	mr.Set("px:GBPUSD", "not-a-price")
	_, ok, err = s.ReferencePrice(ctx, "GBPUSD")
	assert.Error(t, err)
	assert.False(t, ok)
}
