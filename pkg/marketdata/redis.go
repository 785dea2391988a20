package marketdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisSource reads prices written by the market-data feed as plain decimal
// strings under <prefix><instrument>.
type RedisSource struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisSource(client redis.UniversalClient, prefix string) *RedisSource {
	return &RedisSource{client: client, prefix: prefix}
}

func (s *RedisSource) key(instrument string) string {
	return s.prefix + instrument
}

func (s *RedisSource) ReferencePrice(ctx context.Context, instrument string) (decimal.Decimal, bool, error) {
	raw, err := s.client.Get(ctx, s.key(instrument)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse price %q for %s: %w", raw, instrument, err)
	}
	return price, true, nil
}
