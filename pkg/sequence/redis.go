package sequence

import (
	"context"
	"fmt"
	"time"

	"contract-lifecycle/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// counterTTL keeps a year's counter alive past the year boundary.
const counterTTL = 400 * 24 * time.Hour

// RedisGenerator hands out sequences from a per tenant, prefix and year
// counter. A missing counter is seeded from the store maximum.
type RedisGenerator struct {
	rdb   *redis.Client
	store *StoreGenerator
}

func NewRedisGenerator(rdb *redis.Client, store *StoreGenerator) *RedisGenerator {
	return &RedisGenerator{rdb: rdb, store: store}
}

func (g *RedisGenerator) key(tenantID string, at time.Time) (string, string, string) {
	prefix := g.store.format.PrefixFor(tenantID)
	yy := Year(at)
	return rediskey.BuildContractSequenceKey(tenantID, prefix, yy), prefix, yy
}

func (g *RedisGenerator) NextContractNumber(ctx context.Context, tx *gorm.DB, tenantID string, at time.Time) (string, error) {
	key, prefix, yy := g.key(tenantID, at)

	exists, err := g.rdb.Exists(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("check sequence counter: %w", err)
	}
	if exists == 0 {
		seed, err := g.store.latestSequence(ctx, tx, tenantID, Base(prefix, yy))
		if err != nil {
			return "", err
		}
		if err := g.rdb.SetNX(ctx, key, seed, counterTTL).Err(); err != nil {
			return "", fmt.Errorf("seed sequence counter: %w", err)
		}
	}

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("increment sequence counter: %w", err)
	}
	return FormatNumber(prefix, yy, seq), nil
}

// Invalidate drops the counter so the next call re-seeds from the store.
func (g *RedisGenerator) Invalidate(ctx context.Context, tenantID string, at time.Time) error {
	key, _, _ := g.key(tenantID, at)
	return g.rdb.Del(ctx, key).Err()
}
