package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oncepay/oncepay/internal/config"
	"github.com/oncepay/oncepay/internal/domain"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
)

const terminalCacheKeyPrefix = "oncepay:terminal:"

// TerminalRecordCache caches idempotency records that reached a terminal
// status. Terminal responses are immutable, so a hit can be served without
// consulting the store; reserved and processing records are never cached.
// L1 is an in-process ristretto cache, L2 an optional shared redis.
type TerminalRecordCache struct {
	l1  *ristretto.Cache
	rdb *redis.Client
	ttl time.Duration
}

func NewTerminalRecordCache(cfg *config.Config, rdb *redis.Client) *TerminalRecordCache {
	ttl := 5 * time.Minute
	if cfg != nil && cfg.Idempotency.TerminalCacheTTLSeconds > 0 {
		ttl = time.Duration(cfg.Idempotency.TerminalCacheTTLSeconds) * time.Second
	}
	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		l1 = nil
	}
	return &TerminalRecordCache{l1: l1, rdb: rdb, ttl: ttl}
}

func (c *TerminalRecordCache) Get(ctx context.Context, key string) (*domain.IdempotencyKey, bool) {
	if c == nil {
		return nil, false
	}
	if c.l1 != nil {
		if val, ok := c.l1.Get(key); ok {
			if record, ok := val.(*domain.IdempotencyKey); ok {
				return record, true
			}
		}
	}
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, terminalCacheKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	record := &domain.IdempotencyKey{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, false
	}
	c.setL1(key, record)
	return record, true
}

// Set stores a terminal record in both tiers. Non-terminal records are
// silently refused.
func (c *TerminalRecordCache) Set(ctx context.Context, record *domain.IdempotencyKey) {
	if c == nil || record == nil || !record.Terminal() {
		return
	}
	c.setL1(record.Key, record)
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, terminalCacheKeyPrefix+record.Key, raw, c.ttl).Err()
}

func (c *TerminalRecordCache) setL1(key string, record *domain.IdempotencyKey) {
	if c.l1 == nil {
		return
	}
	_ = c.l1.SetWithTTL(key, record, 1, c.ttl)
}
