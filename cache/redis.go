package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Mirror is a Redis-backed exact-match mirror of cached responses. It lets
// a freshly started process serve exact hits stored by a previous run
// before any embedding backend has warmed up. All operations fail soft: if
// Redis is unavailable, lookups miss and writes are silently discarded —
// the in-memory cache's invariants never depend on it.
type Mirror struct {
	rdb    *redis.Client
	prefix string
}

// mirrorEntry is the JSON value stored per key.
type mirrorEntry struct {
	Response  string `json:"response"`
	TokenCost int    `json:"token_cost"`
}

// NewMirror creates a Redis-backed mirror. Keys are namespaced under
// "rawrcache:".
func NewMirror(addr, password string, db int) *Mirror {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Mirror{rdb: rdb, prefix: "rawrcache:"}
}

// Lookup retrieves a mirrored response by normalized key. Returns ok=false
// on a miss, a decode failure, or when Redis is unreachable.
func (m *Mirror) Lookup(ctx context.Context, key string) (response string, tokenCost int, ok bool) {
	val, err := m.rdb.Get(ctx, m.prefix+key).Bytes()
	if err != nil {
		// Fail soft: redis.Nil and connection errors are both misses.
		return "", 0, false
	}
	var e mirrorEntry
	if err := json.Unmarshal(val, &e); err != nil {
		return "", 0, false
	}
	return e.Response, e.TokenCost, true
}

// Store mirrors a response under the normalized key with the entry's TTL.
// A zero TTL stores without expiration. Errors are silently discarded.
func (m *Mirror) Store(ctx context.Context, key, response string, tokenCost int, ttl time.Duration) {
	val, err := json.Marshal(mirrorEntry{Response: response, TokenCost: tokenCost})
	if err != nil {
		return
	}
	_ = m.rdb.Set(ctx, m.prefix+key, val, ttl).Err()
}

// Ping checks the Redis connection.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (m *Mirror) Close() error {
	return m.rdb.Close()
}
