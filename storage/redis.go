package storage

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption configures a Redis medium.
type RedisOption func(*Redis)

// WithRedisQueryTimeout sets the per-operation timeout. Defaults to DefaultQueryTimeout.
func WithRedisQueryTimeout(d time.Duration) RedisOption {
	return func(r *Redis) { r.queryTimeout = d }
}

// WithScanCount sets the COUNT hint used when enumerating keys.
func WithScanCount(n int64) RedisOption {
	return func(r *Redis) { r.scanCount = n }
}

// WithOwnedClient makes Close close the client as well.
func WithOwnedClient() RedisOption {
	return func(r *Redis) { r.owned = true }
}

// Redis is a Medium backed by plain Redis string keys. Unlike the cache
// records it stores, Redis keys carry no TTL: expiry belongs to the cache
// layer so records keep their createdAt/expiresAt bookkeeping.
type Redis struct {
	client       redis.UniversalClient
	queryTimeout time.Duration
	scanCount    int64
	owned        bool
}

var _ Medium = (*Redis)(nil)

// NewRedis returns a Medium backed by client.
// The caller owns the client unless WithOwnedClient is passed.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:       client,
		queryTimeout: DefaultQueryTimeout,
		scanCount:    100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Read(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()
	data, err := r.client.Get(qctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *Redis) Write(ctx context.Context, key string, data []byte) error {
	qctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()
	return r.client.Set(qctx, key, data, 0).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) (bool, error) {
	qctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()
	n, err := r.client.Del(qctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	qctx, cancel := withTimeout(ctx, r.queryTimeout)
	defer cancel()
	var keys []string
	iter := r.client.Scan(qctx, 0, escapeGlob(prefix)+"*", r.scanCount).Iterator()
	for iter.Next(qctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the client if it is owned, otherwise it does nothing.
func (r *Redis) Close() error {
	if r.owned {
		return r.client.Close()
	}
	return nil
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
