package cache

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/storage"
	"github.com/vmihailenco/msgpack/v5"
)

// record is the self-describing form of an Entry in a durable medium.
type record struct {
	Value     msgpack.RawMessage `msgpack:"v"`
	CreatedAt int64              `msgpack:"c"`
	ExpiresAt int64              `msgpack:"e"`
}

func (r record) entry() Entry {
	return Entry{
		Value:     Raw(r.Value),
		CreatedAt: time.Unix(0, r.CreatedAt),
		ExpiresAt: time.Unix(0, r.ExpiresAt),
	}
}

// Durable is a Store that serializes each entry into a storage.Medium under
// a namespace prefix. Values come back as Raw; use GetAs to decode them.
// Medium and encoding failures are logged and degrade to a miss. There is no
// background sweep: expired records are removed when next read.
type Durable struct {
	cfg    config
	medium storage.Medium
}

var _ Store = (*Durable)(nil)

// NewDurable returns a Durable writing to medium. The Durable owns medium
// and closes it in Close. It panics on an empty namespace.
func NewDurable(medium storage.Medium, opts ...Option) *Durable {
	cfg := applyOptions(opts)
	if cfg.namespace == "" {
		panic("cache: NewDurable requires a non-empty namespace")
	}
	if !strings.HasSuffix(cfg.namespace, namespaceSeparator) {
		cfg.namespace += namespaceSeparator
	}
	cfg.log = cfg.log.WithPrefix("[durable]")
	return &Durable{cfg: cfg, medium: medium}
}

// namespaceSeparator terminates every namespace so that "app" never matches
// keys written under "app2".
const namespaceSeparator = ":"

// maxExpiry is the latest instant a record can carry as Unix nanoseconds.
var maxExpiry = time.Unix(0, math.MaxInt64)

func (c *Durable) mediumKey(key string) string {
	return c.cfg.namespace + key
}

func (c *Durable) Set(ctx context.Context, key string, val any, ttl time.Duration) {
	if err := c.put(ctx, key, val, ttl); err != nil {
		c.cfg.log.Warn("set %q not persisted: %s", key, err)
	}
}

func (c *Durable) put(ctx context.Context, key string, val any, ttl time.Duration) error {
	value, err := msgpack.Marshal(val)
	if err != nil {
		return degraded(ErrSerialization, err, "encode value")
	}
	e := newEntry(nil, c.cfg.clock.Now(), ttl)
	if e.ExpiresAt.After(maxExpiry) {
		e.ExpiresAt = maxExpiry
	}
	buf, err := msgpack.Marshal(record{
		Value:     value,
		CreatedAt: e.CreatedAt.UnixNano(),
		ExpiresAt: e.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return degraded(ErrSerialization, err, "encode record")
	}
	if err := c.medium.Write(ctx, c.mediumKey(key), buf); err != nil {
		return degraded(ErrMediumUnavailable, err, "write")
	}
	return nil
}

func (c *Durable) SetDefault(ctx context.Context, key string, val any) {
	c.Set(ctx, key, val, c.cfg.defaultTTL)
}

func (c *Durable) read(ctx context.Context, key string) (Entry, Status, error) {
	mkey := c.mediumKey(key)
	data, found, err := c.medium.Read(ctx, mkey)
	if err != nil {
		return Entry{}, StatusDegraded, degraded(ErrMediumUnavailable, err, "read %q", key)
	}
	if !found {
		return Entry{}, StatusMiss, nil
	}
	var rec record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return Entry{}, StatusDegraded, degraded(ErrSerialization, err, "decode %q", key)
	}
	if rec.Value == nil || rec.ExpiresAt < rec.CreatedAt {
		return Entry{}, StatusDegraded, degraded(ErrSerialization, errors.New("malformed record"), "decode %q", key)
	}
	return rec.entry(), StatusHit, nil
}

func (c *Durable) Lookup(ctx context.Context, key string) Result {
	e, status, err := c.read(ctx, key)
	switch {
	case status == StatusDegraded:
		c.cfg.log.Warn("treating %q as absent: %s", key, err)
		if errors.Is(err, ErrSerialization) {
			c.remove(ctx, key)
		}
		c.cfg.metrics.lookup("durable", StatusDegraded)
		return Result{Status: StatusDegraded, Err: err}
	case status == StatusHit && e.Expired(c.cfg.clock.Now()):
		c.remove(ctx, key)
		status = StatusMiss
	}
	c.cfg.metrics.lookup("durable", status)
	if status == StatusMiss {
		return Result{Status: StatusMiss}
	}
	return Result{Value: e.Value, Status: StatusHit}
}

func (c *Durable) remove(ctx context.Context, key string) {
	if _, err := c.medium.Remove(ctx, c.mediumKey(key)); err != nil {
		c.cfg.log.Warn("evict %q failed: %s", key, err)
	}
}

func (c *Durable) Get(ctx context.Context, key string) (any, bool) {
	res := c.Lookup(ctx, key)
	return res.Value, res.Found()
}

func (c *Durable) Has(ctx context.Context, key string) bool {
	return c.Lookup(ctx, key).Found()
}

func (c *Durable) Delete(ctx context.Context, key string) bool {
	removed, err := c.medium.Remove(ctx, c.mediumKey(key))
	if err != nil {
		c.cfg.log.Warn("delete %q failed: %s", key, err)
		return false
	}
	return removed
}

func (c *Durable) Clear(ctx context.Context) {
	keys, err := c.medium.Keys(ctx, c.cfg.namespace)
	if err != nil {
		c.cfg.log.Warn("clear: list keys failed: %s", err)
		return
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, c.cfg.namespace) {
			continue
		}
		if _, err := c.medium.Remove(ctx, k); err != nil {
			c.cfg.log.Warn("clear: remove %q failed: %s", k, err)
		}
	}
}

// Keys returns the logical keys stored in this namespace, sorted. Expired
// records that have not been read yet are included.
func (c *Durable) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.medium.Keys(ctx, c.cfg.namespace)
	if err != nil {
		return nil, degraded(ErrMediumUnavailable, err, "list keys")
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, c.cfg.namespace) {
			out = append(out, strings.TrimPrefix(k, c.cfg.namespace))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Stats reads every record in the namespace without evicting. Records that
// cannot be decoded are skipped. Hits are not tracked by the durable store.
func (c *Durable) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return Stats{}, err
	}
	now := c.cfg.clock.Now()
	stats := Stats{Items: make([]StatItem, 0, len(keys))}
	for _, key := range keys {
		e, status, err := c.read(ctx, key)
		if status != StatusHit {
			if err != nil {
				c.cfg.log.Debug("stats: skipping %q: %s", key, err)
			}
			continue
		}
		stats.Items = append(stats.Items, StatItem{
			Key:             key,
			ApproximateSize: len(e.Value.(Raw)),
			RemainingTTL:    e.Remaining(now),
		})
	}
	stats.TotalItems = len(stats.Items)
	return stats, nil
}

// Close closes the underlying medium.
func (c *Durable) Close() error {
	return c.medium.Close()
}
