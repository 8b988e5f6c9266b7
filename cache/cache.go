package cache

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/folio/cachekit/logger"
	"github.com/vmihailenco/msgpack/v5"
)

// Store is the contract shared by the transient and durable backends.
// Every method is total: backend failures never surface as errors, they
// degrade to a miss (see Lookup for the explicit variant).
type Store interface {
	// Set stores val under key for ttl. A ttl <= 0 makes the entry stale on
	// the next read. Any previous entry for key is replaced.
	Set(ctx context.Context, key string, val any, ttl time.Duration)
	// SetDefault stores val under key with the store's default TTL.
	SetDefault(ctx context.Context, key string, val any)
	// Lookup reports whether key is live, absent, or could not be read.
	Lookup(ctx context.Context, key string) Result
	// Get returns the live value for key. Expired entries are evicted.
	Get(ctx context.Context, key string) (any, bool)
	// Has reports whether Get would find key, with the same eviction side effect.
	Has(ctx context.Context, key string) bool
	// Delete removes key and reports whether anything was removed.
	Delete(ctx context.Context, key string) bool
	// Clear removes every entry owned by the store.
	Clear(ctx context.Context)
}

// Status classifies a Lookup.
type Status int

const (
	StatusMiss Status = iota
	StatusHit
	// StatusDegraded means the backend could not answer; Result.Err says why.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "hit"
	case StatusDegraded:
		return "degraded"
	default:
		return "miss"
	}
}

// Result is the outcome of Store.Lookup.
type Result struct {
	Value  any
	Status Status
	// Err is set only for StatusDegraded and is marked with
	// ErrSerialization or ErrMediumUnavailable.
	Err error
}

// Found reports whether the lookup produced a value.
func (r Result) Found() bool {
	return r.Status == StatusHit
}

// Raw is a msgpack-encoded value as returned by serialized stores such as
// Durable. Use GetAs to decode it.
type Raw []byte

// GetAs reads key from s and converts the value to T. Transient values are
// type-asserted; Raw values are decoded with msgpack. A value that cannot be
// converted is reported as absent.
func GetAs[T any](ctx context.Context, s Store, key string) (T, bool) {
	val, ok := s.Get(ctx, key)
	if !ok {
		var zero T
		return zero, false
	}
	return decode[T](val)
}

func decode[T any](val any) (T, bool) {
	var zero T
	if raw, ok := val.(Raw); ok {
		var out T
		if err := msgpack.Unmarshal(raw, &out); err != nil {
			return zero, false
		}
		return out, true
	}
	if typed, ok := val.(T); ok {
		return typed, true
	}
	return zero, false
}

const (
	// DefaultTTL is used by SetDefault and by Cached when Options.TTL is zero.
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often a started Transient evicts expired entries.
	DefaultSweepInterval = time.Minute
	// DefaultNamespace prefixes every key a Durable writes to its medium.
	DefaultNamespace = "cachekit:"
)

// config holds the resolved configuration for a store.
type config struct {
	defaultTTL    time.Duration
	sweepInterval time.Duration
	namespace     string
	clock         clock.Clock
	log           logger.Logger
	metrics       *Metrics
}

// Option configures a Transient or Durable store.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{
		defaultTTL:    DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		namespace:     DefaultNamespace,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = clock.New()
	}
	if cfg.log == nil {
		cfg.log = logger.NewConsoleLogger(logger.LevelNone)
	}
	if cfg.sweepInterval <= 0 {
		cfg.sweepInterval = DefaultSweepInterval
	}
	return cfg
}

// WithDefaultTTL sets the TTL used by SetDefault. Defaults to DefaultTTL.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) { c.defaultTTL = d }
}

// WithSweepInterval sets how often a started Transient runs Cleanup.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) { c.sweepInterval = d }
}

// WithNamespace sets the key prefix a Durable uses in its medium. A ":" is
// appended when ns does not already end with one.
func WithNamespace(ns string) Option {
	return func(c *config) { c.namespace = ns }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}

// WithLogger sets the logger used for degraded operations and sweeps.
func WithLogger(log logger.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithMetrics records lookups and evictions into m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}
