package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type item struct {
	Entry
	hits int
}

// Transient is an in-process Store. One mutex guards the whole map.
// Expired entries are evicted lazily on read and, once Start has been
// called, by a periodic sweep.
type Transient struct {
	cfg   config
	mutex sync.Mutex
	items map[string]*item

	runMutex sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

var _ Store = (*Transient)(nil)

// NewTransient returns an empty transient store. The sweep is not running
// until Start is called.
func NewTransient(opts ...Option) *Transient {
	cfg := applyOptions(opts)
	cfg.log = cfg.log.WithPrefix("[transient]")
	return &Transient{
		cfg:   cfg,
		items: make(map[string]*item),
	}
}

func (c *Transient) Set(_ context.Context, key string, val any, ttl time.Duration) {
	e := newEntry(val, c.cfg.clock.Now(), ttl)
	c.mutex.Lock()
	c.items[key] = &item{Entry: e}
	c.mutex.Unlock()
}

func (c *Transient) SetDefault(ctx context.Context, key string, val any) {
	c.Set(ctx, key, val, c.cfg.defaultTTL)
}

func (c *Transient) Lookup(_ context.Context, key string) Result {
	now := c.cfg.clock.Now()
	c.mutex.Lock()
	it, ok := c.items[key]
	if ok && it.Expired(now) {
		delete(c.items, key)
		ok = false
	}
	var val any
	if ok {
		it.hits++
		val = it.Value
	}
	c.mutex.Unlock()

	if !ok {
		c.cfg.metrics.lookup("transient", StatusMiss)
		return Result{Status: StatusMiss}
	}
	c.cfg.metrics.lookup("transient", StatusHit)
	return Result{Value: val, Status: StatusHit}
}

func (c *Transient) Get(ctx context.Context, key string) (any, bool) {
	res := c.Lookup(ctx, key)
	return res.Value, res.Found()
}

func (c *Transient) Has(ctx context.Context, key string) bool {
	return c.Lookup(ctx, key).Found()
}

func (c *Transient) Delete(_ context.Context, key string) bool {
	c.mutex.Lock()
	_, ok := c.items[key]
	if ok {
		delete(c.items, key)
	}
	c.mutex.Unlock()
	return ok
}

func (c *Transient) Clear(_ context.Context) {
	c.mutex.Lock()
	c.items = make(map[string]*item)
	c.mutex.Unlock()
}

// Cleanup removes every expired entry and returns how many were removed.
func (c *Transient) Cleanup() int {
	now := c.cfg.clock.Now()
	var removed int
	c.mutex.Lock()
	for key, it := range c.items {
		if it.Expired(now) {
			delete(c.items, key)
			removed++
		}
	}
	c.mutex.Unlock()
	c.cfg.metrics.evicted(removed)
	return removed
}

// StatItem describes one entry in a Stats snapshot.
type StatItem struct {
	Key string
	// ApproximateSize is the msgpack-encoded length of the value in bytes,
	// or 0 when the value cannot be encoded.
	ApproximateSize int
	RemainingTTL    time.Duration
	Hits            int
}

// Stats is a diagnostic snapshot of a store.
type Stats struct {
	TotalItems int
	Items      []StatItem
}

// Stats returns a snapshot of every entry, expired or not, sorted by key.
// It never evicts.
func (c *Transient) Stats() Stats {
	now := c.cfg.clock.Now()
	type snap struct {
		key   string
		value any
		left  time.Duration
		hits  int
	}
	c.mutex.Lock()
	snaps := make([]snap, 0, len(c.items))
	for key, it := range c.items {
		snaps = append(snaps, snap{key, it.Value, it.Remaining(now), it.hits})
	}
	c.mutex.Unlock()

	stats := Stats{TotalItems: len(snaps), Items: make([]StatItem, 0, len(snaps))}
	for _, s := range snaps {
		var size int
		if buf, err := msgpack.Marshal(s.value); err == nil {
			size = len(buf)
		}
		stats.Items = append(stats.Items, StatItem{
			Key:             s.key,
			ApproximateSize: size,
			RemainingTTL:    s.left,
			Hits:            s.hits,
		})
	}
	sort.Slice(stats.Items, func(i, j int) bool { return stats.Items[i].Key < stats.Items[j].Key })
	return stats
}

// Start launches the background sweep. It is a no-op if the sweep is
// already running. The sweep stops when ctx is cancelled or Stop is called;
// either way a later Start launches it again.
func (c *Transient) Start(ctx context.Context) {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	if c.runningLocked() {
		return
	}
	c.resetLocked()
	ctx, cancel := context.WithCancel(ctx)
	// created before the goroutine so a clock advanced right after Start sees it
	ticker := c.cfg.clock.Ticker(c.cfg.sweepInterval)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	go c.run(ctx, ticker.C, ticker.Stop, done)
}

// Stop halts the background sweep and waits for it to exit. It is safe to
// call more than once or without Start.
func (c *Transient) Stop() {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.resetLocked()
}

// running reports whether the background sweep goroutine is alive.
func (c *Transient) running() bool {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	return c.runningLocked()
}

func (c *Transient) runningLocked() bool {
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// resetLocked drops the state of a finished run.
func (c *Transient) resetLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.done = nil
}

func (c *Transient) run(ctx context.Context, tick <-chan time.Time, stop func(), done chan struct{}) {
	defer close(done)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if n := c.Cleanup(); n > 0 {
				c.cfg.log.Debug("swept %d expired entries", n)
			}
		}
	}
}
