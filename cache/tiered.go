package cache

import (
	"context"
	"time"
)

// Tiered chains stores in order, typically a Transient in front of a
// Durable. Lookups return the first hit; writes and deletes go to every tier.
type Tiered struct {
	tiers []Store
}

var _ Store = (*Tiered)(nil)

// NewTiered returns a Store over tiers. Panics if tiers is empty.
func NewTiered(tiers ...Store) *Tiered {
	if len(tiers) == 0 {
		panic("cache: NewTiered requires at least one store")
	}
	return &Tiered{tiers: tiers}
}

// Lookup returns the first hit. If no tier hits, the first degraded result
// is returned so the failure stays visible; otherwise a miss.
func (t *Tiered) Lookup(ctx context.Context, key string) Result {
	var firstDegraded *Result
	for _, tier := range t.tiers {
		res := tier.Lookup(ctx, key)
		switch res.Status {
		case StatusHit:
			return res
		case StatusDegraded:
			if firstDegraded == nil {
				firstDegraded = &res
			}
		}
	}
	if firstDegraded != nil {
		return *firstDegraded
	}
	return Result{Status: StatusMiss}
}

func (t *Tiered) Get(ctx context.Context, key string) (any, bool) {
	res := t.Lookup(ctx, key)
	return res.Value, res.Found()
}

func (t *Tiered) Has(ctx context.Context, key string) bool {
	return t.Lookup(ctx, key).Found()
}

func (t *Tiered) Set(ctx context.Context, key string, val any, ttl time.Duration) {
	for _, tier := range t.tiers {
		tier.Set(ctx, key, val, ttl)
	}
}

func (t *Tiered) SetDefault(ctx context.Context, key string, val any) {
	for _, tier := range t.tiers {
		tier.SetDefault(ctx, key, val)
	}
}

func (t *Tiered) Delete(ctx context.Context, key string) bool {
	var removed bool
	for _, tier := range t.tiers {
		if tier.Delete(ctx, key) {
			removed = true
		}
	}
	return removed
}

func (t *Tiered) Clear(ctx context.Context) {
	for _, tier := range t.tiers {
		tier.Clear(ctx)
	}
}
