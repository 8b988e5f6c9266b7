package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieredLookupOrder(t *testing.T) {
	ctx := context.Background()
	mock := newMockClock()
	l1 := NewTransient(WithClock(mock))
	l2 := NewDurable(storage.NewMemory(), WithClock(mock))
	tiered := NewTiered(l1, l2)

	l2.Set(ctx, "only-l2", "from-l2", time.Minute)
	got, found := GetAs[string](ctx, tiered, "only-l2")
	assert.True(t, found)
	assert.Equal(t, "from-l2", got)

	tiered.Set(ctx, "both", "value", time.Minute)
	val, found := l1.Get(ctx, "both")
	assert.True(t, found)
	assert.Equal(t, "value", val)
	assert.True(t, l2.Has(ctx, "both"))

	l1.Set(ctx, "both", "l1-wins", time.Minute)
	got, _ = GetAs[string](ctx, tiered, "both")
	assert.Equal(t, "l1-wins", got)
}

func TestTieredDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	l1 := NewTransient()
	l2 := NewDurable(storage.NewMemory())
	tiered := NewTiered(l1, l2)

	assert.False(t, tiered.Delete(ctx, "missing"))
	l2.Set(ctx, "k", 1, time.Minute)
	assert.True(t, tiered.Delete(ctx, "k"))
	assert.False(t, tiered.Has(ctx, "k"))

	tiered.SetDefault(ctx, "a", 1)
	tiered.Clear(ctx)
	assert.False(t, l1.Has(ctx, "a"))
	assert.False(t, l2.Has(ctx, "a"))
}

func TestTieredDegradedVisible(t *testing.T) {
	ctx := context.Background()
	medium := storage.NewMemory()
	l1 := NewTransient()
	l2 := NewDurable(medium)
	tiered := NewTiered(l1, l2)
	require.NoError(t, medium.Close())

	res := tiered.Lookup(ctx, "k")
	assert.Equal(t, StatusDegraded, res.Status)
	assert.True(t, errors.Is(res.Err, ErrMediumUnavailable))

	l1.Set(ctx, "k", "v", time.Minute)
	res = tiered.Lookup(ctx, "k")
	assert.Equal(t, StatusHit, res.Status)
}

func TestTieredRequiresStores(t *testing.T) {
	assert.Panics(t, func() { NewTiered() })
}

func TestGetAsMismatch(t *testing.T) {
	ctx := context.Background()
	c := NewTransient()
	c.Set(ctx, "k", "string", time.Minute)
	_, found := GetAs[int](ctx, c, "k")
	assert.False(t, found)

	d := NewDurable(storage.NewMemory())
	d.Set(ctx, "k", "string", time.Minute)
	_, found = GetAs[int](ctx, d, "k")
	assert.False(t, found)
	s, found := GetAs[string](ctx, d, "k")
	assert.True(t, found)
	assert.Equal(t, "string", s)
}
