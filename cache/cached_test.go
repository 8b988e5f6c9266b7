package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/logger"
	"github.com/folio/cachekit/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listQuery struct {
	Page int
	Size int
}

func (q listQuery) key() string {
	return fmt.Sprintf("articles:%d:%d", q.Page, q.Size)
}

func newTestLayer(t *testing.T, opts ...Option) *Layer {
	t.Helper()
	layer := NewLayer(NewTransient(opts...), NewDurable(storage.NewMemory(), opts...), nil)
	t.Cleanup(func() { layer.Close() })
	return layer
}

func TestCachedHitMiss(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t, WithClock(newMockClock()))

	var calls int
	fetch := Cached(layer, func(ctx context.Context, q listQuery) ([]string, error) {
		calls++
		return []string{"first", "second"}, nil
	}, Options[listQuery]{Key: listQuery.key, TTL: time.Minute})

	v1, err := fetch(ctx, listQuery{Page: 1, Size: 10})
	require.NoError(t, err)
	v2, err := fetch(ctx, listQuery{Page: 1, Size: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, v1, v2)

	_, err = fetch(ctx, listQuery{Page: 2, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "distinct key misses")
}

func TestCachedSharedKeyIsCallerResponsibility(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t, WithClock(newMockClock()))

	fetch := Cached(layer, func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	}, Options[int]{Key: func(int) string { return "same" }, TTL: time.Minute})

	a, _ := fetch(ctx, 1)
	b, _ := fetch(ctx, 2)
	assert.Equal(t, 10, a)
	assert.Equal(t, 10, b)
}

func TestCachedFailureNotCached(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t, WithClock(newMockClock()))

	boom := errors.New("upstream 503")
	var calls int
	fetch := Cached(layer, func(ctx context.Context, id int64) (string, error) {
		calls++
		if calls == 1 {
			return "", boom
		}
		return "article", nil
	}, Options[int64]{Key: func(id int64) string { return fmt.Sprintf("article:%d", id) }})

	_, err := fetch(ctx, 5)
	assert.ErrorIs(t, err, boom)
	assert.False(t, layer.Transient.Has(ctx, "article:5"))

	val, err := fetch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "article", val)
	assert.Equal(t, 2, calls)

	val, err = fetch(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "article", val)
	assert.Equal(t, 2, calls, "second result was cached")
}

func TestCachedTTL(t *testing.T) {
	ctx := context.Background()
	mock := newMockClock()
	layer := newTestLayer(t, WithClock(mock), WithDefaultTTL(time.Minute))

	var explicit, defaulted int
	withTTL := Cached(layer, func(ctx context.Context, _ string) (int, error) {
		explicit++
		return explicit, nil
	}, Options[string]{Key: func(s string) string { return "ttl:" + s }, TTL: time.Second})
	withDefault := Cached(layer, func(ctx context.Context, _ string) (int, error) {
		defaulted++
		return defaulted, nil
	}, Options[string]{Key: func(s string) string { return "default:" + s }})

	withTTL(ctx, "x")
	withDefault(ctx, "x")
	mock.Add(2 * time.Second)
	withTTL(ctx, "x")
	withDefault(ctx, "x")
	assert.Equal(t, 2, explicit)
	assert.Equal(t, 1, defaulted)

	mock.Add(time.Minute)
	v, _ := withDefault(ctx, "x")
	assert.Equal(t, 2, v)
}

func TestCachedPersistent(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t, WithClock(newMockClock()))

	var calls int
	fetch := Cached(layer, func(ctx context.Context, id int64) (article, error) {
		calls++
		return article{ID: id, Title: "Persisted", Tags: []string{"a"}}, nil
	}, Options[int64]{
		Key:        func(id int64) string { return fmt.Sprintf("article:%d", id) },
		TTL:        time.Hour,
		Persistent: true,
	})

	first, err := fetch(ctx, 9)
	require.NoError(t, err)
	second, err := fetch(ctx, 9)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, layer.Durable.Has(ctx, "article:9"))
	assert.False(t, layer.Transient.Has(ctx, "article:9"))
}

func TestCachedDegradedFallsThrough(t *testing.T) {
	ctx := context.Background()
	medium := storage.NewMemory()
	layer := NewLayer(nil, NewDurable(medium), nil)
	require.NoError(t, medium.Close())

	var calls int
	fetch := Cached(layer, func(ctx context.Context, _ struct{}) (string, error) {
		calls++
		return "fresh", nil
	}, Options[struct{}]{Key: func(struct{}) string { return "k" }, Persistent: true})

	for i := 0; i < 3; i++ {
		val, err := fetch(ctx, struct{}{})
		require.NoError(t, err)
		assert.Equal(t, "fresh", val)
	}
	assert.Equal(t, 3, calls)
}

func TestCachedConcurrentMissesWithoutDedupe(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t)

	var entered sync.WaitGroup
	entered.Add(2)
	var calls atomic.Int32
	fetch := Cached(layer, func(ctx context.Context, _ int) (int, error) {
		calls.Add(1)
		entered.Done()
		entered.Wait() // both callers must be inside fn at once
		return 1, nil
	}, Options[int]{Key: func(int) string { return "k" }, TTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fetch(ctx, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedDedupe(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int32
	fetch := Cached(layer, func(ctx context.Context, _ int) (string, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return "shared", nil
	}, Options[int]{Key: func(int) string { return "k" }, TTL: time.Minute, Dedupe: true})

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			val, err := fetch(ctx, 0)
			assert.NoError(t, err)
			results[i] = val
		}(i)
	}
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestCachedDedupeError(t *testing.T) {
	ctx := context.Background()
	layer := newTestLayer(t)
	boom := errors.New("boom")

	fetch := Cached(layer, func(ctx context.Context, _ int) (string, error) {
		return "", boom
	}, Options[int]{Key: func(int) string { return "k" }, Dedupe: true})

	_, err := fetch(ctx, 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, layer.Transient.Has(ctx, "k"))
}

func TestCachedDedupeCallerCancellation(t *testing.T) {
	layer := newTestLayer(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls atomic.Int32
	var fnErr atomic.Value
	fetch := Cached(layer, func(ctx context.Context, _ int) (string, error) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		fnErr.Store(fmt.Sprint(ctx.Err()))
		return "shared", nil
	}, Options[int]{Key: func(int) string { return "k" }, TTL: time.Minute, Dedupe: true})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := fetch(leaderCtx, 0)
		leaderErr <- err
	}()
	<-started

	waiter := make(chan string, 1)
	go func() {
		val, err := fetch(context.Background(), 0)
		assert.NoError(t, err)
		waiter <- val
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared call")
	}

	close(release)
	select {
	case val := <-waiter:
		assert.Equal(t, "shared", val)
	case <-time.After(time.Second):
		t.Fatal("waiter did not receive the shared result")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "<nil>", fnErr.Load())
	assert.True(t, layer.Transient.Has(context.Background(), "k"))
}

func TestCachedMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	layer := NewLayer(NewTransient(WithMetrics(m)), nil, m)

	fail := true
	fetch := Cached(layer, func(ctx context.Context, _ int) (int, error) {
		if fail {
			fail = false
			return 0, errors.New("nope")
		}
		return 1, nil
	}, Options[int]{Key: func(int) string { return "k" }, TTL: time.Minute})

	fetch(ctx, 0)
	fetch(ctx, 0)
	fetch(ctx, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("transient", "hit")))
}

func TestCachedPanicsOnMisconfiguration(t *testing.T) {
	fn := func(ctx context.Context, _ int) (int, error) { return 0, nil }
	layer := NewLayer(NewTransient(), nil, nil)

	assert.Panics(t, func() { Cached(layer, fn, Options[int]{}) })
	assert.Panics(t, func() {
		Cached(layer, fn, Options[int]{Key: func(int) string { return "k" }, Persistent: true})
	})
	assert.Panics(t, func() {
		Cached(NewLayer(nil, nil, nil), fn, Options[int]{Key: func(int) string { return "k" }})
	})
}

func TestCachedTraceLogging(t *testing.T) {
	ctx := context.Background()
	log := logger.NewTestLogger()
	layer := NewLayer(NewTransient(), nil, nil).WithLogger(log)

	fetch := Cached(layer, func(ctx context.Context, _ int) (int, error) {
		return 1, nil
	}, Options[int]{Key: func(int) string { return "k" }})

	fetch(ctx, 0)
	fetch(ctx, 0)
	assert.Equal(t, 1, log.Count("TRACE", `miss "k"`))
	assert.Equal(t, 1, log.Count("TRACE", `hit "k"`))
}
