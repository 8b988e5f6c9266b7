package cache

import (
	"context"
	"time"

	"github.com/folio/cachekit/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/folio/cachekit/cache"

// Layer is the pair of stores handed to Cached. Build one with NewLayer or
// config.NewLayer and share it; there is no package-level instance.
type Layer struct {
	Transient *Transient
	Durable   *Durable
	metrics   *Metrics
	log       logger.Logger
}

// NewLayer pairs a transient and a durable store. Either may be nil if the
// application never uses it. m may be nil.
func NewLayer(transient *Transient, durable *Durable, m *Metrics) *Layer {
	return &Layer{
		Transient: transient,
		Durable:   durable,
		metrics:   m,
		log:       logger.NewConsoleLogger(logger.LevelNone),
	}
}

// WithLogger sets the logger Cached uses to trace hits and misses.
func (l *Layer) WithLogger(log logger.Logger) *Layer {
	l.log = log.WithPrefix("[cached]")
	return l
}

func (l *Layer) store(persistent bool) Store {
	if persistent {
		if l.Durable == nil {
			panic("cache: persistent option used without a durable store")
		}
		return l.Durable
	}
	if l.Transient == nil {
		panic("cache: transient store is not configured")
	}
	return l.Transient
}

// Close stops the transient sweep and closes the durable medium.
func (l *Layer) Close() error {
	if l.Transient != nil {
		l.Transient.Stop()
	}
	if l.Durable != nil {
		return l.Durable.Close()
	}
	return nil
}

// Options configures Cached.
type Options[A any] struct {
	// Key derives the cache key from the call argument. Required. Every part
	// of A that changes the result must be encoded in the key.
	Key func(A) string
	// TTL for stored results. Zero uses the store's default TTL.
	TTL time.Duration
	// Persistent selects the durable store instead of the transient one.
	Persistent bool
	// Dedupe makes concurrent misses for the same key share one call to fn.
	// Without it each concurrent miss calls fn. The shared call ignores the
	// cancellation of whichever caller started it; each caller stops waiting
	// when its own ctx is done.
	Dedupe bool
}

// Cached wraps fn so results are served from the layer while they are live.
// Only successful results are stored; an error from fn is returned unchanged
// and the next call tries fn again. Degraded lookups fall through to fn.
func Cached[A, T any](layer *Layer, fn func(context.Context, A) (T, error), opts Options[A]) func(context.Context, A) (T, error) {
	if opts.Key == nil {
		panic("cache: Cached requires Options.Key")
	}
	store := layer.store(opts.Persistent)
	tracer := otel.Tracer(tracerName)
	var group *singleflight.Group
	if opts.Dedupe {
		group = &singleflight.Group{}
	}

	fetch := func(ctx context.Context, key string, arg A) (T, error) {
		ctx, span := tracer.Start(ctx, "cachekit.fetch", trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Bool("cache.persistent", opts.Persistent),
		))
		defer span.End()
		val, err := fn(ctx, arg)
		layer.metrics.invoked(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return val, err
		}
		if opts.TTL == 0 {
			store.SetDefault(ctx, key, val)
		} else {
			store.Set(ctx, key, val, opts.TTL)
		}
		return val, nil
	}

	return func(ctx context.Context, arg A) (T, error) {
		key := opts.Key(arg)
		if res := store.Lookup(ctx, key); res.Found() {
			if val, ok := decode[T](res.Value); ok {
				layer.log.Trace("hit %q", key)
				return val, nil
			}
			layer.log.Debug("cached value for %q has an unexpected type, refetching", key)
		} else {
			layer.log.Trace("%s %q", res.Status, key)
		}
		if group == nil {
			return fetch(ctx, key, arg)
		}
		shared := context.WithoutCancel(ctx)
		ch := group.DoChan(key, func() (any, error) {
			return fetch(shared, key, arg)
		})
		var zero T
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case r := <-ch:
			if r.Err != nil {
				return zero, r.Err
			}
			val, _ := r.Val.(T)
			return val, nil
		}
	}
}
