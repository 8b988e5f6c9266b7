package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/folio/cachekit/resilience"
)

// Breaker wraps a Medium with a circuit breaker. Once the inner medium has
// failed MaxFailures times in a row, calls fail fast with ErrBreakerOpen until
// the cooldown passes. Misses (found == false) count as successes, and so do
// ErrQuotaExceeded and a cancelled caller context: the medium answered, the
// write was simply refused or abandoned.
type Breaker struct {
	inner   Medium
	breaker *resilience.CircuitBreaker
}

var _ Medium = (*Breaker)(nil)

// NewBreaker wraps inner using config. A nil config.IsFailure is replaced
// with IsMediumFailure.
func NewBreaker(inner Medium, config resilience.CircuitBreakerConfig) *Breaker {
	if config.IsFailure == nil {
		config.IsFailure = IsMediumFailure
	}
	return &Breaker{inner: inner, breaker: resilience.NewCircuitBreaker(config)}
}

// IsMediumFailure reports whether err means the medium itself is unhealthy.
func IsMediumFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrQuotaExceeded) && !errors.Is(err, context.Canceled)
}

func (b *Breaker) execute(fn func() error) error {
	err := b.breaker.Execute(fn)
	if errors.Is(err, resilience.ErrCircuitBreakerOpen) {
		return ErrBreakerOpen
	}
	return err
}

func (b *Breaker) Read(ctx context.Context, key string) (data []byte, found bool, err error) {
	err = b.execute(func() error {
		var ierr error
		data, found, ierr = b.inner.Read(ctx, key)
		return ierr
	})
	return data, found, err
}

func (b *Breaker) Write(ctx context.Context, key string, data []byte) error {
	return b.execute(func() error {
		return b.inner.Write(ctx, key, data)
	})
}

func (b *Breaker) Remove(ctx context.Context, key string) (removed bool, err error) {
	err = b.execute(func() error {
		var ierr error
		removed, ierr = b.inner.Remove(ctx, key)
		return ierr
	})
	return removed, err
}

func (b *Breaker) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	err = b.execute(func() error {
		var ierr error
		keys, ierr = b.inner.Keys(ctx, prefix)
		return ierr
	})
	return keys, err
}

// State reports the breaker state.
func (b *Breaker) State() resilience.CircuitBreakerState {
	return b.breaker.State()
}

func (b *Breaker) Close() error {
	return b.inner.Close()
}
