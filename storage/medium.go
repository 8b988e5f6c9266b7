// Package storage provides the durable key/value media that back
// cache.Durable. A Medium is a flat byte store with prefix enumeration; it
// knows nothing about expiry or record layout.
package storage

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrQuotaExceeded is returned by a Memory medium when a write would
	// exceed its configured byte budget.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrClosed is returned by operations on a closed medium.
	ErrClosed = errors.New("storage: medium closed")
	// ErrBreakerOpen is returned by a Breaker while it is rejecting calls.
	ErrBreakerOpen = errors.New("storage: breaker open")
)

// DefaultQueryTimeout is the per-operation timeout applied by media that
// perform I/O (SQLite, Redis).
const DefaultQueryTimeout = 5 * time.Second

// Medium is a durable key/value primitive. Implementations must be safe for
// concurrent use.
type Medium interface {
	// Read returns the stored bytes for key. found is false when the key does
	// not exist; err is reserved for failures of the medium itself.
	Read(ctx context.Context, key string) (data []byte, found bool, err error)
	// Write stores data under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error
	// Remove deletes key and reports whether it existed.
	Remove(ctx context.Context, key string) (bool, error)
	// Keys lists every key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases resources held by the medium.
	Close() error
}

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
