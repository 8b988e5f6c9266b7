package cache

import "github.com/cockroachdb/errors"

var (
	// ErrSerialization marks degraded results caused by a record that could
	// not be encoded or decoded.
	ErrSerialization = errors.New("cache: serialization failed")
	// ErrMediumUnavailable marks degraded results caused by the durable
	// medium itself failing.
	ErrMediumUnavailable = errors.New("cache: medium unavailable")
)

func degraded(kind error, cause error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(cause, format, args...), kind)
}
