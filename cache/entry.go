package cache

import "time"

// Entry is a cached value with its lifetime. Value is never inspected.
type Entry struct {
	Value     any
	CreatedAt time.Time
	ExpiresAt time.Time
}

func newEntry(val any, now time.Time, ttl time.Duration) Entry {
	if ttl < 0 {
		ttl = 0
	}
	return Entry{Value: val, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

// Expired reports whether the entry must be treated as absent at now.
// A zero TTL entry is expired as soon as it is written.
func (e Entry) Expired(now time.Time) bool {
	if !e.ExpiresAt.After(e.CreatedAt) {
		return true
	}
	return now.After(e.ExpiresAt)
}

// Remaining returns max(0, ExpiresAt-now).
func (e Entry) Remaining(now time.Time) time.Duration {
	if d := e.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
