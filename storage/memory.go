package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryOption configures a Memory medium.
type MemoryOption func(*Memory)

// WithQuota caps the total number of bytes (keys plus values) the medium
// will hold. Zero means unlimited.
func WithQuota(bytes int) MemoryOption {
	return func(m *Memory) { m.quota = bytes }
}

// Memory is an in-process Medium for tests and for deployments without a
// disk or Redis. A quota of zero means unlimited.
type Memory struct {
	mutex  sync.RWMutex
	data   map[string][]byte
	used   int
	quota  int
	closed bool
}

var _ Medium = (*Memory)(nil)

// NewMemory returns an empty in-process medium.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: make(map[string][]byte)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Read(_ context.Context, key string) ([]byte, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	val, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (m *Memory) Write(_ context.Context, key string, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return ErrClosed
	}
	used := m.used + len(data)
	if old, ok := m.data[key]; ok {
		used -= len(old)
	} else {
		used += len(key)
	}
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	val := make([]byte, len(data))
	copy(val, data)
	m.data[key] = val
	m.used = used
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	old, ok := m.data[key]
	if ok {
		m.used -= len(key) + len(old)
		delete(m.data, key)
	}
	return ok, nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Used returns the number of bytes currently counted against the quota.
func (m *Memory) Used() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.used
}

func (m *Memory) Close() error {
	m.mutex.Lock()
	m.closed = true
	m.data = nil
	m.used = 0
	m.mutex.Unlock()
	return nil
}
