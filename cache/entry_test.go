package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntryExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	e := newEntry("v", now, time.Second)
	assert.False(t, e.Expired(now))
	assert.False(t, e.Expired(now.Add(time.Second)), "live at exactly ExpiresAt")
	assert.True(t, e.Expired(now.Add(time.Second+time.Nanosecond)))
	assert.Equal(t, 400*time.Millisecond, e.Remaining(now.Add(600*time.Millisecond)))
	assert.Equal(t, time.Duration(0), e.Remaining(now.Add(time.Hour)))
}

func TestEntryZeroAndNegativeTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	zero := newEntry("v", now, 0)
	assert.True(t, zero.Expired(now))
	assert.Equal(t, zero.CreatedAt, zero.ExpiresAt)

	negative := newEntry("v", now, -time.Minute)
	assert.True(t, negative.Expired(now))
	assert.False(t, negative.ExpiresAt.Before(negative.CreatedAt))
}
