package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisMedium(t *testing.T) {
	_, client := newTestRedis(t)
	r := NewRedis(client, WithScanCount(2))
	defer r.Close()
	runMediumContract(t, r)
}

func TestRedisMediumNoTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	r := NewRedis(client)
	require.NoError(t, r.Write(context.Background(), "ns:k", []byte("v")))
	assert.Equal(t, int64(0), int64(mr.TTL("ns:k")))
}

func TestRedisMediumUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	r := NewRedis(client)
	mr.Close()

	_, _, err := r.Read(context.Background(), "ns:k")
	assert.Error(t, err)
	assert.Error(t, r.Write(context.Background(), "ns:k", []byte("v")))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]\\`, escapeGlob(`a*b?c[d]\`))
}

func TestRedisOwnedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	medium := NewRedis(client, WithOwnedClient())
	require.NoError(t, medium.Close())
	assert.Error(t, client.Ping(context.Background()).Err())
}
