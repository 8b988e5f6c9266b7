package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteMedium(t *testing.T) {
	s, err := NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()
	runMediumContract(t, s)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "ns:persist", []byte("still here")))
	require.NoError(t, s.Close())

	s2, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	defer s2.Close()
	data, found, err := s2.Read(ctx, "ns:persist")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("still here"), data)
}

func TestSQLiteCloseIdempotent(t *testing.T) {
	s, err := NewSQLite(context.Background(), "")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSQLiteClosedReadFails(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, _, err = s.Read(ctx, "k")
	assert.Error(t, err)
}
