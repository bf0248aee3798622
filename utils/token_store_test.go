package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTokenStore_TakeConsumes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTokenStore()
	require.NoError(t, s.Put(ctx, "verify:abc", "user-1", time.Minute))

	v, ok, err := s.Take(ctx, "verify:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-1", v)

	_, ok, err = s.Take(ctx, "verify:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryTokenStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryTokenStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "revoked:t", "1", time.Hour))
	ok, _ := s.Exists(ctx, "revoked:t")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = s.Exists(ctx, "revoked:t")
	assert.False(t, ok)
}

func TestMemoryTokenStore_NonPositiveTTLIgnored(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryTokenStore()
	require.NoError(t, s.Put(ctx, "k", "v", 0))
	ok, _ := s.Exists(ctx, "k")
	assert.False(t, ok)
}

func TestNewTokenStore_FallsBackToMemory(t *testing.T) {
	_, ok := NewTokenStore(nil).(*MemoryTokenStore)
	assert.True(t, ok)
}
