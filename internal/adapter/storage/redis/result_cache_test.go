package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewResultCache(client)
	ctx := context.Background()

	key := "txn-2024-0001"
	value := []byte(`{"status":"ok","transaction_id":"abc","new_balance":5000}`)

	// Get before set => nil
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Set
	err = cache.Set(ctx, key, value, 24*time.Hour)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestResultCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewResultCache(client)
	ctx := context.Background()

	key := "txn-2024-0002"
	value := []byte(`{"data":"test"}`)

	err := cache.Set(ctx, key, value, 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestResultCache_KeyPrefix(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewResultCache(client)
	ctx := context.Background()

	err := cache.Set(ctx, "txn-2024-0003", []byte("v"), time.Hour)
	require.NoError(t, err)

	// The raw key carries the namespace prefix
	assert.True(t, s.Exists("idempotency:txn-2024-0003"))
	assert.False(t, s.Exists("txn-2024-0003"))
}
