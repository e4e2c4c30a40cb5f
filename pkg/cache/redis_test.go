package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := NewRedis(ctx, RedisOpts{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestRedis_GetSet(t *testing.T) {
	addr := os.Getenv("FEEDPIPE_TEST_REDIS")
	if addr == "" {
		t.Skip("FEEDPIPE_TEST_REDIS not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, RedisOpts{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer r.Close()

	key := "fp:test:" + time.Now().Format(time.RFC3339Nano)
	_, found, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Set(ctx, key, "digest"))
	val, found, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "digest", val)
}
