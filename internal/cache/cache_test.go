package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()

	data, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.NoError(t, c.Ping(ctx))
	assert.False(t, c.GetJSON(ctx, "k", &struct{}{}))
}

// An unreachable Redis must behave like a cache miss, never an error.
func TestUnavailableRedisFailsSafe(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewFromRedis(rdb, nil)
	defer c.Close()
	ctx := context.Background()

	require.Error(t, c.Ping(ctx))

	data, err := c.Get(ctx, "event:1")
	assert.NoError(t, err)
	assert.Nil(t, data)
	assert.NoError(t, c.Set(ctx, "event:1", []byte("{}"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "event:1", "event:2"))

	c.SetJSON(ctx, "event:1", map[string]int{"a": 1}, time.Minute)
	var out map[string]int
	assert.False(t, c.GetJSON(ctx, "event:1", &out))
}
