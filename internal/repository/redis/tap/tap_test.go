package tap

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNilGuardAllows(t *testing.T) {
	var g *Guard
	assert.True(t, g.Allow(context.Background(), 1))
	assert.Zero(t, g.Retry(context.Background(), 1))
	g.Release(context.Background(), 1)
}

func TestUnreachableRedisAllows(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	g := New(client, time.Minute, nil)

	assert.True(t, g.Allow(context.Background(), 5))
	assert.True(t, g.Allow(context.Background(), 5))
	assert.Zero(t, g.Retry(context.Background(), 5))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tap:42", key(42))
}
