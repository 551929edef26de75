// Package tap keeps a kiosk from recording the same worker twice within a
// short window, e.g. when the camera recognises a face on two frames.
package tap

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard is backed by Redis keys that expire after the window.
type Guard struct {
	client *redis.Client
	window time.Duration
	log    *log.Logger
}

func New(client *redis.Client, window time.Duration, logger *log.Logger) *Guard {
	return &Guard{client: client, window: window, log: logger}
}

func key(workerID int) string {
	return "tap:" + strconv.Itoa(workerID)
}

// Allow reports whether a submission for workerID may go ahead and, if so,
// starts a new window. Attendance must not depend on the cache: when Redis
// fails the submission is allowed.
func (g *Guard) Allow(ctx context.Context, workerID int) bool {
	if g == nil || g.client == nil || g.window <= 0 {
		return true
	}

	ok, err := g.client.SetNX(ctx, key(workerID), time.Now().Unix(), g.window).Result()
	if err != nil {
		if g.log != nil {
			g.log.Printf("tap guard: worker %d: %v", workerID, err)
		}
		return true
	}

	return ok
}

// Release drops the window, used when the submission failed after Allow.
func (g *Guard) Release(ctx context.Context, workerID int) {
	if g == nil || g.client == nil {
		return
	}

	if err := g.client.Del(ctx, key(workerID)).Err(); err != nil && g.log != nil {
		g.log.Printf("tap guard: release worker %d: %v", workerID, err)
	}
}

// Retry returns how long until workerID may tap again.
func (g *Guard) Retry(ctx context.Context, workerID int) time.Duration {
	if g == nil || g.client == nil {
		return 0
	}

	ttl, err := g.client.TTL(ctx, key(workerID)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}
