package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Dedup collapses repeat notifications for the same vendor and message
// within a window. Notifications are fire-and-forget, so losing the redis
// key only means an extra message, never a missed state change.
type Dedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedup constructs a Dedup store.
func NewDedup(client *redis.Client, ttl time.Duration) *Dedup {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Dedup{client: client, ttl: ttl}
}

// Key builds a stable dedup key for a vendor/message pair.
func Key(vendorID int64, message string) string {
	digest := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d:%s", vendorID, message)))
	return fmt.Sprintf("notify:vendor:%d:%s", vendorID, digest)
}

// ShouldSend claims the key and reports whether this notification is the
// first within the window.
func (d *Dedup) ShouldSend(ctx context.Context, key string) (bool, error) {
	if d == nil || d.client == nil {
		return true, nil
	}
	return d.client.SetNX(ctx, key, 1, d.ttl).Result()
}
