package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDedupTTL = 24 * time.Hour

// DedupChecker remembers applied webhook deliveries.
// Key format: webhook:dedup:<event>:<uid>:<unix_millis>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker wraps client. A non-positive ttl uses defaultDedupTTL.
func NewDedupChecker(client *redis.Client, ttl time.Duration) *DedupChecker {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &DedupChecker{client: client, ttl: ttl}
}

// IsDuplicate reports whether this exact delivery was already applied.
func (d *DedupChecker) IsDuplicate(ctx context.Context, kind, uid string, ts time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, dedupKey(kind, uid, ts)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the delivery as applied until the TTL expires.
func (d *DedupChecker) Mark(ctx context.Context, kind, uid string, ts time.Time) error {
	if err := d.client.Set(ctx, dedupKey(kind, uid, ts), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	return nil
}

func dedupKey(kind, uid string, ts time.Time) string {
	return fmt.Sprintf("webhook:dedup:%s:%s:%d", kind, uid, ts.UnixMilli())
}
