package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "booking_seq:"

// DailyCounter is a Redis-backed per-day sequence. INCR is atomic, so
// concurrent callers always see distinct values.
type DailyCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDailyCounter keeps each day's key for ttl after its last increment.
// The ttl must outlive the day, otherwise a late booking restarts at 1.
func NewDailyCounter(client *redis.Client, ttl time.Duration) *DailyCounter {
	if ttl < 48*time.Hour {
		ttl = 48 * time.Hour
	}
	return &DailyCounter{client: client, ttl: ttl}
}

func (c *DailyCounter) Increment(ctx context.Context, day string) (int64, error) {
	if day == "" {
		return 0, errors.New("daily counter: empty day")
	}
	key := counterKeyPrefix + day

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}

	return incr.Val(), nil
}
