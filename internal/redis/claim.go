package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Claimer hands out one-time claims on a key across every process sharing
// the Redis instance. The notifier uses it so only one API replica persists
// the notification for an appointment insert.
type Claimer struct {
	client *redis.Client
	ttl    time.Duration
	owner  string
}

func NewClaimer(client *redis.Client, ttl time.Duration) *Claimer {
	return &Claimer{
		client: client,
		ttl:    ttl,
		owner:  uuid.NewString(),
	}
}

// Claim reports whether this caller is the first to claim key within ttl.
func (c *Claimer) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := c.client.SetNX(ctx, "claim:"+key, c.owner, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// Release drops a claim held by this owner so another process may retry,
// e.g. after persisting the notification failed.
func (c *Claimer) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, c.client, []string{"claim:" + key}, c.owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release claim %s: %w", key, err)
	}
	return nil
}
