package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LockRepository implements short-lived mutual exclusion on Redis.
type LockRepository struct {
	client redis.UniversalClient
	prefix string
}

func NewLockRepository(client redis.UniversalClient) *LockRepository {
	return &LockRepository{client: client, prefix: "shuttle:lock:"}
}

// Acquire sets key to token if absent. It reports false when another holder owns the key.
func (r *LockRepository) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release frees key if token still owns it.
func (r *LockRepository) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	return nil
}
