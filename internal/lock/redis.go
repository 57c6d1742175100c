package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions configures a RedisLocker
type RedisOptions struct {
	// Prefix is prepended to every key
	Prefix string

	// TTL bounds how long a crashed holder keeps the lock
	TTL time.Duration

	// RetryInterval is the pause between acquire attempts
	RetryInterval time.Duration
}

// DefaultRedisOptions returns the default options
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:        "energy:lock:",
		TTL:           30 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// RedisLocker is a Locker shared by every replica using the same Redis
type RedisLocker struct {
	client redis.UniversalClient
	opts   RedisOptions
	log    *slog.Logger
}

// NewRedisLocker creates a RedisLocker. Zero option fields take defaults.
func NewRedisLocker(client redis.UniversalClient, opts RedisOptions, log *slog.Logger) *RedisLocker {
	def := DefaultRedisOptions()
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = def.RetryInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisLocker{client: client, opts: opts, log: log}
}

// Lock acquires key with SET NX and a random token
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.opts.Prefix + key
	token := uuid.New().String()

	ticker := time.NewTicker(r.opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	return func() {
		// release even when the caller's context is already done
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		n, err := releaseScript.Run(relCtx, r.client, []string{fullKey}, token).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			r.log.Error("release lock", "key", key, "error", err)
			return
		}
		if n == 0 {
			r.log.Warn("lock expired before release", "key", key)
		}
	}, nil
}
