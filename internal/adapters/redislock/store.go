// Package redislock provides the Redis-backed job lock store, selected when
// BILLING_LOCK_BACKEND=redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while this owner still holds it. The
// compare and the delete run as one script, so a TTL takeover between them
// cannot lose someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store implements distributed job locks on Redis keys. Acquisition is a
// single SET NX PX; expiry reclaim comes from Redis TTL eviction for free.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// StoreOptions groups dependencies for Store.
type StoreOptions struct {
	Client redis.UniversalClient
	// Prefix namespaces lock keys in a shared Redis. Defaults to "lock:".
	Prefix string
	Logger *slog.Logger
}

// NewStore creates a Redis lock store.
func NewStore(opts StoreOptions) *Store {
	if opts.Client == nil {
		panic("redis client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "lock:"
	}
	return &Store{
		client: opts.Client,
		prefix: prefix,
		logger: opts.Logger,
	}
}

// Acquire attempts to take the lock without blocking.
func (s *Store) Acquire(ctx context.Context, key, ownerRunID string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, errors.New("lock key cannot be empty")
	}
	if ownerRunID == "" {
		return false, errors.New("lock owner cannot be empty")
	}
	if ttl <= 0 {
		ttl = time.Second
	}

	// SET with NX + TTL is atomic; a separate SETNX/EXPIRE pair would leave
	// an unexpiring lock if the process died between the two calls.
	cmd := s.client.SetArgs(ctx, s.prefix+key, ownerRunID, redis.SetArgs{Mode: "NX", TTL: ttl})
	status, err := cmd.Result()
	if err != nil {
		// NX not met: go-redis reports the nil reply as redis.Nil.
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX %s: %w", key, err)
	}

	acquired := status == "OK"
	if acquired && s.logger != nil {
		s.logger.DebugContext(ctx, "job lock acquired",
			"lock_key", key,
			"owner_run_id", ownerRunID,
			"ttl", ttl,
		)
	}
	return acquired, nil
}

// Release frees the lock if ownerRunID still holds it.
func (s *Store) Release(ctx context.Context, key, ownerRunID string) error {
	if key == "" {
		return errors.New("lock key cannot be empty")
	}
	if ownerRunID == "" {
		return errors.New("lock owner cannot be empty")
	}

	deleted, err := releaseScript.Run(ctx, s.client, []string{s.prefix + key}, ownerRunID).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release %s: %w", key, err)
	}
	if deleted == 0 && s.logger != nil {
		// The key expired or was taken over while the holder was still working.
		s.logger.WarnContext(ctx, "release found no lock owned by this run",
			"lock_key", key,
			"owner_run_id", ownerRunID,
		)
	}
	return nil
}

// Health checks the Redis connection.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
