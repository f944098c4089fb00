// Package cache implements the memo cache used by the read-heavy aggregate
// queries. Values live in Redis under a dedicated prefix so that clearing the
// cache never touches job queue or pub/sub state sharing the same instance.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "expenseflow:cache:"

// DefaultTTL applies when a read path does not specify its own lifetime.
const DefaultTTL = 5 * time.Minute

// Store is a TTL key-value memo with hit/miss accounting and broad
// substring invalidation.
type Store struct {
	client *redis.Client
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewStore wraps a Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get loads the value stored under key into dest. The boolean reports
// whether the key was present and unexpired.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.misses.Add(1)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	s.hits.Add(1)
	if dest == nil {
		return true, nil
	}
	return true, json.Unmarshal(payload, dest)
}

// Set stores value under key for ttl. A non-positive ttl means the value is
// already stale and must not become visible, so the key is removed instead.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

// DeleteByPattern removes every key whose name contains the substring. This
// is a deliberate broad-invalidation tool, not a dependency tracker: writers
// use it to drop whole key families (e.g. all dashboard variants) at once.
func (s *Store) DeleteByPattern(ctx context.Context, substring string) error {
	keys, err := s.scan(ctx, keyPrefix+"*"+substring+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete by pattern %q: %w", substring, err)
	}
	return nil
}

// Clear removes every cached entry.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx, keyPrefix+"*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	return nil
}

// Stats reports cache effectiveness since process start.
type Stats struct {
	Keys    int    `json:"keys"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	HitRate string `json:"hitRate"`
}

// Stats returns current key count and hit/miss counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.scan(ctx, keyPrefix+"*")
	if err != nil {
		return Stats{}, err
	}
	hits := s.hits.Load()
	misses := s.misses.Load()
	rate := "0%"
	if hits+misses > 0 {
		rate = fmt.Sprintf("%.2f%%", float64(hits)/float64(hits+misses)*100)
	}
	return Stats{
		Keys:    len(keys),
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
	}, nil
}

// GetOrSet returns the cached value for key, or invokes producer, stores the
// result for ttl and returns it. Concurrent misses for the same key are
// grouped so the producer runs once per flight.
func (s *Store) GetOrSet(ctx context.Context, key string, ttl time.Duration, dest any, producer func(context.Context) (any, error)) error {
	hit, err := s.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}

	raw, err, _ := s.group.Do(key, func() (any, error) {
		value, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache: marshal %s: %w", key, err)
		}
		if ttl > 0 {
			if err := s.client.Set(ctx, keyPrefix+key, encoded, ttl).Err(); err != nil {
				return nil, fmt.Errorf("cache: set %s: %w", key, err)
			}
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (s *Store) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("cache: scan %q: %w", match, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
