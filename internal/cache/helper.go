package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys and TTLs. The approval queue projection is intentionally never
// cached; only configuration-style reads (dropdowns, roster) go through here.
const (
	dropdownKeyPrefix = "dropdown:%s"
	rosterKey         = "approvers:active"

	DropdownTTL = 10 * time.Minute
	RosterTTL   = 1 * time.Minute
)

// DropdownKey returns the cache key for a dropdown category's options.
func DropdownKey(slug string) string {
	return fmt.Sprintf(dropdownKeyPrefix, slug)
}

// RosterKey returns the cache key for the active approver roster.
func RosterKey() string {
	return rosterKey
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	// Fetch from source (DB); a cache read error degrades to a miss.
	if err := fetch(); err != nil {
		return err
	}

	// Store into cache (best-effort)
	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}

// Invalidate removes a key, ignoring errors and nil clients.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateDropdown removes a category's cached option list.
func InvalidateDropdown(ctx context.Context, slug string) {
	Invalidate(ctx, DropdownKey(slug))
}

// InvalidateRoster removes the cached active approver roster.
func InvalidateRoster(ctx context.Context) {
	Invalidate(ctx, RosterKey())
}
