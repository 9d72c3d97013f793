// Package notify owns the per-search notified-identifier state and the
// dispatch policy that decides between one consolidated message and
// per-item messages.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// SeenStore records which item identifiers have already been notified for a
// saved search. An identifier is marked if and only if a notification for it
// was attempted.
type SeenStore interface {
	Seen(ctx context.Context, searchID int64, itemID string) bool
	Mark(ctx context.Context, searchID int64, itemID string)
}

// MemorySeen is the default store: per-search sets created lazily on first
// sight, growing monotonically for the life of the process. A restart resets
// it, so previously seen items are re-notified once.
type MemorySeen struct {
	mu   sync.RWMutex
	seen map[int64]map[string]struct{}
}

func NewMemorySeen() *MemorySeen {
	return &MemorySeen{seen: make(map[int64]map[string]struct{})}
}

func (m *MemorySeen) Seen(_ context.Context, searchID int64, itemID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[searchID][itemID]
	return ok
}

func (m *MemorySeen) Mark(_ context.Context, searchID int64, itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seen[searchID]
	if !ok {
		set = make(map[string]struct{})
		m.seen[searchID] = set
	}
	set[itemID] = struct{}{}
}

// RedisSeen keeps the notified sets in Redis so they survive restarts. A
// Redis error degrades towards re-notification: a failed membership check
// reports not-seen and a failed mark is only logged.
type RedisSeen struct {
	rdb *redis.Client
}

// NewRedisSeen parses redisURL and verifies connectivity.
func NewRedisSeen(ctx context.Context, redisURL string) (*RedisSeen, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisSeen{rdb: client}, nil
}

func (r *RedisSeen) key(searchID int64) string {
	return fmt.Sprintf("wallawatch:seen:%d", searchID)
}

func (r *RedisSeen) Seen(ctx context.Context, searchID int64, itemID string) bool {
	ok, err := r.rdb.SIsMember(ctx, r.key(searchID), itemID).Result()
	if err != nil {
		log.Printf("[notify] redis SISMEMBER: %v", err)
		return false
	}
	return ok
}

func (r *RedisSeen) Mark(ctx context.Context, searchID int64, itemID string) {
	if err := r.rdb.SAdd(ctx, r.key(searchID), itemID).Err(); err != nil {
		log.Printf("[notify] redis SADD: %v", err)
	}
}

func (r *RedisSeen) Close() error {
	return r.rdb.Close()
}
