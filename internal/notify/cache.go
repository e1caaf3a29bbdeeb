package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UnreadCache keeps per-user unread counters in Redis so the badge poll does
// not hit PostgreSQL on every request.
type UnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUnreadCache constructs the cache.
func NewUnreadCache(client *redis.Client, ttl time.Duration) *UnreadCache {
	return &UnreadCache{client: client, ttl: ttl}
}

// Get returns the cached count. The second return reports a hit.
func (c *UnreadCache) Get(ctx context.Context, userID uuid.UUID) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}
	raw, err := c.client.Get(ctx, c.key(userID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Set stores the count.
func (c *UnreadCache) Set(ctx context.Context, userID uuid.UUID, count int) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, c.key(userID), strconv.Itoa(count), c.ttl).Err()
}

// Invalidate drops the counter after any inbox write.
func (c *UnreadCache) Invalidate(ctx context.Context, userIDs ...uuid.UUID) {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}
	_ = c.client.Del(ctx, keys...).Err()
}

func (c *UnreadCache) key(userID uuid.UUID) string {
	return "notify:unread:" + userID.String()
}
