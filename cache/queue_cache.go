package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"songbox/core/player"
	"songbox/model"

	"github.com/go-redis/redis/v8"
)

// queueTTL is how long an untouched queue survives.
const queueTTL = 24 * time.Hour

// QueueCache persists playback queues in Redis: the items in a sorted set
// scored by position, the cursor in a plain key.
type QueueCache struct {
	client *redis.Client
}

// NewQueueCache returns a Redis backed player.QueueStore.
func NewQueueCache(client *redis.Client) *QueueCache {
	return &QueueCache{client: client}
}

// queueEntry is a sorted set member. Position keeps members unique when a
// song is queued twice.
type queueEntry struct {
	Position int `json:"position"`
	model.QueueItem
}

func queueKey(session string) string  { return fmt.Sprintf("queue:%s:items", session) }
func cursorKey(session string) string { return fmt.Sprintf("queue:%s:cursor", session) }

// Load returns the stored queue, or an empty queue when none exists.
func (c *QueueCache) Load(ctx context.Context, session string) (*player.Queue, error) {
	members, err := c.client.ZRangeByScore(ctx, queueKey(session), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	items := make([]model.QueueItem, 0, len(members))
	for _, m := range members {
		var entry queueEntry
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue item: %w", err)
		}
		items = append(items, entry.QueueItem)
	}

	cursor := player.NoSelection
	raw, err := c.client.Get(ctx, cursorKey(session)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("failed to get queue cursor: %w", err)
	default:
		if v, perr := strconv.Atoi(raw); perr == nil {
			cursor = v
		}
	}
	return player.Restore(items, cursor), nil
}

// Save replaces the stored queue atomically.
func (c *QueueCache) Save(ctx context.Context, session string, q *player.Queue) error {
	items := q.Items()
	members := make([]*redis.Z, 0, len(items))
	for i, item := range items {
		b, err := json.Marshal(queueEntry{Position: i, QueueItem: item})
		if err != nil {
			return fmt.Errorf("failed to marshal queue item: %w", err)
		}
		members = append(members, &redis.Z{Score: float64(i), Member: b})
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, queueKey(session))
		if len(members) > 0 {
			pipe.ZAdd(ctx, queueKey(session), members...)
			pipe.Expire(ctx, queueKey(session), queueTTL)
		}
		pipe.Set(ctx, cursorKey(session), q.Cursor(), queueTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

// Delete removes the stored queue.
func (c *QueueCache) Delete(ctx context.Context, session string) error {
	if err := c.client.Del(ctx, queueKey(session), cursorKey(session)).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
