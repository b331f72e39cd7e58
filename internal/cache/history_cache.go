package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"chatmypdf/internal/model"
)

const historyKeyPrefix = "chatmypdf:history:"

// HistoryCache keeps a short-lived copy of a session's persisted messages.
// While a message is on its way to the persistence worker the session is
// marked dirty and reads miss, so callers fall through to MySQL.
type HistoryCache struct {
	client   *redisv9.Client
	ttl      time.Duration
	dirtyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = time.Minute
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{client: client, ttl: historyTTL, dirtyTTL: dirtyMarkerTTL}
}

// GetHistory reports a miss when nothing is cached or the session is dirty.
func (c *HistoryCache) GetHistory(ctx context.Context, sessionID string) ([]model.Message, bool, error) {
	values, err := c.client.MGet(ctx, dirtyKey(sessionID), historyKey(sessionID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}
	if values[0] != nil || values[1] == nil {
		return nil, false, nil
	}
	raw, ok := values[1].(string)
	if !ok {
		return nil, false, nil
	}

	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionID string, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(sessionID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// Invalidate drops the cached copy and marks the session dirty in one
// transaction.
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, dirtyKey(sessionID), "1", c.dirtyTTL)
		pipe.Del(ctx, historyKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate history failed: %w", err)
	}
	return nil
}

// DeleteHistory drops the cached copy but leaves the dirty marker alone.
func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	_, err := c.client.Get(ctx, dirtyKey(sessionID)).Result()
	if errors.Is(err, redisv9.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return true, nil
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

func dirtyKey(sessionID string) string {
	return historyKeyPrefix + "dirty:" + sessionID
}
