package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	redisv9 "github.com/redis/go-redis/v9"

	"chatmypdf/internal/model"
)

// ErrCorruptRecord is returned by Load when a stored user record exists but
// cannot be decoded. Callers are expected to delete it.
var ErrCorruptRecord = errors.New("user record is corrupt")

// RedisUserRecords keeps one flat hash per workspace key.
type RedisUserRecords struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisUserRecords(client *redisv9.Client, ttl time.Duration) *RedisUserRecords {
	return &RedisUserRecords{client: client, ttl: ttl}
}

func (s *RedisUserRecords) Save(ctx context.Context, key string, record model.UserRecord) error {
	rkey := userRecordKey(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Del(ctx, rkey)
		pipe.HSet(ctx, rkey, record)
		if s.ttl > 0 {
			pipe.Expire(ctx, rkey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save user record failed: %w", err)
	}
	return nil
}

// Load returns nil, nil when no record is stored under key.
func (s *RedisUserRecords) Load(ctx context.Context, key string) (*model.UserRecord, error) {
	cmd := s.client.HGetAll(ctx, userRecordKey(key))
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("redis load user record failed: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var record model.UserRecord
	if err := cmd.Scan(&record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if record.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrCorruptRecord)
	}
	return &record, nil
}

func (s *RedisUserRecords) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, userRecordKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete user record failed: %w", err)
	}
	return nil
}

func userRecordKey(key string) string {
	return fmt.Sprintf("chatmypdf:user:%s", key)
}

// MemoryUserRecords keeps encoded records in process memory. Used for
// single-instance deployments and tests.
type MemoryUserRecords struct {
	items *gocache.Cache
}

func NewMemoryUserRecords(ttl time.Duration) *MemoryUserRecords {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryUserRecords{items: gocache.New(ttl, 10*time.Minute)}
}

func (s *MemoryUserRecords) Save(_ context.Context, key string, record model.UserRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal user record failed: %w", err)
	}
	s.items.SetDefault(key, payload)
	return nil
}

func (s *MemoryUserRecords) Load(_ context.Context, key string) (*model.UserRecord, error) {
	raw, ok := s.items.Get(key)
	if !ok {
		return nil, nil
	}
	payload, ok := raw.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected %T", ErrCorruptRecord, raw)
	}

	var record model.UserRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if record.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrCorruptRecord)
	}
	return &record, nil
}

func (s *MemoryUserRecords) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}
