package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
)

// RedisRegistry はセッション情報を Redis に保存します。TTL で自動的に失効します。
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry は RedisRegistry を作成します。
func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

// NewRedisRegistryFromURL は接続URLから RedisRegistry を作成し、疎通確認まで行います。
func NewRedisRegistryFromURL(ctx context.Context, rawURL string) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisRegistry(rdb), nil
}

// Create は新しいセッションを発行します。
func (r *RedisRegistry) Create(ctx context.Context, userID string, ttl time.Duration) (*SessionRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	id, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &SessionRecord{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	if err := r.rdb.Set(ctx, sessionKey(id), payload, ttl).Err(); err != nil {
		return nil, err
	}
	return record, nil
}

// Get はセッションを取得します。
func (r *RedisRegistry) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	data, err := r.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Revoke はセッションを削除します。
func (r *RedisRegistry) Revoke(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, sessionKey(sessionID)).Err()
}

// Close は Redis クライアントを閉じます。
func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
