package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound はセッションが存在しないか失効している場合に返されます。
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord はサーバー側で保持するセッション情報です。
type SessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Registry はセッションIDとユーザーの対応を管理します。
// ログアウト時に Revoke することで、クッキーが残っていてもセッションは無効になります。
type Registry interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (*SessionRecord, error)
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Revoke(ctx context.Context, sessionID string) error
}

// MemoryRegistry はプロセス内で保持する Registry です。開発・テスト用です。
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]SessionRecord
	now      func() time.Time
}

// NewMemoryRegistry は MemoryRegistry を作成します。
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]SessionRecord),
		now:      time.Now,
	}
}

// Create は新しいセッションを発行します。
func (r *MemoryRegistry) Create(_ context.Context, userID string, ttl time.Duration) (*SessionRecord, error) {
	id, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	record := SessionRecord{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = record
	return &record, nil
}

// Get はセッションを取得します。期限切れのものは削除して ErrSessionNotFound を返します。
func (r *MemoryRegistry) Get(_ context.Context, sessionID string) (*SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !r.now().Before(record.ExpiresAt) {
		delete(r.sessions, sessionID)
		return nil, ErrSessionNotFound
	}
	return &record, nil
}

// Revoke はセッションを無効化します。存在しなくてもエラーにしません。
func (r *MemoryRegistry) Revoke(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
