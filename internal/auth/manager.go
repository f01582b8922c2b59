// Package auth は認証・認可機能を提供します。
package auth

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/config"
	"github.com/yourusername/task-tracker/internal/models"
	"github.com/yourusername/task-tracker/internal/web"
)

const (
	SessionCookieName    = "tt_session"
	sessionKeyID         = "sid"
	sessionKeyUser       = "auth_user"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// errSessionInvalid はセッションが期限切れ・失効済みであることを表します。
var errSessionInvalid = errors.New("session is no longer valid")

func init() {
	// フラッシュはクッキーセッションに gob で保存される
	gob.Register(web.Flash{})
}

// UserLoader はセッションのユーザーIDからユーザーを取得します。
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// SessionOptions はセッションクッキーの属性を返します。
func SessionOptions(cfg *config.Config) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionLifetime.Seconds()),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		// 外部サイトからのリンクでもログイン状態を保つため Lax
		SameSite: http.SameSiteLaxMode,
	}
}

// Manager はセッションの発行・検証とフラッシュを扱います。
type Manager struct {
	users    UserLoader
	registry Registry
	lifetime time.Duration
	idle     time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewManager は認証マネージャーを作成します。
func NewManager(cfg *config.Config, users UserLoader, registry Registry, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		users:    users,
		registry: registry,
		lifetime: cfg.SessionLifetime,
		idle:     cfg.SessionIdle,
		logger:   logger,
		now:      time.Now,
	}
}

// CurrentUser はリクエストに紐づくログイン済みユーザーを返します。
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// StartSession はログイン成功時にセッションを発行します。既存の内容は破棄します。
func (m *Manager) StartSession(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	if oldID, ok := session.Get(sessionKeyID).(string); ok && oldID != "" {
		if err := m.registry.Revoke(c.Request.Context(), oldID); err != nil {
			m.logger.Printf("failed to revoke previous session: %v", err)
		}
	}
	session.Clear()

	record, err := m.registry.Create(c.Request.Context(), user.ID, m.lifetime)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate csrf token: %w", err)
	}

	now := m.now()
	session.Set(sessionKeyID, record.ID)
	session.Set(sessionKeyUser, user.ID)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)

	if err := session.Save(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	c.Set(ContextUserKey, user)
	return nil
}

// EndSession はセッションを無効化し、クッキーの内容を消去します。
func (m *Manager) EndSession(c *gin.Context) error {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionKeyID).(string); ok && id != "" {
		if err := m.registry.Revoke(c.Request.Context(), id); err != nil {
			return fmt.Errorf("failed to revoke session: %w", err)
		}
	}
	session.Clear()
	c.Set(ContextUserKey, nil)
	return session.Save()
}

// Flash は次に表示する画面への通知を保存します。
func (m *Manager) Flash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(web.Flash{Category: category, Message: message})
	if err := session.Save(); err != nil {
		m.logger.Printf("failed to save flash: %v", err)
	}
}

// Page は画面共通のデータ（ユーザー、CSRFトークン、フラッシュ）を組み立てます。
// 取り出したフラッシュはセッションから削除されます。
func (m *Manager) Page(c *gin.Context, title string) web.Page {
	page := web.Page{Title: title}
	session := sessions.Default(c)

	if user, ok := CurrentUser(c); ok {
		page.CurrentUser = user
		page.CSRFToken, _ = session.Get(sessionKeyCSRF).(string)
	}

	if raw := session.Flashes(); len(raw) > 0 {
		for _, v := range raw {
			if flash, ok := v.(web.Flash); ok {
				page.Flashes = append(page.Flashes, flash)
			}
		}
		if err := session.Save(); err != nil {
			m.logger.Printf("failed to save session: %v", err)
		}
	}
	return page
}

// Fail はストア障害などの想定外のエラーを記録し、500画面を返します。
func (m *Manager) Fail(c *gin.Context, err error) {
	m.logger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	web.RenderError(c, http.StatusInternalServerError, m.Page(c, ""))
	c.Abort()
}

// resolve はクッキーのセッションを検証し、ユーザーを返します。
func (m *Manager) resolve(ctx context.Context, session sessions.Session, sessionID string) (*models.User, error) {
	now := m.now()
	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	lastActive := readUnix(session.Get(sessionKeyLastActive))

	if issuedAt.IsZero() || now.Sub(issuedAt) > m.lifetime {
		return nil, errSessionInvalid
	}
	if lastActive.IsZero() || now.Sub(lastActive) > m.idle {
		return nil, errSessionInvalid
	}

	record, err := m.registry.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, errSessionInvalid
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	userID, _ := session.Get(sessionKeyUser).(string)
	if userID == "" || record.UserID != userID {
		return nil, errSessionInvalid
	}

	user, err := m.users.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, errSessionInvalid
		}
		return nil, err
	}
	return user, nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
