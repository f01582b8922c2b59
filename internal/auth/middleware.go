package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/web"
)

// LoadUser はセッションからログイン中のユーザーを読み込み、コンテキストに保存します。
// 全ルートに適用し、未ログインでもリクエストはそのまま通します。
func (m *Manager) LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		sessionID, ok := session.Get(sessionKeyID).(string)
		if !ok || sessionID == "" {
			c.Next()
			return
		}

		user, err := m.resolve(c.Request.Context(), session, sessionID)
		switch {
		case err == nil:
			session.Set(sessionKeyLastActive, m.now().Unix())
			if err := session.Save(); err != nil {
				m.logger.Printf("failed to save session: %v", err)
			}
			c.Set(ContextUserKey, user)
		case errors.Is(err, errSessionInvalid):
			if err := m.registry.Revoke(c.Request.Context(), sessionID); err != nil {
				m.logger.Printf("failed to revoke session: %v", err)
			}
			session.Clear()
			session.AddFlash(web.Flash{Category: web.FlashInfo, Message: "Your session has expired. Please log in again."})
			if err := session.Save(); err != nil {
				m.logger.Printf("failed to save session: %v", err)
			}
		default:
			m.Fail(c, err)
			return
		}

		c.Next()
	}
}

// RequireLogin は未ログインのリクエストをログイン画面へリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); ok {
			c.Next()
			return
		}

		m.Flash(c, web.FlashInfo, "Please log in to access this page.")
		target := "/auth/login"
		// POST 先には戻れないので GET のときだけ元のURLを覚えておく
		if c.Request.Method == http.MethodGet {
			target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	}
}

// VerifyCSRF は状態を変更するリクエストの CSRF トークンを検証します。
// トークンはフォームの csrf_token か X-CSRF-Token ヘッダーで受け取ります。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, ok := session.Get(sessionKeyCSRF).(string)
		if !ok || expected == "" {
			m.rejectCSRF(c)
			return
		}

		received := c.GetHeader(csrfHeader)
		if received == "" {
			received = c.PostForm(csrfFormField)
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.rejectCSRF(c)
			return
		}

		c.Next()
	}
}

func (m *Manager) rejectCSRF(c *gin.Context) {
	page := m.Page(c, "Forbidden")
	page.Message = "The form has expired or is invalid. Please go back and try again."
	web.RenderError(c, http.StatusForbidden, page)
	c.Abort()
}
