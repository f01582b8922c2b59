package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/validation"
	"github.com/yourusername/task-tracker/internal/web"
)

// Handler は /auth 配下の画面を提供します。
type Handler struct {
	service *Service
	manager *Manager
}

// NewHandler は Handler を作成します。
func NewHandler(service *Service, manager *Manager) *Handler {
	return &Handler{service: service, manager: manager}
}

// ShowRegister は GET /auth/register のハンドラーです。
func (h *Handler) ShowRegister(c *gin.Context) {
	if h.redirectIfAuthenticated(c) {
		return
	}
	c.HTML(http.StatusOK, "register.html", h.manager.Page(c, "Register"))
}

// Register は POST /auth/register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	if h.redirectIfAuthenticated(c) {
		return
	}

	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		web.RenderError(c, http.StatusBadRequest, h.manager.Page(c, ""))
		return
	}

	if _, err := h.service.Register(c.Request.Context(), input); err != nil {
		fields, ok := validation.Fields(err)
		if !ok {
			h.manager.Fail(c, err)
			return
		}
		page := h.manager.Page(c, "Register")
		page.Form = map[string]string{"username": input.Username, "email": input.Email}
		page.Errors = fields
		c.HTML(http.StatusUnprocessableEntity, "register.html", page)
		return
	}

	h.manager.Flash(c, web.FlashSuccess, "Your account has been created! You can now log in.")
	c.Redirect(http.StatusSeeOther, "/auth/login")
}

// ShowLogin は GET /auth/login のハンドラーです。
func (h *Handler) ShowLogin(c *gin.Context) {
	if h.redirectIfAuthenticated(c) {
		return
	}
	page := h.manager.Page(c, "Login")
	page.Next = SafeRedirect(c.Query("next"))
	c.HTML(http.StatusOK, "login.html", page)
}

// Login は POST /auth/login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	if h.redirectIfAuthenticated(c) {
		return
	}

	var input LoginInput
	if err := c.ShouldBind(&input); err != nil {
		web.RenderError(c, http.StatusBadRequest, h.manager.Page(c, ""))
		return
	}
	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}
	next = SafeRedirect(next)

	user, err := h.service.Login(c.Request.Context(), input)
	if err != nil {
		page := h.manager.Page(c, "Login")
		page.Form = map[string]string{"email": input.Email}
		page.Next = next

		if fields, ok := validation.Fields(err); ok {
			page.Errors = fields
			c.HTML(http.StatusUnprocessableEntity, "login.html", page)
			return
		}
		if errors.Is(err, ErrInvalidCredentials) {
			page.Flashes = append(page.Flashes, web.Flash{
				Category: web.FlashDanger,
				Message:  "Login failed. Please check your email and password.",
			})
			c.HTML(http.StatusUnauthorized, "login.html", page)
			return
		}
		h.manager.Fail(c, err)
		return
	}

	if err := h.manager.StartSession(c, user); err != nil {
		h.manager.Fail(c, err)
		return
	}

	h.manager.Flash(c, web.FlashSuccess, "Login successful!")
	if next == "" {
		next = "/"
	}
	c.Redirect(http.StatusSeeOther, next)
}

// Logout は GET /auth/logout のハンドラーです。RequireLogin の後に置きます。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.manager.EndSession(c); err != nil {
		h.manager.Fail(c, err)
		return
	}
	h.manager.Flash(c, web.FlashInfo, "You have been logged out.")
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) redirectIfAuthenticated(c *gin.Context) bool {
	if _, ok := CurrentUser(c); !ok {
		return false
	}
	c.Redirect(http.StatusSeeOther, "/")
	return true
}
