package tasks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/auth"
	"github.com/yourusername/task-tracker/internal/models"
	"github.com/yourusername/task-tracker/internal/validation"
	"github.com/yourusername/task-tracker/internal/web"
)

// Handler は /tasks 配下の画面を提供します。
// RequireLogin と VerifyCSRF の後ろに登録することを前提にしています。
type Handler struct {
	service *Service
	manager *auth.Manager
}

// NewHandler は Handler を作成します。
func NewHandler(service *Service, manager *auth.Manager) *Handler {
	return &Handler{service: service, manager: manager}
}

// Register は /tasks のルートをグループに登録します。
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/new", h.New)
	group.POST("/new", h.Create)
	group.GET("/:id", h.Show)
	group.GET("/:id/edit", h.EditForm)
	group.POST("/:id/edit", h.Update)
	group.POST("/:id/delete", h.Delete)
	group.POST("/:id/complete", h.Complete)
	group.POST("/:id/uncomplete", h.Uncomplete)
}

// List は GET /tasks のハンドラーです。?status= で絞り込みます。
func (h *Handler) List(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	status := c.Query("status")
	tasks, err := h.service.List(c.Request.Context(), user.ID, status)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	page := h.manager.Page(c, "My Tasks")
	page.Tasks = tasks
	page.Statuses = models.TaskStatuses
	if filter, ok := models.ParseTaskStatus(status); ok {
		page.StatusFilter = string(filter)
	}
	c.HTML(http.StatusOK, "task_list.html", page)
}

// New は GET /tasks/new のハンドラーです。
func (h *Handler) New(c *gin.Context) {
	if _, ok := h.requester(c); !ok {
		return
	}
	h.renderForm(c, http.StatusOK, "New Task", "/tasks/new", Input{Status: string(models.StatusPending)}, nil)
}

// Create は POST /tasks/new のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	var input Input
	if err := c.ShouldBind(&input); err != nil {
		web.RenderError(c, http.StatusBadRequest, h.manager.Page(c, ""))
		return
	}

	if _, err := h.service.Create(c.Request.Context(), user.ID, input); err != nil {
		if fields, ok := validation.Fields(err); ok {
			h.renderForm(c, http.StatusUnprocessableEntity, "New Task", "/tasks/new", input, fields)
			return
		}
		h.respondWithError(c, err)
		return
	}

	h.manager.Flash(c, web.FlashSuccess, "Task created successfully!")
	c.Redirect(http.StatusSeeOther, "/tasks")
}

// Show は GET /tasks/:id のハンドラーです。
func (h *Handler) Show(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.respondWithError(c, err)
		return
	}

	page := h.manager.Page(c, task.Title)
	page.Task = task
	c.HTML(http.StatusOK, "task_detail.html", page)
}

// EditForm は GET /tasks/:id/edit のハンドラーです。現在の値を入力済みで表示します。
func (h *Handler) EditForm(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.respondWithError(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, "Edit Task", editPath(task.ID), InputFromTask(task), nil)
}

// Update は POST /tasks/:id/edit のハンドラーです。
func (h *Handler) Update(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	var input Input
	if err := c.ShouldBind(&input); err != nil {
		web.RenderError(c, http.StatusBadRequest, h.manager.Page(c, ""))
		return
	}

	id := c.Param("id")
	task, err := h.service.Edit(c.Request.Context(), id, user.ID, input)
	if err != nil {
		if fields, ok := validation.Fields(err); ok {
			h.renderForm(c, http.StatusUnprocessableEntity, "Edit Task", editPath(id), input, fields)
			return
		}
		h.respondWithError(c, err)
		return
	}

	h.manager.Flash(c, web.FlashSuccess, "Task updated successfully!")
	c.Redirect(http.StatusSeeOther, "/tasks/"+task.ID)
}

// Delete は POST /tasks/:id/delete のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.manager.Flash(c, web.FlashInfo, "Task deleted successfully!")
	c.Redirect(http.StatusSeeOther, "/tasks")
}

// Complete は POST /tasks/:id/complete のハンドラーです。
func (h *Handler) Complete(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	if _, err := h.service.Complete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.manager.Flash(c, web.FlashSuccess, "Task marked as completed!")
	c.Redirect(http.StatusSeeOther, "/tasks")
}

// Uncomplete は POST /tasks/:id/uncomplete のハンドラーです。
func (h *Handler) Uncomplete(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	if _, err := h.service.Uncomplete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		h.respondWithError(c, err)
		return
	}

	h.manager.Flash(c, web.FlashInfo, "Task marked as pending again!")
	c.Redirect(http.StatusSeeOther, "/tasks")
}

func (h *Handler) requester(c *gin.Context) (*models.User, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		// RequireLogin を通っていれば到達しない
		c.Redirect(http.StatusSeeOther, "/auth/login")
		c.Abort()
		return nil, false
	}
	return user, true
}

func (h *Handler) renderForm(c *gin.Context, status int, title, action string, input Input, fields map[string]string) {
	page := h.manager.Page(c, title)
	page.Action = action
	page.Form = input.FormValues()
	page.Errors = fields
	page.Statuses = models.TaskStatuses
	c.HTML(status, "task_form.html", page)
}

// respondWithError はサービスのエラーを HTTP ステータスに変換して返します。
func (h *Handler) respondWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		web.RenderError(c, http.StatusNotFound, h.manager.Page(c, "Not Found"))
	case errors.Is(err, ErrForbidden):
		web.RenderError(c, http.StatusForbidden, h.manager.Page(c, "Forbidden"))
	default:
		h.manager.Fail(c, err)
	}
}

func editPath(id string) string {
	return "/tasks/" + id + "/edit"
}
