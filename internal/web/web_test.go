package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/models"
)

func TestTemplatesRenderTaskList(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates returned error: %v", err)
	}

	due := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	page := Page{
		Title:       "My Tasks",
		CurrentUser: &models.User{Username: "alice"},
		CSRFToken:   "token-123",
		Flashes:     []Flash{{Category: FlashSuccess, Message: "Task created successfully!"}},
		Tasks: []models.Task{
			{ID: "t1", Title: "Buy milk", Status: models.StatusPending, DueDate: &due},
			{ID: "t2", Title: "Walk dog", Status: models.StatusCompleted},
		},
		Statuses:     models.TaskStatuses,
		StatusFilter: "pending",
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "task_list.html", page); err != nil {
		t.Fatalf("ExecuteTemplate returned error: %v", err)
	}
	body := buf.String()

	for _, want := range []string{
		`<meta name="csrf-token" content="token-123">`,
		"Task created successfully!",
		"Buy milk",
		"Due 2025-12-31",
		`action="/tasks/t1/complete"`,
		`action="/tasks/t2/uncomplete"`,
		`<a href="/tasks?status=pending" class="active">Pending</a>`,
		"alice",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered page does not contain %q", want)
		}
	}
}

func TestTemplatesRenderFormErrors(t *testing.T) {
	tmpl, err := Templates()
	if err != nil {
		t.Fatalf("Templates returned error: %v", err)
	}

	page := Page{
		Title:    "New Task",
		Action:   "/tasks/new",
		Form:     map[string]string{"title": "<b>x</b>", "status": "completed"},
		Errors:   map[string]string{"title": "Field must be at least 5 characters long."},
		Statuses: models.TaskStatuses,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "task_form.html", page); err != nil {
		t.Fatalf("ExecuteTemplate returned error: %v", err)
	}
	body := buf.String()

	if !strings.Contains(body, "Field must be at least 5 characters long.") {
		t.Error("missing field error")
	}
	if strings.Contains(body, "<b>x</b>") {
		t.Error("form value was not escaped")
	}
	if !strings.Contains(body, `<option value="completed" selected>`) {
		t.Error("status option not preselected")
	}
}

func TestRenderError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if err := Setup(router); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	router.GET("/missing", func(c *gin.Context) {
		RenderError(c, http.StatusNotFound, Page{})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "does not exist") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestStaticAssets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if err := Setup(router); err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/main.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "confirm(") {
		t.Fatal("main.js content not served")
	}
}
