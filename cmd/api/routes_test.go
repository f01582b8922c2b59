package main

import (
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/task-tracker/internal/auth"
	"github.com/yourusername/task-tracker/internal/config"
	"github.com/yourusername/task-tracker/internal/repository"
)

var (
	csrfMetaPattern = regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)">`)
	taskIDPattern   = regexp.MustCompile(`data-task-id="([^"]+)"`)
)

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.OpenDSN(config.DriverSQLite, ":memory:", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	cfg := &config.Config{
		SessionSecret:      "test-session-secret-0123456789abcdef",
		SessionLifetime:    12 * time.Hour,
		SessionIdle:        30 * time.Minute,
		BcryptCost:         bcrypt.MinCost,
		GinMode:            gin.TestMode,
		CORSAllowedOrigins: "http://localhost:8080",
	}
	router, err := newRouter(cfg, db, auth.NewMemoryRegistry(), log.New(io.Discard, "", 0))
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, db
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, server *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: server.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// postCSRF はページから CSRF トークンを取得してフォームに付けて送信します。
func (b *browser) postCSRF(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	_, page := b.get("/")
	m := csrfMetaPattern.FindStringSubmatch(page)
	require.Len(b.t, m, 2, "csrf token not found in page")

	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", m[1])
	return b.post(path, form)
}

// signUp は登録とログインを行います。
func (b *browser) signUp(username string) {
	b.t.Helper()
	email := username + "@x.com"
	resp, _ := b.post("/auth/register", url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = b.post("/auth/login", url.Values{"email": {email}, "password": {"secret1"}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
}

// createTask はタスクを作成し、そのIDと遷移先の一覧ページを返します。
func (b *browser) createTask(title, status string) (string, string) {
	b.t.Helper()
	resp, _ := b.postCSRF("/tasks/new", url.Values{"title": {title}, "status": {status}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(b.t, "/tasks", resp.Header.Get("Location"))

	_, body := b.get("/tasks")
	m := taskIDPattern.FindStringSubmatch(body)
	require.Len(b.t, m, 2, "task not found in list")
	return m[1], body
}

func TestTaskLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	alice := newBrowser(t, server)
	alice.signUp("alice")

	id, body := alice.createTask("Buy milk", "pending")
	assert.Contains(t, body, "Task created successfully!")
	assert.Contains(t, body, "Buy milk")
	assert.Contains(t, body, `action="/tasks/`+id+`/complete"`)

	resp, _ := alice.postCSRF("/tasks/"+id+"/complete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = alice.get("/tasks?status=completed")
	assert.Contains(t, body, "Task marked as completed!")
	assert.Contains(t, body, "Buy milk")
	assert.Contains(t, body, `<a href="/tasks?status=completed" class="active">Completed</a>`)

	_, body = alice.get("/tasks?status=pending")
	assert.NotContains(t, body, "Buy milk")
	assert.Contains(t, body, "No tasks found.")

	resp, _ = alice.postCSRF("/tasks/"+id+"/uncomplete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = alice.get("/tasks?status=pending")
	assert.Contains(t, body, "Task marked as pending again!")
	assert.Contains(t, body, "Buy milk")

	_, body = alice.get("/tasks/" + id + "/edit")
	assert.Contains(t, body, `value="Buy milk"`)
	assert.Contains(t, body, `<option value="pending" selected>`)

	resp, _ = alice.postCSRF("/tasks/"+id+"/edit", url.Values{
		"title":       {"Buy oat milk"},
		"description": {"the barista kind"},
		"due_date":    {"2025-12-31"},
		"status":      {"completed"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/tasks/"+id, resp.Header.Get("Location"))

	resp, body = alice.get("/tasks/" + id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Task updated successfully!")
	assert.Contains(t, body, "Buy oat milk")
	assert.Contains(t, body, "the barista kind")
	assert.Contains(t, body, "2025-12-31")

	resp, _ = alice.postCSRF("/tasks/"+id+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/tasks", resp.Header.Get("Location"))

	_, body = alice.get("/tasks")
	assert.Contains(t, body, `<li class="flash flash-info">Task deleted successfully!</li>`)
	assert.Contains(t, body, "No tasks found.")

	resp, _ = alice.get("/tasks/" + id)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaskFormValidation(t *testing.T) {
	server, _ := newTestServer(t)
	alice := newBrowser(t, server)
	alice.signUp("alice")

	resp, body := alice.postCSRF("/tasks/new", url.Values{
		"title":    {"abc"},
		"due_date": {"tomorrow"},
		"status":   {"pending"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Field must be at least 5 characters long.")
	assert.Contains(t, body, "Not a valid date value (YYYY-MM-DD).")
	assert.Contains(t, body, `value="abc"`)

	id, _ := alice.createTask("Valid title", "pending")
	resp, body = alice.postCSRF("/tasks/"+id+"/edit", url.Values{"title": {""}, "status": {"pending"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "This field is required.")
	assert.Contains(t, body, `action="/tasks/`+id+`/edit"`)
}

func TestOtherUsersTasksAreForbidden(t *testing.T) {
	server, _ := newTestServer(t)
	alice := newBrowser(t, server)
	alice.signUp("alice")
	id, _ := alice.createTask("Alice private task", "pending")

	bob := newBrowser(t, server)
	bob.signUp("bob")

	_, body := bob.get("/tasks")
	assert.NotContains(t, body, "Alice private task")

	for _, path := range []string{"/tasks/" + id, "/tasks/" + id + "/edit"} {
		resp, body := bob.get(path)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		assert.Contains(t, body, "You do not have permission to access this page.")
	}

	for _, action := range []string{"edit", "delete", "complete", "uncomplete"} {
		resp, _ := bob.postCSRF("/tasks/"+id+"/"+action, url.Values{"title": {"Hijacked task"}, "status": {"completed"}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, action)
	}

	resp, body := alice.get("/tasks/" + id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Alice private task")
	assert.Contains(t, body, "Pending")
}

func TestUnknownTaskIsNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	alice := newBrowser(t, server)
	alice.signUp("alice")

	for _, path := range []string{"/tasks/not-a-uuid", "/tasks/0b6c7a5e-9f55-4d3c-a6a5-2f1f7f0e1c11"} {
		resp, body := alice.get(path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Contains(t, body, "does not exist")
	}
}

func TestTasksRequireLoginAndCSRF(t *testing.T) {
	server, _ := newTestServer(t)
	anon := newBrowser(t, server)

	resp, _ := anon.get("/tasks")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/login?next=%2Ftasks", resp.Header.Get("Location"))

	resp, _ = anon.post("/tasks/new", url.Values{"title": {"Sneaky task"}, "status": {"pending"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Header.Get("Location"))

	alice := newBrowser(t, server)
	alice.signUp("alice")
	resp, _ = alice.post("/tasks/new", url.Values{"title": {"No token task"}, "status": {"pending"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body := alice.get("/tasks")
	assert.NotContains(t, body, "No token task")
}

func TestHomeAndStatic(t *testing.T) {
	server, _ := newTestServer(t)
	b := newBrowser(t, server)

	resp, body := b.get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome to your Task Manager!")
	assert.Contains(t, body, `href="/auth/register"`)

	resp, _ = b.get("/static/main.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = b.get("/no-such-page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	server, db := newTestServer(t)
	b := newBrowser(t, server)

	resp, body := b.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	require.NoError(t, repository.Close(db))
	resp, body = b.get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, `"status":"unavailable"`)
}

func TestStoreFailureRendersServerError(t *testing.T) {
	server, db := newTestServer(t)
	alice := newBrowser(t, server)
	alice.signUp("alice")

	require.NoError(t, repository.Close(db))

	resp, body := alice.get("/tasks")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "Something went wrong on our side. Please try again later.")
	assert.NotContains(t, body, "database is closed")
}
