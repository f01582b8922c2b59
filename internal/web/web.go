// Package web は HTML テンプレートと静的ファイル、画面共通のデータ構造を提供します。
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// フラッシュメッセージの種別
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashDanger  = "danger"
)

// Flash は次の画面で一度だけ表示する通知です。
type Flash struct {
	Category string
	Message  string
}

// Page はすべての画面テンプレートに渡すデータです。
type Page struct {
	Title       string
	CurrentUser *models.User
	CSRFToken   string
	Flashes     []Flash

	// フォーム画面用
	Form   map[string]string
	Errors map[string]string
	Action string
	Next   string

	// タスク画面用
	Tasks        []models.Task
	Task         *models.Task
	StatusFilter string
	Statuses     []models.TaskStatus

	// エラー画面用
	Status  int
	Message string
}

// Value は再表示するフォーム値を返します。
func (p Page) Value(field string) string {
	return p.Form[field]
}

// Error はフィールドのエラーメッセージを返します。
func (p Page) Error(field string) string {
	return p.Errors[field]
}

// Templates は埋め込みテンプレートを読み込みます。
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"date":      formatDate,
		"timestamp": formatTimestamp,
	}).ParseFS(templateFS, "templates/*.html")
}

// StaticFS は /static 配下で配信するファイルシステムを返します。
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Setup はテンプレートと静的ファイルをルーターに登録します。
func Setup(router *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", StaticFS())
	return nil
}

// RenderError はエラー画面を表示します。
func RenderError(c *gin.Context, status int, page Page) {
	page.Status = status
	if page.Title == "" {
		page.Title = http.StatusText(status)
	}
	if page.Message == "" {
		page.Message = defaultErrorMessage(status)
	}
	c.HTML(status, "error.html", page)
}

func defaultErrorMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "The page you are looking for does not exist."
	case http.StatusForbidden:
		return "You do not have permission to access this page."
	default:
		return "Something went wrong on our side. Please try again later."
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
