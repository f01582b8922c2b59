package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yourusername/task-tracker/internal/auth"
	"github.com/yourusername/task-tracker/internal/config"
	"github.com/yourusername/task-tracker/internal/repository"
	"github.com/yourusername/task-tracker/internal/tasks"
	"github.com/yourusername/task-tracker/internal/validation"
	"github.com/yourusername/task-tracker/internal/web"
)

const healthCheckTimeout = 2 * time.Second

// newRouter はミドルウェアとルーティングを設定した gin.Engine を返します。
func newRouter(cfg *config.Config, db *gorm.DB, registry auth.Registry, logger *log.Logger) (*gin.Engine, error) {
	// デフォルトミドルウェア: Logger, Recovery
	router := gin.Default()

	// セッションストアの設定（クッキー署名鍵は必須）
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(auth.SessionOptions(cfg))
	router.Use(sessions.Sessions(auth.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-CSRF-Token", // CSRF保護用ヘッダー
	}
	router.Use(cors.New(corsConfig))

	if err := web.Setup(router); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	validator := validation.New()
	authService, err := auth.NewService(repository.NewUserRepository(db), auth.NewPasswordHasher(cfg.BcryptCost), validator)
	if err != nil {
		return nil, err
	}
	authManager := auth.NewManager(cfg, authService, registry, logger)
	taskService := tasks.NewService(repository.NewTaskRepository(db), validator)

	// ログイン状態は全ルートで読み込む
	router.Use(authManager.LoadUser())

	setupRoutes(router, db, authManager, auth.NewHandler(authService, authManager), tasks.NewHandler(taskService, authManager))
	return router, nil
}

// setupRoutes は画面と認証周りの配線を行います。
func setupRoutes(router *gin.Engine, db *gorm.DB, authManager *auth.Manager, authHandler *auth.Handler, taskHandler *tasks.Handler) {
	router.GET("/", handleHome(authManager))
	router.GET("/health", handleHealth(db))

	authRoutes := router.Group("/auth")
	{
		// ログイン前はセッションに CSRF トークンがないため検証しない
		authRoutes.GET("/register", authHandler.ShowRegister)
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.GET("/login", authHandler.ShowLogin)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/logout", authManager.RequireLogin(), authHandler.Logout)
	}

	taskRoutes := router.Group("/tasks")
	taskRoutes.Use(authManager.RequireLogin(), authManager.VerifyCSRF())
	taskHandler.Register(taskRoutes)

	router.NoRoute(func(c *gin.Context) {
		web.RenderError(c, http.StatusNotFound, authManager.Page(c, ""))
	})
}

// handleHome はトップページのハンドラーです。
func handleHome(authManager *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", authManager.Page(c, "Home"))
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		if err := repository.Ping(ctx, db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unavailable",
				"database": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "task-tracker",
			"version": "0.1.0",
		})
	}
}
