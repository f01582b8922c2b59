// Package main はタスク管理サーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-tracker/internal/auth"
	"github.com/yourusername/task-tracker/internal/config"
	"github.com/yourusername/task-tracker/internal/repository"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	db, err := repository.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	registry, closeRegistry, err := setupRegistry(cfg)
	if err != nil {
		log.Fatalf("Failed to set up session registry: %v", err)
	}

	router, err := newRouter(cfg, db, registry, log.Default())
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on %s (mode: %s)", server.Addr, cfg.GinMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"task-tracker": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				// リクエストの処理が終わってから接続を閉じる
				if err := server.Shutdown(ctx); err != nil {
					return err
				}
				if err := closeRegistry(); err != nil {
					log.Printf("Failed to close session registry: %v", err)
				}
				return repository.Close(db)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Server exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// setupRegistry は SESSION_REDIS_URL があれば Redis、なければプロセス内のセッション台帳を返します。
func setupRegistry(cfg *config.Config) (auth.Registry, func() error, error) {
	if cfg.SessionRedisURL == "" {
		log.Printf("SESSION_REDIS_URL is not set; sessions are kept in memory")
		return auth.NewMemoryRegistry(), func() error { return nil }, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	registry, err := auth.NewRedisRegistryFromURL(ctx, cfg.SessionRedisURL)
	if err != nil {
		return nil, nil, err
	}
	return registry, registry.Close, nil
}
