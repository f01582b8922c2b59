// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// DevSessionSecret は debug/test モードで SESSION_SECRET 未設定時に使う開発用の鍵です。
// release モードでは使用できません。
const DevSessionSecret = "task-tracker-insecure-development-secret"

const minSessionSecretLength = 32

// DatabaseDriver は接続先データベースの種別です。
type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// セッション設定
	SessionSecret   string        // セッションクッキー署名用の秘密鍵
	SessionRedisURL string        // セッション台帳用Redis接続URL（空ならプロセス内で保持）
	SessionLifetime time.Duration // セッションの最大有効期間
	SessionIdle     time.Duration // 無操作タイムアウト
	BcryptCost      int           // パスワードハッシュのコスト

	// サーバー設定
	Port            string        // HTTPサーバーのポート番号
	GinMode         string        // Ginの実行モード (debug, release, test)
	ShutdownTimeout time.Duration // グレースフルシャットダウンの待ち時間

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// データベース設定
	DatabaseURL   string // SQLiteのパス/DSN または postgres:// URL
	DatabaseDebug bool   // GORMのSQLログを出すかどうか
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	ginMode := getEnv("GIN_MODE", "debug")
	devDefault := func(value string) string {
		if ginMode == "release" {
			return ""
		}
		return value
	}

	config := &Config{
		SessionSecret:   getEnv("SESSION_SECRET", devDefault(DevSessionSecret)),
		SessionRedisURL: getEnv("SESSION_REDIS_URL", ""),
		SessionLifetime: time.Duration(getEnvAsInt("SESSION_LIFETIME_MINUTES", 720)) * time.Minute,
		SessionIdle:     time.Duration(getEnvAsInt("SESSION_IDLE_MINUTES", 30)) * time.Minute,
		BcryptCost:      clampCost(getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost)),

		Port:            getEnv("PORT", "8080"),
		GinMode:         ginMode,
		ShutdownTimeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080"),

		DatabaseURL:   getEnv("DATABASE_URL", devDefault("tasks.db")),
		DatabaseDebug: getEnvAsBool("DB_DEBUG", false),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.SessionLifetime <= 0 {
		return fmt.Errorf("SESSION_LIFETIME_MINUTES must be positive")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SESSION_IDLE_MINUTES must be positive")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.AllowedOrigins()) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	// 本番では開発用の既定値を許可しない
	if c.GinMode == "release" {
		if c.SessionSecret == DevSessionSecret {
			return fmt.Errorf("SESSION_SECRET must not use the development default in release mode")
		}
		if len(c.SessionSecret) < minSessionSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", minSessionSecretLength)
		}
	}

	return nil
}

// Driver は DATABASE_URL からドライバー種別を判定します。
func (c *Config) Driver() DatabaseDriver {
	lower := strings.ToLower(c.DatabaseURL)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func clampCost(cost int) int {
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
