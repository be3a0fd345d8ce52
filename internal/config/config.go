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
)

// ストアの実装種別
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
)

// devSessionKey はローカル開発用の署名鍵です。release モードでは使用できません。
const devSessionKey = "cookie-auth-dev-session-key-change-me"

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// セッション設定
	SessionKeys       []string      // Cookie署名鍵（先頭が最新で署名に使用、全て検証に使用）
	SessionCookieName string        // セッションCookie名
	SessionTTL        time.Duration // セッションの有効期限

	// パスワードハッシュ設定
	BcryptCost      int // bcryptのコスト
	HashConcurrency int // 同時に実行するハッシュ計算の上限

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ユーザーストア設定
	StoreDriver      string // memory, postgres, redis
	DatabaseURL      string // PostgreSQL接続URL
	RedisURL         string // ユーザーストア用Redis接続URL
	DBConnectRetries int    // 起動時の接続リトライ回数

	// ジョブ/キュー設定
	QueueRedisURL string        // Asynq用Redis接続URL（空ならアクティビティ記録を無効化）
	ActivityTTL   time.Duration // アクティビティ記録の保持期間

	// ログ設定
	LogFormat string // json または text
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// セッション設定
		SessionKeys:       getEnvAsList("SESSION_KEYS"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session"),
		SessionTTL:        time.Duration(getEnvAsInt("SESSION_TTL_SECONDS", 3600)) * time.Second,

		// パスワードハッシュ設定
		BcryptCost:      getEnvAsInt("BCRYPT_COST", 12),
		HashConcurrency: getEnvAsInt("HASH_CONCURRENCY", 4),

		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// ユーザーストア設定
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMemory)),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		DBConnectRetries: getEnvAsInt("DB_CONNECT_RETRIES", 5),

		// ジョブ/キュー設定
		QueueRedisURL: getEnv("QUEUE_REDIS_URL", ""),
		ActivityTTL:   time.Duration(getEnvAsInt("ACTIVITY_TTL_HOURS", 720)) * time.Hour,

		// ログ設定
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// 開発モードでは署名鍵が無くても起動できるようにする
	if len(config.SessionKeys) == 0 && config.GinMode != "release" {
		config.SessionKeys = []string{devSessionKey}
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
	if len(c.SessionKeys) == 0 {
		return fmt.Errorf("SESSION_KEYS is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_SECONDS must be positive")
	}
	if c.HashConcurrency <= 0 {
		return fmt.Errorf("HASH_CONCURRENCY must be positive")
	}

	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}

	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		for _, key := range c.SessionKeys {
			if key == devSessionKey {
				return fmt.Errorf("SESSION_KEYS must not contain the development key in release mode")
			}
		}
		if c.StoreDriver == StoreDriverMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in release mode")
		}
	}

	return nil
}

// SessionKeyPairs は Cookie ストアに渡す鍵ペアを返します。
// 署名のみ行うため暗号化鍵は nil にします。
func (c *Config) SessionKeyPairs() [][]byte {
	pairs := make([][]byte, 0, len(c.SessionKeys)*2)
	for _, key := range c.SessionKeys {
		pairs = append(pairs, []byte(key), nil)
	}
	return pairs
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

// getEnvAsList はカンマ区切りの環境変数を空要素を除いて取得します。
func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
