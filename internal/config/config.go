// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
)

// ストレージバックエンドの種別。
const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StoreBackend string // "file" または "postgres"
	DatabaseURL  string // postgresバックエンドで必須
	DemoDBPath   string // fileバックエンドのJSONドキュメントのパス

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitAI      int

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Upload
	UploadMaxSize int64

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// STORE_BACKENDがpostgresの場合、DATABASE_URLが未設定だとエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.StoreBackend = getEnvString("STORE_BACKEND", StoreBackendFile)
	if cfg.StoreBackend != StoreBackendFile && cfg.StoreBackend != StoreBackendPostgres {
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q (must be %q or %q)",
			cfg.StoreBackend, StoreBackendFile, StoreBackendPostgres)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreBackend == StoreBackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: [DATABASE_URL]")
	}

	cfg.DemoDBPath = getEnvString("DEMO_DB_PATH", "data/demo-db.json")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAI = getEnvInt("RATE_LIMIT_AI", 10)

	// GEMINI_API_KEYを優先し、無ければGOOGLE_GENERATIVE_AI_API_KEYを見る
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY")
	}
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "")

	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 5*1024*1024)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}
