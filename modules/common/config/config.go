package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config - 全環境変数を保持する構造体
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string

	// Gemini API
	GeminiAPIKeys     []string
	GeminiVisionModel string
	GeminiTextModel   string
	GeminiImageModel  string
	GeminiCallTimeout time.Duration

	// Server
	Port string
}

var globalConfig *Config

// LoadConfig - 環境変数の読み込み
func LoadConfig() (*Config, error) {
	// .env ファイルを読み込む（あれば）
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	// Redis UseTLS パース
	useTLS := false
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	// Gemini API キー（カンマ区切りで複数指定可、レート制限時に順番に試す）
	var apiKeys []string
	for _, key := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			apiKeys = append(apiKeys, key)
		}
	}
	if len(apiKeys) == 0 {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			apiKeys = append(apiKeys, key)
		}
	}

	// AI 呼び出しタイムアウト
	callTimeout := 180 * time.Second
	if timeoutStr := os.Getenv("GEMINI_CALL_TIMEOUT_SEC"); timeoutStr != "" {
		if parsed, err := strconv.Atoi(timeoutStr); err == nil && parsed > 0 {
			callTimeout = time.Duration(parsed) * time.Second
		}
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		// Supabase
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "bento-pro-history"),

		// Gemini API
		GeminiAPIKeys:     apiKeys,
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-3-pro-preview"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiCallTimeout: callTimeout,

		// Server
		Port: getEnv("PORT", "8080"),
	}

	// 必須環境変数の検証
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s (bucket: %s)", globalConfig.SupabaseURL, globalConfig.StorageBucket)
	log.Printf("   Gemini: vision=%s text=%s image=%s (%d keys)",
		globalConfig.GeminiVisionModel, globalConfig.GeminiTextModel, globalConfig.GeminiImageModel, len(globalConfig.GeminiAPIKeys))

	return globalConfig, nil
}

// GetConfig - 読み込み済み設定を取得
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// validate - 必須環境変数の検証
func (c *Config) validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// getEnv - 環境変数取得（デフォルト値対応）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetRedisAddr - Redis 接続文字列の生成
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
