package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultMatchExclude はタイトルに含まれる場合に候補から除外するフレーズの既定値。
// 相談記事や美容・健康食品の宣伝記事は流行報道ではないため除外する。
var defaultMatchExclude = []string{
	"tư vấn", "hỏi đáp", "lời khuyên", "có nên", "thực phẩm chức năng",
	"giảm cân", "làm đẹp", "bí quyết", "mẹo", "ăn gì", "uống gì",
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Fetch
	FetchTimeout       time.Duration
	FetchMaxSize       int64
	FetchMaxConcurrent int
	FetchUserAgent     string

	// Feed catalog
	FeedCatalogFile string

	// Matching
	MatchMode    string
	MatchExclude []string

	// Stats
	Timezone          string
	AlertWindowDays   int
	AlertBaselineDays int
	AlertRatio        float64
	AlertMinCount     int

	// Worker
	ScanSchedule  string
	ScanDaysLimit int

	// Rate Limit
	ScanRateLimit int

	// Logging
	LogLevel string

	// Server
	ServerPort  string
	MetricsPort string // ワーカーモードでの/metrics公開ポート。空の場合は公開しない

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	// Optional fields with defaults
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchMaxConcurrent = getEnvInt("FETCH_MAX_CONCURRENT", 10)
	cfg.FetchUserAgent = getEnvString("FETCH_USER_AGENT", "episcout/1.0")
	cfg.FeedCatalogFile = getEnvString("FEED_CATALOG_FILE", "")
	cfg.MatchMode = strings.ToLower(getEnvString("MATCH_MODE", "exact"))
	cfg.MatchExclude = getEnvList("MATCH_EXCLUDE", defaultMatchExclude)
	cfg.Timezone = getEnvString("TIMEZONE", "Asia/Ho_Chi_Minh")
	cfg.AlertWindowDays = getEnvInt("ALERT_WINDOW_DAYS", 7)
	cfg.AlertBaselineDays = getEnvInt("ALERT_BASELINE_DAYS", 7)
	cfg.AlertRatio = getEnvFloat("ALERT_RATIO", 2.0)
	cfg.AlertMinCount = getEnvInt("ALERT_MIN_COUNT", 3)
	cfg.ScanSchedule = getEnvString("SCAN_SCHEDULE", "@every 30m")
	cfg.ScanDaysLimit = getEnvInt("SCAN_DAYS_LIMIT", 3)
	cfg.ScanRateLimit = getEnvInt("SCAN_RATE_LIMIT", 6)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9091")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.MatchMode != "exact" && cfg.MatchMode != "fold" {
		return nil, fmt.Errorf("MATCH_MODE must be exact or fold: %q", cfg.MatchMode)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location は集計に使用するタイムゾーンを返す。
// Loadで検証済みのため、失敗時はUTCにフォールバックする。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数を読み込む。
// "-" が指定された場合は空リストを返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if strings.TrimSpace(v) == "-" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
