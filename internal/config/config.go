package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=sijuk port=5432 sslmode=disable"

type Config struct {
	AppEnv      string
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	LogLevel    string

	RedisAddr         string // kosong = cache dashboard nonaktif
	RedisPassword     string
	RedisDB           int
	DashboardCacheTTL time.Duration

	LoginRateLimit   string // format ulule/limiter, mis. "10-M"
	LowMarginPercent decimal.Decimal

	TelegramBotToken string
	TelegramChatID   int64

	MetricsEnabled bool
	MetricsAddr    string // listener terpisah, bukan port publik

	// Peringatan konfigurasi, dicatat setelah logger siap.
	Warnings []string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		LoginRateLimit: getEnv("LOGIN_RATE_LIMIT", "10-M"),
		MetricsAddr:    getEnv("METRICS_ADDR", "127.0.0.1:9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB tidak valid: %w", err)
	}
	if cfg.DashboardCacheTTL, err = time.ParseDuration(getEnv("DASHBOARD_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("DASHBOARD_CACHE_TTL tidak valid: %w", err)
	}
	if cfg.LowMarginPercent, err = decimal.NewFromString(getEnv("LOW_MARGIN_PERCENT", "10")); err != nil {
		return nil, fmt.Errorf("LOW_MARGIN_PERCENT tidak valid: %w", err)
	}
	if cfg.LowMarginPercent.IsNegative() || cfg.LowMarginPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("LOW_MARGIN_PERCENT harus 0-100")
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(getEnv("METRICS_ENABLED", "true")); err != nil {
		return nil, fmt.Errorf("METRICS_ENABLED tidak valid: %w", err)
	}
	if chat := getEnv("TELEGRAM_CHAT_ID", ""); chat != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(chat, 10, 64); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID tidak valid: %w", err)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET belum diset")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET minimal 32 karakter")
	}

	if cfg.DatabaseDSN == defaultDSN {
		cfg.Warnings = append(cfg.Warnings, "DATABASE_DSN memakai nilai default")
	}
	if cfg.CORSOrigins == "http://localhost:3000" {
		cfg.Warnings = append(cfg.Warnings, "CORS_ALLOWED_ORIGINS memakai nilai default")
	}

	return cfg, nil
}

// AllowedOrigins normalises the comma separated CORS list.
func (c *Config) AllowedOrigins() string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
