package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// AI Providers, tried in order OpenAI -> DeepSeek -> GLM
	OpenAIAPIKey   string
	OpenAIAPIURL   string
	OpenAIModel    string
	OpenAITTSURL   string
	OpenAITTSModel string
	OpenAITTSVoice string

	DeepSeekAPIKey string
	DeepSeekAPIURL string
	DeepSeekModel  string

	GLMAPIKey string
	GLMAPIURL string
	GLMModel  string

	AITimeout time.Duration

	// Admin
	AdminEmails            string
	AdminUserIDs           string
	AdminToken             string
	AdminBootstrapEmail    string
	AdminBootstrapPassword string

	// Subscriptions
	RevenueCatWebhookAuth string

	// Product
	AppName              string
	SupportEmail         string
	FreeDailyConfessions int
	DefaultLanguage      string

	// Logging
	LogFormat        string
	LogLevel         string
	LogRetentionDays int

	// Server
	Port           string
	CORSOrigins    string
	MetricsEnabled bool
	SentryDSN      string
	AppEnv         string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables always win over it.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "confession_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "confession.db"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL:   getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITTSURL:   getEnv("OPENAI_TTS_URL", "https://api.openai.com/v1/audio/speech"),
		OpenAITTSModel: getEnv("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice: getEnv("OPENAI_TTS_VOICE", "onyx"),

		DeepSeekAPIKey: getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		DeepSeekModel:  getEnv("DEEPSEEK_MODEL", "deepseek-chat"),

		GLMAPIKey: getEnv("GLM_API_KEY", ""),
		GLMAPIURL: getEnv("GLM_API_URL", "https://api.z.ai/api/paas/v4/chat/completions"),
		GLMModel:  getEnv("GLM_MODEL", "glm-5"),

		AITimeout: parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		AdminEmails:            getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs:           getEnv("ADMIN_USER_IDS", ""),
		AdminToken:             getEnv("ADMIN_TOKEN", ""),
		AdminBootstrapEmail:    getEnv("ADMIN_BOOTSTRAP_EMAIL", ""),
		AdminBootstrapPassword: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),

		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_AUTH", ""),

		AppName:              getEnv("APP_NAME", "AI Confession"),
		SupportEmail:         getEnv("SUPPORT_EMAIL", "support@aiconfession.app"),
		FreeDailyConfessions: parseInt(getEnv("FREE_DAILY_CONFESSIONS", "2"), 2),
		DefaultLanguage:      getEnv("DEFAULT_LANGUAGE", "Русский"),

		LogFormat:        getEnv("LOG_FORMAT", "json"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		MetricsEnabled: getEnv("METRICS_ENABLED", "true") == "true",
		SentryDSN:      getEnv("SENTRY_DSN", ""),
		AppEnv:         getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// UsesSQLite reports whether the local SQLite driver is selected.
func (c *Config) UsesSQLite() bool {
	return c.DBDriver == "sqlite"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
