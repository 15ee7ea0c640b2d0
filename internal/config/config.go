package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	CorsOrigins    []string
	TrustedProxies []string // addresses or CIDRs allowed to set X-Forwarded-For

	// Database
	DatabaseType string // sqlite, postgres, pgx, mysql
	DatabasePath string
	DatabaseURL  string

	// Logging
	LogLevel  string
	LogFile   string
	LogFormat string

	// Auth
	JWTSecret      string
	JWTIssuer      string
	ServiceKeyHash string

	// Upstream content providers
	AIAPIURL          string
	AIAPIKey          string
	AIModel           string
	GoogleBooksURL    string
	GoogleBooksAPIKey string
	OpenLibraryURL    string
	YouTubeAPIURL     string
	YouTubeAPIKey     string
	UpstreamTimeout   time.Duration

	// Email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool

	// Quiz behaviour
	StreakTimezone     string
	QuizFeedbackDelay  time.Duration
	QuizSessionTTL     time.Duration
	PopularityInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:  getEnv("PORT", "8080"),
		CorsOrigins: getEnvList("CORS_ORIGINS"),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./readquest.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", ""),
		ServiceKeyHash: getEnv("SERVICE_KEY_HASH", ""),

		AIAPIURL:          getEnv("AI_API_URL", "https://api.openai.com/v1/chat/completions"),
		AIAPIKey:          getEnv("AI_API_KEY", ""),
		AIModel:           getEnv("AI_MODEL", "gpt-4o-mini"),
		GoogleBooksURL:    getEnv("GOOGLE_BOOKS_URL", "https://www.googleapis.com/books/v1"),
		GoogleBooksAPIKey: getEnv("GOOGLE_BOOKS_API_KEY", ""),
		OpenLibraryURL:    getEnv("OPEN_LIBRARY_URL", "https://openlibrary.org"),
		YouTubeAPIURL:     getEnv("YOUTUBE_API_URL", "https://www.googleapis.com/youtube/v3"),
		YouTubeAPIKey:     getEnv("YOUTUBE_API_KEY", ""),
		UpstreamTimeout:   getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "ReadQuest"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),
		EmailDebug:   getEnvBool("EMAIL_DEBUG", false),

		StreakTimezone:     getEnv("STREAK_TIMEZONE", "UTC"),
		QuizFeedbackDelay:  getEnvDuration("QUIZ_FEEDBACK_DELAY", 2*time.Second),
		QuizSessionTTL:     getEnvDuration("QUIZ_SESSION_TTL", 2*time.Hour),
		PopularityInterval: getEnvDuration("POPULARITY_INTERVAL", 15*time.Minute),
	}
}

// Location resolves the streak timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.StreakTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			items = append(items, value)
		}
	}
	return items
}
