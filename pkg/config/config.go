package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogMode     string
	DatabaseURL string

	JWTSecret string
	JWTIssuer string

	OpenRouterAPIKey   string
	OpenRouterBase     string
	OpenRouterModel    string
	OpenRouterAppTitle string
	OpenRouterReferer  string

	SemIndexBaseURL        string
	SemIndexAPIKey         string
	SemIndexTimeoutSeconds int

	// Engine tuning.
	CoverageThreshold   float64
	MaxImplicitTopics   int
	SearchTopK          int
	LLMRetries          int
	CoverageConcurrency int
	CacheKeyStrategy    string // "auto" (role templates, then hash) or "hash"
}

// Load reads environment variables, optionally from a .env file if present.
func Load() Config {
	// Try to load .env if it exists; ignore error if file not found
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogMode:     getEnv("LOG_MODE", "dev"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change"),
		JWTIssuer: getEnv("JWT_ISSUER", "curricula-service"),

		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBase:     getEnv("OPENROUTER_BASE", ""),
		OpenRouterModel:    getEnv("OPENROUTER_MODEL", "qwen/qwen2.5-32b-instruct"),
		OpenRouterAppTitle: getEnv("OPENROUTER_APP_TITLE", "curricula"),
		OpenRouterReferer:  getEnv("OPENROUTER_REFERER", ""),

		SemIndexBaseURL:        os.Getenv("SEMINDEX_BASE_URL"),
		SemIndexAPIKey:         os.Getenv("SEMINDEX_API_KEY"),
		SemIndexTimeoutSeconds: getEnvInt("SEMINDEX_TIMEOUT_SECONDS", 8),

		CoverageThreshold:   getEnvFloat("COVERAGE_THRESHOLD", 0.75),
		MaxImplicitTopics:   getEnvInt("MAX_IMPLICIT_TOPICS", 5),
		SearchTopK:          getEnvInt("SEARCH_TOP_K", 12),
		LLMRetries:          getEnvInt("LLM_RETRIES", 1),
		CoverageConcurrency: getEnvInt("COVERAGE_CONCURRENCY", 6),
		CacheKeyStrategy:    getEnv("CACHE_KEY_STRATEGY", "auto"),
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
