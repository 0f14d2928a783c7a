package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AI providers selectable with AI_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	SslCertPath  string

	AIProvider   string
	GeminiAPIKey string
	OpenAIAPIKey string
	EmbedModel   string
	EmbedDim     int
	GenModel     string

	Port           string
	AllowedOrigins []string

	ViewerBaseURL     string
	ViewerTokenSecret string
	ViewerTokenTTL    time.Duration

	IngestWorkers  int
	IngestQueue    int
	IndexBatchSize int
	MaxUploadBytes int64

	HeuristicsFile string
	LogLevel       string
}

// LoadConfig loads the environment variables (and a .env file if present) and
// returns the config. Call Validate before using it.
func LoadConfig() *Config {
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("AI_PROVIDER", ProviderGemini))
	embedModel, genModel := "text-embedding-004", "gemini-1.5-flash"
	if provider == ProviderOpenAI {
		embedModel, genModel = "text-embedding-3-small", "gpt-4o-mini"
	}

	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "docsift-docs"),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),

		AIProvider:   provider,
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		EmbedModel:   getEnv("EMBED_MODEL", embedModel),
		EmbedDim:     getEnvInt("EMBED_DIM", 768),
		GenModel:     getEnv("GEN_MODEL", genModel),

		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),

		ViewerBaseURL:     getEnv("VIEWER_BASE_URL", "http://localhost:8080/viewer"),
		ViewerTokenSecret: getEnv("VIEWER_TOKEN_SECRET", ""),
		ViewerTokenTTL:    getEnvDuration("VIEWER_TOKEN_TTL", 24*time.Hour),

		IngestWorkers:  getEnvInt("INGEST_WORKERS", 2),
		IngestQueue:    getEnvInt("INGEST_QUEUE", 100),
		IndexBatchSize: getEnvInt("INDEX_BATCH_SIZE", 1000),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),

		HeuristicsFile: getEnv("HEURISTICS_FILE", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings every entry point needs.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.AIProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.AIProvider)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive")
	}
	if c.ViewerTokenSecret == "" {
		return fmt.Errorf("VIEWER_TOKEN_SECRET is required")
	}
	if c.ViewerTokenTTL <= 0 {
		return fmt.Errorf("VIEWER_TOKEN_TTL must be positive")
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("INGEST_WORKERS must be positive")
	}
	if c.IndexBatchSize <= 0 || c.IndexBatchSize > 1000 {
		return fmt.Errorf("INDEX_BATCH_SIZE must be between 1 and 1000")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger is the JSON logger shared by the binaries.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.SlogLevel()}))
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, ""), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
