package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hellenic-development/design-audit/pkg/httpretry"
)

type Config struct {
	Server ServerConfig
	App    AppConfig
	Figma  FigmaConfig
	Vision VisionConfig
	Audit  AuditConfig
	Cache  CacheConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

type AppConfig struct {
	Environment string
	Version     string
}

type FigmaConfig struct {
	AccessToken   string
	APIBase       string
	MaxFrames     int
	BatchSize     int
	BatchDelay    time.Duration
	MaxRetries    int
	RetryBase     time.Duration
	RetryStrategy string
}

type VisionConfig struct {
	APIKey string
	APIURL string
	Model  string
}

type AuditConfig struct {
	Concurrency    int
	HeuristicsFile string
}

type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	TTL           time.Duration
}

// Enabled reports whether a Redis address is configured.
func (c CacheConfig) Enabled() bool { return c.RedisAddr != "" }

// Load reads the given env files (default .env) and then the environment.
// Missing env files are not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "dev"),
		},
		Figma: FigmaConfig{
			AccessToken:   getEnv("FIGMA_ACCESS_TOKEN", ""),
			APIBase:       getEnv("FIGMA_API_BASE", "https://api.figma.com/v1"),
			MaxFrames:     getEnvAsInt("FIGMA_MAX_FRAMES", 10),
			BatchSize:     getEnvAsInt("FIGMA_BATCH_SIZE", 5),
			BatchDelay:    getEnvAsDuration("FIGMA_BATCH_DELAY", 1500*time.Millisecond),
			MaxRetries:    getEnvAsInt("FIGMA_MAX_RETRIES", 3),
			RetryBase:     getEnvAsDuration("RETRY_BASE_DELAY", httpretry.DefaultBaseDelay),
			RetryStrategy: getEnv("RETRY_STRATEGY", "exponential"),
		},
		Vision: VisionConfig{
			APIKey: getEnv("VISION_API_KEY", ""),
			APIURL: getEnv("VISION_API_URL", "https://api.openai.com/v1/chat/completions"),
			Model:  getEnv("VISION_MODEL", "gpt-4o"),
		},
		Audit: AuditConfig{
			Concurrency:    getEnvAsInt("AUDIT_CONCURRENCY", 3),
			HeuristicsFile: getEnv("HEURISTICS_FILE", ""),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			TTL:           getEnvAsDuration("CACHE_TTL", 10*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks structural settings. Credentials are not required here;
// the operations that need them fail with a configuration error instead.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Figma.MaxFrames < 1 {
		return fmt.Errorf("FIGMA_MAX_FRAMES must be at least 1")
	}
	if c.Figma.BatchSize < 1 {
		return fmt.Errorf("FIGMA_BATCH_SIZE must be at least 1")
	}
	if c.Figma.MaxRetries < 0 {
		return fmt.Errorf("FIGMA_MAX_RETRIES must not be negative")
	}
	if c.Audit.Concurrency < 1 {
		return fmt.Errorf("AUDIT_CONCURRENCY must be at least 1")
	}
	if _, err := httpretry.ParsePolicy(c.Figma.RetryStrategy, c.Figma.RetryBase); err != nil {
		return fmt.Errorf("RETRY_STRATEGY: %w", err)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsDuration accepts Go durations ("1500ms", "2s") or plain milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if ms, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
