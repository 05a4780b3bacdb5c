package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	ServerPort      int
	DatabasePath    string
	Environment     string // "development" or "production"
	LogLevel        string
	JWTSecret       string
	TokenTTL        time.Duration
	UploadPath      string // Base path for listing photos
	PublicURL       string // Prefix used when building photo URLs
	CORSOrigins     []string
	MaintenanceCron string // Standard cron expression for housekeeping jobs
	ListingCacheTTL time.Duration
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("LISTING_CACHE_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid LISTING_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		ServerPort:      port,
		DatabasePath:    getEnv("DATABASE_PATH", "./bybo.db"),
		Environment:     getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        tokenTTL,
		UploadPath:      getEnv("UPLOAD_PATH", "./uploads"),
		PublicURL:       strings.TrimRight(getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		MaintenanceCron: getEnv("MAINTENANCE_CRON", "@hourly"),
		ListingCacheTTL: cacheTTL,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		// Development only. Tokens will not survive a restart with a different secret.
		c.JWTSecret = "dev-secret-change-me"
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
