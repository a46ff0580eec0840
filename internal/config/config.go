// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup and never mutated afterwards. Passed to other
// packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 5000).
	Port int

	// BaseURL is the public-facing URL of the frontend.
	BaseURL string

	// CORSOrigins are the origins allowed to call the API in production.
	CORSOrigins []string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Mail holds the default SMTP transport settings.
	Mail MailConfig

	// OAuth holds the Google OAuth client settings.
	OAuth OAuthConfig

	// AI holds the text-to-HTML generation settings.
	AI AIConfig

	// RateLimit holds the /api/email rate limit settings.
	RateLimit RateLimitConfig

	// Upload holds attachment upload limits.
	Upload UploadConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so
// container orchestrators can manage each independently.
// If DATABASE_URL is set, it takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	User     string
	Password string
	Name     string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// fields using the driver's Config.FormatDSN() to safely handle special
// characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// MailConfig is the process-wide transport configuration for password-mode
// dispatch. Per-message data never lives here.
type MailConfig struct {
	// Host is the SMTP server (default: "smtp.gmail.com").
	Host string

	// Port is the SMTP port (default: 587).
	Port int

	// ImplicitTLS dials TLS directly (port 465 style) instead of STARTTLS.
	ImplicitTLS bool

	// StrictTLS enables certificate chain validation. Off by default so
	// self-signed and misconfigured servers still work.
	StrictTLS bool

	// Timeout bounds one dispatch or connection test end to end.
	Timeout time.Duration
}

// Addr returns host:port for dialing.
func (m MailConfig) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// OAuthConfig holds the Google OAuth2 client registration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// StateTTL is how long an issued OAuth state value stays redeemable.
	StateTTL time.Duration
}

// AIConfig holds the Gemini settings used by the AI plugin.
type AIConfig struct {
	// APIKey is empty when AI conversion is not configured.
	APIKey string

	// Model is the Gemini model name (default: "gemini-2.5-flash").
	Model string

	// Timeout bounds one generation request.
	Timeout time.Duration
}

// RateLimitConfig holds the per-IP fixed window for the email API.
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// UploadConfig holds attachment upload limits.
type UploadConfig struct {
	// MaxSize is the maximum size of a single attachment in bytes.
	MaxSize int64

	// MaxFiles is the maximum number of attachments per message.
	MaxFiles int
}

// Load reads configuration from environment variables with sensible defaults.
// Outside production a .env file in the working directory is loaded first;
// variables already present in the environment win over the file.
func Load() (*Config, error) {
	if !isProduction(getEnv("ENV", "development")) {
		if err := godotenv.Load(); err == nil {
			slog.Debug("loaded .env file")
		}
	}

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnvInt("PORT", 5000),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "mailcraft"),
			Password:        getEnv("DB_PASSWORD", "mailcraft"),
			Name:            getEnv("DB_NAME", "mailcraft"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "db/migrations"),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Mail: MailConfig{
			Host:        getEnv("EMAIL_HOST", "smtp.gmail.com"),
			Port:        getEnvInt("EMAIL_PORT", 587),
			ImplicitTLS: getEnvBool("EMAIL_SECURE", false),
			StrictTLS:   getEnvBool("EMAIL_STRICT_TLS", false),
			Timeout:     getEnvDuration("EMAIL_TIMEOUT", 30*time.Second),
		},

		OAuth: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
			StateTTL:     getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),
		},

		AI: AIConfig{
			APIKey:  firstEnv("GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "API_KEY"),
			Model:   getEnv("AI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("AI_TIMEOUT", 60*time.Second),
		},

		RateLimit: RateLimitConfig{
			Window:      getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			MaxRequests: getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100),
		},

		Upload: UploadConfig{
			MaxSize:  getEnvInt64("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			MaxFiles: getEnvInt("MAX_ATTACHMENTS", 10),
		},
	}

	if cfg.Mail.Port <= 0 || cfg.Mail.Port > 65535 {
		return nil, fmt.Errorf("EMAIL_PORT must be between 1 and 65535, got %d", cfg.Mail.Port)
	}
	if cfg.Mail.Timeout <= 0 {
		return nil, fmt.Errorf("EMAIL_TIMEOUT must be positive")
	}

	if cfg.IsProduction() {
		if cfg.OAuth.ClientID != "" && cfg.OAuth.RedirectURI == "" {
			return nil, fmt.Errorf("GOOGLE_REDIRECT_URI is required in production when OAuth is enabled")
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode. Diagnostic
// detail is only surfaced to API callers when this is true.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" or "prod" in any case.
func (c *Config) IsProduction() bool {
	return isProduction(c.Env)
}

func isProduction(env string) bool {
	env = strings.ToLower(env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// firstEnv returns the first non-empty value among the given keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvInt64 reads an int64 env var or returns the default.
func getEnvInt64(key string, defaultVal int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean env var ("true", "1", ...) or returns the default.
func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "30s") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var, dropping empty entries.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
