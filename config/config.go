// ABOUTME: Configuration loader for the gateway service
// ABOUTME: Loads settings from an optional .env file and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	// Server
	Port               string
	Environment        string   // development, production, test (default: development)
	CookieSecure       bool     // Secure flag on the session cookie (default: true in production only)
	LogLevel           string   // debug, info, warn, error
	LogFormat          string   // text, json
	CORSAllowedOrigins []string // allowed CORS origins (empty = block all cross-origin)

	// Page gating
	ProtectedPrefixes []string // path prefixes that require a session cookie (default: /dashboard)
	LoginPath         string   // redirect target for unauthenticated page requests (default: /login)
	FrontendURL       string   // upstream for page routes; empty serves the built-in shell

	// Observability
	MetricsEnabled bool
	TracingEnabled bool

	// Rate Limiting
	RateLimitEnabled bool // Enable rate limiting (default: true)
	RateLimitAuth    int  // Requests per minute for login/register (default: 10)

	// Workflow backend
	UpstreamTimeout  time.Duration // per-call deadline (default: 30s)
	UpstreamAllProxy string        // optional ssh+socks5:// tunnel for webhook traffic
	Upstreams        *Upstreams
}

// Production reports whether the service runs with production settings.
func (c *Config) Production() bool {
	return c.Environment == EnvProduction
}

func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	environment := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Environment:        environment,
		CookieSecure:       getEnvBool("COOKIE_SECURE", environment == EnvProduction),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),

		ProtectedPrefixes: normalizePrefixes(getEnvStringList("PROTECTED_PREFIXES")),
		LoginPath:         getEnv("LOGIN_PATH", "/login"),
		FrontendURL:       os.Getenv("FRONTEND_URL"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitAuth:    getEnvInt("RATE_LIMIT_AUTH", 10),

		UpstreamTimeout:  getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		UpstreamAllProxy: os.Getenv("UPSTREAM_ALL_PROXY"),
		Upstreams:        upstreamsFromEnv(),
	}

	if len(cfg.ProtectedPrefixes) == 0 {
		cfg.ProtectedPrefixes = []string{"/dashboard"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("APP_ENV must be one of development, production, test, got %q", c.Environment)
	}

	if c.RateLimitAuth < 1 || c.RateLimitAuth > 10000 {
		return fmt.Errorf("RATE_LIMIT_AUTH must be between 1 and 10000, got %d", c.RateLimitAuth)
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}

	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("LOGIN_PATH must start with /, got %q", c.LoginPath)
	}

	for _, prefix := range c.ProtectedPrefixes {
		if !strings.HasPrefix(prefix, "/") || prefix == "/" {
			return fmt.Errorf("PROTECTED_PREFIXES entries must be non-root absolute paths, got %q", prefix)
		}
		if c.LoginPath == prefix || strings.HasPrefix(c.LoginPath, prefix+"/") {
			return fmt.Errorf("LOGIN_PATH %q must not be under protected prefix %q", c.LoginPath, prefix)
		}
	}

	if c.FrontendURL != "" {
		u, err := url.Parse(c.FrontendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("FRONTEND_URL must be an absolute http(s) URL, got %q", c.FrontendURL)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s", "2m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
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

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// normalizePrefixes drops trailing slashes so "/dashboard/" and "/dashboard" match alike.
func normalizePrefixes(prefixes []string) []string {
	for i, p := range prefixes {
		if len(p) > 1 {
			prefixes[i] = strings.TrimRight(p, "/")
			if prefixes[i] == "" {
				prefixes[i] = "/"
			}
		}
	}
	return prefixes
}
