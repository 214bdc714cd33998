// Package config loads and validates the service's runtime
// configuration from environment variables, grounded on the teacher's
// internal/config.LoadConfig: env-var getters with defaults, struct-tag
// validation via github.com/go-playground/validator/v10.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete runtime configuration, covering spec §6's
// enumerated settings plus the ambient server/auth/CORS surface.
type Config struct {
	Server  Server  `validate:"required"`
	Session Session `validate:"required"`
	LLM     LLM     `validate:"required"`
	Auth    Auth
	CORS    CORS
}

// Server contains HTTP listener settings.
type Server struct {
	Address         string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"min=1s"`
	WriteTimeout    time.Duration `validate:"min=1s"`
	ShutdownTimeout time.Duration `validate:"min=1s"`
	DataDir         string        `validate:"required"`
	MetricsPath     string        `validate:"required,startswith=/"`
}

// SessionEvictionPolicy is the closed set spec §6 names for
// SessionRegistry's backpressure behavior.
type SessionEvictionPolicy string

const (
	EvictionNone SessionEvictionPolicy = "none"
	EvictionLRU  SessionEvictionPolicy = "lru"
)

// Session contains the per-session defaults spec §6 enumerates:
// window_size, processing_delay, hot_buffer_size, context_default_depth,
// max_context_length, session_eviction_policy.
type Session struct {
	WindowSize          int                   `validate:"min=2"`
	ProcessingDelay     int                   `validate:"min=0"`
	HotBufferSize       int                   `validate:"min=1"`
	ContextDefaultDepth int                   `validate:"min=0"`
	MaxContextLength    int                   `validate:"min=1"`
	EvictionPolicy      SessionEvictionPolicy `validate:"oneof=none lru"`
	MaxSessions         int                   `validate:"min=1"` // only enforced when EvictionPolicy is lru
}

// LLM contains extractor selection and request-timeout settings.
type LLM struct {
	Enabled        bool
	RequestTimeout time.Duration `validate:"min=1s"`
}

// Auth holds the optional bearer-JWT settings; Enabled turns auth on, and
// validation then requires a non-empty Secret.
type Auth struct {
	Enabled bool
	Secret  string `validate:"required_if=Enabled true"`
}

// CORS mirrors the teacher's allow-list shape.
type CORS struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load reads configuration from the environment with sensible defaults
// matching spec §6, then validates it.
func Load() (Config, error) {
	cfg := Config{
		Server: Server{
			Address:         getEnvString("SERVER_ADDRESS", ":8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			DataDir:         getEnvString("DATA_DIR", "./data"),
			MetricsPath:     getEnvString("METRICS_PATH", "/metrics"),
		},
		Session: Session{
			WindowSize:          getEnvInt("WINDOW_SIZE", 4),
			ProcessingDelay:     getEnvInt("PROCESSING_DELAY", 1),
			HotBufferSize:       getEnvInt("HOT_BUFFER_SIZE", 10),
			ContextDefaultDepth: getEnvInt("CONTEXT_DEFAULT_DEPTH", 1),
			MaxContextLength:    getEnvInt("MAX_CONTEXT_LENGTH", 4000),
			EvictionPolicy:      SessionEvictionPolicy(getEnvString("SESSION_EVICTION_POLICY", "none")),
			MaxSessions:         getEnvInt("MAX_SESSIONS", 1000),
		},
		LLM: LLM{
			Enabled:        getEnvBool("ENABLE_LLM_EXTRACTOR", false),
			RequestTimeout: getEnvDuration("LLM_REQUEST_TIMEOUT", 180*time.Second),
		},
		Auth: Auth{
			Enabled: getEnvBool("ENABLE_AUTH", false),
			Secret:  getEnvString("JWT_SECRET", ""),
		},
		CORS: CORS{
			AllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation over the config.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s validation", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("config validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Session.ProcessingDelay >= c.Session.WindowSize {
		return fmt.Errorf("config validation failed: processing_delay must be less than window_size")
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}
