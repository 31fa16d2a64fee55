package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// StoreBackend selects where projects are persisted.
type StoreBackend string

const (
	StorePostgres StoreBackend = "postgres"
	StoreRedis    StoreBackend = "redis"
)

// AuthMode determines how the owner identity is resolved.
type AuthMode string

const (
	// AuthModeFirebase verifies Firebase ID tokens.
	AuthModeFirebase AuthMode = "firebase"
	// AuthModeHeader trusts X-User-Id. Development only.
	AuthModeHeader AuthMode = "header"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Auth     AuthConfig
	App      AppConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
}

type StoreConfig struct {
	Backend StoreBackend `env:"STORE_BACKEND" envDefault:"redis"`
}

type DatabaseConfig struct {
	DSN      string `env:"DB_DSN"`
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns int32  `env:"DB_MIN_CONNS" envDefault:"2"`
}

// ConnString returns DB_DSN when set, otherwise a key/value connection string
// built from the DB_HOST family. Empty when neither is configured.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Host == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type LLMConfig struct {
	APIKey  string        `env:"GEMINI_API_KEY"`
	Model   string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	BaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	// Generation calls allowed per owner per minute; 0 disables throttling.
	RatePerMinute int `env:"GENERATION_RATE_PER_MINUTE" envDefault:"30"`
	Burst         int `env:"GENERATION_BURST" envDefault:"10"`
}

type AuthConfig struct {
	Mode                    AuthMode `env:"AUTH_MODE" envDefault:"firebase"`
	FirebaseCredentialsPath string   `env:"FIREBASE_CREDENTIALS_PATH"`
}

type AppConfig struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"1.0.0"`
	// Cron spec for the generator metrics report; empty disables it.
	MetricsReportSchedule string `env:"METRICS_REPORT_SCHEDULE" envDefault:"@every 5m"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
	File   string `env:"LOG_FILE"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Load parses the environment and validates the result for the API server.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads .env and the environment without validating, for commands that
// only need part of the configuration.
func Parse() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Store.Backend {
	case StorePostgres:
		if c.Database.ConnString() == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required when STORE_BACKEND=postgres")
		}
		if c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("DB_MIN_CONNS must not exceed DB_MAX_CONNS")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or redis, got %q", c.Store.Backend)
	}

	switch c.Auth.Mode {
	case AuthModeFirebase:
		if c.Auth.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_MODE=firebase")
		}
	case AuthModeHeader:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=header is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be firebase or header, got %q", c.Auth.Mode)
	}

	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.LLM.RatePerMinute < 0 {
		return fmt.Errorf("GENERATION_RATE_PER_MINUTE must not be negative")
	}
	return nil
}
