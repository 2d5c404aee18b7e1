package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Token store kinds.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	APIURL string `env:"LMS_API_URL" envDefault:"http://localhost:5000/api"`

	TokenStore      string `env:"LMS_TOKEN_STORE"      envDefault:"file"`
	TokenFile       string `env:"LMS_TOKEN_FILE"`
	TokenPassphrase string `env:"LMS_TOKEN_PASSPHRASE"`
	DatabaseFile    string `env:"LMS_DATABASE_FILE"`
	RedisAddr       string `env:"LMS_REDIS_ADDR"       envDefault:"localhost:6379"`
	RedisPassword   string `env:"LMS_REDIS_PASSWORD"`
	RedisDB         int    `env:"LMS_REDIS_DB"         envDefault:"0"`
	RedisPrefix     string `env:"LMS_REDIS_PREFIX"     envDefault:"lms:session:"`

	RedisRefreshTTL time.Duration `env:"LMS_REDIS_REFRESH_TTL" envDefault:"168h"`

	HTTPTimeout time.Duration `env:"LMS_HTTP_TIMEOUT" envDefault:"0s"` // 0 disables the client timeout
	RateLimit   float64       `env:"LMS_RATE_LIMIT"   envDefault:"0"`  // requests per second, 0 = unlimited
	RateBurst   int           `env:"LMS_RATE_BURST"   envDefault:"1"`

	MetricsDump  string `env:"LMS_METRICS_DUMP"` // file to write metrics to on exit, "-" for stderr
	OTelEndpoint string `env:"LMS_OTEL_ENDPOINT"`

	Env       string `env:"ENV"        envDefault:"prod"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// LoadConfig reads envFile when it exists, then the environment. Variables
// already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() {
	if c.TokenFile != "" && c.DatabaseFile != "" {
		return
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	dir = filepath.Join(dir, "lmsctl")

	if c.TokenFile == "" {
		c.TokenFile = filepath.Join(dir, "session.json")
	}
	if c.DatabaseFile == "" {
		c.DatabaseFile = filepath.Join(dir, "session.db")
	}
}

func (c Config) Validate() error {
	switch c.TokenStore {
	case StoreFile, StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("LMS_TOKEN_STORE: unknown store %q", c.TokenStore)
	}
	if c.APIURL == "" {
		return errors.New("LMS_API_URL is required")
	}
	if c.HTTPTimeout < 0 {
		return errors.New("LMS_HTTP_TIMEOUT must not be negative")
	}
	if c.RateLimit < 0 || c.RateBurst < 1 {
		return errors.New("LMS_RATE_LIMIT must be >= 0 and LMS_RATE_BURST >= 1")
	}
	return nil
}
