package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" envDefault:"development"`
	Port           string `env:"PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL"`
	BodyLimit      string `env:"BODY_LIMIT" envDefault:"10M"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	MetricsPath    string `env:"METRICS_PATH" envDefault:"/metrics"`

	Log    LogOptions
	Import ImportOptions
	Kafka  KafkaOptions
}

type LogOptions struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type ImportOptions struct {
	MaxBatchSize int `env:"IMPORT_MAX_BATCH_SIZE" envDefault:"500"`

	// Used by the file import command only.
	BaseDir       string        `env:"IMPORT_BASE_DIR" envDefault:"."`
	FileBatchSize int           `env:"IMPORT_FILE_BATCH_SIZE" envDefault:"200"`
	MaxAttempts   int           `env:"IMPORT_MAX_ATTEMPTS" envDefault:"5"`
	RetryBackoff  time.Duration `env:"IMPORT_RETRY_BACKOFF" envDefault:"500ms"`
}

type KafkaOptions struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_IMPORT_TOPIC" envDefault:"crm.import.events"`
}

// Load reads .env files that exist and then the process environment.
func Load(envFiles ...string) (Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Import.MaxBatchSize <= 0 {
		return fmt.Errorf("IMPORT_MAX_BATCH_SIZE must be positive, got %d", c.Import.MaxBatchSize)
	}
	if c.Import.FileBatchSize > c.Import.MaxBatchSize {
		return fmt.Errorf("IMPORT_FILE_BATCH_SIZE (%d) exceeds IMPORT_MAX_BATCH_SIZE (%d)", c.Import.FileBatchSize, c.Import.MaxBatchSize)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got '%s'", c.Log.Format)
	}
	return nil
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}
