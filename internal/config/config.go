package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress  string        `env:"SERVER_ADDRESS" envDefault:"0.0.0.0:8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"DEBUG"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepBatchSize int           `env:"SWEEP_BATCH_SIZE" envDefault:"100"`
	PostgresConfig
}

func NewConfig() (*Config, error) {
	config := &Config{}

	err := loadDotEnv()
	if err != nil {
		return config, fmt.Errorf("config.NewConfig: %w", err)
	}

	err = env.Parse(config)
	if err != nil {
		err = fmt.Errorf("config.NewConfig: %w", err)
	}
	return config, err
}

type PostgresConfig struct {
	Conn            string `env:"POSTGRES_CONN" envDefault:"postgres://rfq:rfq@db:5432/rfq?sslmode=disable"`
	ConnectRetries  uint64 `env:"POSTGRES_CONNECT_RETRIES" envDefault:"5"`
	AutoMigrateUp   string `env:"AUTO_MIGRATE_UP" envDefault:"true"`
	AutoMigrateDown string `env:"AUTO_MIGRATE_DOWN" envDefault:"false"`
	// Empty means the migrations embedded into the binary.
	MigrationsURL string `env:"MIGRATIONS_URL" envDefault:""`
}

func NewPostgresConfig() (*PostgresConfig, error) {
	config := &PostgresConfig{}

	err := loadDotEnv()
	if err != nil {
		return config, fmt.Errorf("config.NewPostgresConfig: %w", err)
	}

	err = env.Parse(config)
	if err != nil {
		err = fmt.Errorf("config.NewPostgresConfig: %w", err)
	}
	return config, err
}

// loadDotEnv fills the environment from ./.env when the file exists.
// Variables already present in the environment win.
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
