// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"banking/internal/logging"
	"banking/internal/transaction"
)

type Config struct {
	Environment string `env:"LEDGER_ENV,default=development"`
	LogLevel    string `env:"LEDGER_LOG_LEVEL"`

	Fee int `env:"LEDGER_FEE,default=1"`

	GatewayHost string `env:"LEDGER_GATEWAY_HOST,default=127.0.0.1"`
	GatewayPort int    `env:"LEDGER_GATEWAY_PORT,default=10000"`

	// HTTPAddr is the admin listener; empty disables it.
	HTTPAddr string `env:"LEDGER_HTTP_ADDR,default=:8080"`

	LockDiagnostics bool          `env:"LEDGER_LOCK_DIAGNOSTICS,default=false"`
	LockTimeout     time.Duration `env:"LEDGER_LOCK_TIMEOUT,default=30s"`
}

// Load reads envFile if it exists, without overriding variables that are
// already set, then decodes the environment into a Config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !logging.Environment(c.Environment).Valid() {
		return fmt.Errorf("LEDGER_ENV: unknown environment %q", c.Environment)
	}
	if c.Fee < 0 || c.Fee > transaction.MaxFee {
		return fmt.Errorf("LEDGER_FEE: must be between 0 and %d, got %d", transaction.MaxFee, c.Fee)
	}
	if c.GatewayPort < 0 || c.GatewayPort > 65535 {
		return fmt.Errorf("LEDGER_GATEWAY_PORT: out of range: %d", c.GatewayPort)
	}
	if c.LockDiagnostics && c.LockTimeout <= 0 {
		return fmt.Errorf("LEDGER_LOCK_TIMEOUT: must be positive when lock diagnostics are on")
	}
	return nil
}

func (c Config) Logging() logging.Config {
	return logging.Config{
		Environment: logging.Environment(c.Environment),
		Level:       c.LogLevel,
	}
}
