package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/carlmjohnson/versioninfo"
)

type Config struct {
	DatabaseURL             string `env:"DATABASE_URL,required"`
	RedisURL                string `env:"REDIS_URL,required"`
	HostID                  string `env:"HOST_ID"`
	AppVersion              string `env:"APP_VERSION"`
	CatalogPath             string `env:"CATALOG_PATH" envDefault:"catalog.yaml"`
	LogLevel                string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort                int    `env:"HTTP_PORT" envDefault:"9090"`
	TickIntervalSeconds     int    `env:"TICK_INTERVAL_SECONDS" envDefault:"60"`
	PunitivePauseMinutes    int    `env:"PUNITIVE_PAUSE_MINUTES" envDefault:"10"`
	BlockBaseDays           int    `env:"BLOCK_BASE_DAYS" envDefault:"5"`
	BlockMaxDays            int    `env:"BLOCK_MAX_DAYS" envDefault:"180"`
	InvasiveCooldownMinutes int    `env:"INVASIVE_COOLDOWN_MINUTES" envDefault:"15"`
	KeepSessionOnFailure    bool   `env:"KEEP_SESSION_ON_FAILURE" envDefault:"false"`
	DiagnosticHoldMinutes   int    `env:"DIAGNOSTIC_HOLD_MINUTES" envDefault:"30"`
	DispatchRetentionDays   int    `env:"DISPATCH_RETENTION_DAYS" envDefault:"0"`
	SessionOpTimeoutSeconds int    `env:"SESSION_OP_TIMEOUT_SECONDS" envDefault:"120"`
	// OpsTokenHash is a bcrypt hash of the operator API token. Empty disables /v1.
	OpsTokenHash string `env:"OPS_TOKEN_HASH"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

func (c *Config) PunitivePause() time.Duration {
	return time.Duration(c.PunitivePauseMinutes) * time.Minute
}

func (c *Config) DiagnosticHold() time.Duration {
	return time.Duration(c.DiagnosticHoldMinutes) * time.Minute
}

func (c *Config) InvasiveCooldown() time.Duration {
	return time.Duration(c.InvasiveCooldownMinutes) * time.Minute
}

func (c *Config) SessionOpTimeout() time.Duration {
	return time.Duration(c.SessionOpTimeoutSeconds) * time.Second
}

func (c *Config) DispatchRetention() time.Duration {
	return time.Duration(c.DispatchRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c *Config) Validate() error {
	if c.TickIntervalSeconds <= 0 {
		return fmt.Errorf("TICK_INTERVAL_SECONDS must be positive")
	}
	if c.PunitivePauseMinutes <= 0 {
		return fmt.Errorf("PUNITIVE_PAUSE_MINUTES must be positive")
	}
	if c.DiagnosticHoldMinutes <= 0 {
		return fmt.Errorf("DIAGNOSTIC_HOLD_MINUTES must be positive")
	}
	if c.SessionOpTimeoutSeconds <= 0 {
		return fmt.Errorf("SESSION_OP_TIMEOUT_SECONDS must be positive")
	}
	if c.BlockBaseDays <= 0 {
		return fmt.Errorf("BLOCK_BASE_DAYS must be positive")
	}
	if c.BlockMaxDays < c.BlockBaseDays {
		return fmt.Errorf("BLOCK_MAX_DAYS (%d) must not be lower than BLOCK_BASE_DAYS (%d)", c.BlockMaxDays, c.BlockBaseDays)
	}
	if c.InvasiveCooldownMinutes < 0 {
		return fmt.Errorf("INVASIVE_COOLDOWN_MINUTES must not be negative")
	}
	if c.DispatchRetentionDays < 0 {
		return fmt.Errorf("DISPATCH_RETENTION_DAYS must not be negative")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.HostID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve host id: %w", err)
		}
		cfg.HostID = hostname
	}
	if cfg.AppVersion == "" {
		cfg.AppVersion = versioninfo.Short()
	}
	return &cfg, nil
}
