package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is only required by commands that touch the store
	// (run --save, serve, report, health).
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"AN_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"AN_DB_MAX_CONNS" default:"8"`

	EngineConfigPath string `envconfig:"ENGINE_CONFIG" default:"engine.yaml"`

	AIEndpoint    string  `envconfig:"AI_ENDPOINT" default:"https://api.deepseek.com/chat/completions"`
	AIAPIKey      string  `envconfig:"DEEPSEEK_API_KEY" default:""`
	AIModel       string  `envconfig:"AI_MODEL" default:"deepseek-chat"`
	AIMaxTokens   int     `envconfig:"AI_MAX_TOKENS" default:"500"`
	AITemperature float64 `envconfig:"AI_TEMPERATURE" default:"0.1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("AN_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("AN_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("AN_DB_MIN_CONNS (%d) cannot exceed AN_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.EngineConfigPath) == "" {
		return fmt.Errorf("ENGINE_CONFIG is required")
	}
	if c.AIMaxTokens < 1 {
		return fmt.Errorf("AI_MAX_TOKENS must be >= 1")
	}
	if c.AITemperature < 0 || c.AITemperature > 2 {
		return fmt.Errorf("AI_TEMPERATURE must be in [0, 2]")
	}
	return nil
}

// RequireDatabase fails when a store-backed command runs without DATABASE_URL.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required for this command")
	}
	return nil
}
