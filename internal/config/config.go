package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	DatabaseURL        string   `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	IdentityJWTSecret  string   `mapstructure:"IDENTITY_JWT_SECRET"`
	InitialStage       string   `mapstructure:"INITIAL_STAGE"`
	RequestTimeoutSecs int      `mapstructure:"REQUEST_TIMEOUT_SECS"`
	TransitionRetries  int      `mapstructure:"TRANSITION_RETRIES"`
	MigrationsDir      string   `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("INITIAL_STAGE", "onboarding")
	v.SetDefault("REQUEST_TIMEOUT_SECS", 30)
	v.SetDefault("TRANSITION_RETRIES", 3)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("IDENTITY_JWT_SECRET")
	v.BindEnv("INITIAL_STAGE")
	v.BindEnv("REQUEST_TIMEOUT_SECS")
	v.BindEnv("TRANSITION_RETRIES")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production the
// gateway token secret must be set so actor identities are verified rather
// than taken on faith.
func (c *Config) Validate() error {
	if c.IsProduction() && c.IdentityJWTSecret == "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET is required in production")
	}
	if c.InitialStage == "" {
		return fmt.Errorf("INITIAL_STAGE must not be empty")
	}
	if c.TransitionRetries < 1 {
		return fmt.Errorf("TRANSITION_RETRIES must be at least 1, got %d", c.TransitionRetries)
	}
	if c.RequestTimeoutSecs < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECS must be at least 1, got %d", c.RequestTimeoutSecs)
	}
	return nil
}
