package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/pretest/internal/platform/db"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir    string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS     float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	ClaimMaxAttempts int           `mapstructure:"CLAIM_MAX_ATTEMPTS"`
	WriteTimeout     time.Duration `mapstructure:"WRITE_TIMEOUT"`
	AuthIssuer       string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience     string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL      string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey   string        `mapstructure:"AUTH_SIGNING_KEY"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MIGRATIONS_DIR", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "BODY_LIMIT", "CLAIM_MAX_ATTEMPTS", "WRITE_TIMEOUT",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
}

// Load reads configuration from the environment, falling back to a .env file
// in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("CLAIM_MAX_ATTEMPTS", 5)
	v.SetDefault("WRITE_TIMEOUT", "10s")

	// Bind explicitly so Unmarshal sees variables that have no default.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// A comma-separated env value arrives as a single element.
	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AuthMode is how the admin API authenticates: "development" (everyone is
// admin), "static" (HS256 shared secret) or "external" (RS256 via JWKS).
func (c *Config) AuthMode() string {
	switch {
	case c.AuthSigningKey != "":
		return "static"
	case c.AuthIssuer != "" || c.AuthJWKSURL != "":
		return "external"
	case c.IsDev():
		return "development"
	}
	return ""
}

// Driver returns the storage backend named by DATABASE_URL.
func (c *Config) Driver() (db.Driver, string, error) {
	return db.ParseDatabaseURL(c.DatabaseURL)
}

// Validate checks that the configuration is safe to run. Outside development
// the admin API must have real token verification configured.
func (c *Config) Validate() error {
	if _, _, err := c.Driver(); err != nil {
		return fmt.Errorf("DATABASE_URL: %w", err)
	}
	if c.ClaimMaxAttempts < 1 {
		return fmt.Errorf("CLAIM_MAX_ATTEMPTS must be at least 1, got %d", c.ClaimMaxAttempts)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.AuthMode() == "" {
		return fmt.Errorf(
			"AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q. "+
				"Refusing to expose the admin API without authentication", c.Env)
	}
	if c.IsProduction() && c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters in production")
	}
	return nil
}
