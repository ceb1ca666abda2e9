package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeJWT      = "jwt"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how callers are identified:
//   - "disabled" (default): every request acts as DevUserID, for local dev.
//   - "jwt": HS256 bearer tokens signed with Secret; the subject is the user id.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Secret    string `yaml:"secret"`
	DevUserID int64  `yaml:"dev_user_id"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeJWT)),
		validation.Field(&c.DevUserID, validation.Min(int64(0))),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeJWT && len(c.Secret) < 16 {
		return fmt.Errorf("auth: mode is %q but secret is shorter than 16 bytes", AuthModeJWT)
	}
	if c.Mode == AuthModeDisabled && c.DevUserID == 0 {
		return fmt.Errorf("auth: mode is %q but dev_user_id is not set", AuthModeDisabled)
	}
	return nil
}

// AuthEnabled returns true when token verification is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeJWT
}

// CatalogConfig controls ingredient reference data.
type CatalogConfig struct {
	// SeedPath is a YAML or JSON file imported at startup. Empty skips the import.
	SeedPath  string `yaml:"seed_path"`
	Watch     bool   `yaml:"watch"`
	CacheSize int    `yaml:"cache_size"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.CacheSize, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Watch && c.SeedPath == "" {
		return fmt.Errorf("catalog: watch is enabled but seed_path is empty")
	}
	return nil
}

// EventsConfig controls the SSE broker.
type EventsConfig struct {
	Throttle time.Duration `yaml:"throttle"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./larder.db",
		},
		Auth: AuthConfig{
			Mode:      AuthModeDisabled,
			DevUserID: 1,
		},
		Catalog: CatalogConfig{
			SeedPath:  "./config/seed.yaml",
			CacheSize: 1024,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
