// config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string `json:"port"`
	Timeout       int    `json:"timeout"`
	SessionSecret string `json:"-" validate:"required"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addresses []string `json:"addresses" validate:"min=1"`
	Password  string   `json:"-"`
	DB        int      `json:"db"`
	KeyPrefix string   `json:"key_prefix"`
}

// QuickBooksConfig holds the OAuth application credentials and environment
// selection for the QuickBooks connection.
type QuickBooksConfig struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"-" validate:"required"`
	RedirectURI  string   `json:"redirect_uri" validate:"required,url"`
	Scopes       []string `json:"scopes"`
	Environment  string   `json:"environment" validate:"oneof=sandbox production"`
	MinorVersion string   `json:"minor_version"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	RevokeURL    string   `json:"revoke_url"`
	RealmID      string   `json:"realm_id"`
}

// ImportConfig holds batch-import defaults.
type ImportConfig struct {
	DateFormat      string `json:"date_format"`
	Delimiter       string `json:"delimiter"`
	DefaultItemName string `json:"default_item_name"`
	WorkOrderPrefix string `json:"work_order_prefix"`
	AutoPrefix      bool   `json:"auto_prefix"`
}

// Config is the single configuration object for the service. It is loaded
// once, passed explicitly to each component, and saved back when mutable
// state (e.g. the connected realm) changes. No package-level state.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Redis      RedisConfig      `json:"redis"`
	QuickBooks QuickBooksConfig `json:"quickbooks"`
	Import     ImportConfig     `json:"import"`

	// StateFile is where the JSON form of this config is persisted.
	StateFile string `json:"-"`
}

// Load builds the configuration from the environment (a .env file is read
// when present), overlays the persisted state file, and validates the
// result.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{
			Port:          envOr("SERVER_PORT", "8080"),
			Timeout:       envIntOr("SERVER_TIMEOUT", 15),
			SessionSecret: os.Getenv("SESSION_SECRET"),
		},
		Redis: RedisConfig{
			Addresses: strings.Split(envOr("REDIS_ADDR", "localhost:6379"), ","),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        envIntOr("REDIS_DB", 0),
			KeyPrefix: envOr("REDIS_KEY_PREFIX", "booksync"),
		},
		QuickBooks: QuickBooksConfig{
			ClientID:     os.Getenv("QB_CLIENT_ID"),
			ClientSecret: os.Getenv("QB_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("QB_REDIRECT_URI"),
			Scopes:       []string{"com.intuit.quickbooks.accounting"},
			Environment:  envOr("QB_ENVIRONMENT", "sandbox"),
			MinorVersion: envOr("QB_MINOR_VERSION", "75"),
			AuthURL:      envOr("QB_AUTH_URL", "https://appcenter.intuit.com/connect/oauth2"),
			TokenURL:     envOr("QB_TOKEN_URL", "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"),
			RevokeURL:    envOr("QB_REVOKE_URL", "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"),
			RealmID:      os.Getenv("QB_REALM_ID"),
		},
		Import: ImportConfig{
			DateFormat:      envOr("IMPORT_DATE_FORMAT", "01/02/2006"),
			Delimiter:       os.Getenv("IMPORT_DELIMITER"),
			DefaultItemName: envOr("IMPORT_DEFAULT_ITEM", "Services"),
			WorkOrderPrefix: envOr("WORK_ORDER_PREFIX", "WO-"),
			AutoPrefix:      envBoolOr("WORK_ORDER_AUTO_PREFIX", true),
		},
		StateFile: envOr("CONFIG_STATE_FILE", "booksync.state.json"),
	}

	if data, err := os.ReadFile(cfg.StateFile); err == nil {
		var saved Config
		if err := json.Unmarshal(data, &saved); err != nil {
			return Config{}, fmt.Errorf("failed to parse state file %s: %w", cfg.StateFile, err)
		}
		cfg.Merge(&saved)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks required fields and value constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Merge overlays non-zero fields of patch onto the config. Secrets are not
// persisted, so only non-sensitive fields participate.
func (c *Config) Merge(patch *Config) {
	if patch.Server.Port != "" {
		c.Server.Port = patch.Server.Port
	}
	if patch.Server.Timeout != 0 {
		c.Server.Timeout = patch.Server.Timeout
	}
	if len(patch.Redis.Addresses) > 0 {
		c.Redis.Addresses = patch.Redis.Addresses
	}
	if patch.Redis.KeyPrefix != "" {
		c.Redis.KeyPrefix = patch.Redis.KeyPrefix
	}
	if patch.QuickBooks.Environment != "" {
		c.QuickBooks.Environment = patch.QuickBooks.Environment
	}
	if patch.QuickBooks.MinorVersion != "" {
		c.QuickBooks.MinorVersion = patch.QuickBooks.MinorVersion
	}
	if patch.QuickBooks.RealmID != "" {
		c.QuickBooks.RealmID = patch.QuickBooks.RealmID
	}
	if patch.Import.DateFormat != "" {
		c.Import.DateFormat = patch.Import.DateFormat
	}
	if patch.Import.Delimiter != "" {
		c.Import.Delimiter = patch.Import.Delimiter
	}
	if patch.Import.DefaultItemName != "" {
		c.Import.DefaultItemName = patch.Import.DefaultItemName
	}
	if patch.Import.WorkOrderPrefix != "" {
		c.Import.WorkOrderPrefix = patch.Import.WorkOrderPrefix
	}
}

// Save writes the non-secret portion of the config to the state file.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.StateFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
