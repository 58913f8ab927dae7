// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default config file name.
const DefaultConfigFile = "catalog.yaml"

// Config holds process configuration. It is built once at startup and
// passed to the components that need it; nothing else reads the
// environment.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Loader  LoaderConfig  `yaml:"loader,omitempty"`
	Feeds   FeedsConfig   `yaml:"feeds,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`
}

// CatalogConfig holds configuration for the SQLite catalog.
type CatalogConfig struct {
	// Path is the SQLite database file. ":memory:" keeps the catalog in memory.
	Path string `yaml:"path,omitempty"`
	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout,omitempty"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr,omitempty"`
	ReadTimeout    time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout   time.Duration `yaml:"write_timeout,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// LoaderConfig holds configuration for catalog reloads.
type LoaderConfig struct {
	BatchSize     int `yaml:"batch_size,omitempty"`
	ProgressEvery int `yaml:"progress_every,omitempty"`
}

// FeedsConfig holds the location of each source feed. A location is a local
// path or an s3://bucket/key URI. Empty locations are skipped. The format
// fields force a feed format instead of detecting it from the extension.
type FeedsConfig struct {
	Companies string `yaml:"companies,omitempty"`
	Investors string `yaml:"investors,omitempty"`
	Funds     string `yaml:"funds,omitempty"`
	People    string `yaml:"people,omitempty"`

	CompaniesFormat string `yaml:"companies_format,omitempty"`
	InvestorsFormat string `yaml:"investors_format,omitempty"`
	FundsFormat     string `yaml:"funds_format,omitempty"`
	PeopleFormat    string `yaml:"people_format,omitempty"`
}

// StorageConfig holds the object store used for s3:// feed locations.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path:        "catalog.db",
			BusyTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		Loader: LoaderConfig{
			BatchSize:     1000,
			ProgressEvery: 500000,
		},
		Storage: StorageConfig{
			Endpoint: "localhost:9000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides. A missing file is only an error when required is
// true.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if required {
			return nil, fmt.Errorf("config file not found: %s (run 'catalog init' first)", path)
		}
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvOverrides(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides(getenv func(string) string) {
	if v := getenv("CATALOG_DB_PATH"); v != "" {
		c.Catalog.Path = v
	}
	if v := getenv("CATALOG_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("CATALOG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("STORAGE_ENDPOINT"); v != "" {
		c.Storage.Endpoint = v
	}
	if v := getenv("STORAGE_ACCESS_KEY"); v != "" && c.Storage.AccessKey == "" {
		c.Storage.AccessKey = v
	}
	if v := getenv("STORAGE_SECRET_KEY"); v != "" && c.Storage.SecretKey == "" {
		c.Storage.SecretKey = v
	}
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	if c.Catalog.Path == "" {
		return errors.New("catalog.path is required")
	}
	if c.Loader.BatchSize <= 0 {
		return fmt.Errorf("loader.batch_size must be positive, got %d", c.Loader.BatchSize)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
