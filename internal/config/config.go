package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the main application configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	CRM      CRMConfig    `yaml:"crm"`
	Store    StoreConfig  `yaml:"store"`
	LogLevel string       `yaml:"logLevel"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CRMConfig contains the remote CRM connection settings.
type CRMConfig struct {
	BaseURL string `yaml:"baseURL"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// StoreConfig selects the entity-graph backend: "crm" for the remote CRM,
// "sqlite" for a local database.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

const (
	DriverCRM    = "crm"
	DriverSQLite = "sqlite"
)

// Load reads configuration from the YAML file at path, overlays environment
// variables, and fills defaults. A missing file is not an error; an empty
// path skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	// Set defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverCRM
	}
	if cfg.Store.Driver != DriverCRM && cfg.Store.Driver != DriverSQLite {
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "calhook.db"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return &cfg, nil
}

// applyEnv overlays environment variables onto the file values. Env wins.
func (c *Config) applyEnv() {
	if v := os.Getenv("HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CRM_API_URL"); v != "" {
		c.CRM.BaseURL = v
	}
	if v := os.Getenv("CRM_API_KEY"); v != "" {
		c.CRM.APIKey = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}
