package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models academy.yml.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Log     LogConfig `yaml:"log"`
	Console struct {
		PageSize int    `yaml:"page_size"`
		Timezone string `yaml:"timezone"`
		// CacheSize bounds the memo of derived view models.
		CacheSize int      `yaml:"cache_size"`
		Quotes    []string `yaml:"quotes"`
	} `yaml:"console"`
	Dev DevConfig `yaml:"dev"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Development bool   `yaml:"development"`
}

// DevConfig drives the local development backend.
type DevConfig struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
	Seed          bool          `yaml:"seed"`
}

// Load reads academy.yml from workspace, falling back to Default when the
// file does not exist.
func Load(workspace string) (*Config, error) {
	cfg, err := LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return Default(), nil
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config.api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config.api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config.api.timeout must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config.log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config.log.format must be console or json")
	}
	if c.Console.PageSize <= 0 {
		return fmt.Errorf("config.console.page_size must be positive")
	}
	if c.Console.Timezone != "" {
		if _, err := time.LoadLocation(c.Console.Timezone); err != nil {
			return fmt.Errorf("config.console.timezone: %w", err)
		}
	}
	for i, q := range c.Console.Quotes {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("config.console.quotes[%d] is empty", i)
		}
	}
	if c.Dev.TokenTTL < 0 {
		return fmt.Errorf("config.dev.token_ttl must not be negative")
	}
	return nil
}

// Location resolves the console timezone, local time when unset.
func (c *Config) Location() *time.Location {
	if c.Console.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Console.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "academy.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys left out
// keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `api:
  base_url: http://127.0.0.1:8080
  timeout: 15s

log:
  level: info
  format: console
  development: false

console:
  page_size: 10
  timezone: ""
  cache_size: 256
  quotes:
    - "The expert in anything was once a beginner."
    - "Small steps every day add up to big results."
    - "Teaching is the one profession that creates all other professions."
    - "Discipline is choosing between what you want now and what you want most."
    - "Every student can learn, just not on the same day or in the same way."

dev:
  addr: 127.0.0.1:8080
  jwt_secret: dev-secret-change-me
  token_ttl: 12h
  admin_email: admin@academy.local
  admin_password: changeme
  seed: true
`
