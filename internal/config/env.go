package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. ACADEMY_BASE_URL.
const EnvPrefix = "ACADEMY"

// Override keys, shared by flags and environment variables.
const (
	KeyBaseURL   = "base-url"
	KeyTimeout   = "timeout"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
	KeyDevAddr   = "dev-addr"
	KeyDevSecret = "dev-secret"
)

// DotEnvPath returns the .env path for a workspace.
func DotEnvPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".env")
}

// LoadDotEnv exports the workspace .env into the process environment.
// Variables already set win; a missing file is not an error.
func LoadDotEnv(workspace string) error {
	path := DotEnvPath(workspace)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// NewViper returns a viper instance reading ACADEMY_* variables, with "-"
// in keys mapped to "_".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Overlay applies flag and environment overrides from v onto c and
// revalidates.
func (c *Config) Overlay(v *viper.Viper) error {
	if v == nil {
		return c.Validate()
	}
	if s := v.GetString(KeyBaseURL); s != "" {
		c.API.BaseURL = s
	}
	if d := v.GetDuration(KeyTimeout); d > 0 {
		c.API.Timeout = d
	}
	if s := v.GetString(KeyLogLevel); s != "" {
		c.Log.Level = s
	}
	if s := v.GetString(KeyLogFormat); s != "" {
		c.Log.Format = s
	}
	if s := v.GetString(KeyDevAddr); s != "" {
		c.Dev.Addr = s
	}
	if s := v.GetString(KeyDevSecret); s != "" {
		c.Dev.JWTSecret = s
	}
	return c.Validate()
}

// EnvKey maps an override key to its variable name, e.g. base-url to
// ACADEMY_BASE_URL.
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// SetEnvValue writes key=value into the .env file at path, replacing an
// existing assignment of key.
func SetEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
