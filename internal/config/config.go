// Package config loads runtime settings from a YAML file, a .env file and
// ESSAYREVIEW_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	PolicyRemote = "remote"
	PolicyLocal  = "local"
)

const (
	envBackendURL       = "ESSAYREVIEW_BACKEND_URL"
	envRequestTimeout   = "ESSAYREVIEW_REQUEST_TIMEOUT"
	envAnalysisTimeout  = "ESSAYREVIEW_ANALYSIS_TIMEOUT"
	envWebAddr          = "ESSAYREVIEW_WEB_ADDR"
	envLogPath          = "ESSAYREVIEW_LOG_PATH"
	envDebug            = "ESSAYREVIEW_DEBUG"
	envPermissionPolicy = "ESSAYREVIEW_PERMISSION_POLICY"
	envArtifactTTL      = "ESSAYREVIEW_ARTIFACT_TTL"
)

// Duration wraps time.Duration so YAML can hold values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds the application configuration
type Config struct {
	BackendURL       string   `yaml:"backend_url"`
	RequestTimeout   Duration `yaml:"request_timeout"`  // Catalog and permission calls
	AnalysisTimeout  Duration `yaml:"analysis_timeout"` // 0 disables the timeout
	WebAddr          string   `yaml:"web_addr"`
	LogPath          string   `yaml:"log_path,omitempty"`
	Debug            bool     `yaml:"debug"`
	PermissionPolicy string   `yaml:"permission_policy"` // "remote" or "local"
	ArtifactTTL      Duration `yaml:"artifact_ttl"`      // Lifetime of web download links

	// GitHub release used by --update
	UpdateOwner      string `yaml:"update_owner,omitempty"`
	UpdateRepository string `yaml:"update_repository,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BackendURL:       "http://127.0.0.1:5000",
		RequestTimeout:   Duration(30 * time.Second),
		AnalysisTimeout:  Duration(10 * time.Minute),
		WebAddr:          "127.0.0.1:8080",
		PermissionPolicy: PolicyRemote,
		ArtifactTTL:      Duration(time.Hour),
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "essayreview", "config.yaml"), nil
}

// Load reads the YAML file at path (a missing file is not an error), then
// applies .env and environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv(envBackendURL)); v != "" {
		c.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envWebAddr)); v != "" {
		c.WebAddr = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogPath)); v != "" {
		c.LogPath = v
	}
	if v := strings.TrimSpace(os.Getenv(envPermissionPolicy)); v != "" {
		c.PermissionPolicy = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(envDebug)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envDebug, err)
		}
		c.Debug = b
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{envRequestTimeout, &c.RequestTimeout},
		{envAnalysisTimeout, &c.AnalysisTimeout},
		{envArtifactTTL, &c.ArtifactTTL},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = Duration(parsed)
	}
	return nil
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend_url %q", c.BackendURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url must use http or https, got %q", u.Scheme)
	}
	switch c.PermissionPolicy {
	case PolicyRemote, PolicyLocal:
	default:
		return fmt.Errorf("permission_policy must be %q or %q, got %q", PolicyRemote, PolicyLocal, c.PermissionPolicy)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.AnalysisTimeout < 0 {
		return fmt.Errorf("analysis_timeout must not be negative")
	}
	if c.ArtifactTTL <= 0 {
		return fmt.Errorf("artifact_ttl must be positive")
	}
	if c.WebAddr == "" {
		return fmt.Errorf("web_addr must not be empty")
	}
	return nil
}
