// Copyright 2026 The TII Provider Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local runs against a mock server.
	Development Environment = "development"
	// Staging is for a pre-production job service.
	Staging Environment = "staging"
	// Production is the real job service.
	Production Environment = "production"
)

// Config is the provider client configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Server configures the job service endpoint.
	Server ServerConfig `yaml:"server"`

	// Polling configures the job status loop.
	Polling PollingConfig `yaml:"polling"`

	// Results configures where archives are unpacked.
	Results ResultsConfig `yaml:"results"`

	// TokenFile is the file holding the bearer token. Read by commands;
	// the library itself takes the token as a string.
	TokenFile string `yaml:"token_file"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Polling *PollingConfig `yaml:"polling,omitempty"`
	Results *ResultsConfig `yaml:"results,omitempty"`
}

// ServerConfig configures the job service endpoint.
type ServerConfig struct {
	// BaseURL is the root every request path is appended to.
	// Default: http://localhost:8000/
	BaseURL string `yaml:"base_url"`

	// QiboVersion overrides the circuit library version compared
	// against the server at client construction. Empty means the
	// version compiled into the binary.
	QiboVersion string `yaml:"qibo_version"`

	// RequestTimeout bounds each individual HTTP request, as a Go
	// duration string. It does not bound the polling loop.
	// Default: 60s
	RequestTimeout string `yaml:"request_timeout"`
}

// PollingConfig configures the job status loop.
type PollingConfig struct {
	// Interval is the constant delay between status checks.
	// Default: 2s
	Interval string `yaml:"interval"`

	// Timeout bounds the whole wait for a job. Empty or "0" waits
	// until the server resolves the job or the caller cancels.
	Timeout string `yaml:"timeout"`
}

// ResultsConfig configures result extraction.
type ResultsConfig struct {
	// Directory is the base of per-job result directories.
	// Default: ${HOME}/.cache/tii-provider/results
	Directory string `yaml:"directory"`

	// TempDirectory holds archives while they download. Empty means
	// the system temporary directory.
	TempDirectory string `yaml:"temp_directory"`

	// ArtifactName is the member handed to the result loader.
	// Default: results.npy
	ArtifactName string `yaml:"artifact_name"`

	// MaxExtractBytes caps the extracted size of one archive. Zero
	// means no limit.
	MaxExtractBytes int64 `yaml:"max_extract_bytes"`
}

// Default returns the default configuration. The file loaded on top of
// it is required; defaults only fill fields the file leaves empty.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".cache", "tii-provider")

	return &Config{
		Environment: Development,
		Server: ServerConfig{
			BaseURL:        "http://localhost:8000/",
			RequestTimeout: "60s",
		},
		Polling: PollingConfig{
			Interval: "2s",
		},
		Results: ResultsConfig{
			Directory:    filepath.Join(root, "results"),
			ArtifactName: "results.npy",
		},
		TokenFile: filepath.Join(root, "token.txt"),
	}
}

// Load loads configuration from the file named by TII_PROVIDER_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv("TII_PROVIDER_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TII_PROVIDER_CONFIG environment variable not set; " +
			"set it to the path of your provider config file, or pass --config")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the override section
// of the selected environment, and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a YAML subset, so the yaml tags serve both formats
		// once comments and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Server != nil {
		if overrides.Server.BaseURL != "" {
			c.Server.BaseURL = overrides.Server.BaseURL
		}
		if overrides.Server.QiboVersion != "" {
			c.Server.QiboVersion = overrides.Server.QiboVersion
		}
		if overrides.Server.RequestTimeout != "" {
			c.Server.RequestTimeout = overrides.Server.RequestTimeout
		}
	}

	if overrides.Polling != nil {
		if overrides.Polling.Interval != "" {
			c.Polling.Interval = overrides.Polling.Interval
		}
		if overrides.Polling.Timeout != "" {
			c.Polling.Timeout = overrides.Polling.Timeout
		}
	}

	if overrides.Results != nil {
		if overrides.Results.Directory != "" {
			c.Results.Directory = overrides.Results.Directory
		}
		if overrides.Results.TempDirectory != "" {
			c.Results.TempDirectory = overrides.Results.TempDirectory
		}
		if overrides.Results.ArtifactName != "" {
			c.Results.ArtifactName = overrides.Results.ArtifactName
		}
		if overrides.Results.MaxExtractBytes != 0 {
			c.Results.MaxExtractBytes = overrides.Results.MaxExtractBytes
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	homeDir, _ := os.UserHomeDir()
	vars := map[string]string{
		"HOME":              homeDir,
		"TII_PROVIDER_ROOT": filepath.Join(homeDir, ".cache", "tii-provider"),
	}

	c.Results.Directory = expandVars(c.Results.Directory, vars)
	c.Results.TempDirectory = expandVars(c.Results.TempDirectory, vars)
	c.TokenFile = expandVars(c.TokenFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Server.BaseURL == "" {
		errs = append(errs, fmt.Errorf("server.base_url is required"))
	} else if parsed, err := url.Parse(c.Server.BaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("server.base_url must be an absolute http(s) URL, got %q", c.Server.BaseURL))
	}

	if _, err := parseDuration(c.Server.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("server.request_timeout: %w", err))
	}

	if interval, err := parseDuration(c.Polling.Interval); err != nil {
		errs = append(errs, fmt.Errorf("polling.interval: %w", err))
	} else if interval <= 0 {
		errs = append(errs, fmt.Errorf("polling.interval must be positive"))
	}
	if _, err := parseDuration(c.Polling.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("polling.timeout: %w", err))
	}

	if c.Results.Directory == "" {
		errs = append(errs, fmt.Errorf("results.directory is required"))
	}
	if c.Results.ArtifactName == "" || c.Results.ArtifactName != filepath.Base(c.Results.ArtifactName) {
		errs = append(errs, fmt.Errorf("results.artifact_name must be a plain file name, got %q", c.Results.ArtifactName))
	}
	if c.Results.MaxExtractBytes < 0 {
		errs = append(errs, fmt.Errorf("results.max_extract_bytes must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PollInterval returns the parsed polling interval. Call Validate first;
// an unparseable value yields zero.
func (c *Config) PollInterval() time.Duration {
	interval, _ := parseDuration(c.Polling.Interval)
	return interval
}

// PollTimeout returns the parsed overall wait bound, zero for none.
func (c *Config) PollTimeout() time.Duration {
	timeout, _ := parseDuration(c.Polling.Timeout)
	return timeout
}

// RequestTimeout returns the parsed per-request timeout, zero for none.
func (c *Config) RequestTimeout() time.Duration {
	timeout, _ := parseDuration(c.Server.RequestTimeout)
	return timeout
}

// parseDuration treats an empty string as zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %q", value)
	}
	return duration, nil
}

// EnsurePaths creates the configured result directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Results.Directory, c.Results.TempDirectory} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
