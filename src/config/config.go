// Package config loads difychat settings from a YAML file, a .env file and
// the process environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL         = "https://api.dify.ai"
	defaultDataDir         = ".util"
	defaultStore           = "file"
	defaultLogLevel        = "info"
	defaultResponseTimeout = 60 * time.Second
	defaultConfigFile      = "config.yaml"
)

// Store backends understood by storage.Open.
var storeBackends = map[string]struct{}{
	"file":   {},
	"pebble": {},
	"sqlite": {},
	"memory": {},
}

// Config is the main configuration struct.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig describes the remote chat service.
type APIConfig struct {
	BaseURL         string   `yaml:"base_url"`
	Key             string   `yaml:"key"`
	ResponseTimeout Duration `yaml:"response_timeout"`
}

// StorageConfig selects the key-value backend and where it lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "30s" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}

// DefaultPath returns the config file location inside the default data dir.
func DefaultPath() string {
	return filepath.Join(defaultDataDir, defaultConfigFile)
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// Load builds the effective config. A missing file at path is not an error
// when path is the default location; an explicit path must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := &Config{}
	if _, statErr := os.Stat(path); statErr == nil || explicit {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with DIFY_* / DIFYCHAT_* variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DIFY_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DIFY_API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv("DIFYCHAT_RESPONSE_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("DIFYCHAT_RESPONSE_TIMEOUT: %w", err)
		}
		c.API.ResponseTimeout = d
	}
	if v := os.Getenv("DIFYCHAT_STORE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("DIFYCHAT_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("DIFYCHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DIFYCHAT_LOG_SINK"); v != "" {
		c.Logging.Sink = v
	}
	if v := os.Getenv("DIFYCHAT_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	return nil
}

// Validate applies defaults and validates values in the config. It mutates
// the receiver to fill in missing defaults.
func (c *Config) Validate() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultBaseURL
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://, got %q", c.API.BaseURL)
	}
	if c.API.ResponseTimeout.Duration() < 0 {
		return fmt.Errorf("api.response_timeout must not be negative")
	}
	if c.API.ResponseTimeout.Duration() == 0 {
		c.API.ResponseTimeout = Duration(defaultResponseTimeout)
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStore
	}
	if _, ok := storeBackends[c.Storage.Backend]; !ok {
		return fmt.Errorf("storage.backend %q is not one of file, pebble, sqlite, memory", c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaultDataDir
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// LogFile is the default file sink used when the terminal UI owns stderr.
func (c *Config) LogFile() string {
	return "file:" + filepath.Join(c.Storage.DataDir, "difychat.log")
}
