package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for deyectl.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Auth     AuthConfig     `yaml:"auth"`
	Device   DeviceConfig   `yaml:"device"`
	Cloud    CloudConfig    `yaml:"cloud"`
	StateLog StateLogConfig `yaml:"state_log"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig contains Deye cloud account credentials.
//
// Either AuthToken or the Username/Password pair must be present by the
// time a command runs; command-line flags may supply them after Load.
type AuthConfig struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	AuthToken string `yaml:"auth_token"`
}

// DeviceConfig contains the default device selection.
type DeviceConfig struct {
	// ID is the device used when a command is run without -device-id.
	ID string `yaml:"id"`
}

// CloudConfig contains cloud API settings.
type CloudConfig struct {
	// Endpoint overrides the production API base URL when set.
	Endpoint string `yaml:"endpoint"`
}

// StateLogConfig contains monitor recording settings.
type StateLogConfig struct {
	// Path is the SQLite file used by `deyectl monitor -record`.
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// An empty path skips the file step so the tool can run from
// environment variables alone.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for none
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// Logging goes to stderr so command output on stdout stays clean.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DEYE_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("DEYE_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("DEYE_AUTH_TOKEN"); v != "" {
		cfg.Auth.AuthToken = v
	}
	if v := os.Getenv("DEYE_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
}

// Validate checks the configuration for errors.
//
// Credentials are deliberately not checked here: commands may still
// receive them from flags after loading.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn, or error")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, `logging.format must be "json" or "text"`)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "", "stdout", "stderr":
	default:
		errs = append(errs, `logging.output must be "stdout" or "stderr"`)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
