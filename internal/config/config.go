package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	APIURL          string        `mapstructure:"api_url"`
	APIToken        string        `mapstructure:"api_token"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`  // 0 means no client-side timeout
	DefaultDecision string        `mapstructure:"default_decision"` // update, skip
	LogLevel        string        `mapstructure:"log_level"`        // debug, info, warn, error
	HistoryEnabled  bool          `mapstructure:"history_enabled"`
}

// Keys that `roster config set` accepts
var Keys = []string{"api_url", "api_token", "request_timeout", "default_decision", "log_level", "history_enabled"}

var AppConfig *Config

// Dir returns the roster state directory, honouring ROSTER_HOME
func Dir() (string, error) {
	if dir := os.Getenv("ROSTER_HOME"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".roster"), nil
}

// Initialize loads or creates the configuration file
func Initialize() error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	configFile := filepath.Join(configDir, "config.yaml")

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default config if it doesn't exist
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := createDefaultConfig(configFile); err != nil {
			return err
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("roster")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("api_url", "http://localhost:8000/api")
	viper.SetDefault("api_token", "")
	viper.SetDefault("request_timeout", "0s")
	viper.SetDefault("default_decision", "update")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("history_enabled", true)

	// Read config
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// Unmarshal into struct
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	AppConfig = cfg

	return nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	switch c.DefaultDecision {
	case "update", "skip":
	default:
		return fmt.Errorf("default_decision must be update or skip, got %q", c.DefaultDecision)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	return nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(path string) error {
	defaultConfig := `# Roster Configuration
# Base URL of the candidate roster API
api_url: http://localhost:8000/api

# Bearer token sent with every request (keep this file secure!)
api_token: ""

# 0s disables the client-side timeout
request_timeout: 0s

# Decision applied to duplicate rows you do not touch: update or skip
default_decision: update

log_level: info
history_enabled: true
`
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

// IsKey reports whether key is a known configuration key
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Set validates and persists a configuration value. An invalid value is
// not written. Only keys already in the file and key itself are saved.
func Set(key, value string) error {
	old := viper.Get(key)
	viper.Set(key, value)

	cfg := &Config{}
	err := viper.Unmarshal(cfg)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		viper.Set(key, old)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	// Write through a file-only instance so environment overrides and
	// defaults never end up in config.yaml
	file := viper.New()
	file.SetConfigFile(GetConfigPath())
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	file.Set(key, value)
	if err := file.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get retrieves a configuration value
func Get(key string) string {
	return viper.GetString(key)
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	dir, err := Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}
