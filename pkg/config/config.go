/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "SLIPPC_"

// Config represents the slippc configuration
type Config struct {
	Workers    int     `yaml:"workers" env:"WORKERS"`
	Debug      int     `yaml:"debug" env:"DEBUG"`
	FullFrames bool    `yaml:"full_frames" env:"FULL_FRAMES"`
	CatalogDir string  `yaml:"catalog_dir" env:"CATALOG_DIR"`
	Output     Output  `yaml:"output" envPrefix:"OUTPUT_"`
	Server     Server  `yaml:"server" envPrefix:"SERVER_"`
	Metrics    Metrics `yaml:"metrics" envPrefix:"METRICS_"`
}

// Output contains export destinations
type Output struct {
	JSONDir     string `yaml:"json_dir" env:"JSON_DIR"`
	AnalysisDir string `yaml:"analysis_dir" env:"ANALYSIS_DIR"`
	TablesDir   string `yaml:"tables_dir" env:"TABLES_DIR"`
	// Compress writes .json.zst documents in directory mode
	Compress   bool `yaml:"compress" env:"COMPRESS"`
	SettingsDB bool `yaml:"settings_db" env:"SETTINGS_DB"`
}

// Server contains HTTP server configuration
type Server struct {
	Bind        string `yaml:"bind" env:"BIND"`
	Port        int    `yaml:"port" env:"PORT"`
	MaxUploadMB int64  `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB"`
	// APIKey, when set, is required in the X-API-Key header of /api/v1 requests
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// Metrics contains metrics export configuration
type Metrics struct {
	// Textfile is a node-exporter textfile written after each batch run
	Textfile string `yaml:"textfile" env:"TEXTFILE"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:    runtime.NumCPU(),
		Output: Output{
			SettingsDB: true,
		},
		Server: Server{
			Bind:        "127.0.0.1",
			Port:        8080,
			MaxUploadMB: 64,
		},
	}
}

// LoadConfig loads configuration from the specified path over the defaults
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides config with SLIPPC_* environment variables
func ApplyEnv(config *Config) error {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Load reads configPath when it exists, falls back to defaults otherwise,
// then applies environment overrides and validates the result
func Load(configPath string) (*Config, error) {
	config := DefaultConfig()
	if configPath != "" && ConfigExists(configPath) {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	if err := ApplyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Debug < 0 || c.Debug > 9 {
		return fmt.Errorf("debug level must be between 0 and 9, got %d", c.Debug)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

// SaveConfig saves the configuration to the specified path
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./slippc.yaml"
	}

	// ~/.config/slippc/config.yaml
	return filepath.Join(homeDir, ".config", "slippc", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
