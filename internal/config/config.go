package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Compare CompareConfig `yaml:"compare"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Regions []string      `yaml:"regions"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type CompareConfig struct {
	Epsilon float64 `yaml:"epsilon"`
}

type FetchConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
}

// Default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Store: StoreConfig{
			Path: "quota_cache.db",
		},
		Compare: CompareConfig{
			Epsilon: 1e-9,
		},
		Fetch: FetchConfig{
			MaxAttempts: 5,
			BaseDelayMS: 1000,
		},
		Regions: []string{},
	}
}

// Load configuration from file, falling back to defaults when the file is
// absent.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// GetBaseDelay returns the fetch retry base delay as a duration.
func (c *Config) GetBaseDelay() time.Duration {
	return time.Duration(c.Fetch.BaseDelayMS) * time.Millisecond
}

// GetPort returns the server port, checking environment variable first
func (c *Config) GetPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return c.Server.Port
}
