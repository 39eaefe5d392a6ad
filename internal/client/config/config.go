package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the gophdiary CLI.
//
// Units: RequestTimeout and RefreshTimeout are time.Duration values.
type Config struct {
	ServerBaseURL  string
	DatabaseDSN    string
	PrivateKeyName string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	LogLevel       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "gophdiary.db"
	c.PrivateKeyName = "key"
	c.RequestTimeout = 30 * time.Second
	c.RefreshTimeout = 10 * time.Second
	c.LogLevel = "info"
}

// LoadConfig builds a Config from defaults, environment, an optional config
// file and flags in args (usually os.Args[1:]). Later sources take
// precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	loadDotEnv(".env")
	parseEnv(cfg, os.LookupEnv)

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerBaseURL == "" {
		return fmt.Errorf("config: server base url is empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("config: database path is empty")
	}
	if c.PrivateKeyName == "" {
		return fmt.Errorf("config: private key name is empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive")
	}
	return nil
}
