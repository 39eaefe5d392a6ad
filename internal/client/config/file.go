package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophdiary/internal/flagx"
	"github.com/dmitrijs2005/gophdiary/internal/timex"
)

// FileConfig is a DTO used exclusively for decoding config files. Zero
// values mean "not set".
type FileConfig struct {
	ServerBaseURL  string         `json:"server_base_url" toml:"server_base_url"`
	DatabaseDSN    string         `json:"database" toml:"database"`
	PrivateKeyName string         `json:"private_key_name" toml:"private_key_name"`
	RequestTimeout timex.Duration `json:"request_timeout" toml:"request_timeout"`
	RefreshTimeout timex.Duration `json:"refresh_timeout" toml:"refresh_timeout"`
	LogLevel       string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config in args.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config file %s: unsupported format %q", path, ext)
	}

	fc.apply(cfg)
	return nil
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.ServerBaseURL != "" {
		cfg.ServerBaseURL = fc.ServerBaseURL
	}
	if fc.DatabaseDSN != "" {
		cfg.DatabaseDSN = fc.DatabaseDSN
	}
	if fc.PrivateKeyName != "" {
		cfg.PrivateKeyName = fc.PrivateKeyName
	}
	if fc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.RefreshTimeout.Duration > 0 {
		cfg.RefreshTimeout = fc.RefreshTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
}
