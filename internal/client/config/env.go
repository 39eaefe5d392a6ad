package config

import "github.com/joho/godotenv"

// loadDotEnv exports the variables of path into the process environment.
// A missing or malformed file is ignored; variables already set win.
func loadDotEnv(path string) {
	_ = godotenv.Load(path)
}

// parseEnv overlays cfg with the environment seen through lookup.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("SERVER_BASE_URL"); ok && v != "" {
		cfg.ServerBaseURL = v
	}
	if v, ok := lookup("LOCAL_STORAGE_PRIVATE_KEY"); ok && v != "" {
		cfg.PrivateKeyName = v
	}
	if v, ok := lookup("GOPHDIARY_DB"); ok && v != "" {
		cfg.DatabaseDSN = v
	}
	if v, ok := lookup("GOPHDIARY_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
}
