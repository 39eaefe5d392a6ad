// Package config loads runtime configuration for the gophdiary CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables, after loading an optional .env file from the
//     working directory (existing variables are not overridden).
//  3. Optional config file selected via -c or -config; the extension picks
//     the format (.json or .toml).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the diary API
//	-d string   path of the local SQLite database
//	-k string   name under which the wrapped private key is stored
//	-t int      request timeout (seconds)
//
// Environment
//
//	SERVER_BASE_URL            base URL of the diary API
//	LOCAL_STORAGE_PRIVATE_KEY  key name of the wrapped private key
//	GOPHDIARY_DB               path of the local SQLite database
//	GOPHDIARY_LOG_LEVEL        debug, info, warn or error
//
// # File schema
//
// Durations use timex.Duration, so they are strings like "30s" or integer
// nanoseconds. Missing keys leave earlier values in place:
//
//	{
//	  "server_base_url": "https://diary.example.com/api",
//	  "database": "diary.db",
//	  "private_key_name": "key",
//	  "request_timeout": "30s",
//	  "refresh_timeout": "10s",
//	  "log_level": "info"
//	}
package config
