package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names, checked in order.
const (
	ConfigFileName    = "flowmon.yaml"
	ConfigFileNameAlt = "flowmon.yml"
)

// legacyDBVars maps the credential environment variables consumed by the
// dashboard deployments onto nested config keys.
var legacyDBVars = map[string]string{
	"DB_SERVER": "database.server",
	"DB_NAME":   "database.name",
	"DB_UID":    "database.uid",
	"DB_PWD":    "database.pwd",
}

// Load builds the configuration from defaults, an optional config file,
// environment variables, and explicitly-set CLI flags, in increasing
// priority. Missing config file is not an error.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":                        DefaultDataDir,
		"output":                          DefaultOutput,
		"database.table":                  DefaultTable,
		"database.ping_timeout_seconds":   DefaultPingTimeoutSeconds,
		"database.query_timeout_seconds":  DefaultQueryTimeoutSeconds,
		"server.port":                     DefaultServerPort,
		"server.refresh_interval_seconds": DefaultRefreshSeconds,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file.
	configFileUsed := findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables.
	// FLOWMON_DATA_DIR -> data_dir, FLOWMON_SERVER__PORT -> server.port.
	if err := k.Load(env.Provider("FLOWMON_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "FLOWMON_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Legacy DB_* credential variables (shared with the dashboard deploys).
	for envVar, key := range legacyDBVars {
		if v := os.Getenv(envVar); v != "" {
			if err := k.Load(confmap.Provider(map[string]interface{}{key: v}, "."), nil); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envVar, err)
			}
		}
	}

	// 4. Flags (highest priority).
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// kebab-case flags map to snake_case config keys.
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()

	// Anchor relative paths at the config file's directory, or the CWD when
	// no config file exists.
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			cfg.ProjectRoot = filepath.Dir(abs)
		}
	}
	if cfg.ProjectRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		cfg.ProjectRoot = cwd
	}

	return &cfg, nil
}

// findConfigFile finds the config file to use.
// Priority: explicit path > flowmon.yaml > flowmon.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(ConfigFileName); err == nil {
		return ConfigFileName
	}
	if _, err := os.Stat(ConfigFileNameAlt); err == nil {
		return ConfigFileNameAlt
	}
	return ""
}
