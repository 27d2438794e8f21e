// Package config provides configuration types and loading for flowmon.
// Configuration is layered: built-in defaults, then flowmon.yaml, then
// environment variables, then CLI flags.
package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"
)

// DatabaseConfig holds the read-only run-history database connection.
// Credentials come from flowmon.yaml or from the DB_SERVER / DB_NAME /
// DB_UID / DB_PWD environment variables; an incomplete set is treated the
// same as an unreachable database and triggers the CSV fallback.
type DatabaseConfig struct {
	Server   string `koanf:"server"` // host or host:port
	Name     string `koanf:"name"`
	User     string `koanf:"uid"`
	Password string `koanf:"pwd"`
	SSLMode  string `koanf:"sslmode"`

	// Table is the run-history table queried for flow runs.
	Table string `koanf:"table"`

	PingTimeoutSeconds  int `koanf:"ping_timeout_seconds"`
	QueryTimeoutSeconds int `koanf:"query_timeout_seconds"`
}

// Configured reports whether every required credential is present.
func (d *DatabaseConfig) Configured() bool {
	return d.Server != "" && d.Name != "" && d.User != "" && d.Password != ""
}

// MissingCredentials lists the required values that are absent.
func (d *DatabaseConfig) MissingCredentials() []string {
	var missing []string
	if d.Server == "" {
		missing = append(missing, "DB_SERVER")
	}
	if d.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if d.User == "" {
		missing = append(missing, "DB_UID")
	}
	if d.Password == "" {
		missing = append(missing, "DB_PWD")
	}
	return missing
}

// DSN builds a key=value PostgreSQL connection string. The password is never
// logged; use Redacted for display.
func (d *DatabaseConfig) DSN() string {
	host := d.Server
	port := "5432"
	if h, p, err := net.SplitHostPort(d.Server); err == nil {
		host, port = h, p
	}

	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s dbname=%s sslmode=%s", host, port, d.Name, sslmode)
	if d.User != "" {
		dsn += fmt.Sprintf(" user=%s", d.User)
	}
	if d.Password != "" {
		dsn += fmt.Sprintf(" password=%s", d.Password)
	}
	return dsn
}

// Redacted returns the DSN with the password masked.
func (d *DatabaseConfig) Redacted() string {
	if d.Password == "" {
		return d.DSN()
	}
	return strings.ReplaceAll(d.DSN(), "password="+d.Password, "password=******")
}

// PingTimeout returns the connectivity-probe timeout.
func (d *DatabaseConfig) PingTimeout() time.Duration {
	return time.Duration(d.PingTimeoutSeconds) * time.Second
}

// QueryTimeout returns the per-load query timeout. A load exceeding it is a
// Failure and falls back to CSV.
func (d *DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(d.QueryTimeoutSeconds) * time.Second
}

// ServerConfig holds the JSON API server settings.
type ServerConfig struct {
	Port                   int  `koanf:"port"`
	RefreshIntervalSeconds int  `koanf:"refresh_interval_seconds"`
	Watch                  bool `koanf:"watch"` // re-load when a CSV file changes
}

// RefreshInterval returns the auto-refresh period.
func (s *ServerConfig) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshIntervalSeconds) * time.Second
}

// Config is the full flowmon configuration.
type Config struct {
	// ProjectRoot anchors relative paths and CSV discovery. Set by Load.
	ProjectRoot string `koanf:"-"`

	// DataDir is the secondary CSV drop location, relative to ProjectRoot.
	DataDir string `koanf:"data_dir"`

	// Day is the default report date (YYYY-MM-DD); empty means today.
	Day string `koanf:"day"`

	Verbose bool   `koanf:"verbose"`
	Output  string `koanf:"output"` // table|json

	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
}

// CSVSearchPaths returns the directories scanned for flow_data_*.csv files,
// in priority order: project root, then the data directory.
func (c *Config) CSVSearchPaths() []string {
	dataDir := c.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(c.ProjectRoot, dataDir)
	}
	return []string{c.ProjectRoot, dataDir}
}
