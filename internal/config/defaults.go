package config

// Default configuration values.
const (
	DefaultDataDir             = "data"
	DefaultOutput              = "table"
	DefaultTable               = "flow_run_history"
	DefaultPingTimeoutSeconds  = 3
	DefaultQueryTimeoutSeconds = 30
	DefaultServerPort          = 8090
	DefaultRefreshSeconds      = 300
)

// ApplyDefaults fills in zero values on a Config.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	c.Database.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// ApplyDefaults fills in zero values on a DatabaseConfig.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.Table == "" {
		d.Table = DefaultTable
	}
	if d.PingTimeoutSeconds == 0 {
		d.PingTimeoutSeconds = DefaultPingTimeoutSeconds
	}
	if d.QueryTimeoutSeconds == 0 {
		d.QueryTimeoutSeconds = DefaultQueryTimeoutSeconds
	}
}

// ApplyDefaults fills in zero values on a ServerConfig.
func (s *ServerConfig) ApplyDefaults() {
	if s.Port == 0 {
		s.Port = DefaultServerPort
	}
	if s.RefreshIntervalSeconds == 0 {
		s.RefreshIntervalSeconds = DefaultRefreshSeconds
	}
}
