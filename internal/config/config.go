package config

import "time"

// Config holds every knob the room engine consumes at start-up.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// AdmissionCeiling bounds process-wide live connections.
	AdmissionCeiling int64 `mapstructure:"admission_ceiling" yaml:"admission_ceiling"`

	// RateLimitInterval is the minimum spacing between a non-admin user's
	// accepted chat messages.
	RateLimitInterval time.Duration `mapstructure:"rate_limit_interval" yaml:"rate_limit_interval"`
	// CoalesceWindow is the join/leave notice coalescing window.
	CoalesceWindow time.Duration `mapstructure:"coalesce_window" yaml:"coalesce_window"`

	// WriteSinkBatchSize/WriteSinkFlushInterval tune the durable-write sink.
	WriteSinkBatchSize     int           `mapstructure:"write_sink_batch_size" yaml:"write_sink_batch_size"`
	WriteSinkFlushInterval time.Duration `mapstructure:"write_sink_flush_interval" yaml:"write_sink_flush_interval"`

	// AdminAPIKeyHash is the bcrypt hash of the shared-secret admin key
	// checked by the management surface's X-Api-Key header.
	AdminAPIKeyHash string `mapstructure:"admin_api_key_hash" yaml:"admin_api_key_hash"`
	// AdminJWTSecret signs the admin session token issued after a
	// successful X-Api-Key check.
	AdminJWTSecret string        `mapstructure:"admin_jwt_secret" yaml:"admin_jwt_secret"`
	AdminJWTTTL    time.Duration `mapstructure:"admin_jwt_ttl" yaml:"admin_jwt_ttl"`
}

// Default returns the room engine's baseline configuration.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,

		DatabasePath: "roomengine.db",

		AdmissionCeiling: 100000,

		RateLimitInterval: 3 * time.Second,
		CoalesceWindow:    time.Second,

		WriteSinkBatchSize:     100,
		WriteSinkFlushInterval: 200 * time.Millisecond,

		AdminJWTTTL: time.Hour,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.AdmissionCeiling != 0 {
		c.AdmissionCeiling = other.AdmissionCeiling
	}
	if other.RateLimitInterval != 0 {
		c.RateLimitInterval = other.RateLimitInterval
	}
	if other.CoalesceWindow != 0 {
		c.CoalesceWindow = other.CoalesceWindow
	}
	if other.WriteSinkBatchSize != 0 {
		c.WriteSinkBatchSize = other.WriteSinkBatchSize
	}
	if other.WriteSinkFlushInterval != 0 {
		c.WriteSinkFlushInterval = other.WriteSinkFlushInterval
	}
	if other.AdminAPIKeyHash != "" {
		c.AdminAPIKeyHash = other.AdminAPIKeyHash
	}
	if other.AdminJWTSecret != "" {
		c.AdminJWTSecret = other.AdminJWTSecret
	}
	if other.AdminJWTTTL != 0 {
		c.AdminJWTTTL = other.AdminJWTTTL
	}
}
