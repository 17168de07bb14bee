package config

import "time"

// Sender policies for send-message.
const (
	SenderPolicyPayload = "payload"
	SenderPolicyBinding = "binding"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	MaxMessageBytes    int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	MaxNameLength      int      `mapstructure:"max_name_length" yaml:"max_name_length"`
	SenderPolicy       string   `mapstructure:"sender_policy" yaml:"sender_policy"`
	ClientBuffer       int      `mapstructure:"client_buffer" yaml:"client_buffer"`
	AllowedOrigins     []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// DatabasePath enables the presence journal when non-empty.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	SocketIO SocketIOConfig `mapstructure:"socketio" yaml:"socketio"`
}

// SocketIOConfig configures the Socket.IO compatible transport.
type SocketIOConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	PingInterval time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PingTimeout  time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		MaxMessageBytes:    64 << 10,
		RateLimitPerMinute: 600,
		MaxNameLength:      0,
		SenderPolicy:       SenderPolicyPayload,
		ClientBuffer:       32,
		DatabasePath:       "",
		SocketIO: SocketIOConfig{
			Enabled:      true,
			PingInterval: 25 * time.Second,
			PingTimeout:  20 * time.Second,
		},
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
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.MaxNameLength != 0 {
		c.MaxNameLength = other.MaxNameLength
	}
	if other.SenderPolicy != "" {
		c.SenderPolicy = other.SenderPolicy
	}
	if other.ClientBuffer != 0 {
		c.ClientBuffer = other.ClientBuffer
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
}
