package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Hard limits for simultaneous monitor clients. The monitor is a debugging
// aid on a constrained device; more than a few clients is never useful.
const (
	MaxClientsFloor = 1
	MaxClientsCap   = 3
)

// Defaults for the monitor server.
const (
	DefaultPort              = 5055
	DefaultMaxClients        = 3
	DefaultRecvBufSize       = 1024
	DefaultSendBufSize       = 1024
	DefaultHeartbeatInterval = 30 // seconds
	DefaultHeartbeatTimeout  = 60 // seconds

	// minBufSize is the smallest usable receive/send buffer. A buffer must
	// hold at least one complete frame header plus a small payload.
	minBufSize = 256
)

// Config holds the AI monitor server configuration.
type Config struct {
	// Host is the local address to bind. Empty means all interfaces.
	Host string `yaml:"host"`
	// Port is the TCP port the monitor listens on.
	Port int `yaml:"port"`
	// MaxClients is the maximum number of simultaneous client connections.
	// Clamped to [1, 3].
	MaxClients int `yaml:"max_clients"`
	// RecvBufSize is the per-client receive buffer size in bytes.
	RecvBufSize int `yaml:"recv_buf_size"`
	// SendBufSize is the per-client send buffer size in bytes.
	SendBufSize int `yaml:"send_buf_size"`
	// HeartbeatInterval is the expected client ping period in seconds.
	HeartbeatInterval int `yaml:"heartbeat_interval"`
	// HeartbeatTimeout is the stale-session eviction threshold in seconds.
	// Zero disables eviction; sessions then live until the socket drops.
	HeartbeatTimeout int `yaml:"heartbeat_timeout"`
	// EnableBroadcast gates the relay of AI pipeline traffic to clients.
	EnableBroadcast bool `yaml:"enable_broadcast"`
	// Announce enables mDNS announcement of the monitor service.
	Announce bool `yaml:"announce"`
	// LogLevel is the zap log level (debug, info, warn, error).
	// Empty falls back to the AIMON_LOG_LEVEL environment variable.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:              DefaultPort,
		MaxClients:        DefaultMaxClients,
		RecvBufSize:       DefaultRecvBufSize,
		SendBufSize:       DefaultSendBufSize,
		HeartbeatInterval: DefaultHeartbeatInterval,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		EnableBroadcast:   true,
		Announce:          true,
	}
}

// Load reads a YAML configuration file and merges it over the defaults.
// A missing file is not an error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate normalizes the configuration in place. Out-of-range client and
// buffer limits are clamped rather than rejected; an unusable port is an
// error because there is no sensible substitute.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MaxClients < MaxClientsFloor {
		c.MaxClients = MaxClientsFloor
	}
	if c.MaxClients > MaxClientsCap {
		c.MaxClients = MaxClientsCap
	}

	if c.RecvBufSize < minBufSize {
		c.RecvBufSize = minBufSize
	}
	if c.SendBufSize < minBufSize {
		c.SendBufSize = minBufSize
	}

	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.HeartbeatTimeout < 0 {
		c.HeartbeatTimeout = 0
	}

	return nil
}

// WriteDefault writes the default configuration to path as commented YAML.
// The write is atomic: the file is staged under a temporary name and renamed
// into place.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	header := []byte(`# AI monitor server configuration.
#
# heartbeat_timeout: 0 disables stale-session eviction; sessions then live
# until their socket drops.

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
