package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// Config holds the tool configuration, assembled from defaults, an
// optional TOML file and command-line flags, in that order.
type Config struct {
	Serial  SerialConfig  `toml:"serial"`
	Engine  EngineConfig  `toml:"engine"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

type SerialConfig struct {
	// Port is the device path, e.g. "/dev/ttyUSB0".
	Port string `toml:"port"`
	// Baudrate for the serial link.
	Baudrate int `toml:"baudrate"`
}

type EngineConfig struct {
	// Echo indicates the peripheral echoes command lines (ATE1).
	Echo bool `toml:"echo"`
	// Timeout is the default command deadline, e.g. "5s".
	Timeout string `toml:"timeout"`
	// BufferSize is the receive buffer capacity in bytes.
	BufferSize int `toml:"buffer_size"`
	// URCQueueSize bounds the notification queue.
	URCQueueSize int `toml:"urc_queue_size"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

type MetricsConfig struct {
	// Addr enables the Prometheus /metrics endpoint when non-empty,
	// e.g. ":9100".
	Addr string `toml:"addr"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.Serial.Port = "/dev/ttyUSB0"
		c.Serial.Baudrate = 115200
		c.Engine.Timeout = "5s"
		c.Log.Level = "info"
		c.Log.Format = "text"
		return nil
	}
}

// WithFile loads configuration from a TOML file. An empty path is a
// no-op so the file stays optional.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithFlags overrides configuration with any flags the user set
// explicitly on the command line.
func WithFlags(cmd *cobra.Command) ConfigOption {
	return func(c *Config) error {
		f := cmd.Flags()
		if f.Changed(flagPort) {
			c.Serial.Port, _ = f.GetString(flagPort)
		}
		if f.Changed(flagBaudrate) {
			c.Serial.Baudrate, _ = f.GetInt(flagBaudrate)
		}
		if f.Changed(flagEcho) {
			c.Engine.Echo, _ = f.GetBool(flagEcho)
		}
		if f.Changed(flagTimeout) {
			c.Engine.Timeout, _ = f.GetString(flagTimeout)
		}
		if f.Changed(flagLogLevel) {
			c.Log.Level, _ = f.GetString(flagLogLevel)
		}
		if f.Changed(flagLogFormat) {
			c.Log.Format, _ = f.GetString(flagLogFormat)
		}
		if f.Changed(flagMetricsAddr) {
			c.Metrics.Addr, _ = f.GetString(flagMetricsAddr)
		}
		return nil
	}
}

// commandTimeout parses the configured default deadline.
func (c *Config) commandTimeout() (time.Duration, error) {
	if c.Engine.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid engine timeout %q: %w", c.Engine.Timeout, err)
	}
	return d, nil
}
