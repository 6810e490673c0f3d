package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/atline-io/atline/engine"
	"github.com/atline-io/atline/internal/logging"
	"github.com/atline-io/atline/internal/metrics"
	"github.com/atline-io/atline/transport"
)

var rootCmd = &cobra.Command{
	Use:          "atctl",
	Short:        "AT peripheral diagnostic tool",
	Long:         "atctl talks to an AT command peripheral over a serial port: send individual commands and watch unsolicited notifications.",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

const (
	flagPort        = "port"
	flagBaudrate    = "baudrate"
	flagConfig      = "config"
	flagEcho        = "echo"
	flagTimeout     = "timeout"
	flagLogLevel    = "log-level"
	flagLogFormat   = "log-format"
	flagMetricsAddr = "metrics-addr"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "/dev/ttyUSB0", "serial port of the AT peripheral")
	pf.IntP(flagBaudrate, "b", 115200, "baudrate")
	pf.StringP(flagConfig, "c", "", "TOML config file")
	pf.Bool(flagEcho, false, "peripheral echoes command lines (ATE1)")
	pf.String(flagTimeout, "5s", "default command timeout")
	pf.String(flagLogLevel, "info", "log level (debug, info, warn, error)")
	pf.String(flagLogFormat, "text", "log format (text, json)")
	pf.String(flagMetricsAddr, "", "expose Prometheus metrics on this address, e.g. :9100")
}

// setup loads the layered configuration and installs the logger.
func setup(cmd *cobra.Command) (*Config, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := LoadConfig(WithDefaults(), WithFile(path), WithFlags(cmd))
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logging.Set(logging.New(cfg.Log.Format, level, os.Stderr))

	if cfg.Metrics.Addr != "" {
		metrics.StartHTTP(cfg.Metrics.Addr)
	}
	return cfg, nil
}

// newEngine opens the serial port and constructs the protocol engine.
func newEngine(ctx context.Context, cfg *Config) (*engine.Engine, error) {
	timeout, err := cfg.commandTimeout()
	if err != nil {
		return nil, err
	}

	b := engine.NewConfigBuilder().
		WithDialer(transport.SerialDialer{
			PortName: cfg.Serial.Port,
			Mode: &serial.Mode{
				BaudRate: cfg.Serial.Baudrate,
				Parity:   serial.NoParity,
				DataBits: 8,
				StopBits: serial.OneStopBit,
			},
		}).
		WithEcho(cfg.Engine.Echo).
		WithCommandTimeout(timeout).
		WithBufferSize(cfg.Engine.BufferSize).
		WithURCQueueSize(cfg.Engine.URCQueueSize)

	engineCfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	return engine.New(ctx, engineCfg)
}
