package engine

import (
	"log/slog"
	"time"

	"github.com/atline-io/atline/at"
	"github.com/atline-io/atline/internal/logging"
	"github.com/atline-io/atline/transport"
)

// DropPolicy selects which URC is discarded when the sink is full.
type DropPolicy int

const (
	// DropNewest discards the arriving URC when the sink is full.
	DropNewest DropPolicy = iota
	// DropOldest evicts the oldest queued URC to make room.
	DropOldest
)

// Config holds the immutable engine settings. It is fixed at construction
// and never mutated afterwards.
type Config struct {
	// Dialer opens the transport during New.
	Dialer transport.Dialer
	// Terminator is the line terminator sequence, default "\r\n".
	Terminator string
	// Echo indicates the peripheral echoes command lines before
	// responding (ATE1). The engine then consumes the echo silently.
	Echo bool
	// CommandTimeout is the default deadline for Send, overridable per
	// command.
	CommandTimeout time.Duration
	// BufferSize is the fixed receive buffer capacity in bytes.
	BufferSize int
	// URCQueueSize bounds the URC sink.
	URCQueueSize int
	// URCDropPolicy selects the eviction policy for a full URC sink.
	URCDropPolicy DropPolicy
	// FlushOnError discards any bytes still buffered when a final error
	// result code resolves a command.
	FlushOnError bool
	// PollInterval is the granularity of the deadline poll loop in Send.
	PollInterval time.Duration
	// Clock supplies monotonic ticks; defaults to the system clock.
	Clock Clock
	// Logger defaults to the package-global logger.
	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Terminator == "" {
		c.Terminator = at.CRLF
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 5 * time.Second
	}
	if c.BufferSize == 0 {
		c.BufferSize = 1024
	}
	if c.URCQueueSize == 0 {
		c.URCQueueSize = 64
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.Clock == nil {
		c.Clock = NewSystemClock()
	}
	if c.Logger == nil {
		c.Logger = logging.L()
	}
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	cfg Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d transport.Dialer) *ConfigBuilder {
	b.cfg.Dialer = d
	return b
}

func (b *ConfigBuilder) WithTerminator(t string) *ConfigBuilder {
	b.cfg.Terminator = t
	return b
}

func (b *ConfigBuilder) WithEcho(on bool) *ConfigBuilder {
	b.cfg.Echo = on
	return b
}

func (b *ConfigBuilder) WithCommandTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.CommandTimeout = d
	return b
}

func (b *ConfigBuilder) WithBufferSize(n int) *ConfigBuilder {
	b.cfg.BufferSize = n
	return b
}

func (b *ConfigBuilder) WithURCQueueSize(n int) *ConfigBuilder {
	b.cfg.URCQueueSize = n
	return b
}

func (b *ConfigBuilder) WithURCDropPolicy(p DropPolicy) *ConfigBuilder {
	b.cfg.URCDropPolicy = p
	return b
}

func (b *ConfigBuilder) WithFlushOnError(on bool) *ConfigBuilder {
	b.cfg.FlushOnError = on
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.cfg.PollInterval = d
	return b
}

func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.cfg.Clock = c
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.cfg.Logger = l
	return b
}

// Build validates the assembled configuration.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.cfg.validate(); err != nil {
		return Config{}, err
	}
	return b.cfg, nil
}
