package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"go.bug.st/serial"
)

// SerialDialer opens an AT peripheral over a serial port using
// go.bug.st/serial. Opening is retried a few times because USB-attached
// modems commonly take a moment to enumerate after power-on.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// Mode configures baud rate, parity, data and stop bits. Nil selects
	// 115200 8N1.
	Mode *serial.Mode
	// OpenRetries is the number of open attempts, default 3.
	OpenRetries int
	// RetryDelay is the pause between attempts, default 500ms.
	RetryDelay time.Duration
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("transport: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("transport: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: 115200,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	attempts := d.OpenRetries
	if attempts <= 0 {
		attempts = 3
	}
	delay := d.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var port serial.Port
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			p, err := serial.Open(d.PortName, mode)
			if err != nil {
				return err
			}
			port = p
			return nil
		},
		retry.Attempts(uint(attempts)),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}

	return port, nil
}
