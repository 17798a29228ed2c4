package serial

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	bugserial "go.bug.st/serial"
)

const (
	// readChunkSize is the size of a single read from the device.
	readChunkSize = 256

	// maxLineLength caps the bytes buffered while waiting for a newline.
	// The MCU firmware never sends lines anywhere near this long.
	maxLineLength = 4096

	// minReadTimeout keeps the per-read timeout above driver granularity.
	minReadTimeout = time.Millisecond
)

// Port is the subset of go.bug.st/serial.Port used by a Channel.
// Tests supply their own implementation.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Config describes the device a Channel is opened on.
type Config struct {
	// Name is the OS device path, e.g. /dev/ttyACM0 or COM3.
	Name string

	// BaudRate must match the MCU firmware.
	BaudRate int

	// ReadTimeout bounds a single ReadLine call.
	ReadTimeout time.Duration
}

// Channel owns one serial device handle and frames it into lines.
//
// ReadLine is intended for a single reader goroutine. Close may be called
// from any goroutine and unblocks a pending read.
type Channel struct {
	port    Port
	name    string
	timeout time.Duration

	// buf holds bytes received after the last complete line.
	buf []byte
	// discarding is set after an oversized line was dropped. Bytes up to
	// the next newline belong to that line and are dropped too.
	discarding bool
	readMu     sync.Mutex

	closed bool
	mu     sync.Mutex

	now func() time.Time
}

// Open claims the device described by cfg.
//
// Returns:
//   - *Channel: Open channel ready for reads and writes
//   - error: ErrInvalidConfig or ErrChannelUnavailable (wrapping the OS error)
func Open(cfg Config) (*Channel, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: device name is required", ErrInvalidConfig)
	}
	if cfg.BaudRate <= 0 {
		return nil, fmt.Errorf("%w: baud rate must be positive", ErrInvalidConfig)
	}
	if cfg.ReadTimeout <= 0 {
		return nil, fmt.Errorf("%w: read timeout must be positive", ErrInvalidConfig)
	}

	port, err := bugserial.Open(cfg.Name, &bugserial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrChannelUnavailable, cfg.Name, err)
	}

	ch, err := New(port, cfg.Name, cfg.ReadTimeout)
	if err != nil {
		port.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return ch, nil
}

// New wraps an already-open port.
func New(port Port, name string, timeout time.Duration) (*Channel, error) {
	if port == nil {
		return nil, fmt.Errorf("%w: port is required", ErrInvalidConfig)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: read timeout must be positive", ErrInvalidConfig)
	}

	if err := port.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("%w: setting read timeout on %s: %w", ErrChannelUnavailable, name, err)
	}

	return &Channel{
		port:    port,
		name:    name,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Name returns the device path the channel was opened on.
func (c *Channel) Name() string {
	return c.name
}

// IsOpen reports whether Close has not yet been called.
func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// ReadLine returns the next newline-terminated line, without surrounding
// whitespace.
//
// It blocks for at most the channel's read timeout: each device read is
// given only the time left until the deadline. On timeout it returns
// ("", false, nil); bytes of an incomplete line are kept for the next call.
//
// A partial line longer than maxLineLength is dropped along with the rest
// of that line, and ErrLineTooLong is returned. The channel stays usable.
//
// Returns:
//   - string: The line, trimmed
//   - bool: true if a complete line was read
//   - error: ErrChannelClosed after Close, ErrChannelUnavailable on device
//     loss, ErrLineTooLong for an oversized line
func (c *Channel) ReadLine() (string, bool, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	deadline := c.now().Add(c.timeout)
	chunk := make([]byte, readChunkSize)

	for {
		if line, ok := c.takeLine(); ok {
			return line, true, nil
		}

		if !c.IsOpen() {
			return "", false, ErrChannelClosed
		}

		now := c.now()
		if !now.Before(deadline) {
			return "", false, nil
		}

		remaining := max(deadline.Sub(now), minReadTimeout)
		if err := c.port.SetReadTimeout(remaining); err != nil {
			return "", false, fmt.Errorf("%w: setting read timeout on %s: %w", ErrChannelUnavailable, c.name, err)
		}

		n, err := c.port.Read(chunk)
		if err != nil {
			if !c.IsOpen() {
				return "", false, ErrChannelClosed
			}
			return "", false, fmt.Errorf("%w: reading %s: %w", ErrChannelUnavailable, c.name, err)
		}
		if n == 0 {
			// Driver-level timeout with nothing received.
			return "", false, nil
		}
		c.buf = append(c.buf, chunk[:n]...)

		if len(c.buf) > maxLineLength && bytes.IndexByte(c.buf, '\n') < 0 {
			c.buf = c.buf[:0]
			c.discarding = true
			return "", false, fmt.Errorf("%w: %s sent more than %d bytes without a newline", ErrLineTooLong, c.name, maxLineLength)
		}
	}
}

// takeLine removes the first complete line from the buffer.
func (c *Channel) takeLine() (string, bool) {
	for {
		idx := bytes.IndexByte(c.buf, '\n')
		if idx < 0 {
			return "", false
		}
		raw := c.buf[:idx]
		c.buf = c.buf[idx+1:]

		if c.discarding {
			c.discarding = false
			continue
		}
		return strings.TrimSpace(string(raw)), true
	}
}

// WriteByte sends a single opcode byte to the device.
//
// Callers that expect a reply follow it with ReadLine.
func (c *Channel) WriteByte(b byte) error {
	if !c.IsOpen() {
		return ErrChannelClosed
	}

	n, err := c.port.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrChannelUnavailable, c.name, err)
	}
	if n != 1 {
		return fmt.Errorf("%w: short write to %s", ErrChannelUnavailable, c.name)
	}
	return nil
}

// Close releases the device. It is safe to call more than once and from
// a different goroutine than the reader.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.port.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", c.name, err)
	}
	return nil
}
