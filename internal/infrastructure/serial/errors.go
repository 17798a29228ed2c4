package serial

import "errors"

// Domain-specific errors for serial channel operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrChannelUnavailable is returned when the device cannot be claimed
	// or has gone away (unplugged, reset, I/O error).
	ErrChannelUnavailable = errors.New("serial: channel unavailable")

	// ErrChannelClosed is returned for operations on a channel after Close.
	ErrChannelClosed = errors.New("serial: channel closed")

	// ErrLineTooLong is returned by ReadLine when the device sends more than
	// maxLineLength bytes without a newline. The partial line is dropped.
	ErrLineTooLong = errors.New("serial: line too long")

	// ErrInvalidConfig is returned when Open is given an unusable configuration.
	ErrInvalidConfig = errors.New("serial: invalid configuration")
)
