package monitor

import "errors"

var (
	// ErrBusRequired is returned by New without a bus session.
	ErrBusRequired = errors.New("monitor: bus is required")

	// ErrInvalidQoS is returned by New for a QoS above 2.
	ErrInvalidQoS = errors.New("monitor: invalid QoS level")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("monitor: already started")
)
