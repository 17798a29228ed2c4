package actuator

import "errors"

// Domain errors for the actuator bridge package.
var (
	// ErrChannelRequired is returned by NewBridge without a serial channel.
	ErrChannelRequired = errors.New("actuator: serial channel is required")

	// ErrBusRequired is returned by NewBridge without a bus session.
	ErrBusRequired = errors.New("actuator: bus is required")

	// ErrInvalidQoS is returned by NewBridge for a QoS above 2.
	ErrInvalidQoS = errors.New("actuator: invalid QoS level")

	// ErrInvalidReading is returned for a payload that is not an integer.
	ErrInvalidReading = errors.New("actuator: invalid reading")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("actuator: bridge already started")
)
