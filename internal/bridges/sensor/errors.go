package sensor

import "errors"

// Domain errors for the sensor bridge package.
var (
	// ErrChannelRequired is returned by NewBridge without a serial channel.
	ErrChannelRequired = errors.New("sensor: serial channel is required")

	// ErrBusRequired is returned by NewBridge without a bus publisher.
	ErrBusRequired = errors.New("sensor: bus publisher is required")

	// ErrInvalidQoS is returned by NewBridge for a QoS above 2.
	ErrInvalidQoS = errors.New("sensor: invalid QoS level")

	// ErrMalformedReading is returned for a SENSOR_VALUE line whose value
	// is not an integer.
	ErrMalformedReading = errors.New("sensor: malformed reading")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("sensor: bridge already started")
)
