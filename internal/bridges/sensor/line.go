package sensor

import (
	"fmt"
	"strconv"
	"strings"
)

// Serial protocol markers.
const (
	// ReadingPrefix introduces a luminosity reading from the MCU.
	ReadingPrefix = "SENSOR_VALUE:"

	// MCUMessagePrefix is prepended to every other MCU line before it is
	// republished on the status topic.
	MCUMessagePrefix = "MCU_MSG: "
)

// LineKind classifies a line received from the sensor MCU.
type LineKind int

const (
	// LineEmpty is a blank line; it is skipped.
	LineEmpty LineKind = iota

	// LineReading carries a luminosity value.
	LineReading

	// LineMessage is free text from the MCU (boot banners, STREAM_STARTED).
	LineMessage
)

// String returns the kind name for logs.
func (k LineKind) String() string {
	switch k {
	case LineEmpty:
		return "empty"
	case LineReading:
		return "reading"
	case LineMessage:
		return "message"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// Line is a classified MCU line.
type Line struct {
	Kind LineKind

	// Reading is set for LineReading.
	Reading int

	// Text is the trimmed original line.
	Text string
}

// ParseLine classifies a single line from the sensor MCU.
//
// A SENSOR_VALUE line whose value is not an integer returns
// ErrMalformedReading; it is never republished as a status message.
func ParseLine(raw string) (Line, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Line{Kind: LineEmpty}, nil
	}

	if !strings.HasPrefix(text, ReadingPrefix) {
		return Line{Kind: LineMessage, Text: text}, nil
	}

	valueText := strings.TrimSpace(strings.TrimPrefix(text, ReadingPrefix))
	value, err := strconv.Atoi(valueText)
	if err != nil {
		return Line{Text: text}, fmt.Errorf("%w: %q", ErrMalformedReading, text)
	}

	return Line{Kind: LineReading, Reading: value, Text: text}, nil
}

// Payload returns the bus payload for a reading or message line.
//
// Readings are re-encoded in canonical decimal form, so "SENSOR_VALUE:042"
// publishes "42".
func (l Line) Payload() []byte {
	switch l.Kind {
	case LineReading:
		return []byte(strconv.Itoa(l.Reading))
	case LineMessage:
		return []byte(MCUMessagePrefix + l.Text)
	default:
		return nil
	}
}
