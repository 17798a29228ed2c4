package actuator

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultThreshold is the luminosity below which the LED is switched on.
const DefaultThreshold = 35

// StatusPrefix starts every LED status payload.
const StatusPrefix = "LED is now "

// State is the LED state as last commanded by the bridge.
type State string

// LED states.
const (
	// StateUnknown is the state before the first command. Every target
	// differs from it, so the first valid reading always commands.
	StateUnknown State = "UNKNOWN"
	StateOn      State = "ON"
	StateOff     State = "OFF"
)

// Command is the one-byte opcode written to the actuator MCU.
type Command byte

// Opcodes understood by the actuator firmware.
const (
	CommandRaise Command = 'u'
	CommandLower Command = 'd'
)

// String returns the opcode's name.
func (c Command) String() string {
	switch c {
	case CommandRaise:
		return "RAISE"
	case CommandLower:
		return "LOWER"
	default:
		return fmt.Sprintf("Command(%q)", byte(c))
	}
}

// TargetFor returns the state a reading asks for. The comparison is strict:
// a reading equal to the threshold switches the LED off.
func TargetFor(reading, threshold int) State {
	if reading < threshold {
		return StateOn
	}
	return StateOff
}

// CommandFor returns the opcode that drives the LED to target.
func CommandFor(target State) Command {
	if target == StateOn {
		return CommandRaise
	}
	return CommandLower
}

// ParseReading parses a reading payload as published by the sensor bridge.
func ParseReading(payload []byte) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReading, payload)
	}
	return value, nil
}

// StatusPayload returns the retained actuator status for state.
func StatusPayload(state State) []byte {
	return []byte(StatusPrefix + string(state))
}

// ParseStatus extracts the state from an LED status payload. Presence
// payloads on the same topic return false.
func ParseStatus(payload []byte) (State, bool) {
	rest, ok := strings.CutPrefix(string(payload), StatusPrefix)
	if !ok {
		return "", false
	}
	switch state := State(rest); state {
	case StateOn, StateOff:
		return state, true
	default:
		return "", false
	}
}
