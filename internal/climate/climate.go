// Package climate classifies vehicle climatization states into the modes the charger reacts to.
package climate

import (
	"strings"
)

// State is a climatization state reported by the vehicle service.
type State string

const (
	StateOff         State = "off"
	StateHeating     State = "heating"
	StateCooling     State = "cooling"
	StateVentilation State = "ventilation"
	StateInvalid     State = "invalid"
	StateUnknown     State = "unknown"
)

// Mode is the coarse classification of a climatization state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeRunning
)

// String implements the fmt.Stringer interface.
func (m Mode) String() string {
	switch m {
	case ModeRunning:
		return "RUNNING"
	case ModeIdle:
		return "IDLE"
	default:
		return "UNDEFINED"
	}
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "RUNNING":
		return ModeRunning, true
	case "IDLE":
		return ModeIdle, true
	default:
		return ModeIdle, false
	}
}

var states = map[State]struct{}{
	StateOff:         {},
	StateHeating:     {},
	StateCooling:     {},
	StateVentilation: {},
	StateInvalid:     {},
	StateUnknown:     {},
}

// ParseState parses a raw value reported by the vehicle service. Unrecognized values become StateUnknown.
func ParseState(raw string) State {
	s := State(strings.ToLower(strings.TrimSpace(raw)))

	if _, ok := states[s]; !ok {
		return StateUnknown
	}

	return s
}

// modes holds the classification table, states missing from it are not classified.
var modes = map[State]Mode{
	StateHeating:     ModeRunning,
	StateCooling:     ModeRunning,
	StateVentilation: ModeRunning,
	StateOff:         ModeIdle,
}

// Classify returns the mode of the provided state and false if the state must be ignored.
func Classify(s State) (Mode, bool) {
	m, ok := modes[s]

	return m, ok
}
