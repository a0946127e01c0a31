package weconnect

import (
	"strings"
)

// EventFlag is a bitmask describing what happened to an attribute.
type EventFlag uint8

const (
	// EventValueChanged is set when an attribute got a new value, including its first one.
	EventValueChanged EventFlag = 1 << iota
	// EventEnabled is set when an attribute appeared.
	EventEnabled
	// EventDisabled is set when an attribute vanished.
	EventDisabled

	EventAll = EventValueChanged | EventEnabled | EventDisabled
)

// Has checks if any of the provided flags is set.
func (f EventFlag) Has(flags EventFlag) bool {
	return f&flags != 0
}

// String implements the fmt.Stringer interface.
func (f EventFlag) String() string {
	var names []string

	if f.Has(EventValueChanged) {
		names = append(names, "VALUE_CHANGED")
	}

	if f.Has(EventEnabled) {
		names = append(names, "ENABLED")
	}

	if f.Has(EventDisabled) {
		names = append(names, "DISABLED")
	}

	if len(names) == 0 {
		return "NONE"
	}

	return strings.Join(names, "|")
}

// Event describes a change of a single attribute.
type Event struct {
	Address string
	// Value is the new value, empty for EventDisabled.
	Value string
	Flags EventFlag
}

// Observer is called synchronously for every matching event.
type Observer func(event Event)

type registration struct {
	flags    EventFlag
	observer Observer
}
