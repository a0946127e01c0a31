package reconcile

import (
	"github.com/futurehomeno/edge-vwarmup/internal/climate"
)

// OpModeAwaitingStart is the charger mode in which a car is connected but charging has not started.
const OpModeAwaitingStart = "AWAITING_START"

// Decision is the action to take on the charger's smart charging flag.
type Decision int

const (
	DecisionNoOp Decision = iota
	DecisionEnableSmartCharging
	DecisionDisableSmartCharging
)

// String implements the fmt.Stringer interface.
func (d Decision) String() string {
	switch d {
	case DecisionEnableSmartCharging:
		return "ENABLE_SMART_CHARGING"
	case DecisionDisableSmartCharging:
		return "DISABLE_SMART_CHARGING"
	default:
		return "NO_OP"
	}
}

// Snapshot is the charger state a decision is based on. It is read fresh for every reconciliation.
type Snapshot struct {
	SmartCharging bool
	OpMode        string
}

// Decide returns the action for the snapshot and the climatization mode. The first matching rule wins.
func Decide(s Snapshot, mode climate.Mode) Decision {
	switch {
	case s.SmartCharging && mode == climate.ModeRunning && s.OpMode == OpModeAwaitingStart:
		return DecisionDisableSmartCharging
	case !s.SmartCharging && mode == climate.ModeIdle:
		return DecisionEnableSmartCharging
	default:
		return DecisionNoOp
	}
}
