package reconcile

import (
	"context"
	"time"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
)

// Outcome describes a finished reconciliation, successful or not.
type Outcome struct {
	Mode      climate.Mode
	Decision  Decision
	Applied   bool
	ChargerID string
	// Snapshot is nil when the charger state could not be read.
	Snapshot *Snapshot
	Err      error
	At       time.Time
	Duration time.Duration
}

// OutcomeHandler is notified about every reconciliation outcome.
type OutcomeHandler interface {
	HandleOutcome(ctx context.Context, outcome Outcome)
}

// OutcomeHandlerFunc adapts a function to the OutcomeHandler interface.
type OutcomeHandlerFunc func(ctx context.Context, outcome Outcome)

func (f OutcomeHandlerFunc) HandleOutcome(ctx context.Context, outcome Outcome) {
	f(ctx, outcome)
}
