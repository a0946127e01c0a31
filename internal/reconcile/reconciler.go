// Package reconcile brings the charger's smart charging flag in line with the vehicle's climatization mode.
package reconcile

import (
	"context"
	"time"

	"github.com/michalkurzeja/go-clock"
	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
	"github.com/futurehomeno/edge-vwarmup/internal/config"
	"github.com/futurehomeno/edge-vwarmup/internal/easee"
)

// Reconciler applies a climatization mode to the charger.
type Reconciler interface {
	// Reconcile reads the current charger state, decides and applies the decision.
	// The returned decision is the one taken even if applying it failed.
	Reconcile(ctx context.Context, mode climate.Mode) (Decision, error)
}

type reconciler struct {
	connector easee.Connector
	cfg       *config.Service
	logger    *log.Entry
	handlers  []OutcomeHandler
}

// NewReconciler creates a new reconciler. Every outcome is passed to the handlers in order.
func NewReconciler(connector easee.Connector, cfg *config.Service, logger *log.Entry, handlers ...OutcomeHandler) Reconciler {
	return &reconciler{
		connector: connector,
		cfg:       cfg,
		logger:    logger,
		handlers:  handlers,
	}
}

func (r *reconciler) Reconcile(ctx context.Context, mode climate.Mode) (Decision, error) {
	outcome := Outcome{Mode: mode, At: clock.Now()}

	decision, err := r.reconcile(ctx, mode, &outcome)

	outcome.Decision = decision
	outcome.Err = err
	outcome.Duration = clock.Now().Sub(outcome.At)

	r.log(outcome)

	for _, h := range r.handlers {
		h.HandleOutcome(ctx, outcome)
	}

	return decision, err
}

func (r *reconciler) reconcile(ctx context.Context, mode climate.Mode, outcome *Outcome) (Decision, error) {
	timeout := r.cfg.GetHTTPTimeout()
	creds := r.cfg.GetChargerCredentials()

	session, err := withTimeout(ctx, timeout, func(ctx context.Context) (easee.Session, error) {
		return r.connector.Connect(ctx, creds.Username, creds.Password)
	})
	if err != nil {
		return DecisionNoOp, &Error{Kind: ErrorKindAuthentication, Op: "connect", Err: err}
	}

	defer func() {
		if err := session.Close(); err != nil {
			r.logger.WithError(err).Warn("reconciler: failed to close charger session")
		}
	}()

	site, err := withTimeout(ctx, timeout, session.PrimarySite)
	if err != nil {
		return DecisionNoOp, &Error{Kind: ErrorKindResolution, Op: "site lookup", Err: err}
	}

	circuit, err := session.PrimaryCircuit(site)
	if err != nil {
		return DecisionNoOp, &Error{Kind: ErrorKindResolution, Op: "circuit lookup", Err: err}
	}

	charger, err := session.PrimaryCharger(circuit)
	if err != nil {
		return DecisionNoOp, &Error{Kind: ErrorKindResolution, Op: "charger lookup", Err: err}
	}

	outcome.ChargerID = charger.ID

	state, err := withTimeout(ctx, timeout, func(ctx context.Context) (*easee.ChargerState, error) {
		return session.State(ctx, charger)
	})
	if err != nil {
		return DecisionNoOp, &Error{Kind: ErrorKindTransient, Op: "state read", Err: err}
	}

	r.logger.
		WithField("charger_id", charger.ID).
		WithField("state", *state).
		Debug("reconciler: charger state fetched")

	snapshot := Snapshot{
		SmartCharging: state.SmartCharging,
		OpMode:        state.ChargerOpMode.String(),
	}
	outcome.Snapshot = &snapshot

	decision := Decide(snapshot, mode)
	if decision == DecisionNoOp {
		return decision, nil
	}

	enabled := decision == DecisionEnableSmartCharging

	_, err = withTimeout(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, session.SetSmartCharging(ctx, charger, enabled)
	})
	if err != nil {
		return decision, &Error{Kind: ErrorKindTransient, Op: "smart charging update", Err: err}
	}

	outcome.Applied = true

	return decision, nil
}

func (r *reconciler) log(o Outcome) {
	entry := r.logger.
		WithField("mode", o.Mode.String()).
		WithField("decision", o.Decision.String())

	if o.Snapshot != nil {
		entry = entry.
			WithField("smart_charging", o.Snapshot.SmartCharging).
			WithField("op_mode", o.Snapshot.OpMode)
	}

	if o.Err != nil {
		kind, _ := KindOf(o.Err)
		entry = entry.WithError(o.Err).WithField("kind", kind.String())

		if kind == ErrorKindTransient {
			entry.Warn("reconciler: reconciliation dropped")

			return
		}

		entry.Error("reconciler: reconciliation failed")

		return
	}

	if o.Decision == DecisionNoOp {
		entry.Info("reconciler: charger already in line with climatization, nothing to do")

		return
	}

	entry.Info("reconciler: smart charging updated")
}

// withTimeout runs a single remote call under its own deadline.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(ctx)
}
