// Package metrics exposes reconciliation, transition and poll statistics to Prometheus.
package metrics

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
	"github.com/futurehomeno/edge-vwarmup/internal/reconcile"
)

const namespace = "vwarmup"

// Recorder records application metrics. It satisfies reconcile.OutcomeHandler, dispatch.Recorder and poll.Recorder.
type Recorder struct {
	reconciliations *prometheus.CounterVec
	duration        prometheus.Histogram
	transitions     *prometheus.CounterVec
	dropped         prometheus.Counter
	polls           *prometheus.CounterVec
	smartCharging   prometheus.Gauge
}

// NewRecorder registers the collectors on the provided registerer, the default one if nil.
// Collectors which are already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Total number of charger reconciliations by mode, decision and result.",
		}, []string{"mode", "decision", "result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of charger reconciliations.",
			Buckets:   prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climatisation_transitions_total",
			Help:      "Total number of observed climatisation state changes.",
		}, []string{"state", "classified"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_dropped_total",
			Help:      "Total number of pending modes superseded by newer observations.",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Total number of vehicle poll cycles by result.",
		}, []string{"result"}),
		smartCharging: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "smart_charging_enabled",
			Help:      "Smart charging flag of the charger as last seen or set, 1 when enabled.",
		}),
	}

	var err error

	if r.reconciliations, err = register(reg, r.reconciliations); err != nil {
		return nil, err
	}

	if r.duration, err = register(reg, r.duration); err != nil {
		return nil, err
	}

	if r.transitions, err = register(reg, r.transitions); err != nil {
		return nil, err
	}

	if r.dropped, err = register(reg, r.dropped); err != nil {
		return nil, err
	}

	if r.polls, err = register(reg, r.polls); err != nil {
		return nil, err
	}

	if r.smartCharging, err = register(reg, r.smartCharging); err != nil {
		return nil, err
	}

	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

// HandleOutcome records a reconciliation outcome.
func (r *Recorder) HandleOutcome(_ context.Context, o reconcile.Outcome) {
	result := "success"

	if o.Err != nil {
		result = "error"

		if kind, ok := reconcile.KindOf(o.Err); ok {
			result = kind.String()
		}
	}

	r.reconciliations.WithLabelValues(o.Mode.String(), o.Decision.String(), result).Inc()
	r.duration.Observe(o.Duration.Seconds())

	switch {
	case o.Applied:
		r.smartCharging.Set(boolToFloat(o.Decision == reconcile.DecisionEnableSmartCharging))
	case o.Snapshot != nil:
		r.smartCharging.Set(boolToFloat(o.Snapshot.SmartCharging))
	}
}

// ObserveTransition records a climatisation state change.
func (r *Recorder) ObserveTransition(state climate.State, classified bool) {
	label := "false"
	if classified {
		label = "true"
	}

	r.transitions.WithLabelValues(string(state), label).Inc()
}

// ObserveDropped records a superseded pending mode.
func (r *Recorder) ObserveDropped() {
	r.dropped.Inc()
}

// ObservePoll records a poll cycle result.
func (r *Recorder) ObservePoll(err error) {
	if err != nil {
		r.polls.WithLabelValues("error").Inc()

		return
	}

	r.polls.WithLabelValues("success").Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
