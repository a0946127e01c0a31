// Package dispatch turns climatization events into serialized charger reconciliations.
package dispatch

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
	"github.com/futurehomeno/edge-vwarmup/internal/reconcile"
	"github.com/futurehomeno/edge-vwarmup/internal/weconnect"
)

// Subscriber is the part of the vehicle client the dispatcher subscribes to.
type Subscriber interface {
	AddObserver(address string, flags weconnect.EventFlag, fn weconnect.Observer)
}

// Recorder receives dispatcher statistics.
type Recorder interface {
	// ObserveTransition is called for every climatization state change, classified or not.
	ObserveTransition(state climate.State, classified bool)
	// ObserveDropped is called when a pending mode is superseded by a newer one.
	ObserveDropped()
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransition(climate.State, bool) {}

func (nopRecorder) ObserveDropped() {}

// Dispatcher queues classified climatization modes and applies them one at a time, in order.
// When the queue is full the oldest pending mode is dropped, so the latest observation is always applied last.
type Dispatcher struct {
	reconciler reconcile.Reconciler
	recorder   Recorder
	logger     *log.Entry

	enqueueMu sync.Mutex
	queue     chan climate.Mode
}

// NewDispatcher creates a dispatcher with a queue of the provided size. A nil recorder is allowed.
func NewDispatcher(reconciler reconcile.Reconciler, queueSize int, logger *log.Entry, recorder Recorder) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}

	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Dispatcher{
		reconciler: reconciler,
		recorder:   recorder,
		logger:     logger,
		queue:      make(chan climate.Mode, queueSize),
	}
}

// Register subscribes the dispatcher to climatization state changes.
func (d *Dispatcher) Register(vehicle Subscriber) {
	vehicle.AddObserver(weconnect.AddressClimatisationState, weconnect.EventValueChanged, d.HandleEvent)
}

// HandleEvent classifies a climatization state event and queues its mode. It never blocks.
func (d *Dispatcher) HandleEvent(event weconnect.Event) {
	state := climate.ParseState(event.Value)

	mode, ok := climate.Classify(state)

	d.recorder.ObserveTransition(state, ok)

	if !ok {
		d.logger.
			WithField("raw_state", event.Value).
			WithField("state", state).
			Info("dispatcher: ignoring climatization state")

		return
	}

	d.logger.
		WithField("state", state).
		WithField("mode", mode.String()).
		Info("dispatcher: climatization state changed")

	d.Enqueue(mode)
}

// Enqueue queues a mode for reconciliation, dropping the oldest pending one if the queue is full.
func (d *Dispatcher) Enqueue(mode climate.Mode) {
	d.enqueueMu.Lock()
	defer d.enqueueMu.Unlock()

	for {
		select {
		case d.queue <- mode:
			return
		default:
		}

		select {
		case dropped := <-d.queue:
			d.recorder.ObserveDropped()
			d.logger.
				WithField("dropped_mode", dropped.String()).
				WithField("mode", mode.String()).
				Warn("dispatcher: queue is full, dropping the oldest pending mode")
		default:
		}
	}
}

// Run applies queued modes until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case mode := <-d.queue:
			// Failures are logged and reported by the reconciler, the next transition retries.
			_, _ = d.reconciler.Reconcile(ctx, mode)
		}
	}
}
