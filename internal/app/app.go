// Package app wires the poll loop, the dispatcher and the optional metrics endpoint into a single runnable service.
package app

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/futurehomeno/edge-vwarmup/internal/config"
	"github.com/futurehomeno/edge-vwarmup/internal/dispatch"
	"github.com/futurehomeno/edge-vwarmup/internal/metrics"
	"github.com/futurehomeno/edge-vwarmup/internal/poll"
	"github.com/futurehomeno/edge-vwarmup/internal/weconnect"
)

// Application runs the bridge between the vehicle and the charger.
type Application interface {
	// Check verifies that the application is configured well enough to run.
	Check() error
	// Initialize subscribes the dispatcher to the vehicle. It must be called once before Run.
	Initialize() error
	// Run blocks until the context is cancelled or a component fails.
	Run(ctx context.Context) error
}

type application struct {
	cfgService *config.Service
	vehicle    weconnect.Client
	dispatcher *dispatch.Dispatcher
	loop       *poll.Loop
	gatherer   prometheus.Gatherer

	initialized bool
}

// New creates new instance of an Application. The gatherer is only used when a metrics address is configured.
func New(
	cfgService *config.Service,
	vehicle weconnect.Client,
	dispatcher *dispatch.Dispatcher,
	loop *poll.Loop,
	gatherer prometheus.Gatherer,
) Application {
	return &application{
		cfgService: cfgService,
		vehicle:    vehicle,
		dispatcher: dispatcher,
		loop:       loop,
		gatherer:   gatherer,
	}
}

func (a *application) Check() error {
	if err := a.cfgService.Model().Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	return nil
}

func (a *application) Initialize() error {
	if a.initialized {
		return errors.New("application is already initialized")
	}

	a.dispatcher.Register(a.vehicle)
	a.initialized = true

	log.Info("app: dispatcher subscribed to climatisation state changes")

	return nil
}

func (a *application) Run(ctx context.Context) error {
	if !a.initialized {
		return errors.New("application is not initialized")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.dispatcher.Run(ctx)
	})

	g.Go(func() error {
		return a.loop.Run(ctx)
	})

	if addr := a.cfgService.GetMetricsAddress(); addr != "" && a.gatherer != nil {
		g.Go(func() error {
			// Metrics are optional, a failing endpoint must not stop the service.
			if err := metrics.Serve(ctx, addr, a.gatherer); err != nil {
				log.WithError(err).WithField("address", addr).Error("app: metrics server failed, continuing without metrics")
			}

			return nil
		})
	}

	log.
		WithField("polling_interval", a.cfgService.GetPollingInterval().String()).
		Info("app: running")

	err := g.Wait()

	log.Info("app: stopped")

	return err
}
