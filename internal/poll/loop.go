// Package poll drives periodic vehicle status updates.
package poll

import (
	"context"
	"time"

	"github.com/futurehomeno/cliffhanger/backoff"
	"github.com/futurehomeno/cliffhanger/task"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/weconnect"
)

// Recorder receives poll cycle statistics.
type Recorder interface {
	ObservePoll(err error)
}

type nopRecorder struct{}

func (nopRecorder) ObservePoll(error) {}

// Loop logs in when needed and updates the vehicle client periodically.
type Loop struct {
	vehicle  weconnect.Client
	interval time.Duration
	backoff  backoff.Stateful
	recorder Recorder
	logger   *log.Entry
}

// NewLoop creates a poll loop. Failed cycles engage the backoff, and scheduled cycles are skipped while it is in use.
func NewLoop(vehicle weconnect.Client, interval time.Duration, failureBackoff backoff.Stateful, logger *log.Entry, recorder Recorder) *Loop {
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &Loop{
		vehicle:  vehicle,
		interval: interval,
		backoff:  failureBackoff,
		recorder: recorder,
		logger:   logger,
	}
}

// Task returns the polling task bound to the context. It runs on start and then every interval.
func (l *Loop) Task(ctx context.Context) *task.Task {
	return task.New(
		func() { l.tick(ctx) },
		l.interval,
		task.WhenNot(task.VoterFn(l.backoff.Should)),
	)
}

// Run runs the polling task until the context is cancelled. Cycle errors never stop it.
func (l *Loop) Run(ctx context.Context) error {
	manager := task.NewManager(l.Task(ctx))

	if err := manager.Start(); err != nil {
		return errors.Wrap(err, "poll: failed to start the polling task")
	}

	<-ctx.Done()

	if err := manager.Stop(); err != nil {
		return errors.Wrap(err, "poll: failed to stop the polling task")
	}

	return nil
}

func (l *Loop) tick(ctx context.Context) {
	err := l.Cycle(ctx)
	if err == nil {
		l.backoff.Reset()

		return
	}

	if ctx.Err() != nil {
		return
	}

	l.backoff.Fail()

	l.logger.
		WithError(err).
		Error("poll: vehicle update failed, backing off")
}

// Cycle logs in if there is no valid session and updates the vehicle status once.
func (l *Loop) Cycle(ctx context.Context) error {
	err := l.cycle(ctx)

	l.recorder.ObservePoll(err)

	return err
}

func (l *Loop) cycle(ctx context.Context) error {
	if !l.vehicle.LoggedIn() {
		l.logger.Info("poll: logging in to the vehicle service")

		if err := l.vehicle.Login(ctx); err != nil {
			return err
		}
	}

	return l.vehicle.Update(ctx)
}
