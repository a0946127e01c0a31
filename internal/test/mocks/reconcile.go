package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
	"github.com/futurehomeno/edge-vwarmup/internal/reconcile"
)

// ReconcilerMock is a testify mock of reconcile.Reconciler.
type ReconcilerMock struct {
	mock.Mock
}

// enforce interface.
var _ reconcile.Reconciler = &ReconcilerMock{}

// NewReconcilerMock creates a mock asserting its expectations when the test ends.
func NewReconcilerMock(t testingT) *ReconcilerMock {
	m := &ReconcilerMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *ReconcilerMock) Reconcile(ctx context.Context, mode climate.Mode) (reconcile.Decision, error) {
	args := m.Called(ctx, mode)

	decision, _ := args.Get(0).(reconcile.Decision)

	return decision, args.Error(1) //nolint
}
