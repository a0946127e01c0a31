package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/futurehomeno/edge-vwarmup/internal/weconnect"
)

// VehicleClientMock is a testify mock of weconnect.Client.
type VehicleClientMock struct {
	mock.Mock
}

// enforce interface.
var _ weconnect.Client = &VehicleClientMock{}

// NewVehicleClientMock creates a mock asserting its expectations when the test ends.
func NewVehicleClientMock(t testingT) *VehicleClientMock {
	m := &VehicleClientMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *VehicleClientMock) Login(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0) //nolint
}

func (m *VehicleClientMock) Update(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0) //nolint
}

func (m *VehicleClientMock) AddObserver(address string, flags weconnect.EventFlag, fn weconnect.Observer) {
	m.Called(address, flags, fn)
}

func (m *VehicleClientMock) LoggedIn() bool {
	args := m.Called()

	return args.Bool(0)
}
