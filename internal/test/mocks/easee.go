package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/futurehomeno/edge-vwarmup/internal/easee"
)

// ConnectorMock is a testify mock of easee.Connector.
type ConnectorMock struct {
	mock.Mock
}

// enforce interface.
var _ easee.Connector = &ConnectorMock{}

// NewConnectorMock creates a mock asserting its expectations when the test ends.
func NewConnectorMock(t testingT) *ConnectorMock {
	m := &ConnectorMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *ConnectorMock) Connect(ctx context.Context, userName, password string) (easee.Session, error) {
	args := m.Called(ctx, userName, password)

	session, _ := args.Get(0).(easee.Session)

	return session, args.Error(1) //nolint
}

// SessionMock is a testify mock of easee.Session.
type SessionMock struct {
	mock.Mock
}

// enforce interface.
var _ easee.Session = &SessionMock{}

// NewSessionMock creates a mock asserting its expectations when the test ends.
func NewSessionMock(t testingT) *SessionMock {
	m := &SessionMock{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *SessionMock) PrimarySite(ctx context.Context) (*easee.Site, error) {
	args := m.Called(ctx)

	site, _ := args.Get(0).(*easee.Site)

	return site, args.Error(1) //nolint
}

func (m *SessionMock) PrimaryCircuit(site *easee.Site) (*easee.Circuit, error) {
	args := m.Called(site)

	circuit, _ := args.Get(0).(*easee.Circuit)

	return circuit, args.Error(1) //nolint
}

func (m *SessionMock) PrimaryCharger(circuit *easee.Circuit) (*easee.Charger, error) {
	args := m.Called(circuit)

	charger, _ := args.Get(0).(*easee.Charger)

	return charger, args.Error(1) //nolint
}

func (m *SessionMock) State(ctx context.Context, charger *easee.Charger) (*easee.ChargerState, error) {
	args := m.Called(ctx, charger)

	state, _ := args.Get(0).(*easee.ChargerState)

	return state, args.Error(1) //nolint
}

func (m *SessionMock) SetSmartCharging(ctx context.Context, charger *easee.Charger, enabled bool) error {
	args := m.Called(ctx, charger, enabled)

	return args.Error(0) //nolint
}

func (m *SessionMock) Close() error {
	args := m.Called()

	return args.Error(0) //nolint
}
