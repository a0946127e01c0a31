package easee_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/futurehomeno/cliffhanger/backoff"
	"github.com/michalkurzeja/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurehomeno/edge-vwarmup/internal/easee"
)

const loginResponse = `{"accessToken":"test.access.token","expiresIn":3600,"refreshToken":"test.refresh.token"}`

func loginCall() call {
	return call{
		requestMethod: http.MethodPost,
		requestPath:   "/api/accounts/login",
		requestBody:   `{"userName":"user","password":"secret"}`,
		responseCode:  http.StatusOK,
		responseBody:  loginResponse,
	}
}

func noBackoff() backoff.Stateful {
	return backoff.NewStateful(0, 0, 0, 0, 0)
}

func TestSession_ResolveAndWrite(t *testing.T) { //nolint:paralleltest
	clock.Mock(time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC))
	t.Cleanup(clock.Restore)

	handler := newTestHandler(t,
		loginCall(),
		call{
			requestMethod:  http.MethodGet,
			requestPath:    "/api/sites",
			requestHeaders: map[string]string{"Authorization": "Bearer test.access.token"},
			responseCode:   http.StatusOK,
			responseBody:   `[{"id":101,"name":"Home"},{"id":102,"name":"Cabin"}]`,
		},
		call{
			requestMethod: http.MethodGet,
			requestPath:   "/api/sites/101",
			responseCode:  http.StatusOK,
			responseBody:  `{"id":101,"name":"Home","circuits":[{"id":7,"chargers":[{"id":"EH123456"},{"id":"EH999999"}]},{"id":8}]}`,
		},
		call{
			requestMethod: http.MethodGet,
			requestPath:   "/api/chargers/EH123456/state",
			responseCode:  http.StatusOK,
			responseBody:  `{"smartCharging":true,"chargerOpMode":2}`,
		},
		call{
			requestMethod: http.MethodPost,
			requestPath:   "/api/chargers/EH123456/settings",
			requestBody:   `{"smartCharging":false}`,
			responseCode:  http.StatusAccepted,
		},
	)

	ctx := context.Background()
	connector := easee.NewConnector(newClient(t, handler, false), noBackoff())

	session, err := connector.Connect(ctx, "user", "secret")
	require.NoError(t, err)

	site, err := session.PrimarySite(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101, site.ID)

	circuit, err := session.PrimaryCircuit(site)
	require.NoError(t, err)
	assert.Equal(t, 7, circuit.ID)

	charger, err := session.PrimaryCharger(circuit)
	require.NoError(t, err)
	assert.Equal(t, testChargerID, charger.ID)

	state, err := session.State(ctx, charger)
	require.NoError(t, err)
	assert.Equal(t, "AWAITING_START", state.ChargerOpMode.String())

	require.NoError(t, session.SetSmartCharging(ctx, charger, false))
	require.NoError(t, session.Close())
	assert.Equal(t, 5, handler.served())
}

func TestSession_NotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sites    string
		site     string
		resolve  func(s easee.Session, site *easee.Site) error
		wantSite bool
	}{
		{
			name:  "no sites",
			sites: `[]`,
		},
		{
			name:     "no circuits",
			sites:    `[{"id":101}]`,
			site:     `{"id":101,"circuits":[]}`,
			wantSite: true,
			resolve: func(s easee.Session, site *easee.Site) error {
				_, err := s.PrimaryCircuit(site)

				return err
			},
		},
		{
			name:     "no chargers",
			sites:    `[{"id":101}]`,
			site:     `{"id":101,"circuits":[{"id":7,"chargers":[]}]}`,
			wantSite: true,
			resolve: func(s easee.Session, site *easee.Site) error {
				circuit, err := s.PrimaryCircuit(site)
				if err != nil {
					return err
				}

				_, err = s.PrimaryCharger(circuit)

				return err
			},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := []call{
				loginCall(),
				{requestMethod: http.MethodGet, requestPath: "/api/sites", responseCode: http.StatusOK, responseBody: tt.sites},
			}

			if tt.site != "" {
				calls = append(calls, call{requestMethod: http.MethodGet, requestPath: "/api/sites/101", responseCode: http.StatusOK, responseBody: tt.site})
			}

			ctx := context.Background()
			connector := easee.NewConnector(newClient(t, newTestHandler(t, calls...), false), noBackoff())

			session, err := connector.Connect(ctx, "user", "secret")
			require.NoError(t, err)

			defer session.Close()

			site, err := session.PrimarySite(ctx)
			if !tt.wantSite {
				assert.ErrorIs(t, err, easee.ErrNotFound)

				return
			}

			require.NoError(t, err)
			assert.ErrorIs(t, tt.resolve(session, site), easee.ErrNotFound)
		})
	}
}

func TestSession_Close(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, loginCall())
	connector := easee.NewConnector(newClient(t, handler, false), noBackoff())

	session, err := connector.Connect(context.Background(), "user", "secret")
	require.NoError(t, err)

	assert.NoError(t, session.Close())
	assert.NoError(t, session.Close())

	_, err = session.PrimarySite(context.Background())
	assert.ErrorIs(t, err, easee.ErrSessionClosed)

	_, err = session.PrimaryCircuit(&easee.Site{Circuits: []easee.Circuit{{ID: 1}}})
	assert.ErrorIs(t, err, easee.ErrSessionClosed)

	err = session.SetSmartCharging(context.Background(), &easee.Charger{ID: testChargerID}, true)
	assert.ErrorIs(t, err, easee.ErrSessionClosed)

	assert.Equal(t, 1, handler.served())
}

func TestSession_RefreshesExpiredToken(t *testing.T) { //nolint:paralleltest
	clockMock := clock.Mock(time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC))
	t.Cleanup(clock.Restore)

	handler := newTestHandler(t,
		loginCall(),
		call{
			requestMethod: http.MethodPost,
			requestPath:   "/api/accounts/refresh_token",
			requestBody:   `{"accessToken":"test.access.token","refreshToken":"test.refresh.token"}`,
			responseCode:  http.StatusOK,
			responseBody:  `{"accessToken":"fresh.access.token","expiresIn":3600,"refreshToken":"fresh.refresh.token"}`,
		},
		call{
			requestMethod:  http.MethodGet,
			requestPath:    "/api/chargers/EH123456/state",
			requestHeaders: map[string]string{"Authorization": "Bearer fresh.access.token"},
			responseCode:   http.StatusOK,
			responseBody:   `{"smartCharging":false,"chargerOpMode":3}`,
		},
	)

	connector := easee.NewConnector(newClient(t, handler, false), noBackoff())

	session, err := connector.Connect(context.Background(), "user", "secret")
	require.NoError(t, err)

	defer session.Close()

	clockMock.Add(time.Hour)

	state, err := session.State(context.Background(), &easee.Charger{ID: testChargerID})
	require.NoError(t, err)
	assert.Equal(t, easee.OpModeCharging, state.ChargerOpMode)
	assert.Equal(t, 3, handler.served())
}

func TestConnector_Backoff(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t, call{
		requestMethod: http.MethodPost,
		requestPath:   "/api/accounts/login",
		requestBody:   `{"userName":"user","password":"wrong"}`,
		responseCode:  http.StatusUnauthorized,
	})

	connector := easee.NewConnector(newClient(t, handler, false), backoff.NewStateful(time.Hour, time.Hour, time.Hour, 1, 1))

	_, err := connector.Connect(context.Background(), "user", "wrong")
	require.Error(t, err)
	assert.True(t, easee.IsUnauthorized(err))

	for i := 0; i < 3; i++ {
		_, err = connector.Connect(context.Background(), "user", "wrong")
		assert.True(t, errors.Is(err, easee.ErrBackoff))
	}

	assert.Equal(t, 1, handler.served())
}

func TestOpMode_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode easee.OpMode
		want string
	}{
		{mode: 0, want: "OFFLINE"},
		{mode: 1, want: "DISCONNECTED"},
		{mode: 2, want: "AWAITING_START"},
		{mode: 3, want: "CHARGING"},
		{mode: 4, want: "COMPLETED"},
		{mode: 5, want: "ERROR"},
		{mode: 6, want: "READY_TO_CHARGE"},
		{mode: 7, want: "AWAITING_AUTHORIZATION"},
		{mode: 8, want: "DE_AUTHORIZING"},
		{mode: 9, want: "UNKNOWN"},
		{mode: -1, want: "UNKNOWN"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.mode.String())
		})
	}
}
