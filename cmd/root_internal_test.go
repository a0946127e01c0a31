package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurehomeno/edge-vwarmup/internal/config"
)

func chargerHandler(t *testing.T, writes *[]string) http.Handler {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/accounts/login", func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"userName":"flag-user","password":"flag-secret"}`, string(b))

		_, _ = w.Write([]byte(`{"accessToken":"access","expiresIn":3600}`))
	})
	mux.HandleFunc("GET /api/sites", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})
	mux.HandleFunc("GET /api/sites/1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1,"circuits":[{"id":2,"chargers":[{"id":"EH000001"}]}]}`))
	})
	mux.HandleFunc("GET /api/chargers/EH000001/state", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"smartCharging":false,"chargerOpMode":6}`))
	})
	mux.HandleFunc("POST /api/chargers/EH000001/settings", func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		*writes = append(*writes, string(b))

		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func writeConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()

	b, err := json.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, b, 0o600))

	return path
}

func TestReconcileCommand(t *testing.T) { //nolint:paralleltest
	t.Cleanup(resetContainer)

	var writes []string

	srv := httptest.NewServer(chargerHandler(t, &writes))
	t.Cleanup(srv.Close)

	path := writeConfig(t, map[string]any{
		"vehicle": map[string]any{"username": "driver", "password": "vehicle-secret"},
		"charger": map[string]any{"baseURL": srv.URL, "username": "file-user", "password": "file-secret"},
	})

	out := &bytes.Buffer{}

	rootCmd := newRootCmd()
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{
		"reconcile",
		"--config", path,
		"--easee-username", "flag-user",
		"--easee-password", "flag-secret",
		"--mode", "idle",
	})

	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "ENABLE_SMART_CHARGING\n", out.String())
	assert.Equal(t, []string{`{"smartCharging":true}`}, writes)
}

func TestReconcileCommand_Errors(t *testing.T) { //nolint:paralleltest
	path := writeConfig(t, map[string]any{
		"vehicle": map[string]any{"username": "driver", "password": "vehicle-secret"},
		"charger": map[string]any{"baseURL": "http://127.0.0.1:1", "username": "owner"},
	})

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing mode",
			args:    []string{"reconcile", "--config", path},
			wantErr: `required flag(s) "mode" not set`,
		},
		{
			name:    "invalid mode",
			args:    []string{"reconcile", "--config", path, "--mode", "heating"},
			wantErr: `invalid mode "heating"`,
		},
		{
			name:    "missing credentials",
			args:    []string{"reconcile", "--config", path, "--mode", "running"},
			wantErr: "missing required settings: charger password",
		},
	}

	for _, tt := range tests { //nolint:paralleltest
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetContainer)

			rootCmd := newRootCmd()
			rootCmd.SetOut(io.Discard)
			rootCmd.SetErr(io.Discard)
			rootCmd.SetArgs(tt.args)

			err := rootCmd.Execute()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyOverrides(t *testing.T) { //nolint:paralleltest
	rootCmd := newRootCmd()
	require.NoError(t, rootCmd.ParseFlags([]string{
		"--vw-username", "vw-user",
		"--vw-password", "vw-secret",
		"--log-level", "debug",
		"--suppress-timer-logs",
	}))

	cfg := config.New()
	cfg.Vehicle.Username = "file-user"
	cfg.Charger.Username = "charger-user"

	opts := &options{
		vehicleUsername:   "vw-user",
		vehiclePassword:   "vw-secret",
		chargerUsername:   "ignored",
		logLevel:          "debug",
		suppressTimerLogs: true,
	}

	applyOverrides(rootCmd, opts, cfg)

	assert.Equal(t, "vw-user", cfg.Vehicle.Username)
	assert.Equal(t, "vw-secret", cfg.Vehicle.Password)
	assert.Equal(t, "charger-user", cfg.Charger.Username)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.SuppressTimerLogs)
}
