package report_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/futurehomeno/fimpgo"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurehomeno/edge-vwarmup/internal/climate"
	"github.com/futurehomeno/edge-vwarmup/internal/reconcile"
	"github.com/futurehomeno/edge-vwarmup/internal/report"
	"github.com/futurehomeno/edge-vwarmup/internal/test"
)

type fakeTransport struct {
	mu       sync.Mutex
	topics   []string
	messages []*fimpgo.FimpMessage
	err      error
}

func (f *fakeTransport) PublishToTopic(topic string, msg *fimpgo.FimpMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.topics = append(f.topics, topic)
	f.messages = append(f.messages, msg)

	return f.err
}

func TestPublisher_HandleOutcome(t *testing.T) {
	t.Parallel()

	smartCharging := true

	tests := []struct {
		name    string
		outcome reconcile.Outcome
		want    report.Report
	}{
		{
			name: "applied decision",
			outcome: reconcile.Outcome{
				Mode:      climate.ModeRunning,
				Decision:  reconcile.DecisionDisableSmartCharging,
				Applied:   true,
				ChargerID: "EH123456",
				Snapshot:  &reconcile.Snapshot{SmartCharging: true, OpMode: "AWAITING_START"},
				At:        time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC),
				Duration:  1500 * time.Millisecond,
			},
			want: report.Report{
				Mode:          "RUNNING",
				Decision:      "DISABLE_SMART_CHARGING",
				Applied:       true,
				ChargerID:     "EH123456",
				SmartCharging: &smartCharging,
				OpMode:        "AWAITING_START",
				Timestamp:     "2024-01-10T08:00:00Z",
				DurationMS:    1500,
			},
		},
		{
			name: "failed reconciliation",
			outcome: reconcile.Outcome{
				Mode:     climate.ModeIdle,
				Decision: reconcile.DecisionNoOp,
				Err:      &reconcile.Error{Kind: reconcile.ErrorKindResolution, Op: "site lookup", Err: errors.New("not found")},
				At:       time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC),
			},
			want: report.Report{
				Mode:      "IDLE",
				Decision:  "NO_OP",
				Error:     "resolution error during site lookup: not found",
				ErrorKind: "resolution",
				Timestamp: "2024-01-10T08:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transport := &fakeTransport{}
			p := report.NewPublisher(transport, "pt:j1/mt:evt/rt:app/rn:vwarmup/ad:1")

			p.HandleOutcome(context.Background(), tt.outcome)

			require.Len(t, transport.messages, 1)
			assert.Equal(t, "pt:j1/mt:evt/rt:app/rn:vwarmup/ad:1", transport.topics[0])

			b, err := transport.messages[0].SerializeToJson()
			require.NoError(t, err)

			msg, err := fimpgo.NewMessageFromBytes(b)
			require.NoError(t, err)

			assert.Equal(t, report.EventReconciliationReport, msg.Type)
			assert.Equal(t, report.ServiceName, msg.Service)
			assert.Equal(t, tt.want.Decision, msg.Properties["decision"])

			var got report.Report
			require.NoError(t, msg.GetObjectValue(&got))
			assert.Empty(t, cmp.Diff(tt.want, got))
		})
	}
}

func TestPublisher_PublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{err: errors.New("broker unavailable")}
	p := report.NewPublisher(transport, "topic")

	assert.NotPanics(t, func() {
		p.HandleOutcome(context.Background(), reconcile.Outcome{Mode: climate.ModeIdle})
	})
	assert.Len(t, transport.messages, 1)
}

func TestPublisher_MQTT(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MQTT integration test in short mode")
	}

	t.Parallel()

	addr := test.SetupMQTTContainer(t)
	topic := "pt:j1/mt:evt/rt:app/rn:vwarmup/ad:1"

	listener := test.NewMQTTTransport(t, addr, "vwarmup-listener")

	messages := make(fimpgo.MessageCh, 1)
	listener.RegisterChannel("reports", messages)
	require.NoError(t, listener.Subscribe(topic))

	publisher := report.NewPublisher(test.NewMQTTTransport(t, addr, "vwarmup-publisher"), topic)
	publisher.HandleOutcome(context.Background(), reconcile.Outcome{
		Mode:     climate.ModeIdle,
		Decision: reconcile.DecisionEnableSmartCharging,
		Applied:  true,
	})

	select {
	case msg := <-messages:
		assert.Equal(t, report.EventReconciliationReport, msg.Payload.Type)
		assert.Equal(t, "ENABLE_SMART_CHARGING", msg.Payload.Properties["decision"])
	case <-time.After(10 * time.Second):
		t.Fatal("report was not received")
	}
}
