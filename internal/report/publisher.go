// Package report publishes reconciliation outcomes as FIMP events over MQTT.
package report

import (
	"context"
	"time"

	"github.com/futurehomeno/fimpgo"
	log "github.com/sirupsen/logrus"

	"github.com/futurehomeno/edge-vwarmup/internal/reconcile"
)

const (
	// ServiceName is the FIMP service of the published messages.
	ServiceName = "vwarmup"
	// EventReconciliationReport is the FIMP message type of outcome reports.
	EventReconciliationReport = "evt.reconciliation.report"
)

// Transport is the part of the MQTT transport used for publishing.
type Transport interface {
	PublishToTopic(topic string, msg *fimpgo.FimpMessage) error
}

// Report is the value of a reconciliation report.
type Report struct {
	Mode          string `json:"mode"`
	Decision      string `json:"decision"`
	Applied       bool   `json:"applied"`
	ChargerID     string `json:"charger_id,omitempty"`
	SmartCharging *bool  `json:"smart_charging,omitempty"`
	OpMode        string `json:"op_mode,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"error_kind,omitempty"`
	Timestamp     string `json:"timestamp"`
	DurationMS    int64  `json:"duration_ms"`
}

// Publisher sends a report for every reconciliation outcome. Publishing failures are only logged.
type Publisher struct {
	transport Transport
	topic     string
}

// NewPublisher creates a publisher sending reports to the topic.
func NewPublisher(transport Transport, topic string) *Publisher {
	return &Publisher{
		transport: transport,
		topic:     topic,
	}
}

// HandleOutcome publishes the outcome.
func (p *Publisher) HandleOutcome(_ context.Context, o reconcile.Outcome) {
	msg := NewMessage(o)

	if err := p.transport.PublishToTopic(p.topic, msg); err != nil {
		log.WithError(err).
			WithField("topic", p.topic).
			Warn("report: failed to publish reconciliation report")

		return
	}

	log.WithField("topic", p.topic).Debug("report: reconciliation report published")
}

// NewMessage builds the FIMP message reporting the outcome.
func NewMessage(o reconcile.Outcome) *fimpgo.FimpMessage {
	r := Report{
		Mode:       o.Mode.String(),
		Decision:   o.Decision.String(),
		Applied:    o.Applied,
		ChargerID:  o.ChargerID,
		Timestamp:  o.At.UTC().Format(time.RFC3339),
		DurationMS: o.Duration.Milliseconds(),
	}

	if o.Snapshot != nil {
		smartCharging := o.Snapshot.SmartCharging
		r.SmartCharging = &smartCharging
		r.OpMode = o.Snapshot.OpMode
	}

	if o.Err != nil {
		r.Error = o.Err.Error()

		if kind, ok := reconcile.KindOf(o.Err); ok {
			r.ErrorKind = kind.String()
		}
	}

	props := fimpgo.Props{
		"mode":     r.Mode,
		"decision": r.Decision,
	}

	return fimpgo.NewMessage(EventReconciliationReport, ServiceName, fimpgo.VTypeObject, r, props, nil, nil)
}
