// Package test contains helpers shared by the integration tests.
package test

import (
	"testing"

	"github.com/futurehomeno/fimpgo"
	"github.com/stretchr/testify/require"
)

// NewMQTTTransport connects a FIMP transport to the broker and stops it when the test ends.
func NewMQTTTransport(t *testing.T, serverURI, clientID string) *fimpgo.MqttTransport {
	t.Helper()

	transport := fimpgo.NewMqttTransport(serverURI, clientID, "", "", true, 1, 1)
	require.NoError(t, transport.Start())

	t.Cleanup(transport.Stop)

	return transport
}
