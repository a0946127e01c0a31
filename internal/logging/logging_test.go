package logging_test

import (
	"bytes"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/futurehomeno/edge-vwarmup/internal/logging"
)

func TestNewQuietLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		baseLevel  log.Level
		suppress   bool
		wantLevel  log.Level
		wantOutput bool
	}{
		{
			name:       "debug output kept when not suppressed",
			baseLevel:  log.DebugLevel,
			wantLevel:  log.DebugLevel,
			wantOutput: true,
		},
		{
			name:      "debug output dropped when suppressed",
			baseLevel: log.DebugLevel,
			suppress:  true,
			wantLevel: log.WarnLevel,
		},
		{
			name:      "stricter base level is kept",
			baseLevel: log.ErrorLevel,
			suppress:  true,
			wantLevel: log.ErrorLevel,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}

			base := log.New()
			base.SetOutput(buf)
			base.SetLevel(tt.baseLevel)

			quiet := logging.NewQuietLogger(base, tt.suppress)
			quiet.Debug("timer fired")

			assert.Equal(t, tt.wantLevel, quiet.GetLevel())
			assert.Equal(t, tt.baseLevel, base.GetLevel())
			assert.Equal(t, tt.wantOutput, buf.Len() > 0)
		})
	}
}
