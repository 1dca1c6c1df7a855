package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.WarnLevel},
		{"debug", zerolog.DebugLevel},
		{" INFO ", zerolog.InfoLevel},
		{"error", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("chatty")
	assert.ErrorContains(t, err, `parsing log level "chatty"`)
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel)

	log.Debug().Msg("hidden")
	log.Info().Str("component", "session").Msg("logged in")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "logged in")
	assert.Contains(t, out, "component=session")
	assert.Contains(t, out, "run_id=")
}
