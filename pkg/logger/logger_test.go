package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace": zerolog.TraceLevel,
		"debug": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"ruido": zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_JSONConServicioYComponente(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Env: "production", Level: "warn", Service: "rental-core", Out: &buf})

	l.Info().Msg("descartado por nivel")
	assert.Zero(t, buf.Len())

	l.Component("overdue").Warn().Int("marked", 3).Msg("barrido")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rental-core", entry["service"])
	assert.Equal(t, "overdue", entry["component"])
	assert.Equal(t, "warn", entry["level"])
	assert.EqualValues(t, 3, entry["marked"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error().Msg("nada") })
}
