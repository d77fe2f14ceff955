package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestNewJSONFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "warn", JSON: true, Output: &buf})

	l.Info("ignored")
	l.Warn("orbit lost", "anchor", "eyes")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "orbit lost", rec["msg"])
	assert.Equal(t, "eyes", rec["anchor"])
}

func TestOrPrefersGiven(t *testing.T) {
	l := New(Options{Output: &bytes.Buffer{}})
	assert.Same(t, l, Or(l))
	assert.NotNil(t, Or(nil))
}
