package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_AddsRunAndStage(t *testing.T) {
	var buf bytes.Buffer
	l := build(&buf, zerolog.InfoLevel, "json", "")

	sl := Stage(l, "run-1", "fetch")
	sl.Info().Str("series", "HICP").Msg("fetched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "fetch", entry["stage"])
	assert.Equal(t, "HICP", entry["series"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestBuild_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := build(&buf, zerolog.WarnLevel, "json", "")

	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, closer, err := New(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	l.Debug().Msg("to file")
	assert.NoError(t, closer())
}
