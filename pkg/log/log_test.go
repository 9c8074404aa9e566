package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "error", want: LogLevelError},
		{input: "warn", want: LogLevelWarn},
		{input: "info", want: LogLevelInfo},
		{input: "debug", want: LogLevelDebug},
		{input: "trace", want: LogLevelTrace},
		{input: "verbose", want: LogLevelError, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_levelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LogLevelWarn)

	logger.Info("dropped %d", 1)
	logger.Warn("kept %d", 2)
	logger.Error("kept %d", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "kept 2", entry["message"])
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LogLevelError)
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel(LogLevelDebug)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Equal(t, LogLevelDebug, logger.Level())
}

func TestSetDefaultLogger(t *testing.T) {
	previous := getDefaultLogger()
	defer SetDefaultLogger(previous)

	var buf bytes.Buffer
	SetDefaultLogger(New(&buf, LogLevelInfo))
	Info("room %s created", "ABC123")
	assert.Contains(t, buf.String(), "room ABC123 created")
}
