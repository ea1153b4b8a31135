package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		levelStr string
		want     Level
		wantErr  bool
	}{
		{name: "debug", levelStr: "DEBUG", want: LevelDebug},
		{name: "lowercase debug", levelStr: "debug", want: LevelDebug},
		{name: "padded info", levelStr: " info ", want: LevelInfo},
		{name: "warn", levelStr: "WARN", want: LevelWarn},
		{name: "warning", levelStr: "warning", want: LevelWarn},
		{name: "error", levelStr: "Error", want: LevelError},
		{name: "invalid", levelStr: "LOUD", want: LevelInfo, wantErr: true},
		{name: "empty", levelStr: "", want: LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.levelStr)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidLogLevel))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestLevelFiltering(t *testing.T) {
	original := CurrentLevel()
	defer SetLevel(original)

	t.Setenv(FormatEnvVar, "json")
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	tests := []struct {
		level     Level
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{level: LevelDebug, wantDebug: true, wantInfo: true, wantWarn: true},
		{level: LevelInfo, wantInfo: true, wantWarn: true},
		{level: LevelWarn, wantWarn: true},
		{level: LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			SetLevel(tt.level)

			buf.Reset()
			Debugf("debug %d", 1)
			assert.Equal(t, tt.wantDebug, buf.Len() > 0, "debug output")

			buf.Reset()
			Info("info message", "key", "value")
			assert.Equal(t, tt.wantInfo, buf.Len() > 0, "info output")

			buf.Reset()
			Warnf("warn %s", "message")
			assert.Equal(t, tt.wantWarn, buf.Len() > 0, "warn output")

			buf.Reset()
			Error("error message")
			assert.Positive(t, buf.Len(), "error output is never filtered")
		})
	}
}

func TestJSONOutputOmitsTime(t *testing.T) {
	t.Setenv(FormatEnvVar, "")
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("section skipped", "section", "omec-sub-provision")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "section skipped", entry["msg"])
	assert.Equal(t, "omec-sub-provision", entry["section"])
	assert.NotContains(t, entry, "time")
}

func TestTextFormat(t *testing.T) {
	t.Setenv(FormatEnvVar, "text")
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Info("pulled chart", "version", "1.4.0")
	assert.True(t, strings.Contains(buf.String(), "version=1.4.0"), buf.String())
}

func TestIsDebugEnabled(t *testing.T) {
	original := CurrentLevel()
	defer SetLevel(original)

	SetLevel(LevelDebug)
	assert.True(t, IsDebugEnabled())
	SetLevel(LevelInfo)
	assert.False(t, IsDebugEnabled())
}
