package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucas-albers-lz4/ciprep/pkg/log"
)

func TestCaptureLogOutput(t *testing.T) {
	output, err := CaptureLogOutput(log.LevelInfo, func() {
		log.Info("captured message", "file", "hosts.ini")
		log.Debug("filtered message")
	})
	require.NoError(t, err)
	assert.Contains(t, output, "captured message")
	assert.NotContains(t, output, "filtered message")
}

func TestCaptureLogOutputPanic(t *testing.T) {
	_, err := CaptureLogOutput(log.LevelInfo, func() {
		panic(errors.New("boom"))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCaptureJSONLogs(t *testing.T) {
	logs := CaptureJSONLogs(t, log.LevelDebug, func() {
		log.Warn("timeout literal not found", "file", "install.yml", "count", 2)
	})
	require.Len(t, logs, 1)
	AssertLogContainsJSON(t, logs, map[string]interface{}{
		"level": "WARN",
		"file":  "install.yml",
		"count": 2,
	})
}
