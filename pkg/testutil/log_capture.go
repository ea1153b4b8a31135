// Package testutil provides helpers shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// mutex serializes captures since the logger is package global.
var mutex sync.Mutex

// CaptureLogOutput redirects log output during testFunc and returns what was written.
// The previous writer and level are restored afterwards. A panic in testFunc is returned
// as an error.
//
//	output, err := testutil.CaptureLogOutput(log.LevelWarn, func() {
//	    log.Warn("section skipped", "section", "omec-sub-provision")
//	})
//	require.NoError(t, err)
//	assert.Contains(t, output, "section skipped")
func CaptureLogOutput(level log.Level, testFunc func()) (string, error) {
	mutex.Lock()
	defer mutex.Unlock()

	originalLevel := log.CurrentLevel()
	var buf bytes.Buffer
	restore := log.SetOutput(&buf)
	defer restore()
	log.SetLevel(level)
	defer log.SetLevel(originalLevel)

	var panicErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = fmt.Errorf("panic during log capture: %v", r)
			}
		}()
		testFunc()
	}()
	return buf.String(), panicErr
}

// CaptureJSONLogs is CaptureLogOutput with every captured line decoded as a JSON object.
func CaptureJSONLogs(t *testing.T, level log.Level, testFunc func()) []map[string]interface{} {
	t.Helper()
	t.Setenv(log.FormatEnvVar, "json")

	output, err := CaptureLogOutput(level, testFunc)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}

	var entries []map[string]interface{}
	for i, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line %d is not JSON: %v\n%s", i+1, err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// AssertLogContainsJSON checks that some entry holds every key/value of expected.
func AssertLogContainsJSON(t *testing.T, logs []map[string]interface{}, expected map[string]interface{}) {
	t.Helper()
	for _, entry := range logs {
		if containsAll(entry, expected) {
			return
		}
	}
	want, _ := json.MarshalIndent(expected, "", "  ") //nolint:errcheck // test helper
	got, _ := json.MarshalIndent(logs, "", "  ")      //nolint:errcheck // test helper
	assert.Fail(t, "Expected log entry not found", "want entry containing:\n%s\n\ncaptured:\n%s", want, got)
}

// SuppressLogging discards log output until the returned function is called.
func SuppressLogging() func() {
	mutex.Lock()
	defer mutex.Unlock()
	return log.SetOutput(io.Discard)
}

func containsAll(actual, expected map[string]interface{}) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		// JSON numbers decode as float64.
		if f, isFloat := got.(float64); isFloat {
			switch w := want.(type) {
			case int:
				if f != float64(w) {
					return false
				}
				continue
			case float64:
				if f != w {
					return false
				}
				continue
			}
			return false
		}
		if got != want {
			return false
		}
	}
	return true
}
