package exitcodes

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeError_Error(t *testing.T) {
	testCases := []struct {
		name     string
		code     int
		err      error
		expected string
	}{
		{
			name:     "with simple error message",
			code:     ExitPreconditionFailed,
			err:      errors.New("values file not found"),
			expected: "exit code 4: values file not found",
		},
		{
			name:     "with formatted error message",
			code:     ExitIOError,
			err:      fmt.Errorf("failed to write %s", "hosts.ini"),
			expected: "exit code 21: failed to write hosts.ini",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exitErr := &ExitCodeError{Code: tc.code, Err: tc.err}
			if got := exitErr.Error(); got != tc.expected {
				t.Errorf("Error() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestExitCodeError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	exitErr := &ExitCodeError{Code: ExitIOError, Err: originalErr}

	if unwrapped := exitErr.Unwrap(); !errors.Is(unwrapped, originalErr) {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
	if !errors.Is(exitErr, originalErr) {
		t.Errorf("errors.Is through ExitCodeError failed")
	}
}

func TestNew(t *testing.T) {
	if err := New(ExitIOError, nil); err != nil {
		t.Errorf("New() with nil error = %v, want nil", err)
	}
	err := New(ExitAmbiguousChartLayout, errors.New("two upf directories"))
	if code, ok := IsExitCodeError(err); !ok || code != ExitAmbiguousChartLayout {
		t.Errorf("IsExitCodeError(New()) = (%d, %v)", code, ok)
	}
}

func TestIsExitCodeError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantCode   int
		wantIsExit bool
	}{
		{
			name:       "exit code error",
			err:        &ExitCodeError{Code: ExitTreeNotFound, Err: errors.New("tree not found")},
			wantCode:   ExitTreeNotFound,
			wantIsExit: true,
		},
		{
			name:       "wrapped exit code error",
			err:        fmt.Errorf("context: %w", &ExitCodeError{Code: ExitIOError, Err: errors.New("io error")}),
			wantCode:   ExitIOError,
			wantIsExit: true,
		},
		{
			name:       "regular error",
			err:        errors.New("regular error"),
			wantCode:   0,
			wantIsExit: false,
		},
		{
			name:       "nil error",
			err:        nil,
			wantCode:   0,
			wantIsExit: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gotCode, gotIsExit := IsExitCodeError(tc.err)
			if gotCode != tc.wantCode || gotIsExit != tc.wantIsExit {
				t.Errorf("IsExitCodeError() = (%d, %v), want (%d, %v)",
					gotCode, gotIsExit, tc.wantCode, tc.wantIsExit)
			}
		})
	}
}

func TestCodeFor(t *testing.T) {
	if got := CodeFor(nil); got != ExitSuccess {
		t.Errorf("CodeFor(nil) = %d", got)
	}
	if got := CodeFor(errors.New("plain")); got != ExitGeneralRuntimeError {
		t.Errorf("CodeFor(plain) = %d", got)
	}
	if got := CodeFor(New(ExitRestorationFailed, errors.New("lost"))); got != ExitRestorationFailed {
		t.Errorf("CodeFor(restoration) = %d", got)
	}
	for code := range CodeDescriptions {
		if CodeDescriptions[code] == "" {
			t.Errorf("code %d has no description", code)
		}
	}
}
