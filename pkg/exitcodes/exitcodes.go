// Package exitcodes provides centralized exit code definitions for ciprep.
// Exit codes are organized in ranges to categorize failures:
//
//	0:     Success
//	1-9:   Input, configuration and environment errors
//	10-19: Values, chart and merge errors
//	20-29: Runtime errors (I/O, external commands)
//	30-39: Internal errors
package exitcodes

import (
	"errors"
	"fmt"
)

// Exit code constants organized by category
const (
	// Success (0)
	ExitSuccess = 0

	// Input/Configuration/Environment Errors (1-9)
	ExitUsageError              = 1 // Wrong number of arguments or bad flag
	ExitInputConfigurationError = 2 // Config file or flag value invalid
	ExitTreeNotFound            = 3 // Configuration tree root missing
	ExitPreconditionFailed      = 4 // File missing or not in the expected shape
	ExitEnvironmentDetection    = 5 // No default route or interface address

	// Values/Chart Errors (10-19)
	ExitValuesParsingError   = 10 // Values or vars document could not be parsed
	ExitChartLayoutError     = 11 // Pulled chart missing expected directories
	ExitAmbiguousChartLayout = 12 // More than one candidate directory
	ExitRestorationFailed    = 13 // Template placeholders were lost
	ExitOverrideFailed       = 14 // Override could not be built or merged
	ExitChartPullFailed      = 16 // Chart fetch failed

	// Runtime Errors (20-29)
	ExitGeneralRuntimeError = 20 // General runtime/system error
	ExitIOError             = 21 // IO operation error

	// Internal Errors (30-39)
	ExitInternalError = 30 // Internal error in command execution
)

// ExitCodeError wraps an error with an exit code so main can terminate with it.
type ExitCodeError struct {
	Code int   // Exit code to return
	Err  error // Underlying error
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d: %v", e.Code, e.Err)
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// New wraps err with code. A nil err yields nil.
func New(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitCodeError{Code: code, Err: err}
}

// IsExitCodeError checks if an error is an ExitCodeError and returns its code.
// Returns false and 0 if the error is not an ExitCodeError.
func IsExitCodeError(err error) (int, bool) {
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// CodeFor returns the exit code carried by err, ExitGeneralRuntimeError for other
// non-nil errors and ExitSuccess for nil.
func CodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if code, ok := IsExitCodeError(err); ok {
		return code
	}
	return ExitGeneralRuntimeError
}

// CodeDescriptions maps exit codes to their human-readable descriptions
var CodeDescriptions = map[int]string{
	ExitSuccess:                 "Success",
	ExitUsageError:              "Invalid command usage",
	ExitInputConfigurationError: "General configuration error",
	ExitTreeNotFound:            "Configuration tree not found",
	ExitPreconditionFailed:      "File missing or not in the expected shape",
	ExitEnvironmentDetection:    "Network environment detection failed",
	ExitValuesParsingError:      "Failed to parse a YAML document",
	ExitChartLayoutError:        "Pulled chart layout not as expected",
	ExitAmbiguousChartLayout:    "Ambiguous chart layout",
	ExitRestorationFailed:       "Template placeholders were not restored",
	ExitOverrideFailed:          "Failed to build or merge image overrides",
	ExitChartPullFailed:         "Failed to pull Helm chart",
	ExitGeneralRuntimeError:     "General runtime/system error",
	ExitIOError:                 "IO operation error",
	ExitInternalError:           "Internal error in command execution",
}
