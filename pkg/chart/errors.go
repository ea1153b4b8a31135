package chart

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSectionNotFound means no subchart directory matches a section or its alias.
	ErrSectionNotFound = errors.New("chart section directory not found")
	// ErrAmbiguousSection means more than one directory carries the section name.
	ErrAmbiguousSection = errors.New("ambiguous chart section directory")
	// ErrChartNotFound means the pull directory holds no directory for the chart.
	ErrChartNotFound = errors.New("pulled chart directory not found")
	// ErrAmbiguousChart means the pull directory holds several candidate chart directories.
	ErrAmbiguousChart = errors.New("ambiguous pulled chart directory")
	// ErrChartLoadFailed wraps failures of the Helm chart loader.
	ErrChartLoadFailed = errors.New("helm loader failed")
)

// AmbiguityError lists every candidate directory when a lookup matched more than once.
type AmbiguityError struct {
	Kind       error
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%v: %q matches %d directories: %s", e.Kind, e.Name, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// Unwrap allows errors.Is against ErrAmbiguousSection or ErrAmbiguousChart.
func (e *AmbiguityError) Unwrap() error { return e.Kind }

// ParsingError indicates a subchart values file or Chart.yaml could not be parsed.
type ParsingError struct {
	FilePath string
	Err      error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("chart parsing failed for %s: %v", e.FilePath, e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }
