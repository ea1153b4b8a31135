package override

import (
	"errors"
	"fmt"
)

// Override package errors.
var (
	// ErrSectionLookup is returned when a section's subchart could not be resolved for a
	// reason other than being absent, for example an ambiguous chart layout.
	ErrSectionLookup = errors.New("failed to resolve chart section")

	// ErrTagLoad is returned when the image tags of a subchart could not be read.
	ErrTagLoad = errors.New("failed to load subchart image tags")

	// ErrEmptyTarget is returned when Build is called without a target image or local image.
	ErrEmptyTarget = errors.New("target image and local image must both be set")

	// ErrMarshalOverrides is returned when overrides cannot be serialized.
	ErrMarshalOverrides = errors.New("failed to marshal overrides to YAML")
)

// WrapSectionLookup wraps ErrSectionLookup with the section name and cause.
func WrapSectionLookup(section string, err error) error {
	return fmt.Errorf("%w %q: %w", ErrSectionLookup, section, err)
}

// WrapTagLoad wraps ErrTagLoad with the subchart directory and cause.
func WrapTagLoad(dir string, err error) error {
	return fmt.Errorf("%w from %s: %w", ErrTagLoad, dir, err)
}

// WrapMarshalOverrides wraps ErrMarshalOverrides with the original error for context.
func WrapMarshalOverrides(err error) error {
	return fmt.Errorf("%w: %w", ErrMarshalOverrides, err)
}
