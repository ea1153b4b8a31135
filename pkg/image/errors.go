package image

import "errors"

// Sentinel errors related to image reference parsing.
var (
	ErrEmptyImageReference   = errors.New("image reference is empty")
	ErrInvalidImageReference = errors.New("invalid image reference")
	ErrTagAndDigestPresent   = errors.New("both tag and digest present")
	ErrTemplateInReference   = errors.New("template expression in image reference")
)
