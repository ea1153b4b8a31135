// Package image parses and rewrites container image references.
package image

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

const (
	// DefaultRegistry is used when a reference carries no registry host.
	DefaultRegistry = "docker.io"
	// LatestTag is assumed for references with neither tag nor digest.
	LatestTag = "latest"
)

// Reference is a parsed image reference.
type Reference struct {
	Original   string
	Registry   string
	Repository string
	Tag        string
	Digest     string
}

// String returns the fully qualified form of the reference.
func (r *Reference) String() string {
	s := r.Registry + "/" + r.Repository
	if r.Tag != "" {
		s += ":" + r.Tag
	}
	if r.Digest != "" {
		s += "@" + r.Digest
	}
	return s
}

// Parse parses ref using the normalized Docker reference grammar, so "nginx" becomes
// docker.io/library/nginx:latest.
func Parse(ref string) (*Reference, error) {
	if ref == "" {
		return nil, ErrEmptyImageReference
	}
	if strings.Contains(ref, "{{") {
		return nil, fmt.Errorf("%w: %s", ErrTemplateInReference, ref)
	}

	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidImageReference, ref, err)
	}

	result := &Reference{
		Original:   ref,
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
	}
	if tagged, ok := named.(reference.Tagged); ok {
		result.Tag = tagged.Tag()
	}
	if digested, ok := named.(reference.Digested); ok {
		result.Digest = digested.Digest().String()
	}
	if result.Tag != "" && result.Digest != "" {
		return nil, fmt.Errorf("%w: %s", ErrTagAndDigestPresent, ref)
	}
	if result.Tag == "" && result.Digest == "" {
		result.Tag = LatestTag
	}
	return result, nil
}

// Validate reports whether ref is a well-formed image reference.
func Validate(ref string) error {
	_, err := Parse(ref)
	return err
}

// Mirror prepends prefix to value. The prefix is used verbatim, so it normally ends in "/".
func Mirror(prefix, value string) string {
	return prefix + value
}

// CheckMirrored logs a warning when a rewritten reference does not parse. The rewritten value is
// still used: chart tags are sometimes bare versions that the chart combines with a repository.
func CheckMirrored(tag, ref string) {
	if err := Validate(ref); err != nil {
		log.Warn("Rewritten image value is not a valid image reference", "tag", tag, "value", ref, "error", err)
	}
}
