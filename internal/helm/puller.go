// Package helm fetches Helm charts, either through the Helm SDK or by running the helm binary.
package helm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPullRequest is returned when a pull request lacks a reference, version or destination.
var ErrInvalidPullRequest = errors.New("invalid chart pull request")

// PullRequest describes one chart to fetch and unpack.
type PullRequest struct {
	// Ref is a repository reference ("aether/sd-core") or an oci:// URL.
	Ref string
	// Version is the exact chart version.
	Version string
	// DestDir receives the unpacked chart directory.
	DestDir string
}

func (r PullRequest) validate() error {
	var missing []string
	if r.Ref == "" {
		missing = append(missing, "ref")
	}
	if r.Version == "" {
		missing = append(missing, "version")
	}
	if r.DestDir == "" {
		missing = append(missing, "destination")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPullRequest, strings.Join(missing, ", "))
	}
	return nil
}

// Puller fetches a chart and unpacks it below PullRequest.DestDir.
type Puller interface {
	Pull(ctx context.Context, req PullRequest) error
}

// ChartName returns the last path segment of a chart reference: "aether/sd-core" → "sd-core".
func ChartName(ref string) string {
	ref = strings.TrimSuffix(ref, "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
