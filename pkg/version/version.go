// Package version checks that the installed Helm binary is recent enough for `helm pull`.
package version

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/lucas-albers-lz4/ciprep/pkg/cmdexec"
	"github.com/lucas-albers-lz4/ciprep/pkg/exitcodes"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// MinHelmVersion is the oldest Helm release whose `helm pull --untar` layout ciprep reads.
const MinHelmVersion = "3.14.0"

var minHelm = semver.MustParse(MinHelmVersion)

var (
	// ErrUnsupportedHelm is returned when the installed Helm is older than MinHelmVersion.
	ErrUnsupportedHelm = errors.New("unsupported helm version")
	// ErrUnrecognizedHelmVersion is returned when `helm version --short` prints no version.
	ErrUnrecognizedHelmVersion = errors.New("unrecognized helm version output")
)

// helmVersion parses `helm version --short` output such as "v3.14.2+g0e1f115".
// Build metadata is kept by the parser and ignored when comparing.
func helmVersion(output string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(output))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedHelmVersion, strings.TrimSpace(output))
	}
	return v, nil
}

// supported reports whether v is at least MinHelmVersion. Pre-releases of the minimum
// release do not count.
func supported(v *semver.Version) bool {
	return !v.LessThan(minHelm)
}

// CheckHelmVersion runs `helm version --short` and fails when the binary is missing or too old.
func CheckHelmVersion(ctx context.Context, runner cmdexec.Runner) error {
	result, err := runner.Run(ctx, "helm", "version", "--short")
	if err != nil {
		return exitcodes.New(exitcodes.ExitChartPullFailed, fmt.Errorf("failed to get Helm version: %w", err))
	}

	v, err := helmVersion(result.Stdout)
	if err != nil {
		return exitcodes.New(exitcodes.ExitPreconditionFailed, err)
	}
	if !supported(v) {
		return exitcodes.New(exitcodes.ExitPreconditionFailed,
			fmt.Errorf("%w: %s, need at least %s", ErrUnsupportedHelm, v, MinHelmVersion))
	}

	log.Debug("Helm version check passed", "version", v.String())
	return nil
}
