package helm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lucas-albers-lz4/ciprep/pkg/cmdexec"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/version"
)

// CommandPuller pulls charts by running the helm binary.
type CommandPuller struct {
	runner cmdexec.Runner
}

// NewCommandPuller creates a CommandPuller. A nil runner uses cmdexec.ExecRunner.
func NewCommandPuller(runner cmdexec.Runner) *CommandPuller {
	if runner == nil {
		runner = cmdexec.ExecRunner{}
	}
	return &CommandPuller{runner: runner}
}

// Pull checks the helm version and runs `helm pull --untar` into req.DestDir.
func (p *CommandPuller) Pull(ctx context.Context, req PullRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	if err := version.CheckHelmVersion(ctx, p.runner); err != nil {
		return err
	}

	args := []string{"pull", req.Ref, "--version", req.Version, "--untar", "--destination", req.DestDir}
	log.Info("Pulling chart", "ref", req.Ref, "version", req.Version, "puller", "command")
	result, err := p.runner.Run(ctx, "helm", args...)
	if err != nil {
		return errors.Wrapf(err, "failed to pull chart %s version %s", req.Ref, req.Version)
	}
	if result.Stdout != "" {
		log.Debug("Helm pull output", "output", result.Stdout)
	}
	return nil
}
