package helm

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/registry"

	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// SDKPuller pulls charts in-process with the Helm SDK, honouring the usual HELM_* environment
// (repositories file, cache and registry credentials).
type SDKPuller struct {
	settings *cli.EnvSettings
	repos    *RepositoryManager
}

// NewSDKPuller creates an SDKPuller. A nil settings value uses cli.New().
func NewSDKPuller(settings *cli.EnvSettings) *SDKPuller {
	if settings == nil {
		settings = cli.New()
	}
	return &SDKPuller{settings: settings, repos: NewRepositoryManager(settings)}
}

// Pull downloads the chart and unpacks it into req.DestDir, like
// `helm pull <ref> --version <v> --untar --destination <dir>`.
func (p *SDKPuller) Pull(ctx context.Context, req PullRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "chart pull cancelled")
	}
	if err := p.repos.CheckReference(req.Ref); err != nil {
		return err
	}

	cfg := new(action.Configuration)
	if registry.IsOCI(req.Ref) {
		client, err := registry.NewClient(
			registry.ClientOptWriter(io.Discard),
			registry.ClientOptCredentialsFile(p.settings.RegistryConfig),
		)
		if err != nil {
			return errors.Wrap(err, "failed to create registry client")
		}
		cfg.RegistryClient = client
	}

	pull := action.NewPullWithOpts(action.WithConfig(cfg))
	pull.Settings = p.settings
	pull.Version = req.Version
	pull.Untar = true
	pull.UntarDir = "."
	pull.DestDir = req.DestDir

	log.Info("Pulling chart", "ref", req.Ref, "version", req.Version, "puller", "sdk")
	out, err := pull.Run(req.Ref)
	if err != nil {
		return errors.Wrapf(err, "failed to pull chart %s version %s", req.Ref, req.Version)
	}
	if out != "" {
		log.Debug("Helm pull output", "output", out)
	}
	return nil
}
