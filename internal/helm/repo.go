package helm

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/registry"
	"helm.sh/helm/v3/pkg/repo"
)

// ErrRepositoryNotConfigured is returned when a chart reference names a repository that is
// missing from the Helm repositories file.
var ErrRepositoryNotConfigured = errors.New("helm repository not configured")

// RepositoryManager answers questions about the locally configured Helm repositories.
type RepositoryManager struct {
	settings *cli.EnvSettings
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(settings *cli.EnvSettings) *RepositoryManager {
	return &RepositoryManager{settings: settings}
}

// GetRepositories returns the list of configured repositories. A missing repositories file
// yields an empty list.
func (rm *RepositoryManager) GetRepositories() (*repo.File, error) {
	repos, err := repo.LoadFile(rm.settings.RepositoryConfig)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return repo.NewFile(), nil
		}
		return nil, fmt.Errorf("failed to load repositories from %s: %w", rm.settings.RepositoryConfig, err)
	}
	return repos, nil
}

// CheckReference verifies that the repository named by a "repo/chart" reference is configured.
// OCI references, URLs and local paths need no repository entry.
func (rm *RepositoryManager) CheckReference(ref string) error {
	if registry.IsOCI(ref) || strings.Contains(ref, "://") || strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "/") {
		return nil
	}
	name, _, found := strings.Cut(ref, "/")
	if !found {
		return nil
	}

	repos, err := rm.GetRepositories()
	if err != nil {
		return err
	}
	if !repos.Has(name) {
		return fmt.Errorf("%w: %q (from %s); run 'helm repo add %s <url>'", ErrRepositoryNotConfigured, name, ref, name)
	}
	return nil
}
