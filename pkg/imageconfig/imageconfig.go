// Package imageconfig redirects one image of the SD-Core values file to a local build and
// points every other image the chart declares at a mirror registry.
//
// The values file is a Jinja template, so the run is: protect placeholders, parse, pull the
// chart named by the vars file, introspect its subcharts, build and merge the override,
// serialize and restore placeholders. The result is staged in a patch.ChangeSet; nothing is
// written until the caller commits.
package imageconfig

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/lucas-albers-lz4/ciprep/internal/helm"
	"github.com/lucas-albers-lz4/ciprep/pkg/chart"
	"github.com/lucas-albers-lz4/ciprep/pkg/exitcodes"
	"github.com/lucas-albers-lz4/ciprep/pkg/fileutil"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/override"
	"github.com/lucas-albers-lz4/ciprep/pkg/patch"
	"github.com/lucas-albers-lz4/ciprep/pkg/placeholder"
	"github.com/lucas-albers-lz4/ciprep/pkg/values"
)

const (
	// DefaultValuesPath is the values template used when neither the configuration nor the
	// vars document names one.
	DefaultValuesPath = "deps/5gc/roles/core/templates/sdcore-5g-values.yaml"
	// TempDirPrefix names the directory the chart is pulled into.
	TempDirPrefix = "ciprep-chart-"
)

var (
	// ErrChartSettingsMissing means core.helm.chart_ref or core.helm.chart_version is absent.
	ErrChartSettingsMissing = errors.New("chart reference and version not found in vars file")
	// ErrChartSettingsTemplated means the chart settings are template expressions ciprep
	// cannot evaluate.
	ErrChartSettingsTemplated = errors.New("chart settings in vars file are templated")
)

// Request names the inputs of one run. Paths are relative to TreeRoot unless absolute.
type Request struct {
	TreeRoot string
	VarsPath string
	// ValuesPath takes precedence over core.values_file of the vars document.
	ValuesPath  string
	TargetImage string
	LocalImage  string
}

// Settings are the configurable parts of the override.
type Settings struct {
	RegistryPrefix string
	FlagKeys       []string
}

// Result describes what a successful run staged.
type Result struct {
	ValuesPath string
	Chart      chart.Info
	Sections   []string
	Overrides  *override.Document
	// Content is the new values file, or nil when there was nothing to override.
	Content []byte
}

// varsDocument is the part of vars/main.yml read for chart settings.
type varsDocument struct {
	Core struct {
		ValuesFile string `json:"values_file"`
		Helm       struct {
			ChartRef     string `json:"chart_ref"`
			ChartVersion string `json:"chart_version"`
		} `json:"helm"`
	} `json:"core"`
}

// Configurator runs the image configuration against one tree.
type Configurator struct {
	fs           afero.Fs
	puller       helm.Puller
	introspector *chart.Introspector
	changes      *patch.ChangeSet
	settings     Settings
}

// New returns a Configurator. The introspector must read the same filesystem the puller
// writes to.
func New(fs afero.Fs, puller helm.Puller, introspector *chart.Introspector, changes *patch.ChangeSet, settings Settings) *Configurator {
	return &Configurator{
		fs:           fs,
		puller:       puller,
		introspector: introspector,
		changes:      changes,
		settings:     settings,
	}
}

// Run configures the images and stages the new values file. Errors carry exit codes.
func (c *Configurator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.TargetImage == "" || req.LocalImage == "" {
		return nil, exitcodes.New(exitcodes.ExitInputConfigurationError, override.ErrEmptyTarget)
	}
	log.Info("Configuring images", "image", req.TargetImage, "local", req.LocalImage)

	vars, err := c.readVars(resolve(req.TreeRoot, req.VarsPath))
	if err != nil {
		return nil, err
	}
	chartRef, chartVersion := vars.Core.Helm.ChartRef, vars.Core.Helm.ChartVersion

	valuesPath := resolve(req.TreeRoot, c.valuesPath(req, vars))
	original, err := c.changes.Read(valuesPath)
	if err != nil {
		return nil, readError(valuesPath, err)
	}

	safe, table := placeholder.Protect(string(original))
	doc, err := values.Load([]byte(safe))
	if err != nil {
		return nil, exitcodes.New(exitcodes.ExitValuesParsingError, fmt.Errorf("values file %s: %w", valuesPath, err))
	}
	log.Debug("Parsed values file", "path", valuesPath, "placeholders", table.Len())

	pullDir, cleanup, err := fileutil.TempDir(c.fs, TempDirPrefix)
	if err != nil {
		return nil, exitcodes.New(exitcodes.ExitIOError, err)
	}
	defer cleanup()

	log.Info("Pulling chart", "ref", chartRef, "version", chartVersion)
	if err := c.puller.Pull(ctx, helm.PullRequest{Ref: chartRef, Version: chartVersion, DestDir: pullDir}); err != nil {
		return nil, exitcodes.New(exitcodes.ExitChartPullFailed, err)
	}

	info, err := chart.FindPulledChart(c.fs, pullDir, helm.ChartName(chartRef))
	if err != nil {
		return nil, chartError(err)
	}

	sections := values.EnabledSections(doc, c.settings.FlagKeys)
	if len(sections) == 0 {
		log.Warn("No enabled sections found in values file", "path", valuesPath)
	}

	overrides, err := override.NewBuilder(c.introspector).Build(sections, info.Path, req.TargetImage, req.LocalImage, c.settings.RegistryPrefix)
	if err != nil {
		return nil, chartError(err)
	}

	result := &Result{ValuesPath: valuesPath, Chart: info, Sections: sections, Overrides: overrides}
	if overrides.Empty() {
		log.Warn("No image overrides produced, values file left unchanged", "path", valuesPath)
		return result, nil
	}

	merged, err := values.Encode(values.Merge(doc, overrides.Node()))
	if err != nil {
		return nil, exitcodes.New(exitcodes.ExitOverrideFailed, err)
	}
	restored, err := placeholder.Restore(string(merged), table)
	if err != nil {
		return nil, exitcodes.New(exitcodes.ExitRestorationFailed, fmt.Errorf("values file %s: %w", valuesPath, err))
	}

	result.Content = []byte(restored)
	c.changes.Stage(valuesPath, result.Content)
	log.Info("Image overrides merged", "path", valuesPath, "sections", strings.Join(overrides.Sections(), ","),
		"image", req.TargetImage, "local", req.LocalImage, "mirror", c.settings.RegistryPrefix)
	return result, nil
}

// readVars decodes the chart settings of the vars document. Placeholders are protected first
// so a templated value elsewhere in the file does not break parsing.
func (c *Configurator) readVars(path string) (*varsDocument, error) {
	data, err := c.changes.Read(path)
	if err != nil {
		return nil, readError(path, err)
	}
	safe, table := placeholder.Protect(string(data))

	var vars varsDocument
	if err := yaml.Unmarshal([]byte(safe), &vars); err != nil {
		return nil, exitcodes.New(exitcodes.ExitValuesParsingError, fmt.Errorf("vars file %s: %w", path, err))
	}

	ref, version := vars.Core.Helm.ChartRef, vars.Core.Helm.ChartVersion
	if ref == "" || version == "" {
		return nil, exitcodes.New(exitcodes.ExitPreconditionFailed,
			fmt.Errorf("%w: expected core.helm.chart_ref and core.helm.chart_version in %s", ErrChartSettingsMissing, path))
	}
	if table.Len() > 0 && (holdsToken(ref, table) || holdsToken(version, table)) {
		return nil, exitcodes.New(exitcodes.ExitPreconditionFailed, fmt.Errorf("%w: %s", ErrChartSettingsTemplated, path))
	}
	if holdsToken(vars.Core.ValuesFile, table) {
		log.Warn("Ignoring templated core.values_file", "path", path)
		vars.Core.ValuesFile = ""
	}
	return &vars, nil
}

func (c *Configurator) valuesPath(req Request, vars *varsDocument) string {
	switch {
	case req.ValuesPath != "":
		return req.ValuesPath
	case vars.Core.ValuesFile != "":
		return vars.Core.ValuesFile
	default:
		return DefaultValuesPath
	}
}

func holdsToken(value string, table *placeholder.Table) bool {
	for _, e := range table.Entries() {
		if strings.Contains(value, e.Token) {
			return true
		}
	}
	return false
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

func readError(path string, err error) error {
	if patch.IsNotExist(err) {
		return exitcodes.New(exitcodes.ExitPreconditionFailed, fmt.Errorf("required file %s does not exist: %w", path, err))
	}
	return exitcodes.New(exitcodes.ExitIOError, err)
}

// chartError maps introspection and override failures to exit codes.
func chartError(err error) error {
	var parseErr *chart.ParsingError
	switch {
	case errors.Is(err, chart.ErrAmbiguousChart), errors.Is(err, chart.ErrAmbiguousSection):
		return exitcodes.New(exitcodes.ExitAmbiguousChartLayout, err)
	case errors.Is(err, chart.ErrChartNotFound), errors.Is(err, chart.ErrChartLoadFailed),
		errors.Is(err, chart.ErrSectionNotFound):
		return exitcodes.New(exitcodes.ExitChartLayoutError, err)
	case errors.As(err, &parseErr):
		return exitcodes.New(exitcodes.ExitValuesParsingError, err)
	default:
		return exitcodes.New(exitcodes.ExitOverrideFailed, err)
	}
}
