// Package chart inspects a pulled Helm chart: it finds the pulled chart directory, locates the
// subchart backing a values section and reads the image tags that subchart declares.
package chart

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"helm.sh/helm/v3/pkg/chart/loader"

	"github.com/lucas-albers-lz4/ciprep/pkg/fileutil"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// ChartFile is the chart metadata file name.
const ChartFile = "Chart.yaml"

// FindPulledChart returns the single top-level directory of pullDir whose name starts with
// chartName. Zero or several candidates are both fatal.
func FindPulledChart(fs afero.Fs, pullDir, chartName string) (Info, error) {
	entries, err := afero.ReadDir(fs, pullDir)
	if err != nil {
		return Info{}, fmt.Errorf("failed to list pull directory %s: %w", pullDir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), chartName) {
			candidates = append(candidates, filepath.Join(pullDir, entry.Name()))
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return Info{}, fmt.Errorf("%w: no directory named %s* in %s", ErrChartNotFound, chartName, pullDir)
	case 1:
	default:
		return Info{}, &AmbiguityError{Kind: ErrAmbiguousChart, Name: chartName, Candidates: candidates}
	}

	info, err := LoadInfo(fs, candidates[0])
	if err != nil {
		return Info{}, err
	}
	log.Info("Located pulled chart", "name", info.Name, "version", info.Version, "path", info.Path)
	return info, nil
}

// LoadInfo reads Chart.yaml in dir through the Helm loader, which also validates the metadata.
func LoadInfo(fs afero.Fs, dir string) (Info, error) {
	path := filepath.Join(dir, ChartFile)
	data, err := fileutil.ReadRegularFile(fs, path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrChartLoadFailed, err)
	}

	c, err := loader.LoadFiles([]*loader.BufferedFile{{Name: ChartFile, Data: data}})
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrChartLoadFailed, &ParsingError{FilePath: path, Err: err})
	}
	return Info{
		Name:         c.Name(),
		Version:      c.Metadata.Version,
		Path:         dir,
		Dependencies: len(c.Metadata.Dependencies),
	}, nil
}
