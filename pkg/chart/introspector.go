package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/lucas-albers-lz4/ciprep/pkg/fileutil"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// ValuesFile is the values file name inside a subchart.
const ValuesFile = "values.yaml"

// DefaultAliases maps a section name to the subchart directory used when no directory carries
// the section name itself. The user plane subchart ships as bess-upf.
var DefaultAliases = map[string]string{
	"omec-user-plane": "bess-upf",
}

// Introspector finds section subcharts in a pulled chart tree.
type Introspector struct {
	FS      afero.Fs
	Aliases map[string]string
}

// NewIntrospector returns an Introspector using DefaultAliases.
func NewIntrospector(fs afero.Fs) *Introspector {
	return &Introspector{FS: fs, Aliases: DefaultAliases}
}

// subchartValues is the part of a subchart values file read for image tags.
type subchartValues struct {
	Images *struct {
		Tags map[string]interface{} `json:"tags"`
	} `json:"images"`
}

// FindSectionDir returns the one directory below chartRoot named exactly section, falling back
// to the section's alias. More than one match for either name is fatal.
func (i *Introspector) FindSectionDir(chartRoot, section string) (string, error) {
	dir, err := i.findUnique(chartRoot, section)
	if err == nil {
		return dir, nil
	}
	alias, ok := i.Aliases[section]
	if !ok || alias == section || !isNotFound(err) {
		return "", err
	}

	log.Debug("Retrying section lookup with alias", "section", section, "alias", alias)
	dir, err = i.findUnique(chartRoot, alias)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %s (alias %s) under %s", ErrSectionNotFound, section, alias, chartRoot)
		}
		return "", err
	}
	return dir, nil
}

func (i *Introspector) findUnique(chartRoot, name string) (string, error) {
	var matches []string
	err := afero.Walk(i.FS, chartRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != chartRoot && info.Name() == name {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk chart tree %s: %w", chartRoot, err)
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s under %s", ErrSectionNotFound, name, chartRoot)
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Kind: ErrAmbiguousSection, Name: name, Candidates: matches}
	}
}

// LoadImageTags returns images.tags from the subchart values file in sectionDir. A subchart
// without a values file or without images yields an empty map.
func (i *Introspector) LoadImageTags(sectionDir string) (map[string]string, error) {
	path := filepath.Join(sectionDir, ValuesFile)
	exists, err := fileutil.FileExists(i.FS, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Debug("Subchart has no values file", "dir", sectionDir)
		return map[string]string{}, nil
	}

	data, err := fileutil.ReadRegularFile(i.FS, path)
	if err != nil {
		return nil, err
	}
	var v subchartValues
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, &ParsingError{FilePath: path, Err: err}
	}

	tags := make(map[string]string)
	if v.Images == nil {
		return tags, nil
	}
	for name, value := range v.Images.Tags {
		if value == nil {
			continue
		}
		tags[name] = fmt.Sprint(value)
	}
	return tags, nil
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrSectionNotFound)
}
