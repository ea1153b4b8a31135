// Package override builds the image override document merged into the SD-Core values file.
//
// For every enabled section that maps to a subchart declaring images.tags, the override sets
// images.repository to "" and rewrites each tag: the target image gets the local build, every
// other image is redirected to the mirror registry.
package override

import (
	"errors"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lucas-albers-lz4/ciprep/pkg/chart"
	"github.com/lucas-albers-lz4/ciprep/pkg/image"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/values"
)

// SectionLocator resolves sections to subchart directories and reads their image tags.
// *chart.Introspector implements it.
type SectionLocator interface {
	FindSectionDir(chartRoot, section string) (string, error)
	LoadImageTags(sectionDir string) (map[string]string, error)
}

// SectionOverride holds the rewritten tags of one section.
type SectionOverride struct {
	Section string
	Tags    map[string]string
}

// Document is the complete override: one entry per section that declared image tags.
type Document struct {
	sections      []SectionOverride
	targetApplied bool
}

// Sections returns the names of the sections that received overrides, in build order.
func (d *Document) Sections() []string {
	names := make([]string, 0, len(d.sections))
	for _, s := range d.sections {
		names = append(names, s.Section)
	}
	return names
}

// Tags returns the rewritten tags of a section.
func (d *Document) Tags(section string) (map[string]string, bool) {
	for _, s := range d.sections {
		if s.Section == section {
			return s.Tags, true
		}
	}
	return nil, false
}

// TargetApplied reports whether any section declared the target image.
func (d *Document) TargetApplied() bool {
	return d.targetApplied
}

// Empty reports whether no section received an override.
func (d *Document) Empty() bool {
	return len(d.sections) == 0
}

// Node renders the document as a yaml.v3 mapping ready for values.Merge.
// Tags are emitted in sorted order so the output is deterministic.
func (d *Document) Node() *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, s := range d.sections {
		tags := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, name := range sortedKeys(s.Tags) {
			tags.Content = append(tags.Content, strNode(name, 0), strNode(s.Tags[name], 0))
		}
		images := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
			strNode("repository", 0), strNode("", yaml.DoubleQuotedStyle),
			strNode("tags", 0), tags,
		}}
		section := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
			strNode("images", 0), images,
		}}
		root.Content = append(root.Content, strNode(s.Section, 0), section)
	}
	return root
}

// ToYAML serializes the override document.
func (d *Document) ToYAML() ([]byte, error) {
	out, err := values.Encode(d.Node())
	if err != nil {
		return nil, WrapMarshalOverrides(err)
	}
	return out, nil
}

// Builder turns enabled sections into an override Document.
type Builder struct {
	Locator SectionLocator
}

// NewBuilder returns a Builder using locator.
func NewBuilder(locator SectionLocator) *Builder {
	return &Builder{Locator: locator}
}

// Build creates overrides for sections found under chartRoot. Sections without a subchart or
// without image tags are skipped with a warning; an ambiguous layout or unreadable subchart
// values abort the build.
func (b *Builder) Build(sections []string, chartRoot, targetImage, localImage, registryPrefix string) (*Document, error) {
	if targetImage == "" || localImage == "" {
		return nil, ErrEmptyTarget
	}
	if err := image.Validate(localImage); err != nil {
		log.Warn("Local image is not a valid image reference", "image", localImage, "error", err)
	}

	doc := &Document{}
	for _, section := range sections {
		dir, err := b.Locator.FindSectionDir(chartRoot, section)
		if errors.Is(err, chart.ErrSectionNotFound) {
			log.Warn("Skipping section without subchart", "section", section)
			continue
		}
		if err != nil {
			return nil, WrapSectionLookup(section, err)
		}

		declared, err := b.Locator.LoadImageTags(dir)
		if err != nil {
			return nil, WrapTagLoad(dir, err)
		}
		if len(declared) == 0 {
			log.Warn("Skipping section without image tags", "section", section, "dir", dir)
			continue
		}

		rewritten := make(map[string]string, len(declared))
		for name, value := range declared {
			if name == targetImage {
				rewritten[name] = localImage
				doc.targetApplied = true
				log.Info("Redirecting image to local build", "section", section, "tag", name, "image", localImage)
				continue
			}
			mirrored := image.Mirror(registryPrefix, value)
			image.CheckMirrored(name, mirrored)
			rewritten[name] = mirrored
		}
		doc.sections = append(doc.sections, SectionOverride{Section: section, Tags: rewritten})
		log.Debug("Built section override", "section", section, "tags", len(rewritten))
	}

	if !doc.targetApplied {
		log.Warn("Target image not declared by any enabled section", "image", targetImage)
	}
	return doc, nil
}

func strNode(value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: style}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
