package values

import (
	"reflect"

	"gopkg.in/yaml.v3"

	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// DefaultFlagKeys are the keys that switch a network function on across the SD-Core sub-schemas.
var DefaultFlagKeys = []string{"enable", "enable4G", "enable5G"}

// EnabledSections returns the top-level keys of doc whose value is a mapping with at least one
// of flagKeys set to true. The result follows document order.
func EnabledSections(doc *yaml.Node, flagKeys []string) []string {
	root := resolve(doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil
	}
	if len(flagKeys) == 0 {
		flagKeys = DefaultFlagKeys
	}

	var enabled []string
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		section := resolve(root.Content[i+1])
		if section == nil || section.Kind != yaml.MappingNode {
			log.Debug("Skipping non-mapping top-level value", "section", name)
			continue
		}
		flag, ok := enabledBy(section, flagKeys)
		if !ok {
			log.Debug("Section disabled", "section", name)
			continue
		}
		log.Info("Section enabled", "section", name, "flag", flag)
		enabled = append(enabled, name)
	}
	return enabled
}

func enabledBy(section *yaml.Node, flagKeys []string) (string, bool) {
	for _, key := range flagKeys {
		if isTrue(resolve(mappingValue(section, key))) {
			return key, true
		}
	}
	return "", false
}

// isTrue accepts a !!bool scalar or an untagged plain scalar that YAML 1.1 reads as true,
// such as yes or on, since Ansible loads the file that way. Quoted and explicitly tagged
// strings never count.
func isTrue(n *yaml.Node) bool {
	if n == nil || n.Kind != yaml.ScalarNode {
		return false
	}
	if n.ShortTag() != "!!bool" && n.Style != 0 {
		return false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false
	}
	return b
}

// Equal reports whether two trees hold the same data, ignoring style and key order.
func Equal(a, b *yaml.Node) bool {
	av, err := ToValue(a)
	if err != nil {
		return false
	}
	bv, err := ToValue(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
