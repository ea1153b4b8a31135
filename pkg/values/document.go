// Package values loads, merges and serializes Helm values documents as yaml.v3 node trees.
//
// Working on *yaml.Node instead of map[string]interface{} keeps the key order and quoting
// style of the source file, so a patched values file diffs cleanly against the original.
package values

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Indent is the indentation used when serializing, matching Helm chart conventions.
const Indent = 2

var (
	// ErrNotMapping is returned when a document root is not a mapping.
	ErrNotMapping = errors.New("document root is not a mapping")
	// ErrParse is returned when the text is not valid YAML.
	ErrParse = errors.New("failed to parse YAML document")
)

// Load parses text into a document node. Empty input yields an empty mapping document.
func Load(text []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if doc.Kind == 0 {
		return &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}, nil
	}
	if root := resolve(&doc); root == nil || root.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	return &doc, nil
}

// Encode serializes a node tree with two-space indentation.
func Encode(doc *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// FromValue converts a Go value (maps, slices, scalars) into a node tree.
func FromValue(v interface{}) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to convert value to YAML node: %w", err)
	}
	return &n, nil
}

// ToValue decodes a node tree into plain Go values.
func ToValue(n *yaml.Node) (interface{}, error) {
	var out interface{}
	if n == nil {
		return nil, nil
	}
	if err := n.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode YAML node: %w", err)
	}
	return out, nil
}

// Lookup follows mapping keys from the root of doc and returns the node found, or nil.
func Lookup(doc *yaml.Node, path ...string) *yaml.Node {
	cur := resolve(doc)
	for _, key := range path {
		if cur == nil || cur.Kind != yaml.MappingNode {
			return nil
		}
		cur = resolve(mappingValue(cur, key))
	}
	return cur
}

// Root returns the top-level mapping of a document.
func Root(doc *yaml.Node) *yaml.Node {
	return resolve(doc)
}

// resolve unwraps document nodes and follows aliases.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

// mappingValue returns the value node for key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
