package values

import (
	"gopkg.in/yaml.v3"
)

// Merge deep-merges override into base and returns a new tree; neither input is modified.
//
// When both sides hold a mapping at the same key the merge recurses. In every other case the
// override value replaces the base value, so sequences are swapped wholesale and never
// concatenated. Keys present only in base keep their position; keys only in override are
// appended in override order.
//
// An anchored base node changed by the merge loses its anchor, and every alias of it is
// expanded to a copy of the original content, so aliases never pick up the override.
func Merge(base, override *yaml.Node) *yaml.Node {
	m := &merger{detached: make(map[*yaml.Node]bool)}
	var out *yaml.Node
	if base != nil && base.Kind == yaml.DocumentNode {
		doc := *base
		doc.Content = []*yaml.Node{m.merge(resolve(base), resolve(override), false)}
		out = &doc
	} else {
		out = m.merge(resolve(base), resolve(override), false)
	}
	m.expandAliases(out)
	return out
}

// merger tracks the anchored base nodes whose definition was changed by the merge.
type merger struct {
	detached map[*yaml.Node]bool
}

// merge combines raw, a base node that may be an alias, with override. shared is set below an
// alias: the output there is a new node and the anchored definition stays as it was.
func (m *merger) merge(raw, override *yaml.Node, shared bool) *yaml.Node {
	base := resolve(raw)
	shared = shared || (raw != nil && raw.Kind == yaml.AliasNode)
	switch {
	case override == nil:
		return deepCopy(raw)
	case base == nil:
		return deepCopy(override)
	case base.Kind != yaml.MappingNode || override.Kind != yaml.MappingNode:
		if !shared {
			m.detach(base)
		}
		return deepCopy(override)
	}

	overrideValues := make(map[string]*yaml.Node, len(override.Content)/2)
	for i := 0; i+1 < len(override.Content); i += 2 {
		key := override.Content[i].Value
		if _, seen := overrideValues[key]; !seen {
			overrideValues[key] = override.Content[i+1]
		}
	}

	out := *base
	if base.Anchor != "" {
		out.Anchor = ""
		if !shared {
			m.detached[base] = true
		}
	}
	out.Content = make([]*yaml.Node, 0, len(base.Content)+len(override.Content))
	used := make(map[string]bool, len(overrideValues))
	for i := 0; i+1 < len(base.Content); i += 2 {
		key, value := base.Content[i], base.Content[i+1]
		if ov, ok := overrideValues[key.Value]; ok && !used[key.Value] {
			used[key.Value] = true
			out.Content = append(out.Content, deepCopy(key), m.merge(value, resolve(ov), shared))
			continue
		}
		out.Content = append(out.Content, deepCopy(key), deepCopy(value))
	}
	for i := 0; i+1 < len(override.Content); i += 2 {
		key := override.Content[i]
		if used[key.Value] {
			continue
		}
		used[key.Value] = true
		out.Content = append(out.Content, deepCopy(key), deepCopy(resolve(override.Content[i+1])))
	}
	return &out
}

// detach records every anchor defined in a base subtree that the override replaced.
func (m *merger) detach(n *yaml.Node) {
	if n == nil || n.Kind == yaml.AliasNode {
		return
	}
	if n.Anchor != "" {
		m.detached[n] = true
	}
	for _, child := range n.Content {
		m.detach(child)
	}
}

// expandAliases replaces aliases of detached anchors in the output with copies of the
// original anchored content.
func (m *merger) expandAliases(n *yaml.Node) {
	if n == nil || len(m.detached) == 0 {
		return
	}
	for i, child := range n.Content {
		if child.Kind == yaml.AliasNode && m.detached[child.Alias] {
			n.Content[i] = unanchored(child.Alias)
		}
		m.expandAliases(n.Content[i])
	}
}

// deepCopy clones a node tree. Alias nodes keep pointing at their anchor; the encoder only
// needs the alias name.
func deepCopy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = deepCopy(child)
		}
	}
	return &c
}

// unanchored returns a copy of n with every anchor definition removed.
func unanchored(n *yaml.Node) *yaml.Node {
	c := deepCopy(n)
	var strip func(*yaml.Node)
	strip = func(x *yaml.Node) {
		x.Anchor = ""
		for _, child := range x.Content {
			strip(child)
		}
	}
	strip(c)
	return c
}
