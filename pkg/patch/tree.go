package patch

import (
	"fmt"
	"path/filepath"

	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// Placeholders are the literals of the upstream vars file that stand for host values.
type Placeholders struct {
	Interface string `mapstructure:"interface"`
	Address   string `mapstructure:"address"`
}

// Patcher stages edits of files below a tree root into a ChangeSet.
type Patcher struct {
	changes *ChangeSet
	root    string
}

// NewPatcher returns a Patcher for the tree at root.
func NewPatcher(changes *ChangeSet, root string) *Patcher {
	return &Patcher{changes: changes, root: root}
}

// Path resolves rel against the tree root. Absolute paths are returned unchanged.
func (p *Patcher) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.root, rel)
}

// Inventory updates the host fields of the inventory at rel, creating a default inventory when
// the file does not exist.
func (p *Patcher) Inventory(rel string, host Host) error {
	path := p.Path(rel)
	exists, err := p.changes.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		log.Info("Creating inventory", "path", path)
		p.changes.Stage(path, []byte(DefaultInventory(host)))
		return nil
	}

	data, err := p.changes.Read(path)
	if err != nil {
		return err
	}
	updated, lines := Inventory(string(data), host)
	log.Info("Patched inventory", "path", path, "lines", lines, "address", host.Address, "user", host.User)
	p.changes.Stage(path, []byte(updated))
	return nil
}

// Vars replaces the interface and address placeholders of the vars file at rel. Both must exist.
func (p *Patcher) Vars(rel string, ph Placeholders, iface, addr string) error {
	path := p.Path(rel)
	data, err := p.changes.Read(path)
	if err != nil {
		return err
	}

	text, err := ReplaceRequired(string(data), ph.Interface, iface)
	if err != nil {
		return fmt.Errorf("interface placeholder in %s: %w", path, err)
	}
	text, err = ReplaceRequired(text, ph.Address, addr)
	if err != nil {
		return fmt.Errorf("address placeholder in %s: %w", path, err)
	}
	log.Info("Patched vars file", "path", path, "interface", iface, "address", addr)
	p.changes.Stage(path, []byte(text))
	return nil
}

// Tasks applies timeout rewrites and line filters. A rule without matches only warns; the files
// themselves must exist.
func (p *Patcher) Tasks(rules []Rule, filters []LineFilter) error {
	for _, rule := range rules {
		path := p.Path(rule.File)
		data, err := p.changes.Read(path)
		if err != nil {
			return err
		}
		text, n, err := Rewrite(string(data), rule)
		if err != nil {
			return err
		}
		if n == 0 {
			log.Warn("Timeout literal not found", "path", path, "pattern", rule.Pattern)
			continue
		}
		log.Info("Updated timeouts", "path", path, "pattern", rule.Pattern, "replacements", n)
		p.changes.Stage(path, []byte(text))
	}

	for _, filter := range filters {
		path := p.Path(filter.File)
		data, err := p.changes.Read(path)
		if err != nil {
			return err
		}
		text, n := RemoveLines(string(data), filter.Contains)
		if n == 0 {
			log.Debug("No lines to remove", "path", path, "contains", filter.Contains)
			continue
		}
		log.Info("Removed lines", "path", path, "count", n)
		p.changes.Stage(path, []byte(text))
	}
	return nil
}
