// Package patch applies the text edits that adapt an automation tree to a CI host: inventory
// fields, network placeholders in the vars file and timeout literals in task files.
package patch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"

	"github.com/lucas-albers-lz4/ciprep/pkg/fileutil"
)

// DefaultUser is the ansible user when $USER is unset.
const DefaultUser = "runner"

// SSHKeyCandidates are checked in order; the first existing key wins.
var SSHKeyCandidates = []string{"~/.ssh/id_rsa", "~/.ssh/id_ed25519", "~/.ssh/id_ecdsa"}

var (
	hostField = regexp.MustCompile(`ansible_host=\S+`)
	userField = regexp.MustCompile(`ansible_user=\S+`)
	keyField  = regexp.MustCompile(`ansible_ssh_private_key_file=\S+`)
)

// Host holds the values written into the inventory.
type Host struct {
	Address string
	User    string
	SSHKey  string
}

// Inventory rewrites the ansible_host, ansible_user and ansible_ssh_private_key_file values on
// every active line. Blank lines, comments and lines without those fields are kept as they are.
func Inventory(text string, host Host) (string, int) {
	lines := strings.Split(text, "\n")
	changed := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		updated := hostField.ReplaceAllLiteralString(line, "ansible_host="+host.Address)
		updated = userField.ReplaceAllLiteralString(updated, "ansible_user="+host.User)
		updated = keyField.ReplaceAllLiteralString(updated, "ansible_ssh_private_key_file="+host.SSHKey)
		if updated != line {
			lines[i] = updated
			changed++
		}
	}
	return strings.Join(lines, "\n"), changed
}

// DefaultInventory is written when the tree ships no inventory: one node acting as master and
// gNBSim host.
func DefaultInventory(host Host) string {
	return fmt.Sprintf(`[all]
node1 ansible_host=%s ansible_user=%s ansible_ssh_private_key_file=%s

[master_nodes]
node1

[worker_nodes]

[gnbsim_nodes]
node1
`, host.Address, host.User, host.SSHKey)
}

// ResolveUser returns configured, else the value of $USER from lookup, else DefaultUser.
func ResolveUser(configured string, lookup func(string) (string, bool)) string {
	if configured != "" {
		return configured
	}
	if user, ok := lookup("USER"); ok && user != "" {
		return user
	}
	return DefaultUser
}

// ResolveSSHKey returns configured, else the first SSHKeyCandidates entry present below home,
// else the first candidate. The returned path keeps the "~" form for ansible to expand.
func ResolveSSHKey(fs afero.Fs, configured, home string) string {
	if configured != "" {
		return configured
	}
	for _, candidate := range SSHKeyCandidates {
		expanded := filepath.Join(home, strings.TrimPrefix(candidate, "~/"))
		if ok, err := fileutil.FileExists(fs, expanded); err == nil && ok {
			return candidate
		}
	}
	return SSHKeyCandidates[0]
}
