package patch

// Task files of the tree that carry CI-sensitive timeouts.
const (
	RKE2InstallTasks = "deps/k8s/roles/rke2/tasks/install.yml"
	CoreInstallTasks = "deps/5gc/roles/core/tasks/install.yml"
)

// DefaultPlaceholders are the interface and address shipped in the upstream vars file.
var DefaultPlaceholders = Placeholders{Interface: "ens18", Address: "10.76.28.113"}

// DefaultRules lengthen the cluster and core deployment timeouts for slow CI runners.
func DefaultRules() []Rule {
	return []Rule{
		{File: RKE2InstallTasks, Pattern: `(\btimeout:\s*)300s\b`, Replacement: "${1}600s"},
		{File: CoreInstallTasks, Pattern: `--timeout\s+10m\b`, Replacement: "--timeout 25m"},
		{File: CoreInstallTasks, Pattern: `\b2m30s\b`, Replacement: "10m"},
	}
}

// DefaultLineFilters drop the kube-system deployment wait, which fails on a fresh cluster.
func DefaultLineFilters() []LineFilter {
	return []LineFilter{
		{File: RKE2InstallTasks, Contains: []string{"kubectl", "wait deployment", "kube-system"}},
	}
}
