// Package main declares constants used across the ciprep command-line interface.
package main

const (
	// binaryName is the command name shown in usage output.
	binaryName = "ciprep"

	// debugEnvVar forces debug logging when set to a true value.
	debugEnvVar = "CIPREP_DEBUG"
)

// Flag names. Flags that map onto configuration keys are bound through configFlags.
const (
	flagConfig        = "config"
	flagDebug         = "debug"
	flagLogLevel      = "log-level"
	flagRegistry      = "registry-prefix"
	flagValuesFile    = "values-file"
	flagVarsFile      = "vars-file"
	flagInventoryFile = "inventory-file"
	flagSSHKey        = "ssh-key"
	flagUser          = "user"
	flagPuller        = "puller"
	flagInterface     = "interface"
	flagAddress       = "address"
	flagDryRun        = "dry-run"
	flagSkipInventory = "skip-inventory"
)
