// Package main implements the ciprep command-line interface.
//
// ciprep prepares an aether-onramp tree for a CI run:
//   - detects the host's default interface and IPv4 address
//   - patches the Ansible inventory and the network placeholders of vars/main.yml
//   - lengthens deployment timeouts in the task files
//   - optionally points one SD-Core image at a local build and mirrors all others
//
// Usage: ciprep <tree-root> [image-name local-image]
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lucas-albers-lz4/ciprep/internal/helm"
	"github.com/lucas-albers-lz4/ciprep/pkg/cmdexec"
	"github.com/lucas-albers-lz4/ciprep/pkg/config"
	"github.com/lucas-albers-lz4/ciprep/pkg/exitcodes"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
)

// AppFs defines the filesystem interface to use, allows mocking in tests.
var AppFs = afero.NewOsFs()

// SetFs replaces the current filesystem with the provided one and returns a function to restore it.
// This is primarily used for testing.
func SetFs(newFs afero.Fs) func() {
	oldFs := AppFs
	AppFs = newFs
	return func() { AppFs = oldFs }
}

// newRunner creates the runner for ip and helm commands. Tests replace it.
var newRunner = func() cmdexec.Runner { return cmdexec.ExecRunner{} }

// newPuller creates the chart puller selected by the puller setting. Tests replace it.
var newPuller = func(kind string, runner cmdexec.Runner) (helm.Puller, error) {
	switch kind {
	case config.PullerSDK:
		return helm.NewSDKPuller(nil), nil
	case config.PullerCommand:
		return helm.NewCommandPuller(runner), nil
	default:
		return nil, fmt.Errorf("unknown puller %q", kind)
	}
}

// options holds flag values that do not live in the configuration.
type options struct {
	configFile    string
	debug         bool
	logLevel      string
	iface         string
	address       string
	dryRun        bool
	skipInventory bool
}

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   binaryName + " <tree-root> [image-name local-image]",
		Short: "Prepare an aether-onramp tree for a CI run",
		Long: `ciprep patches an aether-onramp checkout for an ephemeral CI host.

It writes the detected interface and address into the inventory and vars/main.yml,
lengthens the deployment timeouts of the task files and, when an image name and a local
image are given, redirects that image in the SD-Core values file to the local build while
every other image of the chart is pulled through the mirror registry.

No file is written until every step has succeeded.`,
		Args:          cobra.RangeArgs(1, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			setupLogging(opts)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	cmd.PersistentFlags().StringVar(&opts.configFile, flagConfig, "", "config file (default is <tree-root>/.ciprep.yaml, then $HOME/.ciprep.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, flagDebug, false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logLevel, flagLogLevel, "info", "set log level (debug, info, warn, error)")

	flags.String(flagRegistry, "", "registry prefix for images that are not redirected (default "+config.DefaultRegistryPrefix+")")
	flags.String(flagValuesFile, "", "SD-Core values file, relative to the tree root (default from core.values_file)")
	flags.String(flagVarsFile, "", "vars file, relative to the tree root (default "+config.DefaultVarsPath+")")
	flags.String(flagInventoryFile, "", "inventory file, relative to the tree root (default "+config.DefaultInventoryPath+")")
	flags.String(flagSSHKey, "", "ansible_ssh_private_key_file for the inventory (default: first existing ~/.ssh key)")
	flags.String(flagUser, "", "ansible_user for the inventory (default $USER)")
	flags.String(flagPuller, "", "chart puller: sdk or command (default sdk)")
	flags.StringVar(&opts.iface, flagInterface, "", "network interface; skips detection when set with --address")
	flags.StringVar(&opts.address, flagAddress, "", "IPv4 address; skips detection when set with --interface")
	flags.BoolVar(&opts.dryRun, flagDryRun, false, "compute every change and print a summary without writing files")
	flags.BoolVar(&opts.skipInventory, flagSkipInventory, false, "leave the inventory file untouched")

	return cmd
}

// configFlags maps configuration keys to the flags that override them.
func configFlags(flags *pflag.FlagSet) map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		config.KeyRegistryPrefix: flags.Lookup(flagRegistry),
		config.KeyValuesPath:     flags.Lookup(flagValuesFile),
		config.KeyVarsPath:       flags.Lookup(flagVarsFile),
		config.KeyInventoryPath:  flags.Lookup(flagInventoryFile),
		config.KeySSHKey:         flags.Lookup(flagSSHKey),
		config.KeyUser:           flags.Lookup(flagUser),
		config.KeyPuller:         flags.Lookup(flagPuller),
	}
}

// setupLogging applies --log-level, overridden by --debug or CIPREP_DEBUG.
func setupLogging(opts *options) {
	level := log.LevelInfo
	if opts.logLevel != "" {
		parsed, err := log.ParseLevel(opts.logLevel)
		if err != nil {
			log.Warn("Invalid log level, using info", "level", opts.logLevel, "error", err)
		} else {
			level = parsed
		}
	}

	if opts.debug {
		level = log.LevelDebug
	} else if env := os.Getenv(debugEnvVar); env != "" {
		enabled, err := strconv.ParseBool(env)
		switch {
		case err != nil:
			log.Warn("Invalid boolean value for "+debugEnvVar, "value", env)
		case enabled:
			level = log.LevelDebug
		}
	}
	log.SetLevel(level)
	log.Debug("Effective log level", "level", level.String())
}

// Execute runs the root command. Errors that do not carry an exit code are usage errors from
// argument or flag parsing.
func Execute() error {
	return execute(newRootCmd(), os.Args[1:])
}

func execute(cmd *cobra.Command, args []string) error {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return nil
	}
	var exitErr *exitcodes.ExitCodeError
	if errors.As(err, &exitErr) {
		return err
	}
	return exitcodes.New(exitcodes.ExitUsageError, err)
}
