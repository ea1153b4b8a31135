package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucas-albers-lz4/ciprep/pkg/chart"
	"github.com/lucas-albers-lz4/ciprep/pkg/config"
	"github.com/lucas-albers-lz4/ciprep/pkg/exitcodes"
	"github.com/lucas-albers-lz4/ciprep/pkg/fileutil"
	"github.com/lucas-albers-lz4/ciprep/pkg/imageconfig"
	log "github.com/lucas-albers-lz4/ciprep/pkg/log"
	"github.com/lucas-albers-lz4/ciprep/pkg/netdetect"
	"github.com/lucas-albers-lz4/ciprep/pkg/patch"
)

// runPrepare performs every step against a ChangeSet and commits it at the end.
// The order is: detect, inventory, vars, timeouts, images.
func runPrepare(cmd *cobra.Command, opts *options, args []string) error {
	ctx := cmd.Context()
	root := args[0]
	targetImage, localImage := imagePair(args[1:])

	exists, err := fileutil.DirExists(AppFs, root)
	if err != nil {
		return exitcodes.New(exitcodes.ExitIOError, err)
	}
	if !exists {
		return exitcodes.New(exitcodes.ExitTreeNotFound, fmt.Errorf("directory does not exist: %s", root))
	}

	cfg, err := config.Load(AppFs, config.New(AppFs), config.Options{
		File:     opts.configFile,
		TreeRoot: root,
		Flags:    configFlags(cmd.Flags()),
	})
	if err != nil {
		return exitcodes.New(exitcodes.ExitInputConfigurationError, err)
	}

	runner := newRunner()
	iface, err := resolveInterface(cmd, opts, netdetect.NewDetector(runner))
	if err != nil {
		return err
	}

	changes := patch.NewChangeSet(AppFs)
	patcher := patch.NewPatcher(changes, root)

	if opts.skipInventory {
		log.Info("Skipping inventory update")
	} else {
		home, _ := os.UserHomeDir()
		host := patch.Host{
			Address: iface.Address,
			User:    patch.ResolveUser(cfg.Inventory.User, os.LookupEnv),
			SSHKey:  patch.ResolveSSHKey(AppFs, cfg.Inventory.SSHKey, home),
		}
		if err := patcher.Inventory(cfg.Paths.Inventory, host); err != nil {
			return patchError(err)
		}
	}
	if err := patcher.Vars(cfg.Paths.Vars, cfg.VarsPlaceholders, iface.Name, iface.Address); err != nil {
		return patchError(err)
	}
	if err := patcher.Tasks(cfg.Timeouts, cfg.ReadinessWait); err != nil {
		return patchError(err)
	}

	var result *imageconfig.Result
	if targetImage != "" && localImage != "" {
		puller, err := newPuller(cfg.Puller, runner)
		if err != nil {
			return exitcodes.New(exitcodes.ExitInputConfigurationError, err)
		}
		introspector := chart.NewIntrospector(AppFs)
		introspector.Aliases = cfg.SectionAliases

		configurator := imageconfig.New(AppFs, puller, introspector, changes, imageconfig.Settings{
			RegistryPrefix: cfg.RegistryPrefix,
			FlagKeys:       cfg.FlagKeys,
		})
		result, err = configurator.Run(ctx, imageconfig.Request{
			TreeRoot:    root,
			VarsPath:    cfg.Paths.Vars,
			ValuesPath:  cfg.Paths.Values,
			TargetImage: targetImage,
			LocalImage:  localImage,
		})
		if err != nil {
			return err
		}
	} else if targetImage != "" || localImage != "" {
		log.Warn("Skipping image configuration: image name and local image must both be given",
			"image", targetImage, "local", localImage)
	} else {
		log.Info("Skipping image configuration: no image given")
	}

	if opts.dryRun {
		return printSummary(cmd.OutOrStdout(), changes, result)
	}
	if err := changes.Commit(); err != nil {
		return exitcodes.New(exitcodes.ExitIOError, err)
	}
	log.Info("Tree prepared", "root", root, "files", len(changes.Changes()))
	return nil
}

// imagePair returns the optional image name and local image arguments.
func imagePair(rest []string) (string, string) {
	var target, local string
	if len(rest) > 0 {
		target = strings.TrimSpace(rest[0])
	}
	if len(rest) > 1 {
		local = strings.TrimSpace(rest[1])
	}
	return target, local
}

// resolveInterface uses --interface and --address when both are set, and the routing table
// otherwise.
func resolveInterface(cmd *cobra.Command, opts *options, detector *netdetect.Detector) (netdetect.Interface, error) {
	if opts.iface != "" && opts.address != "" {
		log.Info("Using configured network interface", "interface", opts.iface, "address", opts.address)
		return netdetect.Interface{Name: opts.iface, Address: opts.address}, nil
	}
	if opts.iface != "" || opts.address != "" {
		return netdetect.Interface{}, exitcodes.New(exitcodes.ExitUsageError,
			fmt.Errorf("--%s and --%s must be given together", flagInterface, flagAddress))
	}
	iface, err := detector.Detect(cmd.Context())
	if err != nil {
		return netdetect.Interface{}, exitcodes.New(exitcodes.ExitEnvironmentDetection, err)
	}
	return iface, nil
}

// patchError maps text patching failures to exit codes.
func patchError(err error) error {
	switch {
	case patch.IsNotExist(err), errors.Is(err, patch.ErrPlaceholderAbsent):
		return exitcodes.New(exitcodes.ExitPreconditionFailed, err)
	case errors.Is(err, patch.ErrInvalidRule):
		return exitcodes.New(exitcodes.ExitInputConfigurationError, err)
	default:
		return exitcodes.New(exitcodes.ExitIOError, err)
	}
}

// printSummary lists the staged changes and the image overrides of a dry run.
func printSummary(w io.Writer, changes *patch.ChangeSet, result *imageconfig.Result) error {
	staged := changes.Changes()
	if len(staged) == 0 {
		fmt.Fprintln(w, "No changes.")
	}
	for _, c := range staged {
		action := "update"
		if c.Created {
			action = "create"
		}
		fmt.Fprintf(w, "would %s %s (%d -> %d bytes)\n", action, c.Path, c.Before, c.After)
	}

	if result == nil || result.Overrides.Empty() {
		return nil
	}
	out, err := result.Overrides.ToYAML()
	if err != nil {
		return exitcodes.New(exitcodes.ExitOverrideFailed, err)
	}
	fmt.Fprintf(w, "\nimage overrides for %s (chart %s %s):\n%s", result.ValuesPath, result.Chart.Name, result.Chart.Version, out)
	return nil
}
