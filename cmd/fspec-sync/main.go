package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/schaermu/fspec/internal/cli"
	"github.com/schaermu/fspec/internal/fetch"
	"github.com/schaermu/fspec/internal/sync"
)

type options struct {
	cli.GlobalFlags
	dryRun bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "fspec-sync [-d] rootdir [manifest]",
		Short: "Converge a directory tree to a manifest",
		Long: `fspec-sync makes the tree below rootdir match the manifest read from the
given file or from standard input.

Entries missing from the manifest are deleted, regular files are replaced
atomically after their BLAKE3 digest has been verified, and every change is
reported on standard output. Sources are resolved relative to the manifest
file's directory, or the working directory when reading standard input.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, &o)
		},
	}
	o.Register(cmd.PersistentFlags())
	cmd.Flags().BoolVarP(&o.dryRun, "dry-run", "d", false, "report what would change without touching the tree")
	cli.SetVersion(cmd)
	return cmd
}

func runSync(cmd *cobra.Command, args []string, o *options) error {
	ctx, cancel := cli.SignalContext()
	defer cancel()

	cfg, logger, err := o.Setup(cmd.Flags(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	opts := sync.OptionsFromConfig(cfg)
	if o.dryRun {
		opts.DryRun = true
	}

	manifestPath := ""
	if len(args) == 2 {
		manifestPath = args[1]
	}
	in, err := cli.OpenInput(manifestPath, cmd.InOrStdin())
	if err != nil {
		logger.Error("sync failed", "error", err)
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	// Created entries get exactly the declared permissions.
	old := unix.Umask(0)
	defer unix.Umask(old)

	engine := sync.NewEngine(args[0], fetch.ForManifest(manifestPath), cmd.OutOrStdout(), logger, opts)
	sum, err := engine.Run(ctx, in)
	if err != nil {
		logger.Error("sync failed", "error", err)
		return fmt.Errorf("sync %s: %w", args[0], err)
	}

	logger.Debug("sync summary", "changes", sum.Changes())
	return nil
}
