package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/schaermu/fspec/internal/annotate"
	"github.com/schaermu/fspec/internal/cli"
	"github.com/schaermu/fspec/internal/fetch"
)

type options struct {
	cli.GlobalFlags
	check bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "fspec-sum [-c]",
		Short: "Add BLAKE3 digests to a manifest",
		Long: `fspec-sum copies the manifest on standard input to standard output,
appending a blake3= attribute to every regular-file record that lacks one.
Sources are resolved relative to the working directory.

With -c, digests already present are recomputed and verified as well.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSum(cmd, &o)
		},
	}
	o.Register(cmd.PersistentFlags())
	cmd.Flags().BoolVarP(&o.check, "check", "c", false, "verify digests already present in the manifest")
	cli.SetVersion(cmd)
	return cmd
}

func runSum(cmd *cobra.Command, o *options) error {
	_, logger, err := o.Setup(cmd.Flags(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a := annotate.New(fetch.NewLocal(""), o.check, logger)
	if err := a.Run(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		logger.Error("annotate failed", "error", err)
		return err
	}
	return nil
}
