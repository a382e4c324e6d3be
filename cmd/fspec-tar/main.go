package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/schaermu/fspec/internal/archive"
	"github.com/schaermu/fspec/internal/cli"
	"github.com/schaermu/fspec/internal/fetch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var g cli.GlobalFlags
	cmd := &cobra.Command{
		Use:   "fspec-tar",
		Short: "Write a manifest as a ustar archive",
		Long: `fspec-tar reads a manifest on standard input and writes a ustar archive
with one entry per record to standard output. Ownership comes from the uid=
and gid= attributes; regular-file content is read from the record's source,
relative to the working directory.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := g.Setup(cmd.Flags(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			w := archive.New(fetch.NewLocal(""), logger)
			if err := w.Run(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				logger.Error("archive failed", "error", err)
				return err
			}
			return nil
		},
	}
	g.Register(cmd.PersistentFlags())
	cli.SetVersion(cmd)
	return cmd
}
