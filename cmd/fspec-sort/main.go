package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schaermu/fspec/internal/cli"
	"github.com/schaermu/fspec/internal/manifest"
)

type options struct {
	cli.GlobalFlags
	parents bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "fspec-sort [-p] [manifest...]",
		Short: "Sort manifest records into synchronization order",
		Long: `fspec-sort reads records from the given manifests, or standard input when
none are given, and writes them to standard output sorted so that every
directory precedes its contents.

With -p, a type=dir record with mode 0755 is emitted for every ancestor
directory that is not declared.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(cmd, args, &o)
		},
	}
	o.Register(cmd.PersistentFlags())
	cmd.Flags().BoolVarP(&o.parents, "parents", "p", false, "add records for undeclared parent directories")
	cli.SetVersion(cmd)
	return cmd
}

func runSort(cmd *cobra.Command, args []string, o *options) error {
	_, logger, err := o.Setup(cmd.Flags(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"-"}
	}
	var recs []*manifest.Record
	for _, name := range args {
		in, err := cli.OpenInput(name, cmd.InOrStdin())
		if err != nil {
			logger.Error("sort failed", "error", err)
			return err
		}
		more, err := manifest.ReadAll(in)
		_ = in.Close()
		if err != nil {
			logger.Error("sort failed", "manifest", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		recs = append(recs, more...)
	}

	manifest.Sort(recs)
	if o.parents {
		recs = manifest.SynthesizeParents(recs)
	}
	logger.Debug("manifest sorted", "records", len(recs))

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, rec := range recs {
		if err := manifest.Write(w, rec); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
