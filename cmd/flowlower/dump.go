package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"flowlower/internal/diag"
	"flowlower/internal/diagfmt"
	"flowlower/internal/project"
	"flowlower/internal/source"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <unit.flow.toml|directory>...",
	Short: "Print units in printer syntax",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "dump", "output format (dump|toml)")
}

func runDump(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "dump" && format != "toml" {
		return fmt.Errorf("invalid --format value %q (expected dump|toml)", format)
	}
	maxDiag, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	paths, err := project.CollectUnits(args)
	if err != nil {
		return err
	}

	failed := false
	for _, path := range paths {
		bag := diag.NewBag(maxDiag)
		u, err := project.LoadUnit(path, diag.BagReporter{Bag: bag})
		if err != nil {
			if !errors.Is(err, project.ErrInvalidUnit) {
				diag.ReportError(diag.BagReporter{Bag: bag}, diag.ProjLoadError, source.UnitLoc(path), err.Error()).Emit()
			}
			failed = true
		} else if err := writeUnit(cmd.OutOrStdout(), u, format); err != nil {
			return err
		}
		bag.Sort()
		if err := diagfmt.Pretty(cmd.ErrOrStderr(), bag, diagfmt.PrettyOpts{Color: useColor()}); err != nil {
			return err
		}
	}
	if failed {
		cmd.SilenceErrors = true
		return errDiagnostics
	}
	return nil
}
