package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowlower/internal/driver"
	"flowlower/internal/project"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] [unit.flow.toml|directory]...",
	Short: "Lower accessors and callable instances in flow-graph units",
	Long: `Lower every unit given on the command line (directories are searched for
*.flow.toml). Each unit is rewritten independently; a failing unit is left
unchanged and does not stop the others. Settings come from flowlower.toml
when present, overridden by flags.`,
	RunE: runLower,
}

func init() {
	addLowerFlags(lowerCmd)
}

func addLowerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("strict", false, "treat instances of unresolvable class as errors")
	flags.Bool("keep-accessors", false, "do not remove consumed accessor declarations")
	flags.String("backup", "", "write a msgpack snapshot of each registry to this directory before lowering")
	flags.String("format", "dump", "output format for lowered units (dump|toml|none)")
	flags.String("out", "", "write lowered units to this directory instead of stdout")
	flags.String("diag-format", "pretty", "diagnostics format (pretty|short|json)")
	flags.Bool("with-notes", false, "include diagnostic notes in output")
}

func runLower(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	s, err := resolveLowerSettings(cmd, ".")
	if err != nil {
		return err
	}
	diagFormat, err := cmd.Flags().GetString("diag-format")
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return err
	}
	uiFlag, err := cmd.Root().PersistentFlags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readProgressMode(uiFlag)
	if err != nil {
		return err
	}

	paths, err := project.CollectUnits(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found", project.UnitExt)
	}

	opts := driver.Options{
		Strict:         s.strict,
		KeepAccessors:  s.keepAccessors,
		Jobs:           s.jobs,
		MaxDiagnostics: s.maxDiagnostics,
		Timings:        s.timings,
	}
	if s.backup != "" {
		if opts.Backup, err = driver.OpenBackupStore(s.backup); err != nil {
			return err
		}
	}

	var results []driver.UnitResult
	if useProgressView(mode, s.quiet, len(paths)) {
		results, err = runLowerWithUI(cmd.Context(), "lowering", paths, opts)
	} else {
		results, err = driver.LowerUnits(cmd.Context(), paths, opts)
	}
	if err != nil {
		return err
	}

	if err := writeOutputs(cmd.OutOrStdout(), results, s.format, s.outDir); err != nil {
		return err
	}
	// failed units were not mutated, so their locations still match the graph
	pristine := func(r *driver.UnitResult) bool { return r.Lower == nil }
	if err := printDiagnostics(cmd.ErrOrStderr(), results, diagOptions{format: diagFormat, withNotes: withNotes, quiet: s.quiet}, pristine); err != nil {
		return err
	}
	if !s.quiet {
		printLowerSummary(cmd, results)
	}

	if anyFailed(results) {
		dumpTraceRing(cmd, cmd.ErrOrStderr())
		cmd.SilenceErrors = true
		return errDiagnostics
	}
	return nil
}

func printLowerSummary(cmd *cobra.Command, results []driver.UnitResult) {
	lowered, rewritten, lookups, removed, unresolved := 0, 0, 0, 0, 0
	for i := range results {
		l := results[i].Lower
		if l == nil {
			continue
		}
		lowered++
		rewritten += l.Rewritten
		lookups += l.Lookups
		removed += len(l.Removed)
		unresolved += len(l.Unresolved)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "lowered %d/%d units: %d ops rewritten, %d lookups, %d accessors removed, %d unresolved\n",
		lowered, len(results), rewritten, lookups, removed, unresolved)
}
