package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"flowlower/internal/driver"
	"flowlower/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [unit.flow.toml|directory]...",
	Short: "Validate units and report what lowering would do, without writing anything",
	Long: `Check loads every unit, validates its flow graph (definitions before use,
single assignment, operand shapes, exit targets and arity) and runs the
lowering pass on a copy, reporting unresolved instances and class metadata
that contradicts lowering.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("strict", false, "treat instances of unresolvable class as errors")
	checkCmd.Flags().String("diag-format", "pretty", "diagnostics format (pretty|short|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	paths, err := project.CollectUnits(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files found", project.UnitExt)
	}

	results, err := driver.LowerUnits(cmd.Context(), paths, driver.Options{
		Strict:         s.strict,
		KeepAccessors:  true,
		Jobs:           s.jobs,
		MaxDiagnostics: s.maxDiagnostics,
		Timings:        s.timings,
		DryRun:         true,
	})
	if err != nil {
		return err
	}
	// dry runs never touch the loaded graphs
	pristine := func(*driver.UnitResult) bool { return true }
	if err := printDiagnostics(cmd.ErrOrStderr(), results, diagOptions{format: diagFormat, withNotes: withNotes, quiet: s.quiet}, pristine); err != nil {
		return err
	}
	if !s.quiet {
		ok := 0
		for i := range results {
			if !results[i].Failed() {
				ok++
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "checked %d units: %d ok\n", len(results), ok)
	}
	if anyFailed(results) {
		dumpTraceRing(cmd, cmd.ErrOrStderr())
		cmd.SilenceErrors = true
		return errDiagnostics
	}
	return nil
}
