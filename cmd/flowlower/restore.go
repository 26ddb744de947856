package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"flowlower/internal/driver"
	"flowlower/internal/project"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [flags] <backup.msgpack>...",
	Short: "Decode registry backups back into [[class]] tables",
	Long: `Restore reads registry snapshots written by "lower --backup" and prints
the class tables they hold in unit file syntax, ready to be pasted back
into a unit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().String("out", "", "write <unit>.classes.toml files to this directory instead of stdout")
}

func runRestore(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	for _, path := range args {
		reg, err := driver.ReadBackup(path)
		if err != nil {
			return err
		}
		name := driver.BackupUnitName(path)
		if outDir == "" {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path); err != nil {
				return err
			}
			if err := project.EncodeClasses(cmd.OutOrStdout(), name, reg); err != nil {
				return err
			}
			continue
		}
		target := filepath.Join(outDir, name+".classes.toml")
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		werr := project.EncodeClasses(f, name, reg)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return werr
		}
	}
	return nil
}
