package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"flowlower/internal/project"
)

// lowerSettings is the effective configuration of lower and check: the
// manifest, if any, overridden by flags given on the command line.
type lowerSettings struct {
	strict         bool
	keepAccessors  bool
	jobs           int
	backup         string
	format         string
	outDir         string
	maxDiagnostics int
	timings        bool
	quiet          bool
	manifest       *project.Manifest
}

func resolveLowerSettings(cmd *cobra.Command, startDir string) (lowerSettings, error) {
	s := lowerSettings{format: "dump"}

	m, ok, err := project.LoadManifest(startDir)
	if err != nil {
		return s, err
	}
	if ok {
		s.manifest = m
		s.strict = m.Config.Lower.Strict
		s.keepAccessors = m.Config.Lower.KeepAccessors
		s.jobs = m.Config.Lower.Jobs
		s.backup = m.Config.Lower.Backup
		if m.Set["output.format"] {
			s.format = m.Config.Output.Format
		}
		s.outDir = m.Config.Output.Dir
	}

	flags := cmd.Flags()
	boolFlag := func(name string, dst *bool) error {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	stringFlag := func(name string, dst *string) error {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			return nil
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	for _, err := range []error{
		boolFlag("strict", &s.strict),
		boolFlag("keep-accessors", &s.keepAccessors),
		stringFlag("backup", &s.backup),
		stringFlag("format", &s.format),
		stringFlag("out", &s.outDir),
	} {
		if err != nil {
			return s, err
		}
	}

	root := cmd.Root().PersistentFlags()
	if root.Changed("jobs") || !ok || !s.manifest.Set["lower.jobs"] {
		if s.jobs, err = root.GetInt("jobs"); err != nil {
			return s, err
		}
	}
	if s.jobs < 0 {
		return s, fmt.Errorf("--jobs must not be negative")
	}
	if s.maxDiagnostics, err = root.GetInt("max-diagnostics"); err != nil {
		return s, err
	}
	if s.timings, err = root.GetBool("timings"); err != nil {
		return s, err
	}
	if s.quiet, err = root.GetBool("quiet"); err != nil {
		return s, err
	}

	s.format = strings.ToLower(strings.TrimSpace(s.format))
	if !slices.Contains(project.OutputFormats, s.format) {
		return s, fmt.Errorf("invalid --format value %q (expected %s)", s.format, strings.Join(project.OutputFormats, "|"))
	}
	return s, nil
}
