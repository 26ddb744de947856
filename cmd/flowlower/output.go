package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flowlower/internal/classinfo"
	"flowlower/internal/diag"
	"flowlower/internal/diagfmt"
	"flowlower/internal/driver"
	"flowlower/internal/flow"
	"flowlower/internal/project"
)

// writeClasses lists the classes of reg in definition order.
func writeClasses(w io.Writer, reg *classinfo.Registry) error {
	for _, c := range reg.Classes() {
		header := "class " + string(c.ID)
		if c.Call != "" {
			header += " call=" + c.Call
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		if len(c.Functions) > 0 {
			if _, err := fmt.Fprintf(w, "  functions: %s\n", strings.Join(c.Functions, ", ")); err != nil {
				return err
			}
		}
		for _, name := range c.MemberNames() {
			m := c.Members[name]
			line := fmt.Sprintf("  %s %s", m.Kind, name)
			if m.IsAccessor() {
				if m.Getter != "" {
					line += " get=" + m.Getter
				}
				if m.Setter != "" {
					line += " set=" + m.Setter
				}
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeUnitDump writes the printer form of a unit: graph, then classes.
func writeUnitDump(w io.Writer, u *project.Unit) error {
	if _, err := fmt.Fprintf(w, "== %s ==\n", u.Name); err != nil {
		return err
	}
	if err := flow.DumpGraph(w, u.Graph); err != nil {
		return err
	}
	return writeClasses(w, u.Registry)
}

func outputFileName(u *project.Unit, format string) string {
	base := strings.TrimSuffix(filepath.Base(u.Path), project.UnitExt)
	if format == "toml" {
		return base + ".lowered" + project.UnitExt
	}
	return base + ".lowered.txt"
}

// writeOutputs emits every successfully lowered unit in format, to stdout
// when dir is empty.
func writeOutputs(stdout io.Writer, results []driver.UnitResult, format, dir string) error {
	if format == "none" {
		return nil
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	for i := range results {
		r := &results[i]
		if r.Lower == nil || r.Unit == nil {
			continue
		}
		if dir == "" {
			if err := writeUnit(stdout, r.Unit, format); err != nil {
				return err
			}
			continue
		}
		path := filepath.Join(dir, outputFileName(r.Unit, format))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		werr := writeUnit(f, r.Unit, format)
		cerr := f.Close()
		if werr != nil {
			return werr
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}

func writeUnit(w io.Writer, u *project.Unit, format string) error {
	switch format {
	case "toml":
		if _, err := fmt.Fprintf(w, "# %s\n", u.Path); err != nil {
			return err
		}
		return project.EncodeUnit(w, u.Graph, u.Registry)
	case "dump":
		return writeUnitDump(w, u)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

type diagOptions struct {
	format    string // pretty|short|json
	withNotes bool
	quiet     bool
}

// printDiagnostics writes the diagnostics of all results to w. Operation
// context is shown for units whose graph is still in its loaded form.
func printDiagnostics(w io.Writer, results []driver.UnitResult, opts diagOptions, pristine func(*driver.UnitResult) bool) error {
	bags := make([]*diag.Bag, 0, len(results))
	graphs := make(map[string]*flow.Graph)
	for i := range results {
		r := &results[i]
		if r.Bag == nil {
			continue
		}
		if opts.quiet {
			r.Bag.Filter(func(d diag.Diagnostic) bool {
				return d.Severity.AtLeast(diag.SevWarning) || d.Code == diag.ObsTimings
			})
		}
		r.Bag.Sort()
		bags = append(bags, r.Bag)
		if r.Unit != nil && pristine(r) {
			graphs[r.Unit.Name] = r.Unit.Graph
		}
	}

	switch opts.format {
	case "", "pretty":
		popts := diagfmt.PrettyOpts{Color: useColor(), ShowNotes: opts.withNotes, Context: diagfmt.GraphSource(graphs)}
		for _, b := range bags {
			if err := diagfmt.Pretty(w, b, popts); err != nil {
				return err
			}
		}
		if opts.quiet {
			return nil
		}
		return diagfmt.Summary(w, bags...)
	case "short":
		for _, b := range bags {
			if out := diag.FormatShortDiagnostics(b.Items(), opts.withNotes); out != "" {
				if _, err := fmt.Fprintln(w, out); err != nil {
					return err
				}
			}
		}
		return nil
	case "json":
		return diagfmt.JSON(w, diagfmt.JSONOpts{IncludeNotes: opts.withNotes}, bags...)
	default:
		return fmt.Errorf("unknown diagnostics format %q (expected pretty|short|json)", opts.format)
	}
}

func anyFailed(results []driver.UnitResult) bool {
	for i := range results {
		if results[i].Failed() {
			return true
		}
	}
	return false
}
