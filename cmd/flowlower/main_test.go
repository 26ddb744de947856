package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"flowlower/internal/diag"
	"flowlower/internal/driver"
	"flowlower/internal/project"
)

const testUnit = `
name = "demo"

[[class]]
name = "A"
functions = ["get_x", "set_x"]

  [[class.member]]
  name = "x"
  kind = "accessor"
  getter = "get_x"
  setter = "set_x"

  [[class.member]]
  name = "y"
  kind = "field"

[[block]]
inputs = []
ops = ['v1 = instantiate(A)', 'v2 = getattr(v1, "x")']
`

func newTestCommand(add func(*cobra.Command), run func(*cobra.Command, []string) error) *cobra.Command {
	root := &cobra.Command{Use: "flowlower"}
	addPersistentFlags(root)
	cmd := &cobra.Command{Use: "sub", RunE: run}
	if add != nil {
		add(cmd)
	}
	root.AddCommand(cmd)
	return cmd
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLowerSettings(t *testing.T) {
	manifest := `
[lower]
strict = true
keep-accessors = true
jobs = 4
backup = "bk"

[output]
format = "toml"
dir = "out"
`
	withManifest := t.TempDir()
	writeFile(t, filepath.Join(withManifest, project.ManifestName), manifest)
	nested := filepath.Join(withManifest, "units", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		dir       string
		flags     map[string]string
		rootFlags map[string]string
		check     func(t *testing.T, s lowerSettings)
		wantErr   string
	}{
		{
			name: "manifest",
			dir:  nested,
			check: func(t *testing.T, s lowerSettings) {
				if !s.strict || !s.keepAccessors || s.jobs != 4 || s.format != "toml" {
					t.Fatalf("settings = %+v", s)
				}
				if s.backup != filepath.Join(withManifest, "bk") || s.outDir != filepath.Join(withManifest, "out") {
					t.Fatalf("paths not resolved against the manifest: %q %q", s.backup, s.outDir)
				}
			},
		},
		{
			name:      "flags override",
			dir:       withManifest,
			flags:     map[string]string{"strict": "false", "format": "NONE", "out": "elsewhere"},
			rootFlags: map[string]string{"jobs": "2", "quiet": "true"},
			check: func(t *testing.T, s lowerSettings) {
				if s.strict || !s.keepAccessors || s.jobs != 2 || s.format != "none" || s.outDir != "elsewhere" || !s.quiet {
					t.Fatalf("settings = %+v", s)
				}
			},
		},
		{
			name:    "bad format",
			dir:     withManifest,
			flags:   map[string]string{"format": "yaml"},
			wantErr: "invalid --format",
		},
		{
			name:      "negative jobs",
			dir:       withManifest,
			rootFlags: map[string]string{"jobs": "-1"},
			wantErr:   "must not be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestCommand(addLowerFlags, nil)
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			for k, v := range tt.rootFlags {
				if err := cmd.Root().PersistentFlags().Set(k, v); err != nil {
					t.Fatal(err)
				}
			}
			s, err := resolveLowerSettings(cmd, tt.dir)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, s)
		})
	}
}

func TestReadProgressMode(t *testing.T) {
	tests := []struct {
		in   string
		want progressMode
		err  bool
	}{
		{"", progressAuto, false},
		{"AUTO", progressAuto, false},
		{" on ", progressOn, false},
		{"off", progressOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readProgressMode(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("readProgressMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestUseProgressView(t *testing.T) {
	tests := []struct {
		mode  progressMode
		quiet bool
		units int
		want  bool
	}{
		{progressOn, false, 1, true},
		{progressOn, true, 5, false},
		{progressOff, false, 5, false},
		// a single unit has no progress worth showing
		{progressAuto, false, 1, false},
	}
	for _, tt := range tests {
		if got := useProgressView(tt.mode, tt.quiet, tt.units); got != tt.want {
			t.Errorf("useProgressView(%s, %v, %d) = %v, want %v", tt.mode, tt.quiet, tt.units, got, tt.want)
		}
	}
}

func loadTestUnit(t *testing.T) *project.Unit {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo"+project.UnitExt)
	writeFile(t, path, testUnit)
	u, err := project.LoadUnit(path, diag.NopReporter{})
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestWriteUnitDump(t *testing.T) {
	u := loadTestUnit(t)
	var buf bytes.Buffer
	if err := writeUnitDump(&buf, u); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"== demo ==\n",
		`v2 = getattr(v1, "x")`,
		"class A\n  functions: get_x, set_x\n  accessor x get=get_x set=set_x\n  field y\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump lacks %q:\n%s", want, out)
		}
	}
}

func TestWriteOutputs(t *testing.T) {
	u := loadTestUnit(t)
	results := []driver.UnitResult{
		{Path: u.Path, Unit: u, Lower: nil},
	}
	dir := filepath.Join(t.TempDir(), "out")
	if err := writeOutputs(nil, results, "toml", dir); err != nil {
		t.Fatal(err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("failed units must not be written, got %d files", len(entries))
	}

	results, err := driver.LowerUnits(t.Context(), []string{u.Path}, driver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := writeOutputs(nil, results, "toml", dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "demo.lowered"+project.UnitExt))
	if err != nil {
		t.Fatal(err)
	}
	lowered, err := project.DecodeUnit("lowered", data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(lowered.Registry.Accessors()) != 0 {
		t.Fatalf("lowered unit still declares accessors: %v", lowered.Registry.Accessors())
	}

	var buf bytes.Buffer
	if err := writeOutputs(&buf, results, "dump", ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "invoke(") {
		t.Fatalf("dump to stdout lacks the lowered invoke:\n%s", buf.String())
	}
}

func TestRestore(t *testing.T) {
	u := loadTestUnit(t)
	store, err := driver.OpenBackupStore(filepath.Join(t.TempDir(), "bk"))
	if err != nil {
		t.Fatal(err)
	}
	backup, err := store.Put(u, u.Registry)
	if err != nil {
		t.Fatal(err)
	}

	cmd := newTestCommand(func(c *cobra.Command) {
		c.Flags().String("out", "", "")
	}, runRestore)
	out := filepath.Join(t.TempDir(), "restored")
	if err := cmd.Flags().Set("out", out); err != nil {
		t.Fatal(err)
	}
	if err := runRestore(cmd, []string{backup}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(out, "demo.classes.toml"))
	if err != nil {
		t.Fatal(err)
	}
	restored, err := project.DecodeUnit("restored", data, nil)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Name != "demo" {
		t.Fatalf("name = %q", restored.Name)
	}
	acc := restored.Registry.Accessors()
	if len(acc) != 1 || acc[0].String() != "A.x" {
		t.Fatalf("accessors = %v", acc)
	}
}

func TestVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := renderVersionJSON(&buf, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"tool": "flowlower"`) || strings.Contains(buf.String(), "git_commit") {
		t.Fatalf("unexpected payload:\n%s", buf.String())
	}
}
