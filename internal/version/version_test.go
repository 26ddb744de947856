package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestString(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.3.0-dev", "", "", "flowlower 0.3.0-dev"},
		{"1.2.3", "abc123", "", "flowlower 1.2.3 (commit abc123)"},
		{"1.2.3-rc.1", "abc123", "2026-01-15", "flowlower 1.2.3-rc.1 (commit abc123, built 2026-01-15)"},
		{"nightly", "", "", "flowlower nightly"},
	}
	for _, tt := range tests {
		Version, GitCommit, BuildDate = tt.version, tt.commit, tt.date
		if got := String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
