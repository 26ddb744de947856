package diagfmt

import "flowlower/internal/source"

// OpSource returns the text of the operation at loc, if known.
type OpSource func(loc source.Loc) (string, bool)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	// Context prints the offending operation under each diagnostic when set.
	Context OpSource
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Max          int // trims the output, not the bags
	IncludeNotes bool
}
