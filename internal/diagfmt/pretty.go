package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"flowlower/internal/diag"
	"flowlower/internal/source"
)

type palette struct {
	err, warn, info, code, loc, note, context *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warn:    color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan),
		code:    color.New(color.Faint),
		loc:     color.New(color.Bold),
		note:    color.New(color.FgBlue),
		context: color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.loc, p.note, p.context} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes diagnostics in a human-readable form, in bag order
// (call bag.Sort() first for a stable listing):
//
//	<unit:bbN:M>: <SEV> <CODE>: <message>
//	    | <operation text>
//	  note: <loc>: <message>
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.loc.Sprint(d.Primary.String()),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()),
			d.Message,
		); err != nil {
			return err
		}
		if err := writeContext(w, p, opts.Context, d.Primary); err != nil {
			return err
		}
		includeNotes := opts.ShowNotes || d.Code == diag.ObsTimings
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"), n.Loc.String(), n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeContext(w io.Writer, p palette, src OpSource, loc source.Loc) error {
	if src == nil || !loc.HasOp() {
		return nil
	}
	text, ok := src(loc)
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, "    %s %s\n", p.context.Sprint("|"), text)
	return err
}

// Summary writes "N error(s), M warning(s)" for the given bags, or nothing
// when they hold neither.
func Summary(w io.Writer, bags ...*diag.Bag) error {
	errs, warns := 0, 0
	for _, b := range bags {
		if b == nil {
			continue
		}
		for _, d := range b.Items() {
			switch d.Severity {
			case diag.SevError:
				errs++
			case diag.SevWarning:
				warns++
			}
		}
	}
	if errs == 0 && warns == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "%d %s, %d %s\n", errs, plural(errs, "error"), warns, plural(warns, "warning"))
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
