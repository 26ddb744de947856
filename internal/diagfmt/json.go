package diagfmt

import (
	"encoding/json"
	"io"

	"flowlower/internal/diag"
	"flowlower/internal/source"
)

// LocationJSON is a diagnostic location. Block and Op are omitted when the
// location covers a whole unit or block.
type LocationJSON struct {
	Unit  string `json:"unit"`
	Block *int32 `json:"block,omitempty"`
	Op    *int32 `json:"op,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(loc source.Loc) LocationJSON {
	out := LocationJSON{Unit: loc.Unit}
	if loc.HasBlock() {
		block := loc.Block
		out.Block = &block
	}
	if loc.HasOp() {
		op := loc.Op
		out.Op = &op
	}
	return out
}

// BuildDiagnosticsOutput collects the items of bags in order, up to opts.Max.
func BuildDiagnosticsOutput(opts JSONOpts, bags ...*diag.Bag) DiagnosticsOutput {
	diagnostics := make([]DiagnosticJSON, 0)
	for _, bag := range bags {
		if bag == nil {
			continue
		}
		for _, d := range bag.Items() {
			if opts.Max > 0 && len(diagnostics) >= opts.Max {
				break
			}
			dj := DiagnosticJSON{
				Severity: d.Severity.String(),
				Code:     d.Code.ID(),
				Message:  d.Message,
				Location: makeLocation(d.Primary),
			}
			includeNotes := opts.IncludeNotes || d.Code == diag.ObsTimings
			if includeNotes && len(d.Notes) > 0 {
				dj.Notes = make([]NoteJSON, len(d.Notes))
				for j, n := range d.Notes {
					dj.Notes[j] = NoteJSON{Message: n.Msg, Location: makeLocation(n.Loc)}
				}
			}
			diagnostics = append(diagnostics, dj)
		}
	}
	return DiagnosticsOutput{Diagnostics: diagnostics, Count: len(diagnostics)}
}

// JSON writes the diagnostics of bags as one indented JSON document.
func JSON(w io.Writer, opts JSONOpts, bags ...*diag.Bag) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(opts, bags...))
}
