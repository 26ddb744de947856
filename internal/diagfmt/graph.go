package diagfmt

import (
	"flowlower/internal/flow"
	"flowlower/internal/source"
)

// GraphSource resolves operation text from graphs keyed by unit name.
// Locations must refer to the graphs as they were when diagnosed.
func GraphSource(graphs map[string]*flow.Graph) OpSource {
	return func(loc source.Loc) (string, bool) {
		g, ok := graphs[loc.Unit]
		if !ok || !loc.HasOp() {
			return "", false
		}
		b := g.Block(flow.BlockID(loc.Block))
		if b == nil || int(loc.Op) >= len(b.Ops) || loc.Op < 0 {
			return "", false
		}
		return flow.FormatOp(&b.Ops[loc.Op]), true
	}
}
