package interp

import (
	"fmt"
	"maps"
	"slices"

	"flowlower/internal/flow"
)

// Divergence describes the first observable difference between two runs.
type Divergence struct {
	What    string // "log", "var", "object", "path"
	Index   int    // position in the log/objects/path, variable id for "var"
	Orig    string
	Lowered string
}

func (d *Divergence) Error() string {
	return fmt.Sprintf("%s %d differs: original %s, lowered %s", d.What, d.Index, d.Orig, d.Lowered)
}

// Compare checks that lowered behaves like orig: same side-effect log, same
// block path, same final object states and the same value for every variable
// in vars. A nil vars compares every variable orig defines; variables only the
// lowered run has (synthesized lookups) are ignored.
func Compare(orig, lowered Outcome, vars []flow.VarID) error {
	if d := diffStrings("log", orig.Log, lowered.Log); d != nil {
		return d
	}
	if d := diffStrings("path", blockNames(orig.Path), blockNames(lowered.Path)); d != nil {
		return d
	}
	if d := diffStrings("object", orig.Objects, lowered.Objects); d != nil {
		return d
	}
	if vars == nil {
		vars = slices.Sorted(maps.Keys(orig.Vars))
	}
	for _, v := range vars {
		a, okA := orig.Vars[v]
		b, okB := lowered.Vars[v]
		as, bs := "<unset>", "<unset>"
		if okA {
			as = a.String()
		}
		if okB {
			bs = b.String()
		}
		if as != bs {
			return &Divergence{What: "var", Index: int(v), Orig: as, Lowered: bs}
		}
	}
	return nil
}

func diffStrings(what string, a, b []string) *Divergence {
	for i := range max(len(a), len(b)) {
		as, bs := "<end>", "<end>"
		if i < len(a) {
			as = a[i]
		}
		if i < len(b) {
			bs = b[i]
		}
		if as != bs {
			return &Divergence{What: what, Index: i, Orig: as, Lowered: bs}
		}
	}
	return nil
}

func blockNames(path []flow.BlockID) []string {
	out := make([]string, len(path))
	for i, id := range path {
		out[i] = fmt.Sprintf("bb%d", id)
	}
	return out
}
