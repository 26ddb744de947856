package lower

import (
	"fmt"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
)

// Reason explains an unknown resolution.
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonBlockInput: the variable enters the block as an input; its
	// producer lives in another block and is not followed.
	ReasonBlockInput
	// ReasonProducer: defined in the block by something other than instantiate.
	ReasonProducer
	// ReasonUndefined: no definition and not an input.
	ReasonUndefined
	// ReasonUnregistered: instantiated from a class missing in the registry.
	// Set by Run; ResolveClass does not consult the registry.
	ReasonUnregistered
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "resolved"
	case ReasonBlockInput:
		return "block input"
	case ReasonProducer:
		return "produced by non-instantiate op"
	case ReasonUndefined:
		return "undefined"
	case ReasonUnregistered:
		return "class not registered"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of ResolveClass. Known is false for the
// unknown variant, with Reason saying why.
type Resolution struct {
	Known  bool
	Class  classinfo.ClassID
	Reason Reason
	Def    int    // index of the defining op, -1 if none
	Opcode string // opcode of the defining op
}

func (r Resolution) String() string {
	if r.Known {
		return string(r.Class)
	}
	if r.Reason == ReasonProducer {
		return fmt.Sprintf("unknown (%s %s at op %d)", r.Reason, r.Opcode, r.Def)
	}
	return "unknown (" + r.Reason.String() + ")"
}

// ResolveClass recovers the class of v from its definition among
// b.Ops[:limit]. Only an instantiate yields a class; block inputs and
// other producers are not followed.
func ResolveClass(b *flow.Block, v flow.VarID, limit int) Resolution {
	if b == nil {
		return Resolution{Reason: ReasonUndefined, Def: -1}
	}
	limit = min(max(limit, 0), len(b.Ops))
	for i := limit - 1; i >= 0; i-- {
		op := &b.Ops[i]
		if !op.Defines(v) {
			continue
		}
		if cls, ok := op.Class(); ok {
			return Resolution{Known: true, Class: cls, Def: i, Opcode: op.Opcode()}
		}
		return Resolution{Reason: ReasonProducer, Def: i, Opcode: op.Opcode()}
	}
	if b.IsInput(v) {
		return Resolution{Reason: ReasonBlockInput, Def: -1}
	}
	return Resolution{Reason: ReasonUndefined, Def: -1}
}
