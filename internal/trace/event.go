package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event. Smaller values are coarser.
type Scope uint8

const (
	// ScopeDriver covers a whole CLI invocation over many units.
	ScopeDriver Scope = iota + 1
	// ScopeUnit covers loading or lowering one translation unit.
	ScopeUnit
	// ScopeBlock covers one block of a unit.
	ScopeBlock
	// ScopeOp is a single operation: rewrites, unresolved classes.
	ScopeOp
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeUnit:
		return "unit"
	case ScopeBlock:
		return "block"
	case ScopeOp:
		return "op"
	default:
		return "unknown"
	}
}

// Event is a single trace record.
type Event struct {
	Time     time.Time
	Seq      uint64 // assigned by the tracer that stores the event
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64 // 0 for roots
	GID      uint64
	Name     string // "lower", "unit:scenario1", "bb3", "rewrite"
	Detail   string
	Extra    map[string]string
}
