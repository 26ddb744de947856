package lower

import (
	"errors"
	"fmt"
	"strings"

	"flowlower/internal/classinfo"
	"flowlower/internal/diag"
	"flowlower/internal/flow"
	"flowlower/internal/source"
)

var (
	// ErrUnresolvedClass is only returned in strict mode; otherwise an
	// unresolved instance is reported and the operation is left alone.
	ErrUnresolvedClass = errors.New("unresolved class")
	// ErrContractViolation: class metadata routes an operation to a function
	// the class does not declare.
	ErrContractViolation = errors.New("contract violation")
	// ErrMalformedIR: a block breaks the single-definition rules.
	ErrMalformedIR = errors.New("malformed IR")
)

// ErrorKind classifies a lowering failure.
type ErrorKind uint8

const (
	KindUnresolvedClass ErrorKind = iota + 1
	KindContractViolation
	KindMalformedIR
)

func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnresolvedClass:
		return ErrUnresolvedClass
	case KindContractViolation:
		return ErrContractViolation
	case KindMalformedIR:
		return ErrMalformedIR
	default:
		return errors.New("lowering error")
	}
}

// Code maps the kind to its diagnostic code.
func (k ErrorKind) Code() diag.Code {
	switch k {
	case KindUnresolvedClass:
		return diag.LowerUnresolvedClass
	case KindContractViolation:
		return diag.LowerContractViolation
	case KindMalformedIR:
		return diag.LowerMalformedIR
	default:
		return diag.UnknownCode
	}
}

// Error is a hard lowering failure. Op is -1 for block-level failures.
type Error struct {
	Kind   ErrorKind
	Unit   string
	Block  flow.BlockID
	Op     int
	Class  classinfo.ClassID
	Name   string // member or function name involved
	Detail string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	sb.WriteString(": ")
	sb.WriteString(e.Loc().String())
	if e.Class != "" {
		fmt.Fprintf(&sb, ": class %s", e.Class)
	}
	if e.Name != "" {
		fmt.Fprintf(&sb, ": %q", e.Name)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Loc is the error position as a diagnostic location.
func (e *Error) Loc() source.Loc {
	if e.Op < 0 {
		return source.BlockLoc(e.Unit, int32(e.Block))
	}
	return source.OpLoc(e.Unit, int32(e.Block), e.Op)
}

func (e *Error) report(r diag.Reporter) {
	if r == nil {
		return
	}
	msg := e.Detail
	if e.Class != "" {
		msg = fmt.Sprintf("class %s: %s", e.Class, msg)
	}
	diag.ReportError(r, e.Kind.Code(), e.Loc(), msg).Emit()
}
