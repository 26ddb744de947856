package interp

import (
	"fmt"

	"flowlower/internal/flow"
)

// PanicCode classifies runtime failures. Values are stable.
type PanicCode int

const (
	PanicUndefinedVar  PanicCode = 1001
	PanicTypeMismatch  PanicCode = 1002
	PanicMissingField  PanicCode = 1003
	PanicMissingImpl   PanicCode = 1004
	PanicNotCallable   PanicCode = 1005
	PanicUnknownOpcode PanicCode = 1006
	PanicBadExit       PanicCode = 1007
	PanicStepLimit     PanicCode = 1008
	PanicUserFailure   PanicCode = 1009
)

// Error is a runtime failure at an operation. Op is -1 at exits.
type Error struct {
	Code  PanicCode
	Block flow.BlockID
	Op    int
	Msg   string
	Err   error // failure returned by an implementation, if any
}

func (e *Error) Error() string {
	where := fmt.Sprintf("bb%d:%d", e.Block, e.Op)
	if e.Op < 0 {
		where = fmt.Sprintf("bb%d:exit", e.Block)
	}
	return fmt.Sprintf("INT%d at %s: %s", e.Code, where, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }
