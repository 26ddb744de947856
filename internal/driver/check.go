package driver

import (
	"fmt"

	"flowlower/internal/diag"
	"flowlower/internal/flow"
	"flowlower/internal/lower"
	"flowlower/internal/project"
	"flowlower/internal/source"
)

func issueCode(kind flow.IssueKind) diag.Code {
	switch kind {
	case flow.IssueUndefinedVar:
		return diag.IRUndefinedVar
	case flow.IssueDuplicateDef:
		return diag.IRDuplicateDef
	case flow.IssueBadOperands:
		return diag.IRBadOperands
	case flow.IssueBadExitTarget:
		return diag.IRBadExitTarget
	case flow.IssueBadExitArity:
		return diag.IRBadExitArity
	default:
		return diag.IRInfo
	}
}

// checkUnit reports every structural defect of the unit graph. It returns
// an error wrapping lower.ErrMalformedIR when there was any.
func checkUnit(r diag.Reporter, u *project.Unit) error {
	issues := flow.CheckGraph(u.Graph)
	for _, is := range issues {
		loc := source.BlockLoc(u.Name, int32(is.Block))
		if is.Op >= 0 {
			loc = source.OpLoc(u.Name, int32(is.Block), is.Op)
		}
		diag.ReportError(r, issueCode(is.Kind), loc, is.Msg).Emit()
	}
	if len(issues) > 0 {
		return fmt.Errorf("%s: %d IR defects: %w", u.Name, len(issues), lower.ErrMalformedIR)
	}
	return nil
}
