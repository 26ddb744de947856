package flow

import (
	"errors"
	"fmt"
)

// IssueKind classifies IR defects found by CheckBlock.
type IssueKind uint8

const (
	// IssueUndefinedVar: operand not defined earlier in the block and not an input.
	IssueUndefinedVar IssueKind = iota + 1
	// IssueDuplicateDef: a variable is assigned twice or shadows an input.
	IssueDuplicateDef
	// IssueBadOperands: operand count or kinds do not fit the op kind.
	IssueBadOperands
	// IssueBadExitTarget: exit link points at a missing block.
	IssueBadExitTarget
	// IssueBadExitArity: exit link passes a different number of values than the target takes.
	IssueBadExitArity
)

func (k IssueKind) String() string {
	switch k {
	case IssueUndefinedVar:
		return "undefined variable"
	case IssueDuplicateDef:
		return "duplicate definition"
	case IssueBadOperands:
		return "bad operands"
	case IssueBadExitTarget:
		return "bad exit target"
	case IssueBadExitArity:
		return "bad exit arity"
	default:
		return "unknown issue"
	}
}

// Issue is one IR defect. Op is -1 for exit-level issues.
type Issue struct {
	Kind  IssueKind
	Block BlockID
	Op    int
	Var   VarID
	Msg   string
}

func (i Issue) Error() string {
	if i.Op < 0 {
		return fmt.Sprintf("bb%d: exits: %s", i.Block, i.Msg)
	}
	return fmt.Sprintf("bb%d: op %d: %s", i.Block, i.Op, i.Msg)
}

// CheckBlock checks that every variable operand is defined by an earlier op
// or bound as an input, that no variable is defined twice, and that every op
// has the operand shape of its kind. Exit links are checked for definedness
// only; CheckGraph adds target checks.
func CheckBlock(b *Block) []Issue {
	if b == nil {
		return nil
	}
	var issues []Issue
	defined := make(map[VarID]int, len(b.Inputs)+len(b.Ops))
	for _, v := range b.Inputs {
		if _, dup := defined[v]; dup {
			issues = append(issues, Issue{Kind: IssueDuplicateDef, Block: b.ID, Op: -1, Var: v,
				Msg: fmt.Sprintf("input %s bound twice", FormatVar(v))})
		}
		defined[v] = -1
	}

	for i := range b.Ops {
		op := &b.Ops[i]
		if err := op.checkShape(); err != nil {
			issues = append(issues, Issue{Kind: IssueBadOperands, Block: b.ID, Op: i, Var: NoVarID, Msg: err.Error()})
		}
		for _, a := range op.Args {
			v, ok := a.AsVar()
			if !ok {
				continue
			}
			if _, ok := defined[v]; !ok {
				issues = append(issues, Issue{Kind: IssueUndefinedVar, Block: b.ID, Op: i, Var: v,
					Msg: fmt.Sprintf("%s used before definition", FormatVar(v))})
			}
		}
		if op.HasResult {
			if prev, dup := defined[op.Result]; dup {
				where := "as input"
				if prev >= 0 {
					where = fmt.Sprintf("by op %d", prev)
				}
				issues = append(issues, Issue{Kind: IssueDuplicateDef, Block: b.ID, Op: i, Var: op.Result,
					Msg: fmt.Sprintf("%s already defined %s", FormatVar(op.Result), where)})
				continue
			}
			defined[op.Result] = i
		}
	}

	checkExitValue := func(v Value) {
		id, ok := v.AsVar()
		if !ok {
			return
		}
		if _, ok := defined[id]; !ok {
			issues = append(issues, Issue{Kind: IssueUndefinedVar, Block: b.ID, Op: -1, Var: id,
				Msg: fmt.Sprintf("%s used before definition", FormatVar(id))})
		}
	}
	if b.HasSwitch {
		checkExitValue(b.Switch)
		if len(b.Exits) != 2 {
			issues = append(issues, Issue{Kind: IssueBadExitArity, Block: b.ID, Op: -1, Var: NoVarID,
				Msg: fmt.Sprintf("switch needs 2 exits, got %d", len(b.Exits))})
		}
	} else if len(b.Exits) > 1 {
		issues = append(issues, Issue{Kind: IssueBadExitArity, Block: b.ID, Op: -1, Var: NoVarID,
			Msg: fmt.Sprintf("%d exits without a switch", len(b.Exits))})
	}
	for _, l := range b.Exits {
		for _, a := range l.Args {
			checkExitValue(a)
		}
	}
	return issues
}

// CheckGraph runs CheckBlock on every block and checks exit targets and arity.
func CheckGraph(g *Graph) []Issue {
	if g == nil {
		return nil
	}
	var issues []Issue
	for i, b := range g.Blocks {
		if b.ID != BlockID(i) {
			issues = append(issues, Issue{Kind: IssueBadOperands, Block: b.ID, Op: -1, Var: NoVarID,
				Msg: fmt.Sprintf("block at position %d has id %d", i, b.ID)})
		}
		issues = append(issues, CheckBlock(b)...)
		for _, l := range b.Exits {
			target := g.Block(l.Target)
			if target == nil {
				issues = append(issues, Issue{Kind: IssueBadExitTarget, Block: b.ID, Op: -1, Var: NoVarID,
					Msg: fmt.Sprintf("exit target bb%d does not exist", l.Target)})
				continue
			}
			if len(l.Args) != len(target.Inputs) {
				issues = append(issues, Issue{Kind: IssueBadExitArity, Block: b.ID, Op: -1, Var: NoVarID,
					Msg: fmt.Sprintf("exit to bb%d passes %d values, target takes %d", l.Target, len(l.Args), len(target.Inputs))})
			}
		}
	}
	if len(g.Blocks) > 0 && g.Block(g.Entry) == nil {
		issues = append(issues, Issue{Kind: IssueBadExitTarget, Block: g.Entry, Op: -1, Var: NoVarID,
			Msg: fmt.Sprintf("entry bb%d does not exist", g.Entry)})
	}
	return issues
}

// Validate returns CheckGraph's issues joined into one error, or nil.
func Validate(g *Graph) error {
	issues := CheckGraph(g)
	if len(issues) == 0 {
		return nil
	}
	errs := make([]error, len(issues))
	for i, is := range issues {
		errs[i] = fmt.Errorf("graph %s: %w", g.Name, is)
	}
	return errors.Join(errs...)
}
