package interp

import (
	"fmt"
	"strings"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
)

// InitName is the function instantiate runs when an Impl provides it.
const InitName = "__init__"

// Method implements a class function. self is the receiver.
type Method func(m *Machine, self *Object, args []Value) (Value, error)

// Func implements a free function or an opaque opcode.
type Func func(m *Machine, args []Value) (Value, error)

// Impl is the concrete behaviour of one class.
type Impl struct {
	Methods map[string]Method
}

// Env is everything a run needs besides the IR.
type Env struct {
	Registry *classinfo.Registry
	Classes  map[classinfo.ClassID]Impl
	Funcs    map[string]Func // targets of invoke(&name, ...)
	Ops      map[string]Func // opaque opcodes
	// MaxSteps bounds the number of executed blocks in RunGraph; 0 means 10000.
	MaxSteps int
}

// Machine executes blocks against an Env and records side effects.
type Machine struct {
	env     Env
	vars    map[flow.VarID]Value
	objects []*Object
	log     []string
	path    []flow.BlockID
}

func New(env Env) *Machine {
	if env.MaxSteps <= 0 {
		env.MaxSteps = 10000
	}
	return &Machine{env: env, vars: make(map[flow.VarID]Value)}
}

// Logf appends a side effect. Class implementations call it from their methods.
func (m *Machine) Logf(format string, args ...any) {
	m.log = append(m.log, fmt.Sprintf(format, args...))
}

// Outcome is the observable result of a run.
type Outcome struct {
	Log     []string
	Vars    map[flow.VarID]Value
	Objects []string // final object states, creation order
	Path    []flow.BlockID
}

func (m *Machine) outcome() Outcome {
	out := Outcome{
		Log:     append([]string(nil), m.log...),
		Vars:    make(map[flow.VarID]Value, len(m.vars)),
		Objects: make([]string, len(m.objects)),
		Path:    append([]flow.BlockID(nil), m.path...),
	}
	for k, v := range m.vars {
		out.Vars[k] = v
	}
	for i, o := range m.objects {
		out.Objects[i] = o.State()
	}
	return out
}

// RunBlock binds inputs and executes b's operations. Exits are not followed.
func (m *Machine) RunBlock(b *flow.Block, inputs []Value) (Outcome, error) {
	if err := m.bind(b, inputs); err != nil {
		return m.outcome(), err
	}
	m.path = append(m.path, b.ID)
	err := m.execOps(b)
	return m.outcome(), err
}

// RunGraph starts at the entry block and follows exit links until a block
// without exits is reached.
func (m *Machine) RunGraph(g *flow.Graph, inputs []Value) (Outcome, error) {
	b := g.Block(g.Entry)
	if b == nil {
		return m.outcome(), &Error{Code: PanicBadExit, Block: g.Entry, Op: -1, Msg: "entry block does not exist"}
	}
	args := inputs
	for steps := 0; ; steps++ {
		if steps >= m.env.MaxSteps {
			return m.outcome(), &Error{Code: PanicStepLimit, Block: b.ID, Op: -1,
				Msg: fmt.Sprintf("more than %d blocks executed", m.env.MaxSteps)}
		}
		if err := m.bind(b, args); err != nil {
			return m.outcome(), err
		}
		m.path = append(m.path, b.ID)
		if err := m.execOps(b); err != nil {
			return m.outcome(), err
		}
		link, done, err := m.exit(b)
		if err != nil {
			return m.outcome(), err
		}
		if done {
			return m.outcome(), nil
		}
		next := g.Block(link.Target)
		if next == nil {
			return m.outcome(), &Error{Code: PanicBadExit, Block: b.ID, Op: -1,
				Msg: fmt.Sprintf("exit to missing block bb%d", link.Target)}
		}
		args = make([]Value, len(link.Args))
		for i, a := range link.Args {
			if args[i], err = m.operand(b.ID, -1, a); err != nil {
				return m.outcome(), err
			}
		}
		b = next
	}
}

func (m *Machine) bind(b *flow.Block, inputs []Value) error {
	if len(inputs) != len(b.Inputs) {
		return &Error{Code: PanicBadExit, Block: b.ID, Op: -1,
			Msg: fmt.Sprintf("block takes %d inputs, got %d", len(b.Inputs), len(inputs))}
	}
	for i, v := range b.Inputs {
		m.vars[v] = inputs[i]
	}
	return nil
}

func (m *Machine) exit(b *flow.Block) (flow.Link, bool, error) {
	switch {
	case len(b.Exits) == 0:
		return flow.Link{}, true, nil
	case b.HasSwitch:
		if len(b.Exits) != 2 {
			return flow.Link{}, false, &Error{Code: PanicBadExit, Block: b.ID, Op: -1, Msg: "switch needs 2 exits"}
		}
		cond, err := m.operand(b.ID, -1, b.Switch)
		if err != nil {
			return flow.Link{}, false, err
		}
		if cond.Truthy() {
			return b.Exits[1], false, nil
		}
		return b.Exits[0], false, nil
	default:
		return b.Exits[0], false, nil
	}
}

func (m *Machine) execOps(b *flow.Block) error {
	for i := range b.Ops {
		op := &b.Ops[i]
		res, err := m.execOp(b.ID, i, op)
		if err != nil {
			return err
		}
		if op.HasResult {
			m.vars[op.Result] = res
		}
	}
	return nil
}

func (m *Machine) operand(block flow.BlockID, idx int, v flow.Value) (Value, error) {
	if id, ok := v.AsVar(); ok {
		val, found := m.vars[id]
		if !found {
			return Value{}, &Error{Code: PanicUndefinedVar, Block: block, Op: idx,
				Msg: flow.FormatVar(id) + " has no value"}
		}
		return val, nil
	}
	return FromConst(v.Const), nil
}

func (m *Machine) operands(block flow.BlockID, idx int, vals []flow.Value) ([]Value, error) {
	out := make([]Value, len(vals))
	for i, v := range vals {
		var err error
		if out[i], err = m.operand(block, idx, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatArgs(args []Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
