package lower

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"flowlower/internal/classinfo"
	"flowlower/internal/diag"
	"flowlower/internal/flow"
	"flowlower/internal/source"
	"flowlower/internal/trace"
)

// Options configures Run.
type Options struct {
	// Unit names the unit in errors and diagnostics; defaults to the graph name.
	Unit string
	// Strict turns unresolved instances into ErrUnresolvedClass.
	Strict bool
	// KeepAccessors leaves the registry untouched; removals are still reported.
	KeepAccessors bool
	// Reporter receives warnings for unresolved instances and the hard error, if any.
	Reporter diag.Reporter
}

// Unresolved records an operation left alone because its instance class is unknown.
type Unresolved struct {
	Loc    source.Loc
	Var    flow.VarID
	Reason Reason
	Opcode string // opcode of the producer for ReasonProducer, class name for ReasonUnregistered
}

// Result summarises one run.
type Result struct {
	// Removed lists consumed accessor declarations, sorted by class then member.
	Removed    []classinfo.MemberRef
	Lookups    int
	Rewritten  int
	Unresolved []Unresolved
}

// Run lowers accessor reads and writes and callable-instance invocations in
// every block of g into explicit method lookups and invokes, then drops the
// consumed accessor declarations from reg.
//
// Blocks are planned first without touching g. Only when every block planned
// cleanly are the rewrites applied; on error g and reg are unchanged.
func Run(ctx context.Context, g *flow.Graph, reg *classinfo.Registry, opts Options) (*Result, error) {
	if g == nil || reg == nil {
		return nil, fmt.Errorf("lower: nil graph or registry")
	}
	if opts.Unit == "" {
		opts.Unit = g.Name
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeUnit, "lower:"+opts.Unit, trace.ParentSpan(ctx))

	g.NoteVars()
	mark := g.VarMark()
	l := &lowerer{g: g, reg: reg, opts: opts, tracer: tracer, consumed: make(map[classinfo.MemberRef]struct{})}

	plans := make([]blockPlan, 0, len(g.Blocks))
	for _, b := range g.Blocks {
		if err := ctx.Err(); err != nil {
			g.ResetVars(mark)
			span.End("cancelled")
			return nil, err
		}
		p, err := l.planBlock(b, span.ID())
		if err != nil {
			g.ResetVars(mark)
			var le *Error
			if errors.As(err, &le) {
				le.report(opts.Reporter)
			}
			span.End(err.Error())
			return nil, err
		}
		plans = append(plans, p)
	}

	for i := range plans {
		plans[i].apply()
	}

	removed := slices.SortedFunc(maps.Keys(l.consumed), classinfo.CompareMemberRefs)
	for _, ref := range removed {
		if opts.KeepAccessors {
			continue
		}
		if reg.RemoveAccessor(ref) && opts.Reporter != nil {
			diag.ReportInfo(opts.Reporter, diag.LowerRemovedAccessor, source.UnitLoc(opts.Unit),
				"removed accessor "+ref.String()).Emit()
		}
	}

	span.WithExtra("lookups", strconv.Itoa(l.res.Lookups)).
		WithExtra("rewritten", strconv.Itoa(l.res.Rewritten)).
		WithExtra("removed", strconv.Itoa(len(removed))).
		End("")

	l.res.Removed = removed
	return &l.res, nil
}

type lowerer struct {
	g        *flow.Graph
	reg      *classinfo.Registry
	opts     Options
	tracer   trace.Tracer
	consumed map[classinfo.MemberRef]struct{}
	res      Result

	blockSpan uint64
}

// methodKey identifies a bound method within one block. The instance is part
// of the key: two instances of one class must not share a bound method.
type methodKey struct {
	class    classinfo.ClassID
	fn       string
	instance flow.VarID
}

type insertion struct {
	anchor int
	op     flow.Op
}

type rewrite struct {
	idx int
	op  flow.Op
}

// blockPlan is everything Run will do to one block.
type blockPlan struct {
	block    *flow.Block
	rewrites []rewrite
	inserts  []insertion // discovery order
}

// apply writes rewrites in place, then inserts lookups last-first so every
// pending anchor index still points at its original op.
func (p *blockPlan) apply() {
	for _, rw := range p.rewrites {
		p.block.Ops[rw.idx] = rw.op
	}
	for i := len(p.inserts) - 1; i >= 0; i-- {
		ins := p.inserts[i]
		p.block.InsertBefore(ins.anchor, ins.op)
	}
}

func (l *lowerer) planBlock(b *flow.Block, parent uint64) (blockPlan, error) {
	span := trace.Begin(l.tracer, trace.ScopeBlock, fmt.Sprintf("bb%d", b.ID), parent)
	l.blockSpan = span.ID()
	plan := blockPlan{block: b}

	if issues := flow.CheckBlock(b); len(issues) > 0 {
		is := issues[0]
		span.End("malformed")
		return plan, &Error{
			Kind:   KindMalformedIR,
			Unit:   l.opts.Unit,
			Block:  b.ID,
			Op:     is.Op,
			Detail: is.Msg,
		}
	}

	cache := make(map[methodKey]flow.VarID)
	lookups, rewritten := 0, 0

	// method returns the variable bound to fn on instance, planning a lookup
	// before anchor on first use.
	method := func(class classinfo.ClassID, fn string, instance flow.VarID, anchor int) flow.VarID {
		key := methodKey{class: class, fn: fn, instance: instance}
		if m, ok := cache[key]; ok {
			return m
		}
		m := l.g.NewVar()
		cache[key] = m
		plan.inserts = append(plan.inserts, insertion{
			anchor: anchor,
			op:     flow.GetAttr(m, flow.Var(instance), fn),
		})
		lookups++
		return m
	}

	for i := range b.Ops {
		op := &b.Ops[i]
		var (
			newOp flow.Op
			ok    bool
			err   error
		)
		switch op.Kind {
		case flow.OpInvoke:
			newOp, ok, err = l.planInvoke(b, i, method)
		case flow.OpGetAttr, flow.OpSetAttr:
			newOp, ok, err = l.planAttr(b, i, method)
		case flow.OpInstantiate, flow.OpOther:
		}
		if err != nil {
			span.End("failed")
			return plan, err
		}
		if !ok {
			continue
		}
		if l.tracer.Level().ShouldEmit(trace.ScopeOp) {
			trace.Point(l.tracer, trace.ScopeOp, "rewrite", span.ID(), flow.FormatOp(op)+" => "+flow.FormatOp(&newOp), nil)
		}
		plan.rewrites = append(plan.rewrites, rewrite{idx: i, op: newOp})
		rewritten++
	}

	l.res.Lookups += lookups
	l.res.Rewritten += rewritten
	span.WithExtra("lookups", strconv.Itoa(lookups)).WithExtra("rewritten", strconv.Itoa(rewritten)).End("")
	return plan, nil
}

type methodFunc func(class classinfo.ClassID, fn string, instance flow.VarID, anchor int) flow.VarID

// planInvoke handles invoke on a callable instance.
func (l *lowerer) planInvoke(b *flow.Block, idx int, method methodFunc) (flow.Op, bool, error) {
	op := &b.Ops[idx]
	callee, _ := op.Callee()
	inst, isVar := callee.AsVar()
	if !isVar {
		return flow.Op{}, false, nil
	}
	// a callee computed in this block (bound method, call result) is not an instance
	if def := b.DefIndex(inst); def >= 0 && def < idx && b.Ops[def].Kind != flow.OpInstantiate {
		return flow.Op{}, false, nil
	}
	cls, ok, err := l.classOf(b, idx, inst)
	if !ok || err != nil {
		return flow.Op{}, false, err
	}
	fn, callable := cls.Callable()
	if !callable {
		return flow.Op{}, false, l.violation(b, idx, cls.ID, "", "instance invoked but class declares no invocation capability")
	}
	if !cls.Declares(fn) {
		return flow.Op{}, false, l.violation(b, idx, cls.ID, fn, "invocation capability names an undeclared function")
	}

	m := method(cls.ID, fn, inst, idx)
	out := op.Clone()
	out.Args[0] = flow.Var(m)
	return out, true, nil
}

// planAttr handles getattr/setattr on an accessor member.
func (l *lowerer) planAttr(b *flow.Block, idx int, method methodFunc) (flow.Op, bool, error) {
	op := &b.Ops[idx]
	instVal, name, ok := op.Target()
	if !ok {
		return flow.Op{}, false, nil
	}
	inst, isVar := instVal.AsVar()
	if !isVar {
		return flow.Op{}, false, nil
	}
	cls, ok, err := l.classOf(b, idx, inst)
	if !ok || err != nil {
		return flow.Op{}, false, err
	}
	member, ok := cls.Accessor(name)
	if !ok {
		return flow.Op{}, false, nil
	}

	read := op.Kind == flow.OpGetAttr
	fn, role := member.Setter, "setter"
	if read {
		fn, role = member.Getter, "getter"
	}
	if fn == "" {
		return flow.Op{}, false, l.violation(b, idx, cls.ID, name, "accessor has no "+role)
	}
	if !cls.Declares(fn) {
		return flow.Op{}, false, l.violation(b, idx, cls.ID, fn, fmt.Sprintf("%s of accessor %q is not a declared function", role, name))
	}

	m := method(cls.ID, fn, inst, idx)
	l.consumed[classinfo.MemberRef{Class: cls.ID, Member: name}] = struct{}{}
	if read {
		return flow.Invoke(op.Result, flow.Var(m)), true, nil
	}
	return flow.Invoke(flow.NoVarID, flow.Var(m), op.Args[2]), true, nil
}

// classOf resolves inst at op idx and looks the class up. ok is false when
// the instance stays unresolved; in strict mode that is an error.
func (l *lowerer) classOf(b *flow.Block, idx int, inst flow.VarID) (*classinfo.Class, bool, error) {
	res := ResolveClass(b, inst, idx)
	if res.Known {
		if cls, found := l.reg.Lookup(res.Class); found {
			return cls, true, nil
		}
		res.Reason = ReasonUnregistered
		res.Opcode = string(res.Class)
	}
	return nil, false, l.unresolved(b, idx, inst, res)
}

func (l *lowerer) unresolved(b *flow.Block, idx int, inst flow.VarID, res Resolution) error {
	loc := source.OpLoc(l.opts.Unit, int32(b.ID), idx)
	detail := fmt.Sprintf("class of %s: %s", flow.FormatVar(inst), res.Reason)
	if res.Opcode != "" {
		detail += " (" + res.Opcode + ")"
	}
	if l.opts.Strict {
		return &Error{
			Kind:   KindUnresolvedClass,
			Unit:   l.opts.Unit,
			Block:  b.ID,
			Op:     idx,
			Class:  res.Class,
			Detail: detail,
		}
	}
	l.res.Unresolved = append(l.res.Unresolved, Unresolved{Loc: loc, Var: inst, Reason: res.Reason, Opcode: res.Opcode})
	if l.tracer.Level().ShouldEmit(trace.ScopeOp) {
		trace.Point(l.tracer, trace.ScopeOp, "unresolved", l.blockSpan, loc.String(), map[string]string{"var": flow.FormatVar(inst)})
	}
	if l.opts.Reporter != nil {
		diag.ReportWarning(l.opts.Reporter, diag.LowerUnresolvedClass, loc, detail+"; operation left unchanged").Emit()
	}
	return nil
}

func (l *lowerer) violation(b *flow.Block, idx int, class classinfo.ClassID, name, detail string) error {
	return &Error{
		Kind:   KindContractViolation,
		Unit:   l.opts.Unit,
		Block:  b.ID,
		Op:     idx,
		Class:  class,
		Name:   name,
		Detail: detail,
	}
}
