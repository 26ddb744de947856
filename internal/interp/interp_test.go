package interp_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
	"flowlower/internal/interp"
)

func mustBlock(t *testing.T, g *flow.Graph, inputs []flow.VarID, lines ...string) *flow.Block {
	t.Helper()
	b := g.NewBlock(inputs...)
	for _, line := range lines {
		op, err := flow.ParseOp(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		b.Append(op)
	}
	return b
}

func counterEnv(t *testing.T) interp.Env {
	t.Helper()
	reg := classinfo.NewRegistry()
	c := classinfo.NewClass("Counter")
	c.Functions = []string{"get_n", "set_n", "bump"}
	c.Call = "bump"
	c.Members["n"] = classinfo.Member{Name: "n", Kind: classinfo.MemberAccessor, Getter: "get_n", Setter: "set_n"}
	if err := reg.Define(c); err != nil {
		t.Fatalf("define: %v", err)
	}
	return interp.Env{
		Registry: reg,
		Classes: map[classinfo.ClassID]interp.Impl{
			"Counter": {Methods: map[string]interp.Method{
				interp.InitName: func(m *interp.Machine, self *interp.Object, args []interp.Value) (interp.Value, error) {
					start := interp.IntValue(0)
					if len(args) > 0 {
						start = args[0]
					}
					self.Fields["count"] = start
					return interp.NoneValue(), nil
				},
				"get_n": func(m *interp.Machine, self *interp.Object, args []interp.Value) (interp.Value, error) {
					return self.Fields["count"], nil
				},
				"set_n": func(m *interp.Machine, self *interp.Object, args []interp.Value) (interp.Value, error) {
					if args[0].Int < 0 {
						return interp.Value{}, errors.New("negative count")
					}
					self.Fields["count"] = args[0]
					return interp.NoneValue(), nil
				},
				"bump": func(m *interp.Machine, self *interp.Object, args []interp.Value) (interp.Value, error) {
					n := self.Fields["count"].Int + 1
					self.Fields["count"] = interp.IntValue(n)
					return interp.IntValue(n), nil
				},
			}},
		},
		Ops: map[string]interp.Func{
			"lt": func(m *interp.Machine, args []interp.Value) (interp.Value, error) {
				return interp.BoolValue(args[0].Int < args[1].Int), nil
			},
		},
	}
}

func TestRunBlock_Semantics(t *testing.T) {
	g := flow.NewGraph("counter")
	b := mustBlock(t, g, nil,
		`v1 = instantiate(Counter, 4)`,
		`setattr(v1, "n", 10)`,
		`v2 = invoke(v1)`,
		`v3 = getattr(v1, "bump")`,
		`v4 = invoke(v3)`,
		`setattr(v1, "label", "c")`,
		`v5 = getattr(v1, "label")`,
		`v6 = getattr(v1, "n")`,
	)

	out, err := interp.New(counterEnv(t)).RunBlock(b, nil)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	wantLog := []string{
		"new Counter#1",
		"call Counter#1.__init__(4)",
		"call Counter#1.set_n(10)",
		"call Counter#1.bump()",
		"call Counter#1.bump()",
		`store Counter#1.label = "c"`,
		"call Counter#1.get_n()",
	}
	if !slices.Equal(out.Log, wantLog) {
		t.Fatalf("log mismatch:\nwant: %q\ngot:  %q", wantLog, out.Log)
	}
	wantVars := map[flow.VarID]string{1: "Counter#1", 2: "11", 3: "Counter#1.bump", 4: "12", 5: `"c"`, 6: "12"}
	for v, want := range wantVars {
		if got := out.Vars[v].String(); got != want {
			t.Fatalf("%s = %s, want %s", flow.FormatVar(v), got, want)
		}
	}
	if len(out.Objects) != 1 || out.Objects[0] != `Counter#1{count=12, label="c"}` {
		t.Fatalf("unexpected objects %v", out.Objects)
	}
}

func TestRunGraph_FollowsExits(t *testing.T) {
	g := flow.NewGraph("loop")
	b0 := mustBlock(t, g, nil, `v1 = instantiate(Counter)`)
	b1 := mustBlock(t, g, []flow.VarID{2},
		`v3 = invoke(v2)`,
		`v4 = lt(v3, 3)`,
	)
	b2 := mustBlock(t, g, []flow.VarID{5}, `v6 = getattr(v5, "n")`)
	b0.Goto(b1.ID, flow.Var(1))
	b1.Branch(flow.Var(4), flow.Link{Target: b2.ID, Args: []flow.Value{flow.Var(2)}}, flow.Link{Target: b1.ID, Args: []flow.Value{flow.Var(2)}})

	out, err := interp.New(counterEnv(t)).RunGraph(g, nil)
	if err != nil {
		t.Fatalf("RunGraph: %v", err)
	}
	if got := out.Vars[6].String(); got != "3" {
		t.Fatalf("v6 = %s, want 3", got)
	}
	want := []flow.BlockID{0, 1, 1, 1, 2}
	if !slices.Equal(out.Path, want) {
		t.Fatalf("path = %v, want %v", out.Path, want)
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		code  interp.PanicCode
		msg   string
	}{
		{name: "missing field", lines: []string{`v1 = instantiate(Counter)`, `v2 = getattr(v1, "nope")`}, code: interp.PanicMissingField, msg: `no field "nope"`},
		{name: "unknown opcode", lines: []string{`v1 = frobnicate(1)`}, code: interp.PanicUnknownOpcode, msg: "frobnicate"},
		{name: "not an object", lines: []string{`v1 = getattr(5, "n")`}, code: interp.PanicTypeMismatch, msg: "on int"},
		{name: "invoke constant", lines: []string{`invoke("s")`}, code: interp.PanicNotCallable, msg: "invoke of string"},
		{name: "missing free function", lines: []string{`invoke(&nowhere)`}, code: interp.PanicMissingImpl, msg: "nowhere"},
		{name: "undefined variable", lines: []string{`v2 = lt(v1, 1)`}, code: interp.PanicUndefinedVar, msg: "v1 has no value"},
		{name: "implementation error", lines: []string{`v1 = instantiate(Counter)`, `setattr(v1, "n", -1)`}, code: interp.PanicUserFailure, msg: "negative count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := flow.NewGraph("fail")
			b := mustBlock(t, g, nil, tt.lines...)
			_, err := interp.New(counterEnv(t)).RunBlock(b, nil)
			var ie *interp.Error
			if !errors.As(err, &ie) {
				t.Fatalf("expected *interp.Error, got %v", err)
			}
			if ie.Code != tt.code || !strings.Contains(ie.Error(), tt.msg) {
				t.Fatalf("unexpected error %v (code %d)", ie, ie.Code)
			}
		})
	}
}

func TestRunGraph_StepLimit(t *testing.T) {
	g := flow.NewGraph("spin")
	b := mustBlock(t, g, nil)
	b.Goto(b.ID)
	env := counterEnv(t)
	env.MaxSteps = 5

	_, err := interp.New(env).RunGraph(g, nil)
	var ie *interp.Error
	if !errors.As(err, &ie) || ie.Code != interp.PanicStepLimit {
		t.Fatalf("expected step limit, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	base := interp.Outcome{
		Log:  []string{"new A#1", "call A#1.f()"},
		Vars: map[flow.VarID]interp.Value{1: interp.IntValue(1)},
	}
	same := interp.Outcome{
		Log:  []string{"new A#1", "call A#1.f()"},
		Vars: map[flow.VarID]interp.Value{1: interp.IntValue(1), 9: interp.StringValue("extra")},
	}
	if err := interp.Compare(base, same, nil); err != nil {
		t.Fatalf("unexpected divergence: %v", err)
	}

	shorter := interp.Outcome{Log: []string{"new A#1"}, Vars: same.Vars}
	err := interp.Compare(base, shorter, nil)
	var d *interp.Divergence
	if !errors.As(err, &d) || d.What != "log" || d.Index != 1 || d.Lowered != "<end>" {
		t.Fatalf("unexpected divergence %v", err)
	}

	changed := interp.Outcome{Log: base.Log, Vars: map[flow.VarID]interp.Value{1: interp.FloatValue(1)}}
	if err := interp.Compare(base, changed, []flow.VarID{1}); err == nil {
		t.Fatal("int and float must differ")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    interp.Value
		want bool
	}{
		{interp.NoneValue(), false},
		{interp.IntValue(0), false},
		{interp.IntValue(-1), true},
		{interp.FloatValue(0), false},
		{interp.StringValue(""), false},
		{interp.StringValue("x"), true},
		{interp.BoolValue(true), true},
		{interp.ObjectValue(&interp.Object{Class: "A"}), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%s.Truthy() = %v, want %v", tt.v, got, tt.want)
		}
	}
}
