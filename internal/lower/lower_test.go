package lower_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"flowlower/internal/classinfo"
	"flowlower/internal/diag"
	"flowlower/internal/flow"
	"flowlower/internal/lower"
	"flowlower/internal/trace"
)

func TestRun_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		blocks    []block
		want      []string // BlockString per block
		removed   []string
		lookups   int
		rewritten int
	}{
		{
			name: "accessor read and write",
			blocks: []block{{ops: []string{
				`v1 = instantiate(A)`,
				`setattr(v1, "x", 5)`,
				`v2 = getattr(v1, "x")`,
			}}},
			want: []string{ops(
				`v1 = instantiate(A)`,
				`v3 = getattr(v1, "set_x")`,
				`invoke(v3, 5)`,
				`v4 = getattr(v1, "get_x")`,
				`v2 = invoke(v4)`,
			)},
			removed:   []string{"A.x"},
			lookups:   2,
			rewritten: 2,
		},
		{
			name: "repeated write shares one lookup",
			blocks: []block{{ops: []string{
				`v1 = instantiate(A)`,
				`setattr(v1, "x", 5)`,
				`setattr(v1, "x", 6)`,
				`v2 = getattr(v1, "x")`,
			}}},
			want: []string{ops(
				`v1 = instantiate(A)`,
				`v3 = getattr(v1, "set_x")`,
				`invoke(v3, 5)`,
				`invoke(v3, 6)`,
				`v4 = getattr(v1, "get_x")`,
				`v2 = invoke(v4)`,
			)},
			removed:   []string{"A.x"},
			lookups:   2,
			rewritten: 3,
		},
		{
			name: "instance from another block",
			blocks: []block{
				{ops: []string{`v1 = instantiate(A)`}, exit: "goto bb1(v1)"},
				{inputs: []flow.VarID{2}, ops: []string{`v3 = getattr(v2, "x")`, `setattr(v2, "x", v3)`}},
			},
			want: []string{
				`v1 = instantiate(A)`,
				ops(`v3 = getattr(v2, "x")`, `setattr(v2, "x", v3)`),
			},
		},
		{
			name: "plain field",
			blocks: []block{{ops: []string{
				`v1 = instantiate(A)`,
				`setattr(v1, "y", 1)`,
				`v2 = getattr(v1, "y")`,
			}}},
			want: []string{ops(
				`v1 = instantiate(A)`,
				`setattr(v1, "y", 1)`,
				`v2 = getattr(v1, "y")`,
			)},
		},
		{
			name: "callable instance invoked twice",
			blocks: []block{{ops: []string{
				`v1 = instantiate(A)`,
				`v2 = invoke(v1, 1)`,
				`invoke(v1, v2, "s")`,
			}}},
			want: []string{ops(
				`v1 = instantiate(A)`,
				`v3 = getattr(v1, "call_impl")`,
				`v2 = invoke(v3, 1)`,
				`invoke(v3, v2, "s")`,
			)},
			lookups:   1,
			rewritten: 2,
		},
		{
			name: "two instances of one class",
			blocks: []block{{ops: []string{
				`v1 = instantiate(A)`,
				`v2 = instantiate(A)`,
				`setattr(v1, "x", 1)`,
				`setattr(v2, "x", 2)`,
				`setattr(v1, "x", 3)`,
			}}},
			want: []string{ops(
				`v1 = instantiate(A)`,
				`v2 = instantiate(A)`,
				`v3 = getattr(v1, "set_x")`,
				`invoke(v3, 1)`,
				`v4 = getattr(v2, "set_x")`,
				`invoke(v4, 2)`,
				`invoke(v3, 3)`,
			)},
			removed:   []string{"A.x"},
			lookups:   2,
			rewritten: 3,
		},
		{
			name: "accessor in one class, field in another",
			blocks: []block{{ops: []string{
				`v1 = instantiate(A)`,
				`v2 = instantiate(B)`,
				`setattr(v2, "x", 1)`,
				`setattr(v1, "x", 2)`,
				`v3 = getattr(v2, "x")`,
			}}},
			want: []string{ops(
				`v1 = instantiate(A)`,
				`v2 = instantiate(B)`,
				`setattr(v2, "x", 1)`,
				`v4 = getattr(v1, "set_x")`,
				`invoke(v4, 2)`,
				`v3 = getattr(v2, "x")`,
			)},
			removed:   []string{"A.x"},
			lookups:   1,
			rewritten: 1,
		},
		{
			name: "each block gets its own lookups",
			blocks: []block{
				{ops: []string{`v1 = instantiate(A)`, `v2 = getattr(v1, "x")`}, exit: "goto bb1()"},
				{ops: []string{`v3 = instantiate(A)`, `v4 = getattr(v3, "x")`, `v5 = invoke(v3)`}},
			},
			want: []string{
				ops(`v1 = instantiate(A)`, `v6 = getattr(v1, "get_x")`, `v2 = invoke(v6)`),
				ops(`v3 = instantiate(A)`, `v7 = getattr(v3, "get_x")`, `v4 = invoke(v7)`,
					`v8 = getattr(v3, "call_impl")`, `v5 = invoke(v8)`),
			},
			removed:   []string{"A.x"},
			lookups:   3,
			rewritten: 3,
		},
		{
			name: "read-only accessor",
			blocks: []block{{ops: []string{
				`v1 = instantiate(R)`,
				`v2 = getattr(v1, "size")`,
				`v3 = add(v2, 1)`,
			}}},
			want: []string{ops(
				`v1 = instantiate(R)`,
				`v4 = getattr(v1, "get_size")`,
				`v2 = invoke(v4)`,
				`v3 = add(v2, 1)`,
			)},
			removed:   []string{"R.size"},
			lookups:   1,
			rewritten: 1,
		},
		{
			name: "bound method callee is left alone",
			blocks: []block{{ops: []string{
				`v1 = instantiate(B)`,
				`v2 = getattr(v1, "describe")`,
				`v3 = invoke(v2)`,
				`invoke(&print, v3)`,
			}}},
			want: []string{ops(
				`v1 = instantiate(B)`,
				`v2 = getattr(v1, "describe")`,
				`v3 = invoke(v2)`,
				`invoke(&print, v3)`,
			)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, "unit", tt.blocks...)
			reg := testRegistry(t)

			res, err := lower.Run(context.Background(), g, reg, lower.Options{})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			for i, want := range tt.want {
				if got := flow.BlockString(g.Blocks[i]); got != want {
					t.Fatalf("bb%d mismatch:\nwant:\n%s\ngot:\n%s", i, want, got)
				}
			}
			var removed []string
			for _, ref := range res.Removed {
				removed = append(removed, ref.String())
				cls, _ := reg.Lookup(ref.Class)
				if _, still := cls.Accessor(ref.Member); still {
					t.Fatalf("%s still declared after lowering", ref)
				}
			}
			if !slices.Equal(removed, tt.removed) {
				t.Fatalf("removed = %v, want %v", removed, tt.removed)
			}
			if res.Lookups != tt.lookups || res.Rewritten != tt.rewritten {
				t.Fatalf("lookups/rewritten = %d/%d, want %d/%d", res.Lookups, res.Rewritten, tt.lookups, tt.rewritten)
			}
			if err := flow.Validate(g); err != nil {
				t.Fatalf("lowered graph invalid: %v", err)
			}
		})
	}
}

func TestRun_UnresolvedIsReported(t *testing.T) {
	g := buildGraph(t, "unit",
		block{ops: []string{`v1 = instantiate(A)`}, exit: "goto bb1(v1)"},
		block{inputs: []flow.VarID{2}, ops: []string{
			`v3 = getattr(v2, "x")`,
			`v4 = instantiate(Ghost)`,
			`invoke(v4)`,
			`v5 = make()`,
			`setattr(v5, "x", 1)`,
		}},
	)
	before := dump(t, g)
	reg := testRegistry(t)
	bag := diag.NewBag(10)

	res, err := lower.Run(context.Background(), g, reg, lower.Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := dump(t, g); got != before {
		t.Fatalf("graph changed:\n%s", got)
	}
	want := []lower.Reason{lower.ReasonBlockInput, lower.ReasonUnregistered, lower.ReasonProducer}
	if len(res.Unresolved) != len(want) {
		t.Fatalf("unresolved = %+v", res.Unresolved)
	}
	for i, u := range res.Unresolved {
		if u.Reason != want[i] {
			t.Fatalf("unresolved[%d] reason %s, want %s", i, u.Reason, want[i])
		}
	}
	if res.Unresolved[2].Opcode != "make" || res.Unresolved[1].Opcode != "Ghost" {
		t.Fatalf("unexpected producers %+v", res.Unresolved)
	}
	if res.Unresolved[0].Loc.String() != "unit:bb1:0" {
		t.Fatalf("unexpected location %s", res.Unresolved[0].Loc)
	}
	if bag.Len() != 3 || bag.HasErrors() || !bag.HasWarnings() {
		t.Fatalf("expected 3 warnings, got %v", bag.Items())
	}
	for _, d := range bag.Items() {
		if d.Code != diag.LowerUnresolvedClass {
			t.Fatalf("unexpected diagnostic %v", d)
		}
	}
	if len(res.Removed) != 0 {
		t.Fatalf("nothing may be removed, got %v", res.Removed)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		blocks []block
		opts   lower.Options
		is     error
		block  flow.BlockID
		op     int
		class  classinfo.ClassID
		text   []string
	}{
		{
			name:   "capability names undeclared function",
			blocks: []block{{ops: []string{`v1 = instantiate(C)`, `invoke(v1)`}}},
			is:     lower.ErrContractViolation,
			op:     1,
			class:  "C",
			text:   []string{"class C", "bb0", `"run"`},
		},
		{
			name:   "instance of non-callable class invoked",
			blocks: []block{{ops: []string{`v1 = instantiate(B)`, `invoke(v1, 1)`}}},
			is:     lower.ErrContractViolation,
			op:     1,
			class:  "B",
			text:   []string{"no invocation capability"},
		},
		{
			name:   "write to read-only accessor",
			blocks: []block{{ops: []string{`v1 = instantiate(R)`, `setattr(v1, "size", 3)`}}},
			is:     lower.ErrContractViolation,
			op:     1,
			class:  "R",
			text:   []string{"accessor has no setter"},
		},
		{
			name:   "getter not declared",
			blocks: []block{{ops: []string{`v1 = instantiate(D)`, `setattr(v1, "z", 1)`, `v2 = getattr(v1, "z")`}}},
			is:     lower.ErrContractViolation,
			op:     2,
			class:  "D",
			text:   []string{`"get_z"`, "not a declared function"},
		},
		{
			name: "violation in later block",
			blocks: []block{
				{ops: []string{`v1 = instantiate(A)`, `setattr(v1, "x", 1)`}, exit: "goto bb1()"},
				{ops: []string{`v2 = instantiate(C)`, `invoke(v2)`}},
			},
			is:    lower.ErrContractViolation,
			block: 1,
			op:    1,
			class: "C",
		},
		{
			name:   "use before definition",
			blocks: []block{{ops: []string{`v2 = getattr(v1, "x")`, `v1 = instantiate(A)`}}},
			is:     lower.ErrMalformedIR,
			op:     0,
			text:   []string{"v1 used before definition"},
		},
		{
			name:   "strict mode",
			blocks: []block{{inputs: []flow.VarID{1}, ops: []string{`v2 = getattr(v1, "x")`}}},
			opts:   lower.Options{Strict: true},
			is:     lower.ErrUnresolvedClass,
			op:     0,
			text:   []string{"block input"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t, "unit", tt.blocks...)
			reg := testRegistry(t)
			before := dump(t, g)
			snap, err := reg.Snapshot()
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			mark := g.VarMark()
			bag := diag.NewBag(10)
			tt.opts.Reporter = diag.BagReporter{Bag: bag}

			res, err := lower.Run(context.Background(), g, reg, tt.opts)
			if err == nil {
				t.Fatalf("expected error, got result %+v", res)
			}
			if !errors.Is(err, tt.is) {
				t.Fatalf("error %v is not %v", err, tt.is)
			}
			var le *lower.Error
			if !errors.As(err, &le) {
				t.Fatalf("expected *lower.Error, got %T", err)
			}
			if le.Block != tt.block || le.Op != tt.op || le.Class != tt.class || le.Unit != "unit" {
				t.Fatalf("unexpected error fields %+v", le)
			}
			for _, s := range tt.text {
				if !strings.Contains(err.Error(), s) {
					t.Fatalf("error %q does not mention %q", err, s)
				}
			}

			if got := dump(t, g); got != before {
				t.Fatalf("failed run changed the graph:\n%s", got)
			}
			after, err := reg.Snapshot()
			if err != nil {
				t.Fatalf("snapshot: %v", err)
			}
			if string(after) != string(snap) {
				t.Fatal("failed run changed the registry")
			}
			if g.VarMark() != mark {
				t.Fatalf("variable counter moved from %d to %d", mark, g.VarMark())
			}
			if !bag.HasErrors() {
				t.Fatal("hard error was not reported")
			}
		})
	}
}

func TestRun_KeepAccessors(t *testing.T) {
	g := buildGraph(t, "unit", block{ops: []string{`v1 = instantiate(A)`, `v2 = getattr(v1, "x")`}})
	reg := testRegistry(t)

	res, err := lower.Run(context.Background(), g, reg, lower.Options{KeepAccessors: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Removed) != 1 || res.Removed[0].String() != "A.x" {
		t.Fatalf("unexpected removed %v", res.Removed)
	}
	cls, _ := reg.Lookup("A")
	if _, ok := cls.Accessor("x"); !ok {
		t.Fatal("KeepAccessors must leave the registry intact")
	}
	if got := flow.BlockString(g.Blocks[0]); !strings.Contains(got, `v3 = getattr(v1, "get_x")`) {
		t.Fatalf("block was not lowered:\n%s", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	g := buildGraph(t, "unit",
		block{ops: []string{
			`v1 = instantiate(A)`,
			`setattr(v1, "x", 5)`,
			`v2 = getattr(v1, "x")`,
			`v3 = invoke(v1, v2)`,
			`setattr(v1, "y", v3)`,
		}, exit: "goto bb1(v1)"},
		block{inputs: []flow.VarID{4}, ops: []string{`v5 = getattr(v4, "y")`}},
	)
	reg := testRegistry(t)
	if _, err := lower.Run(context.Background(), g, reg, lower.Options{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	once := dump(t, g)

	res, err := lower.Run(context.Background(), g, reg, lower.Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := dump(t, g); got != once {
		t.Fatalf("second run changed the graph:\nfirst:\n%s\nsecond:\n%s", once, got)
	}
	if res.Lookups != 0 || res.Rewritten != 0 || len(res.Removed) != 0 {
		t.Fatalf("second run did work: %+v", res)
	}
}

func TestRun_IdempotentStrict(t *testing.T) {
	g := buildGraph(t, "unit", block{ops: []string{
		`v1 = instantiate(A)`,
		`v2 = getattr(v1, "x")`,
		`invoke(v2, 1)`,
		`v3 = invoke(v1)`,
		`v4 = invoke(v3)`,
	}})
	reg := testRegistry(t)
	opts := lower.Options{Strict: true}
	first, err := lower.Run(context.Background(), g, reg, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Rewritten != 2 || len(first.Unresolved) != 0 {
		t.Fatalf("first run: %+v", first)
	}
	once := dump(t, g)

	res, err := lower.Run(context.Background(), g, reg, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := dump(t, g); got != once {
		t.Fatalf("second run changed the graph:\nfirst:\n%s\nsecond:\n%s", once, got)
	}
	if res.Lookups != 0 || res.Rewritten != 0 || len(res.Unresolved) != 0 {
		t.Fatalf("second run did work: %+v", res)
	}
}

func TestRun_RewriteTracePoints(t *testing.T) {
	tests := []struct {
		level trace.Level
		want  int
	}{
		{trace.LevelDetail, 0},
		{trace.LevelDebug, 2},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			g := buildGraph(t, "unit", block{ops: []string{
				`v1 = instantiate(A)`,
				`setattr(v1, "x", 5)`,
				`v2 = getattr(v1, "x")`,
			}})
			ring := trace.NewRingTracer(64, tt.level)
			ctx := trace.WithTracer(context.Background(), ring)
			if _, err := lower.Run(ctx, g, testRegistry(t), lower.Options{}); err != nil {
				t.Fatalf("Run: %v", err)
			}
			got := 0
			for _, ev := range ring.Snapshot() {
				if ev.Kind == trace.KindPoint && ev.Name == "rewrite" {
					got++
					if !strings.Contains(ev.Detail, " => ") || !strings.Contains(ev.Detail, "invoke(") {
						t.Fatalf("unexpected rewrite detail %q", ev.Detail)
					}
				}
			}
			if got != tt.want {
				t.Fatalf("%d rewrite points, want %d", got, tt.want)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	g := buildGraph(t, "unit", block{ops: []string{`v1 = instantiate(A)`, `v2 = getattr(v1, "x")`}})
	before := dump(t, g)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := lower.Run(ctx, g, testRegistry(t), lower.Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if dump(t, g) != before {
		t.Fatal("cancelled run changed the graph")
	}
}
