package lower_test

import (
	"strings"
	"testing"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
)

// block is a test block: inputs, op lines and an optional exit line.
type block struct {
	inputs []flow.VarID
	ops    []string
	exit   string // "goto bb1(v1)" or "switch v2 bb1() bb2()"
}

func buildGraph(t *testing.T, name string, blocks ...block) *flow.Graph {
	t.Helper()
	g := flow.NewGraph(name)
	for _, bb := range blocks {
		b := g.NewBlock(bb.inputs...)
		for _, line := range bb.ops {
			op, err := flow.ParseOp(line)
			if err != nil {
				t.Fatalf("parse %q: %v", line, err)
			}
			b.Append(op)
		}
	}
	for i, bb := range blocks {
		if bb.exit == "" {
			continue
		}
		b := g.Blocks[i]
		fields := strings.Fields(bb.exit)
		switch fields[0] {
		case "goto":
			l, err := flow.ParseLink(strings.Join(fields[1:], " "))
			if err != nil {
				t.Fatalf("parse exit %q: %v", bb.exit, err)
			}
			b.Goto(l.Target, l.Args...)
		case "switch":
			cond, err := flow.ParseValue(fields[1])
			if err != nil {
				t.Fatalf("parse switch %q: %v", bb.exit, err)
			}
			f, err := flow.ParseLink(fields[2])
			if err != nil {
				t.Fatalf("parse exit %q: %v", bb.exit, err)
			}
			tr, err := flow.ParseLink(fields[3])
			if err != nil {
				t.Fatalf("parse exit %q: %v", bb.exit, err)
			}
			b.Branch(cond, f, tr)
		default:
			t.Fatalf("bad exit %q", bb.exit)
		}
	}
	g.NoteVars()
	return g
}

func ops(lines ...string) string {
	return strings.Join(lines, "\n")
}

func dump(t *testing.T, g *flow.Graph) string {
	t.Helper()
	var sb strings.Builder
	if err := flow.DumpGraph(&sb, g); err != nil {
		t.Fatalf("dump: %v", err)
	}
	return sb.String()
}

func accessor(name, getter, setter string) classinfo.Member {
	return classinfo.Member{Name: name, Kind: classinfo.MemberAccessor, Getter: getter, Setter: setter}
}

func field(name string) classinfo.Member {
	return classinfo.Member{Name: name, Kind: classinfo.MemberField}
}

func class(id classinfo.ClassID, call string, functions []string, members ...classinfo.Member) *classinfo.Class {
	c := classinfo.NewClass(id)
	c.Functions = functions
	c.Call = call
	for _, m := range members {
		c.Members[m.Name] = m
	}
	return c
}

// testRegistry:
//
//	A: accessor x (get_x/set_x), field y, callable via call_impl
//	B: field x, not callable
//	R: read-only accessor size (get_size)
//	C: claims callable via run but does not declare it
//	D: accessor z whose getter is not declared
func testRegistry(t *testing.T) *classinfo.Registry {
	t.Helper()
	reg := classinfo.NewRegistry()
	classes := []*classinfo.Class{
		class("A", "call_impl", []string{"get_x", "set_x", "call_impl"}, accessor("x", "get_x", "set_x"), field("y")),
		class("B", "", []string{"describe"}, field("x")),
		class("R", "", []string{"get_size"}, accessor("size", "get_size", "")),
		class("C", "run", []string{"start"}),
		class("D", "", []string{"set_z"}, accessor("z", "get_z", "set_z")),
	}
	for _, c := range classes {
		if err := reg.Define(c); err != nil {
			t.Fatalf("define %s: %v", c.ID, err)
		}
	}
	return reg
}
