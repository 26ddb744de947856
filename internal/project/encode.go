package project

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
)

// EncodeUnit writes g and reg in the unit file format LoadUnit reads.
func EncodeUnit(w io.Writer, g *flow.Graph, reg *classinfo.Registry) error {
	file := unitFile{
		Name:    g.Name,
		Entry:   int(g.Entry),
		Classes: classDecls(reg),
		Blocks:  make([]blockDecl, 0, len(g.Blocks)),
	}
	for _, b := range g.Blocks {
		bd := blockDecl{
			Inputs: make([]string, len(b.Inputs)),
			Ops:    make([]string, len(b.Ops)),
		}
		for i, v := range b.Inputs {
			bd.Inputs[i] = flow.FormatVar(v)
		}
		for i := range b.Ops {
			bd.Ops[i] = flow.FormatOp(&b.Ops[i])
		}
		if b.HasSwitch {
			bd.Switch = flow.FormatValue(b.Switch)
		}
		for _, l := range b.Exits {
			bd.Exits = append(bd.Exits, flow.FormatLink(l))
		}
		file.Blocks = append(file.Blocks, bd)
	}
	if err := toml.NewEncoder(w).Encode(file); err != nil {
		return fmt.Errorf("encode unit %s: %w", g.Name, err)
	}
	return nil
}

type classesOnly struct {
	Name    string      `toml:"name"`
	Classes []classDecl `toml:"class"`
}

// EncodeClasses writes only the [[class]] tables of reg, under name.
func EncodeClasses(w io.Writer, name string, reg *classinfo.Registry) error {
	if err := toml.NewEncoder(w).Encode(classesOnly{Name: name, Classes: classDecls(reg)}); err != nil {
		return fmt.Errorf("encode classes: %w", err)
	}
	return nil
}

func classDecls(reg *classinfo.Registry) []classDecl {
	classes := reg.Classes()
	out := make([]classDecl, 0, len(classes))
	for _, c := range classes {
		cd := classDecl{
			Name:      string(c.ID),
			Functions: append([]string{}, c.Functions...),
			Call:      c.Call,
		}
		for _, name := range c.MemberNames() {
			m := c.Members[name]
			cd.Members = append(cd.Members, memberDecl{
				Name:   m.Name,
				Kind:   m.Kind.String(),
				Getter: m.Getter,
				Setter: m.Setter,
			})
		}
		out = append(out, cd)
	}
	return out
}
