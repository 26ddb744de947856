package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"flowlower/internal/classinfo"
	"flowlower/internal/diag"
	"flowlower/internal/flow"
	"flowlower/internal/source"
)

// UnitExt is the suffix of unit files picked up from directories.
const UnitExt = ".flow.toml"

// Unit is one translation unit loaded from disk.
type Unit struct {
	Path     string
	Name     string
	Digest   Digest
	Graph    *flow.Graph
	Registry *classinfo.Registry
}

type unitFile struct {
	Name    string      `toml:"name"`
	Entry   int         `toml:"entry"`
	Classes []classDecl `toml:"class"`
	Blocks  []blockDecl `toml:"block"`
}

type classDecl struct {
	Name      string       `toml:"name"`
	Functions []string     `toml:"functions"`
	Call      string       `toml:"call,omitempty"`
	Members   []memberDecl `toml:"member,omitempty"`
}

type memberDecl struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`
	Getter string `toml:"getter,omitempty"`
	Setter string `toml:"setter,omitempty"`
}

type blockDecl struct {
	Inputs []string `toml:"inputs"`
	Ops    []string `toml:"ops"`
	Switch string   `toml:"switch,omitempty"`
	Exits  []string `toml:"exits,omitempty"`
}

// ErrInvalidUnit is wrapped by LoadUnit when diagnostics with error severity
// were reported.
var ErrInvalidUnit = errors.New("invalid unit")

// LoadUnit reads and decodes a unit file.
func LoadUnit(path string, r diag.Reporter) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit: %w", err)
	}
	u, err := DecodeUnit(path, data, r)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DecodeUnit builds a unit from TOML text. Problems are reported to r with
// locations naming the unit; the returned error wraps ErrInvalidUnit when
// any of them is an error.
//
// Def-before-use and exit checks are left to flow.CheckGraph and the
// lowering pass; DecodeUnit only rejects what it cannot represent.
func DecodeUnit(path string, data []byte, r diag.Reporter) (*Unit, error) {
	if r == nil {
		r = diag.NopReporter{}
	}
	var file unitFile
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	name := strings.TrimSpace(file.Name)
	if !meta.IsDefined("name") || name == "" {
		name = unitNameFromPath(path)
	}

	d := &decoder{unit: name, r: r}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		diag.ReportWarning(r, diag.ProjLoadError, source.UnitLoc(name),
			"unknown keys ignored: "+strings.Join(keys, ", ")).Emit()
	}

	reg := d.registry(file.Classes)
	g := d.graph(file, reg)
	if d.failed {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidUnit)
	}
	return &Unit{
		Path:     path,
		Name:     name,
		Digest:   HashBytes(data),
		Graph:    g,
		Registry: reg,
	}, nil
}

func unitNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, UnitExt)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type decoder struct {
	unit   string
	r      diag.Reporter
	failed bool
}

func (d *decoder) errorf(code diag.Code, loc source.Loc, format string, args ...any) {
	d.failed = true
	diag.ReportError(d.r, code, loc, fmt.Sprintf(format, args...)).Emit()
}

func (d *decoder) warnf(code diag.Code, loc source.Loc, format string, args ...any) {
	diag.ReportWarning(d.r, code, loc, fmt.Sprintf(format, args...)).Emit()
}

// declName trims and normalizes a name the way the op parser does, so
// registry entries match the names used in ops.
func declName(s string) string {
	return flow.NormalizeName(strings.TrimSpace(s))
}

func (d *decoder) registry(decls []classDecl) *classinfo.Registry {
	reg := classinfo.NewRegistry()
	loc := source.UnitLoc(d.unit)
	for _, cd := range decls {
		c := classinfo.NewClass(classinfo.ClassID(declName(cd.Name)))
		if c.ID == "" {
			d.errorf(diag.MetaInfo, loc, "class without name")
			continue
		}
		for _, fn := range cd.Functions {
			c.Functions = append(c.Functions, declName(fn))
		}
		c.Call = declName(cd.Call)
		if c.Call != "" && !c.Declares(c.Call) {
			// lowering turns this into a contract violation when the class is invoked
			d.warnf(diag.MetaUndeclaredFunc, loc, "class %s: call %q is not a declared function", c.ID, c.Call)
		}
		for _, md := range cd.Members {
			m, ok := d.member(c, md)
			if !ok {
				continue
			}
			if _, dup := c.Members[m.Name]; dup {
				d.errorf(diag.MetaDuplicateMember, loc, "class %s: member %q declared twice", c.ID, m.Name)
				continue
			}
			c.Members[m.Name] = m
		}
		if err := reg.Define(c); err != nil {
			d.errorf(diag.MetaDuplicateClass, loc, "%v", err)
		}
	}
	return reg
}

func (d *decoder) member(c *classinfo.Class, md memberDecl) (classinfo.Member, bool) {
	loc := source.UnitLoc(d.unit)
	m := classinfo.Member{Name: declName(md.Name), Getter: declName(md.Getter), Setter: declName(md.Setter)}
	if m.Name == "" {
		d.errorf(diag.MetaInfo, loc, "class %s: member without name", c.ID)
		return m, false
	}
	switch strings.ToLower(strings.TrimSpace(md.Kind)) {
	case "", "field":
		m.Kind = classinfo.MemberField
		if m.Getter != "" || m.Setter != "" {
			d.warnf(diag.MetaBadMemberKind, loc, "class %s: field %q ignores getter/setter", c.ID, m.Name)
			m.Getter, m.Setter = "", ""
		}
	case "accessor", "property":
		m.Kind = classinfo.MemberAccessor
		if m.Getter == "" && m.Setter == "" {
			d.errorf(diag.MetaEmptyAccessorPair, loc, "class %s: accessor %q has neither getter nor setter", c.ID, m.Name)
			return m, false
		}
		for _, fn := range []string{m.Getter, m.Setter} {
			if fn != "" && !c.Declares(fn) {
				d.warnf(diag.MetaUndeclaredFunc, loc, "class %s: accessor %q uses undeclared function %q", c.ID, m.Name, fn)
			}
		}
	default:
		d.errorf(diag.MetaBadMemberKind, loc, "class %s: member %q has unknown kind %q", c.ID, m.Name, md.Kind)
		return m, false
	}
	return m, true
}

func (d *decoder) graph(file unitFile, reg *classinfo.Registry) *flow.Graph {
	g := flow.NewGraph(d.unit)
	g.Entry = flow.BlockID(file.Entry)

	for bi, bd := range file.Blocks {
		bloc := source.BlockLoc(d.unit, int32(bi))
		inputs := make([]flow.VarID, 0, len(bd.Inputs))
		for _, in := range bd.Inputs {
			v, err := flow.ParseVar(in)
			if err != nil {
				d.errorf(diag.IRSyntax, bloc, "input %q: %v", in, err)
				continue
			}
			inputs = append(inputs, v)
		}
		b := g.NewBlock(inputs...)

		for oi, line := range bd.Ops {
			op, err := flow.ParseOp(line)
			if err != nil {
				d.errorf(diag.IRSyntax, source.OpLoc(d.unit, int32(bi), oi), "%v", err)
				continue
			}
			if cls, ok := op.Class(); ok {
				if _, known := reg.Lookup(cls); !known {
					d.warnf(diag.IRUnknownClassRef, source.OpLoc(d.unit, int32(bi), oi), "instantiate of unregistered class %s", cls)
				}
			}
			b.Append(op)
		}

		links := make([]flow.Link, 0, len(bd.Exits))
		for _, text := range bd.Exits {
			l, err := flow.ParseLink(text)
			if err != nil {
				d.errorf(diag.IRSyntax, bloc, "exit %q: %v", text, err)
				continue
			}
			links = append(links, l)
		}
		switch {
		case bd.Switch != "":
			cond, err := flow.ParseValue(bd.Switch)
			if err != nil {
				d.errorf(diag.IRSyntax, bloc, "switch %q: %v", bd.Switch, err)
				continue
			}
			if len(links) != 2 {
				d.errorf(diag.IRBadExitArity, bloc, "switch needs 2 exits, got %d", len(links))
				continue
			}
			b.Branch(cond, links[0], links[1])
		case len(links) == 1:
			b.Goto(links[0].Target, links[0].Args...)
		case len(links) > 1:
			d.errorf(diag.IRBadExitArity, bloc, "%d exits without a switch", len(links))
		}
	}
	g.NoteVars()
	return g
}
