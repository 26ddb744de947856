package flow

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DumpGraph writes a human-readable representation of g. The op syntax is
// the one ParseOp accepts.
func DumpGraph(w io.Writer, g *Graph) error {
	if w == nil || g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "graph %s (entry bb%d)\n", g.Name, g.Entry); err != nil {
		return err
	}
	for _, b := range g.Blocks {
		if err := DumpBlock(w, b); err != nil {
			return err
		}
	}
	return nil
}

// DumpBlock writes one block: header, ops, exits.
func DumpBlock(w io.Writer, b *Block) error {
	if w == nil || b == nil {
		return nil
	}
	inputs := make([]string, len(b.Inputs))
	for i, v := range b.Inputs {
		inputs[i] = FormatVar(v)
	}
	if _, err := fmt.Fprintf(w, "bb%d(%s):\n", b.ID, strings.Join(inputs, ", ")); err != nil {
		return err
	}
	for i := range b.Ops {
		if _, err := fmt.Fprintf(w, "    %s\n", FormatOp(&b.Ops[i])); err != nil {
			return err
		}
	}
	if exits := formatExits(b); exits != "" {
		if _, err := fmt.Fprintf(w, "    %s\n", exits); err != nil {
			return err
		}
	}
	return nil
}

// BlockString renders b's ops one per line, without header or exits.
func BlockString(b *Block) string {
	var sb strings.Builder
	for i := range b.Ops {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(FormatOp(&b.Ops[i]))
	}
	return sb.String()
}

func formatExits(b *Block) string {
	if len(b.Exits) == 0 {
		return ""
	}
	links := make([]string, len(b.Exits))
	for i, l := range b.Exits {
		links[i] = FormatLink(l)
	}
	if b.HasSwitch {
		return fmt.Sprintf("switch %s -> %s", FormatValue(b.Switch), strings.Join(links, ", "))
	}
	return "goto " + strings.Join(links, ", ")
}

// FormatLink renders bbN(args).
func FormatLink(l Link) string {
	return fmt.Sprintf("bb%d(%s)", l.Target, formatValues(l.Args))
}

// FormatOp renders "[vN = ]opcode(args)".
func FormatOp(op *Op) string {
	if op == nil {
		return "<op?>"
	}
	call := fmt.Sprintf("%s(%s)", op.Opcode(), formatValues(op.Args))
	if op.HasResult {
		return FormatVar(op.Result) + " = " + call
	}
	return call
}

func FormatVar(v VarID) string {
	return "v" + strconv.FormatInt(int64(v), 10)
}

// FormatValue renders an operand in ParseValue syntax.
func FormatValue(v Value) string {
	if v.Kind == ValueVar {
		return FormatVar(v.Var)
	}
	c := v.Const
	switch c.Kind {
	case ConstNone:
		return "none"
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		s := strconv.FormatFloat(c.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	case ConstClass:
		return string(c.Class)
	case ConstFunc:
		return "&" + c.Str
	default:
		return "<const?>"
	}
}

func formatValues(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = FormatValue(v)
	}
	return strings.Join(parts, ", ")
}
