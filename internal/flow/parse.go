package flow

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"flowlower/internal/classinfo"
)

// SyntaxError reports malformed op, value or link text.
type SyntaxError struct {
	Text string
	Pos  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%q at %d: %s", e.Text, e.Pos, e.Msg)
}

// ParseOp parses one operation in FormatOp syntax:
//
//	v2 = getattr(v1, "x")
//	setattr(v1, "x", 5)
//	v1 = instantiate(A)
//	v4 = add(v2, 1)
//
// Identifiers and the member name of getattr/setattr are NFC-normalized.
// Other string constants are kept as written.
func ParseOp(text string) (Op, error) {
	p := &parser{src: text}
	op := Op{Result: NoVarID}

	p.skipSpace()
	start := p.pos
	head := p.ident()
	p.skipSpace()
	if p.peek() == '=' {
		v, ok := parseVarName(head)
		if !ok {
			return Op{}, p.errAt(start, "assignment target must be a variable")
		}
		p.pos++
		p.skipSpace()
		op.HasResult = true
		op.Result = v
		start = p.pos
		head = p.ident()
	}
	if head == "" {
		return Op{}, p.errAt(start, "expected opcode")
	}

	switch head {
	case "instantiate":
		op.Kind = OpInstantiate
	case "invoke":
		op.Kind = OpInvoke
	case "getattr":
		op.Kind = OpGetAttr
	case "setattr":
		op.Kind = OpSetAttr
	default:
		op.Kind = OpOther
		op.Name = head
	}

	args, err := p.argList()
	if err != nil {
		return Op{}, err
	}
	op.Args = args
	if err := p.end(); err != nil {
		return Op{}, err
	}
	if err := op.checkShape(); err != nil {
		return Op{}, &SyntaxError{Text: text, Pos: 0, Msg: err.Error()}
	}
	if op.Kind == OpGetAttr || op.Kind == OpSetAttr {
		op.Args[1].Const.Str = NormalizeName(op.Args[1].Const.Str)
	}
	return op, nil
}

// NormalizeName returns the NFC form of a class, member or function name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// ParseValue parses a single operand.
func ParseValue(text string) (Value, error) {
	p := &parser{src: text}
	v, err := p.value()
	if err != nil {
		return Value{}, err
	}
	if err := p.end(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// ParseVar parses a variable name such as v3.
func ParseVar(text string) (VarID, error) {
	v, ok := parseVarName(strings.TrimSpace(text))
	if !ok {
		return NoVarID, &SyntaxError{Text: text, Msg: "expected variable"}
	}
	return v, nil
}

// ParseLink parses an exit link such as bb1(v2, 5).
func ParseLink(text string) (Link, error) {
	p := &parser{src: text}
	p.skipSpace()
	start := p.pos
	name := p.ident()
	if !strings.HasPrefix(name, "bb") {
		return Link{}, p.errAt(start, "expected block name bbN")
	}
	n, err := strconv.ParseInt(name[2:], 10, 32)
	if err != nil || n < 0 {
		return Link{}, p.errAt(start, "bad block number")
	}
	args, err := p.argList()
	if err != nil {
		return Link{}, err
	}
	if err := p.end(); err != nil {
		return Link{}, err
	}
	return Link{Target: BlockID(n), Args: args}, nil
}

func parseVarName(s string) (VarID, bool) {
	if len(s) < 2 || s[0] != 'v' {
		return NoVarID, false
	}
	n, err := strconv.ParseInt(s[1:], 10, 32)
	if err != nil || n < 0 {
		return NoVarID, false
	}
	return VarID(n), true
}

type parser struct {
	src string
	pos int
}

func (p *parser) errAt(pos int, msg string) error {
	return &SyntaxError{Text: p.src, Pos: pos, Msg: msg}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) end() error {
	p.skipSpace()
	if p.pos != len(p.src) {
		return p.errAt(p.pos, "unexpected trailing text")
	}
	return nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func (p *parser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isIdentRune(r) {
			break
		}
		p.pos += size
	}
	return NormalizeName(p.src[start:p.pos])
}

func (p *parser) argList() ([]Value, error) {
	p.skipSpace()
	if p.peek() != '(' {
		return nil, p.errAt(p.pos, "expected '('")
	}
	p.pos++
	var args []Value
	p.skipSpace()
	if p.peek() == ')' {
		p.pos++
		return args, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return args, nil
		default:
			return nil, p.errAt(p.pos, "expected ',' or ')'")
		}
	}
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	start := p.pos
	switch c := p.peek(); {
	case c == 0:
		return Value{}, p.errAt(p.pos, "expected value")
	case c == '"' || c == '`':
		quoted, err := strconv.QuotedPrefix(p.src[p.pos:])
		if err != nil {
			return Value{}, p.errAt(start, "unterminated string")
		}
		s, err := strconv.Unquote(quoted)
		if err != nil {
			return Value{}, p.errAt(start, "bad string literal")
		}
		p.pos += len(quoted)
		return Str(s), nil
	case c == '&':
		p.pos++
		name := p.ident()
		if name == "" {
			return Value{}, p.errAt(start, "expected function name after '&'")
		}
		return FuncRef(name), nil
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.number()
	}

	name := p.ident()
	switch name {
	case "":
		return Value{}, p.errAt(start, "expected value")
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "none":
		return None(), nil
	case "NaN":
		return p.floatText(start, name)
	}
	if v, ok := parseVarName(name); ok {
		return Var(v), nil
	}
	return ClassRef(classinfo.ClassID(name)), nil
}

func (p *parser) number() (Value, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		isNum := (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' ||
			c == 'I' || c == 'n' || c == 'f' ||
			((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'))
		if !isNum {
			break
		}
		p.pos++
	}
	text := p.src[start:p.pos]
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(n), nil
	}
	return p.floatText(start, text)
}

func (p *parser) floatText(start int, text string) (Value, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, p.errAt(start, fmt.Sprintf("bad number %q", text))
	}
	return Float(f), nil
}
