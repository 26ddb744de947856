package flow

import (
	"flowlower/internal/classinfo"
)

// ValueKind distinguishes variables from constants.
type ValueKind uint8

const (
	// ValueVar is a single-assignment variable.
	ValueVar ValueKind = iota
	// ValueConst is an immutable literal.
	ValueConst
)

// ConstKind distinguishes constant kinds.
type ConstKind uint8

const (
	// ConstNone represents the none literal.
	ConstNone ConstKind = iota
	// ConstString represents a string literal; member names use it too.
	ConstString
	// ConstInt represents an integer literal.
	ConstInt
	// ConstFloat represents a float literal.
	ConstFloat
	// ConstBool represents a boolean literal.
	ConstBool
	// ConstClass represents a reference to a class.
	ConstClass
	// ConstFunc represents a reference to a free function.
	ConstFunc
)

// Const represents a constant.
type Const struct {
	Kind ConstKind

	Str   string // string value, or function name for ConstFunc
	Int   int64
	Float float64
	Bool  bool
	Class classinfo.ClassID
}

// Value is an operand: a variable or a constant.
type Value struct {
	Kind  ValueKind
	Var   VarID
	Const Const
}

func Var(id VarID) Value { return Value{Kind: ValueVar, Var: id} }

func None() Value { return Value{Kind: ValueConst, Var: NoVarID} }

func Str(s string) Value {
	return Value{Kind: ValueConst, Var: NoVarID, Const: Const{Kind: ConstString, Str: s}}
}

func Int(n int64) Value {
	return Value{Kind: ValueConst, Var: NoVarID, Const: Const{Kind: ConstInt, Int: n}}
}

func Float(f float64) Value {
	return Value{Kind: ValueConst, Var: NoVarID, Const: Const{Kind: ConstFloat, Float: f}}
}

func Bool(b bool) Value {
	return Value{Kind: ValueConst, Var: NoVarID, Const: Const{Kind: ConstBool, Bool: b}}
}

func ClassRef(id classinfo.ClassID) Value {
	return Value{Kind: ValueConst, Var: NoVarID, Const: Const{Kind: ConstClass, Class: id}}
}

func FuncRef(name string) Value {
	return Value{Kind: ValueConst, Var: NoVarID, Const: Const{Kind: ConstFunc, Str: name}}
}

// IsVar reports whether v is a variable.
func (v Value) IsVar() bool { return v.Kind == ValueVar }

// AsVar returns the variable id when v is a variable.
func (v Value) AsVar() (VarID, bool) {
	if v.Kind != ValueVar {
		return NoVarID, false
	}
	return v.Var, true
}

// AsString returns the string payload of a string constant.
func (v Value) AsString() (string, bool) {
	if v.Kind != ValueConst || v.Const.Kind != ConstString {
		return "", false
	}
	return v.Const.Str, true
}

// AsClass returns the class of a class-reference constant.
func (v Value) AsClass() (classinfo.ClassID, bool) {
	if v.Kind != ValueConst || v.Const.Kind != ConstClass {
		return "", false
	}
	return v.Const.Class, true
}

// Equal compares operands structurally.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Kind == ValueVar {
		return v.Var == other.Var
	}
	return v.Const == other.Const
}
