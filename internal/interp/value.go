package interp

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
)

// ValueKind tags a runtime value.
type ValueKind uint8

const (
	VKNone ValueKind = iota
	VKInt
	VKFloat
	VKString
	VKBool
	VKClass
	VKFunc
	VKObject
	VKMethod // a function bound to an object
)

func (k ValueKind) String() string {
	switch k {
	case VKNone:
		return "none"
	case VKInt:
		return "int"
	case VKFloat:
		return "float"
	case VKString:
		return "string"
	case VKBool:
		return "bool"
	case VKClass:
		return "class"
	case VKFunc:
		return "func"
	case VKObject:
		return "object"
	case VKMethod:
		return "method"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Object is a class instance. Serial numbers follow creation order, so two
// runs over equivalent IR number their objects identically.
type Object struct {
	Class  classinfo.ClassID
	Serial int
	Fields map[string]Value
}

func (o *Object) String() string {
	return fmt.Sprintf("%s#%d", o.Class, o.Serial)
}

// State renders the object with its fields in name order.
func (o *Object) State() string {
	var sb strings.Builder
	sb.WriteString(o.String())
	sb.WriteByte('{')
	for i, name := range slices.Sorted(maps.Keys(o.Fields)) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(o.Fields[name].String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// Value is a runtime value.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string // string payload, function name, or bound function name
	Bool  bool
	Class classinfo.ClassID
	Obj   *Object
}

func NoneValue() Value            { return Value{Kind: VKNone} }
func IntValue(n int64) Value      { return Value{Kind: VKInt, Int: n} }
func FloatValue(f float64) Value  { return Value{Kind: VKFloat, Float: f} }
func StringValue(s string) Value  { return Value{Kind: VKString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: VKBool, Bool: b} }
func ObjectValue(o *Object) Value { return Value{Kind: VKObject, Obj: o} }
func MethodValue(o *Object, fn string) Value {
	return Value{Kind: VKMethod, Obj: o, Str: fn}
}

// FromConst converts an IR constant.
func FromConst(c flow.Const) Value {
	switch c.Kind {
	case flow.ConstString:
		return StringValue(c.Str)
	case flow.ConstInt:
		return IntValue(c.Int)
	case flow.ConstFloat:
		return FloatValue(c.Float)
	case flow.ConstBool:
		return BoolValue(c.Bool)
	case flow.ConstClass:
		return Value{Kind: VKClass, Class: c.Class}
	case flow.ConstFunc:
		return Value{Kind: VKFunc, Str: c.Str}
	default:
		return NoneValue()
	}
}

// Truthy decides switch exits: false, 0, 0.0, "" and none are false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case VKNone:
		return false
	case VKInt:
		return v.Int != 0
	case VKFloat:
		return v.Float != 0
	case VKString:
		return v.Str != ""
	case VKBool:
		return v.Bool
	default:
		return true
	}
}

// String is stable across runs and is what Compare compares.
func (v Value) String() string {
	switch v.Kind {
	case VKNone:
		return "none"
	case VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKFloat:
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case VKString:
		return strconv.Quote(v.Str)
	case VKBool:
		return strconv.FormatBool(v.Bool)
	case VKClass:
		return "class " + string(v.Class)
	case VKFunc:
		return "&" + v.Str
	case VKObject:
		if v.Obj == nil {
			return "<nil object>"
		}
		return v.Obj.String()
	case VKMethod:
		if v.Obj == nil {
			return "<unbound>." + v.Str
		}
		return v.Obj.String() + "." + v.Str
	default:
		return "<?>"
	}
}
