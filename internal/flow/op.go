package flow

import (
	"fmt"
	"slices"

	"flowlower/internal/classinfo"
)

// OpKind enumerates the operation kinds the lowering pass distinguishes.
// Everything else is OpOther and carries its opcode in Op.Name.
type OpKind uint8

const (
	// OpInstantiate constructs an instance: Args = [class, ctor args...].
	OpInstantiate OpKind = iota
	// OpInvoke calls a value: Args = [callee, args...].
	OpInvoke
	// OpGetAttr reads a member: Args = [instance, const(name)].
	OpGetAttr
	// OpSetAttr writes a member: Args = [instance, const(name), value].
	OpSetAttr
	// OpOther is any opaque operation.
	OpOther
)

func (k OpKind) String() string {
	switch k {
	case OpInstantiate:
		return "instantiate"
	case OpInvoke:
		return "invoke"
	case OpGetAttr:
		return "getattr"
	case OpSetAttr:
		return "setattr"
	case OpOther:
		return "other"
	default:
		return fmt.Sprintf("opkind(%d)", uint8(k))
	}
}

// Op represents a single operation.
type Op struct {
	Kind OpKind
	Name string // opcode of an OpOther

	Args      []Value
	HasResult bool
	Result    VarID
}

func Instantiate(dst VarID, class classinfo.ClassID, args ...Value) Op {
	return Op{
		Kind:      OpInstantiate,
		Args:      append([]Value{ClassRef(class)}, args...),
		HasResult: true,
		Result:    dst,
	}
}

// Invoke builds a call; pass NoVarID as dst for a call whose result is unused.
func Invoke(dst VarID, callee Value, args ...Value) Op {
	return Op{
		Kind:      OpInvoke,
		Args:      append([]Value{callee}, args...),
		HasResult: dst != NoVarID,
		Result:    dst,
	}
}

func GetAttr(dst VarID, instance Value, member string) Op {
	return Op{
		Kind:      OpGetAttr,
		Args:      []Value{instance, Str(member)},
		HasResult: true,
		Result:    dst,
	}
}

func SetAttr(instance Value, member string, value Value) Op {
	return Op{
		Kind:   OpSetAttr,
		Args:   []Value{instance, Str(member), value},
		Result: NoVarID,
	}
}

// Other builds an opaque operation; pass NoVarID as dst when it has no result.
func Other(dst VarID, opcode string, args ...Value) Op {
	return Op{
		Kind:      OpOther,
		Name:      opcode,
		Args:      args,
		HasResult: dst != NoVarID,
		Result:    dst,
	}
}

// Opcode returns the printed opcode.
func (op *Op) Opcode() string {
	if op.Kind == OpOther {
		return op.Name
	}
	return op.Kind.String()
}

// Defines reports whether op assigns v.
func (op *Op) Defines(v VarID) bool {
	return op.HasResult && op.Result == v
}

// Callee returns the callee of an invoke.
func (op *Op) Callee() (Value, bool) {
	if op.Kind != OpInvoke || len(op.Args) == 0 {
		return Value{}, false
	}
	return op.Args[0], true
}

// Target returns the instance and member name of an attribute operation.
func (op *Op) Target() (Value, string, bool) {
	if (op.Kind != OpGetAttr && op.Kind != OpSetAttr) || len(op.Args) < 2 {
		return Value{}, "", false
	}
	name, ok := op.Args[1].AsString()
	if !ok {
		return Value{}, "", false
	}
	return op.Args[0], name, true
}

// Class returns the class constructed by an instantiate.
func (op *Op) Class() (classinfo.ClassID, bool) {
	if op.Kind != OpInstantiate || len(op.Args) == 0 {
		return "", false
	}
	return op.Args[0].AsClass()
}

// Clone returns a copy that shares no operand storage with op.
func (op Op) Clone() Op {
	op.Args = slices.Clone(op.Args)
	return op
}

// Equal compares operations structurally.
func (op *Op) Equal(other *Op) bool {
	if op.Kind != other.Kind || op.Name != other.Name || op.HasResult != other.HasResult {
		return false
	}
	if op.HasResult && op.Result != other.Result {
		return false
	}
	return slices.EqualFunc(op.Args, other.Args, Value.Equal)
}

// checkShape verifies operand count and kinds for op.Kind.
func (op *Op) checkShape() error {
	switch op.Kind {
	case OpInstantiate:
		if len(op.Args) == 0 {
			return fmt.Errorf("instantiate without class operand")
		}
		if _, ok := op.Args[0].AsClass(); !ok {
			return fmt.Errorf("instantiate operand 0 is not a class reference")
		}
		if !op.HasResult {
			return fmt.Errorf("instantiate without result")
		}
	case OpInvoke:
		if len(op.Args) == 0 {
			return fmt.Errorf("invoke without callee")
		}
	case OpGetAttr:
		if len(op.Args) != 2 {
			return fmt.Errorf("getattr takes 2 operands, got %d", len(op.Args))
		}
		if _, ok := op.Args[1].AsString(); !ok {
			return fmt.Errorf("getattr member operand is not a string constant")
		}
		if !op.HasResult {
			return fmt.Errorf("getattr without result")
		}
	case OpSetAttr:
		if len(op.Args) != 3 {
			return fmt.Errorf("setattr takes 3 operands, got %d", len(op.Args))
		}
		if _, ok := op.Args[1].AsString(); !ok {
			return fmt.Errorf("setattr member operand is not a string constant")
		}
		if op.HasResult {
			return fmt.Errorf("setattr has no result")
		}
	case OpOther:
		if op.Name == "" {
			return fmt.Errorf("opaque operation without opcode")
		}
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
	return nil
}
