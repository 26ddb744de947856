package interp

import (
	"fmt"

	"flowlower/internal/classinfo"
	"flowlower/internal/flow"
)

// execOp runs one operation and returns its result value.
func (m *Machine) execOp(block flow.BlockID, idx int, op *flow.Op) (Value, error) {
	args, err := m.operands(block, idx, op.Args)
	if err != nil {
		return Value{}, err
	}
	fail := func(code PanicCode, format string, a ...any) (Value, error) {
		return Value{}, &Error{Code: code, Block: block, Op: idx, Msg: fmt.Sprintf(format, a...)}
	}

	switch op.Kind {
	case flow.OpInstantiate:
		if args[0].Kind != VKClass {
			return fail(PanicTypeMismatch, "instantiate of %s", args[0].Kind)
		}
		obj := &Object{Class: args[0].Class, Serial: len(m.objects) + 1, Fields: make(map[string]Value)}
		m.objects = append(m.objects, obj)
		m.Logf("new %s", obj)
		if impl, ok := m.env.Classes[obj.Class]; ok && impl.Methods[InitName] != nil {
			if _, err := m.call(block, idx, obj, InitName, args[1:]); err != nil {
				return Value{}, err
			}
		}
		return ObjectValue(obj), nil

	case flow.OpGetAttr:
		obj, name := args[0].Obj, args[1].Str
		if args[0].Kind != VKObject {
			return fail(PanicTypeMismatch, "getattr %q on %s", name, args[0].Kind)
		}
		cls, _ := m.env.Registry.Lookup(obj.Class)
		if member, ok := cls.Accessor(name); ok {
			if member.Getter == "" {
				return fail(PanicMissingImpl, "%s.%s has no getter", obj.Class, name)
			}
			return m.call(block, idx, obj, member.Getter, nil)
		}
		if cls.Declares(name) || m.implements(obj.Class, name) {
			return MethodValue(obj, name), nil
		}
		v, ok := obj.Fields[name]
		if !ok {
			return fail(PanicMissingField, "%s has no field %q", obj, name)
		}
		return v, nil

	case flow.OpSetAttr:
		obj, name, val := args[0].Obj, args[1].Str, args[2]
		if args[0].Kind != VKObject {
			return fail(PanicTypeMismatch, "setattr %q on %s", name, args[0].Kind)
		}
		cls, _ := m.env.Registry.Lookup(obj.Class)
		if member, ok := cls.Accessor(name); ok {
			if member.Setter == "" {
				return fail(PanicMissingImpl, "%s.%s has no setter", obj.Class, name)
			}
			_, err := m.call(block, idx, obj, member.Setter, []Value{val})
			return NoneValue(), err
		}
		obj.Fields[name] = val
		m.Logf("store %s.%s = %s", obj, name, val)
		return NoneValue(), nil

	case flow.OpInvoke:
		callee, rest := args[0], args[1:]
		switch callee.Kind {
		case VKMethod:
			return m.call(block, idx, callee.Obj, callee.Str, rest)
		case VKObject:
			cls, _ := m.env.Registry.Lookup(callee.Obj.Class)
			fn, ok := cls.Callable()
			if !ok {
				return fail(PanicNotCallable, "%s is not callable", callee.Obj)
			}
			return m.call(block, idx, callee.Obj, fn, rest)
		case VKFunc:
			f := m.env.Funcs[callee.Str]
			if f == nil {
				return fail(PanicMissingImpl, "no function %q", callee.Str)
			}
			m.Logf("call &%s(%s)", callee.Str, formatArgs(rest))
			v, err := f(m, rest)
			return m.wrap(block, idx, v, err)
		default:
			return fail(PanicNotCallable, "invoke of %s", callee.Kind)
		}

	case flow.OpOther:
		f := m.env.Ops[op.Name]
		if f == nil {
			return fail(PanicUnknownOpcode, "unknown opcode %q", op.Name)
		}
		v, err := f(m, args)
		return m.wrap(block, idx, v, err)

	default:
		return fail(PanicUnknownOpcode, "op kind %s", op.Kind)
	}
}

func (m *Machine) implements(class classinfo.ClassID, fn string) bool {
	impl, ok := m.env.Classes[class]
	return ok && impl.Methods[fn] != nil
}

// call runs fn on self and logs the call, so a direct accessor access and
// its lowered lookup-and-invoke form leave the same trail.
func (m *Machine) call(block flow.BlockID, idx int, self *Object, fn string, args []Value) (Value, error) {
	impl := m.env.Classes[self.Class].Methods[fn]
	if impl == nil {
		return Value{}, &Error{Code: PanicMissingImpl, Block: block, Op: idx,
			Msg: fmt.Sprintf("%s has no implementation of %q", self.Class, fn)}
	}
	m.Logf("call %s.%s(%s)", self, fn, formatArgs(args))
	v, err := impl(m, self, args)
	return m.wrap(block, idx, v, err)
}

func (m *Machine) wrap(block flow.BlockID, idx int, v Value, err error) (Value, error) {
	if err != nil {
		return Value{}, &Error{Code: PanicUserFailure, Block: block, Op: idx, Msg: err.Error(), Err: err}
	}
	return v, nil
}
