package vm

import (
	"fmt"

	"ember/internal/bytecode"
	"ember/internal/diag"
	"ember/internal/value"
)

// dispatchCall implements call protocol, canonicalizing
// all five call opcodes down to one (callee, this, args) triple before
// branching on whether the callee is a Native or a compiled Func. A
// callee that returns an *value.Err — whether via an unhandled throw
// inside a compiled Func body (OpThrow falls through to a plain return
// once its own handler stack is empty) or a native returning one as an
// ordinary value — is not handed back to the caller as data: the
// caller's own handler stack gets first claim on it, exactly as if the
// call site itself had thrown. Only when the caller has no handler
// does the err keep propagating as the call's result.
func (vm *VM) dispatchCall(f *Frame, instr bytecode.Instr) (value.Value, error) {
	callee := f.Val(instr.B)
	this := value.NullValue
	var argRefs []bytecode.Ref

	switch instr.Op {
	case bytecode.OpCall:
		argRefs = f.module.ExtraSlice(instr.ExtraIndex, instr.ExtraLen)
	case bytecode.OpCallOne:
		argRefs = []bytecode.Ref{instr.C}
	case bytecode.OpCallZero:
		// no args
	case bytecode.OpThisCall:
		this = f.Val(instr.C)
		argRefs = f.module.ExtraSlice(instr.ExtraIndex, instr.ExtraLen)
	case bytecode.OpThisCallZero:
		this = f.Val(instr.C)
	}

	args, err := vm.materializeArgs(f, argRefs)
	if err != nil {
		return nil, err
	}

	var res value.Value
	switch fn := callee.(type) {
	case *value.Native:
		res, err = vm.callNative(f, fn, this, args)
	case *value.Func:
		res, err = vm.callFunc(f, fn, this, args)
	default:
		return nil, f.Throw("call: callee is not callable, got " + value.TypeName(callee))
	}
	if err != nil {
		return nil, err
	}

	if e, isErr := res.(*value.Err); isErr {
		if h, ok := f.handlers.Top(); ok {
			f.handlers.Pop()
			f.Set(h.TargetRef, e)
			f.ip = int(h.Offset)
			return nil, thrownControl{}
		}
	}
	return res, nil
}

// materializeArgs expands any spread-wrapped argument in place (same
// two-pass approach as buildAggregate) and dupe_simple-clones every
// resulting element so a call never aliases the caller's scratch slots.
func (vm *VM) materializeArgs(f *Frame, refs []bytecode.Ref) ([]value.Value, error) {
	total := 0
	for _, ref := range refs {
		if s, ok := f.Val(ref).(*value.Spread); ok {
			n, _, ok := containerLen(s.Inner)
			if !ok {
				return nil, f.Throw("spread: operand is not iterable")
			}
			total += n
		} else {
			total++
		}
	}

	out := make([]value.Value, 0, total)
	for _, ref := range refs {
		v := f.Val(ref)
		if s, ok := v.(*value.Spread); ok {
			elems, err := elementsOf(s.Inner)
			if err != nil {
				return nil, f.Throw(err.Error())
			}
			for _, e := range elems {
				dup, err := heapDupeSimple(vm.Heap, e)
				if err != nil {
					return nil, err
				}
				out = append(out, dup)
			}
			continue
		}
		dup, err := heapDupeSimple(vm.Heap, v)
		if err != nil {
			return nil, err
		}
		out = append(out, dup)
	}
	return out, nil
}

// checkArity implements arity rule: exact match for a
// non-variadic callee, at least arg_count-1 for a variadic one (the
// last declared param collects the tail into a list).
func checkArity(f *Frame, name string, argCount int, variadic bool, got int) error {
	if variadic {
		if got < argCount-1 {
			return f.Throw(fmt.Sprintf("%s: expected at least %d arguments, got %d", name, argCount-1, got))
		}
		return nil
	}
	if got != argCount {
		return f.Throw(fmt.Sprintf("%s: expected %d arguments, got %d", name, argCount, got))
	}
	return nil
}

// callNative invokes a host function, normalizing whatever error it
// returns into the frame's handler-stack protocol: an error already
// produced by Context.Throw (thrownControl or a FatalError) propagates
// unchanged, anything else is routed through Throw so it still
// interacts with a surrounding push_err_handler region.
func (vm *VM) callNative(f *Frame, fn *value.Native, this value.Value, args []value.Value) (value.Value, error) {
	if err := checkArity(f, fn.Name, fn.ArgCount, fn.Variadic, len(args)); err != nil {
		return nil, err
	}
	ctx := &Context{vm: vm, frame: f, this: this}
	result, err := fn.Fn(ctx, args)
	if err == nil {
		return result, nil
	}
	switch err.(type) {
	case thrownControl:
		return nil, err
	case *diag.FatalError:
		return nil, err
	default:
		return nil, f.Throw(err.Error())
	}
}

// callFunc invokes a compiled closure, building a fresh Frame from the
// cache and enforcing the recursion-depth ceiling. A variadic func's
// trailing declared parameter collects the excess arguments into a
// list.
func (vm *VM) callFunc(f *Frame, fn *value.Func, this value.Value, args []value.Value) (value.Value, error) {
	if err := checkArity(f, callableName(fn.Name), fn.ArgCount, fn.Variadic, len(args)); err != nil {
		return nil, err
	}
	module, ok := fn.Module.(*bytecode.Module)
	if !ok || module == nil {
		return nil, f.Fatal("call: func value has no owning module")
	}

	vm.callDepth++
	if vm.callDepth > maxRecursionDepth {
		vm.callDepth--
		return nil, f.Fatal("maximum recursion depth exceeded")
	}
	defer func() { vm.callDepth-- }()

	callee := NewFrame(module, f, this, fn.Captures, fn.ArgCount, vm.Reporter, fn.Name)
	stack, handlers := vm.Cache.Acquire()
	callee.Adopt(stack, handlers)
	callee.EnsureCapacity(fn.ArgCount)

	if fn.Variadic {
		fixed := fn.ArgCount - 1
		for i := 0; i < fixed; i++ {
			callee.Set(bytecode.Ref(i), args[i])
		}
		tail := make([]value.Value, len(args)-fixed)
		copy(tail, args[fixed:])
		callee.Set(bytecode.Ref(fixed), &value.List{Elems: tail})
	} else {
		for i, a := range args {
			callee.Set(bytecode.Ref(i), a)
		}
	}

	callee.SetIP(int(fn.BodyStart))
	bodyEnd := int(fn.BodyStart + fn.BodyLen)
	result, err := vm.run(callee, bodyEnd)
	if err != nil {
		// Fatal unwind: drop the callee's stack/handlers rather than
		// caching them.
		return nil, err
	}
	s, h := callee.ReleaseToCache()
	vm.Cache.Release(s, h)
	return result, nil
}

func callableName(name string) string {
	if name == "" {
		return "<anonymous>"
	}
	return name
}
