package vm

import (
	"ember/internal/bytecode"
	"ember/internal/value"
)

// run is the dispatch loop, : "Entry: run(frame) -> Value |
// FatalError. Each iteration reads op = code.op[body[ip]], increments
// ip, and branches on op." endIdx bounds the instruction range this
// invocation of run owns (a function body or a module's main range);
// running off the end without an explicit ret/ret_null implicitly
// returns null, the same way falling off a block does in most
// expression-oriented scripting languages.
func (vm *VM) run(f *Frame, endIdx int) (value.Value, error) {
	code := &f.module.Code
	for {
		if f.ip >= endIdx || f.ip >= code.Len() {
			return value.NullValue, nil
		}
		instr := code.At(f.ip)
		f.ip++

		result, done, err := vm.step(f, instr)
		if err != nil {
			if _, isControl := err.(thrownControl); isControl {
				// Throw already redirected f.ip; keep looping.
				continue
			}
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}

// step executes one instruction. It returns (result, true, nil) on
// ret/ret_null, (nil, false, err) on throw/fatal, and (nil, false, nil)
// to continue looping. Field convention: instr.A is the destination ref
// for every opcode that produces a value; B/C/D are source operands.
func (vm *VM) step(f *Frame, instr bytecode.Instr) (value.Value, bool, error) {
	switch instr.Op {
	case bytecode.OpNop:
		// no-op

	case bytecode.OpPrimitive:
		switch instr.Primitive {
		case bytecode.PrimNull:
			f.Set(instr.A, value.NullValue)
		case bytecode.PrimTrue:
			f.Set(instr.A, value.True)
		case bytecode.PrimFalse:
			f.Set(instr.A, value.False)
		}

	case bytecode.OpInt:
		f.Set(instr.A, value.Int{V: instr.IntLit})

	case bytecode.OpNum:
		f.Set(instr.A, value.Num{V: instr.NumLit})

	case bytecode.OpStr:
		f.Set(instr.A, value.NewBorrowedStr(f.module.String(instr.StrOffset, instr.StrLen)))

	case bytecode.OpBuildTuple, bytecode.OpBuildList:
		elems, err := vm.buildAggregate(f, instr)
		if err != nil {
			return nil, false, err
		}
		if instr.Op == bytecode.OpBuildTuple {
			f.Set(instr.A, &value.Tuple{Elems: elems})
		} else {
			f.Set(instr.A, &value.List{Elems: elems})
		}

	case bytecode.OpBuildMap:
		m := value.NewMap()
		refs := f.module.ExtraSlice(instr.ExtraIndex, instr.ExtraLen)
		for i := 0; i+1 < len(refs); i += 2 {
			k, err := f.DupeSimple(vm.Heap, refs[i])
			if err != nil {
				return nil, false, err
			}
			v, err := f.DupeSimple(vm.Heap, refs[i+1])
			if err != nil {
				return nil, false, err
			}
			m.Set(k, v)
		}
		f.Set(instr.A, m)

	case bytecode.OpBuildError:
		payload, err := f.DupeSimple(vm.Heap, instr.B)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, &value.Err{Payload: payload})

	case bytecode.OpBuildErrorNull:
		f.Set(instr.A, &value.Err{Payload: value.NullValue})

	case bytecode.OpBuildTagged:
		name := f.module.String(instr.StrOffset, instr.StrLen)
		payload, err := f.DupeSimple(vm.Heap, instr.B)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, &value.Tagged{Name: name, Payload: payload})

	case bytecode.OpBuildTaggedNull:
		name := f.module.String(instr.StrOffset, instr.StrLen)
		f.Set(instr.A, &value.Tagged{Name: name, Payload: value.NullValue})

	case bytecode.OpBuildFunc:
		if int(instr.ExtraIndex) >= len(f.module.Funcs) {
			return nil, false, f.Fatal("build_func: bad function index")
		}
		proto := f.module.Funcs[instr.ExtraIndex]
		captures := make([]value.Value, len(proto.Captures))
		for i, ref := range proto.Captures {
			captures[i] = f.Val(ref)
		}
		f.Set(instr.A, &value.Func{
			Name:      proto.Name,
			Module:    f.module,
			BodyStart: proto.BodyStart,
			BodyLen:   proto.BodyLen,
			ArgCount:  proto.ArgCount,
			Variadic:  proto.Variadic,
			Captures:  captures,
		})

	case bytecode.OpBuildRange, bytecode.OpBuildRangeStep:
		r, err := vm.buildRange(f, instr)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, r)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpDivFloor, bytecode.OpRem, bytecode.OpPow,
		bytecode.OpLShift, bytecode.OpRShift,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor:
		res, err := vm.binaryArith(f, instr)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, res)

	case bytecode.OpNegate:
		v := f.Val(instr.B)
		switch x := v.(type) {
		case value.Int:
			if x.V == minInt64 {
				return nil, false, f.Throw("operation overflowed")
			}
			f.Set(instr.A, value.Int{V: -x.V})
		case value.Num:
			f.Set(instr.A, value.Num{V: -x.V})
		default:
			return nil, false, f.Throw("negate: expected int or num, got " + value.TypeName(v))
		}

	case bytecode.OpBoolNot:
		b, err := f.Bool(instr.B)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, value.BoolOf(!b))

	case bytecode.OpBitNot:
		i, err := f.Int(instr.B)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, value.Int{V: ^i})

	case bytecode.OpEqual, bytecode.OpNotEqual:
		a, b := f.Val(instr.B), f.Val(instr.C)
		eq := value.Eql(a, b)
		if instr.Op == bytecode.OpNotEqual {
			eq = !eq
		}
		f.Set(instr.A, value.BoolOf(eq))

	case bytecode.OpLessThan, bytecode.OpLessThanEqual, bytecode.OpGreaterThan, bytecode.OpGreaterThanEqual:
		res, ok, err := vm.compareOrdering(f, instr)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		f.Set(instr.A, value.BoolOf(res))

	case bytecode.OpGet:
		c, idx := f.Val(instr.B), f.Val(instr.C)
		res, err := vm.getWithMethods(f, c, idx)
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, res)

	case bytecode.OpGetInt:
		c := f.Val(instr.B)
		res, err := value.Get(c, value.Int{V: instr.IntLit})
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, res)

	case bytecode.OpGetOrNull:
		c, idx := f.Val(instr.B), f.Val(instr.C)
		if m, ok := c.(*value.Map); ok {
			if v, ok := m.Get(idx); ok {
				f.Set(instr.A, v)
			} else {
				f.Set(instr.A, value.NullValue)
			}
			return nil, false, nil
		}
		res, err := value.Get(c, idx)
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, res)

	case bytecode.OpSet:
		c, idx, v := f.Val(instr.B), f.Val(instr.C), f.Val(instr.D)
		if err := value.Set(c, idx, v); err != nil {
			return nil, false, f.Throw(err.Error())
		}

	case bytecode.OpAppend:
		l, ok := f.Val(instr.B).(*value.List)
		if !ok {
			return nil, false, f.Throw("append: receiver is not a list")
		}
		elem, err := f.DupeSimple(vm.Heap, instr.C)
		if err != nil {
			return nil, false, err
		}
		l.Elems = append(l.Elems, elem)

	case bytecode.OpIn:
		a, b := f.Val(instr.B), f.Val(instr.C)
		res, err := value.In(a, b)
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, value.BoolOf(res))

	case bytecode.OpSpread:
		v := f.Val(instr.B)
		spread, err := vm.makeSpread(v)
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, spread)

	case bytecode.OpCheckLen:
		_, length, ok := containerLen(f.Val(instr.B))
		f.Set(instr.A, value.BoolOf(ok && length == int(instr.IntLit)))

	case bytecode.OpAssertLen:
		_, length, ok := containerLen(f.Val(instr.B))
		if !ok || length != int(instr.IntLit) {
			return nil, false, f.Throw("length mismatch in destructuring pattern")
		}

	case bytecode.OpSpreadDest:
		rest, err := spreadTail(f.Val(instr.B), int(instr.IntLit))
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, rest)

	case bytecode.OpUnwrapError:
		e, ok := f.Val(instr.B).(*value.Err)
		if !ok {
			return nil, false, f.Throw("unwrap_error: value is not an err")
		}
		dupe, err := vm.Heap.Dupe(e.Payload)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, dupe)

	case bytecode.OpUnwrapTagged:
		name := f.module.String(instr.StrOffset, instr.StrLen)
		t, ok := f.Val(instr.B).(*value.Tagged)
		if !ok || t.Name != name {
			return nil, false, f.Throw("unwrap_tagged: name mismatch")
		}
		f.Set(instr.A, t.Payload)

	case bytecode.OpUnwrapTaggedOrNull:
		name := f.module.String(instr.StrOffset, instr.StrLen)
		if t, ok := f.Val(instr.B).(*value.Tagged); ok && t.Name == name {
			f.Set(instr.A, t.Payload)
		} else {
			f.Set(instr.A, value.NullValue)
		}

	case bytecode.OpCopyUn, bytecode.OpMove:
		f.Set(instr.A, f.Val(instr.B))

	case bytecode.OpCopy:
		dupe, err := vm.Heap.Dupe(f.Val(instr.B))
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, dupe)

	case bytecode.OpLoadGlobal:
		mf := f.ModuleFrame()
		if int(instr.B) >= len(mf.stack) {
			return nil, false, f.Fatal("use of undefined variable")
		}
		f.Set(instr.A, mf.Val(instr.B))

	case bytecode.OpLoadCapture:
		f.Set(instr.A, f.Capture(int(instr.ExtraIndex)))

	case bytecode.OpLoadThis:
		f.Set(instr.A, f.This())

	case bytecode.OpJump:
		f.ip = int(instr.Jump)

	case bytecode.OpJumpIfTrue, bytecode.OpJumpIfFalse:
		b, err := f.Bool(instr.B)
		if err != nil {
			return nil, false, err
		}
		want := instr.Op == bytecode.OpJumpIfTrue
		if b == want {
			f.ip = int(instr.Jump)
		}

	case bytecode.OpJumpIfNull:
		if _, isNull := f.Val(instr.B).(value.Null); isNull {
			f.ip = int(instr.Jump)
		}

	case bytecode.OpPushErrHandler:
		f.PushHandler(instr.A, instr.Jump)

	case bytecode.OpPopErrHandler:
		_, wasThrown := f.PopHandler()
		if !wasThrown {
			f.ip = int(instr.Jump)
		}

	case bytecode.OpUnwrapErrorOrJump:
		if e, ok := f.Val(instr.B).(*value.Err); ok {
			f.Set(instr.A, e.Payload)
		} else {
			f.ip = int(instr.Jump)
		}

	case bytecode.OpIterInit:
		it, err := value.NewIterator(f.Val(instr.B))
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, it)

	case bytecode.OpIterNext:
		it, ok := f.Val(instr.B).(*value.Iterator)
		if !ok {
			return nil, false, f.Throw("iter_next: not an iterator")
		}
		if v, more := it.Next(); more {
			f.Set(instr.A, v)
			f.ip = int(instr.Jump)
		}

	case bytecode.OpCall, bytecode.OpCallOne, bytecode.OpCallZero,
		bytecode.OpThisCall, bytecode.OpThisCallZero:
		res, err := vm.dispatchCall(f, instr)
		if err != nil {
			return nil, false, err
		}
		f.Set(instr.A, res)

	case bytecode.OpImport:
		name := f.module.String(instr.StrOffset, instr.StrLen)
		v, err := vm.Resolver.Import(name)
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, v)

	case bytecode.OpDiscard:
		v := f.Val(instr.B)
		if _, isErr := v.(*value.Err); isErr {
			return nil, false, f.Fatal("discarded an unhandled err value")
		}

	case bytecode.OpAs:
		res, err := value.As(f.Val(instr.B), value.Kind(instr.TargetKind))
		if err != nil {
			return nil, false, f.Throw(err.Error())
		}
		f.Set(instr.A, res)

	case bytecode.OpRet:
		return f.Val(instr.B), true, nil

	case bytecode.OpRetNull:
		return value.NullValue, true, nil

	case bytecode.OpThrow:
		payload, err := f.DupeSimple(vm.Heap, instr.B)
		if err != nil {
			return nil, false, err
		}
		if h, ok := f.handlers.Top(); ok {
			f.handlers.Pop()
			f.Set(h.TargetRef, &value.Err{Payload: payload})
			f.ip = int(h.Offset)
			return nil, false, nil
		}
		return &value.Err{Payload: payload}, true, nil

	default:
		return nil, false, f.Fatal("unimplemented opcode: " + instr.Op.String())
	}

	return nil, false, nil
}

const minInt64 = -1 << 63
