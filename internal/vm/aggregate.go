package vm

import (
	"ember/internal/bytecode"
	"ember/internal/value"
)

// buildAggregate implements two-pass aggregate
// construction: pre-flatten spreads to compute the exact result length
// (a spread operand contributes its iterable's element count, others
// contribute 1), then copy dupe_simple-cloned elements in.
func (vm *VM) buildAggregate(f *Frame, instr bytecode.Instr) ([]value.Value, error) {
	refs := f.module.ExtraSlice(instr.ExtraIndex, instr.ExtraLen)

	total := 0
	for _, ref := range refs {
		v := f.Val(ref)
		if s, ok := v.(*value.Spread); ok {
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

func heapDupeSimple(heap *value.Heap, v value.Value) (value.Value, error) {
	if !value.IsSimple(v) {
		return v, nil
	}
	return heap.Dupe(v)
}

// containerLen returns (elementCount, elementCount, true) for every
// container kind with a well-defined length (tuple, list, map, str,
// range), or (0, 0, false) otherwise. The duplicated return is for
// call-site symmetry with check_len/assert_len, which only ever want
// the length.
func containerLen(v value.Value) (int, int, bool) {
	switch c := v.(type) {
	case *value.Tuple:
		return len(c.Elems), len(c.Elems), true
	case *value.List:
		return len(c.Elems), len(c.Elems), true
	case *value.Map:
		return c.Len(), c.Len(), true
	case *value.Str:
		n := len([]rune(string(c.B)))
		return n, n, true
	case *value.Range:
		n := int(c.Count())
		return n, n, true
	default:
		return 0, 0, false
	}
}

// elementsOf returns the flattened element slice of an iterable value,
// used by buildAggregate/dispatchCall to expand a spread operand.
func elementsOf(v value.Value) ([]value.Value, error) {
	switch c := v.(type) {
	case *value.Tuple:
		return c.Elems, nil
	case *value.List:
		return c.Elems, nil
	case *value.Range:
		n := c.Count()
		out := make([]value.Value, 0, n)
		cur := c.Start
		for (c.Step > 0 && cur < c.End) || (c.Step < 0 && cur > c.End) {
			out = append(out, value.Int{V: cur})
			cur += c.Step
		}
		return out, nil
	default:
		return nil, value.Throwf("spread: unsupported type %s", value.TypeName(v))
	}
}

// makeSpread implements spread opcode: materializes a range
// to a list, passes tuple/list through unchanged, and throws on
// non-iterables. A str operand throws "TODO spread str" (fatal when no
// handler is present) rather than guessing at codepoint semantics.
func (vm *VM) makeSpread(v value.Value) (value.Value, error) {
	switch c := v.(type) {
	case *value.Range:
		elems, err := elementsOf(c)
		if err != nil {
			return nil, err
		}
		return &value.Spread{Inner: &value.List{Elems: elems}}, nil
	case *value.Tuple, *value.List:
		return &value.Spread{Inner: c}, nil
	case *value.Str:
		return nil, value.Throwf("TODO spread str")
	default:
		return nil, value.Throwf("spread: unsupported type %s", value.TypeName(v))
	}
}

// spreadTail implements spread_dest: extract the tail [from:] of a
// container into a fresh list, used for rest-patterns in destructuring.
func spreadTail(v value.Value, from int) (value.Value, error) {
	elems, err := elementsOf(v)
	if err != nil {
		return nil, err
	}
	if from < 0 || from > len(elems) {
		return nil, value.Throwf("spread_dest: index out of range")
	}
	out := make([]value.Value, len(elems)-from)
	copy(out, elems[from:])
	return &value.List{Elems: out}, nil
}

// buildRange constructs a range value, requiring all operands to be
// int and rejecting a zero step.
func (vm *VM) buildRange(f *Frame, instr bytecode.Instr) (value.Value, error) {
	start, err := f.Int(instr.B)
	if err != nil {
		return nil, err
	}
	end, err := f.Int(instr.C)
	if err != nil {
		return nil, err
	}
	step := int64(1)
	if instr.Op == bytecode.OpBuildRangeStep {
		step, err = f.Int(instr.D)
		if err != nil {
			return nil, err
		}
	}
	if step == 0 {
		return nil, f.Throw("range step must not be zero")
	}
	return &value.Range{Start: start, End: end, Step: step}, nil
}

// getWithMethods implements : Get first, and on a str-keyed
// miss falls back to the VM's method registry so container.method
// property access returns a bound native.
func (vm *VM) getWithMethods(f *Frame, container, index value.Value) (value.Value, error) {
	if name, ok := index.(*value.Str); ok {
		if n, err := value.Get(container, index); err == nil {
			return n, nil
		}
		if bound := vm.Methods.Lookup(container, string(name.B)); bound != nil {
			return bound, nil
		}
	}
	return value.Get(container, index)
}
