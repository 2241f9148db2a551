package vm

import (
	"math"

	"ember/internal/bytecode"
	"ember/internal/value"
)

// numericPair reads the lhsRef/rhsRef operand pair as either two ints
// or, if either side is a num, two floats. Arithmetic coercion rule:
// "int paired with num promotes to num; int paired with int stays int."
func numericPair(f *Frame, lhsRef, rhsRef bytecode.Ref) (liv, riv int64, lfv, rfv float64, bothInt bool, err error) {
	l := f.Val(lhsRef)
	r := f.Val(rhsRef)
	li, lIsInt := l.(value.Int)
	ri, rIsInt := r.(value.Int)
	if lIsInt && rIsInt {
		return li.V, ri.V, 0, 0, true, nil
	}
	lf, lerr := asFloat(l)
	if lerr != nil {
		return 0, 0, 0, 0, false, f.Throw(lerr.Error())
	}
	rf, rerr := asFloat(r)
	if rerr != nil {
		return 0, 0, 0, 0, false, f.Throw(rerr.Error())
	}
	return 0, 0, lf, rf, false, nil
}

func asFloat(v value.Value) (float64, error) {
	switch x := v.(type) {
	case value.Int:
		return float64(x.V), nil
	case value.Num:
		return x.V, nil
	default:
		return 0, value.Throwf("expected int or num, got %s", value.TypeName(v))
	}
}

// binaryArith implements arithmetic opcode family,
// including its explicit coercion, overflow and shift-saturation rules.
// When an operand read throws and a handler already redirected control,
// the returned error is thrownControl{}; the caller propagates it like
// any other step() error.
func (vm *VM) binaryArith(f *Frame, instr bytecode.Instr) (value.Value, error) {
	switch instr.Op {
	case bytecode.OpDiv:
		// div always yields num, whichever operand tags arrive.
		lf, err := numOperand(f, instr.B)
		if err != nil {
			return nil, err
		}
		rf, err := numOperand(f, instr.C)
		if err != nil {
			return nil, err
		}
		if rf == 0 {
			return nil, f.Throw("division by zero")
		}
		return value.Num{V: lf / rf}, nil

	case bytecode.OpPow:
		li, ri, lf, rf, bothInt, err := numericPair(f, instr.B, instr.C)
		if err != nil {
			return nil, err
		}
		if bothInt {
			res, ok := checkedIntPow(li, ri)
			if !ok {
				return nil, f.Throw("operation overflowed")
			}
			return value.Int{V: res}, nil
		}
		return value.Num{V: math.Pow(lf, rf)}, nil

	case bytecode.OpLShift, bytecode.OpRShift:
		li, err := intOperand(f, instr.B)
		if err != nil {
			return nil, err
		}
		ri, err := intOperand(f, instr.C)
		if err != nil {
			return nil, err
		}
		if ri < 0 {
			return nil, f.Throw("shift amount must not be negative")
		}
		if ri > 63 {
			if instr.Op == bytecode.OpLShift {
				return value.Int{V: 0}, nil
			}
			if li < 0 {
				return value.Int{V: math.MaxInt64}, nil
			}
			return value.Int{V: 0}, nil
		}
		if instr.Op == bytecode.OpLShift {
			return value.Int{V: li << uint(ri)}, nil
		}
		return value.Int{V: li >> uint(ri)}, nil

	case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor:
		li, err := intOperand(f, instr.B)
		if err != nil {
			return nil, err
		}
		ri, err := intOperand(f, instr.C)
		if err != nil {
			return nil, err
		}
		switch instr.Op {
		case bytecode.OpBitAnd:
			return value.Int{V: li & ri}, nil
		case bytecode.OpBitOr:
			return value.Int{V: li | ri}, nil
		default:
			return value.Int{V: li ^ ri}, nil
		}

	case bytecode.OpRem:
		li, ri, lf, rf, bothInt, err := numericPair(f, instr.B, instr.C)
		if err != nil {
			return nil, err
		}
		if bothInt {
			if ri <= 0 {
				return nil, f.Throw("rem: denominator must be positive")
			}
			return value.Int{V: li % ri}, nil
		}
		if rf <= 0 {
			return nil, f.Throw("rem: denominator must be positive")
		}
		return value.Num{V: math.Mod(lf, rf)}, nil

	case bytecode.OpDivFloor:
		li, ri, lf, rf, bothInt, err := numericPair(f, instr.B, instr.C)
		if err != nil {
			return nil, err
		}
		if bothInt {
			if ri == 0 {
				return nil, f.Throw("division by zero")
			}
			q, ok := checkedFloorDiv(li, ri)
			if !ok {
				return nil, f.Throw("operation overflowed")
			}
			return value.Int{V: q}, nil
		}
		if rf == 0 {
			return nil, f.Throw("division by zero")
		}
		return value.Int{V: int64(math.Floor(lf / rf))}, nil

	default: // add, sub, mul
		li, ri, lf, rf, bothInt, err := numericPair(f, instr.B, instr.C)
		if err != nil {
			return nil, err
		}
		if !bothInt {
			switch instr.Op {
			case bytecode.OpAdd:
				return value.Num{V: lf + rf}, nil
			case bytecode.OpSub:
				return value.Num{V: lf - rf}, nil
			default:
				return value.Num{V: lf * rf}, nil
			}
		}
		var res int64
		var ok bool
		switch instr.Op {
		case bytecode.OpAdd:
			res, ok = checkedAdd(li, ri)
		case bytecode.OpSub:
			res, ok = checkedSub(li, ri)
		default:
			res, ok = checkedMul(li, ri)
		}
		if !ok {
			return nil, f.Throw("operation overflowed")
		}
		return value.Int{V: res}, nil
	}
}

func numOperand(f *Frame, ref bytecode.Ref) (float64, error) {
	v := f.Val(ref)
	fv, err := asFloat(v)
	if err != nil {
		return 0, f.Throw(err.Error())
	}
	return fv, nil
}

func intOperand(f *Frame, ref bytecode.Ref) (int64, error) {
	return f.Int(ref)
}

func checkedAdd(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

func checkedSub(a, b int64) (int64, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, false
	}
	return r, true
}

func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

// checkedFloorDiv computes floor(a/b) for integer a, b (b != 0),
// throwing overflow only in the int64-min/-1 corner case.
func checkedFloorDiv(a, b int64) (int64, bool) {
	if a == math.MinInt64 && b == -1 {
		return 0, false
	}
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q, true
}

func checkedIntPow(base, exp int64) (int64, bool) {
	if exp < 0 {
		// Negative integer exponent never yields an exact int; only a
		// non-negative exponent is checked here.
		return 0, false
	}
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		next, ok := checkedMul(result, base)
		if !ok {
			return 0, false
		}
		result = next
	}
	return result, true
}

// compareOrdering implements less_than/less_than_equal/greater_than/
// greater_than_equal: both operands must be numeric (int or num,
// compared across tags), else throw.
func (vm *VM) compareOrdering(f *Frame, instr bytecode.Instr) (bool, bool, error) {
	l := f.Val(instr.B)
	r := f.Val(instr.C)
	lf, lerr := asFloat(l)
	if lerr != nil {
		return false, false, f.Throw(lerr.Error())
	}
	rf, rerr := asFloat(r)
	if rerr != nil {
		return false, false, f.Throw(rerr.Error())
	}
	var res bool
	switch instr.Op {
	case bytecode.OpLessThan:
		res = lf < rf
	case bytecode.OpLessThanEqual:
		res = lf <= rf
	case bytecode.OpGreaterThan:
		res = lf > rf
	default:
		res = lf >= rf
	}
	return res, true, nil
}
