package vm

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/value"
)

func binOpModule(op bytecode.OpCode, lhs, rhs value.Value) *bytecode.Module {
	var code bytecode.Code
	set := func(ref bytecode.Ref, v value.Value) {
		switch x := v.(type) {
		case value.Int:
			code.Append(bytecode.Instr{Op: bytecode.OpInt, A: ref, IntLit: x.V})
		case value.Num:
			code.Append(bytecode.Instr{Op: bytecode.OpNum, A: ref, NumLit: x.V})
		}
	}
	set(0, lhs)
	set(1, rhs)
	code.Append(bytecode.Instr{Op: op, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 2})
	return newModule(code, 3)
}

func TestDivAlwaysYieldsNum(t *testing.T) {
	result, err := runModule(t, binOpModule(bytecode.OpDiv, value.Int{V: 7}, value.Int{V: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := result.(value.Num)
	if !ok || n.V != 3.5 {
		t.Fatalf("want num(3.5), got %#v", result)
	}
}

func TestDivByZeroThrowsFatalWithNoHandler(t *testing.T) {
	_, err := runModule(t, binOpModule(bytecode.OpDiv, value.Int{V: 1}, value.Int{V: 0}))
	if err == nil {
		t.Fatal("expected a fatal error for division by zero")
	}
}

func TestDivFloorNegative(t *testing.T) {
	result, err := runModule(t, binOpModule(bytecode.OpDivFloor, value.Int{V: -7}, value.Int{V: 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != -4 {
		t.Fatalf("want int(-4), got %#v", result)
	}
}

func TestRemRequiresPositiveDenominator(t *testing.T) {
	_, err := runModule(t, binOpModule(bytecode.OpRem, value.Int{V: 5}, value.Int{V: -3}))
	if err == nil {
		t.Fatal("expected a fatal error for a non-positive rem denominator")
	}
}

func TestLShiftSaturatesPastSixtyThree(t *testing.T) {
	result, err := runModule(t, binOpModule(bytecode.OpLShift, value.Int{V: 1}, value.Int{V: 64}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != 0 {
		t.Fatalf("want int(0), got %#v", result)
	}
}

func TestRShiftSaturatesNegative(t *testing.T) {
	result, err := runModule(t, binOpModule(bytecode.OpRShift, value.Int{V: -5}, value.Int{V: 100}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != -1 {
		t.Fatalf("want int(-1) (sign-extended saturation), got %#v", result)
	}
}

func TestAddOverflowThrows(t *testing.T) {
	const maxInt64 = 1<<63 - 1
	_, err := runModule(t, binOpModule(bytecode.OpAdd, value.Int{V: maxInt64}, value.Int{V: 1}))
	if err == nil {
		t.Fatal("expected a fatal error for integer overflow")
	}
}

func TestMixedIntNumPromotesToNum(t *testing.T) {
	result, err := runModule(t, binOpModule(bytecode.OpMul, value.Int{V: 2}, value.Num{V: 1.5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := result.(value.Num)
	if !ok || n.V != 3.0 {
		t.Fatalf("want num(3.0), got %#v", result)
	}
}

func TestPowChecksIntOverflow(t *testing.T) {
	result, err := runModule(t, binOpModule(bytecode.OpPow, value.Int{V: 2}, value.Int{V: 10}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != 1024 {
		t.Fatalf("want int(1024), got %#v", result)
	}

	_, err = runModule(t, binOpModule(bytecode.OpPow, value.Int{V: 2}, value.Int{V: 100}))
	if err == nil {
		t.Fatal("expected a fatal error for pow overflow")
	}
}

func TestCompareOrderingRejectsNonNumeric(t *testing.T) {
	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 0, StrOffset: 0, StrLen: 0})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpLessThan, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 2})

	_, err := runModule(t, newModule(code, 3))
	if err == nil {
		t.Fatal("expected a fatal error comparing a str to an int")
	}
}
