package vm

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/value"
)

func runModule(t *testing.T, m *bytecode.Module) (value.Value, error) {
	t.Helper()
	machine := NewVM(DefaultOptions(), nil)
	return machine.RunModule(m)
}

func newModule(code bytecode.Code, numGlobals int) *bytecode.Module {
	return &bytecode.Module{
		Path:       "<test>",
		MainStart:  0,
		MainEnd:    code.Len(),
		Code:       code,
		NumGlobals: numGlobals,
	}
}

// TestArithmetic exercises 1 + 2*3, the canonical dispatch-loop smoke
// test, the same shape cmd/ember demo uses.
func TestArithmetic(t *testing.T) {
	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 0, IntLit: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 2, IntLit: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpMul, A: 3, B: 1, C: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpAdd, A: 4, B: 0, C: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 4})

	result, err := runModule(t, newModule(code, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != 7 {
		t.Fatalf("want int(7), got %#v", result)
	}
}

// TestListNegativeIndex covers xs[-1], negative-index
// example for the Get opcode.
func TestListNegativeIndex(t *testing.T) {
	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 0, IntLit: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 2, IntLit: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpBuildList, A: 3, ExtraIndex: 0, ExtraLen: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 4, IntLit: -1})
	code.Append(bytecode.Instr{Op: bytecode.OpGet, A: 5, B: 3, C: 4})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 5})

	m := newModule(code, 6)
	m.Extra = []bytecode.Ref{0, 1, 2}

	result, err := runModule(t, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != 3 {
		t.Fatalf("want int(3), got %#v", result)
	}
}

// TestThrowCaughtByHandler builds push_err_handler/throw/pop_err_handler
// around a throw opcode, matching try/catch scenario:
// the handler's target ref ends up holding err(str("boom")).
func TestThrowCaughtByHandler(t *testing.T) {
	var code bytecode.Code
	// push_err_handler(target=r1, offset=handler) ; protected region
	pushIdx := code.Append(bytecode.Instr{Op: bytecode.OpPushErrHandler, A: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 2, StrOffset: 0, StrLen: 4})
	throwIdx := code.Append(bytecode.Instr{Op: bytecode.OpThrow, B: 2})
	popJump := code.Append(bytecode.Instr{Op: bytecode.OpPopErrHandler, A: 1, Jump: 0})
	retIdx := code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 1})

	handlerIdx := len(code.Op)
	code.Append(bytecode.Instr{Op: bytecode.OpJump, Jump: uint32(retIdx)})

	code.Data[pushIdx].Jump = uint32(handlerIdx)
	code.Data[popJump].Jump = uint32(throwIdx + 1)
	_ = popJump

	m := newModule(code, 3)
	m.Strings = []byte("boom")

	result, err := runModule(t, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := result.(*value.Err)
	if !ok {
		t.Fatalf("want *value.Err, got %#v", result)
	}
	s, ok := e.Payload.(*value.Str)
	if !ok || s.String() != "boom" {
		t.Fatalf("want err(str(\"boom\")), got %#v", e.Payload)
	}
}

// TestRangeWithStep covers building range(0, 10, 2).
func TestRangeWithStep(t *testing.T) {
	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 0, IntLit: 0})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 10})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 2, IntLit: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpBuildRangeStep, A: 3, B: 0, C: 1, D: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 3})

	result, err := runModule(t, newModule(code, 4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := result.(*value.Range)
	if !ok || r.Start != 0 || r.End != 10 || r.Step != 2 {
		t.Fatalf("want range(0,10,2), got %#v", result)
	}
}

// TestRangeStepZeroThrows covers "step must not be zero" edge
// case with no handler present, so it escalates to fatal.
func TestRangeStepZeroThrows(t *testing.T) {
	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 0, IntLit: 0})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 10})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 2, IntLit: 0})
	code.Append(bytecode.Instr{Op: bytecode.OpBuildRangeStep, A: 3, B: 0, C: 1, D: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 3})

	_, err := runModule(t, newModule(code, 4))
	if err == nil {
		t.Fatal("expected a fatal error for a zero range step")
	}
}

// TestRecursionDepthFatal pushes a self-recursive function past
// maxRecursionDepth and expects a fatal, not a panic.
func TestRecursionDepthFatal(t *testing.T) {
	// func body: r0 = load_global(0) [the func's own value]; call r0(); ret
	var body bytecode.Code
	body.Append(bytecode.Instr{Op: bytecode.OpLoadGlobal, A: 0, B: 0})
	body.Append(bytecode.Instr{Op: bytecode.OpCallZero, A: 1, B: 0})
	body.Append(bytecode.Instr{Op: bytecode.OpRet, B: 1})

	var main bytecode.Code
	main.Append(bytecode.Instr{Op: bytecode.OpBuildFunc, A: 0, ExtraIndex: 0})
	main.Append(bytecode.Instr{Op: bytecode.OpCallZero, A: 1, B: 0})
	main.Append(bytecode.Instr{Op: bytecode.OpRet, B: 1})

	bodyStart := main.Len()
	for i := 0; i < body.Len(); i++ {
		main.Append(body.At(i))
	}

	m := newModule(main, 2)
	m.Funcs = []bytecode.FuncProto{{
		Name:      "recur",
		BodyStart: uint32(bodyStart),
		BodyLen:   uint32(body.Len()),
		ArgCount:  0,
	}}

	_, err := runModule(t, m)
	if err == nil {
		t.Fatal("expected a fatal error for unbounded recursion")
	}
}
