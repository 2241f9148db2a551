package vm

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/value"
)

// TestClosureCapture builds a function literal that captures an outer
// int, calls it, and checks the captured value flows through
// load_capture.
func TestClosureCapture(t *testing.T) {
	var body bytecode.Code
	body.Append(bytecode.Instr{Op: bytecode.OpLoadCapture, A: 0, ExtraIndex: 0})
	body.Append(bytecode.Instr{Op: bytecode.OpInt, A: 1, IntLit: 10})
	body.Append(bytecode.Instr{Op: bytecode.OpAdd, A: 2, B: 0, C: 1})
	body.Append(bytecode.Instr{Op: bytecode.OpRet, B: 2})

	var main bytecode.Code
	main.Append(bytecode.Instr{Op: bytecode.OpInt, A: 0, IntLit: 5})
	main.Append(bytecode.Instr{Op: bytecode.OpBuildFunc, A: 1, ExtraIndex: 0})
	main.Append(bytecode.Instr{Op: bytecode.OpCallZero, A: 2, B: 1})
	main.Append(bytecode.Instr{Op: bytecode.OpRet, B: 2})

	bodyStart := main.Len()
	for i := 0; i < body.Len(); i++ {
		main.Append(body.At(i))
	}

	m := newModule(main, 3)
	m.Funcs = []bytecode.FuncProto{{
		Name:      "adder",
		BodyStart: uint32(bodyStart),
		BodyLen:   uint32(body.Len()),
		ArgCount:  0,
		Captures:  []bytecode.Ref{0},
	}}

	result, err := runModule(t, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != 15 {
		t.Fatalf("want int(15), got %#v", result)
	}
}

// TestCallArityMismatch covers checkArity's non-variadic exact-match
// rule: calling a one-arg function with zero arguments should fatal
// (no handler present at module scope).
func TestCallArityMismatch(t *testing.T) {
	var body bytecode.Code
	body.Append(bytecode.Instr{Op: bytecode.OpRetNull})

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
		Name:      "needs_one",
		BodyStart: uint32(bodyStart),
		BodyLen:   uint32(body.Len()),
		ArgCount:  1,
	}}

	_, err := runModule(t, m)
	if err == nil {
		t.Fatal("expected a fatal error for an arity mismatch")
	}
}

// TestCallerHandlerCatchesCalleeUnhandledThrow covers the call-boundary
// case: a compiled Func body throws with no handler of its own, so its
// run() returns the *value.Err as an ordinary done value. The caller
// has a push_err_handler region around the call and must catch that
// err at the call site rather than let it flow into the destination
// ref as plain data.
func TestCallerHandlerCatchesCalleeUnhandledThrow(t *testing.T) {
	var body bytecode.Code
	body.Append(bytecode.Instr{Op: bytecode.OpStr, A: 0, StrOffset: 0, StrLen: 4})
	body.Append(bytecode.Instr{Op: bytecode.OpThrow, B: 0})

	var main bytecode.Code
	pushIdx := main.Append(bytecode.Instr{Op: bytecode.OpPushErrHandler, A: 0})
	main.Append(bytecode.Instr{Op: bytecode.OpBuildFunc, A: 1, ExtraIndex: 0})
	main.Append(bytecode.Instr{Op: bytecode.OpCallZero, A: 2, B: 1})
	retIdx := main.Append(bytecode.Instr{Op: bytecode.OpRet, B: 0})

	handlerIdx := main.Len()
	main.Append(bytecode.Instr{Op: bytecode.OpJump, Jump: uint32(retIdx)})
	main.Data[pushIdx].Jump = uint32(handlerIdx)

	bodyStart := main.Len()
	for i := 0; i < body.Len(); i++ {
		main.Append(body.At(i))
	}

	m := newModule(main, 3)
	m.Strings = []byte("boom")
	m.Funcs = []bytecode.FuncProto{{
		Name:      "boom_fn",
		BodyStart: uint32(bodyStart),
		BodyLen:   uint32(body.Len()),
		ArgCount:  0,
	}}

	result, err := runModule(t, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := result.(*value.Err)
	if !ok {
		t.Fatalf("want *value.Err caught by the caller's handler, got %#v", result)
	}
	s, ok := e.Payload.(*value.Str)
	if !ok || s.String() != "boom" {
		t.Fatalf("want err(str(\"boom\")), got %#v", e.Payload)
	}
}

// TestNativeCallThroughRegisteredPackage exercises RegisterNativePackage
// + ImportResolver + callNative end-to-end: import a package, call one
// of its exports, and check the Context threads through correctly.
func TestNativeCallThroughRegisteredPackage(t *testing.T) {
	machine := NewVM(DefaultOptions(), nil)
	machine.RegisterNativePackage("std.test", func(v *VM) (value.Value, error) {
		exports := value.NewMap()
		exports.Set(value.NewStr("double"), &value.Native{
			Name:     "double",
			ArgCount: 1,
			Fn: func(ctxIface interface{}, args []value.Value) (value.Value, error) {
				ctx := ctxIface.(*Context)
				i, ok := args[0].(value.Int)
				if !ok {
					return nil, ctx.Throw("double: expected an int")
				}
				return value.Int{V: i.V * 2}, nil
			},
		})
		return exports, nil
	})

	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpImport, A: 0, StrOffset: 0, StrLen: uint32(len("std.test"))})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 1, StrOffset: uint32(len("std.test")), StrLen: uint32(len("double"))})
	code.Append(bytecode.Instr{Op: bytecode.OpGet, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 3, IntLit: 21})
	code.Append(bytecode.Instr{Op: bytecode.OpCallOne, A: 4, B: 2, C: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 4})

	m := newModule(code, 5)
	m.Strings = []byte("std.testdouble")

	result, err := machine.RunModule(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := result.(value.Int)
	if !ok || i.V != 42 {
		t.Fatalf("want int(42), got %#v", result)
	}
}
