package stdlib

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/value"
	"ember/internal/vm"
)

func newModule(code bytecode.Code, numGlobals int, strings string) *bytecode.Module {
	return &bytecode.Module{
		Path:       "<test>",
		MainStart:  0,
		MainEnd:    code.Len(),
		Code:       code,
		NumGlobals: numGlobals,
		Strings:    []byte(strings),
	}
}

// callExport builds a module that imports pkgName, calls its export
// funcName with a single string literal argument, and returns the
// result — exercising RegisterAll/ImportResolver/callNative together,
// the same path a script's `import "std.x"` would take.
func callExport(t *testing.T, pkgName, funcName, arg string) (value.Value, error) {
	t.Helper()
	strs := pkgName + funcName + arg
	pkgOff, pkgLen := uint32(0), uint32(len(pkgName))
	funcOff, funcLen := pkgLen, uint32(len(funcName))
	argOff, argLen := pkgLen+funcLen, uint32(len(arg))

	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpImport, A: 0, StrOffset: pkgOff, StrLen: pkgLen})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 1, StrOffset: funcOff, StrLen: funcLen})
	code.Append(bytecode.Instr{Op: bytecode.OpGet, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 3, StrOffset: argOff, StrLen: argLen})
	code.Append(bytecode.Instr{Op: bytecode.OpCallOne, A: 4, B: 2, C: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 4})

	machine := vm.NewVM(vm.DefaultOptions(), nil)
	RegisterAll(machine)
	return machine.RunModule(newModule(code, 5, strs))
}

func TestRegisterAllInstallsEveryPackage(t *testing.T) {
	machine := vm.NewVM(vm.DefaultOptions(), nil)
	RegisterAll(machine)

	for _, name := range []string{"std.db", "std.crypto", "std.net", "std.fmt", "std.id"} {
		if _, err := machine.Resolver.Import(name); err != nil {
			t.Fatalf("import %s: %v", name, err)
		}
	}
}

func TestCryptoHashIsDeterministic(t *testing.T) {
	a, err := callExport(t, "std.crypto", "hash", "ember")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := callExport(t, "std.crypto", "hash", "ember")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.(*value.Str).String() != b.(*value.Str).String() {
		t.Fatal("hashing the same input twice should be deterministic")
	}

	c, err := callExport(t, "std.crypto", "hash", "ember!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.(*value.Str).String() == c.(*value.Str).String() {
		t.Fatal("hashing different inputs should not collide trivially")
	}
}

func TestFmtBytesHumanizes(t *testing.T) {
	machine := vm.NewVM(vm.DefaultOptions(), nil)
	RegisterAll(machine)

	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpImport, A: 0, StrOffset: 0, StrLen: uint32(len("std.fmt"))})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 1, StrOffset: uint32(len("std.fmt")), StrLen: uint32(len("bytes"))})
	code.Append(bytecode.Instr{Op: bytecode.OpGet, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpInt, A: 3, IntLit: 2048})
	code.Append(bytecode.Instr{Op: bytecode.OpCallOne, A: 4, B: 2, C: 3})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 4})

	m := newModule(code, 5, "std.fmtbytes")
	result, err := machine.RunModule(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*value.Str).String() == "" {
		t.Fatal("expected a non-empty humanized byte size")
	}
}

func TestIDNewProducesDistinctTaggedUUIDs(t *testing.T) {
	machine := vm.NewVM(vm.DefaultOptions(), nil)
	RegisterAll(machine)

	callNew := func() value.Value {
		var code bytecode.Code
		code.Append(bytecode.Instr{Op: bytecode.OpImport, A: 0, StrOffset: 0, StrLen: uint32(len("std.id"))})
		code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 1, StrOffset: uint32(len("std.id")), StrLen: uint32(len("new"))})
		code.Append(bytecode.Instr{Op: bytecode.OpGet, A: 2, B: 0, C: 1})
		code.Append(bytecode.Instr{Op: bytecode.OpCallZero, A: 3, B: 2})
		code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 3})
		m := newModule(code, 4, "std.idnew")
		result, err := machine.RunModule(m)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return result
	}

	a := callNew()
	b := callNew()
	ta, ok := a.(*value.Tagged)
	if !ok || ta.Name != "uuid" {
		t.Fatalf("want tagged(\"uuid\", ...), got %#v", a)
	}
	tb := b.(*value.Tagged)
	if ta.Payload.(*value.Str).String() == tb.Payload.(*value.Str).String() {
		t.Fatal("two id.new() calls should not produce the same uuid")
	}
}
