package stdlib

import (
	"testing"

	"ember/internal/bytecode"
	"ember/internal/value"
	"ember/internal/vm"
)

func TestDBConnectRejectsUnsupportedType(t *testing.T) {
	machine := vm.NewVM(vm.DefaultOptions(), nil)
	RegisterAll(machine)

	typeStr := "carbon"
	dsnStr := "whatever"
	strs := "std.db" + "connect" + typeStr + dsnStr

	var code bytecode.Code
	code.Append(bytecode.Instr{Op: bytecode.OpImport, A: 0, StrOffset: 0, StrLen: uint32(len("std.db"))})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 1, StrOffset: uint32(len("std.db")), StrLen: uint32(len("connect"))})
	code.Append(bytecode.Instr{Op: bytecode.OpGet, A: 2, B: 0, C: 1})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 3, StrOffset: uint32(len("std.db") + len("connect")), StrLen: uint32(len(typeStr))})
	code.Append(bytecode.Instr{Op: bytecode.OpStr, A: 4, StrOffset: uint32(len("std.db") + len("connect") + len(typeStr)), StrLen: uint32(len(dsnStr))})
	code.Append(bytecode.Instr{Op: bytecode.OpCall, A: 5, B: 2, ExtraIndex: 0, ExtraLen: 2})
	code.Append(bytecode.Instr{Op: bytecode.OpRet, B: 5})

	m := &bytecode.Module{
		Path:       "<test>",
		MainStart:  0,
		MainEnd:    code.Len(),
		Code:       code,
		NumGlobals: 6,
		Strings:    []byte(strs),
		Extra:      []bytecode.Ref{3, 4},
	}

	_, err := machine.RunModule(m)
	if err == nil {
		t.Fatal("expected a fatal error connecting with an unsupported db type")
	}
}

func TestToDriverArgsRejectsUnsupportedValue(t *testing.T) {
	_, err := toDriverArgs([]value.Value{&value.Func{}})
	if err == nil {
		t.Fatal("expected an error converting a func value into a driver argument")
	}
}

func TestFromDriverValueRoundTripsCommonTypes(t *testing.T) {
	if s, ok := fromDriverValue("hi").(*value.Str); !ok || s.String() != "hi" {
		t.Fatalf("want str(\"hi\"), got %#v", fromDriverValue("hi"))
	}
	if i, ok := fromDriverValue(int64(7)).(value.Int); !ok || i.V != 7 {
		t.Fatalf("want int(7), got %#v", fromDriverValue(int64(7)))
	}
	if fromDriverValue(nil) != value.NullValue {
		t.Fatal("want NullValue for a nil driver value")
	}
}
