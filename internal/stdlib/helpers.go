package stdlib

import (
	"ember/internal/value"
	"ember/internal/vm"
)

// nativeFn adapts a vm.MethodFunc-shaped Go function into a
// value.Native, threading the interface{} ctx parameter the runtime's
// calling convention requires back into a concrete *vm.Context.
func nativeFn(name string, argCount int, fn func(ctx *vm.Context, args []value.Value) (value.Value, error)) *value.Native {
	return &value.Native{
		Name:     name,
		ArgCount: argCount,
		Fn: func(ctxIface interface{}, args []value.Value) (value.Value, error) {
			ctx := ctxIface.(*vm.Context)
			return fn(ctx, args)
		},
	}
}

// variadicFn is nativeFn with Variadic set, for natives accepting a
// trailing spread of arguments (e.g. db.execute's query params).
func variadicFn(name string, minArgs int, fn func(ctx *vm.Context, args []value.Value) (value.Value, error)) *value.Native {
	n := nativeFn(name, minArgs+1, fn)
	n.Variadic = true
	return n
}

func strArg(args []value.Value, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(*value.Str)
	if !ok {
		return "", false
	}
	return string(s.B), true
}

func intArg(args []value.Value, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	n, ok := args[i].(value.Int)
	return n.V, ok
}
