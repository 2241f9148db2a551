package stdlib

import (
	"github.com/dustin/go-humanize"

	"ember/internal/value"
	"ember/internal/vm"
)

// Fmt is the std.fmt native package, giving scripts access to
// human-readable byte/count formatting the way a diagnostic message
// (e.g. a heap-budget or import-size error) would want to render a
// number to a user.
func Fmt(v *vm.VM) (value.Value, error) {
	exports := value.NewMap()
	exports.Set(value.NewStr("bytes"), nativeFn("bytes", 1, fmtBytes))
	exports.Set(value.NewStr("comma"), nativeFn("comma", 1, fmtComma))
	exports.Set(value.NewStr("ordinal"), nativeFn("ordinal", 1, fmtOrdinal))
	return exports, nil
}

func fmtBytes(ctx *vm.Context, args []value.Value) (value.Value, error) {
	n, ok := intArg(args, 0)
	if !ok {
		return nil, ctx.Throw("fmt.bytes: expected an int argument")
	}
	return value.NewStr(humanize.Bytes(uint64(n))), nil
}

func fmtComma(ctx *vm.Context, args []value.Value) (value.Value, error) {
	n, ok := intArg(args, 0)
	if !ok {
		return nil, ctx.Throw("fmt.comma: expected an int argument")
	}
	return value.NewStr(humanize.Comma(n)), nil
}

func fmtOrdinal(ctx *vm.Context, args []value.Value) (value.Value, error) {
	n, ok := intArg(args, 0)
	if !ok {
		return nil, ctx.Throw("fmt.ordinal: expected an int argument")
	}
	return value.NewStr(humanize.Ordinal(int(n))), nil
}
