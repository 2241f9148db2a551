package vm

import (
	"fmt"

	"ember/internal/value"
)

// Context is the native calling convention's host-facing handle: a
// native function receives (ctx, args) and returns (Value, error),
// where ctx carries the calling frame and this-receiver so it can
// throw into the caller's handler stack or read the receiver without
// the core package depending on value for anything beyond Value
// itself.
type Context struct {
	vm    *VM
	frame *Frame
	this  value.Value
}

// Throw redirects control through frame's handler stack, or escalates
// to fatal if none is present — identical semantics to Frame.Throw,
// exposed to native functions that need to signal a recoverable error.
func (c *Context) Throw(msg string) error { return c.frame.Throw(msg) }

// Throwf is Throw with fmt.Sprintf formatting.
func (c *Context) Throwf(format string, args ...interface{}) error {
	return c.Throw(fmt.Sprintf(format, args...))
}

// Frame returns the calling frame, letting a native function reach
// VM-level state (e.g. to pin a value for the call's duration).
func (c *Context) Frame() *Frame { return c.frame }

// This returns the receiver a method-style native call was bound with.
func (c *Context) This() value.Value { return c.this }

// VM returns the owning VM, for natives that need to import another
// module or check VM.Options.
func (c *Context) VM() *VM { return c.vm }

// NativePackage is the thunk the ImportResolver invokes for a
// registered native package name. It returns the
// module-level value the import expression evaluates to — typically a
// Map of exported names to Native/Func values.
type NativePackage func(vm *VM) (value.Value, error)

// MethodFunc is a bound-method native function: it closes over its
// receiver through Context.This().7.
type MethodFunc func(ctx *Context, args []value.Value) (value.Value, error)

// methodTable is a static per-type registry of method name -> impl,
// consulted by Get when the indexed container doesn't find the key
// directly and the index operand is a str (a property name).
type methodTable map[string]MethodFunc

// methodRegistry holds one methodTable per value.Kind that supports
// methods. Built once at VM construction (newMethodRegistry).
type methodRegistry map[value.Kind]methodTable

func newMethodRegistry() methodRegistry {
	r := methodRegistry{
		value.KindList: {
			"append": func(ctx *Context, args []value.Value) (value.Value, error) {
				l, ok := ctx.This().(*value.List)
				if !ok {
					return nil, ctx.Throw("append: receiver is not a list")
				}
				l.Elems = append(l.Elems, args...)
				return value.NullValue, nil
			},
			"len": func(ctx *Context, args []value.Value) (value.Value, error) {
				l, ok := ctx.This().(*value.List)
				if !ok {
					return nil, ctx.Throw("len: receiver is not a list")
				}
				return value.Int{V: int64(len(l.Elems))}, nil
			},
		},
		value.KindMap: {
			"keys": func(ctx *Context, args []value.Value) (value.Value, error) {
				m, ok := ctx.This().(*value.Map)
				if !ok {
					return nil, ctx.Throw("keys: receiver is not a map")
				}
				out := make([]value.Value, len(m.Keys))
				copy(out, m.Keys)
				return &value.List{Elems: out}, nil
			},
			"delete": func(ctx *Context, args []value.Value) (value.Value, error) {
				m, ok := ctx.This().(*value.Map)
				if !ok || len(args) != 1 {
					return nil, ctx.Throw("delete: expected map receiver and one key")
				}
				return value.BoolOf(m.Delete(args[0])), nil
			},
		},
		value.KindStr: {
			"len": func(ctx *Context, args []value.Value) (value.Value, error) {
				s, ok := ctx.This().(*value.Str)
				if !ok {
					return nil, ctx.Throw("len: receiver is not a str")
				}
				return value.Int{V: int64(len([]rune(string(s.B))))}, nil
			},
		},
	}
	return r
}

// Lookup returns a bound Native value for container.name, or nil if
// container's kind has no such method.
func (r methodRegistry) Lookup(container value.Value, name string) *value.Native {
	table, ok := r[container.Kind()]
	if !ok {
		return nil
	}
	fn, ok := table[name]
	if !ok {
		return nil
	}
	this := container
	return &value.Native{
		Name: name,
		Fn: func(ctxIface interface{}, args []value.Value) (value.Value, error) {
			ctx := ctxIface.(*Context)
			boundCtx := &Context{vm: ctx.vm, frame: ctx.frame, this: this}
			return fn(boundCtx, args)
		},
		Variadic: true,
	}
}
