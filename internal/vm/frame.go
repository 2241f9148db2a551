package vm

import (
	"ember/internal/bytecode"
	"ember/internal/diag"
	"ember/internal/value"
)

// uninitialized is the sentinel written into newly-grown stack holes.
// It is distinct from value.NullValue so pop_err_handler can tell
// "nothing stored here yet" apart from an explicit null result.
type uninitializedT struct{}

func (uninitializedT) Kind() value.Kind { return value.KindNull }

var uninitialized value.Value = uninitializedT{}

func isUninitialized(v value.Value) bool {
	_, ok := v.(uninitializedT)
	return ok
}

// Frame is the dynamic activation record of one call.4.
// It owns its evaluation stack (indexed by Ref), its error-handler
// stack, and points at its caller to form the implicit call chain
// fatal-error unwinding walks.
type Frame struct {
	module *bytecode.Module

	stack    []value.Value
	handlers ErrorHandlerStack

	captures []value.Value
	this     value.Value

	caller *Frame
	// moduleFrame is the root frame of the module this call belongs to
	// (used by load_global, which indexes into the *module* frame's
	// stack, not the current call's).
	moduleFrame *Frame

	ip int

	paramCount int

	// reporter accumulates the diagnostics a fatal error's unwind walk
	// produces, shared by every frame in one Run() invocation.
	reporter *diag.Reporter

	// funcName labels this frame's "called here" trace entry.
	funcName string
}

// NewFrame builds a frame for a fresh call with an empty stack. Callers
// typically hand it a stack/handler pair borrowed from a FrameCache via
// Adopt right after this returns.
func NewFrame(module *bytecode.Module, caller *Frame, this value.Value, captures []value.Value, paramCount int, reporter *diag.Reporter, funcName string) *Frame {
	f := &Frame{
		module:     module,
		caller:     caller,
		this:       this,
		captures:   captures,
		paramCount: paramCount,
		reporter:   reporter,
		funcName:   funcName,
	}
	if caller != nil {
		f.moduleFrame = caller.moduleFrame
	} else {
		f.moduleFrame = f
	}
	return f
}

// Adopt transfers ownership of a cached stack+handler pair into this
// frame (FrameCache's reuse path, ).
func (f *Frame) Adopt(stack []value.Value, handlers ErrorHandlerStack) {
	f.stack = stack
	f.handlers = handlers
}

// EnsureCapacity grows the stack to at least n slots, filling new holes
// with the uninitialized sentinel.
func (f *Frame) EnsureCapacity(n int) {
	if n <= len(f.stack) {
		return
	}
	grown := make([]value.Value, n)
	copy(grown, f.stack)
	for i := len(f.stack); i < n; i++ {
		grown[i] = uninitialized
	}
	f.stack = grown
}

// Val reads the value at ref. Asserts ref is in bounds — an
// out-of-bounds read is an interpreter bug, not a user-level thrown
// error, so this panics rather than threading an error return through
// every read site.
func (f *Frame) Val(ref bytecode.Ref) value.Value {
	if int(ref) >= len(f.stack) {
		panic("ref out of bounds")
	}
	return f.stack[ref]
}

// NewRef returns a writable slot at ref, growing the stack if needed.
func (f *Frame) NewRef(ref bytecode.Ref) *value.Value {
	f.EnsureCapacity(int(ref) + 1)
	return &f.stack[ref]
}

// Set stores val at ref, growing the stack if needed.
func (f *Frame) Set(ref bytecode.Ref, val value.Value) {
	f.EnsureCapacity(int(ref) + 1)
	f.stack[ref] = val
}

// NewVal reuses the existing slot at ref when its tag is "simple"
// (int/num/range/native, or a str with capacity 0); otherwise it
// returns nil, signalling the caller should heap-allocate instead. This
// is hot-arithmetic-loop shortcut.
func (f *Frame) NewVal(ref bytecode.Ref) value.Value {
	if int(ref) >= len(f.stack) {
		return nil
	}
	cur := f.stack[ref]
	if cur != nil && value.IsSimple(cur) {
		return cur
	}
	return nil
}

// DupeSimple clones the value at ref via heap if it is one of the
// "simple" tags, so aggregate members never alias per-loop scratch
// slots.
func (f *Frame) DupeSimple(heap *value.Heap, ref bytecode.Ref) (value.Value, error) {
	v := f.Val(ref)
	if !value.IsSimple(v) {
		return v, nil
	}
	return heap.Dupe(v)
}

// Int/Num/Bool are typed readers that throw (see Throw) on a tag
// mismatch. The returned error is nil on success, thrownControl{} when
// a handler intercepted the throw (the caller should treat this as
// "skip this opcode's effect and continue" — ip is already
// redirected), or a *diag.FatalError that must propagate up like any
// other step() error.
func (f *Frame) Int(ref bytecode.Ref) (int64, error) {
	v := f.Val(ref)
	if i, ok := v.(value.Int); ok {
		return i.V, nil
	}
	return 0, f.Throw("expected int, got " + value.TypeName(v))
}

func (f *Frame) Num(ref bytecode.Ref) (float64, error) {
	v := f.Val(ref)
	switch x := v.(type) {
	case value.Num:
		return x.V, nil
	case value.Int:
		return float64(x.V), nil
	}
	return 0, f.Throw("expected num, got " + value.TypeName(v))
}

func (f *Frame) Bool(ref bytecode.Ref) (bool, error) {
	v := f.Val(ref)
	if b, ok := v.(value.Bool); ok {
		return b.B, nil
	}
	return false, f.Throw("expected bool, got " + value.TypeName(v))
}

// thrownControl is a private sentinel error thrown/fatal use to signal
// the dispatch loop that it already redirected ip, vs. returning a
// real fatal that should unwind everything. It is never exposed
// outside this package.
type thrownControl struct{}

func (thrownControl) Error() string { return "thrown: handled" }

// Throw implements : if a handler is present on this
// frame, store an err-wrapped string at the handler's target ref and
// jump; else escalate to Fatal.
func (f *Frame) Throw(msg string) error {
	if h, ok := f.handlers.Top(); ok {
		f.handlers.Pop()
		f.Set(h.TargetRef, &value.Err{Payload: value.NewStr(msg)})
		f.ip = int(h.Offset)
		return thrownControl{}
	}
	return f.Fatal(msg)
}

// Fatal implements : record a diagnostic with source
// position derived from ip-1 and the module's line table, recursively
// annotate every caller frame with a "called here" trace entry, and
// return a FatalError.
func (f *Frame) Fatal(msg string) error {
	pos := diag.SourcePos{Path: f.module.Path}
	if f.ip > 0 {
		pos.ByteOffset = f.module.Debug.ByteOffset(f.ip - 1)
	}
	d := &diag.Diagnostic{
		Kind:        diag.KindErr,
		Message:     msg,
		Pos:         pos,
		SourceBytes: f.module.Debug.SourceBytes,
	}
	for c := f.caller; c != nil; c = c.caller {
		callPos := diag.SourcePos{Path: c.module.Path}
		if c.ip > 0 {
			callPos.ByteOffset = c.module.Debug.ByteOffset(c.ip - 1)
		}
		d.AddTrace(c.funcName, callPos)
	}
	if f.reporter != nil {
		f.reporter.Report(d)
	}
	return &diag.FatalError{Diagnostic: d}
}

// Caller returns the frame that invoked this one, or nil at the root.
func (f *Frame) Caller() *Frame { return f.caller }

// ModuleFrame returns the frame load_global indexes into.
func (f *Frame) ModuleFrame() *Frame { return f.moduleFrame }

// Capture returns the idx'th captured value.
func (f *Frame) Capture(idx int) value.Value {
	if idx < 0 || idx >= len(f.captures) {
		return value.NullValue
	}
	return f.captures[idx]
}

// This returns the frame's this-binding.
func (f *Frame) This() value.Value {
	if f.this == nil {
		return value.NullValue
	}
	return f.this
}

// PushHandler pushes a handler and pre-clears its target-ref slot, per
// push_err_handler: clearing lets pop_err_handler detect "no
// error was thrown" by checking for the uninitialized sentinel.
func (f *Frame) PushHandler(target bytecode.Ref, offset uint32) {
	f.Set(target, uninitialized)
	f.handlers.Push(handler{TargetRef: target, Offset: offset})
}

// PopHandler pops the top handler and reports whether its target-ref
// slot is still uninitialized (meaning no error was thrown in the
// protected region).
func (f *Frame) PopHandler() (target bytecode.Ref, wasThrown bool) {
	h := f.handlers.Pop()
	return h.TargetRef, !isUninitialized(f.Val(h.TargetRef))
}

// ReleaseToCache truncates the stack and handler-stack to zero length
// (not just resets a length field) so no dangling value reference
// survives into the next borrower, and returns both for FrameCache to
// store. Correctness hinges on this truncation.
func (f *Frame) ReleaseToCache() ([]value.Value, ErrorHandlerStack) {
	for i := range f.stack {
		f.stack[i] = nil
	}
	stack := f.stack[:0]
	handlers := f.handlers
	handlers.Reset()
	f.stack = nil
	return stack, handlers
}

// IP / SetIP let the dispatch loop read and redirect the instruction
// pointer (e.g. after Throw already redirected it, or for jump
// opcodes).
func (f *Frame) IP() int      { return f.ip }
func (f *Frame) SetIP(ip int) { f.ip = ip }

// Module returns the frame's owning module.
func (f *Frame) Module() *bytecode.Module { return f.module }
