// Package value implements ember's runtime value model: a tagged union
// of the dynamically-typed language's runtime types, plus the
// polymorphic operations (equality, indexing, iteration, casting)
// opcodes in internal/vm invoke on them. Each tag is a concrete Go
// type behind one small interface.
package value

// Kind names a Value's runtime tag.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindNum
	KindStr
	KindRange
	KindTuple
	KindList
	KindMap
	KindErr
	KindTagged
	KindFunc
	KindNative
	KindIterator
	KindSpread
	KindFrame
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindNum:
		return "num"
	case KindStr:
		return "str"
	case KindRange:
		return "range"
	case KindTuple:
		return "tuple"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindErr:
		return "err"
	case KindTagged:
		return "tagged"
	case KindFunc:
		return "func"
	case KindNative:
		return "native"
	case KindIterator:
		return "iterator"
	case KindSpread:
		return "spread"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Value is the common interface every runtime tag implements. The
// interface itself carries no behavior beyond identifying its Kind;
// type switches in ops.go do the polymorphic dispatch.
type Value interface {
	Kind() Kind
}

// Null is the single null tag. Use the Null singleton var, never a
// fresh Null{} literal, so pointer/interface identity equality holds.
type Null struct{}

func (Null) Kind() Kind { return KindNull }

// NullValue is the canonical null singleton.
var NullValue Value = Null{}

// Bool is true/false. Use True/False, never fresh literals.
type Bool struct{ B bool }

func (Bool) Kind() Kind { return KindBool }

var (
	True  Value = Bool{B: true}
	False Value = Bool{B: false}
)

// BoolOf returns the canonical True/False singleton for b.
func BoolOf(b bool) Value {
	if b {
		return True
	}
	return False
}

// Int is a signed 64-bit integer.
type Int struct{ V int64 }

func (Int) Kind() Kind { return KindInt }

// Num is an IEEE 754 double.
type Num struct{ V float64 }

func (Num) Kind() Kind { return KindNum }

// Str is a byte sequence. Cap 0 marks borrowed/shared bytes eligible
// for slot reuse by Frame.NewVal.
type Str struct {
	B   []byte
	Cap int
}

func (Str) Kind() Kind { return KindStr }

func NewStr(s string) *Str {
	b := []byte(s)
	return &Str{B: b, Cap: len(b)}
}

// NewBorrowedStr builds a Str with capacity 0, signalling the bytes are
// shared and the slot may be reused by hot arithmetic loops.
func NewBorrowedStr(s string) *Str {
	return &Str{B: []byte(s), Cap: 0}
}

func (s *Str) String() string { return string(s.B) }

// Range is a {start, end, step} iterable. step is never 0 (rejected at
// construction.
type Range struct {
	Start, End, Step int64
}

func (*Range) Kind() Kind { return KindRange }

// Count returns the number of elements the range yields.
func (r *Range) Count() int64 {
	if r.Step > 0 {
		if r.End <= r.Start {
			return 0
		}
		return (r.End - r.Start + r.Step - 1) / r.Step
	}
	if r.Step < 0 {
		if r.End >= r.Start {
			return 0
		}
		return (r.Start - r.End - r.Step - 1) / (-r.Step)
	}
	return 0
}

// Tuple is a fixed-length ordered sequence.
type Tuple struct{ Elems []Value }

func (*Tuple) Kind() Kind { return KindTuple }

// List is a growable ordered sequence.
type List struct{ Elems []Value }

func (*List) Kind() Kind { return KindList }

// Map is an insertion-ordered mapping keyed by structural equality.
// Because Value isn't Go-comparable in general (slices inside Tuple,
// List, Map make it so), Map keeps parallel Keys/Vals slices and does
// linear Eql-based lookup, acceptable for the small maps scripts
// typically build.
type Map struct {
	Keys []Value
	Vals []Value
}

func (*Map) Kind() Kind { return KindMap }

func NewMap() *Map { return &Map{} }

func (m *Map) indexOf(key Value) int {
	for i, k := range m.Keys {
		if Eql(k, key) {
			return i
		}
	}
	return -1
}

func (m *Map) Get(key Value) (Value, bool) {
	i := m.indexOf(key)
	if i < 0 {
		return nil, false
	}
	return m.Vals[i], true
}

func (m *Map) Set(key, val Value) {
	if i := m.indexOf(key); i >= 0 {
		m.Vals[i] = val
		return
	}
	m.Keys = append(m.Keys, key)
	m.Vals = append(m.Vals, val)
}

func (m *Map) Delete(key Value) bool {
	i := m.indexOf(key)
	if i < 0 {
		return false
	}
	m.Keys = append(m.Keys[:i], m.Keys[i+1:]...)
	m.Vals = append(m.Vals[:i], m.Vals[i+1:]...)
	return true
}

func (m *Map) Len() int { return len(m.Keys) }

// Err wraps exactly one thrown payload. An Err must never be silently
// discarded.
type Err struct{ Payload Value }

func (*Err) Kind() Kind { return KindErr }

// Tagged is a named discriminator, {name, payload}. Name is interned
// via the owning module's string pool so Tagged comparisons can use a
// cheap string compare rather than per-access pooling here.
type Tagged struct {
	Name    string
	Payload Value
}

func (*Tagged) Kind() Kind { return KindTagged }

// Func is a compiled closure: the function body lives in its owning
// module's Code array: body is the slice [BodyStart,BodyStart+BodyLen).
type Func struct {
	Name      string
	Module    interface{} // *bytecode.Module; interface{} to avoid an import cycle
	BodyStart uint32
	BodyLen   uint32
	ArgCount  int
	Variadic  bool
	Captures  []Value
}

func (*Func) Kind() Kind { return KindFunc }

// NativeFunc is the host calling convention: fn(ctx, args) -> (Value,
// error), where a throw or a fatal comes back as the error. ctx is
// interface{} here to avoid value depending on
// vm; internal/vm.Context satisfies it by shape at the call site.
type NativeFunc func(ctx interface{}, args []Value) (Value, error)

// Native wraps a host function value.
type Native struct {
	Name     string
	Fn       NativeFunc
	ArgCount int
	Variadic bool
}

func (*Native) Kind() Kind { return KindNative }

// Iterator is opaque per-container iteration state produced by
// iter_init and advanced by iter_next.
type Iterator struct {
	// Next returns the next value and true, or (nil, false) once
	// exhausted. Each container kind supplies its own closure in
	// ops.go's NewIterator.
	Next func() (Value, bool)
}

func (*Iterator) Kind() Kind { return KindIterator }

// Spread is a transient wrapper produced by the spread opcode and
// consumed by the immediately-following aggregate-construction or call
// opcode. It must never survive past that single consumption point.
type Spread struct{ Inner Value }

func (*Spread) Kind() Kind { return KindSpread }

// Frame is a reified reference to a live call frame, used to anchor the
// frame against conservative collection while a native call or a
// pinned closure keeps it alive.
type Frame struct {
	Ptr interface{} // *vm.Frame; interface{} to avoid an import cycle
}

func (*Frame) Kind() Kind { return KindFrame }

// TypeName returns the short stable lowercase tag name for v.
func TypeName(v Value) string {
	if v == nil {
		return "null"
	}
	return v.Kind().String()
}
