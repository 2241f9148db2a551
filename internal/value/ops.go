package value

import (
	"fmt"
	"strconv"
)

// ThrownError is the sentinel error type opcode-level value operations
// return when a value-level operation is invalid for its operands. The
// interpreter's dispatch loop turns this into a throw (redirect to a
// handler) or a fatal. ops.go itself never touches handler stacks.
type ThrownError struct{ Msg string }

func (e *ThrownError) Error() string { return e.Msg }

func Throwf(format string, args ...interface{}) error {
	return &ThrownError{Msg: fmt.Sprintf(format, args...)}
}

// Eql implements structural equality: int/num compare numerically
// across tags, tagged values compare name+payload, err compares
// payload, aggregates compare element-wise, everything else is
// tag+value equality.
func Eql(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	// Cross-tag numeric comparison.
	an, aIsNum := numericOf(a)
	bn, bIsNum := numericOf(b)
	if aIsNum && bIsNum {
		return an == bn
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av.B == b.(Bool).B
	case *Str:
		return string(av.B) == string(b.(*Str).B)
	case *Range:
		bv := b.(*Range)
		return av.Start == bv.Start && av.End == bv.End && av.Step == bv.Step
	case *Tuple:
		bv := b.(*Tuple)
		if len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Eql(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *List:
		bv := b.(*List)
		if len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Eql(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if av.Len() != bv.Len() {
			return false
		}
		for i, k := range av.Keys {
			bval, ok := bv.Get(k)
			if !ok || !Eql(av.Vals[i], bval) {
				return false
			}
		}
		return true
	case *Err:
		return Eql(av.Payload, b.(*Err).Payload)
	case *Tagged:
		bv := b.(*Tagged)
		return av.Name == bv.Name && Eql(av.Payload, bv.Payload)
	case *Func:
		return av == b.(*Func)
	case *Native:
		return av == b.(*Native)
	case *Iterator:
		return av == b.(*Iterator)
	case *Frame:
		return av == b.(*Frame)
	default:
		return a == b
	}
}

func numericOf(v Value) (float64, bool) {
	switch x := v.(type) {
	case Int:
		return float64(x.V), true
	case Num:
		return x.V, true
	}
	return 0, false
}

// In implements `a in b` for str, range, tuple, list, and map receivers.
func In(a, b Value) (bool, error) {
	switch bv := b.(type) {
	case *Str:
		s, ok := a.(*Str)
		if !ok {
			return false, Throwf("in: left operand must be str when searching a str")
		}
		return containsBytes(bv.B, s.B), nil
	case *Tuple:
		for _, e := range bv.Elems {
			if Eql(e, a) {
				return true, nil
			}
		}
		return false, nil
	case *List:
		for _, e := range bv.Elems {
			if Eql(e, a) {
				return true, nil
			}
		}
		return false, nil
	case *Map:
		_, ok := bv.Get(a)
		return ok, nil
	case *Range:
		n, ok := a.(Int)
		if !ok {
			return false, nil
		}
		return rangeContains(bv, n.V), nil
	default:
		return false, Throwf("in: unsupported receiver type %s", TypeName(b))
	}
}

func containsBytes(haystack, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return true
		}
	}
	return false
}

func rangeContains(r *Range, n int64) bool {
	if r.Step > 0 {
		return n >= r.Start && n < r.End && (n-r.Start)%r.Step == 0
	}
	if r.Step < 0 {
		return n <= r.Start && n > r.End && (r.Start-n)%(-r.Step) == 0
	}
	return false
}

// normIndex applies negative-wrap semantics: i < 0 -> i += len.
func normIndex(i int64, length int) (int, error) {
	n := i
	if n < 0 {
		n += int64(length)
	}
	if n < 0 || n >= int64(length) {
		return 0, Throwf("index out of bounds")
	}
	return int(n), nil
}

// Get implements the indexing operator. Method-value exposure is
// layered on top by internal/vm, which calls Get first and falls back
// to its method registry on a "no such key"/"index out of bounds" miss
// only when the index operand is a str (a property name).
func Get(container, index Value) (Value, error) {
	switch c := container.(type) {
	case *Tuple:
		i, ok := index.(Int)
		if !ok {
			return nil, Throwf("index out of bounds")
		}
		n, err := normIndex(i.V, len(c.Elems))
		if err != nil {
			return nil, err
		}
		return c.Elems[n], nil
	case *List:
		i, ok := index.(Int)
		if !ok {
			return nil, Throwf("index out of bounds")
		}
		n, err := normIndex(i.V, len(c.Elems))
		if err != nil {
			return nil, err
		}
		return c.Elems[n], nil
	case *Map:
		v, ok := c.Get(index)
		if !ok {
			return nil, Throwf("no such key")
		}
		return v, nil
	case *Str:
		if s, ok := index.(*Str); ok && string(s.B) == "len" {
			return Int{V: int64(len(runesOf(c.B)))}, nil
		}
		i, ok := index.(Int)
		if !ok {
			return nil, Throwf("index out of bounds")
		}
		runes := runesOf(c.B)
		n, err := normIndex(i.V, len(runes))
		if err != nil {
			return nil, err
		}
		return NewStr(string(runes[n])), nil
	default:
		return nil, Throwf("get: unsupported receiver type %s", TypeName(container))
	}
}

func runesOf(b []byte) []rune { return []rune(string(b)) }

// Set implements the set-indexing operator for list/tuple/map.
func Set(container, index, val Value) error {
	switch c := container.(type) {
	case *Tuple:
		i, ok := index.(Int)
		if !ok {
			return Throwf("index out of bounds")
		}
		n, err := normIndex(i.V, len(c.Elems))
		if err != nil {
			return err
		}
		c.Elems[n] = val
		return nil
	case *List:
		i, ok := index.(Int)
		if !ok {
			return Throwf("index out of bounds")
		}
		n, err := normIndex(i.V, len(c.Elems))
		if err != nil {
			return err
		}
		c.Elems[n] = val
		return nil
	case *Map:
		c.Set(index, val)
		return nil
	default:
		return Throwf("set: unsupported receiver type %s", TypeName(container))
	}
}

// NewIterator implements iterator(v): codepoints for
// str, ints for range, elements for tuple/list, key/value tuples for
// map.
func NewIterator(v Value) (*Iterator, error) {
	switch c := v.(type) {
	case *Str:
		runes := runesOf(c.B)
		i := 0
		return &Iterator{Next: func() (Value, bool) {
			if i >= len(runes) {
				return nil, false
			}
			r := NewStr(string(runes[i]))
			i++
			return r, true
		}}, nil
	case *Range:
		cur := c.Start
		return &Iterator{Next: func() (Value, bool) {
			if c.Step > 0 && cur >= c.End {
				return nil, false
			}
			if c.Step < 0 && cur <= c.End {
				return nil, false
			}
			v := Int{V: cur}
			cur += c.Step
			return v, true
		}}, nil
	case *Tuple:
		i := 0
		return &Iterator{Next: func() (Value, bool) {
			if i >= len(c.Elems) {
				return nil, false
			}
			v := c.Elems[i]
			i++
			return v, true
		}}, nil
	case *List:
		i := 0
		return &Iterator{Next: func() (Value, bool) {
			if i >= len(c.Elems) {
				return nil, false
			}
			v := c.Elems[i]
			i++
			return v, true
		}}, nil
	case *Map:
		i := 0
		return &Iterator{Next: func() (Value, bool) {
			if i >= len(c.Keys) {
				return nil, false
			}
			pair := &Tuple{Elems: []Value{c.Keys[i], c.Vals[i]}}
			i++
			return pair, true
		}}, nil
	default:
		return nil, Throwf("iterator: unsupported type %s", TypeName(v))
	}
}

// As implements explicit coercion.
func As(v Value, target Kind) (Value, error) {
	switch target {
	case KindInt:
		switch x := v.(type) {
		case Int:
			return x, nil
		case Num:
			return Int{V: int64(x.V)}, nil
		case *Str:
			n, err := strconv.ParseInt(string(x.B), 10, 64)
			if err != nil {
				return nil, Throwf("cannot cast str to int: %v", err)
			}
			return Int{V: n}, nil
		}
	case KindNum:
		switch x := v.(type) {
		case Int:
			return Num{V: float64(x.V)}, nil
		case Num:
			return x, nil
		case *Str:
			n, err := strconv.ParseFloat(string(x.B), 64)
			if err != nil {
				return nil, Throwf("cannot cast str to num: %v", err)
			}
			return Num{V: n}, nil
		}
	case KindStr:
		switch x := v.(type) {
		case Int:
			return NewStr(strconv.FormatInt(x.V, 10)), nil
		case Num:
			return NewStr(strconv.FormatFloat(x.V, 'g', -1, 64)), nil
		case *Str:
			return x, nil
		}
	case KindTuple:
		switch x := v.(type) {
		case *Tuple:
			return x, nil
		case *List:
			elems := make([]Value, len(x.Elems))
			copy(elems, x.Elems)
			return &Tuple{Elems: elems}, nil
		}
	case KindList:
		switch x := v.(type) {
		case *List:
			return x, nil
		case *Tuple:
			elems := make([]Value, len(x.Elems))
			copy(elems, x.Elems)
			return &List{Elems: elems}, nil
		}
	}
	return nil, Throwf("cannot cast %s to %s", TypeName(v), target)
}
