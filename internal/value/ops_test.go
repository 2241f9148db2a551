package value

import "testing"

func TestEqlCrossTagNumeric(t *testing.T) {
	if !Eql(Int{V: 3}, Num{V: 3.0}) {
		t.Fatal("int(3) should equal num(3.0)")
	}
	if Eql(Int{V: 3}, Num{V: 3.1}) {
		t.Fatal("int(3) should not equal num(3.1)")
	}
}

func TestEqlStructuralList(t *testing.T) {
	a := &List{Elems: []Value{Int{V: 1}, Int{V: 2}}}
	b := &List{Elems: []Value{Int{V: 1}, Int{V: 2}}}
	if !Eql(a, b) {
		t.Fatal("structurally equal lists should compare equal")
	}
	b.Elems[1] = Int{V: 3}
	if Eql(a, b) {
		t.Fatal("lists differing in an element should not compare equal")
	}
}

func TestGetNegativeIndexWraps(t *testing.T) {
	l := &List{Elems: []Value{Int{V: 1}, Int{V: 2}, Int{V: 3}}}
	v, err := Get(l, Int{V: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i, ok := v.(Int)
	if !ok || i.V != 3 {
		t.Fatalf("want int(3), got %#v", v)
	}
}

func TestGetOutOfBounds(t *testing.T) {
	l := &List{Elems: []Value{Int{V: 1}}}
	if _, err := Get(l, Int{V: 5}); err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
}

func TestMapGetSetDelete(t *testing.T) {
	m := NewMap()
	m.Set(NewStr("a"), Int{V: 1})
	v, ok := m.Get(NewStr("a"))
	if !ok {
		t.Fatal("expected key \"a\" to be present")
	}
	if i, ok := v.(Int); !ok || i.V != 1 {
		t.Fatalf("want int(1), got %#v", v)
	}
	if !m.Delete(NewStr("a")) {
		t.Fatal("expected delete to report the key was present")
	}
	if _, ok := m.Get(NewStr("a")); ok {
		t.Fatal("key should be gone after delete")
	}
}

func TestInRangeMembership(t *testing.T) {
	r := &Range{Start: 0, End: 10, Step: 2}
	ok, err := In(Int{V: 4}, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("4 should be in range(0,10,2)")
	}
	ok, err = In(Int{V: 5}, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("5 should not be in range(0,10,2) (off-step)")
	}
}

func TestAsIntToStr(t *testing.T) {
	v, err := As(Int{V: 42}, KindStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := v.(*Str)
	if !ok || s.String() != "42" {
		t.Fatalf("want str(\"42\"), got %#v", v)
	}
}

func TestNewIteratorOverList(t *testing.T) {
	l := &List{Elems: []Value{Int{V: 1}, Int{V: 2}}}
	it, err := NewIterator(l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []int64
	for {
		v, more := it.Next()
		if !more {
			break
		}
		got = append(got, v.(Int).V)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("want [1 2], got %v", got)
	}
}
