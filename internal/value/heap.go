package value

import "fmt"

// PageSize is the accounting unit the page budget is denominated in.
const PageSize = 1 << 20

// DefaultPageBudget is the default 2048-page (2 GiB) collector budget.
const DefaultPageBudget = 2048

// OutOfMemoryError is returned by Heap.Alloc once the page budget is
// exhausted. It is always a fatal error at the interpreter level.
type OutOfMemoryError struct {
	PagesUsed, PageBudget int
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("out of memory: %d/%d pages used", e.PagesUsed, e.PageBudget)
}

// Heap supplies freshly allocated value slots and enforces a
// page-count budget. It is deliberately collection-policy-agnostic:
// this bump accountant tracks bytes and refuses to exceed its budget,
// but never reclaims anything itself. A real embedder plugs a
// collector in by calling Heap.Reclaim between Alloc calls.
type Heap struct {
	pageBudget int
	bytesUsed  int64

	// stackProtectStart is the sentinel captured on entry, used by a
	// conservative collector to bound root scanning of the native call
	// stack. The core never dereferences it; it is only
	// ever handed to a collector.
	stackProtectStart uintptrStub
}

// uintptrStub stands in for the native stack-pointer sentinel a real
// conservative collector would capture. The core treats it as opaque.
type uintptrStub struct{ addr uint64 }

// NewHeap creates a heap with the given page budget.
func NewHeap(pageBudget int) *Heap {
	if pageBudget <= 0 {
		pageBudget = DefaultPageBudget
	}
	return &Heap{pageBudget: pageBudget}
}

// StackProtectStart records addr as the conservative-scan sentinel.
// Nothing in the core calls it; a collector-aware embedder calls it once
// per native call-stack entry point.
func (h *Heap) StackProtectStart(addr uint64) {
	h.stackProtectStart = uintptrStub{addr: addr}
}

// budgetBytes returns the byte ceiling implied by the page budget.
func (h *Heap) budgetBytes() int64 { return int64(h.pageBudget) * PageSize }

// account charges n bytes against the page budget, returning
// OutOfMemoryError if doing so would exceed it.
func (h *Heap) account(n int64) error {
	if h.bytesUsed+n > h.budgetBytes() {
		return &OutOfMemoryError{
			PagesUsed:  int((h.bytesUsed + n + PageSize - 1) / PageSize),
			PageBudget: h.pageBudget,
		}
	}
	h.bytesUsed += n
	return nil
}

// sizeOf estimates a value's heap footprint for budget accounting.
// Approximate on purpose — this is a budget accountant, not a real
// allocator, so precision is not the point.
func sizeOf(v Value) int64 {
	const wordSize = 16
	switch x := v.(type) {
	case *Str:
		return int64(cap(x.B)) + wordSize
	case *Tuple:
		return int64(len(x.Elems))*wordSize + wordSize
	case *List:
		return int64(cap(x.Elems))*wordSize + wordSize
	case *Map:
		return int64(len(x.Keys))*wordSize*2 + wordSize
	default:
		return wordSize
	}
}

// Reclaim reduces the tracked byte usage, simulating a collection pass
// freeing n bytes. A pluggable collector calls this after a sweep; the
// heap itself never decides when to invoke one.
func (h *Heap) Reclaim(n int64) {
	h.bytesUsed -= n
	if h.bytesUsed < 0 {
		h.bytesUsed = 0
	}
}

// Alloc charges v's estimated size against the page budget and returns
// v itself: Go values are heap objects already, so the "slot" is simply
// the returned interface. It fails with OutOfMemoryError once the
// budget would be exceeded.
func (h *Heap) Alloc(v Value) (Value, error) {
	if err := h.account(sizeOf(v)); err != nil {
		return nil, err
	}
	return v, nil
}

// Dupe returns a freshly allocated shallow copy of v. Aggregates are
// copied one level deep (their elements keep referential identity);
// simple scalars are copied by value.
func (h *Heap) Dupe(v Value) (Value, error) {
	var out Value
	switch x := v.(type) {
	case Null, Bool, Int, Num:
		out = v
	case *Str:
		b := make([]byte, len(x.B))
		copy(b, x.B)
		out = &Str{B: b, Cap: len(b)}
	case *Range:
		r := *x
		out = &r
	case *Tuple:
		elems := make([]Value, len(x.Elems))
		copy(elems, x.Elems)
		out = &Tuple{Elems: elems}
	case *List:
		elems := make([]Value, len(x.Elems))
		copy(elems, x.Elems)
		out = &List{Elems: elems}
	case *Map:
		keys := make([]Value, len(x.Keys))
		vals := make([]Value, len(x.Vals))
		copy(keys, x.Keys)
		copy(vals, x.Vals)
		out = &Map{Keys: keys, Vals: vals}
	case *Err:
		out = &Err{Payload: x.Payload}
	case *Tagged:
		out = &Tagged{Name: x.Name, Payload: x.Payload}
	default:
		// func/native/iterator/frame are reference-semantic in the
		// source language; duping them duplicates the handle, not the
		// underlying identity.
		out = v
	}
	return h.Alloc(out)
}

// IsSimple reports whether v's tag is among the set Frame.NewVal and
// Frame.DupeSimple treat as reusable in place: int, num,
// range, native, or a str with capacity 0.
func IsSimple(v Value) bool {
	switch x := v.(type) {
	case Int, Num, *Range, *Native:
		return true
	case *Str:
		return x.Cap == 0
	default:
		return false
	}
}
