package vm

import "ember/internal/bytecode"

// handler is a {target_ref, jump_offset} record: where to store a
// thrown error and where to resume execution.3.
type handler struct {
	TargetRef bytecode.Ref
	Offset    uint32
}

// inlineHandlerCap is the small-buffer size: most functions have at
// most a handful of handlers live at once, so the common case avoids a
// heap allocation entirely.
const inlineHandlerCap = 4

// ErrorHandlerStack is a per-frame stack of handler records, backed by
// an inline array up to inlineHandlerCap entries and a growable slice
// beyond that. The transition from inline to heap-backed happens once
// and never reverses within a frame's lifetime; Reset returns it to the
// inline state for reuse via FrameCache.
type ErrorHandlerStack struct {
	inline    [inlineHandlerCap]handler
	inlineLen int

	heap []handler // nil until size exceeds inlineHandlerCap
}

// Push appends a handler, promoting to the heap-backed representation
// the first time size would exceed inlineHandlerCap.
func (s *ErrorHandlerStack) Push(h handler) {
	if s.heap != nil {
		s.heap = append(s.heap, h)
		return
	}
	if s.inlineLen < inlineHandlerCap {
		s.inline[s.inlineLen] = h
		s.inlineLen++
		return
	}
	// Promote: copy the inline entries into a growable slice.
	s.heap = make([]handler, s.inlineLen, s.inlineLen*2+1)
	copy(s.heap, s.inline[:s.inlineLen])
	s.heap = append(s.heap, h)
}

// Pop removes and returns the top handler. Asserts non-empty: popping
// an empty stack panics. The throw paths call Pop only after Top has
// reported a handler; pop_err_handler pops without checking.
func (s *ErrorHandlerStack) Pop() handler {
	if s.heap != nil {
		h := s.heap[len(s.heap)-1]
		s.heap = s.heap[:len(s.heap)-1]
		return h
	}
	s.inlineLen--
	return s.inline[s.inlineLen]
}

// Top returns the top handler and true, or the zero value and false if
// empty.
func (s *ErrorHandlerStack) Top() (handler, bool) {
	if s.heap != nil {
		if len(s.heap) == 0 {
			return handler{}, false
		}
		return s.heap[len(s.heap)-1], true
	}
	if s.inlineLen == 0 {
		return handler{}, false
	}
	return s.inline[s.inlineLen-1], true
}

func (s *ErrorHandlerStack) Len() int {
	if s.heap != nil {
		return len(s.heap)
	}
	return s.inlineLen
}

// Reset truncates the stack to empty and drops any heap-backed slice,
// returning it to the inline representation. Promotion is never undone
// within a frame's life; Reset runs on frame-cache release so a reused
// frame starts inline again, since nothing about a fresh call warrants
// carrying over the previous occupant's heap allocation.
func (s *ErrorHandlerStack) Reset() {
	s.inlineLen = 0
	s.heap = nil
}
