package vm

import "ember/internal/value"

// cachedPair is one reusable (stack, handler-stack) pair. Keyed by
// nothing — is explicit that any frame may reuse any
// entry, since neither a stack nor a handler-stack retains meaning
// after its owning frame returns.
type cachedPair struct {
	stack    []value.Value
	handlers ErrorHandlerStack
}

// FrameCache is a LIFO pool, one per VM, amortizing allocation across
// recursive calls. It is a pure performance
// optimization: correctness requires only that entries are truncated
// to zero length before reuse, which Frame.ReleaseToCache guarantees.
type FrameCache struct {
	pool []cachedPair
}

func NewFrameCache() *FrameCache { return &FrameCache{} }

// Acquire pops a cached pair if one is available, else returns a fresh
// empty pair.
func (c *FrameCache) Acquire() ([]value.Value, ErrorHandlerStack) {
	n := len(c.pool)
	if n == 0 {
		return nil, ErrorHandlerStack{}
	}
	p := c.pool[n-1]
	c.pool = c.pool[:n-1]
	return p.stack, p.handlers
}

// Release returns a (stack, handler-stack) pair to the pool. Callers
// must have already truncated both to zero length (Frame.ReleaseToCache
// does this).
func (c *FrameCache) Release(stack []value.Value, handlers ErrorHandlerStack) {
	c.pool = append(c.pool, cachedPair{stack: stack, handlers: handlers})
}

// Len reports the number of pairs currently cached, for tests.
func (c *FrameCache) Len() int { return len(c.pool) }
