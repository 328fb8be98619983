package jsonrpc

import "sync/atomic"

// IDAllocator hands out increasing integer IDs. Each session owns one, so IDs
// are unique within the session regardless of how requests are grouped.
type IDAllocator struct {
	next atomic.Int64
}

// NewIDAllocator returns an allocator whose first ID is start.
func NewIDAllocator(start int) *IDAllocator {
	a := &IDAllocator{}
	a.next.Store(int64(start))
	return a
}

// Next returns a fresh ID.
func (a *IDAllocator) Next() ID {
	n := a.next.Add(1) - 1
	return IntID(int(n))
}
