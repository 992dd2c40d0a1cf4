// Package scatter implements a non-moving bulk allocator. One logical
// request may be satisfied by several physical spans: holes on the free
// list are filled first, then space is carved from the most recent pool.
// Deallocated spans go on a LIFO free list and are reused before any pool
// grows, which keeps old pools packed and fragmentation bounded by
// allocation cadence. Spans are never moved or merged, so callers may hold
// on to element addresses for the allocator's lifetime.
package scatter

import (
	"math/bits"
	"unsafe"

	"github.com/zeusync/ecs/internal/core/contract"
)

// DefaultStartingSize is the size of the first pool when none is requested.
const DefaultStartingSize = 16

type pool[T any] struct {
	next      *pool[T]
	data      []T
	available int // index of the first unused element
}

type freeBlock[T any] struct {
	next *freeBlock[T]
	span []T
}

// Allocator hands out spans of T. The zero value is not usable; construct
// with New.
type Allocator[T any] struct {
	pools     *pool[T] // newest first
	free      *freeBlock[T]
	startSize int
}

// New returns an allocator whose first pool holds startSize elements.
// A startSize below one falls back to DefaultStartingSize.
func New[T any](startSize int) *Allocator[T] {
	if startSize < 1 {
		startSize = DefaultStartingSize
	}
	return &Allocator[T]{startSize: startSize}
}

// Allocate returns count elements as one or more spans.
func (a *Allocator[T]) Allocate(count int) [][]T {
	var spans [][]T
	a.AllocateFunc(count, func(s []T) {
		spans = append(spans, s)
	})
	return spans
}

// AllocateOne returns a pointer to a single element.
func (a *Allocator[T]) AllocateOne() *T {
	var t *T
	a.AllocateFunc(1, func(s []T) {
		contract.Assert(t == nil && len(s) == 1, "single-element request split")
		t = &s[0]
	})
	return t
}

// AllocateFunc satisfies a request for count elements, yielding each
// physical span through fn as it is found.
func (a *Allocator[T]) AllocateFunc(count int, fn func(span []T)) {
	contract.Pre(count > 0, "allocation count must be positive")
	remaining := count

	// Drain the free list front to back.
	ptr := &a.free
	for *ptr != nil {
		blk := *ptr
		take := min(remaining, len(blk.span))
		if take == 0 {
			ptr = &blk.next
			continue
		}

		fn(blk.span[:take])
		remaining -= take

		if take == len(blk.span) {
			*ptr = blk.next
		} else {
			blk.span = blk.span[take:]
			ptr = &blk.next
		}
		if remaining == 0 {
			return
		}
	}

	// Carve the rest from the pools, newest first.
	p := a.pools
	for remaining > 0 {
		if p == nil {
			p = a.addPool(remaining)
		}

		cur := p
		p = p.next

		take := min(remaining, len(cur.data)-cur.available)
		if take == 0 {
			continue
		}

		fn(cur.data[cur.available : cur.available+take])
		cur.available += take
		remaining -= take
	}
}

// Deallocate returns a span to the free list. The span must have been
// produced by this allocator and not freed already.
func (a *Allocator[T]) Deallocate(span []T) {
	if len(span) == 0 {
		return
	}
	contract.PreAudit(func() bool { return a.owns(span) }, "span not owned by allocator")
	a.free = &freeBlock[T]{next: a.free, span: span}
}

func (a *Allocator[T]) addPool(remaining int) *pool[T] {
	var size int
	if a.pools != nil {
		size = len(a.pools.data) << 1
	} else {
		size = max(1<<bits.Len(uint(remaining)), a.startSize)
	}
	a.pools = &pool[T]{next: a.pools, data: make([]T, size)}
	return a.pools
}

// owns reports whether span lies inside one of the live pools.
func (a *Allocator[T]) owns(span []T) bool {
	sp := uintptr(unsafe.Pointer(unsafe.SliceData(span)))
	var elem T
	end := sp + uintptr(len(span))*unsafe.Sizeof(elem)
	for p := a.pools; p != nil; p = p.next {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(p.data)))
		limit := base + uintptr(len(p.data))*unsafe.Sizeof(elem)
		if sp >= base && end <= limit {
			return true
		}
	}
	return false
}
