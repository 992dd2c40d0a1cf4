// Package powerlist implements a sorted singly-linked list whose nodes
// carry a second, long-range forward pointer. The skip pointers form a
// power-of-two jump structure that makes Find cost O(log n) comparisons;
// they are rebuilt lazily, with the cost paid during one ordered traversal.
//
// By convention the head's skip pointer addresses the tail. Nodes are
// drawn from a scatter allocator and never move once linked, so callers
// may hold node values across later inserts.
package powerlist

import (
	"container/heap"
	"math/bits"
	"unsafe"

	"github.com/zeusync/ecs/internal/core/contract"
	"github.com/zeusync/ecs/pkg/scatter"
)

type node[T any] struct {
	next [2]*node[T] // next[0] is the successor, next[1] the skip
	data T
	dead bool // erased; stale skips pointing here are not taken
}

// List is a sorted container over T with O(log n) search. The zero value
// is not usable; construct with New.
type List[T any] struct {
	head           *node[T]
	count          int
	needsRebalance bool
	less           func(a, b T) bool
	alloc          *scatter.Allocator[node[T]]

	// Nodes erased since the last completed rebalance. Stale skip
	// pointers may still land on them, so their memory is not recycled
	// until the skips have been rebuilt.
	pendingFree []*node[T]
}

// New returns an empty list ordered by the strict less function.
func New[T any](less func(a, b T) bool) *List[T] {
	return &List[T]{
		less:  less,
		alloc: scatter.New[node[T]](scatter.DefaultStartingSize),
	}
}

// Len returns the number of elements.
func (l *List[T]) Len() int {
	return l.count
}

// Empty reports whether the list holds no elements.
func (l *List[T]) Empty() bool {
	return l.head == nil
}

// Front returns the smallest element. The list must not be empty.
func (l *List[T]) Front() T {
	contract.Pre(l.head != nil, "Front on an empty list")
	return l.head.data
}

// Back returns the largest element. The list must not be empty.
func (l *List[T]) Back() T {
	contract.Pre(l.head != nil, "Back on an empty list")
	return l.head.next[1].data
}

// Clear drops every element and releases the node storage.
func (l *List[T]) Clear() {
	l.head = nil
	l.count = 0
	l.needsRebalance = false
	l.pendingFree = nil
	l.alloc = scatter.New[node[T]](scatter.DefaultStartingSize)
}

// Insert adds val, keeping the list sorted. Duplicates are kept.
func (l *List[T]) Insert(val T) {
	n := l.alloc.AllocateOne()
	*n = node[T]{data: val}

	switch {
	case l.head == nil:
		l.head = n
		l.head.next[1] = n // a lone node is its own tail
	case l.less(val, l.head.data):
		n.next[0] = l.head
		n.next[1] = l.head.next[1]
		l.head = n
	case l.less(l.head.next[1].data, val):
		last := l.head.next[1]
		last.next[0] = n
		last.next[1] = n
		l.head.next[1] = n
	default:
		curr, prev := l.lowerBoundNode(val)
		if prev == nil {
			n.next[0] = l.head
			n.next[1] = l.head.next[1]
			l.head = n
		} else {
			prev.next[0] = n
			n.next[0] = curr
			n.next[1] = curr.next[1]
		}
	}

	l.count++
	l.needsRebalance = true
}

// Remove erases the first element equal to val, if present.
func (l *List[T]) Remove(val T) {
	curr, prev := l.findNode(val)
	l.eraseNode(curr, prev)
}

// Erase removes the element the iterator is positioned on.
func (l *List[T]) Erase(it *Iterator[T]) {
	l.eraseNode(it.curr, it.prev)
}

func (l *List[T]) eraseNode(n, prev *node[T]) {
	if n == nil {
		return
	}

	next := n.next[0]
	if prev == nil { // head
		if next != nil {
			tail := l.head.next[1]
			next.next[1] = tail
		}
		l.head = next
	} else {
		if next == nil { // tail
			l.head.next[1] = prev
		}
		prev.next[0] = next
	}

	n.dead = true
	l.count--
	l.needsRebalance = true
	l.pendingFree = append(l.pendingFree, n)
}

// Contains reports whether val is in the list.
func (l *List[T]) Contains(val T) bool {
	n, _ := l.findNode(val)
	return n != nil
}

// Find returns an iterator positioned on the first element equal to val,
// or an invalid iterator when absent.
func (l *List[T]) Find(val T) *Iterator[T] {
	n, prev := l.findNode(val)
	return &Iterator[T]{list: l, curr: n, prev: prev}
}

// LowerBound returns an iterator on the first element not less than val,
// or an invalid iterator when every element is less.
func (l *List[T]) LowerBound(val T) *Iterator[T] {
	n, prev := l.lowerBoundNode(val)
	return &Iterator[T]{list: l, curr: n, prev: prev}
}

func (l *List[T]) findNode(val T) (*node[T], *node[T]) {
	if l.head == nil || l.less(val, l.head.data) || l.less(l.head.next[1].data, val) {
		return nil, nil
	}
	n, prev := l.lowerBoundNode(val)
	if n == nil || l.less(val, n.data) {
		return nil, nil
	}
	return n, prev
}

// lowerBoundNode descends the jump structure. A skip is taken only when
// its target is live and still strictly below val, so a landing never
// overshoots and the returned prev is always the true predecessor.
func (l *List[T]) lowerBoundNode(val T) (*node[T], *node[T]) {
	if l.head == nil {
		return nil, nil
	}
	if l.less(val, l.head.data) {
		return l.head, nil
	}

	n := l.head
	var prev *node[T]
	for n.next[0] != nil && l.less(n.next[0].data, val) {
		prev = n
		if n.next[1] != nil && !n.next[1].dead && l.less(n.next[1].data, val) {
			n = n.next[1]
		} else {
			n = n.next[0]
		}
	}
	if l.less(n.data, val) {
		if n.next[0] == nil {
			return nil, nil // val is beyond the tail
		}
		prev = n
		n = n.next[0]
	}
	return n, prev
}

// AssignSlice replaces the contents with the sorted slice, building all
// nodes from a single allocation and balancing the skips immediately.
func (l *List[T]) AssignSlice(sorted []T) {
	contract.Pre(isSorted(sorted, l.less), "input slice must be sorted")
	l.Clear()
	if len(sorted) == 0 {
		return
	}

	l.count = len(sorted)
	var span []node[T]
	l.alloc.AllocateFunc(l.count, func(s []node[T]) {
		contract.Assert(span == nil, "bulk build expects a single span")
		span = s
	})
	contract.Post(len(span) == l.count, "allocation failed")

	for i := range span {
		var next *node[T]
		if i+1 < len(span) {
			next = &span[i+1]
		}
		span[i] = node[T]{next: [2]*node[T]{next, next}, data: sorted[i]}
	}
	l.head = &span[0]
	l.head.next[1] = &span[len(span)-1]
	l.needsRebalance = true
	l.Rebalance()
}

// Rebalance rebuilds the skip pointers in one traversal. Insert and erase
// only mark the list; calling this (or completing a mutating iteration)
// pays the debt.
func (l *List[T]) Rebalance() {
	if l.head != nil && l.needsRebalance {
		h := newBalanceHelper(l.head, l.count)
		for h.valid() {
			h.advance()
		}
		h.finish()
	}
	l.finishRebalance()
}

// finishRebalance clears the rebalance flag and recycles nodes that were
// unreachable only through stale skips.
func (l *List[T]) finishRebalance() {
	l.needsRebalance = false
	for _, n := range l.pendingFree {
		l.alloc.Deallocate(unsafe.Slice(n, 1))
	}
	l.pendingFree = nil
}

// Each walks the elements in order without side effects; a list left
// unbalanced stays unbalanced. Iteration stops early if fn returns false.
func (l *List[T]) Each(fn func(T) bool) {
	for n := l.head; n != nil; n = n.next[0] {
		if !fn(n.data) {
			return
		}
	}
}

// Iterator walks the list in order. An iterator obtained from Iter on an
// unbalanced list rebalances it in-stream: finishing the traversal leaves
// the skip structure rebuilt.
type Iterator[T any] struct {
	list   *List[T]
	curr   *node[T]
	prev   *node[T]
	helper *balanceHelper[T]
}

// Iter returns an iterator on the first element, carrying a rebalance
// helper when the list needs one.
func (l *List[T]) Iter() *Iterator[T] {
	it := &Iterator[T]{list: l, curr: l.head}
	if l.needsRebalance && l.head != nil {
		it.helper = newBalanceHelper(l.head, l.count)
	}
	return it
}

// Valid reports whether the iterator is positioned on an element.
func (it *Iterator[T]) Valid() bool {
	return it.curr != nil
}

// Value returns the current element.
func (it *Iterator[T]) Value() T {
	contract.Pre(it.curr != nil, "dereferencing an exhausted iterator")
	return it.curr.data
}

// Prev returns the element preceding the iterator's position, when known.
func (it *Iterator[T]) Prev() (T, bool) {
	if it.prev == nil {
		var zero T
		return zero, false
	}
	return it.prev.data, true
}

// Next advances to the successor, performing one step of the in-stream
// rebalance when one is attached.
func (it *Iterator[T]) Next() {
	contract.Pre(it.curr != nil, "stepping past the end of the list")
	if it.helper != nil && it.helper.valid() {
		it.helper.advance()
	}
	it.prev = it.curr
	it.curr = it.curr.next[0]
	if it.curr == nil && it.helper != nil {
		it.helper.finish()
		it.helper = nil
		it.list.finishRebalance()
	}
}

// stepper installs one power-of-two stride of skip pointers. The heap
// keeps the stepper with the smallest pending target on top.
type stepper[T any] struct {
	target int
	size   int
	from   *node[T]
}

type stepperHeap[T any] []stepper[T]

func (h stepperHeap[T]) Len() int            { return len(h) }
func (h stepperHeap[T]) Less(i, j int) bool  { return h[i].target < h[j].target }
func (h stepperHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stepperHeap[T]) Push(x any)         { *h = append(*h, x.(stepper[T])) }
func (h *stepperHeap[T]) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]
	return s
}

type balanceHelper[T any] struct {
	curr     *node[T]
	index    int
	steppers stepperHeap[T]
}

func newBalanceHelper[T any](head *node[T], count int) *balanceHelper[T] {
	logN := bits.Len(uint(count - 1))
	h := &balanceHelper[T]{curr: head, steppers: make(stepperHeap[T], 0, logN)}

	cur := head
	step := count
	for i := 0; i < logN; i++ {
		h.steppers = append(h.steppers, stepper[T]{target: i + step, size: step, from: cur})
		cur = cur.next[0]
		step >>= 1
	}
	heap.Init(&h.steppers)
	return h
}

func (h *balanceHelper[T]) valid() bool {
	return h.curr != nil && h.curr.next[0] != nil
}

// advance installs every stepper due at the current position and moves on.
// Interior nodes get their stale skip cleared as they are passed; the head
// keeps its tail pointer until finish re-anchors it.
func (h *balanceHelper[T]) advance() {
	contract.Assert(h.valid(), "advance called on a finished balance helper")
	if h.index > 0 {
		h.curr.next[1] = nil
	}
	for len(h.steppers) > 0 && h.steppers[0].target == h.index {
		s := &h.steppers[0]
		s.from.next[1] = h.curr.next[0]
		s.from = h.curr
		s.target += s.size
		heap.Fix(&h.steppers, 0)
	}
	h.curr = h.curr.next[0]
	h.index++
}

// finish drains the remaining positions and points every stepper's anchor
// at the last node, which restores the head-to-tail convention.
func (h *balanceHelper[T]) finish() {
	for h.valid() {
		h.advance()
	}
	if h.curr != nil && h.index > 0 {
		h.curr.next[1] = nil
	}
	for i := range h.steppers {
		h.steppers[i].from.next[1] = h.curr
	}
}

func isSorted[T any](s []T, less func(a, b T) bool) bool {
	for i := 1; i < len(s); i++ {
		if less(s[i], s[i-1]) {
			return false
		}
	}
	return true
}
