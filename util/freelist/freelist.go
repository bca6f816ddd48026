package freelist

import (
	"container/heap"
)

// FreeList hands out slot indices in [0, n), lowest free index first,
// so slot assignment is deterministic. Not thread-safe: callers hold
// the lock that guards the table the indices refer to.
type FreeList struct {
	free   idxHeap
	isFree []bool
}

func NewFreeList(n int) *FreeList {
	fl := &FreeList{
		free:   make(idxHeap, n),
		isFree: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		fl.free[i] = i
		fl.isFree[i] = true
	}
	heap.Init(&fl.free)
	return fl
}

func (fl *FreeList) Len() int {
	return len(fl.free)
}

func (fl *FreeList) Cap() int {
	return len(fl.isFree)
}

// Alloc returns the lowest free index, or false if none is left.
func (fl *FreeList) Alloc() (int, bool) {
	if len(fl.free) == 0 {
		return -1, false
	}
	i := heap.Pop(&fl.free).(int)
	fl.isFree[i] = false
	return i, true
}

// Free returns i to the list; freeing an index twice, or one out of
// range, is ignored and reported as false.
func (fl *FreeList) Free(i int) bool {
	if i < 0 || i >= len(fl.isFree) || fl.isFree[i] {
		return false
	}
	fl.isFree[i] = true
	heap.Push(&fl.free, i)
	return true
}

type idxHeap []int

func (h idxHeap) Len() int            { return len(h) }
func (h idxHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h idxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *idxHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *idxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
