package hostloop

import "time"

// timerEntry is one registered timer; heapIdx tracks its position in
// the owning timerHeap for O(log n) removal (container/heap.Remove
// needs the current index, not just the value).
type timerEntry struct {
	id      int
	period  time.Duration
	due     time.Time
	cb      func()
	heapIdx int
}

// timerHeap is a min-heap over due time, implementing container/heap.
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timerEntry)
	t.heapIdx = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIdx = -1
	*h = old[:n-1]
	return t
}
