package eventloop

import (
	"container/heap"

	"github.com/aelexs/psykit/internal/timing"
)

// Timer is a one-shot timer armed with Loop.At or Loop.After.
type Timer struct {
	loop  *Loop
	when  timing.TimePoint
	fn    func()
	seq   uint64
	index int // position in the heap; -1 once fired or stopped
}

// When returns the deadline the timer was armed for.
func (t *Timer) When() timing.TimePoint { return t.when }

// Stop disarms the timer. It reports whether the timer was still armed; false
// means it already fired or was stopped.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&l.timers, t.index)
	return true
}

// timerHeap orders timers by deadline, then by arming order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if c := h[i].when.Compare(h[j].when); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
