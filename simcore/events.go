package simcore

import "container/heap"

// event is one pending kernel event. seq breaks ties between events at the
// same simulated time so firing order matches scheduling order.
type event struct {
	fire func()
	at   float64
	seq  uint64
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// scheduleAt enqueues fire at absolute simulated time at. Times before the
// current clock are clamped to now; the kernel never runs time backwards.
func (e *Engine) scheduleAt(at float64, fire func()) {
	if at < e.clock {
		at = e.clock
	}
	e.seq++
	heap.Push(&e.queue, &event{at: at, seq: e.seq, fire: fire})
}
