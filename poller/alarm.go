// File: poller/alarm.go
// Author: momentics <momentics@gmail.com>
//
// One-shot deadline timers integrated with the pollset wait loop.

package poller

import (
	"container/heap"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-netcore/api"
	"github.com/momentics/hioload-netcore/control"
)

const (
	alarmArmed int32 = iota
	alarmFired
	alarmCancelled
)

// Alarm is a one-shot timer bound to a pollset. Once armed, its closure runs
// exactly once: with ok=true when the deadline elapses inside a Work call,
// or with ok=false when Cancel preempts firing. Firing and cancellation are
// decided by a single atomic transition, so the race between a natural
// expiry and a concurrent Cancel never runs the closure zero or two times.
//
// The alarm never keeps its closure's captured state alive on its own; the
// arming code holds whatever references the closure needs, per the attempt
// record discipline in transport/tcp.
type Alarm struct {
	ps       *Pollset
	deadline time.Time
	cb       api.Closure
	state    atomic.Int32
	index    int // heap slot, -1 once popped
}

// NewAlarm arms a one-shot alarm against this pollset. The closure runs from
// a Work call on the pollset.
func (ps *Pollset) NewAlarm(deadline time.Time, cb api.Closure) *Alarm {
	a := &Alarm{ps: ps, deadline: deadline, cb: cb, index: -1}
	ps.mu.Lock()
	heap.Push(&ps.alarms, a)
	earliest := ps.alarms[0] == a
	ps.mu.Unlock()
	if earliest {
		// a blocked worker must recompute its wait bound
		_ = ps.backend.wake()
	}
	return a
}

// Cancel attempts to preempt firing. Cancelling an alarm that already fired
// (or was already cancelled) is a no-op; otherwise the closure is queued to
// run with ok=false from the pollset worker.
func (a *Alarm) Cancel() {
	if !a.state.CompareAndSwap(alarmArmed, alarmCancelled) {
		return
	}
	ps := a.ps
	ps.mu.Lock()
	if a.index >= 0 {
		heap.Remove(&ps.alarms, a.index)
	}
	ps.mu.Unlock()
	ps.metrics.Inc(control.MetricAlarmCancelled)
	ps.pushReady(a.cb, false)
}

// alarmHeap is a min-heap ordered by deadline.
type alarmHeap []*Alarm

func (h alarmHeap) Len() int            { return len(h) }
func (h alarmHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h alarmHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *alarmHeap) Push(x interface{}) { a := x.(*Alarm); a.index = len(*h); *h = append(*h, a) }
func (h *alarmHeap) Pop() interface{} {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	a.index = -1
	*h = old[:n-1]
	return a
}
