// File: poller/pollset.go
// Author: momentics <momentics@gmail.com>
//
// Pollset: the cooperative single-worker reactor. Work blocks until some
// watched descriptor is ready and its closures have been dispatched, an
// alarm expired, a kick arrived, or the deadline elapsed.

package poller

import (
	"container/heap"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-netcore/api"
	"github.com/momentics/hioload-netcore/control"
)

// ready is one dispatchable closure invocation.
type ready struct {
	fn api.Closure
	ok bool
}

// Pollset groups descriptors so one worker can wait on all of them at once.
// The object itself is safely shared: Add, Remove, Kick, NewAlarm and
// Alarm.Cancel may be called from any goroutine while a Work call is blocked
// elsewhere. Closure dispatch, however, happens only inside Work.
type Pollset struct {
	mu      sync.Mutex // guards fds, alarms, closed
	fds     map[int]*FD
	alarms  alarmHeap
	closed  bool
	backend backend

	readyMu sync.Mutex // guards readyQ
	readyQ  *queue.Queue

	evs     []event
	log     zerolog.Logger
	metrics *control.MetricsRegistry
}

// Option customizes pollset construction.
type Option func(*Pollset)

// WithLogger attaches a structured logger; default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(ps *Pollset) { ps.log = log }
}

// WithMetrics attaches a shared metrics registry.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(ps *Pollset) { ps.metrics = mr }
}

// WithConfig reads pollset tunables from a config store snapshot.
func WithConfig(cs *control.ConfigStore) Option {
	return func(ps *Pollset) {
		n := cs.GetInt(control.KeyPollMaxEvents, control.DefaultPollMaxEvents)
		ps.evs = make([]event, n)
	}
}

// NewPollset creates a pollset backed by the platform readiness multiplexer.
func NewPollset(opts ...Option) (*Pollset, error) {
	ps := &Pollset{
		fds:     make(map[int]*FD),
		readyQ:  queue.New(),
		evs:     make([]event, control.DefaultPollMaxEvents),
		log:     zerolog.Nop(),
		metrics: control.NewMetricsRegistry(),
	}
	for _, opt := range opts {
		opt(ps)
	}
	b, err := newBackend(len(ps.evs))
	if err != nil {
		return nil, err
	}
	ps.backend = b
	return ps, nil
}

// Metrics returns the registry receiving this pollset's counters.
func (ps *Pollset) Metrics() *control.MetricsRegistry { return ps.metrics }

// Add registers a descriptor with this pollset.
func (ps *Pollset) Add(fd *FD) error {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return api.ErrPollsetClosed
	}
	ps.mu.Unlock()
	if err := fd.attach(ps); err != nil {
		return err
	}
	ps.mu.Lock()
	ps.fds[fd.raw] = fd
	ps.mu.Unlock()
	ps.log.Debug().Str("fd", fd.String()).Msg("pollset add")
	return nil
}

// Remove detaches a descriptor from this pollset. Closures already queued
// for dispatch still run.
func (ps *Pollset) Remove(fd *FD) {
	fd.detach(ps)
	ps.mu.Lock()
	delete(ps.fds, fd.raw)
	ps.mu.Unlock()
	ps.log.Debug().Str("fd", fd.String()).Msg("pollset remove")
}

// forget drops bookkeeping for an orphaned descriptor. The watcher map entry
// is already gone, so only the backend registration and fd table remain.
func (ps *Pollset) forget(fd *FD) {
	ps.mu.Lock()
	delete(ps.fds, fd.raw)
	ps.mu.Unlock()
	_ = ps.backend.del(fd.raw)
}

// Kick wakes a blocked Work call. No-op effect if none is blocked: the wake
// token is consumed by the next Work invocation, which returns promptly
// without dispatching anything.
func (ps *Pollset) Kick() error {
	ps.metrics.Inc(control.MetricPollsetKicks)
	return ps.backend.wake()
}

// pushReady queues a closure for dispatch inside Work and wakes the worker.
func (ps *Pollset) pushReady(cb api.Closure, ok bool) {
	ps.readyMu.Lock()
	ps.readyQ.Add(ready{fn: cb, ok: ok})
	ps.readyMu.Unlock()
	_ = ps.backend.wake()
}

// drainReady runs every queued closure outside all locks. Reports whether
// anything ran.
func (ps *Pollset) drainReady() bool {
	var runs []ready
	ps.readyMu.Lock()
	for ps.readyQ.Length() > 0 {
		runs = append(runs, ps.readyQ.Remove().(ready))
	}
	ps.readyMu.Unlock()
	for _, r := range runs {
		r.fn(r.ok)
	}
	return len(runs) > 0
}

// Work blocks the calling goroutine until some registered descriptor becomes
// ready and its closures are dispatched, an alarm fires, the deadline
// elapses, or a kick occurs. A zero deadline blocks until one of the other
// conditions holds. All closure dispatch for this pollset happens here.
func (ps *Pollset) Work(deadline time.Time) error {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return api.ErrPollsetClosed
	}
	ps.mu.Unlock()
	ps.metrics.Inc(control.MetricPollsetWork)

	if ps.drainReady() {
		return nil
	}
	for {
		n, err := ps.backend.wait(ps.evs, ps.pollTimeout(deadline))
		if err != nil {
			ps.mu.Lock()
			closed := ps.closed
			ps.mu.Unlock()
			if closed {
				return api.ErrPollsetClosed
			}
			return err
		}

		kicked := false
		var runs []ready
		for i := 0; i < n; i++ {
			ev := ps.evs[i]
			if ev.wake {
				kicked = true
				continue
			}
			ps.mu.Lock()
			fd := ps.fds[ev.fd]
			ps.mu.Unlock()
			if fd == nil {
				continue
			}
			runs = append(runs, fd.takeReady(ev.readable, ev.writable, ev.errored)...)
		}
		runs = append(runs, ps.expiredAlarms(time.Now())...)

		for _, r := range runs {
			r.fn(r.ok)
		}
		drained := ps.drainReady()

		if len(runs) > 0 || drained || kicked {
			return nil
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil
		}
	}
}

// pollTimeout computes the backend wait bound in milliseconds from the Work
// deadline and the earliest armed alarm. -1 blocks indefinitely.
func (ps *Pollset) pollTimeout(deadline time.Time) int {
	now := time.Now()
	next := deadline
	ps.mu.Lock()
	if len(ps.alarms) > 0 {
		if next.IsZero() || ps.alarms[0].deadline.Before(next) {
			next = ps.alarms[0].deadline
		}
	}
	ps.mu.Unlock()
	if next.IsZero() {
		return -1
	}
	d := next.Sub(now)
	if d <= 0 {
		return 0
	}
	ms := int(d.Milliseconds())
	if ms == 0 {
		ms = 1 // round sub-millisecond waits up, never spin
	}
	return ms
}

// expiredAlarms pops and claims every alarm at or past now.
func (ps *Pollset) expiredAlarms(now time.Time) []ready {
	var runs []ready
	ps.mu.Lock()
	for len(ps.alarms) > 0 && !ps.alarms[0].deadline.After(now) {
		a := heap.Pop(&ps.alarms).(*Alarm)
		if !a.state.CompareAndSwap(alarmArmed, alarmFired) {
			continue // lost the race to Cancel
		}
		runs = append(runs, ready{fn: a.cb, ok: true})
	}
	ps.mu.Unlock()
	for range runs {
		ps.metrics.Inc(control.MetricAlarmFired)
	}
	return runs
}

// RegisterProbes exposes pollset internals on a debug probe registry.
func (ps *Pollset) RegisterProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("pollset.fds", func() any {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		return len(ps.fds)
	})
	dp.RegisterProbe("pollset.alarms", func() any {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		return len(ps.alarms)
	})
}

// Close marks the pollset closed and releases the backend. Descriptors still
// registered are not orphaned; their owners remain responsible for them. A
// Work call blocked concurrently returns ErrPollsetClosed.
func (ps *Pollset) Close() error {
	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return nil
	}
	ps.closed = true
	ps.mu.Unlock()
	_ = ps.backend.wake()
	return ps.backend.close()
}
