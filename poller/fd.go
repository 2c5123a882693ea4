// File: poller/fd.go
// Author: momentics <momentics@gmail.com>
//
// Descriptor handle with one-shot read/write readiness registration.

package poller

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/api"
)

// FD wraps one OS socket descriptor. It tracks at most one pending read
// closure and one pending write closure at a time, and the set of pollsets
// currently watching it.
//
// Lifecycle: created on socket acquisition via NewFD, destroyed exactly once
// via Orphan, which releases the OS handle and detaches every watcher. Any
// closure still armed at shutdown or orphan time fires with ok=false; a
// readiness closure is never dropped silently.
type FD struct {
	mu       sync.Mutex
	raw      int
	name     string
	onRead   api.Closure
	onWrite  api.Closure
	shutdown bool
	orphaned bool
	watchers map[*Pollset]struct{}
}

// NewFD wraps raw in a descriptor handle and switches it into non-blocking,
// close-on-exec mode. Creation itself does not fail; raw must be a valid
// open descriptor.
func NewFD(raw int, name string) *FD {
	// Flag errors here would mean a closed or bogus descriptor, which is a
	// caller defect, not a runtime condition.
	_ = unix.SetNonblock(raw, true)
	unix.CloseOnExec(raw)
	return &FD{
		raw:      raw,
		name:     name,
		watchers: make(map[*Pollset]struct{}),
	}
}

// Raw returns the wrapped OS descriptor.
func (fd *FD) Raw() int { return fd.raw }

// Name returns the human-readable debug name.
func (fd *FD) Name() string { return fd.name }

// String implements fmt.Stringer for log output.
func (fd *FD) String() string {
	return fmt.Sprintf("%s(fd=%d)", fd.name, fd.raw)
}

// NotifyOnRead arms cb to run once when the descriptor becomes readable, or
// with ok=false if the descriptor is already shut down or becomes so before
// readiness arrives. Arming while a read closure is still pending is a
// caller defect and panics.
func (fd *FD) NotifyOnRead(cb api.Closure) {
	fd.notifyOn(&fd.onRead, cb, "read")
}

// NotifyOnWrite arms cb to run once when the descriptor becomes writable.
// Semantics mirror NotifyOnRead.
func (fd *FD) NotifyOnWrite(cb api.Closure) {
	fd.notifyOn(&fd.onWrite, cb, "write")
}

func (fd *FD) notifyOn(slot *api.Closure, cb api.Closure, kind string) {
	fd.mu.Lock()
	if fd.shutdown || fd.orphaned {
		fd.dispatchLocked(cb, false)
		fd.mu.Unlock()
		return
	}
	if *slot != nil {
		fd.mu.Unlock()
		panic(fmt.Sprintf("poller: %s closure already armed on %s", kind, fd))
	}
	*slot = cb
	fd.updateWatchersLocked()
	fd.mu.Unlock()
}

// Shutdown disables further I/O on the descriptor and wakes any pending
// readiness closure with ok=false. Shutting down an already shut-down
// descriptor is a no-op; pending closures never fire twice.
func (fd *FD) Shutdown() {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.shutdown || fd.orphaned {
		return
	}
	fd.shutdown = true
	fd.takePendingLocked()
	fd.updateWatchersLocked()
}

// Orphan releases the OS descriptor. It must only be called once no further
// readiness closure will be armed on this handle; closures still pending fire
// with ok=false first. The optional done closure runs with ok=true after the
// handle is released. reason is carried for diagnostics only.
func (fd *FD) Orphan(done api.Closure, reason string) {
	fd.mu.Lock()
	if fd.orphaned {
		fd.mu.Unlock()
		return
	}
	fd.orphaned = true
	fd.takePendingLocked()
	watchers := make([]*Pollset, 0, len(fd.watchers))
	for ps := range fd.watchers {
		watchers = append(watchers, ps)
	}
	fd.watchers = make(map[*Pollset]struct{})
	fd.mu.Unlock()

	for _, ps := range watchers {
		ps.forget(fd)
	}
	unix.Close(fd.raw)
	if done != nil {
		done(true)
	}
}

// takePendingLocked queues any armed closures for failure dispatch.
func (fd *FD) takePendingLocked() {
	if fd.onRead != nil {
		fd.dispatchLocked(fd.onRead, false)
		fd.onRead = nil
	}
	if fd.onWrite != nil {
		fd.dispatchLocked(fd.onWrite, false)
		fd.onWrite = nil
	}
}

// dispatchLocked hands a closure to a watching pollset's ready queue so it
// runs from inside a Work call. A descriptor with no watcher dispatches on a
// detached goroutine; that only happens outside reactor-driven flows.
func (fd *FD) dispatchLocked(cb api.Closure, ok bool) {
	for ps := range fd.watchers {
		ps.pushReady(cb, ok)
		return
	}
	go cb(ok)
}

// updateWatchersLocked pushes the current interest mask to every watching
// pollset backend.
func (fd *FD) updateWatchersLocked() {
	readable := fd.onRead != nil && !fd.shutdown
	writable := fd.onWrite != nil && !fd.shutdown
	for ps := range fd.watchers {
		_ = ps.backend.mod(fd.raw, readable, writable)
	}
}

// attach registers the descriptor with a pollset backend.
func (fd *FD) attach(ps *Pollset) error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.orphaned {
		return api.ErrDescriptorClosed
	}
	if _, dup := fd.watchers[ps]; dup {
		return nil
	}
	readable := fd.onRead != nil && !fd.shutdown
	writable := fd.onWrite != nil && !fd.shutdown
	if err := ps.backend.add(fd.raw, readable, writable); err != nil {
		return err
	}
	fd.watchers[ps] = struct{}{}
	return nil
}

// detach removes the descriptor from a pollset backend.
func (fd *FD) detach(ps *Pollset) {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if _, ok := fd.watchers[ps]; !ok {
		return
	}
	delete(fd.watchers, ps)
	_ = ps.backend.del(fd.raw)
}

// takeReady claims the closures matching a readiness notification. Error
// conditions (EPOLLERR/EPOLLHUP) wake both directions with ok=true; the
// consumer inspects SO_ERROR to classify the outcome. A shut-down descriptor
// reports ok=false.
func (fd *FD) takeReady(readable, writable, errored bool) []ready {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.orphaned {
		return nil
	}
	ok := !fd.shutdown
	var out []ready
	if (readable || errored) && fd.onRead != nil {
		out = append(out, ready{fn: fd.onRead, ok: ok})
		fd.onRead = nil
	}
	if (writable || errored) && fd.onWrite != nil {
		out = append(out, ready{fn: fd.onWrite, ok: ok})
		fd.onWrite = nil
	}
	if len(out) > 0 {
		fd.updateWatchersLocked()
	}
	return out
}
