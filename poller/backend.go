// File: poller/backend.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness backend interface for the Pollset reactor.

package poller

// event reports one readiness notification from the backend.
type event struct {
	fd       int
	readable bool
	writable bool
	errored  bool
	wake     bool // wake descriptor fired, not a member fd
}

// backend is the OS readiness multiplexer behind a Pollset.
type backend interface {
	// add registers fd with the given interest mask.
	add(fd int, readable, writable bool) error

	// mod changes the interest mask of an already registered fd.
	mod(fd int, readable, writable bool) error

	// del removes fd from the backend watch set.
	del(fd int) error

	// wait blocks up to timeoutMs (-1 blocks indefinitely) and fills evs.
	// Returns the number of events written.
	wait(evs []event, timeoutMs int) (int, error)

	// wake makes a concurrent wait call return promptly.
	wake() error

	// close releases backend resources.
	close() error
}
