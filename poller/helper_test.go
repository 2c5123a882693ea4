// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// helper_test.go — shared fixtures: worker loops, socket pairs, condition polling.
package poller_test

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/poller"
)

// startWorker drives ps.Work in a background goroutine until the returned
// stop function runs.
func startWorker(t *testing.T, ps *poller.Pollset) (stop func()) {
	t.Helper()
	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-quit:
				return
			default:
			}
			if err := ps.Work(time.Now().Add(50 * time.Millisecond)); err != nil {
				return
			}
		}
	}()
	return func() {
		close(quit)
		_ = ps.Kick()
		<-done
	}
}

// socketpair returns a connected AF_UNIX stream pair.
func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	return fds[0], fds[1]
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
