// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// fd_test.go — descriptor contract: one-shot readiness callbacks, callback
// change between events, shutdown and orphan semantics.
package poller_test

import (
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/poller"
)

func TestNotifyOnReadFiresOnce(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	fd := poller.NewFD(a, "read-once")
	if err := ps.Add(fd); err != nil {
		t.Fatal(err)
	}

	var count int32
	fd.NotifyOnRead(func(ok bool) {
		if !ok {
			t.Error("readiness callback reported failure")
		}
		atomic.AddInt32(&count, 1)
	})

	if _, err := unix.Write(b, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := ps.Work(time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("callback ran %d times, want 1", got)
	}

	// One-shot: another byte without re-arming must not re-fire.
	if _, err := unix.Write(b, []byte{2}); err != nil {
		t.Fatal(err)
	}
	_ = ps.Work(time.Now().Add(50 * time.Millisecond))
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("stale callback re-fired, count=%d", got)
	}

	fd.Orphan(nil, "test_done")
}

// Port of the classic fd-change scenario: arm A, trigger readiness, observe
// A ran; re-arm B, trigger readiness again, observe B ran and A did not run
// a second time.
func TestChangeArmedCallbackBetweenEvents(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	fd := poller.NewFD(a, "change-test")
	if err := ps.Add(fd); err != nil {
		t.Fatal(err)
	}
	stop := startWorker(t, ps)
	defer stop()

	var aRuns, bRuns int32
	fd.NotifyOnRead(func(ok bool) { atomic.AddInt32(&aRuns, 1) })
	if _, err := unix.Write(b, []byte{1}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&aRuns) == 1 }, "first callback")

	// Drain the byte so the next event is attributable to the second write.
	buf := make([]byte, 8)
	if _, err := unix.Read(a, buf); err != nil {
		t.Fatal(err)
	}

	fd.NotifyOnRead(func(ok bool) { atomic.AddInt32(&bRuns, 1) })
	if _, err := unix.Write(b, []byte{2}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&bRuns) == 1 }, "second callback")

	if got := atomic.LoadInt32(&aRuns); got != 1 {
		t.Fatalf("stale callback ran %d times, want 1", got)
	}
	fd.Orphan(nil, "test_done")
}

func TestShutdownWakesPendingWithFailure(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	fd := poller.NewFD(a, "shutdown-test")
	if err := ps.Add(fd); err != nil {
		t.Fatal(err)
	}
	stop := startWorker(t, ps)
	defer stop()

	results := make(chan bool, 4)
	fd.NotifyOnRead(func(ok bool) { results <- ok })
	fd.Shutdown()

	select {
	case ok := <-results:
		if ok {
			t.Error("pending callback reported success after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("pending callback never fired after shutdown")
	}

	// Shutting down twice must not re-fire anything.
	fd.Shutdown()
	select {
	case <-results:
		t.Fatal("second shutdown re-fired a callback")
	case <-time.After(50 * time.Millisecond):
	}

	// Arming after shutdown fires immediately with failure.
	fd.NotifyOnWrite(func(ok bool) { results <- ok })
	select {
	case ok := <-results:
		if ok {
			t.Error("post-shutdown arm reported success")
		}
	case <-time.After(time.Second):
		t.Fatal("post-shutdown arm never fired")
	}

	fd.Orphan(nil, "test_done")
}

func TestOrphanReleasesDescriptorOnce(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	fd := poller.NewFD(a, "orphan-test")
	if err := ps.Add(fd); err != nil {
		t.Fatal(err)
	}

	var cleanups int32
	fd.Orphan(func(ok bool) {
		if !ok {
			t.Error("cleanup callback reported failure")
		}
		atomic.AddInt32(&cleanups, 1)
	}, "test_orphan")
	fd.Orphan(func(ok bool) { atomic.AddInt32(&cleanups, 1) }, "double")

	if got := atomic.LoadInt32(&cleanups); got != 1 {
		t.Fatalf("cleanup ran %d times, want 1", got)
	}
	if err := ps.Add(fd); err == nil {
		t.Fatal("adding an orphaned descriptor succeeded")
	}
}
