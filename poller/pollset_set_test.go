// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// pollset_set_test.go — interest group membership semantics.
package poller_test

import (
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-netcore/poller"
)

func TestInterestGroupRegistersAcrossPollsets(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	set := poller.NewPollsetSet()
	set.AddPollset(ps)

	// The descriptor reaches the pollset only through the interest group.
	fd := poller.NewFD(a, "grouped")
	set.AddFD(fd)

	var runs int32
	fd.NotifyOnRead(func(ok bool) {
		if ok {
			atomic.AddInt32(&runs, 1)
		}
	})
	if _, err := unix.Write(b, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := ps.Work(time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Fatal("group-registered descriptor was not dispatched")
	}

	set.DelFD(fd)
	fd.Orphan(nil, "test_done")
}

func TestPollsetJoiningGroupSeesTrackedDescriptors(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	set := poller.NewPollsetSet()
	fd := poller.NewFD(a, "pre-tracked")
	set.AddFD(fd) // tracked before any pollset joined

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()
	set.AddPollset(ps)

	var runs int32
	fd.NotifyOnRead(func(ok bool) {
		if ok {
			atomic.AddInt32(&runs, 1)
		}
	})
	if _, err := unix.Write(b, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := ps.Work(time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&runs) != 1 {
		t.Fatal("late-joining pollset did not pick up tracked descriptor")
	}

	set.DelPollset(ps)
	fd.Orphan(nil, "test_done")
}

func TestRemovedDescriptorStopsDispatching(t *testing.T) {
	a, b := socketpair(t)
	defer unix.Close(b)

	ps, err := poller.NewPollset()
	if err != nil {
		t.Fatal(err)
	}
	defer ps.Close()

	set := poller.NewPollsetSet()
	set.AddPollset(ps)
	fd := poller.NewFD(a, "removed")
	set.AddFD(fd)
	set.DelFD(fd)

	var runs int32
	fd.NotifyOnRead(func(ok bool) { atomic.AddInt32(&runs, 1) })
	if _, err := unix.Write(b, []byte{1}); err != nil {
		t.Fatal(err)
	}
	_ = ps.Work(time.Now().Add(100 * time.Millisecond))
	if got := atomic.LoadInt32(&runs); got != 0 {
		t.Fatalf("detached descriptor dispatched %d callbacks", got)
	}

	// The armed closure is not lost: shutdown surfaces it with failure.
	fd.Shutdown()
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("pending closure after shutdown ran %d times, want 1", got)
	}
	fd.Orphan(nil, "test_done")
}
