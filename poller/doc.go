// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package poller provides the readiness-multiplexing core of hioload-netcore:
// descriptor registration with one-shot read/write interest callbacks (FD),
// the cooperative worker reactor (Pollset), overlapping interest groups
// spanning several reactors (PollsetSet), and one-shot cancellable deadline
// timers integrated with the reactor wait loop (Alarm).
//
// One Pollset is driven by one execution context repeatedly calling Work;
// all callbacks for descriptors and alarms attached to it are dispatched
// from inside Work. Concurrency across distinct pollsets comes from running
// distinct Work loops on distinct goroutines.
package poller
