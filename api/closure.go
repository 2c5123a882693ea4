// File: api/closure.go
// Author: momentics <momentics@gmail.com>
//
// One-shot callback contract used across the poller and connector layers.

package api

// Closure is a one-shot notification callback.
//
// The ok argument reports why the closure ran: true means the awaited event
// happened (descriptor became ready, alarm deadline elapsed), false means the
// wait was abandoned (descriptor shut down or orphaned, alarm cancelled).
//
// A closure armed against a descriptor or alarm runs exactly once, from
// within a Pollset.Work call on a pollset watching it. It is never dropped
// silently and never invoked twice.
type Closure func(ok bool)
