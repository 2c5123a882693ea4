// File: poller/pollset_set.go
// Author: momentics <momentics@gmail.com>
//
// PollsetSet: a dynamic, possibly overlapping interest group letting one
// logical operation (a pending connect) register a descriptor across several
// pollsets at once.

package poller

import "sync"

// PollsetSet tracks which pollsets currently care about a group of
// descriptors. Membership is add/remove only and never implies ownership of
// a descriptor's lifetime: orphaning a tracked descriptor is always the
// creator's call.
type PollsetSet struct {
	mu       sync.Mutex
	pollsets map[*Pollset]struct{}
	fds      map[*FD]struct{}
}

// NewPollsetSet creates an empty interest group.
func NewPollsetSet() *PollsetSet {
	return &PollsetSet{
		pollsets: make(map[*Pollset]struct{}),
		fds:      make(map[*FD]struct{}),
	}
}

// AddPollset joins a pollset to the group. Descriptors already tracked are
// registered with it immediately.
func (s *PollsetSet) AddPollset(ps *Pollset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.pollsets[ps]; dup {
		return
	}
	s.pollsets[ps] = struct{}{}
	for fd := range s.fds {
		_ = ps.Add(fd)
	}
}

// DelPollset removes a pollset from the group and unregisters tracked
// descriptors from it.
func (s *PollsetSet) DelPollset(ps *Pollset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pollsets[ps]; !ok {
		return
	}
	delete(s.pollsets, ps)
	for fd := range s.fds {
		ps.Remove(fd)
	}
}

// AddFD starts tracking a descriptor and registers it with every member
// pollset. Never blocks. A group with no member pollsets leaves the
// descriptor unwatched: readiness is never observed, and closures forced by
// Shutdown or Orphan run on a detached goroutine instead of a Work call.
func (s *PollsetSet) AddFD(fd *FD) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.fds[fd]; dup {
		return
	}
	s.fds[fd] = struct{}{}
	for ps := range s.pollsets {
		_ = ps.Add(fd)
	}
}

// DelFD stops tracking a descriptor and unregisters it from every member
// pollset.
func (s *PollsetSet) DelFD(fd *FD) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fds[fd]; !ok {
		return
	}
	delete(s.fds, fd)
	for ps := range s.pollsets {
		ps.Remove(fd)
	}
}
