//go:build linux

// File: poller/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) backend with an eventfd wake channel.

package poller

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// epollBackend multiplexes readiness through one epoll instance. A non
// blocking eventfd is registered alongside member descriptors so that Kick
// can interrupt a blocked EpollWait from any goroutine.
type epollBackend struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
}

func newBackend(maxEvents int) (backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakefd: %w", err)
	}
	return &epollBackend{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, maxEvents),
	}, nil
}

func mask(readable, writable bool) uint32 {
	var m uint32
	if readable {
		m |= unix.EPOLLIN
	}
	if writable {
		m |= unix.EPOLLOUT
	}
	return m
}

func (b *epollBackend) add(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: mask(readable, writable), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

func (b *epollBackend) mod(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: mask(readable, writable), Fd: int32(fd)}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

func (b *epollBackend) del(fd int) error {
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

func (b *epollBackend) wait(evs []event, timeoutMs int) (int, error) {
	n, err := unix.EpollWait(b.epfd, b.raw[:len(evs)], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		raw := b.raw[i]
		if int(raw.Fd) == b.wakefd {
			b.drainWake()
			evs[i] = event{wake: true}
			continue
		}
		evs[i] = event{
			fd:       int(raw.Fd),
			readable: raw.Events&unix.EPOLLIN != 0,
			writable: raw.Events&unix.EPOLLOUT != 0,
			errored:  raw.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (b *epollBackend) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(b.wakefd, buf[:])
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			// counter saturated, a pending wake already exists
			return nil
		}
		return err
	}
}

// drainWake resets the eventfd counter so the next wait can block again.
func (b *epollBackend) drainWake() {
	var buf [8]byte
	for {
		_, err := unix.Read(b.wakefd, buf[:])
		if err != unix.EINTR {
			return
		}
	}
}

func (b *epollBackend) close() error {
	unix.Close(b.wakefd)
	return unix.Close(b.epfd)
}
