//go:build linux
// +build linux

// File: reactor/poller_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller with an eventfd for cross-goroutine wakeups.

package reactor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/momentics/hioload-reactor/api"
	"golang.org/x/sys/unix"
)

// epollPoller is a level-triggered epoll instance.
type epollPoller struct {
	epfd   int
	wakeFd int
	raw    []unix.EpollEvent
}

// NewPoller constructs the platform poller.
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wfd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wfd, &ev); err != nil {
		unix.Close(wfd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add eventfd: %w", err)
	}
	return &epollPoller{epfd: epfd, wakeFd: wfd}, nil
}

func epollEvents(in api.Interest) uint32 {
	var ev uint32
	if in&(api.InterestAccept|api.InterestRead) != 0 {
		ev |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if in&api.InterestWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Add adds file descriptor to epoll.
func (p *epollPoller) Add(fd int, in api.Interest) error {
	ev := unix.EpollEvent{Events: epollEvents(in), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add: %w", err)
	}
	return nil
}

func (p *epollPoller) Modify(fd int, in api.Interest) error {
	ev := unix.EpollEvent{Events: epollEvents(in), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod: %w", err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Wait waits for epoll events and translates them into events.
func (p *epollPoller) Wait(events []Event, timeout time.Duration) (int, error) {
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(p.epfd, raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	out := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == p.wakeFd {
			p.drainWake()
			continue
		}
		var ready api.Readiness
		e := raw[i].Events
		if e&unix.EPOLLIN != 0 {
			ready |= api.Readable
		}
		if e&unix.EPOLLOUT != 0 {
			ready |= api.Writable
		}
		if e&(unix.EPOLLRDHUP|unix.EPOLLHUP) != 0 {
			ready |= api.Hangup
		}
		if e&unix.EPOLLERR != 0 {
			ready |= api.Failed
		}
		events[out] = Event{Fd: fd, Ready: ready}
		out++
	}
	return out, nil
}

func (p *epollPoller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakeFd, buf[:]); err != unix.EINTR {
			return
		}
	}
}

// Wake bumps the eventfd counter. A saturated counter already guarantees a wakeup.
func (p *epollPoller) Wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(p.wakeFd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		default:
			return fmt.Errorf("eventfd write: %w", err)
		}
	}
}

// Close closes the epoll instance.
func (p *epollPoller) Close() error {
	werr := unix.Close(p.wakeFd)
	if err := unix.Close(p.epfd); err != nil {
		return err
	}
	return werr
}
