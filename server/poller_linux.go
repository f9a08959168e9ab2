//go:build linux

package server

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux readiness multiplexer, built on the
// golang.org/x/sys/unix dependency (as is the poll(2) fallback in
// poller_unix.go) — here for epoll_create1/epoll_ctl/epoll_wait.
type epollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller constructs the platform readiness multiplexer.
func NewPoller() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("server: epoll_create1: %w", err)
	}
	return &epollPoller{epfd: fd, events: make([]unix.EpollEvent, 256)}, nil
}

func (p *epollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("server: epoll_ctl(ADD, %d): %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
		return fmt.Errorf("server: epoll_ctl(DEL, %d): %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Wait(dst []readyFD) ([]readyFD, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return dst, fmt.Errorf("server: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := p.events[i]
			dst = append(dst, readyFD{
				fd:       int(ev.Fd),
				readable: ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			})
		}
		return dst, nil
	}
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
