//go:build !linux

package server

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pollPoller is the portable fallback readiness multiplexer for non-Linux
// Unix targets, using poll(2) instead of epoll. Functionally equivalent
// to epollPoller but O(registered fds) per Wait rather than O(ready fds);
// acceptable at MAX_CONNECTIONS scale (§3, default 128).
type pollPoller struct {
	fds map[int]struct{}
}

// NewPoller constructs the platform readiness multiplexer.
func NewPoller() (Poller, error) {
	return &pollPoller{fds: make(map[int]struct{})}, nil
}

func (p *pollPoller) Add(fd int) error {
	p.fds[fd] = struct{}{}
	return nil
}

func (p *pollPoller) Remove(fd int) error {
	delete(p.fds, fd)
	return nil
}

func (p *pollPoller) Wait(dst []readyFD) ([]readyFD, error) {
	for {
		fds := make([]unix.PollFd, 0, len(p.fds))
		for fd := range p.fds {
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		}
		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return dst, fmt.Errorf("server: poll: %w", err)
		}
		if n == 0 {
			continue
		}
		for _, pfd := range fds {
			if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
				dst = append(dst, readyFD{fd: int(pfd.Fd), readable: true})
			}
		}
		return dst, nil
	}
}

func (p *pollPoller) Close() error {
	return nil
}
