package server

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"syscall"

	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/protocol"
)

// MaxConnections bounds the connection table (§3: "up to MAX_CONNECTIONS
// default 128"). Fixed at build time.
const MaxConnections = 128

// SharedBufferCap is the initial capacity of the one request buffer
// reused across every request on every connection (§3's "~256 MiB
// capacity to hold the maximum frame"). It grows on demand via
// protocol.ReadFrame if a single frame ever exceeds it, but in the
// steady state no further allocation occurs.
const SharedBufferCap = 256 << 20

// Dispatcher turns one received frame into a response frame. closeAfter
// tells the loop to close the connection after writing resp — used for
// protocol-class errors (§7: "send ERROR if possible, then close") and
// for true protocol violations (unrecognized opcode) where resp may be a
// zero Frame to signal "nothing to send".
type Dispatcher interface {
	Dispatch(frame protocol.Frame) (resp protocol.Frame, closeAfter bool)
	// Tick is called once per loop iteration, after all ready connections
	// have been serviced, giving the server state machine a chance to
	// probe its checkpoint threshold (§4.3/§4.4).
	Tick()
}

// slot holds one accepted connection's state.
type slot struct {
	conn net.Conn
	fd   int
}

// Loop is the generic connection multiplexer of §4.4: single-threaded,
// cooperative, driven by one Poller over the listener plus all active
// client connections.
type Loop struct {
	ln         *net.UnixListener
	lnFD       int
	poller     Poller
	dispatcher Dispatcher
	logger     *obs.Logger
	limiter    *obs.WarnLimiter
	metrics    obs.MetricsCollector

	slots    [MaxConnections]*slot
	fdToSlot map[int]int
	scratch  []byte

	terminate atomic.Bool
}

// New constructs a Loop bound to ln, dispatching ready frames to d. A nil
// metrics is replaced with a no-op collector.
func New(ln *net.UnixListener, d Dispatcher, logger *obs.Logger, metrics obs.MetricsCollector) (*Loop, error) {
	if metrics == nil {
		metrics = obs.NoopMetricsCollector{}
	}
	poller, err := NewPoller()
	if err != nil {
		return nil, err
	}

	lnFD, err := fdOf(ln)
	if err != nil {
		_ = poller.Close()
		return nil, err
	}
	if err := poller.Add(lnFD); err != nil {
		_ = poller.Close()
		return nil, err
	}

	return &Loop{
		ln:         ln,
		lnFD:       lnFD,
		poller:     poller,
		dispatcher: d,
		logger:     logger,
		limiter:    obs.NewWarnLimiter(logger, 5, 10),
		metrics:    metrics,
		fdToSlot:   make(map[int]int, MaxConnections),
		scratch:    make([]byte, 0, SharedBufferCap),
	}, nil
}

// Terminate requests the loop exit at the start of its next iteration
// (§4.4's terminate flag, set by a signal handler per §7).
func (l *Loop) Terminate() {
	l.terminate.Store(true)
}

// Run drives the loop until Terminate is called or a fatal poller error
// occurs. It always closes every connection and the listener before
// returning.
func (l *Loop) Run() error {
	defer l.closeAll()

	var ready []readyFD
	for !l.terminate.Load() {
		var err error
		ready, err = l.poller.Wait(ready[:0])
		if err != nil {
			return err
		}

		for _, r := range ready {
			if !r.readable {
				continue
			}
			if r.fd == l.lnFD {
				l.accept()
				continue
			}
			l.serviceOne(r.fd)
		}

		l.dispatcher.Tick()
	}
	return nil
}

// accept admits one new connection, placing it in the first free slot.
// Beyond MAX_CONNECTIONS, the connection is accepted then immediately
// closed (§3/§5/§8's bounded-concurrency boundary behavior).
func (l *Loop) accept() {
	conn, err := l.ln.AcceptUnix()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			l.logger.Warn("accept failed", "error", err)
		}
		return
	}

	idx := l.firstFreeSlot()
	if idx < 0 {
		l.limiter.Warn("connection rejected: connection table full", "max_connections", MaxConnections)
		l.metrics.RecordConnection(false)
		_ = conn.Close()
		return
	}

	fd, err := fdOf(conn)
	if err != nil {
		l.logger.Warn("accept: could not obtain fd", "error", err)
		_ = conn.Close()
		return
	}
	if err := l.poller.Add(fd); err != nil {
		l.logger.Warn("accept: poller add failed", "error", err)
		_ = conn.Close()
		return
	}

	l.slots[idx] = &slot{conn: conn, fd: fd}
	l.fdToSlot[fd] = idx
	l.logger.LogConnection("accepted", idx)
	l.metrics.RecordConnection(true)
}

func (l *Loop) firstFreeSlot() int {
	for i, s := range l.slots {
		if s == nil {
			return i
		}
	}
	return -1
}

// serviceOne reads exactly one frame from the connection at fd,
// dispatches it, and writes back the response — at most one request per
// ready connection per iteration (§5 Ordering: round-robin fairness
// across slots, strict FIFO within one).
func (l *Loop) serviceOne(fd int) {
	idx, ok := l.fdToSlot[fd]
	if !ok {
		return
	}
	s := l.slots[idx]

	frame, err := protocol.ReadFrame(s.conn, &l.scratch)
	if err != nil {
		l.closeSlot(idx, "read failed or peer closed")
		return
	}

	resp, closeAfter := l.dispatcher.Dispatch(frame)

	if resp.Header.Type != 0 || len(resp.Payload) > 0 {
		if err := protocol.WriteFrame(s.conn, resp); err != nil {
			if isBrokenPipe(err) {
				l.closeSlot(idx, "broken pipe on write")
			} else {
				l.closeSlot(idx, "write failed")
			}
			return
		}
	}

	if closeAfter {
		l.closeSlot(idx, "protocol violation")
	}
}

func (l *Loop) closeSlot(idx int, reason string) {
	s := l.slots[idx]
	if s == nil {
		return
	}
	_ = l.poller.Remove(s.fd)
	_ = s.conn.Close()
	delete(l.fdToSlot, s.fd)
	l.slots[idx] = nil
	l.logger.Debug("connection closed", "slot", idx, "reason", reason)
}

func (l *Loop) closeAll() {
	for i, s := range l.slots {
		if s != nil {
			l.closeSlot(i, "shutdown")
		}
	}
	_ = l.poller.Close()
	_ = l.ln.Close()
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}

// fdOf extracts the raw file descriptor from a net.Conn or
// *net.UnixListener without duplicating it, so registering it with the
// Poller does not race the Go runtime's own internal netpoller over fd
// lifetime.
func fdOf(sc syscall.Conn) (int, error) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("server: obtaining raw conn: %w", err)
	}
	var fd int
	ctlErr := raw.Control(func(ptr uintptr) { fd = int(ptr) })
	if ctlErr != nil {
		return -1, fmt.Errorf("server: control: %w", ctlErr)
	}
	return fd, nil
}
