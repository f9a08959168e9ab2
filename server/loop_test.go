package server

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/protocol"
)

// syncBuffer makes bytes.Buffer safe for the loop goroutine to write to
// while the test goroutine polls its contents.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// countingMetrics records RecordConnection calls under a mutex, standing
// in for obs.PrometheusCollector without pulling in a real registry.
type countingMetrics struct {
	obs.NoopMetricsCollector
	mu       sync.Mutex
	accepted int
	rejected int
}

func (m *countingMetrics) RecordConnection(accepted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if accepted {
		m.accepted++
	} else {
		m.rejected++
	}
}

func (m *countingMetrics) counts() (accepted, rejected int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted, m.rejected
}

// echoDispatcher replies to every frame with a fixed INSERT_RESULT frame,
// closing after none of them — enough to exercise the loop's read/write
// path without pulling in a real collaborator.
type echoDispatcher struct {
	ticks int
}

func (d *echoDispatcher) Dispatch(frame protocol.Frame) (protocol.Frame, bool) {
	resp, _ := protocol.EncodeResult(protocol.TypeInsertResult, 0, "")
	return resp, false
}

func (d *echoDispatcher) Tick() { d.ticks++ }

func bindTestListener(t *testing.T) *net.UnixListener {
	t.Helper()
	path := filepath.Join(t.TempDir(), "socket.unix")
	addr, err := net.ResolveUnixAddr("unix", path)
	require.NoError(t, err)
	ln, err := net.ListenUnix("unix", addr)
	require.NoError(t, err)
	return ln
}

func TestLoopEchoesRequests(t *testing.T) {
	ln := bindTestListener(t)
	addr := ln.Addr().String()

	loop, err := New(ln, &echoDispatcher{}, obs.NoopLogger(), obs.NoopMetricsCollector{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	defer func() {
		loop.Terminate()
		<-done
	}()

	conn, err := net.Dial("unix", addr)
	require.NoError(t, err)
	defer conn.Close()

	frame, err := protocol.EncodeFrame(protocol.TypeInsert, protocol.InsertMsg{ID: 1, Vector: []float32{1}})
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(conn, frame))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var scratch []byte
	resp, err := protocol.ReadFrame(conn, &scratch)
	require.NoError(t, err)
	require.Equal(t, protocol.TypeInsertResult, resp.Header.Type)
}

// TestLoopRejectsConnectionBeyondMaxConnections covers the bounded
// concurrency boundary of §3/§5/§8 scenario 6: the table fills at
// MaxConnections idle connections, and one more is accepted then
// immediately closed rather than ever being serviced. It also asserts on
// the rejection's observability path: a Warn-level log line and a
// RecordConnection(false) call, both of which previously went unwired.
func TestLoopRejectsConnectionBeyondMaxConnections(t *testing.T) {
	ln := bindTestListener(t)
	addr := ln.Addr().String()

	logBuf := &syncBuffer{}
	logger := &obs.Logger{Logger: slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	metrics := &countingMetrics{}

	loop, err := New(ln, &echoDispatcher{}, logger, metrics)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	defer func() {
		loop.Terminate()
		<-done
	}()

	conns := make([]net.Conn, 0, MaxConnections)
	for i := 0; i < MaxConnections; i++ {
		c, err := net.Dial("unix", addr)
		require.NoError(t, err)
		conns = append(conns, c)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	// Give the loop a moment to drain the accept backlog for all
	// MaxConnections dials before attempting the one that should spill.
	time.Sleep(100 * time.Millisecond)

	extra, err := net.Dial("unix", addr)
	require.NoError(t, err)
	defer extra.Close()

	require.NoError(t, extra.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1)
	_, err = extra.Read(buf)
	require.ErrorIs(t, err, io.EOF, "the 129th connection should be closed by the server without ever being serviced")

	require.Eventually(t, func() bool {
		accepted, rejected := metrics.counts()
		return accepted == MaxConnections && rejected == 1
	}, 2*time.Second, 10*time.Millisecond, "expected one RecordConnection(false) call for the spilled connection")

	require.Eventually(t, func() bool {
		return strings.Contains(logBuf.String(), "level=WARN") && strings.Contains(logBuf.String(), "connection table full")
	}, 2*time.Second, 10*time.Millisecond, "rejection should be logged at Warn, not filtered out at production log levels")
}
