package indexserver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/protocol"
	"github.com/victor-base/victordb/server"
	"github.com/victor-base/victordb/storage"
	"github.com/victor-base/victordb/vectorindex"
)

// roundTrip writes req to conn and reads back exactly one response frame.
// The returned frame's payload is copied out since ReadFrame's scratch
// buffer is reused across calls.
func roundTrip(t *testing.T, conn net.Conn, op protocol.Type, payload any) protocol.Frame {
	t.Helper()
	frame, err := protocol.EncodeFrame(op, payload)
	require.NoError(t, err)
	require.NoError(t, protocol.WriteFrame(conn, frame))

	var scratch []byte
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := protocol.ReadFrame(conn, &scratch)
	require.NoError(t, err)
	out := make([]byte, len(resp.Payload))
	copy(out, resp.Payload)
	resp.Payload = out
	return resp
}

// openTestServer wires a Server, a Loop bound to a fresh Unix socket, and
// a running Run() goroutine, returning the Server and a dialed connection.
// Cleanup registered with t.Cleanup terminates the loop and waits for it
// to exit.
func openTestServer(t *testing.T, opts Options) (*Server, net.Conn) {
	t.Helper()
	srv, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ln, err := storage.BindUnix(opts.Layout.DefaultSocket())
	require.NoError(t, err)

	loop, err := server.New(ln, srv, obs.NoopLogger(), obs.NoopMetricsCollector{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()
	t.Cleanup(func() {
		loop.Terminate()
		<-done
	})

	conn, err := net.Dial("unix", opts.Layout.DefaultSocket())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn
}

func TestIndexServerInsertSearchDeleteOverSocket(t *testing.T) {
	layout := storage.New(t.TempDir(), "testdb")
	require.NoError(t, layout.Ensure())

	_, conn := openTestServer(t, Options{
		Layout:          layout,
		IndexType:       vectorindex.TypeFlat,
		Method:          vectorindex.MethodCosine,
		Dims:            4,
		ExportThreshold: 1000,
	})

	insResp := roundTrip(t, conn, protocol.TypeInsert, protocol.InsertMsg{ID: 42, Vector: []float32{1, 0, 0, 0}})
	require.Equal(t, protocol.TypeInsertResult, insResp.Header.Type)

	var insResult protocol.OpResult
	require.NoError(t, protocol.Decode(protocol.TypeInsertResult, insResp.Payload, &insResult))
	require.Equal(t, uint32(0), insResult.Code)

	searchResp := roundTrip(t, conn, protocol.TypeSearch, protocol.SearchMsg{Vector: []float32{1, 0, 0, 0}, K: 1})
	require.Equal(t, protocol.TypeMatchResult, searchResp.Header.Type)
	var hits []protocol.MatchPair
	require.NoError(t, protocol.Decode(protocol.TypeMatchResult, searchResp.Payload, &hits))
	require.Len(t, hits, 1)
	require.Equal(t, uint64(42), hits[0].ID)

	delResp := roundTrip(t, conn, protocol.TypeDelete, protocol.DeleteMsg{ID: 42})
	require.Equal(t, protocol.TypeDeleteResult, delResp.Header.Type)

	searchResp = roundTrip(t, conn, protocol.TypeSearch, protocol.SearchMsg{Vector: []float32{1, 0, 0, 0}, K: 1})
	var emptyHits []protocol.MatchPair
	require.NoError(t, protocol.Decode(protocol.TypeMatchResult, searchResp.Payload, &emptyHits))
	require.Empty(t, emptyHits)
}

// TestIndexServerDimensionMismatchKeepsConnectionOpen covers the resolved
// open question on wrong-dimension vectors: a logical error, not a
// protocol error, so the connection survives it.
func TestIndexServerDimensionMismatchKeepsConnectionOpen(t *testing.T) {
	layout := storage.New(t.TempDir(), "testdb")
	require.NoError(t, layout.Ensure())

	_, conn := openTestServer(t, Options{
		Layout:          layout,
		IndexType:       vectorindex.TypeFlat,
		Method:          vectorindex.MethodCosine,
		Dims:            4,
		ExportThreshold: 1000,
	})

	resp := roundTrip(t, conn, protocol.TypeInsert, protocol.InsertMsg{ID: 1, Vector: []float32{1, 0, 0}})
	require.Equal(t, protocol.TypeError, resp.Header.Type)

	resp = roundTrip(t, conn, protocol.TypeInsert, protocol.InsertMsg{ID: 1, Vector: []float32{1, 0, 0, 0}})
	require.Equal(t, protocol.TypeInsertResult, resp.Header.Type)
}

func TestIndexServerCrashRecoveryReplaysWAL(t *testing.T) {
	layout := storage.New(t.TempDir(), "testdb")
	require.NoError(t, layout.Ensure())

	srv, err := Open(Options{Layout: layout, IndexType: vectorindex.TypeFlat, Method: vectorindex.MethodL2, Dims: 2, ExportThreshold: 1000})
	require.NoError(t, err)

	frame, err := protocol.EncodeFrame(protocol.TypeInsert, protocol.InsertMsg{ID: 1, Vector: []float32{1, 1}})
	require.NoError(t, err)
	resp, closeAfter := srv.Dispatch(frame)
	require.False(t, closeAfter)
	require.Equal(t, protocol.TypeInsertResult, resp.Header.Type)
	require.NoError(t, srv.Close()) // simulate a crash: no checkpoint taken, WAL has the one INSERT

	reopened, err := Open(Options{Layout: layout, IndexType: vectorindex.TypeFlat, Method: vectorindex.MethodL2, Dims: 2, ExportThreshold: 1000})
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.index.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint64(1), hits[0].ID)
}

func TestIndexServerCheckpointRolloverTruncatesWAL(t *testing.T) {
	layout := storage.New(t.TempDir(), "testdb")
	require.NoError(t, layout.Ensure())

	srv, err := Open(Options{Layout: layout, IndexType: vectorindex.TypeFlat, Method: vectorindex.MethodL2, Dims: 2, ExportThreshold: 3})
	require.NoError(t, err)
	defer srv.Close()

	for i := uint64(1); i <= 4; i++ {
		frame, err := protocol.EncodeFrame(protocol.TypeInsert, protocol.InsertMsg{ID: i, Vector: []float32{float32(i), 0}})
		require.NoError(t, err)
		_, closeAfter := srv.Dispatch(frame)
		require.False(t, closeAfter)
	}
	srv.Tick()

	require.FileExists(t, layout.IndexSnapshot())
	require.Equal(t, uint64(0), srv.opAddCounter)

	reopened, err := Open(Options{Layout: layout, IndexType: vectorindex.TypeFlat, Method: vectorindex.MethodL2, Dims: 2, ExportThreshold: 3})
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, uint64(4), reopened.index.Size())
}
