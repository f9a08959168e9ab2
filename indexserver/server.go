// Package indexserver implements the index server state machine (§4.5):
// INSERT, SEARCH, DELETE against a vectorindex.Index collaborator, with
// WAL append on mutation and threshold-triggered checkpointing.
package indexserver

import (
	"fmt"
	"time"

	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/protocol"
	"github.com/victor-base/victordb/storage"
	"github.com/victor-base/victordb/vectorindex"
	"github.com/victor-base/victordb/wal"
)

// Server is the index server's per-process context (§3's "Server context
// (one per process)"): the index collaborator, the WAL handle, the two
// mutation counters, and the resolved storage layout.
type Server struct {
	layout          storage.Layout
	index           *vectorindex.Index
	wal             *wal.WAL
	exportThreshold int
	logger          *obs.Logger
	metrics         obs.MetricsCollector
	checkpointWarn  *obs.WarnLimiter

	opAddCounter uint64
	opDelCounter uint64
}

// Options configures Open.
type Options struct {
	Layout          storage.Layout
	IndexType       vectorindex.Type
	Method          vectorindex.Method
	Dims            int
	ExportThreshold int
	Logger          *obs.Logger
	Metrics         obs.MetricsCollector
}

// Open resolves the database directory, imports the existing snapshot
// (or allocates a fresh index if none exists), and replays the WAL on
// top of it — the index server's startup sequence (§3 Lifecycles, §4.3
// Replay at startup).
func Open(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = obs.NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = obs.NoopMetricsCollector{}
	}
	if opts.ExportThreshold <= 0 {
		opts.ExportThreshold = 10
	}

	if err := opts.Layout.Ensure(); err != nil {
		return nil, err
	}

	ix, err := vectorindex.Import(opts.IndexType, opts.Method, opts.Dims, opts.Layout.IndexSnapshot())
	if err != nil {
		return nil, fmt.Errorf("indexserver: importing snapshot: %w", err)
	}

	s := &Server{
		layout:          opts.Layout,
		index:           ix,
		exportThreshold: opts.ExportThreshold,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		checkpointWarn:  obs.NewWarnLimiter(opts.Logger, 5, 10),
	}

	stats, err := wal.Replay(opts.Layout.IndexWAL(), s.replayApply)
	s.logger.LogReplay(opts.Layout.IndexWAL(), stats.Applied, stats.Skipped, err)
	if err != nil {
		return nil, fmt.Errorf("indexserver: replaying WAL: %w", err)
	}

	w, err := wal.Open(opts.Layout.IndexWAL())
	if err != nil {
		return nil, fmt.Errorf("indexserver: opening WAL: %w", err)
	}
	s.wal = w

	return s, nil
}

// replayApply is handed to wal.Replay at startup: it dispatches exactly
// like live traffic, except the WAL handle is nil'd out for the duration
// so replay never re-appends what it's replaying (§4.3).
func (s *Server) replayApply(frame protocol.Frame) error {
	liveWAL := s.wal
	s.wal = nil
	defer func() { s.wal = liveWAL }()

	switch frame.Header.Type {
	case protocol.TypeInsert, protocol.TypeDelete:
		s.Dispatch(frame)
		return nil
	default:
		s.logger.Warn("WAL entry skipped: opcode not accepted by index server", "opcode", frame.Header.Type.String())
		return wal.ErrSkipEntry
	}
}

// Close flushes and closes the WAL. It does not checkpoint — per §4.4,
// a final checkpoint on exit is left as an implementation choice and
// this implementation defers it to the next startup's replay.
func (s *Server) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

// Tick implements server.Dispatcher: probe the checkpoint threshold
// after each main-loop iteration (§4.3/§4.4).
func (s *Server) Tick() {
	if s.opAddCounter+s.opDelCounter <= uint64(s.exportThreshold) {
		return
	}
	s.checkpoint()
}

func (s *Server) checkpoint() {
	start := time.Now()
	err := s.index.Export(s.layout.IndexSnapshot())
	if err == nil {
		err = s.wal.Checkpoint()
	}
	s.metrics.RecordCheckpoint(time.Since(start), err)
	if err != nil {
		s.checkpointWarn.Warn("checkpoint failed, WAL retained", "mutations", s.opAddCounter+s.opDelCounter, "error", err)
		return
	}
	s.logger.LogCheckpoint(int(s.opAddCounter + s.opDelCounter))
	s.opAddCounter = 0
	s.opDelCounter = 0
}
