// Package tableserver implements the table server state machine (§4.6):
// PUT, GET, DEL against a kvstore.Store collaborator, with WAL append on
// mutation and threshold-triggered checkpointing.
package tableserver

import (
	"fmt"
	"time"

	"github.com/victor-base/victordb/internal/obs"
	"github.com/victor-base/victordb/kvstore"
	"github.com/victor-base/victordb/protocol"
	"github.com/victor-base/victordb/storage"
	"github.com/victor-base/victordb/wal"
)

// Server is the table server's per-process context.
type Server struct {
	layout          storage.Layout
	store           *kvstore.Store
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
	ExportThreshold int
	Logger          *obs.Logger
	Metrics         obs.MetricsCollector
}

// Open resolves the database directory, loads the existing snapshot (or
// starts empty), and replays the WAL on top of it.
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

	store, err := kvstore.Load(opts.Layout.Name, opts.Layout.TableSnapshot())
	if err != nil {
		return nil, fmt.Errorf("tableserver: loading snapshot: %w", err)
	}

	s := &Server{
		layout:          opts.Layout,
		store:           store,
		exportThreshold: opts.ExportThreshold,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		checkpointWarn:  obs.NewWarnLimiter(opts.Logger, 5, 10),
	}

	stats, err := wal.Replay(opts.Layout.TableWAL(), s.replayApply)
	s.logger.LogReplay(opts.Layout.TableWAL(), stats.Applied, stats.Skipped, err)
	if err != nil {
		return nil, fmt.Errorf("tableserver: replaying WAL: %w", err)
	}

	w, err := wal.Open(opts.Layout.TableWAL())
	if err != nil {
		return nil, fmt.Errorf("tableserver: opening WAL: %w", err)
	}
	s.wal = w

	return s, nil
}

func (s *Server) replayApply(frame protocol.Frame) error {
	liveWAL := s.wal
	s.wal = nil
	defer func() { s.wal = liveWAL }()

	switch frame.Header.Type {
	case protocol.TypePut, protocol.TypeDel:
		s.Dispatch(frame)
		return nil
	default:
		s.logger.Warn("WAL entry skipped: opcode not accepted by table server", "opcode", frame.Header.Type.String())
		return wal.ErrSkipEntry
	}
}

// Close flushes and closes the WAL.
func (s *Server) Close() error {
	if s.wal == nil {
		return nil
	}
	return s.wal.Close()
}

// Tick implements server.Dispatcher.
func (s *Server) Tick() {
	if s.opAddCounter+s.opDelCounter <= uint64(s.exportThreshold) {
		return
	}
	s.checkpoint()
}

func (s *Server) checkpoint() {
	start := time.Now()
	err := s.store.Dump(s.layout.TableSnapshot())
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
