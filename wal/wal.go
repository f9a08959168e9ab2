// Package wal implements the write-ahead log shared by the index server
// and the table server.
//
// Unlike a general-purpose WAL, entries here are not a bespoke record
// format: each entry is the exact header+payload bytes of a request frame
// that was applied to the in-memory collaborator, appended verbatim. This
// lets Replay hand entries back to the same opcode handlers that serve
// live connections, with the WAL handle set to nil so the handler's own
// "log to WAL on success" step is skipped the second time around.
package wal

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/victor-base/victordb/protocol"
)

// WAL is an append-only, raw-frame durability log.
type WAL struct {
	mu         sync.Mutex
	file       *os.File
	w          *bufio.Writer
	path       string
	durability DurabilityMode
	size       int64
}

// Open opens (creating if necessary) the WAL file at path in append mode.
// An existing WAL is left untouched — callers are expected to Replay it
// before appending new entries.
func Open(path string, optFns ...Option) (*WAL, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("wal: opening %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("wal: stat %s: %w", path, err)
	}

	return &WAL{
		file:       f,
		w:          bufio.NewWriter(f),
		path:       path,
		durability: opts.Durability,
		size:       st.Size(),
	}, nil
}

// Path returns the WAL's filesystem path.
func (w *WAL) Path() string {
	return w.path
}

// Size returns the current on-disk size of the WAL in bytes.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Append writes one frame to the WAL. The frame is flushed to the OS
// immediately; whether it is also fsynced depends on the configured
// DurabilityMode.
func (w *WAL) Append(f protocol.Frame) error {
	raw, err := f.Bytes()
	if err != nil {
		return fmt.Errorf("wal: encoding frame: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.w.Write(raw)
	if err != nil {
		return fmt.Errorf("wal: writing frame: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("wal: flushing frame: %w", err)
	}
	w.size += int64(n)

	if w.durability == DurabilitySync {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("wal: fsync: %w", err)
		}
	}
	return nil
}

// Checkpoint removes the WAL file from disk and reopens a fresh one at
// the same path. Callers must have already persisted a snapshot that
// subsumes everything the WAL held — Checkpoint itself does not know how
// to rebuild state, it only discards the log.
func (w *WAL) Checkpoint() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("wal: flushing before checkpoint: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("wal: closing before checkpoint: %w", err)
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("wal: removing %s: %w", w.path, err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("wal: reopening %s after checkpoint: %w", w.path, err)
	}
	w.file = f
	w.w = bufio.NewWriter(f)
	w.size = 0
	return nil
}

// Close flushes and closes the underlying file. It does not checkpoint.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.w.Flush(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("wal: flushing on close: %w", err)
	}
	return w.file.Close()
}
