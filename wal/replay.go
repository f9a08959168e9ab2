package wal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/victor-base/victordb/protocol"
)

// Stats summarizes a Replay pass: an "N entries loaded successfully, M
// with errors" startup log line reads directly off of it.
type Stats struct {
	Applied int
	Skipped int
}

// Apply is called once per frame read back from the WAL, in the order
// they were originally appended. Returning ErrSkipEntry marks the entry
// as skipped (e.g. an opcode the current binary doesn't recognize) without
// aborting the replay; any other non-nil error aborts it.
type Apply func(protocol.Frame) error

// ErrSkipEntry lets an Apply callback report "not applicable" for one
// entry without treating it as corruption.
var ErrSkipEntry = errors.New("wal: entry skipped")

// Replay reads path from the beginning and calls apply for each frame in
// order. A missing file replays as zero entries, matching a fresh
// database that has never written a WAL.
//
// Replay distinguishes a clean end of file at a frame boundary (normal
// termination) from a short or malformed frame (corruption): the former
// returns a nil error, the latter returns a non-nil error alongside
// whatever Stats were accumulated before the bad frame. The original
// implementation's equivalent is victor_table_loadwal's errno-based
// corruption check in table_server.c.
func Replay(path string, apply Apply) (Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("wal: opening %s for replay: %w", path, err)
	}
	defer f.Close()

	var scratch []byte
	for {
		frame, err := protocol.ReadFrame(f, &scratch)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("wal: corrupt entry during replay of %s after %d applied: %w", path, stats.Applied, err)
		}

		if err := apply(frame); err != nil {
			if errors.Is(err, ErrSkipEntry) {
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("wal: applying entry %d during replay of %s: %w", stats.Applied+stats.Skipped+1, path, err)
		}
		stats.Applied++
	}
}
