// Package obs provides the ambient observability stack shared by both
// servers: structured logging, a pluggable metrics collector, and a
// log-rate limiter for warnings a hostile or malfunctioning client could
// otherwise flood the operator's log with.
package obs

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with victordb-specific fields and the
// lifecycle/operation log lines called out in §7 and §9.
type Logger struct {
	*slog.Logger
}

// NewTextLogger creates a Logger that writes human-readable text to
// stderr at the given minimum level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewJSONLogger creates a Logger that writes JSON to stderr at the given
// minimum level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards everything. Used in tests that don't want log
// noise on failure paths they're deliberately exercising.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// With returns a Logger with additional structured fields attached.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// LogStartup logs the resolved configuration banner (SPEC_FULL.md Part D.1): name,
// storage paths, and server-specific fields passed in extra.
func (l *Logger) LogStartup(server, name, socketPath, dbRoot string, exportThreshold int, extra ...any) {
	args := []any{
		"server", server,
		"name", name,
		"socket", socketPath,
		"db_root", dbRoot,
		"export_threshold", exportThreshold,
	}
	l.Info("starting", append(args, extra...)...)
}

// LogBind logs the listener bind.
func (l *Logger) LogBind(path string) {
	l.Info("listening", "socket", path)
}

// LogShutdown logs a clean termination.
func (l *Logger) LogShutdown(reason string) {
	l.Info("shutting down", "reason", reason)
}

// LogConnection logs a connection lifecycle event at Debug. Rejection
// beyond MAX_CONNECTIONS is logged separately, through a WarnLimiter, so
// a spinning client can't flood the log with Warn lines.
func (l *Logger) LogConnection(event string, slot int) {
	l.Debug("connection "+event, "slot", slot)
}

// LogInsert logs an INSERT outcome.
func (l *Logger) LogInsert(ctx context.Context, id uint64, dims int, err error) {
	if err != nil {
		l.WarnContext(ctx, "insert failed", "id", id, "dims", dims, "error", err)
		return
	}
	l.DebugContext(ctx, "insert applied", "id", id, "dims", dims)
}

// LogDelete logs a DELETE/DEL outcome.
func (l *Logger) LogDelete(ctx context.Context, key string, err error) {
	if err != nil {
		l.WarnContext(ctx, "delete failed", "key", key, "error", err)
		return
	}
	l.DebugContext(ctx, "delete applied", "key", key)
}

// LogSearch logs a SEARCH outcome.
func (l *Logger) LogSearch(ctx context.Context, k, results int, err error) {
	if err != nil {
		l.WarnContext(ctx, "search failed", "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "k", k, "results", results)
}

// LogCheckpoint logs a successful checkpoint. Failure is logged
// separately, through a WarnLimiter, since a checkpoint that keeps
// failing would otherwise log on every Tick.
func (l *Logger) LogCheckpoint(mutations int) {
	l.Info("checkpoint complete, WAL truncated", "mutations", mutations)
}

// LogReplay logs the outcome of WAL replay at startup, including the
// applied/skipped counts called out in SPEC_FULL.md Part D.3.
func (l *Logger) LogReplay(path string, applied, skipped int, err error) {
	if err != nil {
		l.Error("WAL replay aborted", "path", path, "applied", applied, "skipped", skipped, "error", err)
		return
	}
	l.Info("WAL replay complete", "path", path, "applied", applied, "skipped", skipped)
}

// LogWALWriteFailure logs a tolerated WAL append failure (§7: "logged as
// a warning", mutation already committed in memory).
func (l *Logger) LogWALWriteFailure(op string, err error) {
	l.Warn("WAL append failed, mutation already applied in memory", "op", op, "error", err)
}
