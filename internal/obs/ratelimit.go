package obs

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// WarnLimiter throttles a repeated warning so a slow or hostile peer
// can't flood the operator's log — a connection-table-full client that
// retries in a spin loop, or a checkpoint that keeps failing on every
// mutation. In the style of resource.Controller.ioLimiter
// (resource/controller.go), same golang.org/x/time/rate dependency,
// applied to log lines instead of I/O bytes.
type WarnLimiter struct {
	logger  *Logger
	limiter *rate.Limiter
}

// NewWarnLimiter allows at most burst warnings immediately, refilling at
// ratePerSec thereafter.
func NewWarnLimiter(logger *Logger, ratePerSec float64, burst int) *WarnLimiter {
	return &WarnLimiter{logger: logger, limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Warn logs msg at Warn level if the rate limiter currently has a token
// available, otherwise drops it silently.
func (w *WarnLimiter) Warn(msg string, args ...any) {
	if !w.limiter.Allow() {
		return
	}
	w.logger.Log(context.Background(), slog.LevelWarn, msg, args...)
}
