// Package report renders progress snapshots as log lines without flooding the output:
// intermediate updates are throttled, final ones always go through.
//
//	[eta] download: 45.2% | rate 0.0012%/ms | ETA 7m 36s
package report

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"eta_estimator/estimator"
)

// Reporter logs snapshots at most a fixed number of times per second.
type Reporter struct {
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewReporter creates a Reporter emitting up to linesPerSecond intermediate lines.
// A non-positive value disables throttling.
func NewReporter(logger *zap.Logger, linesPerSecond float64) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if linesPerSecond > 0 {
		limit = rate.Limit(linesPerSecond)
	}
	return &Reporter{
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Observe logs snap unless a line was emitted too recently. It reports whether it logged.
func (r *Reporter) Observe(key string, snap estimator.Snapshot) bool {
	return r.observeAt(time.Now(), key, snap)
}

func (r *Reporter) observeAt(now time.Time, key string, snap estimator.Snapshot) bool {
	if !r.limiter.AllowN(now, 1) {
		return false
	}
	r.logger.Info(Line(key, snap), fields(key, snap)...)
	return true
}

// Final logs snap regardless of throttling.
func (r *Reporter) Final(key string, snap estimator.Snapshot) {
	r.logger.Info(Line(key, snap), append(fields(key, snap), zap.Bool("final", true))...)
}

// Line formats snap for humans.
func Line(key string, snap estimator.Snapshot) string {
	var pct float64
	if snap.Total > 0 {
		pct = float64(snap.Progress) * 100 / float64(snap.Total)
	}
	eta := "unknown"
	if snap.Remaining > 0 {
		eta = FormatDuration(time.Duration(snap.Remaining) * time.Millisecond)
	} else if snap.Total > 0 && snap.Progress >= snap.Total {
		eta = "done"
	}
	return fmt.Sprintf("[eta] %s: %.1f%% | rate %.4g%%/ms | ETA %s", key, pct, snap.Rate, eta)
}

func fields(key string, snap estimator.Snapshot) []zap.Field {
	return []zap.Field{
		zap.String("task", key),
		zap.Uint64("progress", snap.Progress),
		zap.Uint64("total", snap.Total),
		zap.Float64("rate", snap.Rate),
		zap.Uint64("remaining_ms", snap.Remaining),
	}
}

// FormatDuration formats a duration as a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
