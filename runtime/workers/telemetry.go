package workers

import (
	"context"
	"log/slog"
	"time"
)

// TelemetryWorker logs the local live-connection count at a fixed
// interval. Prometheus already exposes the same number; the log line is
// for operators tailing a single instance.
type TelemetryWorker struct {
	log             *slog.Logger
	interval        time.Duration
	liveConnections func() int
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration, liveConnections func() int) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval, liveConnections: liveConnections}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.log.Info("Presence report", "live_connections", w.liveConnections())
		}
	}
}
