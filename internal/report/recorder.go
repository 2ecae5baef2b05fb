// Package report records every health outcome and reports failures the way
// the application's error reporter does: verbose in development, compact in
// production.
package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
	"github.com/hamed0406/healthwatch/internal/monitor"
	"github.com/hamed0406/healthwatch/internal/repo"
)

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

const storeTimeout = 2 * time.Second

type Recorder struct {
	log      *zap.Logger
	store    repo.CheckStore
	mode     Mode
	endpoint string
}

// NewRecorder reports against endpoint (the liveness path). store may be nil.
func NewRecorder(log *zap.Logger, store repo.CheckStore, mode Mode, endpoint string) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if mode != ModeDevelopment {
		mode = ModeProduction
	}
	return &Recorder{log: log, store: store, mode: mode, endpoint: endpoint}
}

// Observe is a monitor subscriber.
func (r *Recorder) Observe(ev monitor.Event) {
	if !ev.Outcome.IsHealthy() {
		r.captureAPIError(ev)
	}
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.Append(ctx, domain.NewCheckRecord(ev.Target, ev.Outcome)); err != nil {
		r.log.Warn("check_history_append_error", zap.String("target", ev.Target), zap.Error(err))
	}
}

func (r *Recorder) captureAPIError(ev monitor.Event) {
	o := ev.Outcome
	if r.mode == ModeDevelopment {
		r.log.Error("api_error_captured",
			zap.String("type", "API_ERROR"),
			zap.String("endpoint", r.endpoint),
			zap.String("target", ev.Target),
			zap.String("error_type", string(o.Kind)),
			zap.String("message", o.Message),
			zap.Int("status", o.StatusCode),
			zap.Float64("latency_ms", o.LatencyMS),
			zap.Uint("retry_count", o.RetryCount),
			zap.Bool("is_online", ev.Online),
			zap.String("cause", string(ev.Cause)),
			zap.Time("timestamp", o.Timestamp),
		)
		return
	}
	r.log.Warn("api_error",
		zap.String("endpoint", r.endpoint),
		zap.String("error_type", string(o.Kind)),
		zap.Uint("retry_count", o.RetryCount),
		zap.Bool("is_online", ev.Online),
	)
}
