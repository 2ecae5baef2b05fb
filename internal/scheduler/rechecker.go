package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/domain"
)

// Trigger is the part of the monitor the rechecker drives.
type Trigger interface {
	CheckHealth()
	State() domain.State
}

// Rechecker polls the backend while it is believed healthy. While it is down
// the monitor's own backoff owns the schedule.
type Rechecker struct {
	Logger   *zap.Logger
	Monitor  Trigger
	Interval time.Duration
}

func NewRechecker(logger *zap.Logger, m Trigger, interval time.Duration) *Rechecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < 0 {
		interval = 0
	}
	return &Rechecker{Logger: logger, Monitor: m, Interval: interval}
}

// Run triggers a check on each tick. No immediate pass: the monitor probes on Init.
// Stops when ctx is cancelled.
func (r *Rechecker) Run(ctx context.Context) {
	if r.Interval == 0 {
		// disabled
		r.Logger.Info("rechecker_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("rechecker_stopped")
			return
		case <-t.C:
			r.tick()
		}
	}
}

func (r *Rechecker) tick() {
	s := r.Monitor.State()
	if s.IsDown || s.IsChecking {
		return
	}
	r.Logger.Debug("rechecker_triggered")
	r.Monitor.CheckHealth()
}
