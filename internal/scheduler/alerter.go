package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/monitor"
	"github.com/hamed0406/healthwatch/internal/repo"
)

const alertQueueSize = 128

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

// Alerter turns monitor transitions into notifications.
type Alerter struct {
	logger   *zap.Logger
	alertDB  repo.AlertStore
	notifier interface {
		Send(context.Context, string, string) error
	}
	cfg    AlerterConfig
	events chan monitor.Event
	now    func() time.Time
}

func NewAlerter(
	logger *zap.Logger,
	alertDB repo.AlertStore,
	notifier interface {
		Send(context.Context, string, string) error
	},
	cfg AlerterConfig,
) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Alerter{
		logger:   logger,
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		events:   make(chan monitor.Event, alertQueueSize),
		now:      time.Now,
	}
}

// Observe is a monitor subscriber. It never blocks; when the queue is full the event is dropped.
func (a *Alerter) Observe(ev monitor.Event) {
	select {
	case a.events <- ev:
	default:
		a.logger.Warn("alerter_queue_full", zap.String("target", ev.Target))
	}
}

func (a *Alerter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-a.events:
			if err := a.handle(ctx, ev); err != nil {
				a.logger.Warn("alerter_error", zap.String("target", ev.Target), zap.Error(err))
			}
		}
	}
}

func (a *Alerter) handle(ctx context.Context, ev monitor.Event) error {
	rec, err := a.alertDB.Get(ctx, ev.Target)
	if err != nil {
		return err
	}

	now := a.now()
	down := ev.State.IsDown

	// Has the up/down state changed compared to what we last recorded?
	stateChanged := rec == nil || rec.LastDown != down
	wasDown := rec != nil && rec.LastDown

	// Cooldown only matters for DOWN alerts (suppresses flapping).
	cooled := true
	if rec != nil && rec.LastSentAt != nil {
		cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
	}

	downAlert := stateChanged && down && cooled
	recoveryAlert := wasDown && !down && a.cfg.AlertOnRecovery // bypass cooldown

	if downAlert || recoveryAlert {
		title := "🔴 Backend DOWN"
		if !down {
			title = "🟢 Backend RECOVERED"
		}

		kind, msg := "n/a", "n/a"
		if ev.State.LastError != nil {
			kind, msg = string(ev.State.LastError.Kind), ev.State.LastError.Message
		}
		text := fmt.Sprintf(
			"URL: %s\nError: %s\nMessage: %s\nFailures: %d\nChecked: %s",
			ev.Target, kind, msg, ev.State.ConsecutiveFailures, ev.Outcome.Timestamp.Format(time.RFC3339),
		)
		if !down {
			text = fmt.Sprintf("URL: %s\nChecked: %s", ev.Target, ev.Outcome.Timestamp.Format(time.RFC3339))
		}

		// Best-effort send; record the state either way so we don't resend.
		if err := a.notifier.Send(ctx, title, text); err != nil {
			a.logger.Warn("alert_send_failed", zap.String("title", title), zap.Error(err))
		} else {
			a.logger.Info("alert_sent", zap.String("title", title), zap.String("target", ev.Target))
		}
		// Cooldown counts from the last DOWN alert, so recoveries keep the old send time.
		sentAt := now
		if !down {
			sentAt = time.Time{}
		}
		return a.alertDB.Set(ctx, ev.Target, down, sentAt)
	}

	// State changed but nothing was sent (cooldown, recovery alerts off, first healthy sighting).
	if stateChanged {
		return a.alertDB.Set(ctx, ev.Target, down, time.Time{})
	}
	return nil
}
