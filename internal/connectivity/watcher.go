package connectivity

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Watcher derives connectivity from periodic lookups of a well-known host.
type Watcher struct {
	*listeners

	Logger   *zap.Logger
	Resolver Resolver
	Host     string
	Interval time.Duration
}

// NewWatcher starts optimistic (online) until the first lookup says otherwise.
func NewWatcher(logger *zap.Logger, host string, interval time.Duration) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		listeners: newListeners(true),
		Logger:    logger,
		Resolver:  &net.Resolver{}, // OS resolver
		Host:      host,
		Interval:  interval,
	}
}

// Run does an immediate lookup, then one per tick. Stops when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	w.checkOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("connectivity_watcher_stopped")
			return
		case <-t.C:
			w.checkOnce(ctx)
		}
	}
}

func (w *Watcher) checkOnce(ctx context.Context) {
	s := CheckDNS(ctx, w.Resolver, w.Host)
	if ctx.Err() != nil {
		return
	}
	online := s.Online()
	if w.set(online) {
		w.Logger.Info("connectivity_changed",
			zap.Bool("online", online),
			zap.String("host", s.Host),
			zap.String("class", s.Class),
			zap.String("resolver_error", s.ResolverError),
		)
	}
}
