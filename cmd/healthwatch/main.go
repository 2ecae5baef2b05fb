// Package main runs the healthwatch daemon: it watches the backend's liveness
// endpoint, backs off while it is down and serves the current belief over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/healthwatch/internal/config"
	"github.com/hamed0406/healthwatch/internal/connectivity"
	"github.com/hamed0406/healthwatch/internal/httpapi"
	apimw "github.com/hamed0406/healthwatch/internal/httpapi/middleware"
	"github.com/hamed0406/healthwatch/internal/logging"
	"github.com/hamed0406/healthwatch/internal/metrics"
	"github.com/hamed0406/healthwatch/internal/monitor"
	"github.com/hamed0406/healthwatch/internal/notify"
	"github.com/hamed0406/healthwatch/internal/probe"
	"github.com/hamed0406/healthwatch/internal/repo"
	"github.com/hamed0406/healthwatch/internal/repo/memory"
	"github.com/hamed0406/healthwatch/internal/repo/postgres"
	"github.com/hamed0406/healthwatch/internal/report"
	"github.com/hamed0406/healthwatch/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "healthwatch",
	Short: "Watch a backend's health endpoint and report its availability",
	Long: `healthwatch probes GET <API_BASE><HEALTH_PATH>, marks the backend down on
failure and retries with exponential backoff (10s, 20s, 30s cap) until it
recovers. The current state is served at /api/status.

Settings come from an optional YAML file, overridden by environment variables
(API_BASE, RETRY_BASE_MS, DATABASE_URL, ...).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(logging.Options{Dir: cfg.LogDir, Level: cfg.LogLevel, Mode: cfg.LogMode})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	checks, alerts, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", zap.Error(err))
		return err
	}
	defer closeStores()

	var conn connectivity.Probe = connectivity.NewStatic(true)
	var watcher *connectivity.Watcher
	if cfg.ConnectivityHost != "" {
		watcher = connectivity.NewWatcher(logger, cfg.ConnectivityHost, cfg.ConnectivityInterval())
		conn = watcher
	}

	mon, err := monitor.New(monitor.Options{
		Checker:               probe.NewHealthChecker(cfg.HealthPath, cfg.HealthTimeout()),
		Target:                cfg.APIBase,
		Connectivity:          conn,
		Logger:                logger,
		Timeout:               cfg.HealthTimeout(),
		Backoff:               monitor.Backoff{Base: cfg.RetryBase(), Max: cfg.RetryMax()},
		RescheduleOnCollision: cfg.RetryOnCollision,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mon.Subscribe(metrics.NewCollector(reg).Observe)
	mon.Subscribe(report.NewRecorder(logger, checks, report.Mode(cfg.LogMode), cfg.HealthPath).Observe)

	notifiers, closeNotifiers, err := openNotifiers(cfg)
	if err != nil {
		logger.Warn("notifier_unavailable", zap.Error(err))
	}
	defer closeNotifiers()
	if len(notifiers) > 0 {
		alerter := scheduler.NewAlerter(logger, alerts, notifiers, scheduler.AlerterConfig{
			AlertOnRecovery: cfg.AlertOnRecovery,
			Cooldown:        cfg.AlertCooldown(),
		})
		mon.Subscribe(alerter.Observe)
		go func() { _ = alerter.Run(ctx) }()
	}

	if err := startMonitor(ctx, mon, watcher); err != nil {
		return err
	}
	defer mon.Dispose()
	go scheduler.NewRechecker(logger, mon, cfg.PollInterval()).Run(ctx)

	api := httpapi.NewServer(logger, mon, checks, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	keys := apimw.Keys{Public: cfg.PublicAPIKeys(), Admin: cfg.AdminAPIKeys()}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins(), cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("target", cfg.APIBase))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_listen_failed", zap.Error(err))
			return err
		}
	}

	logger.Info("shutdown_started")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
	return nil
}

// startMonitor initialises mon before the watcher's first lookup so no
// connectivity transition happens without a listener.
func startMonitor(ctx context.Context, mon *monitor.Monitor, watcher *connectivity.Watcher) error {
	if err := mon.Init(ctx); err != nil {
		return err
	}
	if watcher != nil {
		go watcher.Run(ctx)
	}
	return nil
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.CheckStore, repo.AlertStore, func(), error) {
	if cfg.DatabaseURL == "" {
		mem := memory.New(memory.DefaultCapacity)
		logger.Info("store_selected", zap.String("kind", "memory"))
		return mem, mem, func() {}, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("store_selected", zap.String("kind", "postgres"))
	return pg, pg, pg.Close, nil
}

// openNotifiers returns the configured senders. A NATS connection failure
// leaves the others usable.
func openNotifiers(cfg config.Config) (notify.Multi, func(), error) {
	var ns notify.Multi
	closeFn := func() {}
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		ns = append(ns, s)
	}
	if cfg.NATSURL == "" {
		return ns, closeFn, nil
	}
	nc, err := notify.Connect(cfg.NATSURL)
	if err != nil {
		return ns, closeFn, err
	}
	ns = append(ns, notify.NewNATS(nc, cfg.NATSSubject))
	return ns, func() { _ = nc.Drain() }, nil
}
