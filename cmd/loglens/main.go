package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/loglens/loglens/internal/alert"
	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/health"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/shutdown"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/internal/tailer"
	"github.com/loglens/loglens/internal/tracing"
)

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	version    = "1.0.0"
)

const banner = `
 _              _
| |    ___   __| | ___ _ __  ___
| |   / _ \ / _| |/ _ \ '_ \/ __|
| |__| (_) | (_| |  __/ | | \__ \
|_____\___/ \__,_|\___|_| |_|___/
`

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadOrDefault(*configFile)

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logging.SetGlobal(logger)

	fmt.Print(banner)
	logger.Info().Str("version", version).Str("address", cfg.Server.Address).Msg("starting loglens")

	manager := shutdown.New(shutdown.Config{
		Timeout: cfg.Server.ShutdownTimeout + 15*time.Second,
		Logger:  logger,
	})

	tracer, err := tracing.NewProvider(context.Background(), cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	manager.Register("tracing", tracer.Shutdown)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	manager.Register("store", func(context.Context) error { return st.Close() })
	logger.Info().Str("path", cfg.Storage.Path).Msg("storage ready")

	collector := metrics.NewCollector()
	svc := ingest.NewService(st, collector, cfg.Ingest.DefaultSource, logger)

	checker := health.NewChecker(0)
	checker.Register("storage", health.PingCheck(st))

	if cfg.Alerts.Enabled {
		var email alert.EmailSender
		if cfg.Alerts.SMTP.Host != "" {
			email = alert.NewEmailNotifier(cfg.Alerts.SMTP)
		}
		heartbeat := health.NewHeartbeat()
		checker.Register("alerts", heartbeat.Check(3*cfg.Alerts.Interval))

		engine := alert.NewEngine(alert.Config{
			Interval:      cfg.Alerts.Interval,
			NotifyTimeout: cfg.Alerts.NotifyTimeout,
			OnSweepDone:   heartbeat.Beat,
		}, st, alert.NewWebhookNotifier(cfg.Alerts.NotifyTimeout), email, collector, logger)

		engineCtx, cancelEngine := context.WithCancel(context.Background())
		engineDone := make(chan struct{})
		go func() {
			engine.Run(engineCtx)
			close(engineDone)
		}()
		manager.Register("alerts", func(ctx context.Context) error {
			cancelEngine()
			select {
			case <-engineDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	if len(cfg.Tail) > 0 {
		files := make([]tailer.File, 0, len(cfg.Tail))
		for _, tc := range cfg.Tail {
			files = append(files, tailer.File{Path: tc.Path, Source: tc.Source})
		}
		tl, err := tailer.New(files, svc, logger)
		if err != nil {
			return fmt.Errorf("creating tailer: %w", err)
		}
		if err := tl.Start(); err != nil {
			return fmt.Errorf("starting tailer: %w", err)
		}
		manager.Register("tailer", func(context.Context) error {
			tl.Stop()
			return nil
		})
	}

	srv := api.New(cfg.Server, cfg.Ingest, svc, st, collector, checker, logger)
	manager.Register("http", srv.Shutdown)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			manager.Shutdown()
		}
	}()

	manager.WaitForSignal()
	return nil
}
