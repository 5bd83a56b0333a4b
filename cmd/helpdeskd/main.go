package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/helpdesk-io/helpdesk/internal/api"
	"github.com/helpdesk-io/helpdesk/internal/app"
	"github.com/helpdesk-io/helpdesk/internal/config"
	"github.com/helpdesk-io/helpdesk/internal/logbuf"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file (default: HELPDESK_* environment)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))
	slog.SetDefault(logger)

	if err := run(*configPath, logger, logBuf); err != nil {
		logger.Error("helpdeskd failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(configPath string, logger *slog.Logger, logBuf *logbuf.Buffer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	a, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("helpdeskd starting",
		"tickets_dir", cfg.Desk.TicketsDir,
		"telegram", a.Telegram != nil,
		"slack", cfg.Slack != nil,
		"webhooks", len(cfg.Webhooks),
	)
	if len(cfg.AdminDestinations()) == 0 {
		logger.Warn("no admin notification destination configured")
	}

	deps := api.Deps{
		Desk:        a.Desk,
		Admin:       a.Admin,
		Events:      a.Events,
		ProcessLogs: logBuf,
	}
	polling := false
	if a.Telegram != nil {
		if cfg.Telegram.Mode == config.ModePolling {
			polling = true
		} else {
			deps.Telegram = a.Telegram
		}
	}
	if a.Webhook != nil {
		deps.Webhook = a.Webhook
	}

	srv := api.NewServer(deps, api.Config{
		Host:              cfg.API.Host,
		Port:              cfg.API.Port,
		AdminPassword:     cfg.Admin.Password,
		AdminPasswordHash: cfg.Admin.PasswordHash,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(safeGo(logger, "api-server", func() error { return srv.Start(ctx) }))
	if a.Scheduler.JobCount() > 0 {
		g.Go(safeGo(logger, "scheduler", func() error { return a.Scheduler.Start(ctx) }))
	}
	if polling {
		g.Go(safeGo(logger, "telegram", func() error { return a.Telegram.Start(ctx) }))
	}

	err = g.Wait()
	logger.Info("helpdeskd stopped")
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// safeGo wraps fn with panic recovery for use in an errgroup.
func safeGo(logger *slog.Logger, name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
				err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		return fn()
	}
}
