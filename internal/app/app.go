// Package app assembles the desk components from a config.Config. Both
// binaries build through it so they share one view of the data directory.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helpdesk-io/helpdesk/internal/admin"
	"github.com/helpdesk-io/helpdesk/internal/bot"
	"github.com/helpdesk-io/helpdesk/internal/config"
	"github.com/helpdesk-io/helpdesk/internal/connector"
	slackconn "github.com/helpdesk-io/helpdesk/internal/connector/slack"
	"github.com/helpdesk-io/helpdesk/internal/connector/telegram"
	"github.com/helpdesk-io/helpdesk/internal/connector/webhook"
	"github.com/helpdesk-io/helpdesk/internal/desk"
	"github.com/helpdesk-io/helpdesk/internal/eventlog"
	"github.com/helpdesk-io/helpdesk/internal/notify"
	"github.com/helpdesk-io/helpdesk/internal/scheduler"
	"github.com/helpdesk-io/helpdesk/internal/ticket"
)

// App holds the wired components. Telegram and Webhook are nil when not
// configured. Scheduler is always set; it has no jobs without a state TTL.
type App struct {
	Config   *config.Config
	Store    *ticket.FileStore
	Events   *eventlog.Log
	Sink     *notify.Sink
	Desk     *desk.Desk
	Admin    *admin.Handler
	States   *bot.StateStore
	Bot      *bot.Engine
	Telegram *telegram.Connector
	Webhook  *webhook.Handler

	Scheduler *scheduler.Scheduler
}

// Build creates every component for cfg. No network calls are made.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg}

	var err error
	if a.Store, err = ticket.NewFileStore(cfg.Desk.TicketsDir, logger.With("component", "ticket_store")); err != nil {
		return nil, err
	}
	if a.Events, err = eventlog.New(cfg.Desk.LogsDir); err != nil {
		return nil, err
	}
	if a.States, err = bot.NewStateStore(cfg.Desk.StatesDir, cfg.Bot.StateTTL.Duration, logger); err != nil {
		return nil, err
	}

	var senders []connector.Sender
	if tc := cfg.Telegram; tc != nil {
		tg, err := telegram.New(telegram.Config{
			Token:         tc.Token,
			APIEndpoint:   tc.APIEndpoint,
			WebhookSecret: tc.WebhookSecret,
			AllowFrom:     tc.AllowFrom,
			Timeout:       cfg.Notify.Timeout.Duration,
		}, a.handleInbound, logger.With("connector", "telegram"))
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.Telegram = tg
		senders = append(senders, tg)
	}
	if sc := cfg.Slack; sc != nil {
		sl, err := slackconn.New(slackconn.Config{
			BotToken: sc.BotToken,
			Channel:  sc.Channel,
			APIURL:   sc.APIURL,
		}, logger.With("connector", "slack"))
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		senders = append(senders, sl)
	}

	a.Sink = notify.New(notify.Config{
		Admin:   cfg.AdminDestinations(),
		Timeout: cfg.Notify.Timeout.Duration,
	}, logger.With("component", "notify"), senders...)

	a.Desk = desk.New(a.Store, a.Events, a.Sink, desk.Config{ListLimit: cfg.Desk.ListLimit}, logger)
	a.Admin = admin.New(a.Desk, a.Events, logger)
	a.Bot = bot.NewEngine(a.Desk, a.States, a.Sink, bot.Config{
		SyntheticEmailDomain: cfg.Bot.SyntheticEmailDomain,
	}, logger)

	if len(cfg.Webhooks) > 0 {
		endpoints := make(map[string]webhook.EndpointConfig, len(cfg.Webhooks))
		for name, ep := range cfg.Webhooks {
			endpoints[name] = webhook.EndpointConfig{Secret: ep.Secret, BearerToken: ep.BearerToken}
		}
		a.Webhook = webhook.New(webhook.Config{Endpoints: endpoints}, a.Bot.Respond, logger.With("connector", "webhook"))
	}

	a.Scheduler = scheduler.New(logger)
	if cfg.Bot.StateTTL.Duration > 0 && cfg.Bot.SweepSchedule != "" {
		if err := a.Scheduler.Add("state-sweep", cfg.Bot.SweepSchedule, a.sweepStates); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	return a, nil
}

func (a *App) sweepStates(context.Context) error {
	_, err := a.States.Sweep()
	return err
}

// handleInbound defers to the bot engine, which is built after the
// Telegram connector it replies through.
func (a *App) handleInbound(ctx context.Context, msg connector.InboundMessage) error {
	return a.Bot.Handle(ctx, msg)
}
