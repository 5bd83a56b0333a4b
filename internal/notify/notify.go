// Package notify is the best-effort outbound messaging used by ticket
// operations and the bot. Delivery failures are logged and swallowed so they
// never abort the operation that triggered them.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/helpdesk-io/helpdesk/internal/connector"
)

const defaultTimeout = 5 * time.Second

// Config holds sink settings.
type Config struct {
	// Admin lists the addresses that receive admin notifications.
	Admin []string
	// Timeout bounds each outbound call, default 5s.
	Timeout time.Duration
}

// Sink routes text to connector senders by address. An address is either
// "<chat>" for the default (first) sender, or "<channel>:<chat>" for the
// sender with that name, e.g. "slack:C0123".
type Sink struct {
	senders map[string]connector.Sender
	def     connector.Sender
	admin   []string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a sink. The first sender is the default route; with no
// senders every notification is dropped (and logged).
func New(cfg Config, logger *slog.Logger, senders ...connector.Sender) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	s := &Sink{
		senders: make(map[string]connector.Sender, len(senders)),
		admin:   cfg.Admin,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	for i, snd := range senders {
		if i == 0 {
			s.def = snd
		}
		s.senders[snd.Name()] = snd
	}
	return s
}

// Send delivers text to destination and reports success.
func (s *Sink) Send(ctx context.Context, destination, text string) bool {
	snd, chatID := s.route(destination)
	if snd == nil {
		s.logger.Warn("notification dropped: no route", "destination", destination)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := snd.Send(ctx, connector.OutboundMessage{ChatID: chatID, Content: text}); err != nil {
		s.logger.Error("notification failed",
			"connector", snd.Name(),
			"destination", destination,
			"error", err,
		)
		return false
	}
	s.logger.Debug("notification sent", "connector", snd.Name(), "destination", destination)
	return true
}

// NotifyAdmin delivers text to every admin address and reports whether at
// least one accepted it.
func (s *Sink) NotifyAdmin(ctx context.Context, text string) bool {
	if len(s.admin) == 0 {
		s.logger.Warn("admin notification dropped: no admin destination configured")
		return false
	}
	ok := false
	for _, addr := range s.admin {
		if s.Send(ctx, addr, text) {
			ok = true
		}
	}
	return ok
}

func (s *Sink) route(destination string) (connector.Sender, string) {
	if name, chatID, found := strings.Cut(destination, ":"); found {
		if snd, ok := s.senders[name]; ok {
			return snd, chatID
		}
		return nil, ""
	}
	return s.def, destination
}
