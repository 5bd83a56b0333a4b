package slackconn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/helpdesk-io/helpdesk/internal/connector"
)

// Config holds Slack sender configuration.
type Config struct {
	BotToken string // xoxb-... Bot User OAuth Token
	Channel  string // Default channel ID for messages without a ChatID
	APIURL   string // Optional API base URL override, must end with "/"
}

// Sender implements connector.Sender for Slack. It only posts; the desk
// takes no inbound traffic from Slack.
type Sender struct {
	api    *slack.Client
	config Config
	logger *slog.Logger
}

// New creates a Slack sender.
func New(cfg Config, logger *slog.Logger) (*Sender, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("slack: bot_token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []slack.Option
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}

	return &Sender{
		api:    slack.New(cfg.BotToken, opts...),
		config: cfg,
		logger: logger,
	}, nil
}

func (s *Sender) Name() string { return "slack" }

// Send posts a message to msg.ChatID, or the configured channel when empty.
func (s *Sender) Send(ctx context.Context, msg connector.OutboundMessage) error {
	channel := msg.ChatID
	if channel == "" {
		channel = s.config.Channel
	}
	if channel == "" {
		return errors.New("slack: no channel configured")
	}
	if strings.TrimSpace(msg.Content) == "" {
		s.logger.Warn("skipping empty message", "channel", channel)
		return nil
	}

	_, _, err := s.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(connector.Mrkdwn(msg.Content), true),
	)
	if err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}
