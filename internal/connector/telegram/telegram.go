package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/helpdesk-io/helpdesk/internal/connector"
)

// SecretHeader carries the secret_token registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Config holds Telegram connector configuration.
type Config struct {
	Token         string        // Bot token from @BotFather
	APIEndpoint   string        // Format string with token and method, default tgbotapi.APIEndpoint
	WebhookSecret string        // Expected SecretHeader value (empty = not checked)
	AllowFrom     []int64       // Allowed Telegram user IDs (empty = allow all)
	Timeout       time.Duration // HTTP timeout for Bot API calls, default 5s
}

// Connector implements connector.Connector for Telegram. Inbound updates
// arrive either through ServeHTTP (webhook) or Start (long polling).
type Connector struct {
	bot     *tgbotapi.BotAPI
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates a Telegram connector. No network call is made; the token is
// first exercised by Send or Start.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is required")
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	bot := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.Timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(cfg.APIEndpoint)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
// Only used when no webhook is registered with Telegram.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Long-poll client timeout must outlast the server-side wait.
	poller, err := tgbotapi.NewBotAPIWithClient(c.config.Token, c.config.APIEndpoint,
		&http.Client{Timeout: 45 * time.Second})
	if err != nil {
		return fmt.Errorf("telegram: init poller: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := poller.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", poller.Self.UserName)

	for {
		select {
		case update := <-updates:
			if err := c.handleUpdate(ctx, update); err != nil {
				c.logger.Error("inbound handler error", "update_id", update.UpdateID, "error", err)
			}

		case <-ctx.Done():
			poller.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Telegram chat. ChatID is a numeric chat ID or
// an "@channel" username. Send returns when ctx is done even if the Bot API
// call is still in flight; that call is bounded by Config.Timeout.
func (c *Connector) Send(ctx context.Context, msg connector.OutboundMessage) error {
	if strings.TrimSpace(msg.Content) == "" {
		c.logger.Warn("skipping empty message", "chat_id", msg.ChatID)
		return nil
	}

	var tgMsg tgbotapi.MessageConfig
	if strings.HasPrefix(msg.ChatID, "@") {
		tgMsg = tgbotapi.NewMessageToChannel(msg.ChatID, msg.Content)
	} else {
		chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram: invalid chat_id %q: %w", msg.ChatID, err)
		}
		tgMsg = tgbotapi.NewMessage(chatID, msg.Content)
	}
	tgMsg.ParseMode = tgbotapi.ModeHTML
	tgMsg.DisableWebPagePreview = true

	err := c.call(ctx, tgMsg)
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Message, "parse entities") {
		// Telegram rejected the markup; retry as plain text.
		c.logger.Warn("HTML send failed, falling back to plain text",
			"chat_id", msg.ChatID,
			"error", err,
		)
		tgMsg.Text = connector.PlainText(msg.Content)
		tgMsg.ParseMode = ""
		err = c.call(ctx, tgMsg)
	}
	if err != nil {
		return fmt.Errorf("telegram: send to %s: %w", msg.ChatID, err)
	}
	return nil
}

// call runs one Bot API request. tgbotapi builds requests without a
// context, so cancellation only stops the wait.
func (c *Connector) call(ctx context.Context, msg tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := c.bot.Send(msg)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP handles webhook deliveries. Telegram redelivers on non-2xx, so
// handler failures are logged and still acknowledged with 200.
func (c *Connector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if c.config.WebhookSecret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(c.config.WebhookSecret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	update, err := c.bot.HandleUpdate(r)
	if err != nil {
		c.logger.Warn("invalid webhook update", "error", err)
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	if err := c.handleUpdate(r.Context(), *update); err != nil {
		c.logger.Error("inbound handler error", "update_id", update.UpdateID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (c *Connector) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	inbound, ok := inboundFromUpdate(update)
	if !ok {
		c.logger.Debug("ignoring non-text update", "update_id", update.UpdateID)
		return nil
	}

	// Access control
	if len(c.config.AllowFrom) > 0 {
		userID, _ := strconv.ParseInt(inbound.SenderID, 10, 64)
		if !contains(c.config.AllowFrom, userID) {
			c.logger.Warn("unauthorized user", "user_id", inbound.SenderID, "username", inbound.Username)
			return nil
		}
	}

	return c.handler(ctx, inbound)
}

// inboundFromUpdate extracts the fields the bot engine consumes.
func inboundFromUpdate(update tgbotapi.Update) (connector.InboundMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return connector.InboundMessage{}, false
	}
	return connector.InboundMessage{
		Channel:     "telegram",
		SenderID:    strconv.FormatInt(msg.From.ID, 10),
		ChatID:      strconv.FormatInt(msg.Chat.ID, 10),
		Username:    msg.From.UserName,
		DisplayName: msg.From.FirstName,
		Content:     strings.TrimSpace(msg.Text),
	}, true
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
