package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helpdesk-io/helpdesk/internal/connector"
	"github.com/helpdesk-io/helpdesk/internal/desk"
	"github.com/helpdesk-io/helpdesk/internal/ticket"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const (
	defaultEmailDomain = "telegram.ru"
	defaultChannel     = "telegram"
	defaultUserName    = "User"
)

// Desk is the part of the ticket desk the bot uses.
type Desk interface {
	Create(ctx context.Context, nt desk.NewTicket, origin desk.Origin) (*protocol.Ticket, error)
	Get(ctx context.Context, id string) (*protocol.Ticket, error)
}

// Replier delivers a reply to a chat address.
type Replier interface {
	Send(ctx context.Context, destination, text string) bool
}

// Config holds engine settings.
type Config struct {
	// SyntheticEmailDomain is the domain of the placeholder address given to
	// bot-created tickets (default "telegram.ru").
	SyntheticEmailDomain string
	// DefaultChannel is the channel whose chats are addressed by bare ID
	// (default "telegram"). Other channels get "<channel>:" prefixed.
	DefaultChannel string
}

// Engine loads a chat's state, applies one message and replies.
type Engine struct {
	desk        Desk
	states      *StateStore
	replies     Replier
	emailDomain string
	channel     string
	logger      *slog.Logger
}

// NewEngine creates a conversation engine.
func NewEngine(d Desk, states *StateStore, replies Replier, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SyntheticEmailDomain == "" {
		cfg.SyntheticEmailDomain = defaultEmailDomain
	}
	if cfg.DefaultChannel == "" {
		cfg.DefaultChannel = defaultChannel
	}
	return &Engine{
		desk:        d,
		states:      states,
		replies:     replies,
		emailDomain: cfg.SyntheticEmailDomain,
		channel:     cfg.DefaultChannel,
		logger:      logger.With("component", "bot"),
	}
}

// Handle processes msg and sends the reply to its chat. It satisfies
// connector.InboundHandler.
func (e *Engine) Handle(ctx context.Context, msg connector.InboundMessage) error {
	reply, err := e.Respond(ctx, msg)
	if reply != "" && !e.replies.Send(ctx, e.address(msg.Channel, msg.ChatID), reply) {
		err = errors.Join(err, fmt.Errorf("bot: reply to chat %s not delivered", msg.ChatID))
	}
	return err
}

// Respond processes msg and returns the reply text without sending it. It
// satisfies connector.Responder. A non-nil error means the conversation
// state could not be stored; the reply is still valid.
func (e *Engine) Respond(ctx context.Context, msg connector.InboundMessage) (string, error) {
	key := e.address(msg.Channel, msg.ChatID)
	rec := e.states.Load(key)
	in := ParseInput(msg.Content)

	next, action := Transition(rec.State, in)
	e.logger.Debug("transition",
		"chat", key,
		"from", rec.State,
		"to", next,
		"command", in.Command,
	)

	reply := e.execute(ctx, msg, action)

	if !action.Persists() {
		return reply, nil
	}
	rec.State = next
	if err := e.states.Save(key, rec); err != nil {
		e.logger.Error("state save failed", "chat", key, "error", err)
		return reply, fmt.Errorf("bot: %w", err)
	}
	return reply, nil
}

func (e *Engine) execute(ctx context.Context, msg connector.InboundMessage, a Action) string {
	switch a.Kind {
	case ActionWelcome:
		return welcomeText(displayName(msg))
	case ActionHelp:
		return msgHelp
	case ActionPromptDescription:
		return msgPrompt
	case ActionStatusUsage:
		return msgStatusUsage
	case ActionCancelled:
		return msgCancelled
	case ActionNothingToCancel:
		return msgNothingToCancel
	case ActionUnknownCommand:
		return msgUnknownCommand
	case ActionTooShort:
		return msgTooShort
	case ActionRemind:
		return msgRemind
	case ActionStatusLookup:
		return e.lookup(ctx, a.TicketID)
	case ActionCreateTicket:
		return e.create(ctx, msg, a.Description)
	}
	return msgUnknownCommand
}

func (e *Engine) lookup(ctx context.Context, id string) string {
	t, err := e.desk.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ticket.ErrNotFound) {
			e.logger.Error("ticket lookup failed", "ticket_id", id, "error", err)
		}
		return notFoundText(id)
	}
	return summaryText(t)
}

func (e *Engine) create(ctx context.Context, msg connector.InboundMessage, description string) string {
	nt := desk.NewTicket{
		Name:     displayName(msg),
		Email:    e.syntheticEmail(msg),
		Message:  description,
		OriginID: e.address(msg.Channel, msg.SenderID),
	}
	t, err := e.desk.Create(ctx, nt, desk.OriginBot)
	if err != nil {
		e.logger.Error("bot ticket creation failed", "sender", msg.SenderID, "error", err)
		return msgCreateFailed
	}
	return createdText(t.ID)
}

func (e *Engine) syntheticEmail(msg connector.InboundMessage) string {
	if msg.Username != "" {
		return msg.Username + "@" + e.emailDomain
	}
	return "user_" + msg.SenderID + "@" + e.emailDomain
}

// address maps a channel-local ID to a notification address.
func (e *Engine) address(channel, id string) string {
	if channel == "" || channel == e.channel {
		return id
	}
	return channel + ":" + id
}

func displayName(msg connector.InboundMessage) string {
	if msg.DisplayName != "" {
		return msg.DisplayName
	}
	return defaultUserName
}
