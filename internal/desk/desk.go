// Package desk implements the ticket operations shared by the web form, the
// chat bot, the admin panel and the CLI: validation, ID assignment, event
// logging and notifications around a ticket.Store.
package desk

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpdesk-io/helpdesk/internal/ticket"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const (
	// DefaultListLimit caps List results when Config.ListLimit is unset.
	DefaultListLimit = 20

	idAttempts = 5
)

// Origin identifies the path a ticket was created through.
type Origin int

const (
	// OriginWeb is the web form; email is format-checked.
	OriginWeb Origin = iota
	// OriginBot is a chat bot; email is synthetic and not checked.
	OriginBot
)

func (o Origin) String() string {
	if o == OriginBot {
		return "bot"
	}
	return "web"
}

// NewTicket is the user-supplied part of a ticket.
type NewTicket struct {
	Name     string
	Email    string
	Message  string
	OriginID string // remote chat identity; empty for web tickets
}

// EventLog records operational events.
type EventLog interface {
	Append(msg string) error
}

// Notifier delivers best-effort notifications.
type Notifier interface {
	Send(ctx context.Context, destination, text string) bool
	NotifyAdmin(ctx context.Context, text string) bool
}

// Config holds desk settings.
type Config struct {
	ListLimit int
}

// Desk composes the store, the event log and the notifier.
type Desk struct {
	store     ticket.Store
	events    EventLog
	notifier  Notifier
	listLimit int
	logger    *slog.Logger

	now   func() time.Time
	newID func() (string, error)
}

// New creates a desk.
func New(store ticket.Store, events EventLog, notifier Notifier, cfg Config, logger *slog.Logger) *Desk {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultListLimit
	}
	return &Desk{
		store:     store,
		events:    events,
		notifier:  notifier,
		listLimit: cfg.ListLimit,
		logger:    logger.With("component", "desk"),
		now:       time.Now,
		newID:     newTicketID,
	}
}

// newTicketID returns a UUIDv7 as 32 lowercase hex characters.
func newTicketID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(u[:]), nil
}

// Create validates and stores a new open ticket, then notifies the admin.
func (d *Desk) Create(ctx context.Context, nt NewTicket, origin Origin) (*protocol.Ticket, error) {
	name := strings.TrimSpace(nt.Name)
	email := strings.TrimSpace(nt.Email)
	message := strings.TrimSpace(nt.Message)

	if err := validate(name, email, message, origin); err != nil {
		d.logger.Info("ticket rejected", "origin", origin, "error", err)
		return nil, err
	}

	id, err := d.freeID()
	if err != nil {
		d.logger.Error("ticket id allocation failed", "error", err)
		return nil, fmt.Errorf("desk: create: %w", err)
	}

	now := protocol.NewTimestamp(d.now())
	t := &protocol.Ticket{
		ID:        id,
		Name:      name,
		Email:     email,
		Message:   message,
		Status:    protocol.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nt.OriginID != "" {
		oid := nt.OriginID
		t.UserOriginID = &oid
	}

	if err := d.store.Save(t); err != nil {
		d.logger.Error("ticket save failed", "ticket_id", id, "error", err)
		return nil, fmt.Errorf("desk: create: %w", err)
	}

	d.event("ticket created: " + id)
	d.logger.Info("ticket created", "ticket_id", id, "origin", origin)
	d.notifier.NotifyAdmin(ctx, fmt.Sprintf("New ticket #%s from %s", id, escape(name)))
	return t, nil
}

func validate(name, email, message string, origin Origin) error {
	if name == "" {
		return &ticket.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if email == "" {
		return &ticket.ValidationError{Field: "email", Reason: "must not be empty"}
	}
	if origin == OriginWeb {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return &ticket.ValidationError{Field: "email", Reason: "not a valid address"}
		}
	}
	if message == "" {
		return &ticket.ValidationError{Field: "message", Reason: "must not be empty"}
	}
	return nil
}

func (d *Desk) freeID() (string, error) {
	for range idAttempts {
		id, err := d.newID()
		if err != nil {
			return "", fmt.Errorf("generate id: %v: %w", err, ticket.ErrPersistence)
		}
		exists, err := d.store.Exists(id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		d.logger.Warn("ticket id collision", "ticket_id", id)
	}
	return "", fmt.Errorf("no free id after %d attempts: %w", idAttempts, ticket.ErrPersistence)
}

// Get returns one ticket.
func (d *Desk) Get(_ context.Context, id string) (*protocol.Ticket, error) {
	t, err := d.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("desk: get %s: %w", id, err)
	}
	return t, nil
}

// UpdateStatus moves a ticket to status and notifies the admin and, when the
// ticket came from a chat, its author.
func (d *Desk) UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) (*protocol.Ticket, error) {
	if !status.Valid() {
		d.event(fmt.Sprintf("rejected status %q for ticket %s", status, id))
		d.logger.Warn("invalid status requested", "ticket_id", id, "status", status)
		return nil, fmt.Errorf("desk: update status %q: %w", status, ticket.ErrInvalidStatus)
	}

	t, err := d.store.Get(id)
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			d.event(fmt.Sprintf("ticket %s not found for status update", id))
		}
		return nil, fmt.Errorf("desk: update status %s: %w", id, err)
	}

	old := t.Status
	t.Status = status
	t.UpdatedAt = protocol.NewTimestamp(d.now())
	if err := d.store.Save(t); err != nil {
		d.event(fmt.Sprintf("write failed updating ticket %s", id))
		d.logger.Error("ticket save failed", "ticket_id", id, "error", err)
		return nil, fmt.Errorf("desk: update status %s: %w", id, err)
	}

	d.event(fmt.Sprintf("ticket %s status changed: %s → %s", id, old, status))
	d.logger.Info("ticket status changed", "ticket_id", id, "from", old, "to", status)

	d.notifier.NotifyAdmin(ctx, adminStatusText(t, old))
	if dest := t.OriginID(); dest != "" {
		d.notifier.Send(ctx, dest, userStatusText(t))
	}
	return t, nil
}

// Delete removes a ticket. Unconfirmed deletes are refused without touching
// storage.
func (d *Desk) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("desk: delete %s: %w", id, ticket.ErrNotConfirmed)
	}
	if err := d.store.Delete(id); err != nil {
		return fmt.Errorf("desk: delete %s: %w", id, err)
	}
	d.event("ticket deleted: " + id)
	d.logger.Info("ticket deleted", "ticket_id", id)
	d.notifier.NotifyAdmin(ctx, fmt.Sprintf("Ticket #%s deleted", id))
	return nil
}

// List returns tickets matching filter ("all" or a status), newest first,
// capped at the configured limit.
func (d *Desk) List(_ context.Context, filter string) ([]*protocol.Ticket, error) {
	f, err := ticket.ParseFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("desk: list: %w", err)
	}
	f.Limit = d.listLimit

	all, err := d.store.All()
	if err != nil {
		return nil, fmt.Errorf("desk: list: %w", err)
	}
	return ticket.Apply(all, f), nil
}

// Search matches query against name and email. A blank query matches nothing.
func (d *Desk) Search(_ context.Context, query string) ([]*protocol.Ticket, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*protocol.Ticket{}, nil
	}
	all, err := d.store.All()
	if err != nil {
		return nil, fmt.Errorf("desk: search: %w", err)
	}
	return ticket.Apply(all, ticket.Filter{Query: query}), nil
}

// Stats counts every parseable ticket.
func (d *Desk) Stats(_ context.Context) (ticket.Stats, error) {
	all, err := d.store.All()
	if err != nil {
		return ticket.Stats{}, fmt.Errorf("desk: stats: %w", err)
	}
	return ticket.Count(all), nil
}

func (d *Desk) event(msg string) {
	if d.events == nil {
		return
	}
	if err := d.events.Append(msg); err != nil {
		d.logger.Warn("event log append failed", "error", err)
	}
}
