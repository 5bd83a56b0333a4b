// Package admin maps administrator actions onto desk operations and
// assembles the dashboard view.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/helpdesk-io/helpdesk/internal/ticket"
	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// DashboardLogLines is how many recent event-log lines the dashboard shows.
const DashboardLogLines = 10

// Action is an administrator command on one ticket.
type Action string

const (
	ActionClose    Action = "close"
	ActionProgress Action = "progress"
	ActionDelete   Action = "delete"
)

// ErrUnknownAction is returned for actions other than close, progress and delete.
var ErrUnknownAction = errors.New("unknown admin action")

// Desk is the part of the ticket desk the admin panel uses.
type Desk interface {
	UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) (*protocol.Ticket, error)
	Delete(ctx context.Context, id string, confirmed bool) error
	List(ctx context.Context, filter string) ([]*protocol.Ticket, error)
	Stats(ctx context.Context) (ticket.Stats, error)
}

// EventTail reads recent event-log lines, newest first.
type EventTail interface {
	Tail(n int) ([]string, error)
}

// Result is the outcome of a dispatched action.
type Result struct {
	Action  Action `json:"action"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Dashboard is the admin panel's read-side view.
type Dashboard struct {
	Filter  string             `json:"filter"`
	Tickets []*protocol.Ticket `json:"tickets"`
	Stats   ticket.Stats       `json:"stats"`
	Events  []string           `json:"events"`
}

// Handler dispatches admin actions.
type Handler struct {
	desk   Desk
	events EventTail
	logger *slog.Logger
}

// New creates an admin handler.
func New(d Desk, events EventTail, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{desk: d, events: events, logger: logger.With("component", "admin")}
}

// Dispatch runs action on the ticket id. Deletes from the panel are always
// confirmed.
func (h *Handler) Dispatch(ctx context.Context, action Action, id string) (Result, error) {
	res := Result{Action: action, ID: id}
	var err error

	switch action {
	case ActionClose:
		_, err = h.desk.UpdateStatus(ctx, id, protocol.TicketClosed)
		res.Message = fmt.Sprintf("Ticket #%s closed", id)
	case ActionProgress:
		_, err = h.desk.UpdateStatus(ctx, id, protocol.TicketInProgress)
		res.Message = fmt.Sprintf("Ticket #%s taken in progress", id)
	case ActionDelete:
		err = h.desk.Delete(ctx, id, true)
		res.Message = fmt.Sprintf("Ticket #%s deleted", id)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if err != nil {
		h.logger.Warn("admin action failed", "action", action, "ticket_id", id, "error", err)
		return Result{Action: action, ID: id}, fmt.Errorf("admin: %s: %w", action, err)
	}
	h.logger.Info("admin action", "action", action, "ticket_id", id)
	return res, nil
}

// Dashboard returns the tickets for filter, the overall stats and the most
// recent event-log lines.
func (h *Handler) Dashboard(ctx context.Context, filter string) (*Dashboard, error) {
	if filter == "" {
		filter = ticket.FilterAll
	}
	tickets, err := h.desk.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("admin: dashboard: %w", err)
	}
	stats, err := h.desk.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin: dashboard: %w", err)
	}

	var events []string
	if h.events != nil {
		events, err = h.events.Tail(DashboardLogLines)
		if err != nil {
			h.logger.Warn("event log unreadable", "error", err)
		}
	}
	if events == nil {
		events = []string{}
	}

	return &Dashboard{
		Filter:  filter,
		Tickets: tickets,
		Stats:   stats,
		Events:  events,
	}, nil
}
