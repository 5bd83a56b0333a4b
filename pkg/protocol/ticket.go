package protocol

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"

	// TicketUnknown is shown for records whose stored status is missing or
	// unrecognized. It is never written back to storage.
	TicketUnknown TicketStatus = "unknown"
)

// Statuses lists the storable statuses in display order.
var Statuses = []TicketStatus{TicketOpen, TicketInProgress, TicketClosed}

// Valid reports whether s may be persisted.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}

// Label returns the human-readable status name.
func (s TicketStatus) Label() string {
	switch s {
	case TicketOpen:
		return "Open"
	case TicketInProgress:
		return "In progress"
	case TicketClosed:
		return "Closed"
	case "":
		return "Unknown"
	}
	return string(s)
}

// Ticket is a single user-reported issue. One ticket is stored per JSON file.
type Ticket struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Message      string       `json:"message"`
	Status       TicketStatus `json:"status"`
	CreatedAt    Timestamp    `json:"created_at"`
	UpdatedAt    Timestamp    `json:"updated_at"`
	UserOriginID *string      `json:"user_origin_id"`
}

// OriginID returns the remote chat identity that filed the ticket, or "".
func (t *Ticket) OriginID() string {
	if t.UserOriginID == nil {
		return ""
	}
	return *t.UserOriginID
}
