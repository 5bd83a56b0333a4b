package ticket

import "github.com/helpdesk-io/helpdesk/pkg/protocol"

// Store is the persistence interface for tickets.
//
// Implementations keep no cache: every call observes writes made by other
// processes sharing the same storage.
type Store interface {
	// Save creates or fully overwrites a ticket.
	Save(ticket *protocol.Ticket) error
	// Get retrieves a normalized ticket by ID.
	Get(id string) (*protocol.Ticket, error)
	// Exists reports whether a record with the ID is present, parseable or not.
	Exists(id string) (bool, error)
	// Delete removes a ticket record.
	Delete(id string) error
	// All returns every parseable ticket, normalized, in no particular order.
	All() ([]*protocol.Ticket, error)
}

// Filter constrains ticket list queries.
type Filter struct {
	Status *protocol.TicketStatus // nil = all statuses
	Query  string                 // case-insensitive substring on name or email
	Limit  int                    // 0 = no limit
}

// Stats holds aggregate ticket counts. Tickets with an unknown status count
// toward Total only.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
}
