package ticket

import "github.com/helpdesk-io/helpdesk/pkg/protocol"

// Normalize applies read-time defaults to a decoded record. fileID is the
// record's file base name. Every read path goes through here so display,
// search and stats agree on the defaults.
func Normalize(t *protocol.Ticket, fileID string) {
	if t.ID == "" {
		t.ID = fileID
	}
	if !t.Status.Valid() {
		t.Status = protocol.TicketUnknown
	}
	if t.UserOriginID != nil && *t.UserOriginID == "" {
		t.UserOriginID = nil
	}
}
