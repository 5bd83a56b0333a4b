package desk

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const messagePreview = 100

func adminStatusText(t *protocol.Ticket, old protocol.TicketStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket #%s status changed\n", t.ID)
	fmt.Fprintf(&b, "Was: %s\n", old.Label())
	fmt.Fprintf(&b, "Now: %s\n", t.Status.Label())
	fmt.Fprintf(&b, "Client: %s\n", orUnset(t.Name))
	fmt.Fprintf(&b, "Email: %s\n", orUnset(t.Email))
	fmt.Fprintf(&b, "Message: %s", escape(truncate(t.Message, messagePreview)))
	return b.String()
}

func userStatusText(t *protocol.Ticket) string {
	return fmt.Sprintf("The status of your ticket #%s was updated\nNew status: %s\n\n"+
		"You can check it any time with:\n/status #%s", t.ID, t.Status.Label(), t.ID)
}

func orUnset(s string) string {
	if s == "" {
		return "not specified"
	}
	return escape(s)
}

func escape(s string) string { return html.EscapeString(s) }

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
