package bot

import (
	"fmt"
	"html"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const commandList = "/new - create a ticket\n" +
	"/status #ID - check a ticket\n" +
	"/help - show this help\n" +
	"/cancel - cancel the current action"

const (
	msgHelp = "ℹ️ Help:\n\n" + commandList

	msgPrompt = "✍️ Describe your problem in a single message:\n\n" +
		"Example: The Send button on the main page does nothing\n\n" +
		"Send /cancel to abort"

	msgStatusUsage = "⚠️ Give the ticket ID in the form:\n/status #ID\n\n" +
		"Example: /status #abc123"

	msgCancelled       = "❌ Current action cancelled"
	msgNothingToCancel = "ℹ️ Nothing to cancel"
	msgUnknownCommand  = "❌ Unknown command\n\nUse /help for the list of commands"
	msgTooShort        = "⚠️ The description is too short. Please describe the problem in more detail."
	msgRemind          = "ℹ️ Send /new to create a ticket\nSend /help for the list of commands"
	msgCreateFailed    = "❌ Could not create the ticket. Please try again later."
)

func welcomeText(name string) string {
	return fmt.Sprintf("👋 Hello, %s! I am the support bot.\n\n📋 Commands:\n%s",
		html.EscapeString(name), commandList)
}

func createdText(id string) string {
	return fmt.Sprintf("✅ Ticket #%s created!\n\n📌 Current status: %s\n\n"+
		"Check its status with:\n/status #%s", id, protocol.TicketOpen.Label(), id)
}

func notFoundText(id string) string {
	return fmt.Sprintf("❌ Ticket #%s not found", html.EscapeString(id))
}

func summaryText(t *protocol.Ticket) string {
	return fmt.Sprintf("📋 Ticket #%s\n📌 Status: %s\n📅 Created: %s\n🔄 Updated: %s\n\n💬 Message: %s",
		t.ID,
		statusBadge(t.Status),
		t.CreatedAt,
		t.UpdatedAt,
		html.EscapeString(t.Message),
	)
}

func statusBadge(s protocol.TicketStatus) string {
	switch s {
	case protocol.TicketOpen:
		return "🟢 " + s.Label()
	case protocol.TicketInProgress:
		return "🟡 " + s.Label()
	case protocol.TicketClosed:
		return "🔴 " + s.Label()
	}
	return html.EscapeString(s.Label())
}
