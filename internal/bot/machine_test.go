package bot

import "testing"

func TestParseInput(t *testing.T) {
	tests := []struct {
		text string
		want Input
	}{
		{"  hello there ", Input{Kind: InputText, Text: "hello there"}},
		{"/START", Input{Kind: InputStart, Command: "/start", Text: "/START"}},
		{"/help@support_bot", Input{Kind: InputHelp, Command: "/help", Text: "/help@support_bot"}},
		{"/new please", Input{Kind: InputNew, Command: "/new", Text: "/new please"}},
		{"/status #DeadBeef", Input{Kind: InputStatus, Command: "/status", TicketID: "deadbeef", Text: "/status #DeadBeef"}},
		{"/status abc", Input{Kind: InputStatus, Command: "/status", Text: "/status abc"}},
		{"/status #xyz", Input{Kind: InputStatus, Command: "/status", Text: "/status #xyz"}},
		{"/Cancel", Input{Kind: InputCancel, Command: "/cancel", Text: "/Cancel"}},
		{"/delete all", Input{Kind: InputUnknownCommand, Command: "/delete", Text: "/delete all"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ParseInput(tt.text); got != tt.want {
				t.Errorf("ParseInput(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		text    string
		next    State
		action  ActionKind
		persist bool
	}{
		{"start from awaiting", StateAwaitingDescription, "/start", StateIdle, ActionWelcome, true},
		{"help", StateIdle, "/help", StateIdle, ActionHelp, true},
		{"new from idle", StateIdle, "/new", StateAwaitingDescription, ActionPromptDescription, true},
		{"new again", StateAwaitingDescription, "/new", StateAwaitingDescription, ActionPromptDescription, true},
		{"status lookup", StateAwaitingDescription, "/status #ab12", StateIdle, ActionStatusLookup, true},
		{"status usage", StateIdle, "/status", StateIdle, ActionStatusUsage, true},
		{"cancel active", StateAwaitingDescription, "/cancel", StateIdle, ActionCancelled, true},
		{"cancel idle", StateIdle, "/cancel", StateIdle, ActionNothingToCancel, true},
		{"unknown command", StateAwaitingDescription, "/foo", StateIdle, ActionUnknownCommand, true},
		{"too short", StateAwaitingDescription, "hi", StateAwaitingDescription, ActionTooShort, false},
		{"nine bytes", StateAwaitingDescription, "123456789", StateAwaitingDescription, ActionTooShort, false},
		{"ten bytes", StateAwaitingDescription, "1234567890", StateIdle, ActionCreateTicket, true},
		{"idle text", StateIdle, "My printer is broken", StateIdle, ActionRemind, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, action := Transition(tt.state, ParseInput(tt.text))
			if next != tt.next {
				t.Errorf("next = %s, want %s", next, tt.next)
			}
			if action.Kind != tt.action {
				t.Errorf("action = %d, want %d", action.Kind, tt.action)
			}
			if action.Persists() != tt.persist {
				t.Errorf("persist = %v, want %v", action.Persists(), tt.persist)
			}
		})
	}
}

func TestTransition_Payloads(t *testing.T) {
	_, a := Transition(StateIdle, ParseInput("/status #ABC"))
	if a.TicketID != "abc" {
		t.Errorf("ticket id = %q", a.TicketID)
	}
	_, a = Transition(StateAwaitingDescription, ParseInput("  My printer is broken  "))
	if a.Description != "My printer is broken" {
		t.Errorf("description = %q", a.Description)
	}
}
