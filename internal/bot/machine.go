// Package bot runs the chat conversation that turns independent inbound
// messages into ticket creation and status lookups.
package bot

import (
	"regexp"
	"strings"
)

// State is a chat's position in the conversation.
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingDescription State = "awaiting_description"
)

func (s State) valid() bool {
	return s == StateIdle || s == StateAwaitingDescription
}

// MinDescriptionLen is the shortest accepted problem description, in bytes
// after trimming.
const MinDescriptionLen = 10

// InputKind classifies one inbound message.
type InputKind int

const (
	InputText InputKind = iota
	InputStart
	InputHelp
	InputNew
	InputStatus
	InputCancel
	InputUnknownCommand
)

// Input is a parsed inbound message.
type Input struct {
	Kind     InputKind
	Command  string // lowercased command token, without any @bot suffix
	TicketID string // /status only; empty when no #id was given
	Text     string // trimmed message text
}

var ticketRef = regexp.MustCompile(`(?i)#([a-f0-9]+)`)

// ParseInput classifies text. Only the command token is case-insensitive.
func ParseInput(text string) Input {
	text = strings.TrimSpace(text)
	in := Input{Kind: InputText, Text: text}
	if !strings.HasPrefix(text, "/") {
		return in
	}

	cmd := strings.ToLower(strings.Fields(text)[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	in.Command = cmd

	switch cmd {
	case "/start":
		in.Kind = InputStart
	case "/help":
		in.Kind = InputHelp
	case "/new":
		in.Kind = InputNew
	case "/status":
		in.Kind = InputStatus
		if m := ticketRef.FindStringSubmatch(text); m != nil {
			in.TicketID = strings.ToLower(m[1])
		}
	case "/cancel":
		in.Kind = InputCancel
	default:
		in.Kind = InputUnknownCommand
	}
	return in
}

// ActionKind names the side effect of a transition.
type ActionKind int

const (
	ActionWelcome ActionKind = iota
	ActionHelp
	ActionPromptDescription
	ActionStatusLookup
	ActionStatusUsage
	ActionCancelled
	ActionNothingToCancel
	ActionUnknownCommand
	ActionTooShort
	ActionCreateTicket
	ActionRemind
)

// Action is what the engine must do after a transition.
type Action struct {
	Kind        ActionKind
	TicketID    string // ActionStatusLookup
	Description string // ActionCreateTicket
}

// Persists reports whether the next state must be written back. Free text
// that changes nothing leaves the stored record untouched.
func (a Action) Persists() bool {
	return a.Kind != ActionTooShort && a.Kind != ActionRemind
}

// Transition computes the next state and action. It performs no I/O.
func Transition(s State, in Input) (State, Action) {
	switch in.Kind {
	case InputStart:
		return StateIdle, Action{Kind: ActionWelcome}
	case InputHelp:
		return StateIdle, Action{Kind: ActionHelp}
	case InputNew:
		return StateAwaitingDescription, Action{Kind: ActionPromptDescription}
	case InputStatus:
		if in.TicketID == "" {
			return StateIdle, Action{Kind: ActionStatusUsage}
		}
		return StateIdle, Action{Kind: ActionStatusLookup, TicketID: in.TicketID}
	case InputCancel:
		if s != StateIdle {
			return StateIdle, Action{Kind: ActionCancelled}
		}
		return StateIdle, Action{Kind: ActionNothingToCancel}
	case InputUnknownCommand:
		return StateIdle, Action{Kind: ActionUnknownCommand}
	}

	if s == StateAwaitingDescription {
		if len(in.Text) < MinDescriptionLen {
			return s, Action{Kind: ActionTooShort}
		}
		return StateIdle, Action{Kind: ActionCreateTicket, Description: in.Text}
	}
	return s, Action{Kind: ActionRemind}
}
