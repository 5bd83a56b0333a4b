package ticket

import (
	"errors"
	"testing"
	"time"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func ids(ts []*protocol.Ticket) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func fixture() []*protocol.Ticket {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)
	mk := func(id, name, email string, st protocol.TicketStatus, age time.Duration) *protocol.Ticket {
		tk := sampleTicket(id, base.Add(-age))
		tk.Name, tk.Email, tk.Status = name, email, st
		return tk
	}
	undated := mk("old", "Zed", "zed@x.com", protocol.TicketClosed, 0)
	undated.CreatedAt = protocol.Timestamp{}
	return []*protocol.Ticket{
		mk("c1", "Carol", "carol@x.com", protocol.TicketClosed, 3*time.Hour),
		mk("a1", "Alice Smith", "a.smith@x.com", protocol.TicketOpen, time.Hour),
		mk("b1", "Bob", "alice@x.com", protocol.TicketInProgress, 2*time.Hour),
		mk("c2", "Dan", "dan@x.com", protocol.TicketClosed, 0),
		mk("u1", "Eve", "eve@x.com", protocol.TicketUnknown, 4*time.Hour),
		undated,
	}
}

func TestParseFilter(t *testing.T) {
	for _, s := range []string{"", "all"} {
		f, err := ParseFilter(s)
		if err != nil || f.Status != nil {
			t.Errorf("ParseFilter(%q) = %+v, %v", s, f, err)
		}
	}
	f, err := ParseFilter("closed")
	if err != nil || f.Status == nil || *f.Status != protocol.TicketClosed {
		t.Errorf("ParseFilter(closed) = %+v, %v", f, err)
	}
	if _, err := ParseFilter("archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestApply_StatusFilterNewestFirst(t *testing.T) {
	f, _ := ParseFilter("closed")
	got := ids(Apply(fixture(), f))
	want := []string{"c2", "c1", "old"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestApply_Limit(t *testing.T) {
	got := Apply(fixture(), Filter{Limit: 2})
	if len(got) != 2 || got[0].ID != "c2" {
		t.Errorf("got %v", ids(got))
	}
}

func TestMatches(t *testing.T) {
	got := ids(Apply(fixture(), Filter{Query: "ALICE"}))
	if len(got) != 2 || got[0] != "a1" || got[1] != "b1" {
		t.Errorf("got %v", got)
	}
}

func TestCount(t *testing.T) {
	st := Count(fixture())
	want := Stats{Total: 6, Open: 1, InProgress: 1, Closed: 3}
	if st != want {
		t.Errorf("got %+v, want %+v", st, want)
	}
	if (Count(nil) != Stats{}) {
		t.Error("expected zero stats")
	}
}
