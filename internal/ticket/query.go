package ticket

import (
	"fmt"
	"sort"
	"strings"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// FilterAll selects every ticket regardless of status.
const FilterAll = "all"

// ParseFilter turns "all" (or "") or a status value into a Filter.
func ParseFilter(s string) (Filter, error) {
	if s == "" || s == FilterAll {
		return Filter{}, nil
	}
	status := protocol.TicketStatus(s)
	if !status.Valid() {
		return Filter{}, fmt.Errorf("filter %q: %w", s, ErrInvalidStatus)
	}
	return Filter{Status: &status}, nil
}

// Apply filters, sorts newest first, and truncates to f.Limit.
func Apply(tickets []*protocol.Ticket, f Filter) []*protocol.Ticket {
	out := make([]*protocol.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Query != "" && !Matches(t, f.Query) {
			continue
		}
		out = append(out, t)
	}
	SortNewestFirst(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Matches reports whether query is a case-insensitive substring of the
// ticket's name or email.
func Matches(t *protocol.Ticket, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Email), q)
}

// SortNewestFirst orders by created_at descending. Zero timestamps sort at
// the epoch; ties fall back to ID so output is deterministic.
func SortNewestFirst(tickets []*protocol.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i].CreatedAt.SortKey(), tickets[j].CreatedAt.SortKey()
		if a != b {
			return a > b
		}
		return tickets[i].ID > tickets[j].ID
	})
}

// Count aggregates status counts.
func Count(tickets []*protocol.Ticket) Stats {
	var st Stats
	for _, t := range tickets {
		st.Total++
		switch t.Status {
		case protocol.TicketOpen:
			st.Open++
		case protocol.TicketInProgress:
			st.InProgress++
		case protocol.TicketClosed:
			st.Closed++
		}
	}
	return st
}
