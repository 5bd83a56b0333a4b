package logbuf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fill(buf *Buffer, n int, base time.Time) {
	for i := range n {
		buf.Write(Entry{
			Time:    base.Add(time.Duration(i) * time.Second),
			Level:   "INFO",
			Message: "msg",
			Attrs:   map[string]any{"i": i},
		})
	}
}

func TestRecent_NewestFirstAndEviction(t *testing.T) {
	buf := New(3)
	fill(buf, 5, time.Now())

	got := buf.Recent(Filter{})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int{4, 3, 2} {
		if got[i].Attrs["i"] != want {
			t.Errorf("entry %d: i = %v, want %d", i, got[i].Attrs["i"], want)
		}
	}
}

func TestRecent_Empty(t *testing.T) {
	got := New(4).Recent(Filter{})
	if got == nil || len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestRecent_Filters(t *testing.T) {
	buf := New(10)
	now := time.Now()
	buf.Write(Entry{Time: now, Level: "DEBUG", Component: "bot", Message: "a"})
	buf.Write(Entry{Time: now.Add(time.Second), Level: "WARN", Component: "desk", Message: "b"})
	buf.Write(Entry{Time: now.Add(2 * time.Second), Level: "ERROR", Component: "bot", Message: "c"})
	buf.Write(Entry{Time: now.Add(3 * time.Second), Level: "INFO", Component: "bot", Message: "d"})

	tests := []struct {
		name string
		f    Filter
		want string
	}{
		{"level", Filter{MinLevel: slog.LevelWarn}, "cb"},
		{"component", Filter{Component: "bot"}, "dca"},
		{"since", Filter{Since: now.Add(2 * time.Second)}, "dc"},
		{"limit", Filter{Limit: 2}, "dc"},
		{"combined", Filter{Component: "bot", MinLevel: slog.LevelInfo, Limit: 1}, "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			for _, e := range buf.Recent(tt.f) {
				got += e.Message
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if l, ok := ParseLevel("warn"); !ok || l != slog.LevelWarn {
		t.Errorf("warn = %v, %v", l, ok)
	}
	if l, ok := ParseLevel("loud"); ok || l != slog.LevelInfo {
		t.Errorf("loud = %v, %v", l, ok)
	}
}

func TestHandler_Captures(t *testing.T) {
	buf := New(10)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(NewHandler(inner, buf)).With("component", "desk")

	logger.Debug("debug msg", "ticket_id", "abc")
	logger.Error("save failed", "error", errors.New("disk full"))

	got := buf.Recent(Filter{})
	if len(got) != 2 {
		t.Fatalf("expected both levels captured, got %d", len(got))
	}
	if got[0].Component != "desk" || got[0].Attrs["error"] != "disk full" {
		t.Errorf("entry = %+v", got[0])
	}
	if _, ok := got[0].Attrs["component"]; ok {
		t.Error("component should be lifted out of attrs")
	}
	if got[1].Attrs["ticket_id"] != "abc" || got[1].Level != "DEBUG" {
		t.Errorf("entry = %+v", got[1])
	}
}

func TestHandler_RedactsSecrets(t *testing.T) {
	buf := New(4)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), buf))
	logger.Info("configured", "bot_token", "123:ABC", "admin_password", "pw", "chat", "42")

	attrs := buf.Recent(Filter{})[0].Attrs
	if attrs["bot_token"] != redacted || attrs["admin_password"] != redacted {
		t.Errorf("secrets leaked: %v", attrs)
	}
	if attrs["chat"] != "42" {
		t.Errorf("chat = %v", attrs["chat"])
	}
}

func TestHandler_Groups(t *testing.T) {
	buf := New(4)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), buf)).WithGroup("http")
	logger.Info("req", "status", 200)

	if got := buf.Recent(Filter{})[0].Attrs["http.status"]; got != int64(200) {
		t.Errorf("http.status = %v (%T)", got, got)
	}
}

func TestHandler_AttrsBoundBeforeGroup(t *testing.T) {
	buf := New(4)
	logger := slog.New(NewHandler(slog.NewTextHandler(io.Discard, nil), buf)).
		With("component", "api", "req_id", "r1").
		WithGroup("http").
		With("method", "GET")
	logger.Info("req", "status", 200)

	e := buf.Recent(Filter{})[0]
	if e.Component != "api" {
		t.Errorf("component = %q", e.Component)
	}
	want := map[string]any{"req_id": "r1", "http.method": "GET", "http.status": int64(200)}
	if diff := cmp.Diff(want, e.Attrs); diff != "" {
		t.Errorf("attrs (-want +got):\n%s", diff)
	}
}

func TestHandler_EnabledAlwaysTrue(t *testing.T) {
	h := NewHandler(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}), New(1))
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be enabled")
	}
}
