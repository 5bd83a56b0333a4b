// Package logbuf keeps the most recent process log records in memory so the
// admin API can show them without shell access to the host.
package logbuf

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a single log record captured from slog.
type Entry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries for Recent. Zero values match everything.
type Filter struct {
	Since     time.Time
	MinLevel  slog.Level
	Component string
	Limit     int
}

// Buffer is a thread-safe ring of log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	full    bool
}

// New creates a buffer holding up to size entries.
func New(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Write stores e, evicting the oldest entry when full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos++
	if b.pos == len(b.entries) {
		b.pos = 0
		b.full = true
	}
	b.mu.Unlock()
}

// Recent returns entries matching f, newest first.
func (b *Buffer) Recent(f Filter) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.pos
	if b.full {
		n = len(b.entries)
	}

	out := []Entry{}
	for i := 1; i <= n; i++ {
		e := b.entries[(b.pos-i+len(b.entries))%len(b.entries)]
		if !f.Since.IsZero() && e.Time.Before(f.Since) {
			continue
		}
		if lvl, _ := ParseLevel(e.Level); lvl < f.MinLevel {
			continue
		}
		if f.Component != "" && e.Component != f.Component {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// ParseLevel converts a level name (case-insensitive) to slog.Level.
// Unknown names report false and map to INFO.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
