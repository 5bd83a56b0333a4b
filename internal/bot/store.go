package bot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// Record is the persisted conversation state of one chat.
type Record struct {
	State State           `json:"state"`
	Data  json.RawMessage `json:"data"`
}

// StateStore keeps one record per chat as <dir>/user_<key>.state. A chat
// without a record is idle.
type StateStore struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewStateStore creates the state directory if needed. A positive ttl makes
// records older than ttl load as idle.
func NewStateStore(dir string, ttl time.Duration, logger *slog.Logger) (*StateStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("state store: create dir: %w", err)
	}
	return &StateStore{
		dir:    dir,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With("component", "bot_state"),
	}, nil
}

// escapeKey keeps ASCII letters, digits and '-' and writes every other byte,
// '_' included, as "_xx" hex so distinct keys never share a file.
func escapeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

func (s *StateStore) path(key string) string {
	return filepath.Join(s.dir, "user_"+escapeKey(key)+".state")
}

// Load returns the chat's record. Missing, corrupt and expired records all
// load as idle; expired ones are removed.
func (s *StateStore) Load(key string) Record {
	idle := Record{State: StateIdle}
	path := s.path(key)

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("state unreadable", "chat", key, "error", err)
		}
		return idle
	}
	if s.ttl > 0 && s.now().Sub(info.ModTime()) > s.ttl {
		s.logger.Info("state expired", "chat", key, "age", s.now().Sub(info.ModTime()))
		s.remove(key)
		return idle
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("state unreadable", "chat", key, "error", err)
		return idle
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || !rec.State.valid() {
		s.logger.Warn("state corrupt, treating as idle", "chat", key)
		return idle
	}
	return rec
}

// Save writes rec, or removes the record when rec is idle.
func (s *StateStore) Save(key string, rec Record) error {
	if rec.State == StateIdle {
		return s.remove(key)
	}
	if len(bytes.TrimSpace(rec.Data)) == 0 || !json.Valid(rec.Data) {
		rec.Data = json.RawMessage(`{}`)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("state store: encode: %w", err)
	}
	path := s.path(key)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("state store: write %s: %w", key, err)
	}
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("state store: chmod %s: %w", key, err)
	}
	return nil
}

func (s *StateStore) remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state store: remove %s: %w", key, err)
	}
	return nil
}

// Sweep removes records older than the TTL and returns how many were
// removed. It is a no-op without a TTL.
func (s *StateStore) Sweep() (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("state store: sweep: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".state" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if s.now().Sub(info.ModTime()) <= s.ttl {
			continue
		}
		err = os.Remove(filepath.Join(s.dir, e.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("sweep remove failed", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("expired states swept", "count", removed)
	}
	return removed, nil
}
