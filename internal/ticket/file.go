package ticket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

const (
	fileExt   = ".json"
	dirPerms  = 0o755
	filePerms = 0o644
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// FileStore implements Store with one JSON document per ticket in a directory.
// There is no locking; concurrent writers to the same ID race and the last
// rename wins.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates the ticket directory if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("ticket store: create dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the ticket directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Save writes the ticket via write-then-rename so readers never observe a
// truncated record.
func (s *FileStore) Save(t *protocol.Ticket) error {
	if !validID.MatchString(t.ID) {
		return fmt.Errorf("ticket store: save: %w: bad id %q", ErrPersistence, t.ID)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("ticket store: save %s: %w: %q", t.ID, ErrInvalidStatus, t.Status)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("ticket store: encode %s: %w", t.ID, err)
	}

	path := s.path(t.ID)
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("ticket store: save %s: %w: %v", t.ID, ErrPersistence, err)
	}
	// atomic.WriteFile keeps the temp file's 0600 mode on new files.
	if err := os.Chmod(path, filePerms); err != nil {
		s.logger.Warn("ticket store: chmod failed", "path", path, "error", err)
	}
	return nil
}

func (s *FileStore) Get(id string) (*protocol.Ticket, error) {
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("ticket %q: %w", id, ErrNotFound)
	}
	t, err := s.read(s.path(id))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *FileStore) Exists(id string) (bool, error) {
	if !validID.MatchString(id) {
		return false, nil
	}
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("ticket store: stat %s: %w", id, err)
}

func (s *FileStore) Delete(id string) error {
	if !validID.MatchString(id) {
		return fmt.Errorf("ticket %q: %w", id, ErrNotFound)
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ticket %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("ticket store: delete %s: %w: %v", id, ErrPersistence, err)
	}
	return nil
}

// All scans the directory. Unreadable or malformed records are logged and skipped.
func (s *FileStore) All() ([]*protocol.Ticket, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}

	var tickets []*protocol.Ticket
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		t, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *FileStore) read(path string) (*protocol.Ticket, error) {
	id := strings.TrimSuffix(filepath.Base(path), fileExt)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("ticket store: read failed", "id", id, "error", err)
		}
		return nil, fmt.Errorf("ticket %q: %w", id, ErrNotFound)
	}

	var t protocol.Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		s.logger.Warn("ticket store: malformed record", "id", id, "error", err)
		return nil, fmt.Errorf("ticket %q: %w", id, ErrNotFound)
	}
	Normalize(&t, id)
	return &t, nil
}
