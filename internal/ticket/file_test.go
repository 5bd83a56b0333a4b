package ticket

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "tickets"), nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func sampleTicket(id string, created time.Time) *protocol.Ticket {
	ts := protocol.NewTimestamp(created)
	return &protocol.Ticket{
		ID:        id,
		Name:      "Alice Smith",
		Email:     "alice@example.com",
		Message:   "Printer <b>jammed</b>\nagain",
		Status:    protocol.TicketOpen,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	want := sampleTicket("t001", time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local))

	if err := s.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Get("t001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ticket mismatch (-want +got):\n%s", diff)
	}

	raw, _ := os.ReadFile(filepath.Join(s.Dir(), "t001.json"))
	if !strings.Contains(string(raw), "<b>jammed</b>") {
		t.Errorf("expected unescaped HTML in record, got %s", raw)
	}
	info, _ := os.Stat(filepath.Join(s.Dir(), "t001.json"))
	if info.Mode().Perm() != filePerms {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestSave_Overwrite(t *testing.T) {
	s := newTestStore(t)
	tk := sampleTicket("t002", time.Now())
	s.Save(tk)

	tk.Status = protocol.TicketClosed
	if err := s.Save(tk); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := s.Get("t002")
	if got.Status != protocol.TicketClosed {
		t.Errorf("expected closed, got %q", got.Status)
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 1 {
		t.Errorf("expected one file after overwrite, got %d", len(entries))
	}
}

func TestSave_RejectsUnknownStatus(t *testing.T) {
	s := newTestStore(t)
	tk := sampleTicket("t003", time.Now())
	tk.Status = protocol.TicketUnknown

	err := s.Save(tk)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if ok, _ := s.Exists("t003"); ok {
		t.Error("record should not have been written")
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_PathTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"../secret", "a/b", "", ".hidden"} {
		if _, err := s.Get(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestGet_MalformedIsNotFound(t *testing.T) {
	s := newTestStore(t)
	os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{not json"), 0o644)

	if _, err := s.Get("broken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := s.Exists("broken")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v; malformed files still occupy their ID", ok, err)
	}
}

func TestGet_Normalizes(t *testing.T) {
	s := newTestStore(t)
	os.WriteFile(filepath.Join(s.Dir(), "legacy.json"),
		[]byte(`{"name":"Bob","status":"archived","user_origin_id":""}`), 0o644)

	got, err := s.Get("legacy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "legacy" {
		t.Errorf("expected id from file name, got %q", got.ID)
	}
	if got.Status != protocol.TicketUnknown {
		t.Errorf("expected unknown status, got %q", got.Status)
	}
	if got.UserOriginID != nil {
		t.Errorf("expected nil origin, got %q", *got.UserOriginID)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleTicket("t004", time.Now()))

	if err := s.Delete("t004"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("t004"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete("t004"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAll_SkipsJunk(t *testing.T) {
	s := newTestStore(t)
	s.Save(sampleTicket("a1", time.Now()))
	s.Save(sampleTicket("a2", time.Now()))
	os.WriteFile(filepath.Join(s.Dir(), "bad.json"), []byte("nope"), 0o644)
	os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(s.Dir(), "a3.json12345"), []byte("{}"), 0o644) // stray temp file
	os.Mkdir(filepath.Join(s.Dir(), "sub.json"), 0o755)

	all, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 tickets, got %d", len(all))
	}
}

func TestAll_MissingDir(t *testing.T) {
	s := newTestStore(t)
	os.RemoveAll(s.Dir())
	all, err := s.All()
	if err != nil || len(all) != 0 {
		t.Errorf("expected empty result, got %v, %v", all, err)
	}
}
