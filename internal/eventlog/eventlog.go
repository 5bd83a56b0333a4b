// Package eventlog keeps the append-only, human-readable trace of ticket
// events shown on the admin panel. It is operational visibility only; nothing
// reads it back for correctness.
package eventlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/helpdesk-io/helpdesk/pkg/protocol"
)

// FileName is the log file created inside the logs directory.
const FileName = "events.log"

// Log appends timestamped lines to a file.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New creates the logs directory if needed.
func New(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create dir: %w", err)
	}
	return &Log{path: filepath.Join(dir, FileName), now: time.Now}, nil
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Append writes one line prefixed with "[YYYY-MM-DD HH:MM:SS] ". Embedded
// newlines are flattened so each event stays on a single line.
func (l *Log) Append(msg string) error {
	msg = strings.ReplaceAll(strings.TrimSpace(msg), "\n", " ")
	line := "[" + l.now().Format(protocol.TimestampLayout) + "] " + msg + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("eventlog: open: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("eventlog: write: %w", err)
	}
	return nil
}

// Tail returns up to n most recent non-empty lines, newest first.
// A missing log file yields an empty result.
func (l *Log) Tail(n int) ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventlog: read: %w", err)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("eventlog: scan: %w", err)
	}

	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}
