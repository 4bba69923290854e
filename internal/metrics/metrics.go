// Package metrics implements a write-only JSONL event log recording
// git-garden runs: which flags were used, how long a pass took, and which
// destructive suggestions the user accepted.
package metrics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const schemaVersion = 1

// Event is a single record written to the JSONL log.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`

	Command *CommandEvent `json:"command,omitempty"`
	Run     *RunEvent     `json:"run,omitempty"`
	Action  *ActionEvent  `json:"action,omitempty"`
}

// CommandEvent records an invocation and its flags.
type CommandEvent struct {
	Flags []string `json:"flags"`
}

// RunEvent records how a full pass went.
type RunEvent struct {
	ReposScanned  int `json:"repos_scanned"`
	FailedActions int `json:"failed_actions"`
	DurationMs    int `json:"duration_ms"`
}

// ActionEvent records a destructive suggestion and whether the user took it.
type ActionEvent struct {
	Kind            string `json:"kind"`
	ItemFingerprint string `json:"item_fingerprint"`
	Accepted        bool   `json:"accepted"`
}

// Logger appends events to monthly JSONL files. A nil Logger is safe and
// discards everything, so metrics can never interrupt a run.
type Logger struct {
	mu        sync.Mutex
	dir       string
	sessionID string
	file      *os.File
	filePath  string
}

// NewOrNil returns a Logger writing to the default directory
// (~/.local/share/git-garden/metrics/), or nil if setup fails.
func NewOrNil() *Logger {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("metrics disabled", "error", err)
		return nil
	}
	l, err := NewWithDir(filepath.Join(home, ".local", "share", "git-garden", "metrics"))
	if err != nil {
		slog.Debug("metrics disabled", "error", err)
		return nil
	}
	return l
}

// NewWithDir creates a Logger writing to dir. Primarily useful for testing.
func NewWithDir(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("metrics: create directory: %w", err)
	}
	sid, err := sessionID()
	if err != nil {
		return nil, fmt.Errorf("metrics: session ID: %w", err)
	}
	return &Logger{dir: dir, sessionID: sid}, nil
}

// Log writes an event to the current month's file, stamping the schema
// version, timestamp, and session ID.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	event.SchemaVersion = schemaVersion
	event.Timestamp = time.Now()
	event.SessionID = l.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("metrics: marshal event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.openFile()
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("metrics: write event: %w", err)
	}
	return nil
}

// LogCommand records an invocation with the flags that were set.
func (l *Logger) LogCommand(flags []string) error {
	return l.Log(Event{Command: &CommandEvent{Flags: flags}})
}

// LogRun records the shape and duration of a completed pass.
func (l *Logger) LogRun(reposScanned, failedActions, durationMs int) error {
	return l.Log(Event{Run: &RunEvent{
		ReposScanned:  reposScanned,
		FailedActions: failedActions,
		DurationMs:    durationMs,
	}})
}

// LogAction records a destructive suggestion and its acceptance.
func (l *Logger) LogAction(kind, fingerprint string, accepted bool) error {
	return l.Log(Event{Action: &ActionEvent{
		Kind:            kind,
		ItemFingerprint: fingerprint,
		Accepted:        accepted,
	}})
}

// Close flushes and closes the underlying file. A nil Logger is safe.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.filePath = ""
		return err
	}
	return nil
}

// Fingerprint produces a SHA-256 hex digest suitable for tracking repeat
// suggestions without storing raw paths. Each part is length-prefixed so
// ("ab","c") and ("a","bc") hash differently.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = fmt.Fprintf(h, "%d:%s", len(p), p) // sha256.Write never returns an error
	}
	return hex.EncodeToString(h.Sum(nil))
}

// openFile returns the handle for the current month's file, rotating as
// needed. Caller must hold l.mu.
func (l *Logger) openFile() (*os.File, error) {
	want := filepath.Join(l.dir, time.Now().Format("events-2006-01")+".jsonl")
	if l.file != nil && l.filePath == want {
		return l.file, nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
		l.filePath = ""
	}

	// #nosec G304 - path constructed from configured dir and deterministic filename
	f, err := os.OpenFile(want, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("metrics: open file: %w", err)
	}
	l.file = f
	l.filePath = want
	return f, nil
}

// sessionID returns a UUID v4 string.
func sessionID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16]), nil
}
