package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readEvents(t *testing.T, dir string) []Event {
	t.Helper()
	path := filepath.Join(dir, time.Now().Format("events-2006-01")+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad JSONL line %q: %v", scanner.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

func TestLoggerWritesEvents(t *testing.T) {
	dir := t.TempDir()
	l, err := NewWithDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := l.LogCommand([]string{"--ff", "--delete"}); err != nil {
		t.Fatal(err)
	}
	if err := l.LogRun(12, 1, 840); err != nil {
		t.Fatal(err)
	}
	if err := l.LogAction("delete_orphans", Fingerprint("/repos"), true); err != nil {
		t.Fatal(err)
	}

	events := readEvents(t, dir)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	cmd := events[0]
	if cmd.SchemaVersion != schemaVersion || cmd.SessionID == "" || cmd.Timestamp.IsZero() {
		t.Errorf("envelope not stamped: %+v", cmd)
	}
	if cmd.Command == nil || len(cmd.Command.Flags) != 2 {
		t.Errorf("command event: %+v", cmd.Command)
	}

	run := events[1]
	if run.Run == nil || run.Run.ReposScanned != 12 || run.Run.FailedActions != 1 || run.Run.DurationMs != 840 {
		t.Errorf("run event: %+v", run.Run)
	}

	action := events[2]
	if action.Action == nil || action.Action.Kind != "delete_orphans" || !action.Action.Accepted {
		t.Errorf("action event: %+v", action.Action)
	}

	// All events in one process share a session.
	if events[1].SessionID != events[0].SessionID || events[2].SessionID != events[0].SessionID {
		t.Error("session IDs differ within one logger")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	if err := l.LogCommand(nil); err != nil {
		t.Errorf("LogCommand on nil: %v", err)
	}
	if err := l.LogRun(0, 0, 0); err != nil {
		t.Errorf("LogRun on nil: %v", err)
	}
	if err := l.LogAction("x", "y", false); err != nil {
		t.Errorf("LogAction on nil: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestSessionIDsDifferAcrossLoggers(t *testing.T) {
	a, err := NewWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewWithDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if a.sessionID == b.sessionID {
		t.Error("expected distinct session IDs")
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("a", "bc") == Fingerprint("ab", "c") {
		t.Error("length prefixing should separate part boundaries")
	}
	if Fingerprint("/repos") != Fingerprint("/repos") {
		t.Error("fingerprints must be deterministic")
	}
	if len(Fingerprint("x")) != 64 {
		t.Error("expected a sha256 hex digest")
	}
}
