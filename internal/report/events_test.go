package report

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSONL line %q: %v", scanner.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

func TestEventLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewEventLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	if err := logger.LogIndexed("/music/a.als", 174, true); err != nil {
		t.Fatalf("failed to log: %v", err)
	}
	if err := logger.LogIndexed("/music/b.als", 120, false); err != nil {
		t.Fatalf("failed to log: %v", err)
	}
	if err := logger.LogSkipped("/music/readme.als", "not a live set"); err != nil {
		t.Fatalf("failed to log: %v", err)
	}
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Event != EventIndexed || events[0].Tempo != 174 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Event != EventUpdated {
		t.Errorf("refresh should log as updated, got %s", events[1].Event)
	}
	if events[2].Extra["reason"] != "not a live set" {
		t.Errorf("skip reason not recorded: %+v", events[2])
	}
	for _, e := range events {
		if e.Timestamp.IsZero() {
			t.Errorf("event missing timestamp: %+v", e)
		}
	}
}

func TestEventLoggerLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewEventLogger(dir, LevelWarning)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.LogUnchanged("/music/quiet.als")      // debug, filtered
	logger.LogIndexed("/music/new.als", 128, true) // info, filtered
	logger.LogCheck("sample", "/samples/gone.wav", false) // warning, kept
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 1 {
		t.Fatalf("expected only the warning event, got %d", len(events))
	}
	if events[0].Event != EventCheck || events[0].Extra["present"] != "false" {
		t.Errorf("unexpected surviving event: %+v", events[0])
	}
}

func TestNullLoggerIsSafe(t *testing.T) {
	logger := NullLogger()
	if err := logger.LogIndexed("/music/a.als", 120, true); err != nil {
		t.Errorf("null logger returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("null logger close returned error: %v", err)
	}
	if logger.Path() != "" {
		t.Errorf("null logger has a path: %q", logger.Path())
	}

	var nilLogger *EventLogger
	if err := nilLogger.LogError("/music/a.als", os.ErrNotExist); err != nil {
		t.Errorf("nil logger returned error: %v", err)
	}
}

func TestEventLogFilenameHasTimestamp(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewEventLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	base := strings.TrimSuffix(strings.TrimPrefix(logger.Path(), dir+string(os.PathSeparator)), ".jsonl")
	if !strings.HasPrefix(base, "events-") {
		t.Errorf("unexpected log filename: %s", logger.Path())
	}
}
