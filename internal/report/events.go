package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventIndexed   EventType = "indexed"
	EventUpdated   EventType = "updated"
	EventUnchanged EventType = "unchanged"
	EventSkipped   EventType = "skipped"
	EventDeleted   EventType = "deleted"
	EventCheck     EventType = "check"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event is a single entry in the scan audit log
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	ProjectID string            `json:"project_id,omitempty"`
	Path      string            `json:"path,omitempty"`
	Tempo     float64           `json:"tempo,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	// Filter by minimum level
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogIndexed logs a project commit, new or refreshed
func (l *EventLogger) LogIndexed(path string, tempo float64, created bool) error {
	event := EventUpdated
	if created {
		event = EventIndexed
	}
	return l.Log(&Event{
		Level: LevelInfo,
		Event: event,
		Path:  path,
		Tempo: tempo,
	})
}

// LogUnchanged logs a file passed over by the change detector
func (l *EventLogger) LogUnchanged(path string) error {
	return l.Log(&Event{
		Level: LevelDebug,
		Event: EventUnchanged,
		Path:  path,
	})
}

// LogSkipped logs a file that turned out not to be a Live set
func (l *EventLogger) LogSkipped(path, reason string) error {
	return l.Log(&Event{
		Level: LevelDebug,
		Event: EventSkipped,
		Path:  path,
		Extra: map[string]string{"reason": reason},
	})
}

// LogCheck logs one presence verdict for a sample or plugin
func (l *EventLogger) LogCheck(kind, name string, present bool) error {
	level := LevelDebug
	if !present {
		level = LevelWarning
	}
	return l.Log(&Event{
		Level: level,
		Event: EventCheck,
		Path:  name,
		Extra: map[string]string{
			"kind":    kind,
			"present": fmt.Sprintf("%t", present),
		},
	})
}

// LogError logs a file the scan could not process
func (l *EventLogger) LogError(path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: EventError,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return &EventLogger{}
}
