// Package logging carries the two output streams of a simulation run: a
// leveled slog.Logger on stderr for operator-facing messages, and an
// EventLogger appending JSONL records to .ethos/events.jsonl so healing
// findings and per-generation evolution diagnostics survive the process and
// can be replayed or diffed between runs. The trace level exists because
// per-step propagation detail drowns debug output on long runs.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug and gates per-step propagation detail.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a config level name ("info", "debug", "trace",
// case-insensitive) to a slog.Level. Anything unrecognized is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// slog prints custom levels as "DEBUG-4" otherwise.
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EventLogger appends structured events to a JSONL trace file. It is safe
// for concurrent use, and a nil *EventLogger is a valid no-op logger.
type EventLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewEventLogger opens dir/events.jsonl for append. At "info" level (the
// default) it returns nil: event tracing is a debug facility. Open failures
// also yield nil; a trace file is never a reason to abort a run.
func NewEventLogger(dir string, level string) *EventLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f}
}

// Log writes one event as a single JSONL line, stamping a "time" field.
// The caller's map is left untouched. Safe on a nil receiver.
func (el *EventLogger) Log(event map[string]any) {
	if el == nil || el.file == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	for k, v := range event {
		entry[k] = v
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	el.mu.Lock()
	defer el.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = el.file.Write(data)
}

// Close releases the trace file. Safe on a nil receiver.
func (el *EventLogger) Close() {
	if el == nil || el.file == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	el.file.Close()
	el.file = nil
}
