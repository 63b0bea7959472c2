package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"trace", LevelTrace},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerLabelsTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "step", "time", 0.1)

	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Fatalf("expected TRACE label, got %q", buf.String())
	}
}

func TestNewLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)
	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestEventLogInfoLevelIsNil(t *testing.T) {
	dir := t.TempDir()
	if l := NewEventLog(dir, "info"); l != nil {
		t.Fatal("expected nil event log at info level")
	}
	var l *EventLog
	l.Log(map[string]any{"event": "start"})
	if err := l.Close(); err != nil {
		t.Fatalf("close nil log: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("expected no file, got err=%v", err)
	}
}

func TestEventLogWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLog(dir, "debug")
	if l == nil {
		t.Fatal("expected event log at debug level")
	}
	event := map[string]any{"event": "start", "genes": 2}
	l.Log(event)
	l.Log(map[string]any{"event": "pause"})
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := event["time"]; ok {
		t.Fatal("expected caller map untouched")
	}

	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["event"] != "start" || lines[0]["time"] == nil {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
}
