package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogFanoutLevels(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	l, err := New(Options{
		Name:         "TestBot",
		ConsoleLevel: slog.LevelWarn,
		FileLevel:    slog.LevelDebug,
		FilePath:     path,
		Console:      &console,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Debug("debug only in file")
	l.Warn("warn everywhere")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if strings.Contains(console.String(), "debug only in file") {
		t.Fatal("console must not receive debug records")
	}
	if !strings.Contains(console.String(), "warn everywhere") || !strings.Contains(console.String(), "bot=TestBot") {
		t.Fatalf("unexpected console output %q", console.String())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 file records, got %d: %q", len(lines), raw)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("file record is not JSON: %v", err)
	}
	if rec["bot"] != "TestBot" {
		t.Fatalf("missing bot attr in %v", rec)
	}
}

func TestLogClose(t *testing.T) {
	l, err := New(Options{Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Closed() {
		t.Fatal("fresh log should be usable")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close must be a no-op: %v", err)
	}
	if !l.Closed() {
		t.Fatal("expected the log to report closed")
	}
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Success": slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(raw)
		if err != nil || got != want {
			t.Errorf("%q: got %v err %v", raw, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogTail(t *testing.T) {
	tail := NewRing(10)
	l, err := New(Options{Name: "TestBot", Console: &bytes.Buffer{}, ConsoleLevel: slog.LevelInfo, Tail: tail})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Debug("hidden")
	l.Info("Trade opened")
	_ = l.Close()

	lines := tail.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "Trade opened") || !strings.Contains(lines[0], "bot=TestBot") {
		t.Fatalf("unexpected tail %v", lines)
	}
}
