package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", String("key", "value"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"msg":"hello"`) {
		t.Errorf("log output missing msg: %s", content)
	}
	if !strings.Contains(content, `"key":"value"`) {
		t.Errorf("log output missing attr: %s", content)
	}
}

func TestPrettyHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	NewComponentLogger(logger, "matcher").Info("candidate accepted", Int("score", 42))

	line := buf.String()
	if !strings.Contains(line, "matcher: candidate accepted") {
		t.Errorf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "score=42") {
		t.Errorf("expected score attr, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should be folded into prefix, got %q", line)
	}
}

func TestPrettyHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("msg", String("detail", "has spaces"))
	if !strings.Contains(buf.String(), `detail="has spaces"`) {
		t.Errorf("expected quoted value, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithCaseID(context.Background(), 7)
	ctx = services.WithStep(ctx, "checking")
	ctx = services.WithLane(ctx, "checking")
	ctx = services.WithRequestID(ctx, "abc")

	fields := ContextFields(ctx)
	keys := make(map[string]bool, len(fields))
	for _, f := range fields {
		keys[f.Key] = true
	}
	for _, want := range []string{FieldCaseID, FieldStep, FieldLane, FieldCorrelationID} {
		if !keys[want] {
			t.Errorf("ContextFields missing %s", want)
		}
	}
}

func TestCleanupOldLogsPrunesExpired(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "bukkaku-old.log")
	newFile := filepath.Join(dir, "bukkaku-new.log")
	keepFile := filepath.Join(dir, "keep.txt")
	for _, p := range []string{oldFile, newFile, keepFile} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldFile, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(keepFile, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "bukkaku-*.log"})

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("expired log should be removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Error("recent log should remain")
	}
	if _, err := os.Stat(keepFile); err != nil {
		t.Error("non-matching file should remain")
	}
}

func TestCleanupOldLogsHonorsExclude(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "bukkaku-current.log")
	if err := os.WriteFile(current, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(current, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: "bukkaku-*.log", Exclude: []string{current}})

	if _, err := os.Stat(current); err != nil {
		t.Error("excluded file should remain")
	}
}
