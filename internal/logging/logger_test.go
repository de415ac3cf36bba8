package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autounpack/internal/config"
	"autounpack/internal/logging"
)

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, logPath, err := logging.NewFromConfig(&cfg, "run-1")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message", logging.String("key", "value"))

	if filepath.Base(logPath) != "autounpack-run-1.log" {
		t.Fatalf("unexpected log path %q", logPath)
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", content, err)
	}
	if record["msg"] != "debug message" || record["key"] != "value" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestConsoleLoggerFormatsComponentAndStep(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithStep(logging.WithRunID(context.Background(), "abc"), "archive", "2")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "flow")).Info("step started", logging.Int("files", 3))

	out := buf.String()
	for _, want := range []string{"INFO [flow] Step 2 (archive) - step started", "- files: 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("expected run_id hidden at info level: %q", out)
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", out)
	}
}

func TestConsoleLoggerFormatsSizesAndDurations(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("scan complete",
		logging.Int64("found_bytes", 3*1024*1024),
		logging.Int64("found", 7),
		logging.Duration("elapsed", 1234567*time.Microsecond),
		logging.String("dir", "/data/my downloads"),
	)

	out := buf.String()
	for _, want := range []string{"- found_bytes: 3.0 MiB", "- found: 7", "- elapsed: 1.235s", `- dir: "/data/my downloads"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output %q", want, out)
		}
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "careful", "test_event")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["level"] != "warn" || record[logging.FieldEventType] != "test_event" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record[logging.FieldImpact]; !ok {
		t.Fatalf("expected impact default injected: %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logging.RunLogName("old"))
	current := filepath.Join(dir, logging.RunLogName("current"))
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		past := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, 5, current)
	if removed != 1 {
		t.Fatalf("expected 1 removed file, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log pruned, got %v", err)
	}
	for _, path := range []string{current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}
