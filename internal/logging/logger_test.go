package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"repack/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "repack.log")
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", logging.Args(logging.String("key", "value"))...)

	data := readFile(t, path)
	if !strings.Contains(data, `"msg":"hello"`) || !strings.Contains(data, `"key":"value"`) {
		t.Fatalf("unexpected log contents: %s", data)
	}
}

func TestConsoleHandlerLiftsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newConsoleLogger(t, &buf, "info")
	logging.WithComponent(logger, "planner").Info("plan computed", logging.Args(logging.Int("survivors", 3))...)

	line := buf.String()
	if !strings.Contains(line, "INFO planner: plan computed") {
		t.Fatalf("component not lifted into prefix: %q", line)
	}
	if !strings.Contains(line, "survivors=3") {
		t.Fatalf("missing attribute: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := newConsoleLogger(t, &buf, "info")
	logger.Warn("episode missing", logging.Args(logging.String("path", "data dir/episode"))...)

	if !strings.Contains(buf.String(), `path="data dir/episode"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newConsoleLogger(t, &buf, "warn")
	logger.Info("suppressed")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN kept") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}

func newConsoleLogger(t *testing.T, buf *bytes.Buffer, level string) *slog.Logger {
	t.Helper()
	logger, err := logging.NewForWriter(buf, level)
	if err != nil {
		t.Fatalf("NewForWriter: %v", err)
	}
	return logger
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
