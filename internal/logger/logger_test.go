package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var timestampPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} `)

func TestNewWithWriter_TimestampFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error: %v", err)
	}
	log.Info("New login detected")
	_ = log.Sync()

	line := buf.String()
	if !timestampPrefix.MatchString(line) {
		t.Errorf("log line %q lacks UTC timestamp prefix", line)
	}
	if !strings.Contains(line, "INFO New login detected") {
		t.Errorf("log line %q", line)
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error: %v", err)
	}
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn message missing")
	}
}

func TestNewWithWriter_BadLevel(t *testing.T) {
	if _, err := NewWithWriter(Config{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewWithWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "watchdog.log")
	log, err := NewWithWriter(Config{File: path, MaxSize: 1}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewWithWriter() error: %v", err)
	}
	log.Error("probe failed")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !timestampPrefix.Match(data) || !strings.Contains(string(data), "probe failed") {
		t.Errorf("log file content %q", data)
	}
}
