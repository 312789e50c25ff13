package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "info", Writer: &buf, NoColor: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("sync cycle finished", "outcomes", "no_op")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level:\n%s", out)
	}
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "sync cycle finished") || !strings.Contains(out, "outcomes=no_op") {
		t.Errorf("unexpected text output:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("NoColor output contains ANSI escapes: %q", out)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.With("component", "sync").Debug("committed local changes", "files", 2)

	line := buf.String()
	if !gjson.Valid(line) {
		t.Fatalf("output is not JSON: %q", line)
	}
	for path, want := range map[string]string{
		"level":     "DEBUG",
		"msg":       "committed local changes",
		"component": "sync",
		"files":     "2",
	} {
		if got := gjson.Get(line, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}

func TestNewFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "git-ai-sync.log")

	logger, closeFn, err := New(Options{Level: "warn", Writer: &console, File: path, NoColor: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("not written")
	logger.Error("sync cycle failed", "step", "push")
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("log file has %d records, want 1:\n%s", len(lines), data)
	}
	if got := gjson.Get(lines[0], "step").String(); got != "push" {
		t.Errorf("step = %q, want push", got)
	}
	if !strings.Contains(console.String(), "sync cycle failed") {
		t.Error("record missing from console output")
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, _, err := New(Options{Level: "verbose"}); err == nil {
		t.Error("New() accepted an unknown level")
	}
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("New() accepted an unknown format")
	}
}
