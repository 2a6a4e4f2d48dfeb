package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWriter_PlainFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatPlain, LevelDebug)

	w.Write([]Log{
		Info("provider %s is at block %d", "evm-local", 12),
		Error("fetch failed", errors.New("connection refused")),
	})

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "INFO provider evm-local is at block 12") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR fetch failed: connection refused") {
		t.Fatalf("unexpected second line: %q", lines[1])
	}
}

func TestWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON, LevelDebug)

	w.Write([]Log{Error("fetch failed", errors.New("boom"))})

	var entry map[string]string
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not one JSON object per line: %v", err)
	}
	if entry["level"] != "ERROR" || entry["message"] != "fetch failed" || entry["error"] != "boom" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatPlain, LevelWarn)

	w.Write([]Log{
		Debug("dropped"),
		Info("dropped too"),
		Warn("kept"),
	})

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("low-severity entries leaked: %q", out)
	}
	if !strings.Contains(out, "WARN kept") {
		t.Fatalf("WARN entry missing: %q", out)
	}
}

func TestMerge_PreservesOrder(t *testing.T) {
	merged := Merge(
		[]Log{Debug("a"), Debug("b")},
		nil,
		[]Log{Debug("c")},
	)
	if len(merged) != 3 {
		t.Fatalf("got %d entries, want 3", len(merged))
	}
	for i, want := range []string{"a", "b", "c"} {
		if merged[i].Message != want {
			t.Fatalf("position %d: got %q, want %q", i, merged[i].Message, want)
		}
	}
}
