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

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_TagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closer := newLogger(&buf, Options{Service: "fairway-server", Level: "warn"})
	defer closer.Close()

	log.Info("dropped")
	log.Warn("kept", slog.String("slot_id", "abc"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["service"] != "fairway-server" || rec["msg"] != "kept" || rec["slot_id"] != "abc" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNewLogger_WritesFileCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fairway.log")
	var buf bytes.Buffer
	log, closer := newLogger(&buf, Options{Level: "info", File: path, MaxSizeMB: 1})

	log.Info("slot created")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "slot created") || !strings.Contains(buf.String(), "slot created") {
		t.Fatalf("file = %q stdout = %q", data, buf.String())
	}
}
