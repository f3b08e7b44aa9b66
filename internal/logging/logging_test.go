package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestConfigureJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Configure(Options{Level: "warn", JSON: true, Writer: &buf})
	if L() != l {
		t.Fatal("L should return the configured logger")
	}
	l.Info("dropped")
	l.Warn("kept", "row", 3)
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q", buf.String())
	}
	if rec["msg"] != "kept" || rec["row"] != 3.0 {
		t.Fatalf("record %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"DEBUG": slog.LevelDebug, " warning ": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo} {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: %v", in, got)
		}
	}
}

func TestInitFromEnv(t *testing.T) {
	t.Setenv("JANITOR_LOG_LEVEL", "debug")
	t.Setenv("JANITOR_LOG_JSON", "true")
	l := InitFromEnv()
	if _, ok := l.Handler().(*slog.JSONHandler); !ok {
		t.Fatalf("handler %T", l.Handler())
	}
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be enabled")
	}
}
