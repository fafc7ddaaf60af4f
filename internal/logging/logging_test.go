package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Info().Msg("hidden")
	l.Warn().Str("vehicle_id", "TRUCK-001").Msg("rejected")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["vehicle_id"] != "TRUCK-001" || rec["level"] != "warn" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "info", "console")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	l.Info().Msg("simulation stopped")
	if !strings.Contains(buf.String(), "simulation stopped") || strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected plain console line, got %q", buf.String())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(&buf, "info", "json")
	ctx := NewContext(context.Background(), l.With().Str("run_id", "r1").Logger())
	got := FromContext(ctx)
	got.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"run_id":"r1"`) {
		t.Errorf("expected context logger fields, got %q", buf.String())
	}
}
