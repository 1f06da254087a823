package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rover/logging"
)

func TestConsoleFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	err := sink.Write(logging.Event{
		Type:     "movement.path_failed",
		Tick:     12,
		Severity: logging.SeverityWarn,
		Actor:    logging.AgentRef(7),
		Targets:  []logging.EntityRef{{ID: "R0:0", Kind: logging.EntityKindRegion}},
		TraceID:  "abc",
		Payload:  map[string]int{"ops": 3},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[movement.path_failed]", "tick=12", "warn", "actor=agent:7", "targets=region:R0:0", "trace=abc", `payload={"ops":3}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestJSONWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	for i := 0; i < 2; i++ {
		if err := sink.Write(logging.Event{Type: "movement.cycle_completed", Tick: uint64(i), Time: time.Unix(0, 0).UTC()}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["tick"] != float64(1) || decoded["severity"] != "debug" {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestMemoryFiltersByType(t *testing.T) {
	sink := NewMemory()
	sink.Publish(context.Background(), logging.Event{Type: "a"})
	sink.Publish(context.Background(), logging.Event{Type: "b"})
	sink.Publish(context.Background(), logging.Event{Type: "a"})
	if got := len(sink.OfType("a")); got != 2 {
		t.Fatalf("expected 2 events of type a, got %d", got)
	}
	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected empty sink after reset, got %d", got)
	}
}
