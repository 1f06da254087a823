package logging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestRouterDeliversAndFilters(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.Fields = map[string]any{"service": "rover"}
	router, err := NewRouter(ClockFunc(func() time.Time { return fixed }), cfg, []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "kept", Severity: SeverityWarn, Extra: map[string]any{"service": "override"}})
	router.Publish(context.Background(), Event{Type: "filtered", Severity: SeverityDebug})
	router.Publish(context.Background(), Event{Severity: SeverityError})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "kept" {
		t.Fatalf("unexpected event %q", events[0].Type)
	}
	if !events[0].Time.Equal(fixed) {
		t.Fatalf("expected clock time, got %v", events[0].Time)
	}
	if events[0].Extra["service"] != "override" {
		t.Fatalf("router field overwrote event field: %v", events[0].Extra)
	}
	if !sink.closed {
		t.Fatalf("sink not closed")
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", stats.EventsTotal)
	}
	if err := router.Close(ctx); !errors.Is(err, ErrRouterClosed) {
		t.Fatalf("expected ErrRouterClosed, got %v", err)
	}
}

func TestWithTraceAndFields(t *testing.T) {
	var got []Event
	pub := PublisherFunc(func(_ context.Context, e Event) { got = append(got, e) })

	scoped := WithFields(WithTrace(pub, "trace-1"), map[string]any{"cycle": 7})
	scoped.Publish(context.Background(), Event{Type: "a"})
	scoped.Publish(context.Background(), Event{Type: "b", TraceID: "own"})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].TraceID != "trace-1" || got[1].TraceID != "own" {
		t.Fatalf("unexpected trace ids %q %q", got[0].TraceID, got[1].TraceID)
	}
	if got[0].Extra["cycle"] != 7 {
		t.Fatalf("missing field: %v", got[0].Extra)
	}
}

func TestParseSeverity(t *testing.T) {
	for name, want := range map[string]Severity{"debug": SeverityDebug, "": SeverityInfo, "WARN": SeverityWarn, "error": SeverityError} {
		got, err := ParseSeverity(name)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseSeverity("loud"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestWithExtraDoesNotAlias(t *testing.T) {
	base := Event{Type: "x", Extra: map[string]any{"k": 1}}
	next := base.WithExtra("k", 2)
	if base.Extra["k"] != 1 || next.Extra["k"] != 2 {
		t.Fatalf("WithExtra mutated original: %v %v", base.Extra, next.Extra)
	}
}
