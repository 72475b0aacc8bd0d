package progress

import (
	"bytes"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	sink := NewChannelSink(ch)

	sink.Emit(Event{Type: EventRunStarted, RunID: "run-1"})
	got := <-ch
	if got.RunID != "run-1" || got.At.IsZero() || got.At.Location() != time.UTC {
		t.Fatalf("unexpected event %+v", got)
	}

	// A full buffer drops the event instead of stalling the audit.
	ch <- Event{Type: EventAuditStarted, URL: "https://a.example"}
	done := make(chan struct{})
	go func() {
		sink.Emit(Event{Type: EventAuditStarted, URL: "https://b.example"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Emit blocked on a full channel")
	}
	if kept := <-ch; kept.URL != "https://a.example" {
		t.Fatalf("buffered event replaced by %q", kept.URL)
	}
	select {
	case extra := <-ch:
		t.Fatalf("dropped event delivered: %+v", extra)
	default:
	}

	var nilSink *ChannelSink
	nilSink.Emit(Event{Type: EventRunStarted})
}

func TestPlainSink(t *testing.T) {
	at := time.Date(2026, time.October, 16, 9, 30, 5, 0, time.UTC)
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "run started",
			ev:   Event{Type: EventRunStarted, At: at, RunID: "r1", Pairs: 4},
			want: "09:30:05 run r1: 4 audit(s)\n",
		},
		{
			name: "warning falls back to error",
			ev:   Event{Type: EventRunWarning, At: at, Error: " lighthouse not found "},
			want: "09:30:05 warning: lighthouse not found\n",
		},
		{
			name: "run of an audit",
			ev: Event{Type: EventAuditRunFinished, At: at, URL: "https://example.com", Device: "mobile",
				Run: 2, Runs: 3, Status: "failed", DurationMS: 1500, Error: " exit status 1 "},
			want: "09:30:05 https://example.com (mobile): run 2/3 failed in 1.5s: exit status 1\n",
		},
		{
			name: "control characters stripped",
			ev:   Event{Type: EventAuditFinished, At: at, URL: "https://example.com/\x1b[31mred", Device: "desktop", Status: "success", DurationMS: 20},
			want: "09:30:05 https://example.com/red (desktop): success in 20ms\n",
		},
		{
			name: "unknown event",
			ev:   Event{Type: EventType("unknown"), At: at},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			NewPlainSink(&out).Emit(tt.ev)
			if out.String() != tt.want {
				t.Fatalf("got %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestFanoutStampsOnceAndSkipsNil(t *testing.T) {
	var got []Event
	record := SinkFunc(func(e Event) { got = append(got, e) })
	Fanout{record, nil, record}.Emit(Event{Type: EventAuditFinished})

	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0].At.IsZero() || !got[0].At.Equal(got[1].At) {
		t.Fatalf("expected one shared timestamp: %v vs %v", got[0].At, got[1].At)
	}
}

func TestZapSinkLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	sink.Emit(Event{Type: EventAuditStarted, URL: "https://example.com", Device: "desktop", Runs: 3})
	sink.Emit(Event{Type: EventAuditFinished, URL: "https://example.com", Device: "desktop", Status: "failed", Error: "timeout"})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("unexpected levels: %v %v", entries[0].Level, entries[1].Level)
	}
	if entries[1].ContextMap()["error"] != "timeout" {
		t.Fatalf("expected error field, got %v", entries[1].ContextMap())
	}
}
