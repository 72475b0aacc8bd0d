package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pagepulse/internal/sanitize"
)

type Sink interface {
	Emit(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

type NoopSink struct{}

func (NoopSink) Emit(Event) {}

type ChannelSink struct {
	ch chan<- Event
}

func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(e Event) {
	if s == nil || s.ch == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case s.ch <- e:
	default:
		// Drop on backpressure so a slow UI never blocks an audit.
	}
}

// PlainSink writes one line per event, for logs and non-interactive terminals.
type PlainSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewPlainSink(w io.Writer) *PlainSink {
	return &PlainSink{w: w}
}

func (s *PlainSink) Emit(e Event) {
	if s == nil || s.w == nil {
		return
	}
	text := describe(e)
	if text == "" {
		return
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s\n", at.Format("15:04:05"), sanitize.Inline(text))
}

func describe(e Event) string {
	pair := e.URL + " (" + e.Device + ")"
	switch e.Type {
	case EventRunStarted:
		return fmt.Sprintf("run %s: %d audit(s)", e.RunID, e.Pairs)
	case EventRunWarning:
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return "warning: " + msg
		}
		return "warning: " + strings.TrimSpace(e.Error)
	case EventRunFinished:
		return suffixErr(fmt.Sprintf("run %s %s in %s", e.RunID, e.Status, ms(e.DurationMS)), e.Error)
	case EventAuditStarted:
		return fmt.Sprintf("%s: %d run(s)", pair, e.Runs)
	case EventAuditRunFinished:
		return suffixErr(fmt.Sprintf("%s: run %d/%d %s in %s", pair, e.Run, e.Runs, e.Status, ms(e.DurationMS)), e.Error)
	case EventAuditFinished:
		return suffixErr(fmt.Sprintf("%s: %s in %s", pair, e.Status, ms(e.DurationMS)), e.Error)
	}
	return ""
}

func suffixErr(line, errText string) string {
	if errText = strings.TrimSpace(errText); errText != "" {
		return line + ": " + errText
	}
	return line
}

func ms(n int64) string {
	return (time.Duration(n) * time.Millisecond).String()
}

// Fanout forwards every event to each non-nil sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	for _, s := range f {
		if s != nil {
			s.Emit(e)
		}
	}
}
