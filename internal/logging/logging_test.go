package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Info("audit finished", zap.String("url", "https://example.com"))
	log.Debug("hidden")
	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["msg"] != "audit finished" || entry["url"] != "https://example.com" || entry["logger"] != "pagepulse" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)
	log.Debug("detail")
	_ = log.Sync()
	if !strings.Contains(buf.String(), `"detail"`) {
		t.Fatalf("expected debug entry, got %q", buf.String())
	}
}
