package progress

import "time"

type EventType string

const (
	EventRunStarted       EventType = "run_started"
	EventRunWarning       EventType = "run_warning"
	EventRunFinished      EventType = "run_finished"
	EventAuditStarted     EventType = "audit_started"
	EventAuditRunFinished EventType = "audit_run_finished"
	EventAuditFinished    EventType = "audit_finished"
)

type Event struct {
	Type       EventType `json:"type"`
	At         time.Time `json:"at"`
	RunID      string    `json:"run_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Device     string    `json:"device,omitempty"`
	Run        int       `json:"run,omitempty"`
	Runs       int       `json:"runs,omitempty"`
	Status     string    `json:"status,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Pairs      int       `json:"pairs,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}

// Key identifies the (url, device) pair an audit event belongs to.
func (e Event) Key() string {
	return e.URL + "|" + e.Device
}
