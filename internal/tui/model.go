package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"pagepulse/internal/progress"
	"pagepulse/internal/render"
	"pagepulse/internal/sanitize"
)

const maxLogLines = 12

// auditState is the live view of one (url, device) pair.
type auditState struct {
	URL        string
	Device     string
	Status     string
	Run        int
	Runs       int
	DurationMS int64
	StartedAt  time.Time
	Error      string
}

func (a auditState) finished() bool {
	switch a.Status {
	case "success", "partial", "failed":
		return true
	}
	return false
}

// elapsed is the live duration while running and the reported one afterwards.
func (a auditState) elapsed(now time.Time) int64 {
	if a.Status == "running" && !a.StartedAt.IsZero() {
		return now.Sub(a.StartedAt).Milliseconds()
	}
	return a.DurationMS
}

type eventMsg struct {
	event  progress.Event
	closed bool
}

type uiModel struct {
	events <-chan progress.Event
	title  string

	runID     string
	runStatus string
	runError  string
	pairs     int
	began     time.Time
	ended     time.Time
	done      bool

	audits map[string]auditState
	order  []string

	logLines []string
	hideLog  bool
	spinner  spinner.Model
}

func newModel(title string, events <-chan progress.Event) uiModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Line), spinner.WithStyle(palette.running))
	if strings.TrimSpace(title) == "" {
		title = render.DefaultTitle
	}
	return uiModel{
		events:    events,
		title:     title,
		runStatus: "running",
		audits:    map[string]auditState{},
		spinner:   sp,
	}
}

func next(ch <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return eventMsg{event: ev, closed: !ok}
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(next(m.events), m.spinner.Tick)
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		if msg.closed {
			m.done = true
			return m, tea.Quit
		}
		m.applyEvent(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, next(m.events)
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "l":
			m.hideLog = !m.hideLog
		case "q", "ctrl+c":
			// The run owns cancellation; the UI closes once it reports back.
			if m.done {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *uiModel) applyEvent(e progress.Event) {
	switch e.Type {
	case progress.EventRunStarted:
		m.runID, m.runStatus, m.pairs = e.RunID, "running", e.Pairs
		if !e.At.IsZero() {
			m.began = e.At
		}
		m.log(e, "run started "+orDash(e.RunID))

	case progress.EventRunWarning:
		m.log(e, "warning: "+pick(e.Message, e.Error))

	case progress.EventAuditStarted:
		m.update(e, func(a *auditState) {
			a.Status, a.Runs = "running", e.Runs
			if !e.At.IsZero() {
				a.StartedAt = e.At
			}
		})
		m.log(e, fmt.Sprintf("%s (%s) started", e.URL, e.Device))

	case progress.EventAuditRunFinished:
		m.update(e, func(a *auditState) {
			a.Run, a.Runs = e.Run, e.Runs
			a.Error = pick(e.Error, a.Error)
		})
		m.log(e, withErr(fmt.Sprintf("%s (%s) run %d/%d %s", e.URL, e.Device, e.Run, e.Runs, pick(e.Status, "unknown")), e.Error))

	case progress.EventAuditFinished:
		m.update(e, func(a *auditState) {
			a.Status = pick(e.Status, a.Status)
			a.DurationMS = e.DurationMS
			a.Error = pick(e.Error, a.Error)
		})
		m.log(e, fmt.Sprintf("%s (%s) %s in %s", e.URL, e.Device, pick(e.Status, "unknown"), durationString(e.DurationMS)))

	case progress.EventRunFinished:
		m.runStatus = pick(e.Status, "success")
		m.runError = strings.TrimSpace(e.Error)
		if !e.At.IsZero() {
			m.ended = e.At
		}
		m.done = true
		m.log(e, withErr("run "+m.runStatus+" in "+durationString(e.DurationMS), m.runError))
	}
}

// update applies fn to the pair's state, registering the pair on first sight.
func (m *uiModel) update(e progress.Event, fn func(*auditState)) {
	key := e.Key()
	a, ok := m.audits[key]
	if !ok {
		a = auditState{URL: e.URL, Device: e.Device, Status: "pending"}
		m.order = append(m.order, key)
	}
	fn(&a)
	m.audits[key] = a
}

// orderedAudits lists running audits first, then failures, then the rest in start order.
func (m uiModel) orderedAudits() []string {
	out := append([]string(nil), m.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(m.audits[out[i]].Status) < rank(m.audits[out[j]].Status)
	})
	return out
}

func rank(status string) int {
	switch status {
	case "running":
		return 0
	case "failed", "timeout":
		return 1
	}
	return 2
}

func (m uiModel) finishedCount() int {
	n := 0
	for _, a := range m.audits {
		if a.finished() {
			n++
		}
	}
	return n
}

func (m *uiModel) log(e progress.Event, text string) {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	m.logLines = append(m.logLines, at.Format("15:04:05")+"  "+sanitize.Inline(text))
	if over := len(m.logLines) - maxLogLines; over > 0 {
		m.logLines = m.logLines[over:]
	}
}

func withErr(line, errText string) string {
	if errText = strings.TrimSpace(errText); errText != "" {
		return line + ": " + errText
	}
	return line
}

func pick(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orDash(v string) string {
	return pick(v, "-")
}
