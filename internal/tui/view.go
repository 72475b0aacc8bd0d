package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pagepulse/internal/render"
)

var palette = struct {
	title, header, help           lipgloss.Style
	ok, warn, fail, running, idle lipgloss.Style
}{
	title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	header:  lipgloss.NewStyle().Bold(true).Underline(true),
	help:    lipgloss.NewStyle().Faint(true),
	ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	running: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
	idle:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
}

const rowFormat = "%-40s %-8s %-12s %-6s %s"

func (m uiModel) View() string {
	sections := []string{m.viewStatus(), m.viewTable()}
	if !m.hideLog {
		sections = append(sections, m.viewLog())
	}
	sections = append(sections, m.viewHelp())
	return strings.Join(sections, "\n\n") + "\n"
}

func (m uiModel) viewStatus() string {
	state := statusStyle(m.runStatus).Render(strings.ToUpper(m.runStatus))
	if !m.done {
		state += " " + m.spinner.View()
	}
	lines := []string{
		palette.title.Render(m.title),
		fmt.Sprintf("Run %s  %s", orDash(m.runID), state),
		fmt.Sprintf("Audits: %d/%d finished  Elapsed: %s", m.finishedCount(), max(m.pairs, len(m.audits)), m.elapsed()),
	}
	if m.runError != "" {
		lines = append(lines, palette.fail.Render(m.runError))
	}
	return strings.Join(lines, "\n")
}

func (m uiModel) viewTable() string {
	rows := []string{palette.header.Render(fmt.Sprintf(rowFormat, "URL", "Device", "Status", "Runs", "Time"))}
	now := time.Now()
	for _, key := range m.orderedAudits() {
		a := m.audits[key]
		line := fmt.Sprintf(rowFormat,
			render.Label(a.URL), a.Device, a.Status,
			fmt.Sprintf("%d/%d", a.Run, a.Runs), durationString(a.elapsed(now)))
		rows = append(rows, statusStyle(a.Status).Render(line))
	}
	if len(rows) == 1 {
		rows = append(rows, palette.idle.Render("waiting for audits..."))
	}
	return strings.Join(rows, "\n")
}

func (m uiModel) viewLog() string {
	if len(m.logLines) == 0 {
		return palette.idle.Render("No events yet.")
	}
	return strings.Join(m.logLines, "\n")
}

func (m uiModel) viewHelp() string {
	if m.done {
		return palette.help.Render("q quit")
	}
	return palette.help.Render("l toggle log")
}

func (m uiModel) elapsed() string {
	if m.began.IsZero() {
		return "0s"
	}
	end := m.ended
	if end.IsZero() {
		end = time.Now().UTC()
	}
	return end.Sub(m.began).Round(time.Second).String()
}

func durationString(ms int64) string {
	if ms <= 0 {
		return "0s"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "success":
		return palette.ok
	case "partial", "timeout", "warning":
		return palette.warn
	case "failed":
		return palette.fail
	case "running":
		return palette.running
	}
	return palette.idle
}

func noColorEnabled() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}
