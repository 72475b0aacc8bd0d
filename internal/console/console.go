// Package console prints the end-of-run summary.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"pagepulse/internal/app"
	"pagepulse/internal/badge"
	"pagepulse/internal/category"
	"pagepulse/internal/report"
	"pagepulse/internal/sanitize"
)

type styles struct {
	label lipgloss.Style
	good  lipgloss.Style
	fair  lipgloss.Style
	poor  lipgloss.Style
	muted lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		label: r.NewStyle().Bold(true),
		good:  r.NewStyle().Foreground(lipgloss.Color("42")),
		fair:  r.NewStyle().Foreground(lipgloss.Color("214")),
		poor:  r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintSummary writes a short human summary of out. Color is used only when color is set.
func PrintSummary(w io.Writer, out app.Outcome, paths report.Paths, color bool) {
	st := newStyles(w, color)
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", st.label.Render(fmt.Sprintf("%-15s", label+":")), value)
	}

	row("run id", out.Metadata.RunID)
	row("results", fmt.Sprintf("%d url(s), %d test(s)", out.Summary.TotalURLs, out.Summary.TotalTests))
	if paths.Results != "" {
		row("report", paths.Markdown)
		row("html", paths.HTML)
		row("slack payload", paths.Blocks)
	}

	for _, id := range category.Sort(out.Summary.AverageScores.Keys()) {
		v, _ := out.Summary.AverageScores.Get(id)
		meta := category.Meta(id)
		grade, _ := badge.Grade(v)
		row(strings.ToLower(meta.Title), st.score(v).Render(fmt.Sprintf("%3.0f (%s)", v*100, grade)))
	}
	if overall, ok := report.Overall(out.Summary); ok {
		row("overall", st.score(overall).Render(fmt.Sprintf("%3.0f", overall*100)))
	}
	if out.Trend.Overall != "" {
		row("trend", string(out.Trend.Overall))
	}

	switch {
	case !out.Decision.Enabled:
		row("gate", st.muted.Render("disabled"))
	case out.Decision.Passed:
		row("gate", st.good.Render(fmt.Sprintf("passed (min %.0f)", out.Decision.MinScore)))
	default:
		row("gate", st.poor.Render(fmt.Sprintf("FAILED (%d violation(s))", len(out.Decision.Violations))))
		for _, v := range out.Decision.Violations {
			fmt.Fprintf(w, "  %s\n", st.poor.Render(sanitize.Inline(v.String())))
		}
	}

	switch {
	case out.Delivered:
		row("slack", st.good.Render("delivered"))
	case out.DeliveryErr != nil:
		row("slack", st.poor.Render(sanitize.Inline(out.DeliveryErr.Error())))
	default:
		row("slack", st.muted.Render("skipped"))
	}

	if n := len(out.Metadata.Errors); n > 0 {
		row("warnings", st.fair.Render(fmt.Sprintf("%d", n)))
		for _, e := range out.Metadata.Errors {
			fmt.Fprintf(w, "  %s\n", st.muted.Render(sanitize.Inline(e)))
		}
	}
}

func (s styles) score(v float64) lipgloss.Style {
	switch {
	case v >= 0.9:
		return s.good
	case v >= 0.5:
		return s.fair
	default:
		return s.poor
	}
}
