// Package report writes the artifacts of one run: canonical results, the summary,
// the Slack payload, a markdown and HTML report, and a shields.io badge.
package report

import (
	"fmt"
	"path/filepath"

	"pagepulse/internal/badge"
	"pagepulse/internal/dispatch"
	"pagepulse/internal/history"
	"pagepulse/internal/model"
	"pagepulse/internal/policy"
	"pagepulse/internal/redact"
	"pagepulse/internal/render"
	"pagepulse/internal/safefile"
)

const (
	ResultsFile  = "results.json"
	SummaryFile  = "summary.json"
	MarkdownFile = "report.md"
	HTMLFile     = "report.html"
	BlocksFile   = "blocks.json"
	BadgeFile    = "badge.json"
)

// Bundle is everything a run produced.
type Bundle struct {
	Title    string
	Metadata model.RunMetadata
	Results  []model.RunResult
	Summary  model.Summary
	Blocks   []render.Block
	Decision policy.Decision
	Trend    history.Comparison
}

type Paths struct {
	Results  string `json:"results"`
	Summary  string `json:"summary"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Blocks   string `json:"blocks"`
	Badge    string `json:"badge,omitempty"`
}

type resultsDoc struct {
	Metadata model.RunMetadata `json:"metadata"`
	Results  []model.RunResult `json:"results"`
}

type summaryDoc struct {
	Summary model.Summary      `json:"summary"`
	Policy  policy.Decision    `json:"policy"`
	Trend   history.Comparison `json:"trend"`
}

// Write stores every artifact under dir, creating it if needed.
func Write(dir string, b Bundle) (Paths, error) {
	abs, err := safefile.EnsureDir(dir)
	if err != nil {
		return Paths{}, fmt.Errorf("prepare output directory: %w", err)
	}
	b.Metadata.Errors = redact.Strings(b.Metadata.Errors)

	p := Paths{
		Results:  filepath.Join(abs, ResultsFile),
		Summary:  filepath.Join(abs, SummaryFile),
		Markdown: filepath.Join(abs, MarkdownFile),
		HTML:     filepath.Join(abs, HTMLFile),
		Blocks:   filepath.Join(abs, BlocksFile),
	}
	if err := safefile.WriteJSON(p.Results, resultsDoc{Metadata: b.Metadata, Results: b.Results}); err != nil {
		return Paths{}, err
	}
	if err := safefile.WriteJSON(p.Summary, summaryDoc{Summary: b.Summary, Policy: b.Decision, Trend: b.Trend}); err != nil {
		return Paths{}, err
	}
	if err := safefile.WriteJSON(p.Blocks, dispatch.BuildPayload(dispatch.Message{Title: b.Title, Blocks: b.Blocks})); err != nil {
		return Paths{}, err
	}
	if err := safefile.Write(p.Markdown, []byte(RenderMarkdown(b))); err != nil {
		return Paths{}, fmt.Errorf("write markdown report: %w", err)
	}
	if err := safefile.Write(p.HTML, []byte(RenderHTML(b))); err != nil {
		return Paths{}, fmt.Errorf("write html report: %w", err)
	}

	if overall, ok := Overall(b.Summary); ok {
		data, err := badge.ShieldsJSON("lighthouse", overall)
		if err != nil {
			return Paths{}, fmt.Errorf("marshal badge: %w", err)
		}
		p.Badge = filepath.Join(abs, BadgeFile)
		if err := safefile.Write(p.Badge, data); err != nil {
			return Paths{}, fmt.Errorf("write badge: %w", err)
		}
	}
	return p, nil
}

// Overall is the mean of the overall category averages.
func Overall(sum model.Summary) (float64, bool) {
	n := sum.AverageScores.Len()
	if n == 0 {
		return 0, false
	}
	var total float64
	for _, id := range sum.AverageScores.Keys() {
		v, _ := sum.AverageScores.Get(id)
		total += v
	}
	return total / float64(n), true
}
