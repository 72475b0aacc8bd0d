// Package render turns canonical results and their summary into an ordered list of
// chat display blocks that stays within a fixed text budget.
package render

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
	"pagepulse/internal/summary"
)

type BlockType string

const (
	BlockHeader  BlockType = "header"
	BlockSection BlockType = "section"
	BlockDivider BlockType = "divider"
	BlockContext BlockType = "context"
)

// Block is one unit of the rendered report. Section and context text is Slack mrkdwn.
type Block struct {
	Type BlockType `json:"type"`
	Text string    `json:"text,omitempty"`
}

// Size is the block's contribution to the message text budget, in runes of text.
// A section also counts the newline that joins it to its neighbour when consecutive
// sections are merged for delivery, so a merged section never outgrows the budget.
func (b Block) Size() int {
	n := utf8.RuneCountInString(b.Text)
	if b.Type == BlockSection {
		n++
	}
	return n
}

const (
	DefaultTitle = "Lighthouse Report"

	// DefaultMaxChars matches Slack's per-block text limit.
	DefaultMaxChars = 3000

	// DeviceGapThreshold is the mobile/desktop difference a category must exceed to be
	// called out.
	DeviceGapThreshold = 0.10

	columnWidth = 11
	placeholder = "N/A"

	noCategoriesText = "No categories to display."
	noDataText       = "No data available."
)

// Input is everything one report is rendered from.
type Input struct {
	Title   string
	Results []model.RunResult
	Summary model.Summary

	// Trend holds pre-formatted comparison lines against the previous run.
	Trend []string

	// RunURL links back to the CI run; omitted from the footer when empty.
	RunURL   string
	RunLabel string
}

type Options struct {
	Layout   Layout
	MaxChars int
	Now      func() time.Time
}

type Renderer struct {
	layout   layout
	maxChars int
	now      func() time.Time
}

func New(opts Options) (*Renderer, error) {
	l, err := layoutFor(opts.Layout)
	if err != nil {
		return nil, err
	}
	r := &Renderer{layout: l, maxChars: opts.MaxChars, now: opts.Now}
	if r.maxChars <= 0 {
		r.maxChars = DefaultMaxChars
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// budget tracks the text already emitted against the ceiling.
type budget struct {
	limit int
	used  int
}

func (b *budget) fits(blk Block) bool { return b.used+blk.Size() <= b.limit }
func (b *budget) add(blk Block)       { b.used += blk.Size() }

type builder struct {
	blocks []Block
	budget budget
}

func (w *builder) emit(blk Block) {
	w.blocks = append(w.blocks, blk)
	w.budget.add(blk)
}

// Render produces the report blocks in a single pass. It never fails: missing data
// degrades to placeholder text.
func (r *Renderer) Render(in Input) []Block {
	w := &builder{budget: budget{limit: r.maxChars}}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = DefaultTitle
	}
	w.emit(Block{Type: BlockHeader, Text: title})
	w.emit(Block{Type: BlockSection, Text: fmt.Sprintf("*%d URLs, %d tests.*", in.Summary.TotalURLs, in.Summary.TotalTests)})
	w.emit(Block{Type: BlockDivider})

	cats := displayCategories(in.Results)
	mode := modeOf(in.Results)
	w.emit(legend(cats, mode))

	if len(cats) == 0 {
		w.emit(Block{Type: BlockSection, Text: noCategoriesText})
		w.emit(Block{Type: BlockSection, Text: noDataText})
	} else {
		if blk, ok := r.layout.columnHeader(cats); ok {
			w.emit(blk)
		}
		rows := groupByURL(in.Results)
		for i, row := range rows {
			blk := r.layout.row(row, cats, mode)
			if !w.budget.fits(blk) {
				w.emit(truncationWarning(len(rows) - i))
				break
			}
			w.emit(blk)
		}
	}

	if blk, ok := insights(in.Summary, in.Trend); ok {
		w.emit(Block{Type: BlockDivider})
		w.emit(blk)
	}

	w.emit(Block{Type: BlockDivider})
	w.emit(r.footer(in))
	return w.blocks
}

func truncationWarning(omitted int) Block {
	noun := "URLs"
	if omitted == 1 {
		noun = "URL"
	}
	return Block{
		Type: BlockSection,
		Text: fmt.Sprintf("⚠️ *Report truncated:* %d more %s not shown to stay within the message size limit. See the CI artifacts for the full report.", omitted, noun),
	}
}

type deviceMode int

const (
	modeNone deviceMode = iota
	modeMobileOnly
	modeDesktopOnly
	modeBoth
)

func modeOf(results []model.RunResult) deviceMode {
	var mobile, desktop bool
	for _, r := range results {
		switch r.DeviceType {
		case model.DeviceMobile:
			mobile = true
		case model.DeviceDesktop:
			desktop = true
		}
	}
	switch {
	case mobile && desktop:
		return modeBoth
	case mobile:
		return modeMobileOnly
	case desktop:
		return modeDesktopOnly
	default:
		return modeNone
	}
}

func (m deviceMode) describe() string {
	switch m {
	case modeBoth:
		return "📱 mobile / 🖥️ desktop (cells show mobile/desktop)"
	case modeMobileOnly:
		return "📱 mobile only"
	case modeDesktopOnly:
		return "🖥️ desktop only"
	default:
		return "no devices"
	}
}

// displayCategories returns the normalized ids present in any result, in display order.
func displayCategories(results []model.RunResult) []string {
	seen := map[category.ID]struct{}{}
	var ids []string
	for _, r := range results {
		for _, c := range r.Categories {
			id := category.Normalize(c.ID)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, string(id))
		}
	}
	return category.Sort(ids)
}

func legend(cats []string, mode deviceMode) Block {
	if len(cats) == 0 {
		return Block{Type: BlockContext, Text: "Devices: " + mode.describe()}
	}
	parts := make([]string, 0, len(cats))
	for _, id := range cats {
		meta := category.Meta(id)
		parts = append(parts, fmt.Sprintf("%s – %s", meta.Icon, meta.Title))
	}
	return Block{Type: BlockContext, Text: strings.Join(parts, " | ") + "\nDevices: " + mode.describe()}
}

func insights(sum model.Summary, trend []string) (Block, bool) {
	avg := sum.AverageScores
	if avg.Len() == 0 {
		return Block{}, false
	}

	keys := avg.Keys()
	best, worst := keys[0], keys[0]
	bestScore, _ := avg.Get(best)
	worstScore := bestScore
	for _, id := range keys[1:] {
		v, _ := avg.Get(id)
		if v > bestScore {
			best, bestScore = id, v
		}
		if v < worstScore {
			worst, worstScore = id, v
		}
	}

	lines := []string{
		"*Insights*",
		fmt.Sprintf("• 💪 *Strongest Area:* %s (%s)", category.Meta(best).Title, percent(bestScore)),
		fmt.Sprintf("• 🎯 *Area for Improvement:* %s (%s)", category.Meta(worst).Title, percent(worstScore)),
	}
	if line, ok := deviceGap(sum); ok {
		lines = append(lines, line)
	}
	for _, t := range trend {
		lines = append(lines, "• "+t)
	}
	return Block{Type: BlockSection, Text: strings.Join(lines, "\n")}, true
}

// deviceGap finds the category with the widest mobile/desktop difference among those
// measured on both, and reports it when the gap exceeds DeviceGapThreshold.
func deviceGap(sum model.Summary) (string, bool) {
	mobile, ok := sum.Device(model.DeviceMobile)
	if !ok {
		return "", false
	}
	desktop, ok := sum.Device(model.DeviceDesktop)
	if !ok {
		return "", false
	}

	var (
		gapID    string
		gap      float64
		m, d     float64
		hasFound bool
	)
	for _, id := range mobile.Keys() {
		dv, ok := desktop.Get(id)
		if !ok {
			continue
		}
		mv, _ := mobile.Get(id)
		g := summary.Round(math.Abs(mv-dv), 4)
		if !hasFound || g > gap {
			gapID, gap, m, d, hasFound = id, g, mv, dv, true
		}
	}
	if !hasFound || gap <= DeviceGapThreshold {
		return "", false
	}

	better := "mobile"
	if d > m {
		better = "desktop"
	}
	return fmt.Sprintf("• 📊 *Device Gap:* %s is %d pts higher on %s (📱 %s vs 🖥️ %s)",
		category.Meta(gapID).Title, int(math.Round(gap*100)), better, percent(m), percent(d)), true
}

func (r *Renderer) footer(in Input) Block {
	text := "Generated " + r.now().UTC().Format("2006-01-02 15:04 UTC")
	if in.RunURL != "" {
		label := in.RunLabel
		if label == "" {
			label = "View CI run"
		}
		text += fmt.Sprintf(" • <%s|%s>", in.RunURL, escape(label))
	} else if in.RunLabel != "" {
		text += " • " + escape(in.RunLabel)
	}
	return Block{Type: BlockContext, Text: text}
}

func percent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return mrkdwnEscaper.Replace(s) }
