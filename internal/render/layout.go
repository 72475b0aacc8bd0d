package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

type Layout string

const (
	LayoutCompact  Layout = "compact"
	LayoutDetailed Layout = "detailed"
)

// ParseLayout accepts compact or detailed; empty means compact.
func ParseLayout(raw string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(raw))) {
	case "", LayoutCompact:
		return LayoutCompact, nil
	case LayoutDetailed:
		return LayoutDetailed, nil
	default:
		return "", fmt.Errorf("unsupported layout %q (want compact|detailed)", raw)
	}
}

// layout is the part of rendering that differs between report styles.
type layout interface {
	columnHeader(cats []string) (Block, bool)
	row(u urlRow, cats []string, mode deviceMode) Block
}

func layoutFor(l Layout) (layout, error) {
	parsed, err := ParseLayout(string(l))
	if err != nil {
		return nil, err
	}
	if parsed == LayoutDetailed {
		return detailedLayout{}, nil
	}
	return compactLayout{}, nil
}

// compactLayout renders one monospace line per URL with fixed-width columns.
type compactLayout struct{}

func (compactLayout) columnHeader(cats []string) (Block, bool) {
	var b strings.Builder
	b.WriteString("`")
	for _, id := range cats {
		b.WriteString(center(category.Meta(id).Icon, columnWidth))
	}
	b.WriteString("`")
	return Block{Type: BlockSection, Text: b.String()}, true
}

func (compactLayout) row(u urlRow, cats []string, _ deviceMode) Block {
	link := fmt.Sprintf("<%s|%s>", u.url, escape(Label(u.url)))
	if u.empty() {
		return Block{Type: BlockSection, Text: link + "\n_no data available_"}
	}
	var b strings.Builder
	b.WriteString("`")
	for _, id := range cats {
		b.WriteString(center(u.cell(id), columnWidth))
	}
	b.WriteString("` ")
	b.WriteString(u.indicators())
	b.WriteString(" ")
	b.WriteString(link)
	return Block{Type: BlockSection, Text: b.String()}
}

// detailedLayout renders a section per URL with one line per category.
type detailedLayout struct{}

func (detailedLayout) columnHeader([]string) (Block, bool) { return Block{}, false }

func (detailedLayout) row(u urlRow, cats []string, mode deviceMode) Block {
	var b strings.Builder
	fmt.Fprintf(&b, "*<%s|%s>* %s", u.url, escape(Label(u.url)), u.indicators())
	if u.reportURL != "" {
		fmt.Fprintf(&b, " (<%s|full report>)", u.reportURL)
	}
	if u.empty() {
		b.WriteString("\n_no data available_")
		return Block{Type: BlockSection, Text: b.String()}
	}
	for _, id := range cats {
		meta := category.Meta(id)
		fmt.Fprintf(&b, "\n%s %s: %s", meta.Icon, meta.Title, u.cell(id))
	}
	if mode == modeBoth && !(u.has(model.DeviceMobile) && u.has(model.DeviceDesktop)) {
		b.WriteString("\n_measured on one device only_")
	}
	return Block{Type: BlockSection, Text: b.String()}
}

// center pads s on both sides to width display cells, extra space going right.
func center(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	right := width - w - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
