package report

import (
	"bytes"
	"fmt"
	"html"
	"math"
	"strings"

	"pagepulse/internal/badge"
	"pagepulse/internal/category"
	"pagepulse/internal/model"
	"pagepulse/internal/render"
)

// RenderHTML renders a standalone page with one table row per (url, device).
func RenderHTML(r Bundle) string {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = render.DefaultTitle
	}
	cats := categoryColumns(r.Results)

	var b bytes.Buffer
	b.WriteString("<!doctype html>\n")
	b.WriteString("<html lang=\"en\">\n")
	b.WriteString("<head>\n")
	b.WriteString("  <meta charset=\"utf-8\">\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString(fmt.Sprintf("  <title>%s</title>\n", htmlInline(title)))
	b.WriteString("  <style>\n")
	b.WriteString("    :root { color-scheme: light; --bg: #f3f6fb; --surface: #ffffff; --border: #d7dee9; --text: #102033; --muted: #4f6278; }\n")
	b.WriteString("    body { margin: 0; font-family: \"Segoe UI\", \"Helvetica Neue\", Arial, sans-serif; background: var(--bg); color: var(--text); line-height: 1.5; }\n")
	b.WriteString("    .page { max-width: 1100px; margin: 0 auto; padding: 28px 20px 40px; }\n")
	b.WriteString("    .hero { background: linear-gradient(140deg, #102033, #1e3550); color: #f8fbff; border-radius: 16px; padding: 20px 24px; margin-bottom: 20px; }\n")
	b.WriteString("    .hero h1 { margin: 0; font-size: 28px; }\n")
	b.WriteString("    .hero p { margin: 8px 0 0; color: #dbe8f7; }\n")
	b.WriteString("    section { background: var(--surface); border: 1px solid var(--border); border-radius: 14px; padding: 18px; margin-bottom: 16px; }\n")
	b.WriteString("    table { width: 100%; border-collapse: collapse; }\n")
	b.WriteString("    th, td { text-align: left; padding: 8px; border-bottom: 1px solid var(--border); }\n")
	b.WriteString("    td.score { font-variant-numeric: tabular-nums; }\n")
	b.WriteString("    .good { color: #047857; } .fair { color: #b45309; } .poor { color: #b91c1c; }\n")
	b.WriteString("    .empty { color: var(--muted); }\n")
	b.WriteString("  </style>\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString("  <main class=\"page\">\n")
	b.WriteString("    <header class=\"hero\">\n")
	b.WriteString(fmt.Sprintf("      <h1>%s</h1>\n", htmlInline(title)))
	b.WriteString(fmt.Sprintf("      <p>%d URLs, %d tests", r.Summary.TotalURLs, r.Summary.TotalTests))
	if overall, ok := Overall(r.Summary); ok {
		grade, _ := badge.Grade(overall)
		b.WriteString(fmt.Sprintf(" &middot; overall %d (%s)", int(math.Round(overall*100)), grade))
	}
	if r.Metadata.RunID != "" {
		b.WriteString(fmt.Sprintf(" &middot; run <code>%s</code>", htmlInline(r.Metadata.RunID)))
	}
	b.WriteString("</p>\n")
	b.WriteString("    </header>\n")

	b.WriteString("    <section>\n")
	b.WriteString("      <h2>Scores</h2>\n")
	if len(r.Results) == 0 || len(cats) == 0 {
		b.WriteString("      <p class=\"empty\">No data available.</p>\n")
	} else {
		b.WriteString("      <table>\n")
		b.WriteString("        <thead><tr><th>URL</th><th>Device</th>")
		for _, id := range cats {
			meta := category.Meta(id)
			b.WriteString(fmt.Sprintf("<th>%s %s</th>", meta.Icon, htmlInline(meta.Title)))
		}
		b.WriteString("</tr></thead>\n")
		b.WriteString("        <tbody>\n")
		for _, res := range r.Results {
			b.WriteString(fmt.Sprintf("          <tr><td><a href=\"%s\">%s</a></td><td>%s</td>",
				htmlInline(res.URL), htmlInline(render.Label(res.URL)), htmlInline(string(res.DeviceType))))
			for _, id := range cats {
				b.WriteString(scoreCell(res, id))
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("        </tbody>\n")
		b.WriteString("      </table>\n")
	}
	b.WriteString("    </section>\n")

	if r.Decision.Enabled && !r.Decision.Passed {
		b.WriteString("    <section>\n")
		b.WriteString("      <h2>Score gate failures</h2>\n")
		b.WriteString("      <ul>\n")
		for _, v := range r.Decision.Violations {
			b.WriteString(fmt.Sprintf("        <li><code>%s</code></li>\n", htmlInline(v.String())))
		}
		b.WriteString("      </ul>\n")
		b.WriteString("    </section>\n")
	}

	if len(r.Metadata.Errors) > 0 {
		b.WriteString("    <section>\n")
		b.WriteString("      <h2>Audit errors</h2>\n")
		b.WriteString("      <ul>\n")
		for _, e := range r.Metadata.Errors {
			b.WriteString(fmt.Sprintf("        <li>%s</li>\n", htmlInline(e)))
		}
		b.WriteString("      </ul>\n")
		b.WriteString("    </section>\n")
	}
	b.WriteString("  </main>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")
	return b.String()
}

func categoryColumns(results []model.RunResult) []string {
	seen := map[category.ID]struct{}{}
	var ids []string
	for _, res := range results {
		for _, c := range res.Categories {
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

func scoreCell(res model.RunResult, id string) string {
	for _, c := range res.Categories {
		if category.Normalize(c.ID) != category.ID(id) {
			continue
		}
		class := "poor"
		switch {
		case c.Score >= 0.9:
			class = "good"
		case c.Score >= 0.5:
			class = "fair"
		}
		return fmt.Sprintf("<td class=\"score %s\">%d</td>", class, int(math.Round(c.Score*100)))
	}
	return "<td class=\"score empty\">N/A</td>"
}

func htmlInline(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
