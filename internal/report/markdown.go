package report

import (
	"fmt"
	"strings"

	"pagepulse/internal/render"
)

// RenderMarkdown is the Slack report in markdown followed by the gate outcome and any
// audit errors. It is what the CI step summary shows.
func RenderMarkdown(b Bundle) string {
	var out strings.Builder
	out.WriteString(render.Markdown(b.Blocks))

	if b.Decision.Enabled {
		out.WriteString("### Score gate\n\n")
		if b.Decision.Passed {
			out.WriteString(fmt.Sprintf("✅ Passed. Lowest score: %.0f.\n", b.Decision.MinScore))
		} else {
			out.WriteString(fmt.Sprintf("❌ Failed with %d violation(s):\n\n", len(b.Decision.Violations)))
			for _, v := range b.Decision.Violations {
				out.WriteString(fmt.Sprintf("- `%s`\n", v.String()))
			}
		}
		out.WriteString("\n")
	}

	if len(b.Metadata.Errors) > 0 {
		out.WriteString("### Audit errors\n\n")
		for _, e := range b.Metadata.Errors {
			out.WriteString(fmt.Sprintf("- %s\n", oneLine(e)))
		}
	}
	return out.String()
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
