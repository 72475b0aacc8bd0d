package render

import (
	"regexp"
	"strings"
)

var (
	mrkdwnLink = regexp.MustCompile(`<([^|<>]+)\|([^<>]+)>`)
	mrkdwnBold = regexp.MustCompile(`\*([^*\n]+)\*`)
	mrkdwnEm   = regexp.MustCompile(`(^|\s)_([^_\n]+)_`)
)

// Markdown converts blocks into GitHub-flavoured markdown for job summaries and
// artifacts.
func Markdown(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Type {
		case BlockHeader:
			b.WriteString("## " + blk.Text + "\n\n")
		case BlockDivider:
			b.WriteString("---\n\n")
		case BlockContext:
			for _, line := range strings.Split(mrkdwnToMarkdown(blk.Text), "\n") {
				b.WriteString("<sub>" + line + "</sub>\n")
			}
			b.WriteString("\n")
		default:
			b.WriteString(mrkdwnToMarkdown(blk.Text) + "\n\n")
		}
	}
	return b.String()
}

func mrkdwnToMarkdown(s string) string {
	s = mrkdwnLink.ReplaceAllString(s, "[$2]($1)")
	s = mrkdwnBold.ReplaceAllString(s, "**$1**")
	s = mrkdwnEm.ReplaceAllString(s, "$1*$2*")
	s = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&").Replace(s)
	// Hard line breaks keep multi-line sections intact.
	return strings.ReplaceAll(s, "\n", "  \n")
}
