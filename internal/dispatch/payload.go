package dispatch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"pagepulse/internal/render"
)

const (
	maxHeaderChars  = 150
	maxSectionChars = 3000
	maxBlocks       = 50
)

// Payload is the Block Kit message shared by webhooks and chat.postMessage. It is also
// written to blocks.json as-is.
type Payload struct {
	Text   string        `json:"text"`
	Blocks []slack.Block `json:"blocks"`
}

// BuildPayload converts rendered blocks to Block Kit. Consecutive sections are merged
// while their text fits one section so long reports stay under Slack's block count.
// Anything still past the cap is replaced by a notice in the last slot.
func BuildPayload(msg Message) Payload {
	p := Payload{Text: fallbackText(msg)}
	var pending []string
	pendingSize := 0
	flush := func() {
		if len(pending) == 0 {
			return
		}
		p.Blocks = append(p.Blocks, mrkdwnSection(strings.Join(pending, "\n")))
		pending, pendingSize = nil, 0
	}

	for _, blk := range msg.Blocks {
		switch blk.Type {
		case render.BlockSection:
			size := utf8.RuneCountInString(blk.Text)
			if len(pending) > 0 && pendingSize+1+size > maxSectionChars {
				flush()
			}
			pending = append(pending, blk.Text)
			if pendingSize > 0 {
				pendingSize++
			}
			pendingSize += size
			continue
		case render.BlockHeader:
			flush()
			p.Blocks = append(p.Blocks, slack.NewHeaderBlock(
				slack.NewTextBlockObject(slack.PlainTextType, clip(blk.Text, maxHeaderChars), true, false)))
		case render.BlockDivider:
			flush()
			p.Blocks = append(p.Blocks, slack.NewDividerBlock())
		case render.BlockContext:
			flush()
			p.Blocks = append(p.Blocks, contextBlock(blk.Text))
		}
	}
	flush()
	if over := len(p.Blocks) - maxBlocks; over > 0 {
		// over+1: the notice takes the slot of the last kept block.
		p.Blocks = append(p.Blocks[:maxBlocks-1],
			contextBlock(fmt.Sprintf("_%d more block(s) omitted to fit Slack's %d-block limit. See the full report artifact._", over+1, maxBlocks)))
	}
	return p
}

func mrkdwnSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func contextBlock(text string) *slack.ContextBlock {
	return slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, text, false, false))
}

func fallbackText(msg Message) string {
	if t := strings.TrimSpace(msg.Title); t != "" {
		return t
	}
	for _, blk := range msg.Blocks {
		if blk.Type == render.BlockHeader {
			return blk.Text
		}
	}
	return render.DefaultTitle
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
