package render

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	md := Markdown([]Block{
		{Type: BlockHeader, Text: "Lighthouse Report"},
		{Type: BlockSection, Text: "*2 URLs, 3 tests.*"},
		{Type: BlockDivider},
		{Type: BlockSection, Text: "*<https://a.test|a.test>* 🟢\n_no data available_"},
		{Type: BlockContext, Text: "Generated now • <https://ci.test/1|run &amp; logs>"},
	})
	for _, want := range []string{
		"## Lighthouse Report",
		"**2 URLs, 3 tests.**",
		"---",
		"**[a.test](https://a.test)** 🟢  \n*no data available*",
		"<sub>Generated now • [run & logs](https://ci.test/1)</sub>",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in markdown:\n%s", want, md)
		}
	}
}
