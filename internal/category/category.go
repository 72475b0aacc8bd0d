// Package category normalizes audit category ids and supplies their display metadata.
package category

import (
	"sort"
	"strings"
	"unicode"

	"pagepulse/internal/model"
)

type ID string

const (
	Performance   ID = "performance"
	Accessibility ID = "accessibility"
	BestPractices ID = "best-practices"
	SEO           ID = "seo"
	PWA           ID = "pwa"
)

// Known lists every category with fixed metadata.
var Known = []ID{Performance, Accessibility, BestPractices, SEO, PWA}

// DefaultIDs is the allow-list used when none is configured.
var DefaultIDs = []ID{Performance, Accessibility, BestPractices, SEO}

// preferred is the display order; anything else follows alphabetically.
var preferred = []ID{Performance, SEO, Accessibility, BestPractices}

const FallbackIcon = "📋"

type Info struct {
	Title string
	Icon  string
}

var table = map[ID]Info{
	Performance:   {Title: "Performance", Icon: "⚡"},
	Accessibility: {Title: "Accessibility", Icon: "♿"},
	BestPractices: {Title: "Best Practices", Icon: "✅"},
	SEO:           {Title: "SEO", Icon: "🔍"},
	PWA:           {Title: "PWA", Icon: "📱"},
}

var synonyms = map[string]ID{
	"bestpractices":  BestPractices,
	"best practices": BestPractices,
	"best_practices": BestPractices,
}

// Normalize lowercases raw and folds known synonyms onto one id.
func Normalize(raw string) ID {
	key := strings.ToLower(strings.TrimSpace(raw))
	if id, ok := synonyms[key]; ok {
		return id
	}
	return ID(key)
}

// Canonical returns r with every category id normalized. When two entries fold onto the
// same id the first one wins. r is not modified.
func Canonical(r model.RunResult) model.RunResult {
	cats := make([]model.CategoryScore, 0, len(r.Categories))
	seen := make(map[ID]struct{}, len(r.Categories))
	for _, c := range r.Categories {
		id := Normalize(c.ID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c.ID = string(id)
		cats = append(cats, c)
	}
	r.Categories = cats
	return r
}

// IsKnown reports whether id has fixed metadata.
func IsKnown(id ID) bool {
	_, ok := table[id]
	return ok
}

// Meta returns the display title and icon for raw. Unknown ids get a capitalized
// title and FallbackIcon.
func Meta(raw string) Info {
	id := Normalize(raw)
	if info, ok := table[id]; ok {
		return info
	}
	return Info{Title: capitalize(string(id)), Icon: FallbackIcon}
}

func capitalize(s string) string {
	if s == "" {
		return "Unknown"
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func rank(id ID) int {
	for i, p := range preferred {
		if p == id {
			return i
		}
	}
	return len(preferred)
}

// Less orders a before b: preferred ids first, then by normalized id.
func Less(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	ra, rb := rank(na), rank(nb)
	if ra != rb {
		return ra < rb
	}
	return na < nb
}

// Sort returns ids in display order without modifying the input.
func Sort(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// ParseList splits a comma separated allow-list, normalizing and de-duplicating it.
func ParseList(raw string) []ID {
	seen := map[ID]struct{}{}
	var out []ID
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id := Normalize(part)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func Strings(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
