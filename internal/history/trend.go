package history

import (
	"fmt"
	"math"
	"strings"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendDeclining Trend = "DECLINING"
	TrendSame      Trend = "SAME"
	TrendFirstRun  Trend = "FIRST_RUN"
)

// sameBand is the change, in points, below which a category counts as unchanged.
const sameBand = 0.5

// Delta is the change of one category average in percentage points.
type Delta struct {
	Category string  `json:"category"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Points   float64 `json:"points"`
	Trend    Trend   `json:"trend"`
}

type Comparison struct {
	Overall Trend   `json:"overall"`
	Deltas  []Delta `json:"deltas,omitempty"`
}

// Compare diffs curr against prev for categories present in both, in curr's order.
func Compare(prev Entry, hasPrev bool, curr model.Scores) Comparison {
	if !hasPrev || prev.Averages.Len() == 0 {
		return Comparison{Overall: TrendFirstRun}
	}
	var (
		out   Comparison
		total float64
	)
	for _, id := range curr.Keys() {
		before, ok := prev.Averages.Get(id)
		if !ok {
			continue
		}
		now, _ := curr.Get(id)
		pts := math.Round((now-before)*1000) / 10
		out.Deltas = append(out.Deltas, Delta{
			Category: id,
			Previous: before,
			Current:  now,
			Points:   pts,
			Trend:    classify(pts),
		})
		total += pts
	}
	if len(out.Deltas) == 0 {
		out.Overall = TrendFirstRun
		return out
	}
	out.Overall = classify(total / float64(len(out.Deltas)))
	return out
}

func classify(pts float64) Trend {
	switch {
	case pts >= sameBand:
		return TrendImproving
	case pts <= -sameBand:
		return TrendDeclining
	default:
		return TrendSame
	}
}

// Describe formats a comparison as insight lines.
func Describe(c Comparison) []string {
	if c.Overall == TrendFirstRun {
		return []string{"🆕 *Trend:* first recorded run, nothing to compare yet"}
	}
	icon := "➡️"
	switch c.Overall {
	case TrendImproving:
		icon = "📈"
	case TrendDeclining:
		icon = "📉"
	}
	parts := make([]string, 0, len(c.Deltas))
	for _, d := range c.Deltas {
		parts = append(parts, fmt.Sprintf("%s %s", category.Meta(d.Category).Title, signed(d.Points)))
	}
	return []string{fmt.Sprintf("%s *Trend (%s):* %s pts vs previous run", icon, c.Overall, strings.Join(parts, ", "))}
}

func signed(pts float64) string {
	if math.Abs(pts) < sameBand {
		return "±0"
	}
	if pts > 0 {
		return fmt.Sprintf("+%g", pts)
	}
	return fmt.Sprintf("%g", pts)
}
