// Package policy gates a run on the lowest observed category score.
package policy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

// ExitCodeFailed is returned by the CLI when the gate fails.
const ExitCodeFailed = 2

// Gate thresholds are percentages (0-100). Zero disables a threshold.
type Gate struct {
	FailOnScoreBelow float64            `yaml:"fail_on_score_below" json:"fail_on_score_below"`
	Categories       map[string]float64 `yaml:"category_thresholds,omitempty" json:"category_thresholds,omitempty"`
}

type Violation struct {
	URL       string           `json:"url"`
	Device    model.DeviceType `json:"deviceType"`
	Category  string           `json:"category"`
	Score     float64          `json:"score"`
	Threshold float64          `json:"threshold"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s] %s %.0f < %.0f", v.URL, v.Device, v.Category, v.Score, v.Threshold)
}

type Decision struct {
	Passed     bool        `json:"passed"`
	Enabled    bool        `json:"enabled"`
	MinScore   float64     `json:"minScore"`
	Violations []Violation `json:"violations,omitempty"`
}

func Validate(g Gate) error {
	if g.FailOnScoreBelow < 0 || g.FailOnScoreBelow > 100 {
		return fmt.Errorf("fail_on_score_below must be between 0 and 100")
	}
	for id, v := range g.Categories {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("category_thresholds has an empty category id")
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("category_thresholds.%s must be between 0 and 100", id)
		}
	}
	return nil
}

func (g Gate) enabled() bool {
	if g.FailOnScoreBelow > 0 {
		return true
	}
	for _, v := range g.Categories {
		if v > 0 {
			return true
		}
	}
	return false
}

func (g Gate) thresholdFor(id string) float64 {
	want := category.Normalize(id)
	for key, v := range g.Categories {
		if category.Normalize(key) == want {
			return v
		}
	}
	return g.FailOnScoreBelow
}

// Evaluate compares every canonical score against the gate. Violations are ordered
// by url, device, then category display order.
func Evaluate(results []model.RunResult, g Gate) Decision {
	decision := Decision{Passed: true, Enabled: g.enabled(), MinScore: 100}
	seen := false
	for _, r := range results {
		for _, c := range r.Categories {
			pct := percent(c.Score)
			if !seen || pct < decision.MinScore {
				decision.MinScore = pct
				seen = true
			}
			threshold := g.thresholdFor(c.ID)
			if threshold <= 0 || pct >= threshold {
				continue
			}
			decision.Violations = append(decision.Violations, Violation{
				URL:       r.URL,
				Device:    r.DeviceType,
				Category:  string(category.Normalize(c.ID)),
				Score:     pct,
				Threshold: threshold,
			})
		}
	}
	if !seen {
		decision.MinScore = 0
	}
	sort.SliceStable(decision.Violations, func(i, j int) bool {
		a, b := decision.Violations[i], decision.Violations[j]
		if a.URL != b.URL {
			return a.URL < b.URL
		}
		if a.Device != b.Device {
			return a.Device < b.Device
		}
		return category.Less(a.Category, b.Category)
	})
	decision.Passed = len(decision.Violations) == 0
	return decision
}

func percent(score float64) float64 {
	return math.Round(score*10000) / 100
}
