// Package summary computes report-wide statistics over canonical results.
package summary

import (
	"math"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

// Build derives totals, averages (overall, per device, per url) and min/max per
// category. Category ids are normalized so synonyms share one key. Empty input yields
// an empty summary.
func Build(results []model.RunResult) model.Summary {
	results = canonical(results)
	var sum model.Summary
	sum.TotalTests = len(results)

	var urls, devices []string
	seenURL := map[string]struct{}{}
	seenDevice := map[string]struct{}{}
	for _, r := range results {
		if _, ok := seenURL[r.URL]; !ok {
			seenURL[r.URL] = struct{}{}
			urls = append(urls, r.URL)
		}
		d := string(r.DeviceType)
		if _, ok := seenDevice[d]; !ok {
			seenDevice[d] = struct{}{}
			devices = append(devices, d)
		}
	}
	sum.TotalURLs = len(urls)

	sum.AverageScores = Averages(results)
	for _, d := range devices {
		sum.ScoresByDevice.Set(d, Averages(filter(results, func(r model.RunResult) bool {
			return string(r.DeviceType) == d
		})))
	}
	for _, u := range urls {
		sum.ScoresByURL.Set(u, Averages(filter(results, func(r model.RunResult) bool {
			return r.URL == u
		})))
	}
	sum.MinScores, sum.MaxScores = extremes(results)
	return sum
}

func canonical(results []model.RunResult) []model.RunResult {
	out := make([]model.RunResult, len(results))
	for i, r := range results {
		out[i] = category.Canonical(r)
	}
	return out
}

type accumulator struct {
	total float64
	count int
}

// Averages returns the mean score per category id, rounded to 2 decimals. Ids appear
// in the order first encountered.
func Averages(results []model.RunResult) model.Scores {
	var order []string
	acc := map[string]*accumulator{}
	for _, r := range results {
		for _, c := range r.Categories {
			a, ok := acc[c.ID]
			if !ok {
				a = &accumulator{}
				acc[c.ID] = a
				order = append(order, c.ID)
			}
			a.total += c.Score
			a.count++
		}
	}

	var out model.Scores
	for _, id := range order {
		a := acc[id]
		out.Set(id, Round(a.total/float64(a.count), 2))
	}
	return out
}

func extremes(results []model.RunResult) (minScores, maxScores model.Scores) {
	for _, r := range results {
		for _, c := range r.Categories {
			if cur, ok := minScores.Get(c.ID); !ok || c.Score < cur {
				minScores.Set(c.ID, c.Score)
			}
			if cur, ok := maxScores.Get(c.ID); !ok || c.Score > cur {
				maxScores.Set(c.ID, c.Score)
			}
		}
	}
	return minScores, maxScores
}

func filter(results []model.RunResult, keep func(model.RunResult) bool) []model.RunResult {
	out := make([]model.RunResult, 0, len(results))
	for _, r := range results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// MinScore returns the lowest score observed across every category of every result.
func MinScore(results []model.RunResult) (float64, bool) {
	found := false
	lowest := 0.0
	for _, r := range results {
		for _, c := range r.Categories {
			if !found || c.Score < lowest {
				lowest = c.Score
				found = true
			}
		}
	}
	return lowest, found
}
