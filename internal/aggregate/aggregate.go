// Package aggregate collapses repeated audit runs of one (url, device) pair into a
// single canonical result.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

// ErrEmptyInput is matched by EmptyInputError via errors.Is.
var ErrEmptyInput = errors.New("no runs to aggregate")

// EmptyInputError reports a pair that produced zero runs.
type EmptyInputError struct {
	URL    string
	Device model.DeviceType
}

func (e *EmptyInputError) Error() string {
	if e.URL == "" {
		return ErrEmptyInput.Error()
	}
	return fmt.Sprintf("%s (%s %s)", ErrEmptyInput, e.URL, e.Device)
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// Median reduces runs of the same url and device to one result using the per-category
// median. A single run is returned unchanged. Category ids are normalized first so
// synonyms from different runs meet. Categories are those of the first run; a category
// missing from a later run is skipped for that run, not counted as zero.
func Median(runs []model.RunResult) (model.RunResult, error) {
	if len(runs) == 0 {
		return model.RunResult{}, &EmptyInputError{}
	}
	if len(runs) == 1 {
		return runs[0], nil
	}

	runs = canonical(runs)
	first := runs[0]
	out := model.RunResult{
		URL:        first.URL,
		DeviceType: first.DeviceType,
		ReportURL:  first.ReportURL,
		Categories: make([]model.CategoryScore, 0, len(first.Categories)),
	}
	for _, cat := range first.Categories {
		scores := make([]float64, 0, len(runs))
		for _, run := range runs {
			if c, ok := run.Category(cat.ID); ok {
				scores = append(scores, c.Score)
			}
		}
		out.Categories = append(out.Categories, model.CategoryScore{
			ID:    cat.ID,
			Title: cat.Title,
			Score: median(scores),
		})
	}
	return out, nil
}

func canonical(runs []model.RunResult) []model.RunResult {
	out := make([]model.RunResult, len(runs))
	for i, r := range runs {
		out[i] = category.Canonical(r)
	}
	return out
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Group holds every raw run for one (url, device) pair.
type Group struct {
	URL    string
	Device model.DeviceType
	Runs   []model.RunResult
}

type groupKey struct {
	url    string
	device model.DeviceType
}

// GroupRuns buckets raw runs by (url, device), keeping the order pairs were first seen.
func GroupRuns(runs []model.RunResult) []Group {
	index := make(map[groupKey]int)
	groups := make([]Group, 0)
	for _, run := range runs {
		k := groupKey{url: run.URL, device: run.DeviceType}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{URL: run.URL, Device: run.DeviceType})
		}
		groups[i].Runs = append(groups[i].Runs, run)
	}
	return groups
}

// All reduces every group to its canonical result. A group that fails is reported in
// the returned errors and skipped; the rest are still produced.
func All(groups []Group) ([]model.RunResult, []error) {
	results := make([]model.RunResult, 0, len(groups))
	var errs []error
	for _, g := range groups {
		res, err := Median(g.Runs)
		if err != nil {
			var empty *EmptyInputError
			if errors.As(err, &empty) {
				empty.URL, empty.Device = g.URL, g.Device
			}
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}
