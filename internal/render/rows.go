package render

import (
	"sort"

	"pagepulse/internal/badge"
	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

// urlRow gathers every canonical result for one URL.
type urlRow struct {
	url       string
	reportURL string
	devices   map[model.DeviceType]map[string]float64
}

func groupByURL(results []model.RunResult) []urlRow {
	index := map[string]int{}
	var rows []urlRow
	for _, r := range results {
		i, ok := index[r.URL]
		if !ok {
			i = len(rows)
			index[r.URL] = i
			rows = append(rows, urlRow{url: r.URL, devices: map[model.DeviceType]map[string]float64{}})
		}
		scores := make(map[string]float64, len(r.Categories))
		for _, c := range r.Categories {
			scores[string(category.Normalize(c.ID))] = c.Score
		}
		rows[i].devices[r.DeviceType] = scores
		if rows[i].reportURL == "" {
			rows[i].reportURL = r.ReportURL
		}
	}
	return rows
}

func (u urlRow) has(d model.DeviceType) bool {
	_, ok := u.devices[d]
	return ok
}

func (u urlRow) empty() bool {
	for _, scores := range u.devices {
		if len(scores) > 0 {
			return false
		}
	}
	return true
}

// cell formats one category for the row. Both devices show "m%/d%", a single device
// shows its value, and a category measured nowhere shows the placeholder.
func (u urlRow) cell(id string) string {
	m, mok := u.devices[model.DeviceMobile][id]
	d, dok := u.devices[model.DeviceDesktop][id]
	switch {
	case !mok && !dok:
		return placeholder
	case u.has(model.DeviceMobile) && u.has(model.DeviceDesktop):
		return scoreOrDash(m, mok) + "/" + scoreOrDash(d, dok)
	case mok:
		return percent(m)
	default:
		return percent(d)
	}
}

func scoreOrDash(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return percent(v)
}

// indicators returns one traffic light per device present, mobile first.
func (u urlRow) indicators() string {
	out := ""
	for _, d := range model.DefaultDevices {
		scores, ok := u.devices[d]
		if !ok || len(scores) == 0 {
			continue
		}
		ids := make([]string, 0, len(scores))
		for id := range scores {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		total := 0.0
		for _, id := range ids {
			total += scores[id]
		}
		out += badge.Indicator(total / float64(len(scores)))
	}
	return out
}
