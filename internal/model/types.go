package model

import (
	"fmt"
	"strings"
	"time"
)

type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
)

var DefaultDevices = []DeviceType{DeviceMobile, DeviceDesktop}

// ParseDevice accepts "mobile" or "desktop" in any case.
func ParseDevice(raw string) (DeviceType, error) {
	switch DeviceType(strings.ToLower(strings.TrimSpace(raw))) {
	case DeviceMobile:
		return DeviceMobile, nil
	case DeviceDesktop:
		return DeviceDesktop, nil
	default:
		return "", fmt.Errorf("unsupported device type %q (want mobile|desktop)", raw)
	}
}

// CategoryScore is one audited dimension of a page. Score is in [0,1].
type CategoryScore struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// RunResult is the output of one audit invocation, or the canonical reduction of several.
type RunResult struct {
	URL        string          `json:"url"`
	DeviceType DeviceType      `json:"deviceType"`
	Categories []CategoryScore `json:"categories"`
	ReportURL  string          `json:"reportUrl,omitempty"`
}

// Category returns the entry with the given id.
func (r RunResult) Category(id string) (CategoryScore, bool) {
	for _, c := range r.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return CategoryScore{}, false
}

// Summary is derived once per report from the canonical results and never mutated.
type Summary struct {
	TotalURLs      int         `json:"totalUrls"`
	TotalTests     int         `json:"totalTests"`
	AverageScores  Scores      `json:"averageScores"`
	ScoresByDevice ScoreGroups `json:"scoresByDevice"`
	ScoresByURL    ScoreGroups `json:"scoresByUrl"`
	MinScores      Scores      `json:"minScores"`
	MaxScores      Scores      `json:"maxScores"`
}

// Device returns the averages for one device type.
func (s Summary) Device(d DeviceType) (Scores, bool) {
	return s.ScoresByDevice.Get(string(d))
}

// RunMetadata describes one pagepulse invocation.
type RunMetadata struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	DurationMS  int64        `json:"duration_ms"`
	Categories  []string     `json:"categories"`
	Devices     []DeviceType `json:"devices"`
	RunsPerURL  int          `json:"runs_per_url"`
	Lighthouse  string       `json:"lighthouse_version,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
}
