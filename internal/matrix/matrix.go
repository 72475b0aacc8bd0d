package matrix

import (
	"fmt"
	"net/url"
	"strings"

	"pagepulse/internal/model"
)

// Pair is one (url, device) combination audited Runs times.
type Pair struct {
	URL    string           `json:"url"`
	Device model.DeviceType `json:"deviceType"`
	Runs   int              `json:"runs"`
}

func (p Pair) String() string {
	return fmt.Sprintf("%s [%s]", p.URL, p.Device)
}

// Build expands urls × devices in input order. Duplicate urls are audited once.
func Build(urls []string, devices []model.DeviceType, runs int) []Pair {
	if runs < 1 {
		runs = 1
	}
	if len(devices) == 0 {
		devices = model.DefaultDevices
	}
	seen := map[string]struct{}{}
	out := make([]Pair, 0, len(urls)*len(devices))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		for _, d := range uniqueDevices(devices) {
			out = append(out, Pair{URL: u, Device: d, Runs: runs})
		}
	}
	return out
}

// ParseURLs splits a comma or newline separated list and requires absolute http(s) urls.
func ParseURLs(raw string) ([]string, error) {
	var out []string
	for _, item := range splitList(raw) {
		if err := ValidateURL(item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: host is required", raw)
	}
	return nil
}

func ParseDevices(raw string) ([]model.DeviceType, error) {
	items := splitList(raw)
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]model.DeviceType, 0, len(items))
	for _, item := range items {
		d, err := model.ParseDevice(item)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return uniqueDevices(out), nil
}

func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func uniqueDevices(in []model.DeviceType) []model.DeviceType {
	seen := map[model.DeviceType]struct{}{}
	out := make([]model.DeviceType, 0, len(in))
	for _, d := range in {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
