// Package lighthouse runs the Lighthouse CLI and reads its JSON and HTML reports.
package lighthouse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pagepulse/internal/category"
	"pagepulse/internal/model"
)

// ErrNoReport is returned when an HTML artifact has no embedded report.
var ErrNoReport = errors.New("no embedded lighthouse report found")

const htmlMarker = "window.__LIGHTHOUSE_JSON__"

type rawReport struct {
	RequestedURL   string          `json:"requestedUrl"`
	FinalURL       string          `json:"finalUrl"`
	MainDocument   string          `json:"mainDocumentUrl"`
	ConfigSettings rawSettings     `json:"configSettings"`
	Categories     json.RawMessage `json:"categories"`
	RuntimeError   *rawRuntimeErr  `json:"runtimeError"`
}

type rawSettings struct {
	FormFactor string `json:"formFactor"`
}

type rawRuntimeErr struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type rawCategory struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Score *float64 `json:"score"`
}

// ParseJSON converts a Lighthouse JSON report into a run result. Categories keep the
// report's order and categories without a score are skipped.
func ParseJSON(data []byte) (model.RunResult, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.RunResult{}, fmt.Errorf("decode lighthouse report: %w", err)
	}
	if raw.RuntimeError != nil && raw.RuntimeError.Code != "" && raw.RuntimeError.Code != "NO_ERROR" {
		return model.RunResult{}, fmt.Errorf("lighthouse runtime error %s: %s", raw.RuntimeError.Code, raw.RuntimeError.Message)
	}

	res := model.RunResult{URL: firstNonEmpty(raw.RequestedURL, raw.FinalURL, raw.MainDocument)}
	if res.URL == "" {
		return model.RunResult{}, fmt.Errorf("lighthouse report has no url")
	}
	device, err := model.ParseDevice(firstNonEmpty(raw.ConfigSettings.FormFactor, string(model.DeviceMobile)))
	if err != nil {
		return model.RunResult{}, err
	}
	res.DeviceType = device

	cats, err := orderedCategories(raw.Categories)
	if err != nil {
		return model.RunResult{}, err
	}
	for _, c := range cats {
		if c.Score == nil {
			continue
		}
		id := c.ID
		if id == "" {
			continue
		}
		res.Categories = append(res.Categories, model.CategoryScore{ID: id, Title: c.Title, Score: *c.Score})
	}
	return category.Canonical(res), nil
}

func orderedCategories(raw json.RawMessage) ([]rawCategory, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode categories: expected object")
	}
	var out []rawCategory
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode categories: %w", err)
		}
		key, _ := keyTok.(string)
		var c rawCategory
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode category %q: %w", key, err)
		}
		if c.ID == "" {
			c.ID = key
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseHTML extracts and parses the report embedded in a Lighthouse HTML artifact.
func ParseHTML(r io.Reader) (model.RunResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("parse lighthouse html: %w", err)
	}
	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, htmlMarker)
		if idx < 0 {
			return true
		}
		rest := text[idx+len(htmlMarker):]
		eq := strings.Index(rest, "=")
		if eq < 0 {
			return true
		}
		rest = strings.TrimSpace(rest[eq+1:])
		if end := strings.LastIndex(rest, "}"); end >= 0 {
			payload = rest[:end+1]
		}
		return false
	})
	if payload == "" {
		return model.RunResult{}, ErrNoReport
	}
	return ParseJSON([]byte(payload))
}

// LoadDir parses every *.report.json and *.report.html in dir, in name order.
// Unreadable reports are returned as errors alongside the parsed results.
func LoadDir(dir string) ([]model.RunResult, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read report directory: %w", err)}
	}
	var (
		results []model.RunResult
		errs    []error
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)
		var (
			res  model.RunResult
			perr error
		)
		switch {
		case strings.HasSuffix(name, ".report.json"):
			data, err := os.ReadFile(path)
			if err != nil {
				perr = err
				break
			}
			res, perr = ParseJSON(data)
		case strings.HasSuffix(name, ".report.html"):
			f, err := os.Open(path)
			if err != nil {
				perr = err
				break
			}
			res, perr = ParseHTML(f)
			_ = f.Close()
		default:
			continue
		}
		if perr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, perr))
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
