package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds one layer of settings. Zero values and nil pointers mean "not set".
type Config struct {
	URLs               []string           `yaml:"urls,omitempty"`
	Categories         []string           `yaml:"categories,omitempty"`
	DeviceTypes        []string           `yaml:"device_types,omitempty"`
	RunsPerURL         *int               `yaml:"runs_per_url,omitempty"`
	FailOnScoreBelow   *float64           `yaml:"fail_on_score_below,omitempty"`
	CategoryThresholds map[string]float64 `yaml:"category_thresholds,omitempty"`
	SlackWebhookURL    string             `yaml:"slack_webhook_url,omitempty"`
	SlackToken         string             `yaml:"slack_token,omitempty"`
	SlackChannel       string             `yaml:"slack_channel,omitempty"`
	SlackTimeout       string             `yaml:"slack_timeout,omitempty"`
	Title              string             `yaml:"title,omitempty"`
	Layout             string             `yaml:"layout,omitempty"`
	Workers            *int               `yaml:"workers,omitempty"`
	Timeout            string             `yaml:"timeout,omitempty"`
	RunDelay           string             `yaml:"run_delay,omitempty"`
	LighthouseBin      string             `yaml:"lighthouse_bin,omitempty"`
	ChromeFlags        string             `yaml:"chrome_flags,omitempty"`
	OutputDir          string             `yaml:"output_dir,omitempty"`
	HistoryDir         string             `yaml:"history_dir,omitempty"`
	DatabaseURL        string             `yaml:"database_url,omitempty"`
	Matrix             string             `yaml:"matrix,omitempty"`
	Verbose            *bool              `yaml:"verbose,omitempty"`
	NoTUI              *bool              `yaml:"no_tui,omitempty"`
}

// Load merges the global (~/.pagepulse/config.yaml) and repo-local
// (./.pagepulse/config.yaml) files, local last. Missing files are skipped.
func Load() (Config, error) {
	var merged Config
	for _, l := range layers() {
		c, err := loadFile(l.path)
		if err != nil {
			return Config{}, fmt.Errorf("load %s config %s: %w", l.name, l.path, err)
		}
		merged = Merge(merged, c)
	}
	return merged, nil
}

type layerFile struct {
	name string
	path string
}

func layers() []layerFile {
	var out []layerFile
	if home, _ := os.UserHomeDir(); home != "" {
		out = append(out, layerFile{"global", filepath.Join(home, ".pagepulse", "config.yaml")})
	}
	if cwd, _ := os.Getwd(); cwd != "" {
		local := filepath.Join(cwd, ".pagepulse", "config.yaml")
		if len(out) == 0 || out[0].path != local {
			out = append(out, layerFile{"local", local})
		}
	}
	return out
}

// LoadFile reads a single explicit config file. Unlike the layered files it must exist.
func LoadFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	return loadFile(path)
}

func loadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies overrides from b onto a. Set fields in b win.
func Merge(a, b Config) Config {
	if len(b.URLs) > 0 {
		a.URLs = append([]string(nil), b.URLs...)
	}
	if len(b.Categories) > 0 {
		a.Categories = append([]string(nil), b.Categories...)
	}
	if len(b.DeviceTypes) > 0 {
		a.DeviceTypes = append([]string(nil), b.DeviceTypes...)
	}
	if b.RunsPerURL != nil {
		a.RunsPerURL = b.RunsPerURL
	}
	if b.FailOnScoreBelow != nil {
		a.FailOnScoreBelow = b.FailOnScoreBelow
	}
	if len(b.CategoryThresholds) > 0 {
		merged := make(map[string]float64, len(a.CategoryThresholds)+len(b.CategoryThresholds))
		for k, v := range a.CategoryThresholds {
			merged[k] = v
		}
		for k, v := range b.CategoryThresholds {
			merged[k] = v
		}
		a.CategoryThresholds = merged
	}
	if b.SlackWebhookURL != "" {
		a.SlackWebhookURL = b.SlackWebhookURL
	}
	if b.SlackToken != "" {
		a.SlackToken = b.SlackToken
	}
	if b.SlackChannel != "" {
		a.SlackChannel = b.SlackChannel
	}
	if b.SlackTimeout != "" {
		a.SlackTimeout = b.SlackTimeout
	}
	if b.Title != "" {
		a.Title = b.Title
	}
	if b.Layout != "" {
		a.Layout = b.Layout
	}
	if b.Workers != nil {
		a.Workers = b.Workers
	}
	if b.Timeout != "" {
		a.Timeout = b.Timeout
	}
	if b.RunDelay != "" {
		a.RunDelay = b.RunDelay
	}
	if b.LighthouseBin != "" {
		a.LighthouseBin = b.LighthouseBin
	}
	if b.ChromeFlags != "" {
		a.ChromeFlags = b.ChromeFlags
	}
	if b.OutputDir != "" {
		a.OutputDir = b.OutputDir
	}
	if b.HistoryDir != "" {
		a.HistoryDir = b.HistoryDir
	}
	if b.DatabaseURL != "" {
		a.DatabaseURL = b.DatabaseURL
	}
	if b.Matrix != "" {
		a.Matrix = b.Matrix
	}
	if b.Verbose != nil {
		a.Verbose = b.Verbose
	}
	if b.NoTUI != nil {
		a.NoTUI = b.NoTUI
	}
	return a
}
