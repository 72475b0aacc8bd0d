package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pagepulse/internal/category"
	"pagepulse/internal/dispatch"
	"pagepulse/internal/lighthouse"
	"pagepulse/internal/matrix"
	"pagepulse/internal/model"
	"pagepulse/internal/policy"
	"pagepulse/internal/render"
)

const (
	DefaultRunsPerURL = 1
	DefaultOutputDir  = "pagepulse-report"
	MaxRunsPerURL     = 20
	MaxWorkers        = 16
)

// Settings is a fully resolved, validated configuration.
type Settings struct {
	URLs          []string
	Categories    []string
	Devices       []model.DeviceType
	RunsPerURL    int
	Gate          policy.Gate
	Slack         dispatch.Destination
	SlackTimeout  time.Duration
	Title         string
	Layout        render.Layout
	Workers       int
	Timeout       time.Duration
	RunDelay      time.Duration
	LighthouseBin string
	ChromeFlags   string
	OutputDir     string
	HistoryDir    string
	DatabaseURL   string
	MatrixPath    string
	Verbose       bool
	NoTUI         bool
}

// Resolve applies defaults and validates cfg. All problems are reported together.
func Resolve(cfg Config) (Settings, error) {
	var errs []error
	s := Settings{
		Title:         strings.TrimSpace(cfg.Title),
		LighthouseBin: strings.TrimSpace(cfg.LighthouseBin),
		ChromeFlags:   strings.TrimSpace(cfg.ChromeFlags),
		OutputDir:     strings.TrimSpace(cfg.OutputDir),
		HistoryDir:    strings.TrimSpace(cfg.HistoryDir),
		DatabaseURL:   strings.TrimSpace(cfg.DatabaseURL),
		MatrixPath:    strings.TrimSpace(cfg.Matrix),
		Slack: dispatch.Destination{
			WebhookURL: strings.TrimSpace(cfg.SlackWebhookURL),
			Token:      strings.TrimSpace(cfg.SlackToken),
			Channel:    strings.TrimSpace(cfg.SlackChannel),
		},
	}
	if s.Title == "" {
		s.Title = render.DefaultTitle
	}
	if s.LighthouseBin == "" {
		s.LighthouseBin = lighthouse.DefaultBin
	}
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if cfg.Verbose != nil {
		s.Verbose = *cfg.Verbose
	}
	if cfg.NoTUI != nil {
		s.NoTUI = *cfg.NoTUI
	}

	for _, u := range cfg.URLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if err := matrix.ValidateURL(u); err != nil {
			errs = append(errs, fmt.Errorf("urls: %w", err))
			continue
		}
		s.URLs = append(s.URLs, u)
	}

	cats := category.ParseList(strings.Join(cfg.Categories, ","))
	if len(cats) == 0 {
		cats = category.DefaultIDs
	}
	s.Categories = category.Strings(cats)

	devices, err := matrix.ParseDevices(strings.Join(cfg.DeviceTypes, ","))
	if err != nil {
		errs = append(errs, fmt.Errorf("device_types: %w", err))
	}
	if len(devices) == 0 {
		devices = append([]model.DeviceType(nil), model.DefaultDevices...)
	}
	s.Devices = devices

	s.RunsPerURL = DefaultRunsPerURL
	if cfg.RunsPerURL != nil {
		s.RunsPerURL = *cfg.RunsPerURL
		if s.RunsPerURL < 1 || s.RunsPerURL > MaxRunsPerURL {
			errs = append(errs, fmt.Errorf("runs_per_url must be between 1 and %d", MaxRunsPerURL))
		}
	}

	s.Workers = lighthouse.DefaultWorkers
	if cfg.Workers != nil {
		s.Workers = *cfg.Workers
		if s.Workers < 1 || s.Workers > MaxWorkers {
			errs = append(errs, fmt.Errorf("workers must be between 1 and %d", MaxWorkers))
		}
	}

	if cfg.FailOnScoreBelow != nil {
		s.Gate.FailOnScoreBelow = *cfg.FailOnScoreBelow
	}
	if len(cfg.CategoryThresholds) > 0 {
		s.Gate.Categories = make(map[string]float64, len(cfg.CategoryThresholds))
		for k, v := range cfg.CategoryThresholds {
			s.Gate.Categories[k] = v
		}
	}
	if err := policy.Validate(s.Gate); err != nil {
		errs = append(errs, err)
	}

	layout, err := render.ParseLayout(cfg.Layout)
	if err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}
	s.Layout = layout

	s.Timeout = parseDuration("timeout", cfg.Timeout, lighthouse.DefaultTimeout, &errs)
	s.RunDelay = parseDuration("run_delay", cfg.RunDelay, lighthouse.DefaultRunDelay, &errs)
	s.SlackTimeout = parseDuration("slack_timeout", cfg.SlackTimeout, dispatch.DefaultTimeout, &errs)

	if s.Slack.WebhookURL != "" {
		if err := matrix.ValidateURL(s.Slack.WebhookURL); err != nil {
			errs = append(errs, errors.New("slack_webhook_url must be an http(s) url"))
		}
	}
	if s.Slack.WebhookURL == "" && s.Slack.Token != "" && s.Slack.Channel == "" {
		errs = append(errs, errors.New("slack_channel is required when slack_token is set"))
	}

	if err := errors.Join(errs...); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// SlackConfigured reports whether a report can be delivered.
func (s Settings) SlackConfigured() bool {
	return s.Slack.WebhookURL != "" || (s.Slack.Token != "" && s.Slack.Channel != "")
}

func parseDuration(name, raw string, fallback time.Duration, errs *[]error) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", name, raw))
		return fallback
	}
	if d < 0 {
		*errs = append(*errs, fmt.Errorf("%s must not be negative", name))
		return fallback
	}
	return d
}
