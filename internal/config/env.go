package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads path (".env" when empty) into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a layer from PAGEPULSE_* variables and GitHub Action INPUT_* inputs.
// PAGEPULSE_* wins when both are set.
func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	lookup := func(name string) string {
		upper := strings.ToUpper(name)
		for _, key := range []string{
			"PAGEPULSE_" + upper,
			"INPUT_" + upper,
			"INPUT_" + strings.ReplaceAll(upper, "_", "-"),
		} {
			if v := strings.TrimSpace(getenv(key)); v != "" {
				return v
			}
		}
		return ""
	}

	var cfg Config
	var errs []error
	cfg.URLs = SplitList(lookup("urls"))
	cfg.Categories = SplitList(lookup("categories"))
	cfg.DeviceTypes = SplitList(lookup("device_types"))
	cfg.SlackWebhookURL = lookup("slack_webhook_url")
	cfg.SlackToken = lookup("slack_token")
	cfg.SlackChannel = lookup("slack_channel")
	cfg.SlackTimeout = lookup("slack_timeout")
	cfg.Title = lookup("title")
	cfg.Layout = lookup("layout")
	cfg.Timeout = lookup("timeout")
	cfg.RunDelay = lookup("run_delay")
	cfg.LighthouseBin = lookup("lighthouse_bin")
	cfg.ChromeFlags = lookup("chrome_flags")
	cfg.OutputDir = lookup("output_dir")
	cfg.HistoryDir = lookup("history_dir")
	cfg.DatabaseURL = lookup("database_url")
	cfg.Matrix = lookup("matrix")

	if v := lookup("runs_per_url"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("runs_per_url: %q is not an integer", v))
		} else {
			cfg.RunsPerURL = &n
		}
	}
	if v := lookup("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("workers: %q is not an integer", v))
		} else {
			cfg.Workers = &n
		}
	}
	if v := lookup("fail_on_score_below"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("fail_on_score_below: %q is not a number", v))
		} else {
			cfg.FailOnScoreBelow = &f
		}
	}
	for _, key := range []string{"verbose", "no_tui"} {
		v := lookup(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %q is not a boolean", key, v))
			continue
		}
		if key == "verbose" {
			cfg.Verbose = &b
		} else {
			cfg.NoTUI = &b
		}
	}
	return cfg, errors.Join(errs...)
}

// SplitList splits comma or newline separated values, dropping blanks.
func SplitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
