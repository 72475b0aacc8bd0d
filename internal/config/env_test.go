package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_PrefixesAndPrecedence(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PAGEPULSE_URLS":                "https://a.example, https://b.example",
		"INPUT_URLS":                    "https://ignored.example",
		"INPUT_SLACK-WEBHOOK-URL":       "https://hooks.slack.com/services/T/B/X",
		"INPUT_RUNS_PER_URL":            "3",
		"PAGEPULSE_FAIL_ON_SCORE_BELOW": "72.5",
		"INPUT_DEVICE_TYPES":            "mobile",
		"PAGEPULSE_VERBOSE":             "true",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.URLs) != 2 || cfg.URLs[1] != "https://b.example" {
		t.Fatalf("PAGEPULSE_URLS should win, got %v", cfg.URLs)
	}
	if cfg.SlackWebhookURL == "" {
		t.Fatal("hyphenated action input not read")
	}
	if cfg.RunsPerURL == nil || *cfg.RunsPerURL != 3 {
		t.Fatalf("runs_per_url = %v", cfg.RunsPerURL)
	}
	if cfg.FailOnScoreBelow == nil || *cfg.FailOnScoreBelow != 72.5 {
		t.Fatalf("fail_on_score_below = %v", cfg.FailOnScoreBelow)
	}
	if cfg.Verbose == nil || !*cfg.Verbose {
		t.Fatal("verbose not parsed")
	}
	if len(cfg.DeviceTypes) != 1 {
		t.Fatalf("device types = %v", cfg.DeviceTypes)
	}
}

func TestFromEnv_ReportsAllBadValues(t *testing.T) {
	_, err := FromEnv(envMap(map[string]string{
		"PAGEPULSE_RUNS_PER_URL": "three",
		"PAGEPULSE_WORKERS":      "x",
		"PAGEPULSE_NO_TUI":       "maybe",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"runs_per_url", "workers", "no_tui"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "PAGEPULSE_TEST_DOTENV_NEW=from-file\nPAGEPULSE_TEST_DOTENV_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAGEPULSE_TEST_DOTENV_SET", "from-env")
	t.Setenv("PAGEPULSE_TEST_DOTENV_NEW", "")
	os.Unsetenv("PAGEPULSE_TEST_DOTENV_NEW")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("PAGEPULSE_TEST_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("PAGEPULSE_TEST_DOTENV_SET"); got != "from-env" {
		t.Fatalf("existing env must not be overridden, got %q", got)
	}
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected nil for a missing file, got %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" a, b\n\nc ,")
	if strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("SplitList = %q", got)
	}
	if SplitList("") != nil {
		t.Fatal("expected nil for empty input")
	}
}
