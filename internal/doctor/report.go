package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"pagepulse/internal/config"
	"pagepulse/internal/history"
	"pagepulse/internal/safefile"
	"pagepulse/internal/trust"
)

type Options struct {
	// Config is the merged, unresolved configuration. Nil loads the config files.
	Config *config.Config
	// LoadErr is a failure the caller hit while loading Config.
	LoadErr error
}

var chromeCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}

func BuildReport(ctx context.Context, opts Options) Report {
	report := Report{Checks: make([]CheckResult, 0, 8)}
	add := report.record

	var cfg config.Config
	if opts.LoadErr != nil {
		add(CheckResult{ID: "config.load", Status: StatusFail, Message: fmt.Sprintf("failed to load config: %v", opts.LoadErr)})
		return report
	}
	if opts.Config != nil {
		cfg = *opts.Config
		add(CheckResult{ID: "config.load", Status: StatusPass, Message: "configuration loaded"})
	} else {
		loaded, err := config.Load()
		if err != nil {
			add(CheckResult{ID: "config.load", Status: StatusFail, Message: fmt.Sprintf("failed to load config: %v", err)})
		} else {
			cfg = loaded
			home, _ := os.UserHomeDir()
			add(CheckResult{
				ID:      "config.load",
				Status:  StatusPass,
				Message: "configuration loaded",
				Metadata: map[string]string{
					"global_config": fileState(filepath.Join(home, ".pagepulse", "config.yaml")),
					"local_config":  fileState(filepath.Join(".pagepulse", "config.yaml")),
				},
			})
		}
	}

	settings, err := config.Resolve(cfg)
	if err != nil {
		add(CheckResult{ID: "config.resolve", Status: StatusFail, Message: err.Error()})
		return report
	}
	urlStatus, urlMsg := StatusPass, fmt.Sprintf("%d url(s) configured", len(settings.URLs))
	if len(settings.URLs) == 0 && settings.MatrixPath == "" {
		urlStatus, urlMsg = StatusWarn, "no urls configured (set urls or a matrix file)"
	}
	add(CheckResult{ID: "config.resolve", Status: urlStatus, Message: urlMsg})

	add(lighthouseCheck(ctx, settings.LighthouseBin))
	add(chromeCheck())
	add(slackCheck(settings))
	add(historyCheck(ctx, settings))
	add(outputWritableCheck(settings.OutputDir))

	return report
}

func lighthouseCheck(ctx context.Context, bin string) CheckResult {
	resolved, err := trust.ResolveBinary(ctx, bin)
	if err != nil {
		return CheckResult{
			ID:       "lighthouse.binary",
			Status:   StatusFail,
			Message:  fmt.Sprintf("lighthouse not usable: %v (install with: npm install -g lighthouse)", err),
			Metadata: map[string]string{"bin": bin},
		}
	}
	return CheckResult{
		ID:      "lighthouse.binary",
		Status:  StatusPass,
		Message: "lighthouse " + resolved.Version,
		Metadata: map[string]string{
			"requested": resolved.Requested,
			"resolved":  resolved.Path,
			"version":   resolved.Version,
		},
	}
}

func chromeCheck() CheckResult {
	if p := strings.TrimSpace(os.Getenv("CHROME_PATH")); p != "" {
		if _, err := os.Stat(p); err != nil {
			return CheckResult{ID: "chrome.binary", Status: StatusFail, Message: fmt.Sprintf("CHROME_PATH is set but unusable: %v", err)}
		}
		return CheckResult{ID: "chrome.binary", Status: StatusPass, Message: "using CHROME_PATH", Metadata: map[string]string{"path": p}}
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return CheckResult{ID: "chrome.binary", Status: StatusPass, Message: name + " found", Metadata: map[string]string{"path": p}}
		}
	}
	return CheckResult{ID: "chrome.binary", Status: StatusWarn, Message: "no chrome or chromium found on PATH (set CHROME_PATH)"}
}

func slackCheck(s config.Settings) CheckResult {
	switch {
	case s.Slack.WebhookURL != "":
		return CheckResult{ID: "slack.destination", Status: StatusPass, Message: "incoming webhook configured"}
	case s.SlackConfigured():
		return CheckResult{ID: "slack.destination", Status: StatusPass, Message: "bot token configured", Metadata: map[string]string{"channel": s.Slack.Channel}}
	default:
		return CheckResult{ID: "slack.destination", Status: StatusWarn, Message: "no slack destination; reports are written to disk only"}
	}
}

func historyCheck(ctx context.Context, s config.Settings) CheckResult {
	dir := s.HistoryDir
	if dir == "" {
		dir = filepath.Join(s.OutputDir, "history")
	}
	backend := "file"
	if s.DatabaseURL != "" {
		backend = "postgres"
	}
	store, err := history.Open(ctx, s.DatabaseURL, dir)
	if err != nil {
		return CheckResult{ID: "history.store", Status: StatusWarn, Message: fmt.Sprintf("history unavailable: %v", err), Metadata: map[string]string{"backend": backend}}
	}
	_ = store.Close()
	return CheckResult{ID: "history.store", Status: StatusPass, Message: backend + " history reachable", Metadata: map[string]string{"backend": backend}}
}

func outputWritableCheck(dir string) CheckResult {
	abs, err := safefile.EnsureDir(dir)
	if err != nil {
		return CheckResult{ID: "output.permissions", Status: StatusFail, Message: fmt.Sprintf("prepare %s: %v", dir, err)}
	}
	f, err := os.CreateTemp(abs, ".doctor-write-*")
	if err != nil {
		return CheckResult{ID: "output.permissions", Status: StatusFail, Message: fmt.Sprintf("write test in %s failed: %v", abs, err)}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return CheckResult{ID: "output.permissions", Status: StatusPass, Message: "output directory is writable", Metadata: map[string]string{"path": abs}}
}

func fileState(path string) string {
	if _, err := os.Stat(path); err == nil {
		return "present"
	}
	return "missing"
}
