package envsafe

import (
	"strings"
	"testing"
)

func TestAuditEnv_DropsSecrets(t *testing.T) {
	in := []string{
		"PATH=/usr/bin",
		"HOME=/home/ci",
		"CHROME_PATH=/opt/chrome/chrome",
		"PAGEPULSE_SLACK_TOKEN=xoxb-123",
		"INPUT_SLACK_WEBHOOK_URL=https://hooks.slack.com/services/T/B/X",
		"DATABASE_URL=postgres://u:p@db/app",
		"GITHUB_TOKEN=ghs_abc",
	}
	got := strings.Join(AuditEnv(in), "\n")
	for _, banned := range []string{"SLACK", "DATABASE_URL", "GITHUB_TOKEN"} {
		if strings.Contains(got, banned) {
			t.Fatalf("env leaked %s:\n%s", banned, got)
		}
	}
	for _, want := range []string{"CHROME_PATH=/opt/chrome/chrome", "HOME=/home/ci", "PATH=/usr/bin"} {
		if !strings.Contains(got, want) {
			t.Fatalf("env missing %s:\n%s", want, got)
		}
	}
}

func TestAuditEnv_SortedAndDeterministic(t *testing.T) {
	in := []string{"TERM=xterm", "HOME=/h", "PATH=/bin", "LANG=C"}
	a := AuditEnv(in)
	b := AuditEnv([]string{"LANG=C", "PATH=/bin", "TERM=xterm", "HOME=/h"})
	if strings.Join(a, ",") != strings.Join(b, ",") {
		t.Fatalf("not deterministic: %v vs %v", a, b)
	}
	if a[0] != "HOME=/h" || a[len(a)-1] != "TERM=xterm" {
		t.Fatalf("not sorted: %v", a)
	}
}

func TestAuditEnv_PathSanitization(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative entries dropped", path: ".:bin:/usr/bin", want: "/usr/bin"},
		{name: "duplicates collapsed", path: "/usr/bin:/usr/bin/:/bin", want: "/usr/bin:/bin"},
		{name: "empty falls back", path: "", want: defaultPath},
		{name: "only unsafe falls back", path: "./node_modules/.bin", want: defaultPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AuditEnv([]string{"PATH=" + tt.path})
			if len(got) != 1 || got[0] != "PATH="+tt.want {
				t.Fatalf("AuditEnv(PATH=%q) = %v, want PATH=%s", tt.path, got, tt.want)
			}
		})
	}
}

func TestAuditEnv_MissingPathAndMalformedEntries(t *testing.T) {
	got := AuditEnv([]string{"=oops", "HOME", "TERM=dumb"})
	want := []string{"PATH=" + defaultPath, "TERM=dumb"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("AuditEnv = %v, want %v", got, want)
	}
}
