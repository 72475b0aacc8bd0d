package redact

import "regexp"

var (
	slackWebhook  = regexp.MustCompile(`https://hooks\.slack(?:-gov)?\.com/(?:services|workflows|triggers)/[A-Za-z0-9_/-]+`)
	slackToken    = regexp.MustCompile(`\bxox[abposre]-[A-Za-z0-9-]{8,}`)
	bearerPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]{8,}`)
	tokenAssign   = regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password|webhook[_-]?url)\b(\s*[:=]\s*)(["']?)([^\s"']{8,})(["']?)`)
	dsnPassword   = regexp.MustCompile(`(postgres(?:ql)?://[^:/\s]+:)([^@\s]+)(@)`)
	githubToken   = regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`)
)

// Text masks chat credentials and other tokens before they reach logs or artifacts.
func Text(in string) string {
	out := in
	out = slackWebhook.ReplaceAllString(out, "https://hooks.slack.com/[REDACTED]")
	out = slackToken.ReplaceAllString(out, "[REDACTED_SLACK_TOKEN]")
	out = bearerPattern.ReplaceAllString(out, "Bearer [REDACTED]")
	out = tokenAssign.ReplaceAllString(out, `${1}${2}${3}[REDACTED]${5}`)
	out = dsnPassword.ReplaceAllString(out, "${1}[REDACTED]${3}")
	out = githubToken.ReplaceAllString(out, "[REDACTED_GITHUB_TOKEN]")
	return out
}

func Strings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		out = append(out, Text(item))
	}
	return out
}
