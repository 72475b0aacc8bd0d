package envsafe

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// allowedEnv is what an audit subprocess may inherit. Chat credentials and database
// urls are never forwarded.
var allowedEnv = map[string]struct{}{
	"PATH":            {},
	"HOME":            {},
	"USER":            {},
	"LOGNAME":         {},
	"SHELL":           {},
	"TERM":            {},
	"LANG":            {},
	"LC_ALL":          {},
	"LC_CTYPE":        {},
	"TZ":              {},
	"TMPDIR":          {},
	"TMP":             {},
	"TEMP":            {},
	"DISPLAY":         {},
	"XDG_CONFIG_HOME": {},
	"XDG_CACHE_HOME":  {},
	"XDG_DATA_HOME":   {},
	"XDG_RUNTIME_DIR": {},
	"SSL_CERT_FILE":   {},
	"SSL_CERT_DIR":    {},
	"HTTP_PROXY":      {},
	"HTTPS_PROXY":     {},
	"NO_PROXY":        {},
	"http_proxy":      {},
	"https_proxy":     {},
	"no_proxy":        {},

	// Browser and node runtime used by lighthouse.
	"CHROME_PATH":               {},
	"PUPPETEER_EXECUTABLE_PATH": {},
	"NODE_OPTIONS":              {},
	"NODE_EXTRA_CA_CERTS":       {},
	"NODE_PATH":                 {},
	"LIGHTHOUSE_CHROMIUM_PATH":  {},
}

// AuditEnv filters in (os.Environ form) down to a sorted allowlist and sanitizes PATH.
func AuditEnv(in []string) []string {
	kept := make(map[string]string, len(allowedEnv))
	for _, kv := range in {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if _, allowed := allowedEnv[key]; !allowed {
			continue
		}
		if key == "PATH" {
			val = sanitizePath(val)
		}
		kept[key] = val
	}
	if strings.TrimSpace(kept["PATH"]) == "" {
		kept["PATH"] = defaultPath
	}

	keys := make([]string, 0, len(kept))
	for k := range kept {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+kept[k])
	}
	return out
}

const defaultPath = "/usr/local/bin:/usr/bin:/bin"

// sanitizePath keeps absolute, de-duplicated entries; relative entries would resolve
// against the audited workspace.
func sanitizePath(in string) string {
	seen := map[string]struct{}{}
	var out []string
	for _, part := range filepath.SplitList(in) {
		part = strings.TrimSpace(part)
		if part == "" || !filepath.IsAbs(part) {
			continue
		}
		clean := filepath.Clean(part)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		out = append(out, clean)
	}
	if len(out) == 0 {
		return defaultPath
	}
	return strings.Join(out, string(os.PathListSeparator))
}
