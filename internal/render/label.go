package render

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const maxLabelRunes = 60

// Label shortens a URL for display: scheme dropped, a leading "www." removed when it
// sits directly on the registrable domain, root path omitted.
func Label(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return truncate(raw)
	}
	host := u.Hostname()
	if strings.HasPrefix(host, "www.") {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil && "www."+etld1 == host {
			host = etld1
		}
	}
	if p := u.Port(); p != "" {
		host += ":" + p
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	label := host + path
	if u.RawQuery != "" {
		label += "?" + u.RawQuery
	}
	return truncate(label)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabelRunes {
		return s
	}
	return string(r[:maxLabelRunes-1]) + "…"
}
