package generation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// HostMatcher decides whether a URL points at a known preview host.
type HostMatcher struct {
	patterns []glob.Glob
}

// NewHostMatcher compiles host glob patterns. '.' is the separator, so "*"
// matches one DNS label and "**" matches any number.
func NewHostMatcher(patterns []string) (*HostMatcher, error) {
	hm := &HostMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, fmt.Errorf("invalid preview host pattern '%s': %w", pattern, err)
		}
		hm.patterns = append(hm.patterns, g)
	}
	return hm, nil
}

// Match returns true if raw is an absolute http(s) URL whose host matches a pattern.
func (hm *HostMatcher) Match(raw string) bool {
	if !isAbsoluteHTTP(raw) {
		return false
	}
	host := strings.ToLower(hostOf(raw))
	if host == "" {
		return false
	}
	for _, pattern := range hm.patterns {
		if pattern.Match(host) {
			return true
		}
	}
	return false
}

// isAbsoluteHTTP reports whether raw starts with an http or https scheme.
func isAbsoluteHTTP(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// hostOf returns the host name of raw without its port, or "" if raw does not parse.
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
