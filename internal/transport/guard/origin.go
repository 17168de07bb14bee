package guard

import (
	"net/http"
	"net/url"
	"path"
	"strings"
)

// OriginPatterns normalizes configured origins into host patterns as used by
// websocket.AcceptOptions. allowAll is true when the list is empty or has "*".
func OriginPatterns(origins []string) (patterns []string, allowAll bool) {
	if len(origins) == 0 {
		return nil, true
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			return nil, true
		}
		if u, err := url.Parse(trimmed); err == nil && u.Host != "" {
			trimmed = u.Host
		}
		patterns = append(patterns, strings.ToLower(trimmed))
	}

	if len(patterns) == 0 {
		return nil, true
	}
	return patterns, false
}

// CheckOrigin returns a gorilla-style origin check for the configured origins.
// Requests without an Origin header (non-browser clients) are allowed.
func CheckOrigin(origins []string) func(r *http.Request) bool {
	patterns, allowAll := OriginPatterns(origins)
	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		header := r.Header.Get("Origin")
		if header == "" {
			return true
		}
		u, err := url.Parse(header)
		if err != nil || u.Host == "" {
			return false
		}
		host := strings.ToLower(u.Host)
		if strings.EqualFold(host, r.Host) {
			return true
		}
		for _, pattern := range patterns {
			if ok, _ := path.Match(pattern, host); ok {
				return true
			}
		}
		return false
	}
}
