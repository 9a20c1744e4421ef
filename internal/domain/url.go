package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// RegistrableDomain returns the hostname of raw with any leading "www." removed.
// Scheme-less input such as "example.com/path" is accepted.
func RegistrableDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ValidationError{Field: "url", Reason: "empty"}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", &ValidationError{Field: "url", Reason: fmt.Sprintf("%q: %v", raw, err)}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", &ValidationError{Field: "url", Reason: fmt.Sprintf("%q has no host", raw)}
	}
	return strings.TrimPrefix(host, "www."), nil
}

// CompetitorsFromURLs builds competitor entries for bare URLs.
func CompetitorsFromURLs(urls []string) []Competitor {
	out := make([]Competitor, 0, len(urls))
	for _, u := range urls {
		name, err := RegistrableDomain(u)
		if err != nil {
			name = u
		}
		source := SourceDataForSEO
		if strings.Contains(u, "maps") {
			source = SourceGoogleMaps
		}
		out = append(out, Competitor{Name: name, URL: u, Source: source})
	}
	return out
}

// IsLocalKeyword reports whether a keyword carries local search intent.
func IsLocalKeyword(keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(k, "near me") ||
		strings.Contains(k, "local") ||
		strings.Contains(k, "in ") ||
		strings.Contains(k, "near ")
}
