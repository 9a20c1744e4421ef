package location

import (
	"strings"

	"seo-opportunity/internal/domain"
)

const matchThreshold = 0.6

// findBestMatch expects items sorted longest name first. An exact or
// substring hit wins outright; otherwise the best fuzzy score above the
// threshold is returned.
func findBestMatch(items []domain.LocationCode, query string) *domain.LocationCode {
	q := normalize(query)
	if q == "" || len(items) == 0 {
		return nil
	}

	for i := range items {
		name := strings.ToLower(items[i].Name)
		if name == q || strings.Contains(name, q) || strings.Contains(q, name) {
			return &items[i]
		}
	}

	var best *domain.LocationCode
	bestScore := 0.0
	for i := range items {
		score := similarity(q, strings.ToLower(items[i].Name))
		if score > matchThreshold && score > bestScore {
			bestScore = score
			best = &items[i]
		}
	}
	return best
}

func exactMatch(items []domain.LocationCode, query string) *domain.LocationCode {
	q := normalize(query)
	if q == "" {
		return nil
	}
	for i := range items {
		if normalize(items[i].Name) == q {
			return &items[i]
		}
	}
	return nil
}

func similarity(q, name string) float64 {
	switch {
	case strings.Contains(name, q):
		return float64(len(q)) / float64(len(name))
	case strings.Contains(q, name):
		return float64(len(name)) / float64(len(q))
	}

	qWords := strings.Fields(q)
	nameWords := strings.Fields(name)
	if len(qWords) == 0 || len(nameWords) == 0 {
		return 0
	}
	matched := 0
	for _, w := range qWords {
		for _, nw := range nameWords {
			if strings.Contains(nw, w) || strings.Contains(w, nw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(max(len(qWords), len(nameWords)))
}

var stateAbbreviations = map[string]string{
	"al": "Alabama", "ak": "Alaska", "az": "Arizona", "ar": "Arkansas",
	"ca": "California", "co": "Colorado", "ct": "Connecticut", "de": "Delaware",
	"dc": "District of Columbia", "fl": "Florida", "ga": "Georgia", "hi": "Hawaii",
	"id": "Idaho", "il": "Illinois", "in": "Indiana", "ia": "Iowa",
	"ks": "Kansas", "ky": "Kentucky", "la": "Louisiana", "me": "Maine",
	"md": "Maryland", "ma": "Massachusetts", "mi": "Michigan", "mn": "Minnesota",
	"ms": "Mississippi", "mo": "Missouri", "mt": "Montana", "ne": "Nebraska",
	"nv": "Nevada", "nh": "New Hampshire", "nj": "New Jersey", "nm": "New Mexico",
	"ny": "New York", "nc": "North Carolina", "nd": "North Dakota", "oh": "Ohio",
	"ok": "Oklahoma", "or": "Oregon", "pa": "Pennsylvania", "ri": "Rhode Island",
	"sc": "South Carolina", "sd": "South Dakota", "tn": "Tennessee", "tx": "Texas",
	"ut": "Utah", "vt": "Vermont", "va": "Virginia", "wa": "Washington",
	"wv": "West Virginia", "wi": "Wisconsin", "wy": "Wyoming",
}

func expandStateAbbreviation(s string) string {
	t := strings.TrimSpace(s)
	if len(t) == 2 {
		if full, ok := stateAbbreviations[strings.ToLower(t)]; ok {
			return full
		}
	}
	return t
}
