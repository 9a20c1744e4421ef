package conversion

import (
	"sort"
	"strings"
	"unicode"

	"seo-opportunity/internal/domain"
)

type ratePair struct {
	local    float64
	national float64
}

func (p ratePair) forScope(scope domain.Scope) float64 {
	if scope == domain.ScopeLocal {
		return p.local
	}
	return p.national
}

var industryRates = map[string]ratePair{
	"roofing":          {4.2, 2.2},
	"plumbing":         {3.8, 1.8},
	"home improvement": {3.5, 1.5},
	"landscaping":      {4.0, 2.0},
	"electrician":      {3.7, 1.7},
	"hvac":             {4.1, 2.1},
	"dental":           {5.2, 3.2},
	"legal":            {4.8, 2.8},
	"automotive":       {3.3, 1.3},
	"auto repair":      {4.4, 2.0},
	"car dealership":   {2.4, 1.1},
	"pest control":     {4.5, 2.4},
	"cleaning":         {4.3, 2.2},
	"painting":         {3.9, 1.9},
	"flooring":         {3.4, 1.6},
	"remodeling":       {3.2, 1.4},
	"construction":     {2.9, 1.3},
	"real estate":      {2.8, 1.2},
	"insurance":        {3.1, 1.6},
	"accounting":       {3.6, 2.0},
	"financial":        {2.9, 1.5},
	"medical":          {4.4, 2.6},
	"chiropractic":     {5.0, 2.9},
	"physical therapy": {4.6, 2.5},
	"veterinary":       {5.1, 2.8},
	"fitness":          {3.8, 2.1},
	"salon":            {4.7, 2.3},
	"spa":              {4.2, 2.0},
	"restaurant":       {3.0, 1.1},
	"catering":         {3.6, 1.8},
	"photography":      {3.2, 1.7},
	"wedding":          {2.7, 1.4},
	"moving":           {4.0, 2.3},
	"storage":          {3.5, 1.9},
	"locksmith":        {5.5, 2.6},
	"towing":           {5.8, 2.7},
	"education":        {2.6, 1.4},
	"tutoring":         {3.7, 2.2},
	"childcare":        {4.1, 1.9},
	"senior care":      {3.9, 2.1},
	"marketing":        {2.5, 1.6},
	"software":         {2.2, 1.8},
	"ecommerce":        {2.4, 2.0},
	"retail":           {2.6, 1.9},
	"fashion":          {2.3, 1.7},
	"furniture":        {2.1, 1.4},
	"jewelry":          {1.9, 1.2},
	"pool":             {3.6, 1.8},
	"solar":            {2.8, 1.6},
	"security":         {3.4, 1.9},
	"hotel":            {3.0, 2.2},
	"travel":           {2.2, 1.5},
}

var synonyms = map[string]string{
	"lawyer":           "legal",
	"lawyers":          "legal",
	"attorney":         "legal",
	"attorneys":        "legal",
	"law firm":         "legal",
	"vet":              "veterinary",
	"vets":             "veterinary",
	"animal hospital":  "veterinary",
	"dentist":          "dental",
	"dentists":         "dental",
	"orthodontist":     "dental",
	"plumber":          "plumbing",
	"plumbers":         "plumbing",
	"roofer":           "roofing",
	"roofers":          "roofing",
	"roof":             "roofing",
	"electrical":       "electrician",
	"electricians":     "electrician",
	"heating":          "hvac",
	"cooling":          "hvac",
	"air conditioning": "hvac",
	"doctor":           "medical",
	"clinic":           "medical",
	"healthcare":       "medical",
	"chiropractor":     "chiropractic",
	"gym":              "fitness",
	"personal trainer": "fitness",
	"yoga":             "fitness",
	"barber":           "salon",
	"hair":             "salon",
	"nail":             "salon",
	"realtor":          "real estate",
	"realty":           "real estate",
	"cpa":              "accounting",
	"bookkeeping":      "accounting",
	"tax":              "accounting",
	"mover":            "moving",
	"movers":           "moving",
	"mechanic":         "auto repair",
	"car repair":       "auto repair",
	"auto body":        "auto repair",
	"car":              "automotive",
	"lawn":             "landscaping",
	"gardening":        "landscaping",
	"tree":             "landscaping",
	"maid":             "cleaning",
	"janitorial":       "cleaning",
	"exterminator":     "pest control",
	"contractor":       "construction",
	"builder":          "construction",
	"painter":          "painting",
	"daycare":          "childcare",
	"online store":     "ecommerce",
	"boutique":         "fashion",
	"clothing":         "fashion",
	"apparel":          "fashion",
	"saas":             "software",
	"agency":           "marketing",
	"seo":              "marketing",
}

var (
	defaultService = ratePair{3.0, 1.0}
	defaultProduct = ratePair{2.8, 1.8}

	productWords   = []string{"product", "goods", "shop", "store"}
	trailingWords  = []string{"services", "service", "company", "shop", "store"}
	industryKeys   = longestFirst(industryRates)
	synonymPhrases = longestFirst(synonyms)
)

// FallbackRate looks businessType up in the static industry table.
func FallbackRate(businessType string, scope domain.Scope) float64 {
	return lookup(businessType).forScope(scope)
}

func lookup(businessType string) ratePair {
	cleaned := clean(businessType)
	stripped := stripTrailing(cleaned)

	if p, ok := industryRates[stripped]; ok {
		return p
	}
	for _, key := range industryKeys {
		if containsPhrase(stripped, key) {
			return industryRates[key]
		}
	}
	for _, syn := range synonymPhrases {
		if containsPhrase(stripped, syn) {
			return industryRates[synonyms[syn]]
		}
	}

	for _, w := range productWords {
		if strings.Contains(cleaned, w) {
			return defaultProduct
		}
	}
	return defaultService
}

func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-', r == '/':
			return ' '
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func stripTrailing(s string) string {
	for _, w := range trailingWords {
		if trimmed, ok := strings.CutSuffix(s, " "+w); ok {
			return trimmed
		}
	}
	return s
}

func containsPhrase(s, phrase string) bool {
	return strings.Contains(" "+s+" ", " "+phrase+" ")
}

func longestFirst[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
