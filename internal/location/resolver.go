package location

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"seo-opportunity/internal/api"
	"seo-opportunity/internal/cache"
	"seo-opportunity/internal/clock"
	"seo-opportunity/internal/config"
	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"

	"github.com/rs/zerolog"
)

const (
	TypeCountry = "country"
	TypeState   = "state"
	TypeCity    = "city"

	spellingSuggestion = "Check spelling or try a different name"
)

// Source supplies the provider's location taxonomy.
type Source interface {
	Locations(ctx context.Context, countryISO string) ([]api.Location, error)
}

// Match is a resolved location. State is set for state and city matches,
// City only for city matches.
type Match struct {
	Location domain.LocationCode  `json:"location"`
	Type     string               `json:"type"`
	State    *domain.LocationCode `json:"state,omitempty"`
	City     *domain.LocationCode `json:"city,omitempty"`
}

type taxonomy struct {
	country   domain.LocationCode
	states    []domain.LocationCode
	cities    map[string][]domain.LocationCode
	allCities []domain.LocationCode
	stateOf   map[int]domain.LocationCode
}

type Resolver struct {
	source     Source
	country    string
	taxonomies *cache.TTL[string, *taxonomy]
	resolved   *cache.TTL[string, Match]
	logger     zerolog.Logger
}

func NewResolver(source Source, cfg *config.Config, clk clock.Clock, logger zerolog.Logger) *Resolver {
	ttl := cfg.LocationCacheTTL
	if ttl <= 0 {
		ttl = constants.LocationCacheTTL
	}
	return &Resolver{
		source:     source,
		country:    constants.DefaultCountryISO,
		taxonomies: cache.NewTTL[string, *taxonomy](ttl, clk),
		resolved:   cache.NewTTL[string, Match](ttl, clk),
		logger:     logger,
	}
}

// Resolve maps free text such as "Chicago, IL", "Texas" or "United States"
// to a provider location code.
func (r *Resolver) Resolve(ctx context.Context, text string) (domain.LocationCode, error) {
	m, err := r.ResolveMatch(ctx, text)
	if err != nil {
		return domain.LocationCode{}, err
	}
	return m.Location, nil
}

func (r *Resolver) ResolveMatch(ctx context.Context, text string) (Match, error) {
	key := normalize(text)
	return r.resolved.GetOrLoad(ctx, "text:"+key, func(ctx context.Context) (Match, error) {
		return r.resolveText(ctx, text)
	})
}

// ResolveStateCity resolves an explicit state and optional city. A city that
// cannot be matched inside the state falls back to the state's code.
func (r *Resolver) ResolveStateCity(ctx context.Context, state, city string) (Match, error) {
	if strings.TrimSpace(state) == "" {
		return Match{}, &domain.ValidationError{Field: "state", Reason: "required"}
	}
	key := "pair:" + normalize(state) + "|" + normalize(city)
	return r.resolved.GetOrLoad(ctx, key, func(ctx context.Context) (Match, error) {
		tax, err := r.load(ctx)
		if err != nil {
			return Match{}, err
		}
		return r.matchStateCity(tax, state, city)
	})
}

func (r *Resolver) resolveText(ctx context.Context, text string) (Match, error) {
	parts := splitLocation(text)

	tax, err := r.load(ctx)
	if err != nil {
		return Match{}, err
	}

	if len(parts) == 0 {
		return Match{Location: tax.country, Type: TypeCountry}, nil
	}

	switch len(parts) {
	case 1:
		state := expandStateAbbreviation(parts[0])
		// exact names first so "Oklahoma City" is not taken for Oklahoma
		if st := exactMatch(tax.states, state); st != nil {
			return r.stateMatch(text, *st), nil
		}
		if c := exactMatch(tax.allCities, parts[0]); c != nil {
			return r.cityMatch(tax, text, *c), nil
		}
		if st := findBestMatch(tax.states, state); st != nil {
			return r.stateMatch(text, *st), nil
		}
		if c := findBestMatch(tax.allCities, parts[0]); c != nil {
			return r.cityMatch(tax, text, *c), nil
		}
		return Match{}, notFound(text)
	default:
		return r.matchStateCity(tax, parts[1], parts[0])
	}
}

func (r *Resolver) stateMatch(query string, st domain.LocationCode) Match {
	r.logger.Debug().Str("query", query).Str("state", st.Name).Msg("location resolved to state")
	return Match{Location: st, Type: TypeState, State: &st}
}

func (r *Resolver) cityMatch(tax *taxonomy, query string, city domain.LocationCode) Match {
	r.logger.Debug().Str("query", query).Str("city", city.Name).Msg("location resolved to city")
	m := Match{Location: city, Type: TypeCity, City: &city}
	if st, ok := tax.stateOf[city.Code]; ok {
		m.State = &st
	}
	return m
}

func (r *Resolver) matchStateCity(tax *taxonomy, state, city string) (Match, error) {
	st := findBestMatch(tax.states, expandStateAbbreviation(state))
	if st == nil {
		return Match{}, notFound(state)
	}
	s := *st

	if strings.TrimSpace(city) != "" {
		if c := findBestMatch(tax.cities[s.Name], city); c != nil {
			ci := *c
			return Match{Location: ci, Type: TypeCity, State: &s, City: &ci}, nil
		}
		r.logger.Warn().Str("city", city).Str("state", s.Name).Msg("no city match, falling back to state")
	}
	return Match{Location: s, Type: TypeState, State: &s}, nil
}

func (r *Resolver) load(ctx context.Context) (*taxonomy, error) {
	return r.taxonomies.GetOrLoad(ctx, r.country, func(ctx context.Context) (*taxonomy, error) {
		locs, err := r.source.Locations(ctx, r.country)
		if err != nil {
			return nil, err
		}
		tax := buildTaxonomy(locs)
		r.logger.Info().
			Int("states", len(tax.states)).
			Int("cities", len(tax.allCities)).
			Msg("location taxonomy cached")
		return tax, nil
	})
}

func buildTaxonomy(locs []api.Location) *taxonomy {
	tax := &taxonomy{
		country: domain.LocationCode{Name: "United States", Code: constants.DefaultCountryCode},
		cities:  make(map[string][]domain.LocationCode),
		stateOf: make(map[int]domain.LocationCode),
	}

	stateByCode := make(map[int]domain.LocationCode)
	for _, loc := range locs {
		switch loc.Type {
		case "Country":
			tax.country = domain.LocationCode{Name: displayName(loc.Name), Code: loc.Code}
		case "State":
			st := domain.LocationCode{Name: displayName(loc.Name), Code: loc.Code}
			tax.states = append(tax.states, st)
			stateByCode[loc.Code] = st
			tax.cities[st.Name] = nil
		}
	}
	// longer names first so "West Virginia" wins over "Virginia"
	sortLongestFirst(tax.states)

	for _, loc := range locs {
		if loc.Type != "City" {
			continue
		}
		city := domain.LocationCode{Name: displayName(loc.Name), Code: loc.Code}
		tax.allCities = append(tax.allCities, city)

		st, ok := stateByCode[loc.ParentCode]
		if !ok {
			st, ok = stateFromName(tax.states, loc.Name)
		}
		if ok {
			tax.cities[st.Name] = append(tax.cities[st.Name], city)
			tax.stateOf[city.Code] = st
		}
	}

	sortLongestFirst(tax.allCities)
	for name := range tax.cities {
		sortLongestFirst(tax.cities[name])
	}
	return tax
}

// stateFromName finds the state named in a "City,State,Country" location name.
func stateFromName(states []domain.LocationCode, fullName string) (domain.LocationCode, bool) {
	segments := strings.Split(fullName, ",")
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		for _, st := range states {
			if strings.EqualFold(seg, st.Name) {
				return st, true
			}
		}
	}
	return domain.LocationCode{}, false
}

func displayName(full string) string {
	name, _, _ := strings.Cut(full, ",")
	return strings.TrimSpace(name)
}

func sortLongestFirst(items []domain.LocationCode) {
	sort.SliceStable(items, func(i, j int) bool {
		if len(items[i].Name) != len(items[j].Name) {
			return len(items[i].Name) > len(items[j].Name)
		}
		return items[i].Name < items[j].Name
	})
}

func splitLocation(text string) []string {
	var parts []string
	for _, p := range strings.Split(text, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	// "Chicago, IL, USA" and "United States" carry the country last
	if len(parts) > 0 && isCountryAlias(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func isCountryAlias(s string) bool {
	switch normalize(s) {
	case "us", "usa", "u.s.", "u.s.a.", "united states", "united states of america", "america":
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func notFound(query string) error {
	return &domain.NotFoundError{
		What:       "location",
		Query:      query,
		Suggestion: spellingSuggestion,
	}
}

// Describe renders a match for logs and API responses.
func (m Match) Describe() string {
	switch m.Type {
	case TypeCity:
		if m.State != nil {
			return fmt.Sprintf("%s, %s", m.City.Name, m.State.Name)
		}
		return m.City.Name
	default:
		return m.Location.Name
	}
}
