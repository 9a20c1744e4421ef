package keywords

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/resilient"

	"github.com/rs/zerolog"
)

// Completer is a single-turn text completion provider.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Seed is a generated keyword list together with the pieces it was built from.
type Seed struct {
	Keywords         []string `json:"keywords"`
	BaseKeywords     []string `json:"baseKeywords"`
	NearbyLocations  []string `json:"nearbyLocations"`
	LocationPatterns []string `json:"locationPatterns"`
}

type Generator struct {
	completer Completer
	caller    *resilient.Caller
	logger    zerolog.Logger
}

func NewGenerator(completer Completer, caller *resilient.Caller, logger zerolog.Logger) *Generator {
	return &Generator{completer: completer, caller: caller, logger: logger}
}

const systemPrompt = "You are an SEO keyword research assistant. Reply with plain text only."

// Generate builds at most constants.MaxSeedKeywords unique keywords. Any
// completion failure yields an empty seed rather than an error; only
// cancellation of ctx is returned.
func (g *Generator) Generate(ctx context.Context, businessType, location string, scope domain.Scope) (Seed, error) {
	businessType = strings.TrimSpace(businessType)
	if businessType == "" {
		return Seed{}, &domain.ValidationError{Field: "businessType", Reason: "required"}
	}

	seed, err := resilient.Call(ctx, g.caller, "keywords", func(ctx context.Context) (Seed, error) {
		return g.generate(ctx, businessType, location, scope)
	}, func() Seed {
		return Seed{Keywords: []string{}}
	})
	if err != nil {
		return Seed{}, err
	}

	g.logger.Info().
		Str("business_type", businessType).
		Str("scope", string(scope)).
		Int("keywords", len(seed.Keywords)).
		Int("nearby_locations", len(seed.NearbyLocations)).
		Msg("seed keywords generated")
	return seed, nil
}

func (g *Generator) generate(ctx context.Context, businessType, location string, scope domain.Scope) (Seed, error) {
	var seed Seed

	if scope == domain.ScopeLocal {
		reply, err := g.completer.Complete(ctx, systemPrompt, neighborsPrompt(location))
		if err != nil {
			return Seed{}, fmt.Errorf("nearby locations: %w", err)
		}
		seed.NearbyLocations = parseNeighbors(reply)
	}

	reply, err := g.completer.Complete(ctx, systemPrompt, baseKeywordsPrompt(businessType, location, scope))
	if err != nil {
		return Seed{}, fmt.Errorf("base keywords: %w", err)
	}
	seed.BaseKeywords = dedupe(parseKeywordList(reply), constants.MaxBaseKeywords)
	seed.LocationPatterns = LocationPatterns(businessType, seed.NearbyLocations)

	seed.Keywords = dedupe(append(append([]string{}, seed.BaseKeywords...), seed.LocationPatterns...), constants.MaxSeedKeywords)
	return seed, nil
}

func neighborsPrompt(location string) string {
	return fmt.Sprintf("List 15 to 20 cities, towns or neighborhoods near %s that a local business there would also serve. "+
		"Return only the names separated by commas, with no numbering or extra text.", location)
}

func baseKeywordsPrompt(businessType, location string, scope domain.Scope) string {
	if scope == domain.ScopeLocal {
		return fmt.Sprintf("Generate 30 to 40 search keywords that people in %s use when looking for a %s business. "+
			"Focus on local search intent and service-specific terms. "+
			"Return one keyword per line, lowercase, with no numbering or extra text.", location, businessType)
	}
	return fmt.Sprintf("Generate 30 to 40 search keywords that people across the United States use when researching or buying from a %s business. "+
		"Focus on national, non-geographic terms such as product, comparison and informational queries. "+
		"Return one keyword per line, lowercase, with no numbering or extra text.", businessType)
}

// LocationPatterns crosses the canonical service phrases for businessType
// with every location, in both word orders.
func LocationPatterns(businessType string, locations []string) []string {
	bt := strings.ToLower(strings.TrimSpace(businessType))
	forms := []string{
		bt,
		bt + " services",
		bt + " company",
		bt + " near me",
		"best " + bt,
		"affordable " + bt,
	}

	var out []string
	for _, loc := range locations {
		loc = strings.ToLower(loc)
		for _, f := range forms {
			out = append(out, f+" "+loc, loc+" "+f)
		}
	}
	return out
}

func parseNeighbors(reply string) []string {
	var out []string
	for _, part := range strings.Split(reply, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimRight(part, ".")
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

func parseKeywordList(reply string) []string {
	var out []string
	for _, line := range strings.Split(reply, "\n") {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			part = listMarker.ReplaceAllString(part, "")
			part = strings.Trim(part, `"'`+"`")
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func dedupe(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
