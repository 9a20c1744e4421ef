package service

import (
	"context"
	"fmt"
	"strings"

	"seo-opportunity/internal/api"
	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"

	"github.com/rs/zerolog"
)

type CompetitorFinder interface {
	MapsSearch(ctx context.Context, keyword string, locationCode int) ([]api.MapsListing, error)
	CompetitorDomains(ctx context.Context, target string, locationCode, limit int) ([]api.DomainCompetitor, error)
}

type DetectRequest struct {
	BusinessURL  string       `json:"businessUrl"`
	BusinessType string       `json:"businessType"`
	Location     string       `json:"location"`
	Scope        domain.Scope `json:"scope"`
}

type CompetitorService struct {
	locations LocationResolver
	finder    CompetitorFinder
	logger    zerolog.Logger
}

func NewCompetitorService(locations LocationResolver, finder CompetitorFinder, logger zerolog.Logger) *CompetitorService {
	return &CompetitorService{locations: locations, finder: finder, logger: logger}
}

// Detect finds competitors from the Google Maps pack for local analyses and
// from organic keyword overlap with the client domain for national ones.
func (s *CompetitorService) Detect(ctx context.Context, req DetectRequest) ([]domain.Competitor, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	if strings.TrimSpace(req.BusinessType) == "" {
		return nil, &domain.ValidationError{Field: "businessType", Reason: "required"}
	}

	var clientDomain string
	if req.BusinessURL != "" {
		d, err := domain.RegistrableDomain(req.BusinessURL)
		if err != nil {
			return nil, err
		}
		clientDomain = d
	}

	loc, err := s.locations.Resolve(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	var competitors []domain.Competitor
	switch req.Scope {
	case domain.ScopeLocal:
		competitors, err = s.fromMaps(ctx, req.BusinessType, req.Location, clientDomain, loc.Code)
	case domain.ScopeNational:
		if clientDomain == "" {
			return nil, &domain.ValidationError{Field: "businessUrl", Reason: "required for national competitor detection"}
		}
		competitors, err = s.fromOrganic(ctx, clientDomain, loc.Code)
	default:
		return nil, &domain.ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", req.Scope)}
	}
	if err != nil {
		s.logger.Error().Err(err).Str("scope", string(req.Scope)).Msg("competitor detection failed")
		return nil, err
	}

	if len(competitors) == 0 {
		return nil, &domain.NotFoundError{
			What:       "competitors",
			Query:      req.BusinessType,
			Suggestion: "Enter competitor websites manually",
		}
	}

	s.logger.Info().
		Str("scope", string(req.Scope)).
		Str("business_type", req.BusinessType).
		Int("count", len(competitors)).
		Msg("competitors detected")
	return competitors, nil
}

func (s *CompetitorService) fromMaps(ctx context.Context, businessType, location, clientDomain string, locationCode int) ([]domain.Competitor, error) {
	keyword := businessType
	if location != "" {
		keyword = fmt.Sprintf("%s in %s", businessType, location)
	}
	listings, err := s.finder.MapsSearch(ctx, keyword, locationCode)
	if err != nil {
		return nil, err
	}

	var out []domain.Competitor
	for _, l := range listings {
		if l.URL == "" {
			continue
		}
		d, err := domain.RegistrableDomain(l.URL)
		if err != nil || d == clientDomain {
			continue
		}
		name := l.Title
		if name == "" {
			name = d
		}
		out = append(out, domain.Competitor{Name: name, URL: l.URL, Source: domain.SourceGoogleMaps})
		if len(out) == constants.LocalCompetitorLimit {
			break
		}
	}
	return out, nil
}

func (s *CompetitorService) fromOrganic(ctx context.Context, clientDomain string, locationCode int) ([]domain.Competitor, error) {
	domains, err := s.finder.CompetitorDomains(ctx, clientDomain, locationCode, constants.NationalCompetitorLimit)
	if err != nil {
		return nil, err
	}

	var out []domain.Competitor
	for _, c := range domains {
		out = append(out, domain.Competitor{Name: c.Domain, URL: "https://" + c.Domain, Source: domain.SourceDataForSEO})
		if len(out) == constants.NationalCompetitorLimit {
			break
		}
	}
	return out, nil
}
