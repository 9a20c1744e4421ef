package keywords

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"seo-opportunity/internal/domain"
	"seo-opportunity/internal/resilient"

	"github.com/rs/zerolog"
)

type scriptedCompleter struct {
	replies []string
	err     error
	prompts []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func newTestGenerator(c Completer) *Generator {
	return NewGenerator(c, resilient.NewCaller(nil, zerolog.Nop()), zerolog.Nop())
}

func TestGenerateLocal(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		"Evanston, Oak Park, Skokie.",
		"1. Roof Repair\n2. roof replacement\n- \"emergency roofer\"\nroof repair",
	}}
	g := newTestGenerator(c)

	seed, err := g.Generate(context.Background(), "roofing", "Chicago, IL", domain.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.prompts) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(c.prompts))
	}

	wantNeighbors := []string{"Evanston", "Oak Park", "Skokie"}
	if strings.Join(seed.NearbyLocations, "|") != strings.Join(wantNeighbors, "|") {
		t.Errorf("NearbyLocations = %v", seed.NearbyLocations)
	}
	if strings.Join(seed.BaseKeywords[:3], "|") != "roof repair|roof replacement|emergency roofer" {
		t.Errorf("BaseKeywords = %v", seed.BaseKeywords)
	}
	// 6 forms x 3 locations x 2 orders
	if len(seed.LocationPatterns) != 36 {
		t.Errorf("LocationPatterns has %d entries, want 36", len(seed.LocationPatterns))
	}
	if len(seed.Keywords) > 50 {
		t.Errorf("Keywords has %d entries, want at most 50", len(seed.Keywords))
	}

	seen := map[string]bool{}
	for _, k := range seed.Keywords {
		if seen[k] {
			t.Errorf("duplicate keyword %q", k)
		}
		seen[k] = true
	}
	for _, want := range []string{"roof repair", "roofing evanston", "evanston roofing", "best roofing oak park"} {
		if !seen[want] {
			t.Errorf("missing keyword %q", want)
		}
	}
}

func TestGenerateNational(t *testing.T) {
	c := &scriptedCompleter{replies: []string{"crm software\nbest crm\ncrm pricing"}}
	g := newTestGenerator(c)

	seed, err := g.Generate(context.Background(), "crm software", "United States", domain.ScopeNational)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.prompts) != 1 {
		t.Fatalf("national scope must skip the nearby-locations call, got %d calls", len(c.prompts))
	}
	if len(seed.LocationPatterns) != 0 || len(seed.NearbyLocations) != 0 {
		t.Errorf("unexpected location data %+v", seed)
	}
	if len(seed.Keywords) != 3 {
		t.Errorf("Keywords = %v", seed.Keywords)
	}
}

func TestGenerateCapsBaseKeywords(t *testing.T) {
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, fmt.Sprintf("crm keyword %d", i))
	}
	g := newTestGenerator(&scriptedCompleter{replies: []string{strings.Join(lines, "\n")}})

	seed, err := g.Generate(context.Background(), "crm software", "United States", domain.ScopeNational)
	if err != nil {
		t.Fatal(err)
	}
	if len(seed.BaseKeywords) != 40 || len(seed.Keywords) != 40 {
		t.Errorf("got %d base and %d total keywords, want 40 each", len(seed.BaseKeywords), len(seed.Keywords))
	}
	if seed.Keywords[39] != "crm keyword 39" {
		t.Errorf("expected the first 40 replies to be kept, last is %q", seed.Keywords[39])
	}
}

func TestGenerateFailureReturnsEmpty(t *testing.T) {
	g := newTestGenerator(&scriptedCompleter{err: errors.New("rate limited")})

	seed, err := g.Generate(context.Background(), "plumbing", "Austin, TX", domain.ScopeLocal)
	if err != nil {
		t.Fatalf("generation failure must not surface, got %v", err)
	}
	if seed.Keywords == nil || len(seed.Keywords) != 0 {
		t.Errorf("expected empty keyword list, got %v", seed.Keywords)
	}
}

func TestGenerateTruncatesTo50(t *testing.T) {
	var neighbors []string
	for i := 0; i < 20; i++ {
		neighbors = append(neighbors, "town"+string(rune('a'+i)))
	}
	c := &scriptedCompleter{replies: []string{strings.Join(neighbors, ", "), "hvac repair"}}
	g := newTestGenerator(c)

	seed, err := g.Generate(context.Background(), "hvac", "Denver, CO", domain.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}
	if len(seed.Keywords) != 50 {
		t.Errorf("Keywords has %d entries, want 50", len(seed.Keywords))
	}
	if seed.Keywords[0] != "hvac repair" {
		t.Errorf("base keywords must come first, got %q", seed.Keywords[0])
	}
}

func TestParseKeywordList(t *testing.T) {
	got := parseKeywordList("1) Dentist Near Me\n* teeth whitening, `dental implants`\n\n")
	want := []string{"dentist near me", "teeth whitening", "dental implants"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("parseKeywordList = %v", got)
	}
}
