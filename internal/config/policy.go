package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Policy holds the tunable constants of keyword selection and scoring.
type Policy struct {
	CTR      CTRPolicy      `yaml:"ctr"`
	Insights InsightsPolicy `yaml:"insights"`
	Keywords KeywordsPolicy `yaml:"keywords"`
}

type CTRPolicy struct {
	Local    float64 `yaml:"local"`
	National float64 `yaml:"national"`
}

type InsightsPolicy struct {
	LocalPackFallbackRatio     float64  `yaml:"local_pack_fallback_ratio"`
	NearMeFallbackRatio        float64  `yaml:"near_me_fallback_ratio"`
	LocalStrengthTop10         int      `yaml:"local_strength_top10"`
	MapsFactorNearMe           int      `yaml:"maps_factor_near_me"`
	NationalDifficultyTop10    int      `yaml:"national_difficulty_top10"`
	ContentGapRatio            float64  `yaml:"content_gap_ratio"`
	BacklinkRatio              float64  `yaml:"backlink_ratio"`
	LocalRecommendedActions    []string `yaml:"local_recommended_actions"`
	NationalRecommendedActions []string `yaml:"national_recommended_actions"`
}

type KeywordsPolicy struct {
	RankingTopN         int `yaml:"ranking_top_n"`
	RankingBatchSize    int `yaml:"ranking_batch_size"`
	RankedPerCompetitor int `yaml:"ranked_per_competitor"`
}

func DefaultPolicy() Policy {
	p, err := decodePolicy(Policy{}, defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded policy.yaml is invalid: %v", err))
	}
	return p
}

// LoadPolicy returns the embedded defaults overlaid with the file at path,
// if one is given.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, err = decodePolicy(p, b)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return p, nil
}

func decodePolicy(base Policy, b []byte) (Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil {
		return Policy{}, err
	}
	return base, base.validate()
}

func (p Policy) validate() error {
	if p.CTR.Local <= 0 || p.CTR.Local > 1 || p.CTR.National <= 0 || p.CTR.National > 1 {
		return fmt.Errorf("ctr multipliers must be in (0,1]")
	}
	if p.Keywords.RankingTopN <= 0 || p.Keywords.RankingBatchSize <= 0 || p.Keywords.RankedPerCompetitor <= 0 {
		return fmt.Errorf("keyword limits must be positive")
	}
	return nil
}
