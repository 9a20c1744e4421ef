package constants

import "time"

const (
	LocationCacheTTL = 24 * time.Hour
	// DataForSEO location code for the United States
	DefaultCountryCode = 2840
	DefaultCountryISO  = "us"
	DefaultLanguage    = "en"
)

const (
	ExternalAPITimeout   = 30 * time.Second
	GenerativeAPITimeout = 45 * time.Second
	DatabaseTimeout      = 5 * time.Second
	// ranking polls can take several minutes per batch
	AnalysisTimeout = 15 * time.Minute
)

const (
	MaxVolumeKeywordsPerCall = 1000
	RankingTaskDepth         = 100
	RankingTaskPriority      = 2
	MaxBaseKeywords          = 40
	MaxSeedKeywords          = 50
	LocalCompetitorLimit     = 3
	NationalCompetitorLimit  = 5
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MaxUpstreamBodyLog = 512
)
