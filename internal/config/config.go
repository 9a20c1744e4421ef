package config

import (
	"os"
	"strconv"
	"time"

	"seo-opportunity/internal/constants"
	"seo-opportunity/internal/domain"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DataForSEOLogin    string
	DataForSEOPassword string
	DataForSEOBaseURL  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	DBPath     string
	ServerPort string
	LogLevel   string

	LocationCacheTTL time.Duration

	ProviderRPS           float64
	ProviderMaxConcurrent int
	ProviderRetries       int

	RankingSettleDelay  time.Duration
	RankingPollInterval time.Duration
	RankingMaxPolls     int

	PolicyPath string
	Policy     Policy
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DataForSEOLogin:       getEnv("DATAFORSEO_LOGIN", ""),
		DataForSEOPassword:    getEnv("DATAFORSEO_PASSWORD", ""),
		DataForSEOBaseURL:     getEnv("DATAFORSEO_BASE_URL", "https://api.dataforseo.com/v3"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		DBPath:                getEnv("DB_PATH", "seo.db"),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LocationCacheTTL:      getDuration(logger, "LOCATION_CACHE_TTL", constants.LocationCacheTTL),
		ProviderRPS:           getFloat(logger, "PROVIDER_RPS", 10),
		ProviderMaxConcurrent: getInt(logger, "PROVIDER_MAX_CONCURRENT", 8),
		ProviderRetries:       getInt(logger, "PROVIDER_RETRIES", 2),
		RankingSettleDelay:    getDuration(logger, "RANKING_SETTLE_DELAY", 30*time.Second),
		RankingPollInterval:   getDuration(logger, "RANKING_POLL_INTERVAL", 5*time.Second),
		RankingMaxPolls:       getInt(logger, "RANKING_MAX_POLLS", 10),
		PolicyPath:            getEnv("POLICY_PATH", ""),
	}

	if cfg.DataForSEOLogin == "" {
		return nil, &domain.ConfigurationError{Setting: "DATAFORSEO_LOGIN"}
	}
	if cfg.DataForSEOPassword == "" {
		return nil, &domain.ConfigurationError{Setting: "DATAFORSEO_PASSWORD"}
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set, keyword and conversion-rate generation will use fallbacks")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping default")
	}

	policy, err := LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	cfg.Policy = policy

	logger.Info().
		Str("dataforseo_base_url", cfg.DataForSEOBaseURL).
		Str("openai_model", cfg.OpenAIModel).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("location_cache_ttl", cfg.LocationCacheTTL).
		Float64("provider_rps", cfg.ProviderRPS).
		Int("provider_max_concurrent", cfg.ProviderMaxConcurrent).
		Dur("ranking_settle_delay", cfg.RankingSettleDelay).
		Int("ranking_max_polls", cfg.RankingMaxPolls).
		Str("policy_path", cfg.PolicyPath).
		Msg("configuration loaded")

	return cfg, nil
}

// ProvidePolicy exposes the scoring policy on its own for components that
// need nothing else from the configuration.
func ProvidePolicy(cfg *Config) Policy {
	return cfg.Policy
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(logger zerolog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid integer, using default")
		return fallback
	}
	return n
}

func getFloat(logger zerolog.Logger, key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid number, using default")
		return fallback
	}
	return f
}

func getDuration(logger zerolog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

var Module = fx.Provide(Load, ProvidePolicy)
