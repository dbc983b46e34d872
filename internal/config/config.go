// Package config loads foodiepair configuration from config.yaml and the
// environment and initializes the global logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Recommend RecommendConfig `yaml:"recommend" mapstructure:"recommend"`
	Locale    LocaleConfig    `yaml:"locale" mapstructure:"locale"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DiscoveryConfig configures nearby-venue discovery through Overpass.
type DiscoveryConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	OverpassURL      string  `yaml:"overpass_url" mapstructure:"overpass_url"`
	RadiusMeters     int     `yaml:"radius_meters" mapstructure:"radius_meters"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// GeocodeConfig configures address lookup through Nominatim.
type GeocodeConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLDays int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// RecommendConfig carries every engine threshold and bonus.
type RecommendConfig struct {
	MaxResults        int `yaml:"max_results" mapstructure:"max_results"`
	ColdStartLimit    int `yaml:"cold_start_limit" mapstructure:"cold_start_limit"`
	SmallSetThreshold int `yaml:"small_set_threshold" mapstructure:"small_set_threshold"`

	CravingBonus       float64 `yaml:"craving_bonus" mapstructure:"craving_bonus"`
	AffinityThreshold  float64 `yaml:"affinity_threshold" mapstructure:"affinity_threshold"`
	AffinityBaseline   float64 `yaml:"affinity_baseline" mapstructure:"affinity_baseline"`
	AffinityMultiplier float64 `yaml:"affinity_multiplier" mapstructure:"affinity_multiplier"`
	NearKM             float64 `yaml:"near_km" mapstructure:"near_km"`
	NearBonus          float64 `yaml:"near_bonus" mapstructure:"near_bonus"`
	CloseKM            float64 `yaml:"close_km" mapstructure:"close_km"`
	CloseBonus         float64 `yaml:"close_bonus" mapstructure:"close_bonus"`
	PriceAffinityBonus float64 `yaml:"price_affinity_bonus" mapstructure:"price_affinity_bonus"`
	FavoriteBonus      float64 `yaml:"favorite_bonus" mapstructure:"favorite_bonus"`

	ExternalBase            float64 `yaml:"external_base" mapstructure:"external_base"`
	ExternalCravingBonus    float64 `yaml:"external_craving_bonus" mapstructure:"external_craving_bonus"`
	ExternalNearKM          float64 `yaml:"external_near_km" mapstructure:"external_near_km"`
	ExternalNearBonus       float64 `yaml:"external_near_bonus" mapstructure:"external_near_bonus"`
	ExternalCloseKM         float64 `yaml:"external_close_km" mapstructure:"external_close_km"`
	ExternalCloseBonus      float64 `yaml:"external_close_bonus" mapstructure:"external_close_bonus"`
	ExternalRatingThreshold float64 `yaml:"external_rating_threshold" mapstructure:"external_rating_threshold"`
	ExternalRatingBaseline  float64 `yaml:"external_rating_baseline" mapstructure:"external_rating_baseline"`
}

// LocaleConfig selects the language reasons are rendered in.
type LocaleConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FOODIEPAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "foodiepair.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("discovery.radius_meters", 2000)
	v.SetDefault("discovery.timeout_secs", 30)
	v.SetDefault("discovery.rate_limit", 1.0)
	v.SetDefault("discovery.max_attempts", 3)
	v.SetDefault("discovery.breaker_failures", 5)
	v.SetDefault("discovery.breaker_reset_secs", 60)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "foodiepair-cli")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.cache_ttl_days", 30)
	v.SetDefault("recommend.max_results", 5)
	v.SetDefault("recommend.cold_start_limit", 3)
	v.SetDefault("recommend.small_set_threshold", 5)
	v.SetDefault("recommend.craving_bonus", 10.0)
	v.SetDefault("recommend.affinity_threshold", 4.0)
	v.SetDefault("recommend.affinity_baseline", 3.0)
	v.SetDefault("recommend.affinity_multiplier", 2.0)
	v.SetDefault("recommend.near_km", 1.0)
	v.SetDefault("recommend.near_bonus", 3.0)
	v.SetDefault("recommend.close_km", 3.0)
	v.SetDefault("recommend.close_bonus", 1.5)
	v.SetDefault("recommend.price_affinity_bonus", 1.0)
	v.SetDefault("recommend.favorite_bonus", 2.0)
	v.SetDefault("recommend.external_base", 0.5)
	v.SetDefault("recommend.external_craving_bonus", 8.0)
	v.SetDefault("recommend.external_near_km", 1.0)
	v.SetDefault("recommend.external_near_bonus", 3.0)
	v.SetDefault("recommend.external_close_km", 5.0)
	v.SetDefault("recommend.external_close_bonus", 1.0)
	v.SetDefault("recommend.external_rating_threshold", 4.0)
	v.SetDefault("recommend.external_rating_baseline", 3.0)
	v.SetDefault("locale.default", "en")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. Modes: "store", "serve", "discover".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "store", "serve":
		errs = append(errs, c.validateStore()...)
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
		}
	case "discover":
		if c.Discovery.OverpassURL == "" {
			errs = append(errs, "discovery.overpass_url is required")
		}
		if c.Discovery.RadiusMeters <= 0 {
			errs = append(errs, "discovery.radius_meters must be positive")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for the sqlite driver"}
		}
	default:
		return []string{fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver)}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
