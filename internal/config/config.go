package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/crop-advisor/internal/weather"
)

type AppConfig struct {
	Env      string
	LogLevel string
	Port     string

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GeocoderAPIKey    string

	// HTTPTimeout bounds a single outbound provider request.
	HTTPTimeout time.Duration
	// ProviderTimeout bounds each provider call of a recommendation.
	ProviderTimeout time.Duration

	// RedisURL switches the weather cache from memory to Redis when set.
	RedisURL    string
	CacheMaxAge time.Duration

	// WarmInterval controls how often the cache warmer refreshes WarmLocations.
	WarmInterval  time.Duration
	WarmLocations []weather.Location

	// CatalogPath overrides the embedded crop catalog.
	CatalogPath        string
	DefaultTopN        int
	ScoringConcurrency int
	// MarketPriceNoise is the standard deviation of simulated price moves as a
	// fraction of the base price. Zero disables noise.
	MarketPriceNoise float64
}

// Load reads configuration from environment with sensible defaults. Callers
// load any .env file first.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Env:               getenvDefault("APP_ENV", "development"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Port:              getenvDefault("PORT", "8080"),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		GeocoderAPIKey:    os.Getenv("GEOCODER_API_KEY"),
		RedisURL:          os.Getenv("REDIS_URL"),
		CatalogPath:       os.Getenv("CATALOG_PATH"),

		DefaultTopN:        getenvInt("DEFAULT_TOP_N", 5),
		ScoringConcurrency: getenvInt("SCORING_CONCURRENCY", 8),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = getenvDuration("PROVIDER_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", "6h"); err != nil {
		return nil, err
	}
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	noise := getenvDefault("MARKET_PRICE_NOISE", "0")
	cfg.MarketPriceNoise, err = strconv.ParseFloat(noise, 64)
	if err != nil || cfg.MarketPriceNoise < 0 {
		return nil, fmt.Errorf("invalid MARKET_PRICE_NOISE %q", noise)
	}

	locs, err := parseLocations(os.Getenv("WARM_LOCATIONS"))
	if err != nil {
		return nil, fmt.Errorf("invalid WARM_LOCATIONS: %w", err)
	}
	cfg.WarmLocations = locs

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *AppConfig) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// IsDevelopment reports whether the service runs locally. An unset APP_ENV
// counts as development.
func (c *AppConfig) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "" || env == "development" || env == "dev"
}

// parseLocations parses "lat,lon;lat,lon".
func parseLocations(s string) ([]weather.Location, error) {
	var locs []weather.Location
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected lat,lon but got %q", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("latitude in %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("longitude in %q: %w", pair, err)
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("coordinate %q out of range", pair)
		}
		locs = append(locs, weather.Location{Lat: lat, Lon: lon})
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
