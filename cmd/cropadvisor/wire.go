package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/i474232898/crop-advisor/internal/config"
	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/market"
	"github.com/i474232898/crop-advisor/internal/recommend"
	"github.com/i474232898/crop-advisor/internal/soil"
	"github.com/i474232898/crop-advisor/internal/store"
	"github.com/i474232898/crop-advisor/internal/weather"
	"github.com/i474232898/crop-advisor/internal/weather/providers"
)

// storeMaxHistory keeps roughly a day of readings at the default warm interval.
const storeMaxHistory = 48

type application struct {
	recommender *recommend.Service
	weather     *weather.Service
	soil        *soil.Estimator
	market      *market.SimulatedProvider

	closers []func() error
}

func (a *application) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

func build(ctx context.Context, cfg *config.AppConfig) (*application, error) {
	app := &application{}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	slog.Info("crop catalog loaded", "crops", catalog.Len())

	readingStore, err := newStore(ctx, cfg, app)
	if err != nil {
		return nil, err
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker). Open-Meteo needs no key.
	provs := []weather.Provider{providers.NewOpenMeteoProvider(httpClient)}
	if cfg.OpenWeatherAPIKey != "" {
		provs = append(provs, providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey))
	}
	if cfg.WeatherAPIKey != "" {
		provs = append(provs, providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey))
	}
	app.weather = weather.NewService(readingStore, provs)

	app.soil = soil.NewEstimator()

	var marketOpts []market.Option
	if cfg.MarketPriceNoise > 0 {
		marketOpts = append(marketOpts, market.WithPriceNoise(cfg.MarketPriceNoise, uint64(time.Now().UnixNano())))
	}
	app.market = market.NewSimulatedProvider(marketOpts...)

	app.recommender = recommend.NewService(catalog, app.weather, app.soil, app.market,
		recommend.WithRegionResolver(market.NewGeocodeResolver(cfg.GeocoderAPIKey)),
		recommend.WithProviderTimeout(cfg.ProviderTimeout),
		recommend.WithDefaultTopN(cfg.DefaultTopN),
		recommend.WithConcurrency(cfg.ScoringConcurrency),
	)
	return app, nil
}

func loadCatalog(path string) (*crop.Catalog, error) {
	if path == "" {
		return crop.Default()
	}
	catalog, err := crop.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return catalog, nil
}

// newStore returns the Redis cache when REDIS_URL is set and an in-memory one
// otherwise.
func newStore(ctx context.Context, cfg *config.AppConfig, app *application) (weather.Store, error) {
	if cfg.RedisURL == "" {
		return store.NewMemoryStore(storeMaxHistory, cfg.CacheMaxAge), nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	app.closers = append(app.closers, client.Close)
	slog.InfoContext(ctx, "redis connected", "addr", redisOpts.Addr)

	return store.NewRedisStore(client, cfg.CacheMaxAge), nil
}
