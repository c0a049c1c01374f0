package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoProviders is returned when the service has nothing to fetch from.
	ErrNoProviders = errors.New("no weather providers configured")
	// ErrNoData is returned when every provider failed and nothing is cached.
	ErrNoData = errors.New("no weather data available")
)

// Service orchestrates fetching from multiple providers and caching the last
// good reading per location.
type Service struct {
	store     Store
	providers []Provider
}

// NewService creates a new Service.
func NewService(store Store, providers []Provider) *Service {
	return &Service{
		store:     store,
		providers: providers,
	}
}

// Current returns a fresh reading for loc. When every provider fails, the last
// cached reading is returned with Source set to SourceCache.
func (s *Service) Current(ctx context.Context, loc Location) (Reading, error) {
	reading, err := s.FetchAndStore(ctx, loc)
	if err == nil {
		return reading, nil
	}

	cached, cacheErr := s.store.Latest(context.WithoutCancel(ctx), loc)
	if cacheErr != nil {
		return Reading{}, fmt.Errorf("%w for %s: %w", ErrNoData, loc.Key(), err)
	}

	slog.WarnContext(ctx, "serving cached weather reading",
		"location", loc.Key(),
		"cached_at", cached.Timestamp,
		"error", err)
	cached.Source = SourceCache
	return cached, nil
}

// FetchAndStore fetches data from all providers concurrently for the given location,
// aggregates successful readings, and stores the result.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) (Reading, error) {
	if len(s.providers) == 0 {
		return Reading{}, ErrNoProviders
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []ProviderReading
		errs     []error
	)

	for _, p := range s.providers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			r, err := p.Fetch(ctx, loc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Log and continue; we want partial success when possible.
				slog.WarnContext(ctx, "weather provider fetch failed",
					"provider", p.Name(),
					"location", loc.Key(),
					"error", err)
				errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
				return
			}
			readings = append(readings, r)
		}()
	}

	wg.Wait()

	if len(readings) == 0 {
		// Do not overwrite the last good reading.
		return Reading{}, errors.Join(errs...)
	}

	// Completion order is random; aggregate in a stable order.
	sort.Slice(readings, func(i, j int) bool { return readings[i].ProviderName < readings[j].ProviderName })
	reading := AggregateReadings(loc, readings)
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	if err := s.store.Save(context.WithoutCancel(ctx), reading); err != nil {
		slog.WarnContext(ctx, "failed to cache weather reading", "location", loc.Key(), "error", err)
	}
	return reading, nil
}
