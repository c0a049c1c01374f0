package weather

import (
	"context"
	"time"
)

// ProviderReading represents a single provider's normalized reading
// that can be aggregated into a Reading.
type ProviderReading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC     float64
	MeanTemperatureC float64 // mean over the provider's forecast window
	HumidityPct      float64
	WindSpeedMS      float64

	// PrecipMm is the precipitation total over PrecipDays days.
	// PrecipDays is 0 when the provider has no forecast.
	PrecipMm   float64
	PrecipDays int
}

// Provider abstracts a weather data source (e.g. Open-Meteo, WeatherAPI, OpenWeatherMap).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (ProviderReading, error)
}

// Store keeps the last good reading per location (in memory or in Redis).
type Store interface {
	Save(ctx context.Context, reading Reading) error
	Latest(ctx context.Context, loc Location) (Reading, error)
}
