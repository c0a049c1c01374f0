package weather

import (
	"fmt"
	"time"
)

// Source tells where a Reading came from.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
)

// Location is a point on the globe in decimal degrees.
type Location struct {
	Lat float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Lon float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Key returns a canonical string key for indexing this location in stores.
// Coordinates are rounded to two decimals (about 1 km) so nearby requests share
// cached readings.
func (l Location) Key() string {
	return fmt.Sprintf("%.2f:%.2f", l.Lat, l.Lon)
}

// Reading is the normalized, aggregated weather view of a location.
type Reading struct {
	Location         Location  `json:"location"`
	Timestamp        time.Time `json:"timestamp"` // always UTC
	TemperatureC     float64   `json:"current_temperature"`
	MeanTemperatureC float64   `json:"average_temperature"`
	HumidityPct      float64   `json:"humidity_percent"`
	WindSpeedMS      float64   `json:"wind_speed"`

	// Precip7dMm is the precipitation expected over seven days. Only valid when
	// HasPrecip is set.
	Precip7dMm float64 `json:"total_rainfall_7days"`
	HasPrecip  bool    `json:"has_rainfall"`

	Source Source `json:"data_source"`

	// Providers contributing to this reading.
	Providers []ProviderContribution `json:"providers,omitempty"`
}

// AnnualRainfallMm extrapolates the seven day precipitation to a yearly total.
func (r Reading) AnnualRainfallMm() float64 {
	return r.Precip7dMm * 52
}

// ProviderContribution describes data coming from a single provider used in aggregation.
type ProviderContribution struct {
	ProviderName string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"`
}
