package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelvins/geocoder"
)

// Region is a pricing region with its own price level.
type Region string

const (
	RegionNorth   Region = "north"
	RegionSouth   Region = "south"
	RegionEast    Region = "east"
	RegionWest    Region = "west"
	RegionMidwest Region = "midwest"
	RegionUnknown Region = "unknown"
)

var regionalPriceFactors = map[Region]float64{
	RegionNorth:   1.1,
	RegionSouth:   0.95,
	RegionEast:    1.05,
	RegionWest:    1.0,
	RegionMidwest: 0.9,
}

// PriceFactor returns the price multiplier for r; unknown regions use 1.
func (r Region) PriceFactor() float64 {
	if f, ok := regionalPriceFactors[r]; ok {
		return f
	}
	return 1.0
}

var regionByState = map[string]Region{
	"maine": RegionNorth, "new hampshire": RegionNorth, "vermont": RegionNorth,
	"massachusetts": RegionNorth, "new york": RegionNorth, "michigan": RegionNorth,
	"minnesota": RegionNorth, "wisconsin": RegionNorth, "north dakota": RegionNorth,
	"montana": RegionNorth,

	"connecticut": RegionEast, "rhode island": RegionEast, "new jersey": RegionEast,
	"pennsylvania": RegionEast, "delaware": RegionEast, "maryland": RegionEast,
	"virginia": RegionEast, "west virginia": RegionEast, "north carolina": RegionEast,
	"district of columbia": RegionEast,

	"south carolina": RegionSouth, "georgia": RegionSouth, "florida": RegionSouth,
	"alabama": RegionSouth, "mississippi": RegionSouth, "louisiana": RegionSouth,
	"arkansas": RegionSouth, "tennessee": RegionSouth, "kentucky": RegionSouth,
	"texas": RegionSouth, "oklahoma": RegionSouth,

	"ohio": RegionMidwest, "indiana": RegionMidwest, "illinois": RegionMidwest,
	"iowa": RegionMidwest, "missouri": RegionMidwest, "kansas": RegionMidwest,
	"nebraska": RegionMidwest, "south dakota": RegionMidwest,

	"washington": RegionWest, "oregon": RegionWest, "california": RegionWest,
	"nevada": RegionWest, "idaho": RegionWest, "utah": RegionWest, "arizona": RegionWest,
	"new mexico": RegionWest, "colorado": RegionWest, "wyoming": RegionWest,
	"alaska": RegionWest, "hawaii": RegionWest,
}

// RegionFromState maps a US state name to its pricing region.
func RegionFromState(state string) Region {
	if r, ok := regionByState[strings.ToLower(strings.TrimSpace(state))]; ok {
		return r
	}
	return RegionUnknown
}

// RegionFromCoordinates approximates the pricing region from the position inside
// the contiguous United States. Points outside it are RegionUnknown.
func RegionFromCoordinates(lat, lon float64) Region {
	if lat < 24 || lat > 50 || lon < -125 || lon > -66 {
		return RegionUnknown
	}
	switch {
	case lon <= -104:
		return RegionWest
	case lat < 36.5:
		return RegionSouth
	case lon >= -80 && lat >= 41:
		return RegionNorth
	case lon >= -80:
		return RegionEast
	default:
		return RegionMidwest
	}
}

// GeocodeResolver resolves the pricing region by reverse geocoding the
// coordinate to a US state. Without an API key it uses RegionFromCoordinates.
type GeocodeResolver struct {
	enabled bool
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

// NewGeocodeResolver configures the geocoder package with apiKey. The geocoder
// keeps its key in a package variable, so only one key is supported per process.
func NewGeocodeResolver(apiKey string) *GeocodeResolver {
	if apiKey != "" {
		geocoder.ApiKey = apiKey
	}
	return &GeocodeResolver{
		enabled: apiKey != "",
		reverse: geocoder.GeocodingReverse,
	}
}

// Resolve returns the pricing region of the coordinate. Geocoding failures fall
// back to the coordinate heuristic and are returned alongside it.
func (r *GeocodeResolver) Resolve(ctx context.Context, lat, lon float64) (Region, error) {
	fallback := RegionFromCoordinates(lat, lon)
	if !r.enabled {
		return fallback, nil
	}

	type result struct {
		addrs []geocoder.Address
		err   error
	}
	done := make(chan result, 1)
	go func() {
		addrs, err := r.reverse(geocoder.Location{Latitude: lat, Longitude: lon})
		done <- result{addrs, err}
	}()

	select {
	case <-ctx.Done():
		return fallback, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return fallback, fmt.Errorf("reverse geocode: %w", res.err)
		}
		for _, a := range res.addrs {
			if region := RegionFromState(a.State); region != RegionUnknown {
				return region, nil
			}
		}
		slog.DebugContext(ctx, "geocoded address has no known state", "lat", lat, "lon", lon)
		return fallback, nil
	}
}
