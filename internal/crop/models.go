package crop

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive [Min, Max] interval. In the catalog document it is written
// as a two element sequence, e.g. `[20, 35]`.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Distance returns how far v lies outside the range (0 when inside).
func (r Range) Distance(v float64) float64 {
	switch {
	case v < r.Min:
		return r.Min - v
	case v > r.Max:
		return v - r.Max
	default:
		return 0
	}
}

func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: range must have exactly two values, got %d", value.Line, len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Nutrients holds nitrogen, phosphorus and potassium levels in mg/kg.
type Nutrients struct {
	Nitrogen   float64 `json:"nitrogen" yaml:"nitrogen"`
	Phosphorus float64 `json:"phosphorus" yaml:"phosphorus"`
	Potassium  float64 `json:"potassium" yaml:"potassium"`
}

// DefaultMinNutrients is applied to catalog entries that do not declare thresholds.
var DefaultMinNutrients = Nutrients{Nitrogen: 20, Phosphorus: 10, Potassium: 100}

// Profile describes the growing requirements of a single crop.
// Profiles are reference data: treat the slices as read-only.
type Profile struct {
	Name              string    `json:"name" yaml:"name"`
	TemperatureRange  Range     `json:"optimal_temp_range" yaml:"optimal_temp_range"`
	RainfallRange     Range     `json:"rainfall_requirement" yaml:"rainfall_requirement"`
	PHRange           Range     `json:"soil_ph_range" yaml:"soil_ph_range"`
	GrowingSeasonDays int       `json:"growing_season_days" yaml:"growing_season_days"`
	SoilTypes         []string  `json:"soil_types" yaml:"soil_types"`
	PlantingMonths    []int     `json:"planting_months" yaml:"planting_months"`
	MinNutrients      Nutrients `json:"min_nutrients" yaml:"min_nutrients"`
}

// AcceptsSoil reports whether soilType is one of the compatible soil types.
func (p Profile) AcceptsSoil(soilType string) bool {
	return slices.Contains(p.SoilTypes, normalizeSoilType(soilType))
}

// PlantableIn reports whether month (1-12) is a planting month for the crop.
func (p Profile) PlantableIn(month int) bool {
	return slices.Contains(p.PlantingMonths, month)
}

// NextPlantingMonth returns the first planting month at or after month, wrapping
// around the year.
func (p Profile) NextPlantingMonth(month int) int {
	best, bestDist := 0, 13
	for _, m := range p.PlantingMonths {
		d := (m - month + 12) % 12
		if d < bestDist {
			best, bestDist = m, d
		}
	}
	return best
}

func normalizeSoilType(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Environment is the merged weather and soil view of a location used for scoring.
// A nil pointer (or empty SoilType) means the component is unavailable.
type Environment struct {
	TemperatureC *float64   `json:"temperature_c,omitempty"`
	RainfallMm   *float64   `json:"rainfall_mm,omitempty"`
	HumidityPct  *float64   `json:"humidity_pct,omitempty"`
	SoilPH       *float64   `json:"soil_ph,omitempty"`
	SoilType     string     `json:"soil_type,omitempty"`
	Nutrients    *Nutrients `json:"nutrients,omitempty"`
}

// Quote is the market view of one crop.
type Quote struct {
	Crop                string  `json:"crop"`
	PricePerTon         float64 `json:"current_price"`
	BasePricePerTon     float64 `json:"base_price"`
	PriceChangePct      float64 `json:"price_change_percent"`
	CostPerHectare      float64 `json:"production_cost_per_hectare"`
	YieldTonsPerHectare float64 `json:"yield_per_hectare"`
	Currency            string  `json:"currency"`
	Unit                string  `json:"unit"`
}

// Float returns a pointer to v, for building Environment values.
func Float(v float64) *float64 {
	return &v
}
