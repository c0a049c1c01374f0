package scoring

import (
	"math"

	"github.com/i474232898/crop-advisor/internal/crop"
)

// Component weights of the suitability score. They sum to 1.
const (
	WeightTemperature = 0.30
	WeightRainfall    = 0.25
	WeightSoilPH      = 0.20
	WeightSoilType    = 0.15
	WeightNutrients   = 0.10
)

// NeutralScore is used for a component whose reading is unavailable.
const NeutralScore = 50.0

const (
	tempPenaltyPerDegree = 5.0
	phPenaltyPerUnit     = 20.0
	rainDeficitPenalty   = 50.0 // points lost per 100% shortfall below the minimum
	rainExcessPenalty    = 30.0 // points lost per 100% excess above the maximum
)

// Components are the individual compatibility scores, each in [0, 100].
type Components struct {
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	SoilPH      float64 `json:"soil_ph"`
	SoilType    float64 `json:"soil_type"`
	Nutrients   float64 `json:"nutrients"`
}

// Weighted returns the weighted sum of the components clamped to [0, 100].
func (c Components) Weighted() float64 {
	return clamp(c.Temperature*WeightTemperature +
		c.Rainfall*WeightRainfall +
		c.SoilPH*WeightSoilPH +
		c.SoilType*WeightSoilType +
		c.Nutrients*WeightNutrients)
}

// Suitability scores how well env matches the profile's requirements.
func Suitability(p crop.Profile, env crop.Environment) (float64, Components) {
	c := Components{
		Temperature: NeutralScore,
		Rainfall:    NeutralScore,
		SoilPH:      NeutralScore,
		SoilType:    NeutralScore,
		Nutrients:   NeutralScore,
	}

	if v, ok := available(env.TemperatureC); ok {
		c.Temperature = linearFalloff(p.TemperatureRange.Distance(v), tempPenaltyPerDegree)
	}
	if v, ok := available(env.RainfallMm); ok {
		c.Rainfall = rainfallScore(p.RainfallRange, v)
	}
	if v, ok := available(env.SoilPH); ok {
		c.SoilPH = linearFalloff(p.PHRange.Distance(v), phPenaltyPerUnit)
	}
	if env.SoilType != "" {
		c.SoilType = 0
		if p.AcceptsSoil(env.SoilType) {
			c.SoilType = 100
		}
	}
	if env.Nutrients != nil {
		c.Nutrients = nutrientScore(p.MinNutrients, *env.Nutrients)
	}

	return c.Weighted(), c
}

func linearFalloff(distance, penalty float64) float64 {
	return clamp(100 - distance*penalty)
}

// rainfallScore penalizes relative to the violated bound: a shortfall is more
// harmful than the same relative excess.
func rainfallScore(r crop.Range, mm float64) float64 {
	switch {
	case mm < r.Min:
		return clamp(100 - (r.Min-mm)/r.Min*rainDeficitPenalty)
	case mm > r.Max:
		return clamp(100 - (mm-r.Max)/r.Max*rainExcessPenalty)
	default:
		return 100
	}
}

func nutrientScore(need, have crop.Nutrients) float64 {
	adequacy := func(level, threshold float64) float64 {
		if threshold <= 0 || math.IsNaN(level) {
			return NeutralScore
		}
		return clamp(level / threshold * 100)
	}
	return (adequacy(have.Nitrogen, need.Nitrogen) +
		adequacy(have.Phosphorus, need.Phosphorus) +
		adequacy(have.Potassium, need.Potassium)) / 3
}

func available(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) {
		return 0, false
	}
	return *v, true
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
