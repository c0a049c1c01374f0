package weather

import (
	"math"

	"github.com/i474232898/crop-advisor/internal/crop"
)

// neutralRainScore is used when the reading carries no precipitation window.
const neutralRainScore = 50

// Suitability explains how current weather fits one crop.
type Suitability struct {
	Score              float64  `json:"weather_score"`
	TemperatureOK      bool     `json:"temperature_suitable"`
	RainfallOK         bool     `json:"rainfall_suitable"`
	TemperatureScore   float64  `json:"temperature_score"`
	RainfallScore      float64  `json:"rainfall_score"`
	AverageTemperature float64  `json:"average_temperature"`
	AnnualRainfallMm   float64  `json:"annual_rainfall_estimate"`
	HasRainfall        bool     `json:"has_rainfall"`
	Recommendations    []string `json:"recommendations"`
}

// AssessSuitability scores the reading against the crop's temperature and
// rainfall ranges. Temperature weighs 0.6, rainfall 0.4.
func AssessSuitability(r Reading, p crop.Profile) Suitability {
	s := Suitability{
		AverageTemperature: r.MeanTemperatureC,
		HasRainfall:        r.HasPrecip,
		TemperatureScore:   100,
		RainfallScore:      100,
	}

	s.TemperatureOK = p.TemperatureRange.Contains(r.MeanTemperatureC)
	if !s.TemperatureOK {
		mid := (p.TemperatureRange.Min + p.TemperatureRange.Max) / 2
		s.TemperatureScore = math.Max(0, 100-math.Abs(r.MeanTemperatureC-mid)*10)
	}

	if r.HasPrecip {
		s.AnnualRainfallMm = r.AnnualRainfallMm()
		s.RainfallOK = p.RainfallRange.Contains(s.AnnualRainfallMm)
		if !s.RainfallOK {
			mid := (p.RainfallRange.Min + p.RainfallRange.Max) / 2
			s.RainfallScore = math.Max(0, 100-math.Abs(s.AnnualRainfallMm-mid)/100)
		}
	} else {
		s.RainfallScore = neutralRainScore
	}

	s.Score = 0.6*s.TemperatureScore + 0.4*s.RainfallScore

	switch {
	case s.Score >= 80:
		s.Recommendations = append(s.Recommendations, "Excellent weather conditions for this crop")
	case s.Score >= 60:
		s.Recommendations = append(s.Recommendations, "Good weather conditions with minor adjustments needed")
	default:
		s.Recommendations = append(s.Recommendations, "Weather conditions may be challenging for this crop")
	}
	if !s.TemperatureOK {
		s.Recommendations = append(s.Recommendations, "Consider temperature management techniques")
	}
	if r.HasPrecip && !s.RainfallOK {
		s.Recommendations = append(s.Recommendations, "Plan irrigation or drainage systems accordingly")
	}
	return s
}
