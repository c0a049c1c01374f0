// Package soil estimates soil conditions for a coordinate from broad regional
// patterns. There is no upstream soil service; the estimate is deterministic.
package soil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/i474232898/crop-advisor/internal/crop"
)

// ErrInvalidCoordinates is returned for latitudes or longitudes outside the globe.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Reading is the soil view of one location.
type Reading struct {
	SoilType        string         `json:"soil_type"`
	PH              float64        `json:"soil_ph"`
	OrganicMatter   float64        `json:"organic_matter"`
	Nutrients       crop.Nutrients `json:"nutrients"`
	Drainage        string         `json:"drainage"`
	Quality         QualityScores  `json:"soil_quality_scores"`
	Recommendations []string       `json:"soil_recommendations"`
	DataSource      string         `json:"data_source"`
	Timestamp       time.Time      `json:"timestamp"`
}

// QualityScores rate the soil independent of any crop, 0-100.
type QualityScores struct {
	PH            float64 `json:"ph_score"`
	Nutrients     float64 `json:"nutrient_score"`
	OrganicMatter float64 `json:"organic_matter_score"`
	Overall       float64 `json:"overall_score"`
}

// Estimator derives soil readings from latitude and longitude bands.
type Estimator struct {
	now func() time.Time
}

func NewEstimator() *Estimator {
	return &Estimator{now: time.Now}
}

// Fetch returns the estimated soil reading for the coordinate.
func (e *Estimator) Fetch(ctx context.Context, lat, lon float64) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Reading{}, fmt.Errorf("%w: %f,%f", ErrInvalidCoordinates, lat, lon)
	}

	r := Reading{
		SoilType:      estimateSoilType(lat, lon),
		PH:            estimatePH(lat),
		OrganicMatter: 2.5,
		Nutrients:     crop.Nutrients{Nitrogen: 25, Phosphorus: 15, Potassium: 120},
		DataSource:    "Estimated",
		Timestamp:     e.now().UTC(),
	}
	r.Drainage = drainageFor(r.SoilType)
	r.Quality = assessQuality(r)
	r.Recommendations = recommend(r)
	return r, nil
}

// estimateSoilType follows coarse North American soil belts; anything outside
// them defaults to loam.
func estimateSoilType(lat, lon float64) string {
	switch {
	case lat >= 25 && lat < 35:
		if lon >= -100 && lon <= -80 {
			return "clay loam"
		}
		return "sandy loam"
	case lat >= 35 && lat < 45:
		return "loam"
	case lat >= 45 && lat <= 50:
		return "silt loam"
	default:
		return "loam"
	}
}

func estimatePH(lat float64) float64 {
	switch {
	case lat >= 25 && lat < 35:
		return 5.8
	case lat >= 35 && lat < 45:
		return 6.5
	default:
		return 6.2
	}
}

var drainageBySoil = map[string]string{
	"sandy loam": "good",
	"loam":       "moderate",
	"clay loam":  "slow",
	"clay":       "poor",
	"silt loam":  "moderate",
}

func drainageFor(soilType string) string {
	if d, ok := drainageBySoil[soilType]; ok {
		return d
	}
	return "moderate"
}

func assessQuality(r Reading) QualityScores {
	q := QualityScores{
		PH:            phScore(r.PH),
		Nutrients:     nutrientScore(r.Nutrients),
		OrganicMatter: organicScore(r.OrganicMatter),
	}
	q.Overall = (q.PH + q.Nutrients + q.OrganicMatter) / 3
	return q
}

func phScore(ph float64) float64 {
	switch {
	case ph >= 6.0 && ph <= 7.0:
		return 100
	case ph >= 5.5 && ph <= 7.5:
		return 80
	case ph >= 5.0 && ph <= 8.0:
		return 60
	default:
		return 40
	}
}

func nutrientScore(n crop.Nutrients) float64 {
	band := func(v, lo, hi, mid, slope float64) float64 {
		if v >= lo && v <= hi {
			return 100
		}
		return math.Max(0, 100-math.Abs(v-mid)*slope)
	}
	return (band(n.Nitrogen, 20, 40, 30, 3) +
		band(n.Phosphorus, 10, 25, 17.5, 4) +
		band(n.Potassium, 100, 150, 125, 1)) / 3
}

func organicScore(pct float64) float64 {
	switch {
	case pct >= 3.0:
		return 100
	case pct >= 2.0:
		return 80
	case pct >= 1.0:
		return 60
	default:
		return 40
	}
}

func recommend(r Reading) []string {
	var out []string

	switch {
	case r.PH < 6.0:
		out = append(out, "Apply lime to increase soil pH")
	case r.PH > 7.5:
		out = append(out, "Apply sulfur or organic matter to lower soil pH")
	}
	if r.OrganicMatter < 2.0 {
		out = append(out, "Add compost or organic matter to improve soil structure")
	}
	switch {
	case r.Nutrients.Nitrogen < 20:
		out = append(out, "Apply nitrogen fertilizer or nitrogen-fixing cover crops")
	case r.Nutrients.Nitrogen > 40:
		out = append(out, "Reduce nitrogen inputs to prevent leaching")
	}
	if r.Nutrients.Phosphorus < 10 {
		out = append(out, "Apply phosphorus fertilizer")
	}
	if r.Nutrients.Potassium < 100 {
		out = append(out, "Apply potassium fertilizer or potash")
	}

	if len(out) == 0 {
		out = append(out, "Soil conditions are good for most crops")
	}
	return out
}
