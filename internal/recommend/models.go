package recommend

import (
	"time"

	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/market"
	"github.com/i474232898/crop-advisor/internal/scoring"
	"github.com/i474232898/crop-advisor/internal/soil"
	"github.com/i474232898/crop-advisor/internal/weather"
)

// Request asks for recommendations for one field.
type Request struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	// LandArea is in hectares.
	LandArea float64 `json:"land_area" validate:"gt=0"`
	// TopN limits the result; zero means the service default.
	TopN int `json:"top_n" validate:"gte=0"`
	// Crops restricts the analysis to these catalog crops when set.
	Crops []string `json:"target_crops,omitempty" validate:"dive,required"`
}

// Report is the ranked answer to a Request.
type Report struct {
	RequestID          string           `json:"request_id"`
	Timestamp          time.Time        `json:"timestamp"`
	Location           weather.Location `json:"location"`
	LandArea           float64          `json:"land_area_hectares"`
	Region             market.Region    `json:"market_region"`
	TotalCropsAnalyzed int              `json:"total_crops_analyzed"`

	Summary         Summary          `json:"summary"`
	Recommendations []Recommendation `json:"top_recommendations"`

	Environment      EnvironmentSummary `json:"environmental_summary"`
	PlantingCalendar []CalendarMonth    `json:"planting_calendar"`
	NextSteps        []string           `json:"next_steps"`

	SkippedCrops      []SkippedCrop `json:"skipped_crops,omitempty"`
	DegradedProviders []string      `json:"degraded_providers,omitempty"`
}

// Summary highlights the best ranked crop. BestCrop is NoCrop when nothing
// could be recommended.
type Summary struct {
	BestCrop        string  `json:"best_crop"`
	ExpectedProfit  float64 `json:"expected_profit"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// NoCrop is the summary placeholder for an empty ranking.
const NoCrop = "None"

// Recommendation is one ranked crop with the figures behind its rank.
type Recommendation struct {
	Rank     int    `json:"rank"`
	CropName string `json:"crop_name"`
	scoring.Breakdown

	ProfitAnalysis    scoring.ProfitAnalysis `json:"profit_analysis"`
	PlantingMonths    []int                  `json:"planting_months"`
	NextPlantingMonth int                    `json:"next_planting_month"`
	GrowingSeasonDays int                    `json:"growing_season_days"`
	PlantableNow      bool                   `json:"plantable_now"`

	// SoilCompatibility and WeatherSuitability are nil when the matching
	// provider was unavailable.
	SoilCompatibility     *soil.Compatibility  `json:"soil_compatibility,omitempty"`
	WeatherSuitability    *weather.Suitability `json:"weather_suitability,omitempty"`
	RiskAssessment        RiskAssessment       `json:"risk_assessment"`
	PlantingAdvice        PlantingAdvice       `json:"planting_advice"`
	ProfitRecommendations []string             `json:"profit_recommendations"`
}

// SkippedCrop names a crop that could not be scored.
type SkippedCrop struct {
	CropName string `json:"crop_name"`
	Reason   string `json:"reason"`
}

// EnvironmentSummary echoes the inputs the ranking was computed from. Weather
// and Soil are nil when the provider was unavailable.
type EnvironmentSummary struct {
	Weather      *weather.Reading `json:"weather,omitempty"`
	Soil         *soil.Reading    `json:"soil,omitempty"`
	MarketStatus string           `json:"market_conditions"`
	Inputs       crop.Environment `json:"scoring_inputs"`
}

// CalendarMonth lists the recommended crops that can be planted in one month.
type CalendarMonth struct {
	Key       string         `json:"month"` // YYYY-MM
	MonthName string         `json:"month_name"`
	Crops     []CalendarCrop `json:"recommended_crops"`
}

type CalendarCrop struct {
	Name             string  `json:"name"`
	SuitabilityScore float64 `json:"suitability_score"`
	ExpectedProfit   float64 `json:"expected_profit"`
}
