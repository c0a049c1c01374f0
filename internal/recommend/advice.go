package recommend

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/market"
	"github.com/i474232898/crop-advisor/internal/scoring"
	"github.com/i474232898/crop-advisor/internal/soil"
	"github.com/i474232898/crop-advisor/internal/weather"
)

// RiskLevels rates each risk category as low, medium or high.
type RiskLevels struct {
	Weather string `json:"weather_risk"`
	Market  string `json:"market_risk"`
	Pest    string `json:"pest_risk"`
	Overall string `json:"overall_risk"`
}

// RiskAssessment summarizes what could go wrong with a crop at this location.
type RiskAssessment struct {
	Levels    RiskLevels       `json:"risk_levels"`
	Factors   []string         `json:"risk_factors"`
	Score     float64          `json:"risk_score"` // 0-100, higher is riskier
	PriceRisk market.PriceRisk `json:"price_risk"`
}

// PlantingAdvice is practical guidance for growing one crop on the field.
type PlantingAdvice struct {
	BestPlantingTime string `json:"best_planting_time"`
	LandPreparation  string `json:"land_preparation"`
	IrrigationAdvice string `json:"irrigation_advice"`
	Fertilizer       string `json:"fertilizer_recommendations"`
}

// seasonalCrops see sharp price swings between harvest and off-season.
var seasonalCrops = []string{"tomatoes", "potatoes", "carrots"}

// temperatures further than this outside the optimal range are high risk.
const severeTempDistanceC = 5

var riskWeight = map[string]float64{market.RiskLow: 1, market.RiskMedium: 2, market.RiskHigh: 3}

func assessRisk(p crop.Profile, w *weather.Reading) RiskAssessment {
	ra := RiskAssessment{
		Levels:    RiskLevels{Weather: market.RiskLow, Market: market.RiskMedium, Pest: market.RiskLow},
		Factors:   []string{},
		PriceRisk: market.AssessPriceRisk(p.Name),
	}

	switch {
	case w == nil:
		ra.Levels.Weather = market.RiskMedium
		ra.Factors = append(ra.Factors, "Weather data unavailable")
	default:
		if w.Source == weather.SourceCache {
			ra.Levels.Weather = market.RiskMedium
			ra.Factors = append(ra.Factors, "Weather data may be outdated")
		}
		if d := p.TemperatureRange.Distance(w.MeanTemperatureC); d > severeTempDistanceC {
			ra.Levels.Weather = market.RiskHigh
			ra.Factors = append(ra.Factors, "Temperature far outside optimal range")
		} else if d > 0 {
			ra.Levels.Weather = raise(ra.Levels.Weather, market.RiskMedium)
			ra.Factors = append(ra.Factors, "Temperature outside optimal range")
		}
		if w.HasPrecip && !p.RainfallRange.Contains(w.AnnualRainfallMm()) {
			ra.Levels.Weather = raise(ra.Levels.Weather, market.RiskMedium)
			ra.Factors = append(ra.Factors, "Rainfall outside crop requirement")
		}
	}

	switch {
	case slices.Contains(seasonalCrops, p.Name):
		ra.Levels.Market = market.RiskHigh
		ra.Factors = append(ra.Factors, "Seasonal price volatility")
	case ra.PriceRisk.RiskLevel == market.RiskHigh:
		ra.Levels.Market = market.RiskHigh
		ra.Factors = append(ra.Factors, "Volatile market prices")
	default:
		ra.Levels.Market = ra.PriceRisk.RiskLevel
	}

	avg := (riskWeight[ra.Levels.Weather] + riskWeight[ra.Levels.Market] + riskWeight[ra.Levels.Pest]) / 3
	switch {
	case avg >= 2.5:
		ra.Levels.Overall = market.RiskHigh
	case avg >= 1.5:
		ra.Levels.Overall = market.RiskMedium
	default:
		ra.Levels.Overall = market.RiskLow
	}
	ra.Score = math.Round(avg*33.33*100) / 100
	return ra
}

// raise returns the higher of two risk levels.
func raise(level, atLeast string) string {
	if riskWeight[atLeast] > riskWeight[level] {
		return atLeast
	}
	return level
}

func profitRecommendations(pa scoring.ProfitAnalysis, pr market.PriceRisk) []string {
	var recs []string
	switch {
	case pa.NetProfit <= 0:
		recs = append(recs, "Consider alternative crops for better profitability")
	case pa.ROIPercent > 20:
		recs = append(recs, "Excellent profit potential - consider this crop")
	case pa.ROIPercent > 10:
		recs = append(recs, "Good profit potential with acceptable returns")
	default:
		recs = append(recs, "Modest profits expected")
	}
	if pr.RiskLevel == market.RiskHigh {
		recs = append(recs, "Consider price hedging or forward contracts")
	}
	return recs
}

func plantingAdvice(p crop.Profile, now time.Time, w *weather.Reading, sc *soil.Compatibility) PlantingAdvice {
	a := PlantingAdvice{
		LandPreparation:  fmt.Sprintf("Prepare land according to %s requirements", p.Name),
		IrrigationAdvice: "Ensure adequate water supply",
		Fertilizer:       "Use appropriate fertilizers for soil type",
	}

	month := int(now.Month())
	if p.PlantableIn(month) {
		a.BestPlantingTime = fmt.Sprintf("Now: %s is a planting month", now.Month())
	} else {
		a.BestPlantingTime = time.Month(p.NextPlantingMonth(month)).String()
	}

	if sc != nil {
		var fixes []string
		for _, s := range sc.Suggestions {
			if !strings.Contains(s, "fertilizer") {
				fixes = append(fixes, s)
			}
		}
		if len(fixes) > 0 {
			a.LandPreparation = strings.Join(fixes, "; ")
		} else {
			a.LandPreparation = fmt.Sprintf("Current %s soil suits %s, use standard tillage", sc.SoilType, p.Name)
		}

		if len(sc.NutrientDeficit) > 0 {
			a.Fertilizer = fmt.Sprintf("Apply %s fertilizer before planting", strings.Join(sc.NutrientDeficit, ", "))
		} else {
			a.Fertilizer = "Nutrients are sufficient, use balanced maintenance fertilization"
		}
	}

	if w != nil && w.HasPrecip {
		annual := w.AnnualRainfallMm()
		switch {
		case annual < p.RainfallRange.Min:
			a.IrrigationAdvice = fmt.Sprintf("Irrigate to cover about %.0f mm/year below the crop's needs", p.RainfallRange.Min-annual)
		case annual > p.RainfallRange.Max:
			a.IrrigationAdvice = fmt.Sprintf("Plan drainage for about %.0f mm/year above the crop's needs", annual-p.RainfallRange.Max)
		default:
			a.IrrigationAdvice = "Rainfall meets crop needs, irrigate only during dry spells"
		}
	}
	return a
}
