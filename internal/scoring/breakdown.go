package scoring

import "github.com/i474232898/crop-advisor/internal/crop"

// Blend weights of the combined score.
const (
	SuitabilityWeight   = 0.6
	ProfitabilityWeight = 0.4
)

// Breakdown is the explainable score of one crop.
type Breakdown struct {
	Suitability   float64    `json:"suitability_score"`
	Profitability float64    `json:"profitability_score"`
	Combined      float64    `json:"combined_score"`
	Components    Components `json:"components"`
}

// Combine blends suitability and profitability into the ranking score.
func Combine(suitability, profitability float64) float64 {
	return clamp(suitability*SuitabilityWeight + profitability*ProfitabilityWeight)
}

// Evaluate scores one crop against the environment and its market quote.
func Evaluate(p crop.Profile, env crop.Environment, q crop.Quote, landArea float64) (Breakdown, ProfitAnalysis) {
	suitability, components := Suitability(p, env)
	profit := AnalyzeProfit(q, landArea)
	profitability := profit.Score()

	return Breakdown{
		Suitability:   suitability,
		Profitability: profitability,
		Combined:      Combine(suitability, profitability),
		Components:    components,
	}, profit
}
