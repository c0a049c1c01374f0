package market

// Risk levels used by price and crop risk assessments.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

var priceRiskLevels = map[string]string{
	"wheat":    RiskMedium,
	"corn":     RiskMedium,
	"rice":     RiskLow,
	"soybeans": RiskHigh,
	"cotton":   RiskHigh,
	"tomatoes": RiskHigh,
	"potatoes": RiskMedium,
	"carrots":  RiskMedium,
}

// PriceRisk describes how exposed a crop is to price swings.
type PriceRisk struct {
	RiskLevel       string `json:"risk_level"`
	Volatility      string `json:"volatility"`
	MarketStability string `json:"market_stability"`
}

// AssessPriceRisk returns the price risk of crop. Unknown crops are medium risk.
func AssessPriceRisk(crop string) PriceRisk {
	level, ok := priceRiskLevels[crop]
	if !ok {
		level = RiskMedium
	}
	r := PriceRisk{RiskLevel: level, Volatility: "moderate", MarketStability: "stable"}
	if level == RiskHigh {
		r.Volatility = "high"
		r.MarketStability = "unstable"
	}
	return r
}
