package scoring

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/i474232898/crop-advisor/internal/crop"
)

// ErrDivisionUndefined is returned when ROI is requested for a zero total cost.
var ErrDivisionUndefined = errors.New("roi undefined: total cost is zero")

// ProfitabilitySentinel is the profitability score used when ROI is undefined.
const ProfitabilitySentinel = 0.0

// ProfitAnalysis holds the financial projection for one crop on a given area.
// Money values are rounded to cents.
type ProfitAnalysis struct {
	GrossRevenue      float64 `json:"gross_revenue"`
	TotalCosts        float64 `json:"total_costs"`
	NetProfit         float64 `json:"net_profit"`
	ProfitMargin      float64 `json:"profit_margin"`
	ROIPercent        float64 `json:"roi_percentage"`
	ROIUndefined      bool    `json:"roi_undefined,omitempty"`
	ProfitPerHectare  float64 `json:"profit_per_hectare"`
	ExpectedYieldTons float64 `json:"expected_yield_tons"`
	PricePerTon       float64 `json:"price_per_ton"`
	BreakevenPrice    float64 `json:"breakeven_price"`

	roi float64
}

// AnalyzeProfit projects revenue, cost and return for growing the quoted crop on
// landArea hectares.
func AnalyzeProfit(q crop.Quote, landArea float64) ProfitAnalysis {
	totalYield := q.YieldTonsPerHectare * landArea
	gross := totalYield * q.PricePerTon
	costs := q.CostPerHectare * landArea
	net := gross - costs

	a := ProfitAnalysis{
		GrossRevenue:      round2(gross),
		TotalCosts:        round2(costs),
		NetProfit:         round2(net),
		ExpectedYieldTons: round2(totalYield),
		PricePerTon:       round2(q.PricePerTon),
	}
	if gross > 0 {
		a.ProfitMargin = round2(net / gross * 100)
	}
	if landArea > 0 {
		a.ProfitPerHectare = round2(net / landArea)
	}
	if totalYield > 0 {
		a.BreakevenPrice = round2(costs / totalYield)
	}

	roi, err := ROI(net, costs)
	if err != nil {
		a.ROIUndefined = true
	} else {
		a.roi = roi
		a.ROIPercent = round2(roi)
	}
	return a
}

// ROI returns netProfit / totalCost as a percentage.
func ROI(netProfit, totalCost float64) (float64, error) {
	if totalCost == 0 {
		return 0, ErrDivisionUndefined
	}
	return netProfit / totalCost * 100, nil
}

// Profitability maps ROI percent onto [0, 100] by clamping: non-positive returns
// score 0, returns of 100% or more score 100.
func Profitability(roiPercent float64) float64 {
	return clamp(roiPercent)
}

// Score returns the profitability score of the analysis, falling back to
// ProfitabilitySentinel when ROI is undefined.
func (a ProfitAnalysis) Score() float64 {
	if a.ROIUndefined {
		return ProfitabilitySentinel
	}
	return Profitability(a.roi)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
