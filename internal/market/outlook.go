package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrUnknownCrop is returned for crops without a price baseline.
var ErrUnknownCrop = errors.New("no price data for crop")

const (
	DefaultMaxDistanceKm  = 100
	DefaultForecastMonths = 6
	maxForecastMonths     = 12

	transportCostPerKm = 0.5 // USD per ton per km
)

// Buyer is a simulated outlet for a harvest.
type Buyer struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	DistanceKm     float64 `json:"distance_km"`
	PricePremium   float64 `json:"price_premium"`
	Contact        string  `json:"contact"`
	Requirements   string  `json:"requirements"`
	PotentialPrice float64 `json:"potential_price"`
	TransportCost  float64 `json:"transport_cost"`
	NetPrice       float64 `json:"net_price"`
	Potential      string  `json:"profit_potential"`
}

var buyers = []Buyer{
	{Name: "Local Farmers Market", Type: "farmers_market", DistanceKm: 15, PricePremium: 1.2,
		Contact: "info@localmarket.com", Requirements: "Organic certification preferred"},
	{Name: "Regional Wholesale Market", Type: "wholesale", DistanceKm: 45, PricePremium: 1.1,
		Contact: "buyers@regionalwholesale.com", Requirements: "Minimum 5 tons"},
	{Name: "Processing Plant", Type: "processor", DistanceKm: 80, PricePremium: 0.95,
		Contact: "procurement@processor.com", Requirements: "Contract required, bulk quantities"},
	{Name: "Export Terminal", Type: "export", DistanceKm: 120, PricePremium: 1.15,
		Contact: "export@terminal.com", Requirements: "International quality standards"},
}

// Monthly price multipliers starting from the current month.
var seasonalPatterns = map[string][]float64{
	"wheat":    {1.1, 1.05, 1.0, 0.95, 0.9, 0.95},
	"corn":     {0.95, 1.0, 1.05, 1.1, 1.05, 1.0},
	"rice":     {1.0, 1.0, 1.05, 1.1, 1.05, 1.0},
	"tomatoes": {1.2, 1.1, 1.0, 0.9, 1.0, 1.1},
	"potatoes": {1.0, 1.05, 1.1, 1.05, 1.0, 0.95},
}

// MonthForecast is the expected price of one month.
type MonthForecast struct {
	Month     string  `json:"month"` // YYYY-MM
	MonthName string  `json:"month_name"`
	Price     float64 `json:"forecasted_price"`
	Trend     string  `json:"price_trend"`
}

// Outlook collects where and when to sell a crop.
type Outlook struct {
	Crop              string          `json:"crop"`
	BasePrice         float64         `json:"base_price"`
	MarketsFound      int             `json:"markets_found"`
	BestMarkets       []Buyer         `json:"best_markets"`
	AllMarkets        []Buyer         `json:"all_markets"`
	MarketAdvice      []string        `json:"market_recommendations"`
	Forecast          []MonthForecast `json:"price_forecast"`
	BestSellingMonths []string        `json:"best_selling_months"`
	PriceRisk         PriceRisk       `json:"price_risk"`
	SellingStrategy   []string        `json:"selling_strategy"`
}

// OutlookQuery selects the buyers and forecast horizon of an outlook. Zero
// values use the defaults.
type OutlookQuery struct {
	MaxDistanceKm float64
	Months        int
}

// Outlook ranks simulated buyers within reach by net price and forecasts
// seasonal prices. Forecast prices carry the provider's noise when configured.
func (p *SimulatedProvider) Outlook(ctx context.Context, crop string, q OutlookQuery) (Outlook, error) {
	if err := ctx.Err(); err != nil {
		return Outlook{}, err
	}
	b, ok := baselines[crop]
	if !ok {
		return Outlook{}, fmt.Errorf("%w: %q", ErrUnknownCrop, crop)
	}
	if q.MaxDistanceKm <= 0 {
		q.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if q.Months <= 0 {
		q.Months = DefaultForecastMonths
	}
	q.Months = min(q.Months, maxForecastMonths)

	out := Outlook{
		Crop:      crop,
		BasePrice: b.price,
		PriceRisk: AssessPriceRisk(crop),
	}

	out.AllMarkets = rankBuyers(b.price, q.MaxDistanceKm)
	out.MarketsFound = len(out.AllMarkets)
	out.BestMarkets = out.AllMarkets[:min(3, len(out.AllMarkets))]
	out.MarketAdvice = marketAdvice(out.AllMarkets)

	out.Forecast = p.forecast(crop, b.price, q.Months)
	out.BestSellingMonths = bestSellingMonths(out.Forecast)
	out.SellingStrategy = sellingStrategy(out)
	return out, nil
}

func rankBuyers(basePrice, maxDistance float64) []Buyer {
	out := make([]Buyer, 0, len(buyers))
	for _, m := range buyers {
		if m.DistanceKm > maxDistance {
			continue
		}
		m.PotentialPrice = roundCents(basePrice * m.PricePremium)
		m.TransportCost = roundCents(m.DistanceKm * transportCostPerKm)
		m.NetPrice = roundCents(m.PotentialPrice - m.TransportCost)
		m.Potential = "medium"
		if m.NetPrice > basePrice*1.05 {
			m.Potential = "high"
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NetPrice > out[j].NetPrice })
	return out
}

func (p *SimulatedProvider) forecast(crop string, basePrice float64, months int) []MonthForecast {
	pattern := seasonalPatterns[crop]
	start := p.now().UTC()
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]MonthForecast, 0, months)
	for i := 0; i < months; i++ {
		multiplier := 1.0
		if i < len(pattern) {
			multiplier = pattern[i]
		}
		noise := 1.0
		if p.rng != nil {
			noise = math.Max(0.5, 1+p.rng.NormFloat64()*p.sigma)
		}

		trend := "stable"
		switch {
		case multiplier > 1:
			trend = "up"
		case multiplier < 1:
			trend = "down"
		}

		m := start.AddDate(0, i, 0)
		out = append(out, MonthForecast{
			Month:     m.Format("2006-01"),
			MonthName: m.Format("January 2006"),
			Price:     roundCents(basePrice * multiplier * noise),
			Trend:     trend,
		})
	}
	return out
}

// bestSellingMonths returns the two highest priced months, earliest first on ties.
func bestSellingMonths(f []MonthForecast) []string {
	sorted := make([]MonthForecast, len(f))
	copy(sorted, f)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })

	out := make([]string, 0, 2)
	for _, m := range sorted[:min(2, len(sorted))] {
		out = append(out, m.MonthName)
	}
	return out
}

func marketAdvice(markets []Buyer) []string {
	if len(markets) == 0 {
		return []string{"No suitable markets found within distance limit"}
	}
	advice := []string{fmt.Sprintf("Best option: %s with net price $%.2f", markets[0].Name, markets[0].NetPrice)}
	if len(markets) > 1 {
		advice = append(advice, "Consider multiple markets to spread risk")
	}
	return advice
}

func sellingStrategy(o Outlook) []string {
	var strategy []string
	if len(o.BestMarkets) > 0 {
		best := o.BestMarkets[0]
		strategy = append(strategy,
			fmt.Sprintf("Primary target: %s", best.Name),
			fmt.Sprintf("Expected net price: $%.2f/ton", best.NetPrice))
	}
	if len(o.BestSellingMonths) > 0 {
		strategy = append(strategy, fmt.Sprintf("Best selling months: %s", strings.Join(o.BestSellingMonths, ", ")))
	}
	if o.PriceRisk.RiskLevel == RiskHigh {
		strategy = append(strategy, "Prices are volatile, hedge part of the harvest")
	}
	return append(strategy, "Consider forward contracts for price security")
}
