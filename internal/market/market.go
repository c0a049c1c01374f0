// Package market provides simulated crop prices, production costs and yields.
package market

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/i474232898/crop-advisor/internal/crop"
)

// Snapshot is the set of quotes valid for one request.
type Snapshot struct {
	Prices       map[string]crop.Quote `json:"prices"`
	MarketStatus string                `json:"market_status"`
	DataSource   string                `json:"data_source"`
	Timestamp    time.Time             `json:"timestamp"`
}

type baseline struct {
	price float64 // USD per ton
	cost  float64 // USD per hectare
	yield float64 // tons per hectare
}

var baselines = map[string]baseline{
	"wheat":    {price: 250, cost: 400, yield: 3.0},
	"corn":     {price: 200, cost: 500, yield: 9.0},
	"rice":     {price: 400, cost: 800, yield: 4.5},
	"soybeans": {price: 450, cost: 450, yield: 2.8},
	"cotton":   {price: 1600, cost: 1200, yield: 1.5},
	"tomatoes": {price: 800, cost: 2000, yield: 50.0},
	"potatoes": {price: 300, cost: 1500, yield: 25.0},
	"carrots":  {price: 350, cost: 1200, yield: 30.0},
}

// baselineNames fixes the order noise is drawn in.
var baselineNames = func() []string {
	names := make([]string, 0, len(baselines))
	for name := range baselines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// SimulatedProvider serves quotes from a fixed baseline table, optionally with
// normally distributed price noise.
type SimulatedProvider struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sigma float64
	now   func() time.Time
}

type Option func(*SimulatedProvider)

// WithPriceNoise multiplies each price by N(1, sigma), drawn from a generator
// seeded with seed so runs are reproducible.
func WithPriceNoise(sigma float64, seed uint64) Option {
	return func(p *SimulatedProvider) {
		if sigma <= 0 {
			return
		}
		p.sigma = sigma
		p.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

func NewSimulatedProvider(opts ...Option) *SimulatedProvider {
	p := &SimulatedProvider{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentPrices returns a quote for every crop in the baseline table.
func (p *SimulatedProvider) CurrentPrices(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	prices := make(map[string]crop.Quote, len(baselines))
	changes := make([]float64, 0, len(baselines))

	p.mu.Lock()
	for _, name := range baselineNames {
		b := baselines[name]
		factor := 1.0
		if p.rng != nil {
			factor = math.Max(0.5, 1+p.rng.NormFloat64()*p.sigma)
		}
		q := newQuote(name, b)
		q.PricePerTon = roundCents(b.price * factor)
		q.PriceChangePct = roundCents((factor - 1) * 100)
		prices[name] = q
		changes = append(changes, q.PriceChangePct)
	}
	p.mu.Unlock()

	return Snapshot{
		Prices:       prices,
		MarketStatus: assessStatus(changes),
		DataSource:   "Simulated Market Data",
		Timestamp:    p.now().UTC(),
	}, nil
}

// DefaultSnapshot returns baseline prices without noise. It is the fallback when
// a market provider fails.
func DefaultSnapshot() Snapshot {
	prices := make(map[string]crop.Quote, len(baselines))
	for name, b := range baselines {
		prices[name] = newQuote(name, b)
	}
	return Snapshot{
		Prices:       prices,
		MarketStatus: "stable",
		DataSource:   "Default Data",
		Timestamp:    time.Now().UTC(),
	}
}

func newQuote(name string, b baseline) crop.Quote {
	return crop.Quote{
		Crop:                name,
		PricePerTon:         b.price,
		BasePricePerTon:     b.price,
		CostPerHectare:      b.cost,
		YieldTonsPerHectare: b.yield,
		Currency:            "USD",
		Unit:                "per_ton",
	}
}

// assessStatus summarizes price moves: a strong average move is bullish or
// bearish, a wide spread is volatile.
func assessStatus(changes []float64) string {
	if len(changes) == 0 {
		return "stable"
	}
	var sum, sq float64
	for _, c := range changes {
		sum += c
	}
	mean := sum / float64(len(changes))
	for _, c := range changes {
		sq += (c - mean) * (c - mean)
	}
	stddev := math.Sqrt(sq / float64(len(changes)))

	switch {
	case mean >= 3:
		return "bullish"
	case mean <= -3:
		return "bearish"
	case stddev >= 8:
		return "volatile"
	default:
		return "stable"
	}
}

// WithPriceFactor returns a copy of the snapshot with every price scaled by factor.
func (s Snapshot) WithPriceFactor(factor float64) Snapshot {
	if factor == 1 {
		return s
	}
	prices := make(map[string]crop.Quote, len(s.Prices))
	for name, q := range s.Prices {
		q.PricePerTon = roundCents(q.PricePerTon * factor)
		prices[name] = q
	}
	s.Prices = prices
	return s
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
