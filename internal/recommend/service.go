package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/logger"
	"github.com/i474232898/crop-advisor/internal/market"
	"github.com/i474232898/crop-advisor/internal/scoring"
	"github.com/i474232898/crop-advisor/internal/soil"
	"github.com/i474232898/crop-advisor/internal/weather"
)

var (
	// ErrInvalidInput is returned for requests that fail validation. No provider
	// is contacted for such requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Names used in Report.DegradedProviders.
const (
	ProviderWeather = "weather"
	ProviderSoil    = "soil"
	ProviderMarket  = "market"
	ProviderRegion  = "region"
)

const (
	DefaultTopN            = 5
	DefaultProviderTimeout = 10 * time.Second
	DefaultConcurrency     = 8
)

type WeatherProvider interface {
	Current(ctx context.Context, loc weather.Location) (weather.Reading, error)
}

type SoilProvider interface {
	Fetch(ctx context.Context, lat, lon float64) (soil.Reading, error)
}

type MarketProvider interface {
	CurrentPrices(ctx context.Context) (market.Snapshot, error)
}

type RegionResolver interface {
	Resolve(ctx context.Context, lat, lon float64) (market.Region, error)
}

// Service ranks catalog crops for a field.
type Service struct {
	catalog *crop.Catalog
	weather WeatherProvider
	soil    SoilProvider
	market  MarketProvider
	region  RegionResolver

	validate        *validator.Validate
	providerTimeout time.Duration
	defaultTopN     int
	concurrency     int
	now             func() time.Time
	newID           func() string
}

type Option func(*Service)

// WithRegionResolver enables regional price factors.
func WithRegionResolver(r RegionResolver) Option {
	return func(s *Service) { s.region = r }
}

// WithProviderTimeout bounds each provider call.
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.providerTimeout = d
		}
	}
}

func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

// WithConcurrency limits how many crops are scored at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithValidator(v *validator.Validate) Option {
	return func(s *Service) { s.validate = v }
}

func NewService(catalog *crop.Catalog, w WeatherProvider, sp SoilProvider, m MarketProvider, opts ...Option) *Service {
	s := &Service{
		catalog:         catalog,
		weather:         w,
		soil:            sp,
		market:          m,
		validate:        validator.New(),
		providerTimeout: DefaultProviderTimeout,
		defaultTopN:     DefaultTopN,
		concurrency:     DefaultConcurrency,
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the crops the service ranks.
func (s *Service) Catalog() *crop.Catalog {
	return s.catalog
}

// inputs is what the providers returned for one request.
type inputs struct {
	weather  *weather.Reading
	soil     *soil.Reading
	snapshot market.Snapshot
	region   market.Region

	weatherDegraded bool
	soilDegraded    bool
	marketDegraded  bool
	regionDegraded  bool
}

func (in inputs) degraded() []string {
	var out []string
	if in.weatherDegraded {
		out = append(out, ProviderWeather)
	}
	if in.soilDegraded {
		out = append(out, ProviderSoil)
	}
	if in.marketDegraded {
		out = append(out, ProviderMarket)
	}
	if in.regionDegraded {
		out = append(out, ProviderRegion)
	}
	return out
}

type slot struct {
	rec     Recommendation
	skipped string
}

// Recommend scores every requested crop for the field and returns them ranked by
// combined score, best first. Equal scores are ordered by crop name.
func (s *Service) Recommend(ctx context.Context, req Request) (*Report, error) {
	profiles, err := s.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	ctx = logger.WithRequestID(ctx, id)
	now := s.now().UTC()

	in := s.fetchInputs(ctx, req.Latitude, req.Longitude)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	env := environment(in.weather, in.soil)
	snapshot := in.snapshot
	if factor := in.region.PriceFactor(); factor != 1 {
		snapshot = snapshot.WithPriceFactor(factor)
	}

	slots := make([]slot, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			q, ok := snapshot.Prices[p.Name]
			if !ok {
				slots[i] = slot{skipped: "no market quote available"}
				return nil
			}
			breakdown, profit := scoring.Evaluate(p, env, q, req.LandArea)
			rec := Recommendation{
				CropName:          p.Name,
				Breakdown:         breakdown,
				ProfitAnalysis:    profit,
				PlantingMonths:    p.PlantingMonths,
				NextPlantingMonth: p.NextPlantingMonth(int(now.Month())),
				GrowingSeasonDays: p.GrowingSeasonDays,
				PlantableNow:      p.PlantableIn(int(now.Month())),
				RiskAssessment:    assessRisk(p, in.weather),
			}
			if in.soil != nil {
				c := soil.AssessCompatibility(*in.soil, p)
				rec.SoilCompatibility = &c
			}
			if in.weather != nil {
				ws := weather.AssessSuitability(*in.weather, p)
				rec.WeatherSuitability = &ws
			}
			rec.PlantingAdvice = plantingAdvice(p, now, in.weather, rec.SoilCompatibility)
			rec.ProfitRecommendations = profitRecommendations(profit, rec.RiskAssessment.PriceRisk)
			slots[i] = slot{rec: rec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	recs := make([]Recommendation, 0, len(slots))
	var skipped []SkippedCrop
	for i, sl := range slots {
		if sl.skipped != "" {
			skipped = append(skipped, SkippedCrop{CropName: profiles[i].Name, Reason: sl.skipped})
			continue
		}
		recs = append(recs, sl.rec)
	}
	for _, sc := range skipped {
		slog.WarnContext(ctx, "crop skipped", "crop", sc.CropName, "reason", sc.Reason)
	}

	recs = rank(recs, s.topN(req.TopN))

	report := &Report{
		RequestID:          id,
		Timestamp:          now,
		Location:           weather.Location{Lat: req.Latitude, Lon: req.Longitude},
		LandArea:           req.LandArea,
		Region:             in.region,
		TotalCropsAnalyzed: len(profiles),
		Summary:            summarize(recs),
		Recommendations:    recs,
		Environment: EnvironmentSummary{
			Weather:      in.weather,
			Soil:         in.soil,
			MarketStatus: snapshot.MarketStatus,
			Inputs:       env,
		},
		PlantingCalendar:  plantingCalendar(recs, now),
		NextSteps:         nextSteps(recs),
		SkippedCrops:      skipped,
		DegradedProviders: in.degraded(),
	}

	slog.InfoContext(ctx, "recommendations computed",
		"location", report.Location.Key(),
		"crops", len(profiles),
		"best_crop", report.Summary.BestCrop,
		"degraded", report.DegradedProviders)
	return report, nil
}

func (s *Service) topN(n int) int {
	if n <= 0 {
		return s.defaultTopN
	}
	return n
}

// resolveRequest validates req and returns the profiles to score.
func (s *Service) resolveRequest(req Request) ([]crop.Profile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if math.IsInf(req.LandArea, 0) {
		return nil, fmt.Errorf("%w: land_area must be finite", ErrInvalidInput)
	}

	if len(req.Crops) == 0 {
		return s.catalog.Profiles(), nil
	}

	seen := make(map[string]bool, len(req.Crops))
	profiles := make([]crop.Profile, 0, len(req.Crops))
	for _, name := range req.Crops {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		p, err := s.catalog.Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// fetchInputs queries all providers in parallel. Every failure is recovered
// with a fallback and flagged as degraded.
func (s *Service) fetchInputs(ctx context.Context, lat, lon float64) inputs {
	in := inputs{region: market.RegionUnknown}
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.weather == nil {
			in.weatherDegraded = true
			return
		}
		r, err := callWithTimeout(ctx, s.providerTimeout, func(pctx context.Context) (weather.Reading, error) {
			return s.weather.Current(pctx, weather.Location{Lat: lat, Lon: lon})
		})
		if err != nil {
			slog.WarnContext(ctx, "weather unavailable, scoring without it", "error", err)
			in.weatherDegraded = true
			return
		}
		if r.Source == weather.SourceCache {
			in.weatherDegraded = true
		}
		in.weather = &r
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.soil == nil {
			in.soilDegraded = true
			return
		}
		r, err := callWithTimeout(ctx, s.providerTimeout, func(pctx context.Context) (soil.Reading, error) {
			return s.soil.Fetch(pctx, lat, lon)
		})
		if err != nil {
			slog.WarnContext(ctx, "soil unavailable, scoring without it", "error", err)
			in.soilDegraded = true
			return
		}
		in.soil = &r
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if s.market == nil {
			in.snapshot = market.DefaultSnapshot()
			in.marketDegraded = true
			return
		}
		snap, err := callWithTimeout(ctx, s.providerTimeout, s.market.CurrentPrices)
		if err != nil {
			slog.WarnContext(ctx, "market unavailable, using default prices", "error", err)
			in.snapshot = market.DefaultSnapshot()
			in.marketDegraded = true
			return
		}
		in.snapshot = snap
	}()

	if s.region != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			region, err := callWithTimeout(ctx, s.providerTimeout, func(pctx context.Context) (market.Region, error) {
				return s.region.Resolve(pctx, lat, lon)
			})
			if err != nil {
				slog.WarnContext(ctx, "region unavailable, using neutral price factor", "error", err)
				in.regionDegraded = true
				return
			}
			in.region = region
		}()
	}

	wg.Wait()
	return in
}

// callWithTimeout runs fn under a deadline and stops waiting once it passes,
// even if fn does not watch its context. A late result is discarded.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(pctx)
		done <- result{v, err}
	}()

	select {
	case <-pctx.Done():
		var zero T
		return zero, pctx.Err()
	case res := <-done:
		return res.v, res.err
	}
}

// environment merges weather and soil readings into scoring inputs. Components
// without a reading stay nil.
func environment(w *weather.Reading, s *soil.Reading) crop.Environment {
	var env crop.Environment
	if w != nil {
		env.TemperatureC = crop.Float(w.MeanTemperatureC)
		env.HumidityPct = crop.Float(w.HumidityPct)
		if w.HasPrecip {
			env.RainfallMm = crop.Float(w.AnnualRainfallMm())
		}
	}
	if s != nil {
		env.SoilPH = crop.Float(s.PH)
		env.SoilType = s.SoilType
		nutrients := s.Nutrients
		env.Nutrients = &nutrients
	}
	return env
}

// rank sorts recs best first, truncates to n and numbers them from 1.
func rank(recs []Recommendation, n int) []Recommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Combined != recs[j].Combined {
			return recs[i].Combined > recs[j].Combined
		}
		return recs[i].CropName < recs[j].CropName
	})
	if len(recs) > n {
		recs = recs[:n]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

func summarize(recs []Recommendation) Summary {
	if len(recs) == 0 {
		return Summary{BestCrop: NoCrop}
	}
	best := recs[0]
	return Summary{
		BestCrop:        best.CropName,
		ExpectedProfit:  best.ProfitAnalysis.NetProfit,
		ConfidenceScore: best.Combined,
	}
}
