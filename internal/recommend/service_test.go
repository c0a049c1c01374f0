package recommend_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/market"
	"github.com/i474232898/crop-advisor/internal/recommend"
	"github.com/i474232898/crop-advisor/internal/soil"
	"github.com/i474232898/crop-advisor/internal/weather"
)

type fakeWeather struct {
	reading weather.Reading
	err     error
	calls   atomic.Int32
}

func (f *fakeWeather) Current(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	f.calls.Add(1)
	if f.err != nil {
		return weather.Reading{}, f.err
	}
	r := f.reading
	r.Location = loc
	return r, nil
}

// fakeSoil sleeps for hang before answering and never looks at ctx.
type fakeSoil struct {
	reading soil.Reading
	err     error
	hang    time.Duration
	calls   atomic.Int32
}

func (f *fakeSoil) Fetch(ctx context.Context, lat, lon float64) (soil.Reading, error) {
	f.calls.Add(1)
	time.Sleep(f.hang)
	return f.reading, f.err
}

type fakeMarket struct {
	snapshot market.Snapshot
	err      error
	hang     time.Duration
	calls    atomic.Int32
}

func (f *fakeMarket) CurrentPrices(ctx context.Context) (market.Snapshot, error) {
	f.calls.Add(1)
	time.Sleep(f.hang)
	return f.snapshot, f.err
}

type fakeRegion struct {
	region market.Region
	err    error
}

func (f *fakeRegion) Resolve(ctx context.Context, lat, lon float64) (market.Region, error) {
	return f.region, f.err
}

// riceWeather and riceSoil describe a warm, wet field with clay soil.
func riceWeather() weather.Reading {
	return weather.Reading{
		Timestamp:        time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		TemperatureC:     27,
		MeanTemperatureC: 27,
		HumidityPct:      80,
		Precip7dMm:       1500.0 / 52,
		HasPrecip:        true,
		Source:           weather.SourceLive,
	}
}

func riceSoil() soil.Reading {
	return soil.Reading{
		SoilType:  "clay",
		PH:        6.0,
		Nutrients: crop.Nutrients{Nitrogen: 25, Phosphorus: 15, Potassium: 120},
	}
}

func riceMarket() market.Snapshot {
	snap := market.DefaultSnapshot()
	q := snap.Prices["rice"]
	q.PricePerTon = 441.88
	snap.Prices["rice"] = q
	return snap
}

func testProfile(name string, temp crop.Range) crop.Profile {
	return crop.Profile{
		Name:              name,
		TemperatureRange:  temp,
		RainfallRange:     crop.Range{Min: 1000, Max: 2000},
		PHRange:           crop.Range{Min: 5.5, Max: 7.0},
		GrowingSeasonDays: 100,
		SoilTypes:         []string{"clay"},
		PlantingMonths:    []int{5},
	}
}

func quoteFor(name string) crop.Quote {
	return crop.Quote{Crop: name, PricePerTon: 300, CostPerHectare: 600, YieldTonsPerHectare: 3}
}

var iowa = recommend.Request{Latitude: 41.8781, Longitude: -93.0977, LandArea: 10}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		catalog *crop.Catalog
		ws      *fakeWeather
		ss      *fakeSoil
		ms      *fakeMarket
		clock   func() time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		catalog, err = crop.Default()
		Expect(err).NotTo(HaveOccurred())

		ws = &fakeWeather{reading: riceWeather()}
		ss = &fakeSoil{reading: riceSoil()}
		ms = &fakeMarket{snapshot: riceMarket()}
		clock = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	})

	newService := func(opts ...recommend.Option) *recommend.Service {
		opts = append([]recommend.Option{recommend.WithClock(clock)}, opts...)
		return recommend.NewService(catalog, ws, ss, ms, opts...)
	}

	Describe("ranking", func() {
		It("recommends rice with the market-derived expected profit", func() {
			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Summary.BestCrop).To(Equal("rice"))
			Expect(report.Summary.ExpectedProfit).To(BeNumerically("~", 11884.60, 1e-9))
			Expect(report.Summary.ConfidenceScore).To(Equal(report.Recommendations[0].Combined))

			best := report.Recommendations[0]
			Expect(best.ProfitAnalysis.NetProfit).To(BeNumerically("~", 11884.60, 1e-9))
			Expect(best.ProfitAnalysis.ROIPercent).To(BeNumerically("~", 148.56, 1e-9))
			Expect(best.Suitability).To(BeNumerically(">", 90))
			Expect(report.TotalCropsAnalyzed).To(Equal(catalog.Len()))
			Expect(report.DegradedProviders).To(BeEmpty())
		})

		It("returns top N with contiguous ranks in descending order", func() {
			report, err := newService().Recommend(ctx, recommend.Request{
				Latitude: iowa.Latitude, Longitude: iowa.Longitude, LandArea: 10, TopN: 3,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Recommendations).To(HaveLen(3))

			for i, r := range report.Recommendations {
				Expect(r.Rank).To(Equal(i + 1))
				Expect(r.Combined).To(BeNumerically("~", r.Suitability*0.6+r.Profitability*0.4, 1e-9))
				if i > 0 {
					Expect(r.Combined).To(BeNumerically("<=", report.Recommendations[i-1].Combined))
				}
			}
		})

		It("falls back to the default top N", func() {
			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Recommendations).To(HaveLen(recommend.DefaultTopN))

			report, err = newService(recommend.WithDefaultTopN(2)).Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Recommendations).To(HaveLen(2))
		})

		It("returns every crop when N exceeds the catalog", func() {
			req := iowa
			req.TopN = 50
			report, err := newService().Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Recommendations).To(HaveLen(catalog.Len()))
		})

		It("is deterministic across runs and concurrency limits", func() {
			req := iowa
			req.TopN = 8
			first, err := newService(recommend.WithConcurrency(1)).Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			second, err := newService(recommend.WithConcurrency(16)).Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Recommendations).To(Equal(first.Recommendations))
			Expect(second.Summary).To(Equal(first.Summary))
		})

		It("breaks score ties by crop name", func() {
			var err error
			catalog, err = crop.New([]crop.Profile{
				testProfile("beta", crop.Range{Min: 20, Max: 30}),
				testProfile("alpha", crop.Range{Min: 20, Max: 30}),
			})
			Expect(err).NotTo(HaveOccurred())
			ms.snapshot = market.Snapshot{Prices: map[string]crop.Quote{
				"alpha": quoteFor("alpha"),
				"beta":  quoteFor("beta"),
			}}

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Recommendations).To(HaveLen(2))
			Expect(report.Recommendations[0].Combined).To(Equal(report.Recommendations[1].Combined))
			Expect(report.Recommendations[0].CropName).To(Equal("alpha"))
			Expect(report.Recommendations[1].CropName).To(Equal("beta"))
		})

		It("ranks a crop far outside its temperature range lower", func() {
			var err error
			catalog, err = crop.New([]crop.Profile{
				testProfile("arctic", crop.Range{Min: 0, Max: 5}),
				testProfile("tropical", crop.Range{Min: 20, Max: 30}),
			})
			Expect(err).NotTo(HaveOccurred())
			ms.snapshot = market.Snapshot{Prices: map[string]crop.Quote{
				"arctic":   quoteFor("arctic"),
				"tropical": quoteFor("tropical"),
			}}

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())

			first, second := report.Recommendations[0], report.Recommendations[1]
			Expect(first.CropName).To(Equal("tropical"))
			Expect(second.CropName).To(Equal("arctic"))
			Expect(second.Components.Temperature).To(BeZero())
			Expect(second.Suitability).To(BeNumerically("~", first.Suitability-30, 1e-9))
		})

		It("restricts the analysis to the requested crops", func() {
			req := iowa
			req.Crops = []string{" Wheat", "corn", "wheat"}
			report, err := newService().Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.TotalCropsAnalyzed).To(Equal(2))
			var names []string
			for _, r := range report.Recommendations {
				names = append(names, r.CropName)
			}
			Expect(names).To(ConsistOf("wheat", "corn"))
		})

		It("applies the regional price factor", func() {
			req := iowa
			req.Crops = []string{"wheat"}
			report, err := newService(recommend.WithRegionResolver(&fakeRegion{region: market.RegionMidwest})).Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Region).To(Equal(market.RegionMidwest))
			Expect(report.Recommendations[0].ProfitAnalysis.PricePerTon).To(BeNumerically("~", 225, 1e-9))
		})
	})

	Describe("input validation", func() {
		DescribeTable("rejects invalid requests before calling any provider",
			func(req recommend.Request) {
				_, err := newService().Recommend(ctx, req)
				Expect(err).To(MatchError(recommend.ErrInvalidInput))
				Expect(ws.calls.Load()).To(BeZero())
				Expect(ss.calls.Load()).To(BeZero())
				Expect(ms.calls.Load()).To(BeZero())
			},
			Entry("latitude above 90", recommend.Request{Latitude: 91, Longitude: 0, LandArea: 1}),
			Entry("latitude below -90", recommend.Request{Latitude: -90.5, Longitude: 0, LandArea: 1}),
			Entry("longitude out of range", recommend.Request{Latitude: 0, Longitude: 181, LandArea: 1}),
			Entry("NaN latitude", recommend.Request{Latitude: math.NaN(), Longitude: 0, LandArea: 1}),
			Entry("zero land area", recommend.Request{Latitude: 0, Longitude: 0, LandArea: 0}),
			Entry("negative land area", recommend.Request{Latitude: 0, Longitude: 0, LandArea: -2}),
			Entry("infinite land area", recommend.Request{Latitude: 0, Longitude: 0, LandArea: math.Inf(1)}),
			Entry("negative top N", recommend.Request{Latitude: 0, Longitude: 0, LandArea: 1, TopN: -1}),
			Entry("unknown crop", recommend.Request{Latitude: 0, Longitude: 0, LandArea: 1, Crops: []string{"mango"}}),
			Entry("blank crop", recommend.Request{Latitude: 0, Longitude: 0, LandArea: 1, Crops: []string{""}}),
		)

		It("accepts the boundary coordinates", func() {
			_, err := newService().Recommend(ctx, recommend.Request{Latitude: -90, Longitude: 180, LandArea: 0.01})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("degraded providers", func() {
		It("scores with neutral components when weather and soil fail", func() {
			ws.err = errors.New("upstream down")
			ss.err = soil.ErrInvalidCoordinates

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.DegradedProviders).To(Equal([]string{recommend.ProviderWeather, recommend.ProviderSoil}))
			Expect(report.Environment.Weather).To(BeNil())
			Expect(report.Environment.Soil).To(BeNil())

			for _, r := range report.Recommendations {
				Expect(r.Suitability).To(BeNumerically("~", 50, 1e-9))
			}
		})

		It("flags cached weather but still uses it", func() {
			ws.reading.Source = weather.SourceCache

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.DegradedProviders).To(Equal([]string{recommend.ProviderWeather}))
			Expect(report.Environment.Inputs.TemperatureC).NotTo(BeNil())
			Expect(report.Summary.BestCrop).To(Equal("rice"))
		})

		It("leaves rainfall unavailable when weather has no precipitation window", func() {
			ws.reading.HasPrecip = false

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Environment.Inputs.RainfallMm).To(BeNil())
			Expect(report.Recommendations[0].Components.Rainfall).To(BeNumerically("~", 50, 1e-9))
		})

		It("uses default prices when the market fails", func() {
			ms.err = errors.New("feed offline")

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.DegradedProviders).To(Equal([]string{recommend.ProviderMarket}))
			Expect(report.Summary.BestCrop).To(Equal("rice"))
			Expect(report.Summary.ExpectedProfit).To(BeNumerically("~", 10000, 1e-9))
		})

		It("stops waiting for a soil provider that ignores its deadline", func() {
			ss.hang = 2 * time.Second

			start := time.Now()
			report, err := newService(recommend.WithProviderTimeout(50*time.Millisecond)).Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))

			Expect(report.DegradedProviders).To(Equal([]string{recommend.ProviderSoil}))
			Expect(report.Environment.Soil).To(BeNil())
			Expect(report.Environment.Inputs.SoilType).To(BeEmpty())
		})

		It("falls back to default prices when the market hangs past its deadline", func() {
			ms.hang = 2 * time.Second

			start := time.Now()
			report, err := newService(recommend.WithProviderTimeout(50*time.Millisecond)).Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(time.Since(start)).To(BeNumerically("<", time.Second))

			Expect(report.DegradedProviders).To(Equal([]string{recommend.ProviderMarket}))
			Expect(report.Summary.ExpectedProfit).To(BeNumerically("~", 10000, 1e-9))
		})

		It("uses a neutral price factor when the region cannot be resolved", func() {
			req := iowa
			req.Crops = []string{"wheat"}
			resolver := &fakeRegion{region: market.RegionMidwest, err: errors.New("quota exceeded")}

			report, err := newService(recommend.WithRegionResolver(resolver)).Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Region).To(Equal(market.RegionUnknown))
			Expect(report.DegradedProviders).To(ContainElement(recommend.ProviderRegion))
			Expect(report.Recommendations[0].ProfitAnalysis.PricePerTon).To(BeNumerically("~", 250, 1e-9))
		})

		It("skips crops without a market quote", func() {
			delete(ms.snapshot.Prices, "carrots")
			req := iowa
			req.TopN = 20

			report, err := newService().Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.TotalCropsAnalyzed).To(Equal(catalog.Len()))
			Expect(report.Recommendations).To(HaveLen(catalog.Len() - 1))
			Expect(report.SkippedCrops).To(ConsistOf(recommend.SkippedCrop{
				CropName: "carrots", Reason: "no market quote available",
			}))
		})

		It("summarizes an empty ranking", func() {
			ms.snapshot = market.Snapshot{Prices: map[string]crop.Quote{}}

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Recommendations).To(BeEmpty())
			Expect(report.Summary).To(Equal(recommend.Summary{BestCrop: recommend.NoCrop}))
			Expect(report.NextSteps).To(ConsistOf("No suitable crops found for current conditions"))
		})
	})

	Describe("report extras", func() {
		It("builds a twelve month planting calendar from the clock", func() {
			req := iowa
			req.TopN = 8
			report, err := newService().Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.RequestID).NotTo(BeEmpty())
			Expect(report.Timestamp).To(Equal(clock()))
			Expect(report.PlantingCalendar).To(HaveLen(12))
			Expect(report.PlantingCalendar[0].Key).To(Equal("2026-10"))
			Expect(report.PlantingCalendar[11].Key).To(Equal("2027-09"))

			june := report.PlantingCalendar[8]
			Expect(june.MonthName).To(Equal("June 2027"))
			var names []string
			for _, c := range june.Crops {
				names = append(names, c.Name)
			}
			Expect(names).To(ContainElement("rice"))
		})

		It("suggests the next planting month for the best crop", func() {
			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())

			best := report.Recommendations[0]
			Expect(best.PlantableNow).To(BeFalse())
			Expect(best.NextPlantingMonth).To(Equal(6))
			Expect(report.NextSteps[0]).To(Equal("Consider planting rice as your primary crop"))
			Expect(report.NextSteps[1]).To(Equal("Plan to plant in June for optimal timing"))
		})
	})

	Describe("per-crop analysis", func() {
		find := func(recs []recommend.Recommendation, name string) recommend.Recommendation {
			for _, r := range recs {
				if r.CropName == name {
					return r
				}
			}
			Fail("no recommendation for " + name)
			return recommend.Recommendation{}
		}

		It("explains why rice fits the field", func() {
			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			rice := find(report.Recommendations, "rice")

			Expect(rice.SoilCompatibility).NotTo(BeNil())
			Expect(rice.SoilCompatibility.Score).To(BeNumerically("~", 100, 1e-9))
			Expect(rice.SoilCompatibility.Suggestions).To(BeEmpty())

			Expect(rice.WeatherSuitability).NotTo(BeNil())
			Expect(rice.WeatherSuitability.Score).To(BeNumerically("~", 100, 1e-6))

			Expect(rice.RiskAssessment.Levels).To(Equal(recommend.RiskLevels{
				Weather: market.RiskLow, Market: market.RiskLow, Pest: market.RiskLow, Overall: market.RiskLow,
			}))
			Expect(rice.RiskAssessment.Score).To(BeNumerically("~", 33.33, 1e-9))
			Expect(rice.RiskAssessment.PriceRisk.MarketStability).To(Equal("stable"))

			Expect(rice.PlantingAdvice).To(Equal(recommend.PlantingAdvice{
				BestPlantingTime: "June",
				LandPreparation:  "Current clay soil suits rice, use standard tillage",
				IrrigationAdvice: "Rainfall meets crop needs, irrigate only during dry spells",
				Fertilizer:       "Nutrients are sufficient, use balanced maintenance fertilization",
			}))
			Expect(rice.ProfitRecommendations).To(Equal([]string{"Excellent profit potential - consider this crop"}))
		})

		It("flags soil adaptations and price risk for tomatoes", func() {
			req := iowa
			req.Crops = []string{"tomatoes"}
			report, err := newService().Recommend(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			tomatoes := find(report.Recommendations, "tomatoes")

			Expect(tomatoes.SoilCompatibility.SoilTypeMatch).To(BeFalse())
			Expect(tomatoes.SoilCompatibility.Score).To(BeNumerically("~", 80, 1e-9))
			Expect(tomatoes.SoilCompatibility.Suggestions).To(ConsistOf("Add sand and organic matter to improve drainage"))

			risk := tomatoes.RiskAssessment
			Expect(risk.Levels.Market).To(Equal(market.RiskHigh))
			Expect(risk.Levels.Weather).To(Equal(market.RiskMedium))
			Expect(risk.Levels.Overall).To(Equal(market.RiskMedium))
			Expect(risk.Factors).To(ContainElement("Seasonal price volatility"))

			Expect(tomatoes.PlantingAdvice.BestPlantingTime).To(Equal("March"))
			Expect(tomatoes.PlantingAdvice.LandPreparation).To(Equal("Add sand and organic matter to improve drainage"))
			Expect(tomatoes.PlantingAdvice.IrrigationAdvice).To(Equal("Plan drainage for about 900 mm/year above the crop's needs"))
			Expect(tomatoes.ProfitRecommendations).To(ContainElement("Consider price hedging or forward contracts"))
		})

		It("omits per-crop soil and weather analysis when those providers fail", func() {
			ws.err = errors.New("upstream down")
			ss.err = errors.New("estimator down")

			report, err := newService().Recommend(ctx, iowa)
			Expect(err).NotTo(HaveOccurred())
			best := report.Recommendations[0]

			Expect(best.SoilCompatibility).To(BeNil())
			Expect(best.WeatherSuitability).To(BeNil())
			Expect(best.RiskAssessment.Levels.Weather).To(Equal(market.RiskMedium))
			Expect(best.RiskAssessment.Factors).To(ContainElement("Weather data unavailable"))
			Expect(best.PlantingAdvice.IrrigationAdvice).To(Equal("Ensure adequate water supply"))
		})
	})

	It("stops when the context is cancelled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newService().Recommend(cctx, iowa)
		Expect(err).To(MatchError(context.Canceled))
	})
})
