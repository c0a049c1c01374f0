package scoring_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/scoring"
)

var rice = crop.Profile{
	Name:              "rice",
	TemperatureRange:  crop.Range{Min: 20, Max: 35},
	RainfallRange:     crop.Range{Min: 1000, Max: 2000},
	PHRange:           crop.Range{Min: 5.5, Max: 6.5},
	GrowingSeasonDays: 105,
	SoilTypes:         []string{"clay", "clay loam"},
	PlantingMonths:    []int{6, 7, 8},
	MinNutrients:      crop.DefaultMinNutrients,
}

func matchingRiceEnv() crop.Environment {
	return crop.Environment{
		TemperatureC: crop.Float(27),
		RainfallMm:   crop.Float(1500),
		SoilPH:       crop.Float(6.0),
		SoilType:     "clay loam",
		Nutrients:    &crop.Nutrients{Nitrogen: 25, Phosphorus: 15, Potassium: 120},
	}
}

var _ = Describe("Suitability", func() {
	It("weights sum to one", func() {
		sum := scoring.WeightTemperature + scoring.WeightRainfall + scoring.WeightSoilPH +
			scoring.WeightSoilType + scoring.WeightNutrients
		Expect(sum).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("scores a matching environment above 90", func() {
		score, c := scoring.Suitability(rice, matchingRiceEnv())
		Expect(score).To(BeNumerically(">", 90))
		Expect(c.Temperature).To(Equal(100.0))
		Expect(c.Rainfall).To(Equal(100.0))
		Expect(c.SoilPH).To(Equal(100.0))
		Expect(c.SoilType).To(Equal(100.0))
		Expect(c.Nutrients).To(Equal(100.0))
	})

	It("still scores above 90 when nutrients are unknown", func() {
		env := matchingRiceEnv()
		env.Nutrients = nil
		score, c := scoring.Suitability(rice, env)
		Expect(c.Nutrients).To(Equal(scoring.NeutralScore))
		Expect(score).To(BeNumerically("~", 95, 1e-9))
	})

	It("drops temperature compatibility to zero more than 20 degrees outside the range", func() {
		env := matchingRiceEnv()
		env.TemperatureC = crop.Float(-1)
		score, c := scoring.Suitability(rice, env)
		Expect(c.Temperature).To(Equal(0.0))
		Expect(score).To(BeNumerically("<=", 70))
	})

	It("degrades linearly outside the temperature range", func() {
		env := matchingRiceEnv()
		env.TemperatureC = crop.Float(37)
		_, c := scoring.Suitability(rice, env)
		Expect(c.Temperature).To(BeNumerically("~", 90, 1e-9))
	})

	It("penalizes rainfall shortfall harder than excess", func() {
		dry := matchingRiceEnv()
		dry.RainfallMm = crop.Float(500)
		wet := matchingRiceEnv()
		wet.RainfallMm = crop.Float(3000)

		_, dc := scoring.Suitability(rice, dry)
		_, wc := scoring.Suitability(rice, wet)
		Expect(dc.Rainfall).To(BeNumerically("~", 75, 1e-9))
		Expect(wc.Rainfall).To(BeNumerically("~", 85, 1e-9))
	})

	It("scores pH by distance to the nearest bound", func() {
		env := matchingRiceEnv()
		env.SoilPH = crop.Float(7.0)
		_, c := scoring.Suitability(rice, env)
		Expect(c.SoilPH).To(BeNumerically("~", 90, 1e-9))
	})

	It("treats soil type as a binary match", func() {
		env := matchingRiceEnv()
		env.SoilType = "Sandy Loam"
		_, c := scoring.Suitability(rice, env)
		Expect(c.SoilType).To(Equal(0.0))
	})

	It("scores nutrient adequacy against the thresholds", func() {
		env := matchingRiceEnv()
		env.Nutrients = &crop.Nutrients{Nitrogen: 10, Phosphorus: 10, Potassium: 50}
		_, c := scoring.Suitability(rice, env)
		Expect(c.Nutrients).To(BeNumerically("~", (50.0+100.0+50.0)/3, 1e-9))
	})

	It("uses neutral scores for an empty environment", func() {
		score, c := scoring.Suitability(rice, crop.Environment{})
		Expect(score).To(BeNumerically("~", scoring.NeutralScore, 1e-9))
		Expect(c).To(Equal(scoring.Components{
			Temperature: 50, Rainfall: 50, SoilPH: 50, SoilType: 50, Nutrients: 50,
		}))
	})

	DescribeTable("stays within [0, 100] for extreme readings",
		func(temp, rain, ph, n float64) {
			env := crop.Environment{
				TemperatureC: crop.Float(temp),
				RainfallMm:   crop.Float(rain),
				SoilPH:       crop.Float(ph),
				SoilType:     "rock",
				Nutrients:    &crop.Nutrients{Nitrogen: n, Phosphorus: n, Potassium: n},
			}
			score, c := scoring.Suitability(rice, env)
			Expect(score).To(And(BeNumerically(">=", 0), BeNumerically("<=", 100)))
			for _, v := range []float64{c.Temperature, c.Rainfall, c.SoilPH, c.SoilType, c.Nutrients} {
				Expect(v).To(And(BeNumerically(">=", 0), BeNumerically("<=", 100)))
			}
		},
		Entry("frozen desert", -80.0, 0.0, 0.0, 0.0),
		Entry("flooded oven", 90.0, 1e7, 14.0, 1e6),
		Entry("negative everything", -1e9, -1e9, -1e9, -1e9),
		Entry("infinite readings", math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(1)),
		Entry("nan readings", math.NaN(), math.NaN(), math.NaN(), math.NaN()),
	)
})

var _ = Describe("Profit analysis", func() {
	It("computes revenue, cost, profit and ROI", func() {
		q := crop.Quote{Crop: "rice", PricePerTon: 400, CostPerHectare: 800, YieldTonsPerHectare: 4.5}
		a := scoring.AnalyzeProfit(q, 10)
		Expect(a.GrossRevenue).To(Equal(18000.0))
		Expect(a.TotalCosts).To(Equal(8000.0))
		Expect(a.NetProfit).To(Equal(10000.0))
		Expect(a.ROIPercent).To(Equal(125.0))
		Expect(a.ProfitMargin).To(BeNumerically("~", 55.56, 1e-9))
		Expect(a.ProfitPerHectare).To(Equal(1000.0))
		Expect(a.BreakevenPrice).To(BeNumerically("~", 177.78, 1e-9))
		Expect(a.Score()).To(Equal(100.0))
	})

	It("rounds money figures to cents", func() {
		q := crop.Quote{Crop: "rice", PricePerTon: 441.88, CostPerHectare: 800, YieldTonsPerHectare: 4.5}
		a := scoring.AnalyzeProfit(q, 10)
		Expect(a.NetProfit).To(Equal(11884.6))
		Expect(a.ROIPercent).To(Equal(148.56))
	})

	It("uses the sentinel score when total cost is zero", func() {
		q := crop.Quote{Crop: "free", PricePerTon: 100, CostPerHectare: 0, YieldTonsPerHectare: 1}
		a := scoring.AnalyzeProfit(q, 5)
		Expect(a.ROIUndefined).To(BeTrue())
		Expect(a.ROIPercent).To(Equal(0.0))
		Expect(a.Score()).To(Equal(scoring.ProfitabilitySentinel))
	})

	It("reports ErrDivisionUndefined from ROI", func() {
		_, err := scoring.ROI(10, 0)
		Expect(err).To(MatchError(scoring.ErrDivisionUndefined))
	})

	It("maps ROI monotonically and saturates", func() {
		Expect(scoring.Profitability(-250)).To(Equal(0.0))
		Expect(scoring.Profitability(0)).To(Equal(0.0))
		Expect(scoring.Profitability(42.5)).To(Equal(42.5))
		Expect(scoring.Profitability(100)).To(Equal(100.0))
		Expect(scoring.Profitability(1e9)).To(Equal(100.0))

		prev := scoring.Profitability(-500)
		for roi := -500.0; roi <= 500; roi += 7.5 {
			cur := scoring.Profitability(roi)
			Expect(cur).To(BeNumerically(">=", prev))
			prev = cur
		}
	})
})

var _ = Describe("Evaluate", func() {
	DescribeTable("combined equals 0.6 suitability + 0.4 profitability",
		func(env crop.Environment, q crop.Quote, area float64) {
			b, _ := scoring.Evaluate(rice, env, q, area)
			Expect(b.Combined).To(BeNumerically("~", 0.6*b.Suitability+0.4*b.Profitability, 1e-9))
			Expect(b.Combined).To(And(BeNumerically(">=", 0), BeNumerically("<=", 100)))
		},
		Entry("matching rice", matchingRiceEnv(),
			crop.Quote{PricePerTon: 400, CostPerHectare: 800, YieldTonsPerHectare: 4.5}, 10.0),
		Entry("losing money", crop.Environment{TemperatureC: crop.Float(5)},
			crop.Quote{PricePerTon: 10, CostPerHectare: 800, YieldTonsPerHectare: 1}, 1.0),
		Entry("zero cost", matchingRiceEnv(),
			crop.Quote{PricePerTon: 400, YieldTonsPerHectare: 4.5}, 2.5),
		Entry("modest return", crop.Environment{},
			crop.Quote{PricePerTon: 300, CostPerHectare: 1000, YieldTonsPerHectare: 4}, 3.0),
	)
})
