package recommend

import (
	"fmt"
	"slices"
	"time"
)

const calendarMonths = 12

func plantingCalendar(recs []Recommendation, from time.Time) []CalendarMonth {
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)

	cal := make([]CalendarMonth, 0, calendarMonths)
	for i := 0; i < calendarMonths; i++ {
		m := start.AddDate(0, i, 0)
		entry := CalendarMonth{
			Key:       m.Format("2006-01"),
			MonthName: m.Format("January 2006"),
			Crops:     []CalendarCrop{},
		}
		for _, r := range recs {
			if !slices.Contains(r.PlantingMonths, int(m.Month())) {
				continue
			}
			entry.Crops = append(entry.Crops, CalendarCrop{
				Name:             r.CropName,
				SuitabilityScore: r.Suitability,
				ExpectedProfit:   r.ProfitAnalysis.NetProfit,
			})
		}
		cal = append(cal, entry)
	}
	return cal
}

// nextSteps turns the best recommendation into a short checklist.
func nextSteps(recs []Recommendation) []string {
	if len(recs) == 0 {
		return []string{"No suitable crops found for current conditions"}
	}
	best := recs[0]

	timing := fmt.Sprintf("Plan to plant in %s for optimal timing", time.Month(best.NextPlantingMonth))
	if best.PlantableNow {
		timing = "Current month is optimal for planting, act quickly"
	}

	steps := []string{
		fmt.Sprintf("Consider planting %s as your primary crop", best.CropName),
		timing,
		fmt.Sprintf("Prepare land according to %s soil requirements", best.CropName),
		"Test soil pH and nutrients to confirm suitability",
		"Check local suppliers for quality seeds",
		"Plan irrigation system if needed",
		"Research local markets and establish buyer connections",
	}
	if len(recs) > 1 {
		steps = append(steps, fmt.Sprintf("Keep %s as an alternative or rotation crop", recs[1].CropName))
	}
	return steps
}
