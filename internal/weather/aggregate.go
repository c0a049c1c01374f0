package weather

import "time"

// AggregateReadings combines multiple provider readings into a single Reading.
// Numeric fields are averaged; precipitation is averaged only over providers
// that report a forecast, after scaling each to a seven day window.
func AggregateReadings(loc Location, readings []ProviderReading) Reading {
	if len(readings) == 0 {
		return Reading{
			Location:  loc,
			Timestamp: time.Now().UTC(),
			Source:    SourceLive,
		}
	}

	var (
		sumTemp     float64
		sumMean     float64
		sumHumidity float64
		sumWind     float64
		sumPrecip   float64
		precipCount int
	)

	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		sumTemp += r.TemperatureC
		sumMean += r.MeanTemperatureC
		sumHumidity += r.HumidityPct
		sumWind += r.WindSpeedMS

		if r.PrecipDays > 0 {
			sumPrecip += r.PrecipMm * 7 / float64(r.PrecipDays)
			precipCount++
		}

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	n := float64(len(readings))

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	out := Reading{
		Location:         loc,
		Timestamp:        newestTS,
		TemperatureC:     sumTemp / n,
		MeanTemperatureC: sumMean / n,
		HumidityPct:      sumHumidity / n,
		WindSpeedMS:      sumWind / n,
		Source:           SourceLive,
		Providers:        providers,
	}
	if precipCount > 0 {
		out.Precip7dMm = sumPrecip / float64(precipCount)
		out.HasPrecip = true
	}
	return out
}
