package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/crop-advisor/internal/weather"
)

const openMeteoForecastDays = 7

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
	values.Set("longitude", fmt.Sprintf("%f", loc.Lon))
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m")
	values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	values.Set("wind_speed_unit", "ms")
	values.Set("timezone", "UTC")
	values.Set("forecast_days", fmt.Sprint(openMeteoForecastDays))

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			Temperature float64 `json:"temperature_2m"`
			Humidity    float64 `json:"relative_humidity_2m"`
			WindSpeed   float64 `json:"wind_speed_10m"`
		} `json:"current"`
		Daily struct {
			// Days without data come back as null.
			MaxTemps []*float64 `json:"temperature_2m_max"`
			MinTemps []*float64 `json:"temperature_2m_min"`
			Precip   []*float64 `json:"precipitation_sum"`
		} `json:"daily"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.ProviderReading{}, err
	}

	ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	meanTemp, ok := mean(append(present(payload.Daily.MaxTemps), present(payload.Daily.MinTemps)...))
	if !ok {
		meanTemp = payload.Current.Temperature
	}

	precip := present(payload.Daily.Precip)

	return weather.ProviderReading{
		ProviderName:     p.name,
		Timestamp:        ts.UTC(),
		TemperatureC:     payload.Current.Temperature,
		MeanTemperatureC: meanTemp,
		HumidityPct:      payload.Current.Humidity,
		WindSpeedMS:      payload.Current.WindSpeed,
		PrecipMm:         sum(precip),
		PrecipDays:       len(precip),
	}, nil
}
