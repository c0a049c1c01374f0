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

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, loc weather.Location) (weather.ProviderReading, error) {
	if p.apiKey == "" {
		return weather.ProviderReading{}, fmt.Errorf("weatherapi api key is not configured")
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("q", fmt.Sprintf("%f,%f", loc.Lat, loc.Lon))
	values.Set("days", "7")
	values.Set("aqi", "no")
	values.Set("alerts", "no")

	var payload struct {
		Location struct {
			LocaltimeEpoch int64 `json:"localtime_epoch"`
		} `json:"location"`
		Current struct {
			TempC    float64 `json:"temp_c"`
			Humidity float64 `json:"humidity"`
			WindKph  float64 `json:"wind_kph"`
		} `json:"current"`
		Forecast struct {
			ForecastDay []struct {
				Day struct {
					AvgTempC      float64 `json:"avgtemp_c"`
					TotalPrecipMm float64 `json:"totalprecip_mm"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return weather.ProviderReading{}, err
	}

	ts := time.Now().UTC()
	if payload.Location.LocaltimeEpoch > 0 {
		ts = time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	}

	days := payload.Forecast.ForecastDay
	temps := make([]float64, 0, len(days))
	precip := make([]float64, 0, len(days))
	for _, d := range days {
		temps = append(temps, d.Day.AvgTempC)
		precip = append(precip, d.Day.TotalPrecipMm)
	}
	meanTemp, ok := mean(temps)
	if !ok {
		meanTemp = payload.Current.TempC
	}

	return weather.ProviderReading{
		ProviderName:     p.name,
		Timestamp:        ts,
		TemperatureC:     payload.Current.TempC,
		MeanTemperatureC: meanTemp,
		HumidityPct:      payload.Current.Humidity,
		// Convert wind from kph to m/s.
		WindSpeedMS: payload.Current.WindKph / 3.6,
		PrecipMm:    sum(precip),
		PrecipDays:  len(precip),
	}, nil
}
