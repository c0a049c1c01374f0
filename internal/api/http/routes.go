package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/crop-advisor/internal/crop"
	"github.com/i474232898/crop-advisor/internal/market"
	"github.com/i474232898/crop-advisor/internal/recommend"
	"github.com/i474232898/crop-advisor/internal/weather"
)

var validate = validator.New()

type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Report, error)
	Catalog() *crop.Catalog
}

type WeatherReader interface {
	Current(ctx context.Context, loc weather.Location) (weather.Reading, error)
}

type MarketReader interface {
	recommend.MarketProvider
	Outlook(ctx context.Context, crop string, q market.OutlookQuery) (market.Outlook, error)
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Recommender Recommender
	Weather     WeatherReader
	Soil        recommend.SoilProvider
	Market      MarketReader
}

// NewApp builds the Fiber app with middleware, health check and API routes.
func NewApp(name string, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})

	RegisterRoutes(app, deps)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/recommendations", func(c *fiber.Ctx) error {
		req, err := parseRecommendationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := deps.Recommender.Recommend(c.UserContext(), req)
		if err != nil {
			if errors.Is(err, recommend.ErrInvalidInput) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute recommendations")
		}
		return c.JSON(report)
	})

	v1.Get("/crops", func(c *fiber.Ctx) error {
		catalog := deps.Recommender.Catalog()
		return c.JSON(fiber.Map{
			"count": catalog.Len(),
			"names": catalog.Names(),
			"crops": catalog.Profiles(),
		})
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := deps.Weather.Current(c.UserContext(), loc)
		if err != nil {
			if errors.Is(err, weather.ErrNoData) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch weather data")
		}
		return c.JSON(reading)
	})

	v1.Get("/soil", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := deps.Soil.Fetch(c.UserContext(), loc.Lat, loc.Lon)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to estimate soil")
		}
		return c.JSON(reading)
	})

	v1.Get("/market/prices", func(c *fiber.Ctx) error {
		snapshot, err := deps.Market.CurrentPrices(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "failed to fetch market prices")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/market/:crop/outlook", func(c *fiber.Ctx) error {
		q, err := parseOutlookQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		name := strings.ToLower(strings.TrimSpace(c.Params("crop")))
		outlook, err := deps.Market.Outlook(c.UserContext(), name, q)
		if err != nil {
			if errors.Is(err, market.ErrUnknownCrop) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build market outlook")
		}
		return c.JSON(outlook)
	})
}

// parseOutlookQuery binds the optional max_distance (km) and months parameters.
func parseOutlookQuery(c *fiber.Ctx) (market.OutlookQuery, error) {
	var q market.OutlookQuery
	var err error

	if raw := c.Query("max_distance"); raw != "" {
		if q.MaxDistanceKm, err = queryFloat(c, "max_distance"); err != nil {
			return q, err
		}
		if q.MaxDistanceKm <= 0 {
			return q, fmt.Errorf("max_distance must be positive")
		}
	}
	if raw := c.Query("months"); raw != "" {
		if q.Months, err = strconv.Atoi(raw); err != nil || q.Months <= 0 {
			return q, fmt.Errorf("months must be a positive integer")
		}
	}
	return q, nil
}

func parseLocationQuery(c *fiber.Ctx) (weather.Location, error) {
	var loc weather.Location
	var err error

	if loc.Lat, err = queryFloat(c, "lat"); err != nil {
		return loc, err
	}
	if loc.Lon, err = queryFloat(c, "lon"); err != nil {
		return loc, err
	}
	if err := validate.Struct(loc); err != nil {
		return loc, err
	}
	return loc, nil
}

// parseRecommendationQuery binds lat, lon, area, top and crops. Range checks are
// left to the recommender.
func parseRecommendationQuery(c *fiber.Ctx) (recommend.Request, error) {
	var req recommend.Request
	var err error

	if req.Latitude, err = queryFloat(c, "lat"); err != nil {
		return req, err
	}
	if req.Longitude, err = queryFloat(c, "lon"); err != nil {
		return req, err
	}
	if req.LandArea, err = queryFloat(c, "area"); err != nil {
		return req, err
	}
	if top := c.Query("top"); top != "" {
		if req.TopN, err = strconv.Atoi(top); err != nil {
			return req, fmt.Errorf("top must be an integer")
		}
	}
	if crops := c.Query("crops"); crops != "" {
		req.Crops = strings.Split(crops, ",")
	}
	return req, nil
}

func queryFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s query parameter is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}
