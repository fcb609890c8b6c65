package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/i474232898/livability/internal/livability"
	"github.com/i474232898/livability/internal/store"
)

var validate = validator.New()

// Error messages returned to clients.
const (
	msgQueryRequired    = "Query parameter is required"
	msgLocationNotFound = "Address/location not found, please try again"
	msgScoringFailed    = "Failed to generate score"
	msgNotReady         = "reference data is not loaded yet"
	msgInvalidZip       = "Please enter valid 5-digit ZIP codes."
)

// Scorer is the pipeline the handlers drive.
type Scorer interface {
	Evaluate(ctx context.Context, query string) (*livability.Evaluation, error)
	Nearest(q livability.Coordinate, maxMiles float64) (*livability.MatchResult, error)
	CompareZips(a, b int) (*livability.ZipComparison, error)
}

// Snapshots reports the reference data status.
type Snapshots interface {
	Current() (*livability.Reference, error)
	History() []store.LoadRecord
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, scorer Scorer, snapshots Snapshots) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ref, err := snapshots.Current()
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "loading",
				"service": "livability",
				"loads":   snapshots.History(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "livability",
			"reference": ref.Stats(),
			"loads":     snapshots.History(),
		})
	})

	score := func(detailed bool) fiber.Handler {
		return func(c *fiber.Ctx) error {
			var req scoreRequest
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
			if err := validate.Struct(req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, msgQueryRequired)
			}

			ev, err := scorer.Evaluate(c.UserContext(), req.Query)
			if err != nil {
				return toHTTPError(err)
			}

			resp := scoreResponse{
				Lat:         ev.Match.Query.Lat,
				Lon:         ev.Match.Query.Lon,
				Score:       ev.Score.Score,
				Explanation: ev.Score.Explanation,
			}
			if detailed {
				resp.RunID = ev.RunID
				resp.Data = &ev.Payload
			}
			return c.JSON(resp)
		}
	}

	// Path kept for existing frontends.
	app.Post("/api/fetch_location_data", score(false))

	v1 := app.Group("/api/v1")

	v1.Post("/location/score", score(true))

	v1.Get("/zipcodes/nearest", func(c *fiber.Ctx) error {
		var q nearestQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		query := livability.Coordinate{Lat: q.Lat, Lon: q.Lon}
		match, err := scorer.Nearest(query, q.MaxMiles)
		if err != nil {
			return toHTTPError(err)
		}

		body, err := nearestGeoJSON(match)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode geojson")
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(body)
	})

	v1.Post("/zipcodes/compare", func(c *fiber.Ctx) error {
		var req compareRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidZip)
		}

		a, errA := strconv.Atoi(req.Zip1)
		b, errB := strconv.Atoi(req.Zip2)
		if errA != nil || errB != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidZip)
		}
		cmp, err := scorer.CompareZips(a, b)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(compareResponse{
			Zip1:   zipSummaryFrom(cmp.First),
			Zip2:   zipSummaryFrom(cmp.Second),
			Higher: cmp.Higher,
		})
	})
}

// toHTTPError maps pipeline errors onto status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, livability.ErrEmptyQuery):
		return fiber.NewError(fiber.StatusBadRequest, msgQueryRequired)
	case errors.Is(err, livability.ErrLocationNotFound):
		return fiber.NewError(fiber.StatusBadRequest, msgLocationNotFound)
	case livability.IsClientInput(err):
		return fiber.NewError(fiber.StatusBadRequest, rootMessage(err))
	case errors.Is(err, livability.ErrReferenceUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, msgNotReady)
	default:
		zap.L().Error("request failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, msgScoringFailed)
	}
}

// rootMessage returns the message of the client-facing sentinel in err.
func rootMessage(err error) string {
	for _, s := range []error{livability.ErrInvalidCoordinate, livability.ErrUnknownZip} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}

type scoreRequest struct {
	Query string `json:"query" validate:"required"`
}

type scoreResponse struct {
	Lat         float64             `json:"lat"`
	Lon         float64             `json:"lon"`
	Score       float64             `json:"score"`
	Explanation string              `json:"explanation"`
	RunID       string              `json:"run_id,omitempty"`
	Data        *livability.Payload `json:"data,omitempty"`
}

// nearestQuery holds query parameters for the nearest-zip endpoint.
type nearestQuery struct {
	Lat      float64 `validate:"gte=-90,lte=90"`
	Lon      float64 `validate:"gte=-180,lte=180"`
	MaxMiles float64 `validate:"gte=0,lte=500"`
}

func (q *nearestQuery) bind(c *fiber.Ctx) error {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}
	var err error
	if q.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return errors.New("invalid lat")
	}
	if q.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return errors.New("invalid lon")
	}
	if s := c.Query("max_miles"); s != "" {
		if q.MaxMiles, err = strconv.ParseFloat(s, 64); err != nil {
			return errors.New("invalid max_miles")
		}
	}
	return nil
}

func nearestGeoJSON(m *livability.MatchResult) ([]byte, error) {
	r := m.Record
	fc := &geojson.FeatureCollection{
		Features: []*geojson.Feature{
			{
				Geometry: geom.NewPointFlat(geom.XY, []float64{m.Query.Lon, m.Query.Lat}),
				Properties: map[string]interface{}{
					"role": "query",
				},
			},
			{
				ID:       strconv.Itoa(r.Zipcode),
				Geometry: geom.NewPointFlat(geom.XY, []float64{r.Coordinate.Lon, r.Coordinate.Lat}),
				Properties: map[string]interface{}{
					"role":           "zipcode",
					"zipcode":        r.Zipcode,
					"city":           r.City,
					"state":          r.State,
					"distance_miles": m.DistanceMiles,
				},
			},
		},
	}
	return json.Marshal(fc)
}

type compareRequest struct {
	Zip1 string `json:"zip1" validate:"required,len=5,number"`
	Zip2 string `json:"zip2" validate:"required,len=5,number"`
}

type zipSummary struct {
	Zipcode               int      `json:"zipcode"`
	City                  string   `json:"city"`
	State                 string   `json:"state"`
	MedianHomeValue       *float64 `json:"median_home_value"`
	MedianHouseholdIncome *float64 `json:"median_household_income"`
	PerCapitaIncome       *float64 `json:"per_capita_income"`
}

func zipSummaryFrom(r livability.ZipRecord) zipSummary {
	return zipSummary{
		Zipcode:               r.Zipcode,
		City:                  r.City,
		State:                 r.State,
		MedianHomeValue:       r.MedianHomeValue,
		MedianHouseholdIncome: r.MedianHouseholdIncome,
		PerCapitaIncome:       r.PerCapitaIncome,
	}
}

type compareResponse struct {
	Zip1   zipSummary     `json:"zip1"`
	Zip2   zipSummary     `json:"zip2"`
	Higher map[string]int `json:"higher"`
}
