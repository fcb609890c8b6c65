// Package geocode resolves free-text addresses to coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/livability/internal/livability"
	"github.com/i474232898/livability/internal/resilience"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// DefaultUserAgent identifies the service to Nominatim, which rejects
// anonymous clients.
const DefaultUserAgent = "livability-score/1.0"

// ErrNoResults means the provider answered but found nothing.
var ErrNoResults = errors.New("no geocoding results")

// NominatimConfig configures the Nominatim client.
type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	// RatePerSecond throttles outgoing requests; zero disables throttling.
	RatePerSecond float64
	Client        *http.Client
	Backoff       resilience.BackoffConfig
}

// Nominatim geocodes through the OpenStreetMap Nominatim search API.
type Nominatim struct {
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	cfg       resilience.HTTPClientConfig
	cb        *gobreaker.CircuitBreaker
}

// NewNominatim creates a new Nominatim client.
func NewNominatim(c NominatimConfig) *Nominatim {
	n := &Nominatim{
		baseURL:   strings.TrimRight(c.BaseURL, "/"),
		userAgent: c.UserAgent,
		cfg: resilience.HTTPClientConfig{
			Client:  c.Client,
			Backoff: c.Backoff,
		},
		cb: resilience.NewBreaker("nominatim"),
	}
	if n.baseURL == "" {
		n.baseURL = DefaultNominatimURL
	}
	if n.userAgent == "" {
		n.userAgent = DefaultUserAgent
	}
	if n.cfg.Client == nil {
		n.cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if n.cfg.Backoff.InitialInterval <= 0 {
		n.cfg.Backoff = resilience.DefaultBackoff
	}
	if c.RatePerSecond > 0 {
		n.limiter = rate.NewLimiter(rate.Limit(c.RatePerSecond), 1)
	}
	return n
}

func (*Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the first Nominatim result for address.
func (n *Nominatim) Geocode(ctx context.Context, address string) (livability.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return livability.Location{}, livability.ErrEmptyQuery
	}
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return livability.Location{}, eris.Wrap(err, "nominatim: rate limit wait")
		}
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	endpoint := n.baseURL + "/search?" + params.Encode()

	resp, err := resilience.Do(ctx, n.cfg, n.cb, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", n.userAgent)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return livability.Location{}, eris.Wrap(err, "nominatim: search")
	}
	defer resp.Body.Close()

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return livability.Location{}, eris.Wrap(err, "nominatim: decode response")
	}
	if len(places) == 0 {
		return livability.Location{}, ErrNoResults
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return livability.Location{}, eris.Wrap(err, "nominatim: parse latitude")
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return livability.Location{}, eris.Wrap(err, "nominatim: parse longitude")
	}
	loc := livability.Location{
		Coordinate:  livability.Coordinate{Lat: lat, Lon: lon},
		DisplayName: places[0].DisplayName,
		Provider:    n.Name(),
	}
	if !loc.Valid() {
		return livability.Location{}, livability.ErrInvalidCoordinate
	}
	return loc, nil
}
