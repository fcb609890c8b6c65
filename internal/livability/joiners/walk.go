package joiners

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"

	"github.com/i474232898/livability/internal/livability"
	"github.com/i474232898/livability/internal/resilience"
)

// DefaultWalkScoreURL is the Walk Score scoring endpoint.
const DefaultWalkScoreURL = "https://api.walkscore.com/score"

// walkStatusOK is the Walk Score status code for a successful score.
const walkStatusOK = 1

// Walk calls the Walk Score API for the matched ZIP centroid.
type Walk struct {
	baseURL string
	apiKey  string
	cfg     resilience.HTTPClientConfig
	cb      *gobreaker.CircuitBreaker
}

// NewWalk creates a new Walk joiner.
func NewWalk(baseURL, apiKey string, client *http.Client) *Walk {
	if baseURL == "" {
		baseURL = DefaultWalkScoreURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Walk{
		baseURL: baseURL,
		apiKey:  apiKey,
		cfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff,
		},
		cb: resilience.NewBreaker("walkscore"),
	}
}

// WithBackoff overrides the retry policy.
func (w *Walk) WithBackoff(b resilience.BackoffConfig) *Walk {
	w.cfg.Backoff = b
	return w
}

func (*Walk) Kind() livability.Kind { return livability.KindWalk }

func (w *Walk) Join(ctx context.Context, req livability.JoinRequest) (livability.Metric, error) {
	if w.apiKey == "" {
		return nil, eris.New("walk: api key not configured")
	}
	c := req.Match.Record.Coordinate

	params := url.Values{}
	params.Set("format", "json")
	params.Set("address", req.Address)
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	params.Set("transit", "1")
	params.Set("bike", "1")
	params.Set("wsapikey", w.apiKey)
	endpoint := w.baseURL + "?" + params.Encode()

	resp, err := resilience.Do(ctx, w.cfg, w.cb, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, eris.Wrap(err, "walk: request")
	}
	defer resp.Body.Close()

	var rec livability.WalkRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, eris.Wrap(err, "walk: decode response")
	}
	if rec.Status != walkStatusOK {
		return nil, eris.Errorf("walk: status %d", rec.Status)
	}
	return &rec, nil
}
