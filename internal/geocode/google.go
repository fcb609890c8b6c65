package geocode

import (
	"context"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rotisserie/eris"

	"github.com/i474232898/livability/internal/livability"
)

// The geocoder package keeps its API key in a package variable.
var googleKeyMu sync.Mutex

// Google geocodes through the Google Maps Geocoding API.
type Google struct {
	apiKey string
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogle creates a new Google client.
func NewGoogle(apiKey string) *Google {
	return &Google{apiKey: apiKey, lookup: geocoder.Geocoding}
}

func (*Google) Name() string { return "google" }

// Geocode resolves address with the Google Geocoding API. The underlying call
// does not take a context, so cancellation abandons it rather than stopping it.
func (g *Google) Geocode(ctx context.Context, address string) (livability.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return livability.Location{}, livability.ErrEmptyQuery
	}
	if g.apiKey == "" {
		return livability.Location{}, eris.New("google: api key not configured")
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		googleKeyMu.Lock()
		defer googleKeyMu.Unlock()
		geocoder.ApiKey = g.apiKey
		loc, err := g.lookup(geocoder.Address{Street: address})
		done <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return livability.Location{}, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return livability.Location{}, eris.Wrap(r.err, "google: geocode")
		}
		loc := livability.Location{
			Coordinate: livability.Coordinate{Lat: r.loc.Latitude, Lon: r.loc.Longitude},
			Provider:   g.Name(),
		}
		if !loc.Valid() || (loc.Lat == 0 && loc.Lon == 0) {
			return livability.Location{}, ErrNoResults
		}
		return loc, nil
	}
}
