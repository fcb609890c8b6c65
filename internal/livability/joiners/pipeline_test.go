package joiners

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/livability/internal/livability"
)

type snapshot struct{ ref *livability.Reference }

func (s snapshot) Current() (*livability.Reference, error) { return s.ref, nil }

type stubGeocoder struct{ loc livability.Location }

func (g stubGeocoder) Geocode(context.Context, string) (livability.Location, error) {
	return g.loc, nil
}

type stubOracle struct{ reply string }

func (stubOracle) Name() string { return "stub" }

func (o stubOracle) Complete(context.Context, string, string) (string, error) {
	return o.reply, nil
}

func TestEvaluateWithEveryJoiner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": 1, "walkscore": 97, "description": "Walker's Paradise"}`))
	}))
	defer srv.Close()

	ref := fixtureReference()
	ref.Zips = livability.NewZipIndex([]livability.ZipRecord{
		{Zipcode: 94103, City: "SAN FRANCISCO", State: "CA", Coordinate: sf, RecordID: 1},
	})
	loc := livability.Location{
		Coordinate:  livability.Coordinate{Lat: 37.775, Lon: -122.418},
		DisplayName: "1 Market St, San Francisco, CA",
		Provider:    "stub",
	}

	js := []livability.Joiner{
		NewSafety(),
		NewWalk(srv.URL, "secret", srv.Client()).WithBackoff(fastBackoff),
		NewEnvironment(),
		NewEducation(),
		NewHealth(0),
	}
	svc := livability.NewService(snapshot{ref: ref}, stubGeocoder{loc: loc},
		stubOracle{reply: "Reasoning...\n{\"score\": 82, \"explanation\": \"Good area\"}"}, js)

	ev, err := svc.Evaluate(context.Background(), "1 Market St, San Francisco, CA")
	require.NoError(t, err)

	assert.ElementsMatch(t, livability.Kinds, ev.Bundle.Present())
	for _, k := range livability.Kinds {
		assert.NoError(t, ev.Bundle.Reason(k), k)
	}
	assert.GreaterOrEqual(t, ev.Score.Score, float64(livability.MinScore))
	assert.LessOrEqual(t, ev.Score.Score, float64(livability.MaxScore))
	assert.Equal(t, 82.0, ev.Score.Score)
	assert.NotEmpty(t, ev.Score.Explanation)

	require.NotNil(t, ev.Payload.SchoolData)
	assert.Equal(t, 10.0, ev.Payload.SchoolData.AverageRank)
	require.NotNil(t, ev.Payload.HealthData)
	assert.Equal(t, 2, ev.Payload.HealthData.HospitalCount)
}
