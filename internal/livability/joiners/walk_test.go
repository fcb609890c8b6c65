package joiners

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/livability/internal/livability"
	"github.com/i474232898/livability/internal/resilience"
)

var fastBackoff = resilience.BackoffConfig{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestWalkJoin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1 Market St, San Francisco", q.Get("address"))
		assert.Equal(t, "37.7725", q.Get("lat"))
		assert.Equal(t, "-122.4147", q.Get("lon"))
		assert.Equal(t, "1", q.Get("transit"))
		assert.Equal(t, "1", q.Get("bike"))
		assert.Equal(t, "secret", q.Get("wsapikey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": 1, "walkscore": 97, "description": "Walker's Paradise",
			"updated": "2024-01-01 00:00:00", "ws_link": "https://www.walkscore.com/score/x",
			"snapped_lat": 37.7725, "snapped_lon": -122.4145,
			"transit": {"score": 100, "description": "Rider's Paradise", "summary": "many lines"},
			"bike": {"score": 90, "description": "Biker's Paradise"}}`))
	}))
	defer srv.Close()

	j := NewWalk(srv.URL, "secret", srv.Client()).WithBackoff(fastBackoff)
	assert.Equal(t, livability.KindWalk, j.Kind())

	m, err := j.Join(context.Background(), request(fixtureReference(), 94103, "San Francisco", sf))
	require.NoError(t, err)

	rec := m.(*livability.WalkRecord)
	assert.Equal(t, 97.0, *rec.WalkScore)
	assert.Equal(t, "Walker's Paradise", rec.Description)
	require.NotNil(t, rec.Transit)
	assert.Equal(t, 100.0, *rec.Transit.Score)
	require.NotNil(t, rec.Bike)
	assert.Equal(t, 90.0, *rec.Bike.Score)
}

func TestWalkJoinFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		retries int32
	}{
		{name: "bad status field", status: http.StatusOK, body: `{"status": 40}`, retries: 1},
		{name: "invalid json", status: http.StatusOK, body: `not json`, retries: 1},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, retries: 1},
		{name: "server error", status: http.StatusInternalServerError, body: ``, retries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			j := NewWalk(srv.URL, "secret", srv.Client()).WithBackoff(fastBackoff)
			m, err := j.Join(context.Background(), request(fixtureReference(), 94103, "San Francisco", sf))
			assert.Error(t, err)
			assert.Nil(t, m)
			assert.NotErrorIs(t, err, livability.ErrNoData)
			assert.Equal(t, tt.retries, atomic.LoadInt32(&calls))
		})
	}
}

func TestWalkJoinWithoutKey(t *testing.T) {
	_, err := NewWalk("", "", nil).Join(context.Background(), request(nil, 94103, "San Francisco", sf))
	assert.Error(t, err)
}
