package joiners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/livability/internal/livability"
)

func f(v float64) *float64 { return &v }

func fixtureReference() *livability.Reference {
	return &livability.Reference{
		Zips: livability.NewZipIndex(nil),
		Offenses: map[string]livability.Row{
			"San Francisco": {"City": "San Francisco", "Population": "870,887", "Violent crime": "6,000", "Arson": "", "Burglary": "4800"},
			"Oakland":       {"City": "Oakland", "Population": "420005"},
		},
		LawEnforcement: map[string]livability.Row{
			"San Francisco": {"City": "San Francisco", "Population": "870887", "Total officers": "2300", "Burglary": "n/a"},
		},
		Environment: map[int]livability.EnvironmentRecord{
			94103: {OzoneLevel: f(0.035), PM25Level: f(8.9), ToxRelease: f(120.5)},
		},
		SchoolRanks: map[int][]string{
			94103: {"12", "abc", "8"},
			94104: {"", "n/a"},
		},
		Hospitals: livability.NewHospitalIndex([]livability.Hospital{
			{Name: "General", Coordinate: livability.Coordinate{Lat: 37.755, Lon: -122.405}, AdverseEvents: f(4), RiskAdjustedRate: f(2.0)},
			{Name: "Mission", Coordinate: livability.Coordinate{Lat: 37.76, Lon: -122.42}, AdverseEvents: f(8)},
			{Name: "Fresno", Coordinate: livability.Coordinate{Lat: 36.74, Lon: -119.79}, AdverseEvents: f(100), RiskAdjustedRate: f(9.0)},
		}),
	}
}

func request(ref *livability.Reference, zip int, city string, c livability.Coordinate) livability.JoinRequest {
	return livability.JoinRequest{
		Ref: ref,
		Match: livability.MatchResult{
			Record: livability.ZipRecord{Zipcode: zip, City: city, State: "CA", Coordinate: c},
			Query:  c,
		},
		Address: "1 Market St, San Francisco",
	}
}

var sf = livability.Coordinate{Lat: 37.7725, Lon: -122.4147}

func TestSafetyJoin(t *testing.T) {
	ref := fixtureReference()
	j := NewSafety()
	assert.Equal(t, livability.KindSafety, j.Kind())

	m, err := j.Join(context.Background(), request(ref, 94103, "san  francisco", sf))
	require.NoError(t, err)

	rec := m.(livability.SafetyRecord)
	assert.Equal(t, "San Francisco", rec["City"])
	assert.Equal(t, int64(870887), rec["Population"])
	assert.Equal(t, int64(6000), rec["Violent crime"])
	assert.Equal(t, int64(2300), rec["Total officers"])
	assert.NotContains(t, rec, "Arson")
	assert.NotContains(t, rec, "Burglary")
}

func TestSafetyJoinRequiresBothTables(t *testing.T) {
	ref := fixtureReference()

	_, err := NewSafety().Join(context.Background(), request(ref, 94601, "Oakland", sf))
	assert.ErrorIs(t, err, livability.ErrNoData)

	_, err = NewSafety().Join(context.Background(), request(ref, 90012, "Los Angeles", sf))
	assert.ErrorIs(t, err, livability.ErrNoData)

	_, err = NewSafety().Join(context.Background(), request(ref, 90012, "", sf))
	assert.ErrorIs(t, err, livability.ErrNoData)
}

func TestEnvironmentJoin(t *testing.T) {
	ref := fixtureReference()

	m, err := NewEnvironment().Join(context.Background(), request(ref, 94103, "San Francisco", sf))
	require.NoError(t, err)
	rec := m.(*livability.EnvironmentRecord)
	assert.Equal(t, 0.035, *rec.OzoneLevel)
	assert.Nil(t, rec.DieselPMLevel)

	_, err = NewEnvironment().Join(context.Background(), request(ref, 10001, "New York", sf))
	assert.ErrorIs(t, err, livability.ErrNoData)
}

func TestAverageRank(t *testing.T) {
	avg, ranked, ok := AverageRank([]string{"12", "abc", "8"})
	require.True(t, ok)
	assert.Equal(t, 10.0, avg)
	assert.Equal(t, 2, ranked)

	avg, ranked, ok = AverageRank([]string{" 3 ", "-4", "2.5", "5"})
	require.True(t, ok)
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 2, ranked)

	_, _, ok = AverageRank([]string{"", "n/a"})
	assert.False(t, ok)

	_, _, ok = AverageRank(nil)
	assert.False(t, ok)
}

func TestEducationJoin(t *testing.T) {
	ref := fixtureReference()

	m, err := NewEducation().Join(context.Background(), request(ref, 94103, "San Francisco", sf))
	require.NoError(t, err)
	rec := m.(*livability.SchoolRecord)
	assert.Equal(t, 10.0, rec.AverageRank)
	assert.Equal(t, 2, rec.RankedSchools)
	assert.Equal(t, 3, rec.TotalSchools)

	_, err = NewEducation().Join(context.Background(), request(ref, 94104, "San Francisco", sf))
	assert.ErrorIs(t, err, livability.ErrNoData)

	_, err = NewEducation().Join(context.Background(), request(ref, 10001, "New York", sf))
	assert.ErrorIs(t, err, livability.ErrNoData)
}

func TestHealthJoin(t *testing.T) {
	ref := fixtureReference()

	m, err := NewHealth(0).Join(context.Background(), request(ref, 94103, "San Francisco", sf))
	require.NoError(t, err)
	rec := m.(*livability.HealthRecord)
	assert.Equal(t, 2, rec.HospitalCount)
	assert.Equal(t, DefaultHospitalRadiusMiles, rec.RadiusMiles)
	assert.Equal(t, 6.0, *rec.AvgAdverseEvents)
	assert.Equal(t, 2.0, *rec.AvgRiskAdjustedRate)

	remote := livability.Coordinate{Lat: 41.5, Lon: -124.0}
	_, err = NewHealth(20).Join(context.Background(), request(ref, 95501, "Eureka", remote))
	assert.ErrorIs(t, err, livability.ErrNoData)
}

func TestJoinersWithoutReference(t *testing.T) {
	req := request(nil, 94103, "San Francisco", sf)
	for _, j := range []livability.Joiner{NewSafety(), NewEnvironment(), NewEducation(), NewHealth(0)} {
		_, err := j.Join(context.Background(), req)
		assert.ErrorIs(t, err, livability.ErrReferenceUnavailable, string(j.Kind()))
	}
}
