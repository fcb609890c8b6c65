package livability

import (
	"math"
)

// MatchData is the match section of the oracle payload.
type MatchData struct {
	Zipcode               int      `json:"zipcode"`
	City                  string   `json:"city"`
	State                 string   `json:"state"`
	Latitude              *float64 `json:"latitude,omitempty"`
	Longitude             *float64 `json:"longitude,omitempty"`
	DistanceMiles         int      `json:"distance_miles"`
	RecordID              int64    `json:"record_id"`
	MedianHomeValue       *float64 `json:"median_home_value,omitempty"`
	MedianHouseholdIncome *float64 `json:"median_household_income,omitempty"`
	PerCapitaIncome       *float64 `json:"per_capita_income,omitempty"`
	QueryLatitude         *float64 `json:"query_latitude,omitempty"`
	QueryLongitude        *float64 `json:"query_longitude,omitempty"`
}

// Payload is the user turn sent to the scoring oracle. Absent metrics are
// serialized as null.
type Payload struct {
	MatchData         MatchData          `json:"match_data"`
	SafetyData        map[string]any     `json:"safety_data"`
	WalkScore         *WalkRecord        `json:"walk_score"`
	HealthData        *HealthRecord      `json:"health_data"`
	EnvironmentalData *EnvironmentRecord `json:"environmental_data"`
	SchoolData        *SchoolRecord      `json:"school_data"`
}

// Aggregate shapes a match and its metrics into the oracle payload. Every
// numeric value ends up as a plain int or finite float; NaN and infinities
// are dropped, and a school or health record whose headline figure is not
// finite is treated as absent.
func Aggregate(match MatchResult, bundle *MetricBundle) Payload {
	r := match.Record
	p := Payload{
		MatchData: MatchData{
			Zipcode:               r.Zipcode,
			City:                  r.City,
			State:                 r.State,
			Latitude:              finiteValue(r.Coordinate.Lat),
			Longitude:             finiteValue(r.Coordinate.Lon),
			DistanceMiles:         match.DistanceMiles,
			RecordID:              r.RecordID,
			MedianHomeValue:       finite(r.MedianHomeValue),
			MedianHouseholdIncome: finite(r.MedianHouseholdIncome),
			PerCapitaIncome:       finite(r.PerCapitaIncome),
			QueryLatitude:         finiteValue(match.Query.Lat),
			QueryLongitude:        finiteValue(match.Query.Lon),
		},
	}
	if bundle == nil {
		return p
	}

	if s := bundle.Safety(); s != nil {
		p.SafetyData = portableMap(s)
	}
	if w := bundle.Walk(); w != nil {
		c := *w
		c.WalkScore = finite(c.WalkScore)
		c.SnappedLat = finite(c.SnappedLat)
		c.SnappedLon = finite(c.SnappedLon)
		c.Transit = finiteDetail(c.Transit)
		c.Bike = finiteDetail(c.Bike)
		p.WalkScore = &c
	}
	if h := bundle.Health(); h != nil && isFinite(h.RadiusMiles) {
		c := *h
		c.AvgAdverseEvents = finite(c.AvgAdverseEvents)
		c.AvgRiskAdjustedRate = finite(c.AvgRiskAdjustedRate)
		p.HealthData = &c
	}
	if e := bundle.Environment(); e != nil {
		c := EnvironmentRecord{
			OzoneLevel:           finite(e.OzoneLevel),
			PM25Level:            finite(e.PM25Level),
			DieselPMLevel:        finite(e.DieselPMLevel),
			DrinkingWaterQuality: finite(e.DrinkingWaterQuality),
			PesticidesLevel:      finite(e.PesticidesLevel),
			ToxRelease:           finite(e.ToxRelease),
		}
		p.EnvironmentalData = &c
	}
	if s := bundle.School(); s != nil && isFinite(s.AverageRank) {
		c := *s
		p.SchoolData = &c
	}
	return p
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finite(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return finiteValue(*v)
}

func finiteValue(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func finiteDetail(d *ScoreDetail) *ScoreDetail {
	if d == nil {
		return nil
	}
	c := *d
	c.Score = finite(c.Score)
	return &c
}

// portableMap copies a safety record keeping only JSON-native scalars.
func portableMap(in SafetyRecord) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case nil:
		case float64:
			if isFinite(t) {
				out[k] = t
			}
		case float32:
			f := float64(t)
			if isFinite(f) {
				out[k] = f
			}
		case int:
			out[k] = int64(t)
		case int32:
			out[k] = int64(t)
		case int64, bool, string:
			out[k] = t
		}
	}
	return out
}
