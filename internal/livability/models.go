package livability

import (
	"math"
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite and within Earth ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Location is a geocoded address.
type Location struct {
	Coordinate
	// DisplayName is the provider's canonical spelling of the address, if any.
	DisplayName string
	Provider    string
}

// ZipRecord is one row of the reference ZIP table.
type ZipRecord struct {
	Zipcode               int
	City                  string
	State                 string
	Coordinate            Coordinate
	MedianHomeValue       *float64
	MedianHouseholdIncome *float64
	PerCapitaIncome       *float64
	RecordID              int64
}

// MatchResult is the nearest reference ZIP record within the distance threshold.
type MatchResult struct {
	Record ZipRecord
	Query  Coordinate
	// DistanceMiles is the geodesic distance rounded half-to-even.
	DistanceMiles int
	// RawDistanceMiles is the unrounded distance used for the threshold test.
	RawDistanceMiles float64
}

// Kind names a metric joiner.
type Kind string

const (
	KindSafety      Kind = "safety"
	KindWalk        Kind = "walk"
	KindEnvironment Kind = "environment"
	KindSchool      Kind = "school"
	KindHealth      Kind = "health"
)

// Kinds lists every joiner kind in payload order.
var Kinds = []Kind{KindSafety, KindWalk, KindEnvironment, KindSchool, KindHealth}

// Metric is a structured record produced by one joiner.
type Metric interface {
	Kind() Kind
}

// SafetyRecord is the merged offenses and law-enforcement row for a city.
// Values are portable scalars (int64, float64, bool, string).
type SafetyRecord map[string]any

func (SafetyRecord) Kind() Kind { return KindSafety }

// WalkRecord mirrors the Walk Score API response.
type WalkRecord struct {
	Status      int          `json:"status"`
	WalkScore   *float64     `json:"walkscore,omitempty"`
	Description string       `json:"description,omitempty"`
	Updated     string       `json:"updated,omitempty"`
	WSLink      string       `json:"ws_link,omitempty"`
	SnappedLat  *float64     `json:"snapped_lat,omitempty"`
	SnappedLon  *float64     `json:"snapped_lon,omitempty"`
	Transit     *ScoreDetail `json:"transit,omitempty"`
	Bike        *ScoreDetail `json:"bike,omitempty"`
}

func (*WalkRecord) Kind() Kind { return KindWalk }

// ScoreDetail is a transit or bike sub-score.
type ScoreDetail struct {
	Score       *float64 `json:"score,omitempty"`
	Description string   `json:"description,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// EnvironmentRecord holds the six environmental indicators for a ZIP.
type EnvironmentRecord struct {
	OzoneLevel           *float64 `json:"ozone_level,omitempty"`
	PM25Level            *float64 `json:"pm25_level,omitempty"`
	DieselPMLevel        *float64 `json:"diesel_pm_level,omitempty"`
	DrinkingWaterQuality *float64 `json:"drinking_water_quality,omitempty"`
	PesticidesLevel      *float64 `json:"pesticides_level,omitempty"`
	ToxRelease           *float64 `json:"tox_release,omitempty"`
}

func (*EnvironmentRecord) Kind() Kind { return KindEnvironment }

// SchoolRecord is the averaged school-quality rank for a ZIP.
type SchoolRecord struct {
	Zipcode       int     `json:"zipcode"`
	AverageRank   float64 `json:"average_rank"`
	RankedSchools int     `json:"ranked_schools"`
	TotalSchools  int     `json:"total_schools"`
}

func (*SchoolRecord) Kind() Kind { return KindSchool }

// HealthRecord averages hospital quality metrics around a coordinate.
type HealthRecord struct {
	AvgAdverseEvents    *float64 `json:"avg_adverse_events,omitempty"`
	AvgRiskAdjustedRate *float64 `json:"avg_risk_adjusted_rate,omitempty"`
	HospitalCount       int      `json:"hospital_count"`
	RadiusMiles         float64  `json:"radius_miles"`
}

func (*HealthRecord) Kind() Kind { return KindHealth }

// MetricBundle holds one entry per joiner kind. An entry is either a metric or
// absent; absent entries keep the reason so it can be logged and tested.
type MetricBundle struct {
	metrics map[Kind]Metric
	reasons map[Kind]error
}

// NewMetricBundle returns an empty bundle where every kind is absent.
func NewMetricBundle() *MetricBundle {
	return &MetricBundle{
		metrics: make(map[Kind]Metric),
		reasons: make(map[Kind]error),
	}
}

// Set records the outcome of one joiner. A nil metric with a nil error is
// recorded as absent with ErrNoData.
func (b *MetricBundle) Set(k Kind, m Metric, err error) {
	if err == nil && m != nil {
		b.metrics[k] = m
		delete(b.reasons, k)
		return
	}
	delete(b.metrics, k)
	if err == nil {
		err = ErrNoData
	}
	b.reasons[k] = err
}

// Get returns the metric for a kind, if present.
func (b *MetricBundle) Get(k Kind) (Metric, bool) {
	m, ok := b.metrics[k]
	return m, ok
}

// Reason returns why a kind is absent, or nil when it is present or unset.
func (b *MetricBundle) Reason(k Kind) error {
	return b.reasons[k]
}

// Present lists the kinds that carry a metric, in Kinds order.
func (b *MetricBundle) Present() []Kind {
	var out []Kind
	for _, k := range Kinds {
		if _, ok := b.metrics[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (b *MetricBundle) Safety() SafetyRecord {
	m, _ := b.metrics[KindSafety].(SafetyRecord)
	return m
}

func (b *MetricBundle) Walk() *WalkRecord {
	m, _ := b.metrics[KindWalk].(*WalkRecord)
	return m
}

func (b *MetricBundle) Environment() *EnvironmentRecord {
	m, _ := b.metrics[KindEnvironment].(*EnvironmentRecord)
	return m
}

func (b *MetricBundle) School() *SchoolRecord {
	m, _ := b.metrics[KindSchool].(*SchoolRecord)
	return m
}

func (b *MetricBundle) Health() *HealthRecord {
	m, _ := b.metrics[KindHealth].(*HealthRecord)
	return m
}

// ScoreResult is the oracle's verdict.
type ScoreResult struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}
