package joiners

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/i474232898/livability/internal/livability"
)

// DefaultHospitalRadiusMiles bounds the hospital neighbourhood.
const DefaultHospitalRadiusMiles = 20.0

// Health averages hospital quality metrics around the matched ZIP centroid.
type Health struct {
	radiusMiles float64
}

// NewHealth creates a new Health joiner. A non-positive radius uses the default.
func NewHealth(radiusMiles float64) *Health {
	if radiusMiles <= 0 {
		radiusMiles = DefaultHospitalRadiusMiles
	}
	return &Health{radiusMiles: radiusMiles}
}

func (*Health) Kind() livability.Kind { return livability.KindHealth }

func (h *Health) Join(ctx context.Context, req livability.JoinRequest) (livability.Metric, error) {
	if req.Ref == nil || req.Ref.Hospitals == nil {
		return nil, livability.ErrReferenceUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nearby := req.Ref.Hospitals.Within(req.Match.Record.Coordinate, h.radiusMiles)
	if len(nearby) == 0 {
		return nil, eris.Wrapf(livability.ErrNoData, "health: no hospitals within %.0f miles", h.radiusMiles)
	}

	var events, rates []float64
	for _, hosp := range nearby {
		if hosp.AdverseEvents != nil {
			events = append(events, *hosp.AdverseEvents)
		}
		if hosp.RiskAdjustedRate != nil {
			rates = append(rates, *hosp.RiskAdjustedRate)
		}
	}

	return &livability.HealthRecord{
		AvgAdverseEvents:    mean(events),
		AvgRiskAdjustedRate: mean(rates),
		HospitalCount:       len(nearby),
		RadiusMiles:         h.radiusMiles,
	}, nil
}

func mean(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	m := sum / float64(len(vs))
	return &m
}
