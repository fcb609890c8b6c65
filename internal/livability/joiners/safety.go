// Package joiners maps a matched ZIP record to the per-source metric records
// the scoring payload is built from.
package joiners

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/i474232898/livability/internal/common"
	"github.com/i474232898/livability/internal/livability"
)

// Safety joins the offenses and law-enforcement tables on city name.
type Safety struct{}

// NewSafety creates a new Safety joiner.
func NewSafety() *Safety { return &Safety{} }

func (*Safety) Kind() livability.Kind { return livability.KindSafety }

// Join returns the merged row for the match's city. The city must appear in
// both tables; law-enforcement values win when a column exists in both.
func (*Safety) Join(_ context.Context, req livability.JoinRequest) (livability.Metric, error) {
	if req.Ref == nil {
		return nil, livability.ErrReferenceUnavailable
	}
	city := common.NormalizeCity(req.Match.Record.City)
	if city == "" {
		return nil, eris.Wrap(livability.ErrNoData, "safety: empty city")
	}

	offenses, ok := req.Ref.Offenses[city]
	if !ok {
		return nil, eris.Wrapf(livability.ErrNoData, "safety: no offenses row for %q", city)
	}
	law, ok := req.Ref.LawEnforcement[city]
	if !ok {
		return nil, eris.Wrapf(livability.ErrNoData, "safety: no law enforcement row for %q", city)
	}

	return MergeSafety(offenses, law), nil
}

// MergeSafety overlays law onto offenses and converts every cell to a
// portable scalar. Missing cells are omitted, so a missing law-enforcement
// value also removes the offenses value of the same column.
func MergeSafety(offenses, law livability.Row) livability.SafetyRecord {
	out := make(livability.SafetyRecord, len(offenses)+len(law))
	for k, raw := range offenses {
		if v, ok := common.PortableScalar(raw); ok {
			out[k] = v
		}
	}
	for k, raw := range law {
		if v, ok := common.PortableScalar(raw); ok {
			out[k] = v
		} else {
			delete(out, k)
		}
	}
	return out
}
