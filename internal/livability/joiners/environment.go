package joiners

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/i474232898/livability/internal/livability"
)

// Environment looks up the environmental indicators for the matched ZIP.
type Environment struct{}

// NewEnvironment creates a new Environment joiner.
func NewEnvironment() *Environment { return &Environment{} }

func (*Environment) Kind() livability.Kind { return livability.KindEnvironment }

func (*Environment) Join(_ context.Context, req livability.JoinRequest) (livability.Metric, error) {
	if req.Ref == nil {
		return nil, livability.ErrReferenceUnavailable
	}
	rec, ok := req.Ref.Environment[req.Match.Record.Zipcode]
	if !ok {
		return nil, eris.Wrapf(livability.ErrNoData, "environment: no row for zip %d", req.Match.Record.Zipcode)
	}
	return &rec, nil
}
