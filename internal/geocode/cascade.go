package geocode

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/i474232898/livability/internal/livability"
)

// Provider is a named geocoder.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (livability.Location, error)
}

// Cascade tries each provider in order and returns the first hit.
type Cascade struct {
	providers []Provider
}

// NewCascade creates a new Cascade. Nil providers are skipped.
func NewCascade(providers ...Provider) *Cascade {
	c := &Cascade{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Providers lists the configured provider names in order.
func (c *Cascade) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

func (c *Cascade) Geocode(ctx context.Context, address string) (livability.Location, error) {
	if len(c.providers) == 0 {
		return livability.Location{}, eris.New("geocode: no providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		loc, err := p.Geocode(ctx, address)
		if err == nil {
			return loc, nil
		}
		if errors.Is(err, livability.ErrEmptyQuery) {
			return livability.Location{}, err
		}
		zap.L().Debug("geocoder miss", zap.String("provider", p.Name()), zap.Error(err))
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return livability.Location{}, eris.Wrap(errors.Join(errs...), "geocode: all providers failed")
}
