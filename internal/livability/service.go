package livability

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Geocoder resolves a free-text address to a location.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Location, error)
}

// Oracle turns a system prompt and a user turn into free text.
type Oracle interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// ReferenceSource yields the current reference snapshot.
type ReferenceSource interface {
	Current() (*Reference, error)
}

// Score bounds accepted from the oracle.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Evaluation is the outcome of one pipeline run.
type Evaluation struct {
	RunID    string
	Query    string
	Location Location
	Match    MatchResult
	Bundle   *MetricBundle
	Payload  Payload
	Score    ScoreResult
}

// Service orchestrates geocoding, matching, the joiner fan-out, aggregation
// and scoring.
type Service struct {
	refs     ReferenceSource
	geocoder Geocoder
	oracle   Oracle
	joiners  []Joiner

	maxMatchMiles   float64
	geocoderTimeout time.Duration
	joinerTimeout   time.Duration
	oracleTimeout   time.Duration
	systemPrompt    string
}

// Option configures a Service.
type Option func(*Service)

// WithMaxMatchMiles sets the ZIP match threshold.
func WithMaxMatchMiles(miles float64) Option {
	return func(s *Service) {
		s.maxMatchMiles = miles
	}
}

// WithTimeouts bounds the geocoder, each joiner and the oracle. Zero leaves
// the corresponding call unbounded beyond the caller's context.
func WithTimeouts(geocoder, joiner, oracle time.Duration) Option {
	return func(s *Service) {
		s.geocoderTimeout = geocoder
		s.joinerTimeout = joiner
		s.oracleTimeout = oracle
	}
}

// WithSystemPrompt sets the fixed system turn sent to the oracle.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) {
		s.systemPrompt = prompt
	}
}

// NewService creates a new Service.
func NewService(refs ReferenceSource, geocoder Geocoder, oracle Oracle, joiners []Joiner, opts ...Option) *Service {
	s := &Service{
		refs:          refs,
		geocoder:      geocoder,
		oracle:        oracle,
		joiners:       joiners,
		maxMatchMiles: DefaultMaxMatchMiles,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate runs the full pipeline for a free-text address.
func (s *Service) Evaluate(ctx context.Context, query string) (*Evaluation, error) {
	ev := &Evaluation{RunID: uuid.NewString(), Query: strings.TrimSpace(query)}
	log := zap.L().With(zap.String("run_id", ev.RunID))

	ref, loc, match, err := s.Locate(ctx, ev.Query)
	if err != nil {
		log.Info("location lookup failed", zap.String("query", ev.Query), zap.Error(err))
		return nil, err
	}
	ev.Location = loc
	ev.Match = *match

	log.Info("matched zipcode",
		zap.Int("zipcode", match.Record.Zipcode),
		zap.String("city", match.Record.City),
		zap.Int("distance_miles", match.DistanceMiles),
	)

	address := loc.DisplayName
	if address == "" {
		address = ev.Query
	}
	ev.Bundle = s.Collect(ctx, JoinRequest{Ref: ref, Match: *match, Address: address})
	ev.Payload = Aggregate(*match, ev.Bundle)

	score, err := s.Score(ctx, ev.Payload)
	if err != nil {
		log.Error("scoring failed", zap.Error(err))
		return nil, err
	}
	ev.Score = *score

	log.Info("scored location", zap.Float64("score", score.Score))
	return ev, nil
}

// Locate geocodes the query and matches it to the nearest reference ZIP.
// Every failure other than missing reference data is a client input error.
func (s *Service) Locate(ctx context.Context, query string) (*Reference, Location, *MatchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, Location{}, nil, ErrEmptyQuery
	}

	ref, err := s.refs.Current()
	if err != nil {
		return nil, Location{}, nil, eris.Wrap(ErrReferenceUnavailable, err.Error())
	}

	gctx, cancel := withOptionalTimeout(ctx, s.geocoderTimeout)
	loc, err := s.geocoder.Geocode(gctx, query)
	cancel()
	if err != nil {
		return nil, Location{}, nil, eris.Wrap(ErrLocationNotFound, err.Error())
	}

	match, err := ref.Zips.Nearest(loc.Coordinate, s.maxMatchMiles)
	if err != nil {
		return nil, loc, nil, eris.Wrap(ErrLocationNotFound, err.Error())
	}
	return ref, loc, match, nil
}

// Collect runs every joiner concurrently and records each outcome. A failing
// joiner leaves its metric absent and never blocks the others.
func (s *Service) Collect(ctx context.Context, req JoinRequest) *MetricBundle {
	type outcome struct {
		metric Metric
		err    error
	}
	outcomes := make([]outcome, len(s.joiners))

	var g errgroup.Group
	for i, j := range s.joiners {
		g.Go(func() error {
			jctx, cancel := withOptionalTimeout(ctx, s.joinerTimeout)
			defer cancel()
			m, err := j.Join(jctx, req)
			outcomes[i] = outcome{metric: m, err: err}
			return nil
		})
	}
	_ = g.Wait()

	bundle := NewMetricBundle()
	for i, j := range s.joiners {
		o := outcomes[i]
		bundle.Set(j.Kind(), o.metric, o.err)
		switch {
		case o.err == nil && o.metric != nil:
		case o.err == nil || errors.Is(o.err, ErrNoData):
			zap.L().Debug("joiner found no data", zap.String("joiner", string(j.Kind())), zap.Error(o.err))
		default:
			zap.L().Warn("joiner failed", zap.String("joiner", string(j.Kind())), zap.Error(o.err))
		}
	}
	return bundle
}

// Score sends the payload to the oracle and extracts the verdict. Any failure
// here is a request-level error wrapping ErrScoring.
func (s *Service) Score(ctx context.Context, payload Payload) (*ScoreResult, error) {
	if s.oracle == nil {
		return nil, eris.Wrap(ErrScoring, "no oracle configured")
	}

	user, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(ErrScoring, "marshal payload: "+err.Error())
	}

	octx, cancel := withOptionalTimeout(ctx, s.oracleTimeout)
	defer cancel()

	reply, err := s.oracle.Complete(octx, s.systemPrompt, string(user))
	if err != nil {
		return nil, eris.Wrap(ErrScoring, s.oracle.Name()+": "+err.Error())
	}
	zap.L().Debug("oracle reply", zap.String("oracle", s.oracle.Name()), zap.String("reply", reply))

	result, err := ExtractScore(reply)
	if err != nil {
		return nil, eris.Wrap(ErrScoring, err.Error())
	}
	if result.Score < MinScore || result.Score > MaxScore {
		return nil, eris.Wrapf(ErrScoring, "%v: %v", ErrScoreOutOfRange, result.Score)
	}
	return result, nil
}

// Nearest matches a coordinate against the current reference snapshot.
func (s *Service) Nearest(q Coordinate, maxMiles float64) (*MatchResult, error) {
	if !q.Valid() {
		return nil, ErrInvalidCoordinate
	}
	ref, err := s.refs.Current()
	if err != nil {
		return nil, eris.Wrap(ErrReferenceUnavailable, err.Error())
	}
	if maxMiles <= 0 {
		maxMiles = s.maxMatchMiles
	}
	match, err := ref.Zips.Nearest(q, maxMiles)
	if err != nil {
		return nil, eris.Wrap(ErrLocationNotFound, err.Error())
	}
	return match, nil
}

// ZipComparison contrasts the economic context of two ZIP codes.
type ZipComparison struct {
	First  ZipRecord
	Second ZipRecord
	// Higher names the ZIP with the larger value per metric; 0 when tied or unknown.
	Higher map[string]int
}

// CompareZips looks up two ZIP codes and compares their economic fields.
func (s *Service) CompareZips(a, b int) (*ZipComparison, error) {
	ref, err := s.refs.Current()
	if err != nil {
		return nil, eris.Wrap(ErrReferenceUnavailable, err.Error())
	}
	first, ok := ref.Zips.Lookup(a)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownZip, "%d", a)
	}
	second, ok := ref.Zips.Lookup(b)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownZip, "%d", b)
	}

	cmp := &ZipComparison{First: first, Second: second, Higher: make(map[string]int)}
	cmp.Higher["median_home_value"] = higher(a, b, first.MedianHomeValue, second.MedianHomeValue)
	cmp.Higher["median_household_income"] = higher(a, b, first.MedianHouseholdIncome, second.MedianHouseholdIncome)
	cmp.Higher["per_capita_income"] = higher(a, b, first.PerCapitaIncome, second.PerCapitaIncome)
	return cmp, nil
}

func higher(a, b int, va, vb *float64) int {
	switch {
	case va == nil || vb == nil || *va == *vb:
		return 0
	case *va > *vb:
		return a
	default:
		return b
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
