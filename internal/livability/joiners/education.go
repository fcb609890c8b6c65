package joiners

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/i474232898/livability/internal/common"
	"github.com/i474232898/livability/internal/livability"
)

// Education averages school CSR ranks for the matched ZIP.
type Education struct{}

// NewEducation creates a new Education joiner.
func NewEducation() *Education { return &Education{} }

func (*Education) Kind() livability.Kind { return livability.KindSchool }

func (*Education) Join(_ context.Context, req livability.JoinRequest) (livability.Metric, error) {
	if req.Ref == nil {
		return nil, livability.ErrReferenceUnavailable
	}
	zip := req.Match.Record.Zipcode
	ranks, ok := req.Ref.SchoolRanks[zip]
	if !ok || len(ranks) == 0 {
		return nil, eris.Wrapf(livability.ErrNoData, "education: no schools for zip %d", zip)
	}

	avg, ranked, ok := AverageRank(ranks)
	if !ok {
		return nil, eris.Wrapf(livability.ErrNoData, "education: no numeric ranks for zip %d", zip)
	}
	return &livability.SchoolRecord{
		Zipcode:       zip,
		AverageRank:   avg,
		RankedSchools: ranked,
		TotalSchools:  len(ranks),
	}, nil
}

// AverageRank averages the cells that are non-negative integer strings.
// Other cells count toward neither the sum nor the count; ok is false when
// no cell qualifies.
func AverageRank(cells []string) (avg float64, ranked int, ok bool) {
	var sum int64
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if !common.IsDigits(c) {
			continue
		}
		n, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			continue
		}
		sum += n
		ranked++
	}
	if ranked == 0 {
		return 0, 0, false
	}
	return float64(sum) / float64(ranked), ranked, true
}
