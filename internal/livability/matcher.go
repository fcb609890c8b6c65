package livability

import (
	"math"

	"github.com/rotisserie/eris"
)

// DefaultMaxMatchMiles is the default distance threshold for Match.
const DefaultMaxMatchMiles = 10.0

// Match scans records for the one closest to q. Ties go to the record that
// appears first. ErrNoMatch is returned when the closest record is farther
// than maxMiles or records is empty.
func Match(records []ZipRecord, q Coordinate, maxMiles float64) (*MatchResult, error) {
	return matchCandidates(records, nil, q, maxMiles)
}

// matchCandidates applies the selection rule to the given record indexes,
// which must be ascending. A nil slice means every record.
func matchCandidates(records []ZipRecord, candidates []int, q Coordinate, maxMiles float64) (*MatchResult, error) {
	if !q.Valid() {
		return nil, eris.Wrapf(ErrInvalidCoordinate, "match: query (%v, %v)", q.Lat, q.Lon)
	}
	if math.IsNaN(maxMiles) || maxMiles < 0 {
		return nil, eris.Errorf("match: invalid threshold %v", maxMiles)
	}

	best := -1
	bestDist := math.Inf(1)
	consider := func(i int) {
		c := records[i].Coordinate
		if !c.Valid() {
			return
		}
		d := DistanceMiles(q, c)
		if math.IsNaN(d) {
			return
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if candidates == nil {
		for i := range records {
			consider(i)
		}
	} else {
		for _, i := range candidates {
			consider(i)
		}
	}

	if best < 0 || bestDist > maxMiles {
		return nil, ErrNoMatch
	}

	return &MatchResult{
		Record:           records[best],
		Query:            q,
		DistanceMiles:    int(math.RoundToEven(bestDist)),
		RawDistanceMiles: bestDist,
	}, nil
}
