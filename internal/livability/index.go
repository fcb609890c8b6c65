package livability

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// minMilesPerDegree is a lower bound on the length of one degree of latitude
// (68.7 mi at the equator), so boxes built from it always cover the radius.
const minMilesPerDegree = 68.7

type indexedPoint struct {
	idx  int
	rect rtreego.Rect
}

func (p indexedPoint) Bounds() rtreego.Rect { return p.rect }

// pointIndex is an R-tree over coordinates. Lookups return candidate indexes
// in ascending order so callers can keep first-in-sequence tie-breaking.
type pointIndex struct {
	tree *rtreego.Rtree
	size int
}

func newPointIndex(coords []Coordinate) *pointIndex {
	objs := make([]rtreego.Spatial, 0, len(coords))
	for i, c := range coords {
		if !c.Valid() {
			continue
		}
		objs = append(objs, indexedPoint{idx: i, rect: rtreego.Point{c.Lon, c.Lat}.ToRect(1e-9)})
	}
	return &pointIndex{
		tree: rtreego.NewTree(2, 25, 50, objs...),
		size: len(coords),
	}
}

// candidates returns the indexes whose coordinates fall inside a bounding box
// that covers every point within radiusMiles of q. When the box would cross a
// pole or the antimeridian, ok is false and the caller should scan linearly.
func (p *pointIndex) candidates(q Coordinate, radiusMiles float64) (idx []int, ok bool) {
	latDelta := math.Max(radiusMiles/minMilesPerDegree*1.01, 1e-6)
	minLat, maxLat := q.Lat-latDelta, q.Lat+latDelta
	if minLat <= -90 || maxLat >= 90 {
		return nil, false
	}

	widest := math.Max(math.Abs(minLat), math.Abs(maxLat)) * math.Pi / 180
	lonDelta := latDelta / math.Cos(widest)
	minLon, maxLon := q.Lon-lonDelta, q.Lon+lonDelta
	if minLon < -180 || maxLon > 180 {
		return nil, false
	}

	box, err := rtreego.NewRectFromPoints(rtreego.Point{minLon, minLat}, rtreego.Point{maxLon, maxLat})
	if err != nil {
		return nil, false
	}

	hits := p.tree.SearchIntersect(box)
	idx = make([]int, 0, len(hits))
	for _, h := range hits {
		idx = append(idx, h.(indexedPoint).idx)
	}
	sort.Ints(idx)
	return idx, true
}

// ZipIndex is an immutable, spatially indexed ZIP reference table.
type ZipIndex struct {
	records []ZipRecord
	byZip   map[int]int
	points  *pointIndex
}

// NewZipIndex indexes records, keeping their order as the tie-break sequence.
func NewZipIndex(records []ZipRecord) *ZipIndex {
	coords := make([]Coordinate, len(records))
	byZip := make(map[int]int, len(records))
	for i, r := range records {
		coords[i] = r.Coordinate
		if _, seen := byZip[r.Zipcode]; !seen {
			byZip[r.Zipcode] = i
		}
	}
	return &ZipIndex{
		records: records,
		byZip:   byZip,
		points:  newPointIndex(coords),
	}
}

// Len returns the number of records.
func (z *ZipIndex) Len() int { return len(z.records) }

// Records returns the reference sequence. Callers must not modify it.
func (z *ZipIndex) Records() []ZipRecord { return z.records }

// Lookup returns the first record for a ZIP code.
func (z *ZipIndex) Lookup(zip int) (ZipRecord, bool) {
	i, ok := z.byZip[zip]
	if !ok {
		return ZipRecord{}, false
	}
	return z.records[i], true
}

// Nearest selects the same record as Match, using the R-tree to skip records
// that cannot be within maxMiles.
func (z *ZipIndex) Nearest(q Coordinate, maxMiles float64) (*MatchResult, error) {
	if !q.Valid() || math.IsNaN(maxMiles) || maxMiles < 0 {
		return matchCandidates(z.records, nil, q, maxMiles)
	}
	idx, ok := z.points.candidates(q, maxMiles)
	if !ok {
		return matchCandidates(z.records, nil, q, maxMiles)
	}
	if len(idx) == 0 {
		return nil, ErrNoMatch
	}
	return matchCandidates(z.records, idx, q, maxMiles)
}

// Hospital is one row of the hospital quality table.
type Hospital struct {
	Name             string
	Coordinate       Coordinate
	AdverseEvents    *float64
	RiskAdjustedRate *float64
}

// HospitalIndex is an immutable, spatially indexed hospital table.
type HospitalIndex struct {
	hospitals []Hospital
	points    *pointIndex
}

// NewHospitalIndex indexes hospitals in table order.
func NewHospitalIndex(hospitals []Hospital) *HospitalIndex {
	coords := make([]Coordinate, len(hospitals))
	for i, h := range hospitals {
		coords[i] = h.Coordinate
	}
	return &HospitalIndex{hospitals: hospitals, points: newPointIndex(coords)}
}

// Len returns the number of hospitals.
func (h *HospitalIndex) Len() int { return len(h.hospitals) }

// Within returns the hospitals whose geodesic distance from q is at most
// radiusMiles, in table order.
func (h *HospitalIndex) Within(q Coordinate, radiusMiles float64) []Hospital {
	if !q.Valid() || radiusMiles < 0 {
		return nil
	}
	idx, ok := h.points.candidates(q, radiusMiles)
	if !ok {
		idx = make([]int, len(h.hospitals))
		for i := range idx {
			idx[i] = i
		}
	}

	var out []Hospital
	for _, i := range idx {
		c := h.hospitals[i].Coordinate
		if !c.Valid() {
			continue
		}
		if DistanceMiles(q, c) <= radiusMiles {
			out = append(out, h.hospitals[i])
		}
	}
	return out
}
