package dataset

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/livability/internal/common"
	"github.com/i474232898/livability/internal/livability"
)

// Files names every reference table.
type Files struct {
	Zips           TableSpec
	Offenses       TableSpec
	LawEnforcement TableSpec
	Environment    TableSpec
	Schools        TableSpec
	Hospitals      TableSpec
}

// DefaultFiles is the layout of the published California data bundle.
var DefaultFiles = Files{
	Zips:           TableSpec{Name: "ZipData.csv"},
	Offenses:       TableSpec{Name: "ca_offenses_by_city.csv"},
	LawEnforcement: TableSpec{Name: "ca_law_enforcement_by_city.csv"},
	Environment:    TableSpec{Name: "environment/calenviroscreen-3.0-results-june-2018-update.csv"},
	Schools:        TableSpec{Name: "education/schools_data.csv"},
	Hospitals:      TableSpec{Name: "health/csv_hospitalreports1722_odp.csv", Encoding: EncodingLatin1},
}

// Column names of the reference tables.
const (
	colZipCode               = "ZipCode"
	colCity                  = "City"
	colState                 = "State"
	colLatitude              = "Latitude"
	colLongitude             = "Longitude"
	colRecordID              = "RecordID"
	colMedianHomeValue       = "MedianHomeValue"
	colMedianHouseholdIncome = "MedianHouseholdIncome"
	colPerCapitaIncome       = "PerCapitaIncome"

	colEnvZip        = "ZIP"
	colOzone         = "Ozone"
	colPM25          = "PM2.5"
	colDieselPM      = "Diesel PM"
	colDrinkingWater = "Drinking Water"
	colPesticides    = "Pesticides"
	colToxRelease    = "Tox. Release"

	colSchoolZip = "Zip Code"
	colCSRRank   = "CSR Rank"

	colAdverseEvents    = "# of Adverse Events"
	colRiskAdjustedRate = "Risk-adjusted Rate"
)

// hospitalNameColumns are tried in order for the hospital display name.
var hospitalNameColumns = []string{"Hospital", "Hospital Name", "Facility Name", "HOSPITAL"}

// Load reads every table concurrently and builds a reference snapshot.
func Load(ctx context.Context, src Source, files Files) (*livability.Reference, error) {
	specs := []TableSpec{files.Zips, files.Offenses, files.LawEnforcement, files.Environment, files.Schools, files.Hospitals}
	tables := make([]*Table, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			t, err := ReadTable(gctx, src, spec)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ref := &livability.Reference{Source: src.String(), LoadedAt: time.Now().UTC()}
	var err error

	if ref.Zips, err = buildZips(tables[0]); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", files.Zips.Name)
	}
	if ref.Offenses, err = buildCityRows(tables[1]); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", files.Offenses.Name)
	}
	if ref.LawEnforcement, err = buildCityRows(tables[2]); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", files.LawEnforcement.Name)
	}
	if ref.Environment, err = buildEnvironment(tables[3]); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", files.Environment.Name)
	}
	if ref.SchoolRanks, err = buildSchoolRanks(tables[4]); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", files.Schools.Name)
	}
	if ref.Hospitals, err = buildHospitals(tables[5]); err != nil {
		return nil, eris.Wrapf(err, "dataset: %s", files.Hospitals.Name)
	}

	stats := ref.Stats()
	zap.L().Info("reference data loaded",
		zap.String("source", stats.Source),
		zap.Int("zipcodes", stats.Zipcodes),
		zap.Int("offense_cities", stats.OffenseCities),
		zap.Int("law_enforcement_cities", stats.LawCities),
		zap.Int("environment_zipcodes", stats.EnvironmentZip),
		zap.Int("school_zipcodes", stats.SchoolZip),
		zap.Int("hospitals", stats.Hospitals),
	)
	return ref, nil
}

func buildZips(t *Table) (*livability.ZipIndex, error) {
	if err := t.Has(colZipCode, colCity, colState, colLatitude, colLongitude); err != nil {
		return nil, err
	}

	var records []livability.ZipRecord
	skipped := 0
	for _, row := range t.Records() {
		zip, ok := common.ParseInt(row[colZipCode])
		if !ok {
			skipped++
			continue
		}
		lat, latOK := common.ParseNumber(row[colLatitude])
		lon, lonOK := common.ParseNumber(row[colLongitude])
		c := livability.Coordinate{Lat: lat, Lon: lon}
		if !latOK || !lonOK || !c.Valid() {
			skipped++
			continue
		}
		rec := livability.ZipRecord{
			Zipcode:               int(zip),
			City:                  strings.TrimSpace(row[colCity]),
			State:                 strings.TrimSpace(row[colState]),
			Coordinate:            c,
			MedianHomeValue:       number(row[colMedianHomeValue]),
			MedianHouseholdIncome: number(row[colMedianHouseholdIncome]),
			PerCapitaIncome:       number(row[colPerCapitaIncome]),
		}
		if id, ok := common.ParseInt(row[colRecordID]); ok {
			rec.RecordID = id
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		zap.L().Warn("skipped zip rows without a usable zipcode or coordinate", zap.Int("rows", skipped))
	}
	if len(records) == 0 {
		return nil, eris.New("no usable zip rows")
	}
	return livability.NewZipIndex(records), nil
}

// buildCityRows keys rows by title-cased city; the first row per city wins.
func buildCityRows(t *Table) (map[string]livability.Row, error) {
	if err := t.Has(colCity); err != nil {
		return nil, err
	}
	out := make(map[string]livability.Row)
	for _, row := range t.Records() {
		city := common.NormalizeCity(row[colCity])
		if city == "" {
			continue
		}
		if _, seen := out[city]; seen {
			continue
		}
		row[colCity] = city
		out[city] = row
	}
	return out, nil
}

// buildEnvironment keys indicators by ZIP; the first row per ZIP wins.
func buildEnvironment(t *Table) (map[int]livability.EnvironmentRecord, error) {
	if err := t.Has(colEnvZip); err != nil {
		return nil, err
	}
	out := make(map[int]livability.EnvironmentRecord)
	for _, row := range t.Records() {
		zip, ok := common.ParseInt(row[colEnvZip])
		if !ok {
			continue
		}
		if _, seen := out[int(zip)]; seen {
			continue
		}
		out[int(zip)] = livability.EnvironmentRecord{
			OzoneLevel:           number(row[colOzone]),
			PM25Level:            number(row[colPM25]),
			DieselPMLevel:        number(row[colDieselPM]),
			DrinkingWaterQuality: number(row[colDrinkingWater]),
			PesticidesLevel:      number(row[colPesticides]),
			ToxRelease:           number(row[colToxRelease]),
		}
	}
	return out, nil
}

// buildSchoolRanks keeps every raw rank cell per ZIP in table order.
func buildSchoolRanks(t *Table) (map[int][]string, error) {
	if err := t.Has(colSchoolZip, colCSRRank); err != nil {
		return nil, err
	}
	out := make(map[int][]string)
	for _, row := range t.Records() {
		zip, ok := common.ParseInt(row[colSchoolZip])
		if !ok {
			continue
		}
		out[int(zip)] = append(out[int(zip)], row[colCSRRank])
	}
	return out, nil
}

func buildHospitals(t *Table) (*livability.HospitalIndex, error) {
	if err := t.Has(colLatitude, colLongitude, colAdverseEvents, colRiskAdjustedRate); err != nil {
		return nil, err
	}
	var hospitals []livability.Hospital
	for _, row := range t.Records() {
		lat, latOK := common.ParseNumber(row[colLatitude])
		lon, lonOK := common.ParseNumber(row[colLongitude])
		c := livability.Coordinate{Lat: lat, Lon: lon}
		if !latOK || !lonOK || !c.Valid() {
			continue
		}
		hospitals = append(hospitals, livability.Hospital{
			Name:             hospitalName(row),
			Coordinate:       c,
			AdverseEvents:    number(row[colAdverseEvents]),
			RiskAdjustedRate: number(row[colRiskAdjustedRate]),
		})
	}
	return livability.NewHospitalIndex(hospitals), nil
}

func hospitalName(row livability.Row) string {
	for _, col := range hospitalNameColumns {
		if v := strings.TrimSpace(row[col]); v != "" {
			return v
		}
	}
	return ""
}

func number(raw string) *float64 {
	f, ok := common.ParseNumber(raw)
	if !ok {
		return nil
	}
	return &f
}
