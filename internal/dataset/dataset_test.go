package dataset

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/i474232898/livability/internal/livability"
)

const zipCSV = "\ufeffZipCode,City,State,Latitude,Longitude,RecordID,MedianHomeValue,MedianHouseholdIncome,PerCapitaIncome\n" +
	"94103,SAN FRANCISCO,CA,37.7725,-122.4147,1,\"850,000\",95000,60000\n" +
	"94301,Palo Alto,CA,37.4443,-122.1500,2,2000000,,\n" +
	"bad,Nowhere,CA,1,1,3,,,\n" +
	"90012,Los Angeles,CA,,-118.2385,4,,,\n"

const offensesCSV = "City,Population,Violent crime\n" +
	"San Francisco,870887,6000\n" +
	"SAN FRANCISCO,1,1\n" +
	"Palo Alto,67000,40\n"

const lawCSV = "City,Total officers\n" +
	"San Francisco,2300\n"

const envCSV = "ZIP,Ozone,PM2.5,Diesel PM,Drinking Water,Pesticides,Tox. Release\n" +
	"94103,0.035,8.9,50.1,400,0,120.5\n" +
	"94103,9,9,9,9,9,9\n" +
	"94301,0.04,NA,10,300,,5\n"

const schoolsCSV = "School,Zip Code,CSR Rank\n" +
	"A,94103,12\n" +
	"B,94103,abc\n" +
	"C,94103,8\n" +
	"D,94301,3\n"

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// latin1 encodes s as ISO-8859-1; s must only contain runes below 256.
func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, DefaultFiles.Zips.Name, []byte(zipCSV))
	writeFile(t, dir, DefaultFiles.Offenses.Name, []byte(offensesCSV))
	writeFile(t, dir, DefaultFiles.LawEnforcement.Name, []byte(lawCSV))
	writeFile(t, dir, DefaultFiles.Environment.Name, []byte(envCSV))
	writeFile(t, dir, DefaultFiles.Schools.Name, []byte(schoolsCSV))
	writeFile(t, dir, DefaultFiles.Hospitals.Name, latin1(
		"Hospital,Latitude,Longitude,# of Adverse Events,Risk-adjusted Rate\n"+
			"Saint Francis Médical,37.789,-122.416,4,2.5\n"+
			"Nowhere,,,1,1\n"))
	return dir
}

func TestLoadLocal(t *testing.T) {
	dir := writeFixture(t)
	ref, err := Load(context.Background(), NewLocalSource(dir), DefaultFiles)
	require.NoError(t, err)

	assert.Equal(t, dir, ref.Source)
	assert.False(t, ref.LoadedAt.IsZero())

	require.Equal(t, 2, ref.Zips.Len())
	sf, ok := ref.Zips.Lookup(94103)
	require.True(t, ok)
	assert.Equal(t, "SAN FRANCISCO", sf.City)
	assert.Equal(t, 850000.0, *sf.MedianHomeValue)
	assert.Equal(t, int64(1), sf.RecordID)
	pa, _ := ref.Zips.Lookup(94301)
	assert.Nil(t, pa.MedianHouseholdIncome)

	require.Contains(t, ref.Offenses, "San Francisco")
	assert.Equal(t, "870887", ref.Offenses["San Francisco"]["Population"])
	assert.Contains(t, ref.LawEnforcement, "San Francisco")
	assert.NotContains(t, ref.LawEnforcement, "Palo Alto")

	env := ref.Environment[94103]
	assert.Equal(t, 0.035, *env.OzoneLevel)
	assert.Equal(t, 120.5, *env.ToxRelease)
	assert.Nil(t, ref.Environment[94301].PM25Level)

	assert.Equal(t, []string{"12", "abc", "8"}, ref.SchoolRanks[94103])

	require.Equal(t, 1, ref.Hospitals.Len())
	near := ref.Hospitals.Within(livability.Coordinate{Lat: 37.7725, Lon: -122.4147}, 20)
	require.Len(t, near, 1)
	assert.Equal(t, "Saint Francis Médical", near[0].Name)
	assert.Equal(t, 2.5, *near[0].RiskAdjustedRate)

	stats := ref.Stats()
	assert.Equal(t, 2, stats.Zipcodes)
	assert.Equal(t, 2, stats.OffenseCities)
}

func TestLoadMissingFile(t *testing.T) {
	dir := writeFixture(t)
	require.NoError(t, os.Remove(filepath.Join(dir, DefaultFiles.Schools.Name)))

	_, err := Load(context.Background(), NewLocalSource(dir), DefaultFiles)
	assert.Error(t, err)
}

func TestLoadMissingColumn(t *testing.T) {
	dir := writeFixture(t)
	writeFile(t, dir, DefaultFiles.Schools.Name, []byte("School,Zip\nA,94103\n"))

	_, err := Load(context.Background(), NewLocalSource(dir), DefaultFiles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSR Rank")
}

func TestReadTableXLSX(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"ZIP", "Ozone"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{94103, 0.035}))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "env.xlsx")))
	require.NoError(t, f.Close())

	tbl, err := ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "env.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ZIP", "Ozone"}, tbl.Header)
	recs := tbl.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "94103", recs[0]["ZIP"])
	assert.Equal(t, "0.035", recs[0]["Ozone"])
}

func TestReadTableSQLite(t *testing.T) {
	dir := t.TempDir()
	db, err := sql.Open("sqlite", filepath.Join(dir, "ref.sqlite"))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE schools ("Zip Code" INTEGER, "CSR Rank" TEXT, score REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO schools VALUES (94103, '12', 1.5), (94103, NULL, NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	tbl, err := ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "ref.sqlite#schools"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zip Code", "CSR Rank", "score"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"94103", "12", "1.5"}, tbl.Rows[0])
	assert.Equal(t, []string{"94103", "", ""}, tbl.Rows[1])

	_, err = ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "ref.sqlite"})
	assert.Error(t, err)
}

func TestReadTableCSVOptions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "short.csv", []byte("a,b,c\n1,2\n"))

	tbl, err := ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "short.csv"})
	require.NoError(t, err)
	assert.Equal(t, livability.Row{"a": "1", "b": "2", "c": ""}, tbl.Records()[0])

	_, err = ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "short.csv", Encoding: "ebcdic"})
	assert.Error(t, err)

	_, err = ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "short.parquet"})
	assert.Error(t, err)

	writeFile(t, dir, "empty.csv", nil)
	_, err = ReadTable(context.Background(), NewLocalSource(dir), TableSpec{Name: "empty.csv"})
	assert.Error(t, err)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(aws.ToString(params.Bucket), aws.ToString(params.Key))
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func TestS3Source(t *testing.T) {
	m := &mockS3{}
	m.On("GetObject", "livability-data", "ca/2024/education/schools_data.csv").
		Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(schoolsCSV))}, nil)
	m.On("GetObject", "livability-data", "ca/2024/missing.csv").
		Return(nil, errors.New("NoSuchKey"))

	src := &S3Source{client: m, bucket: "livability-data", prefix: "ca/2024"}
	assert.Equal(t, "s3://livability-data/ca/2024", src.String())

	tbl, err := ReadTable(context.Background(), src, DefaultFiles.Schools)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 4)

	_, err = ReadTable(context.Background(), src, TableSpec{Name: "missing.csv"})
	assert.Error(t, err)

	_, err = ReadTable(context.Background(), src, TableSpec{Name: "ref.sqlite#schools"})
	assert.ErrorIs(t, err, ErrLocalOnly)

	m.AssertExpectations(t)
}

func TestParseS3URL(t *testing.T) {
	bucket, prefix, err := parseS3URL("s3://bucket/some/prefix/")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "some/prefix", prefix)

	bucket, prefix, err = parseS3URL("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Empty(t, prefix)

	_, _, err = parseS3URL("s3:///prefix")
	assert.Error(t, err)

	_, _, err = parseS3URL("/local/dir")
	assert.Error(t, err)
}

func TestNewSourceLocal(t *testing.T) {
	src, err := NewSource(context.Background(), "./data", S3Config{})
	require.NoError(t, err)
	assert.IsType(t, &LocalSource{}, src)
}
