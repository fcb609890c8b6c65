package dataset

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	_ "modernc.org/sqlite"

	"github.com/i474232898/livability/internal/livability"
)

// Encodings accepted for CSV tables.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// TableSpec names one reference table. Name is a file name relative to the
// source; SQLite tables use "file.sqlite#table".
type TableSpec struct {
	Name     string
	Encoding string
}

// Table is a header plus string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Records returns each row keyed by header. Short rows get empty cells.
func (t *Table) Records() []livability.Row {
	out := make([]livability.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make(livability.Row, len(t.Header))
		for i, h := range t.Header {
			if h == "" {
				continue
			}
			if i < len(r) {
				row[h] = r[i]
			} else {
				row[h] = ""
			}
		}
		out = append(out, row)
	}
	return out
}

// Has reports whether every column is present in the header.
func (t *Table) Has(columns ...string) error {
	present := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		present[h] = true
	}
	var missing []string
	for _, c := range columns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

// ReadTable reads a table from src, choosing the reader by extension.
func ReadTable(ctx context.Context, src Source, spec TableSpec) (*Table, error) {
	name, table, isSQL := strings.Cut(spec.Name, "#")
	ext := strings.ToLower(filepath.Ext(name))

	if isSQL || ext == ".sqlite" || ext == ".db" {
		local, ok := src.(*LocalSource)
		if !ok {
			return nil, eris.Wrapf(ErrLocalOnly, "dataset: %s", spec.Name)
		}
		if table == "" {
			return nil, eris.Errorf("dataset: %s: sqlite tables are named file#table", spec.Name)
		}
		return readSQLite(ctx, local.Path(name), table)
	}

	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	switch ext {
	case ".csv", ".txt":
		t, err := readCSV(rc, spec.Encoding)
		return t, eris.Wrapf(err, "dataset: read %s", spec.Name)
	case ".xlsx":
		t, err := readXLSX(rc)
		return t, eris.Wrapf(err, "dataset: read %s", spec.Name)
	default:
		return nil, eris.Errorf("dataset: unsupported table format %q", spec.Name)
	}
}

func readCSV(r io.Reader, encoding string) (*Table, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "_", "-")) {
	case "", EncodingUTF8, "utf8":
	case EncodingLatin1, "iso-8859-1", "latin1":
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	default:
		return nil, eris.Errorf("unsupported encoding %q", encoding)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return newTable(rows)
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, eris.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return newTable(rows)
}

func readSQLite(ctx context.Context, path, table string) (*Table, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open sqlite %s", path)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	query := fmt.Sprintf(`SELECT * FROM "%s"`, strings.ReplaceAll(table, `"`, `""`))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: query %s#%s", path, table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read columns")
	}

	t := &Table{Header: cols}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "dataset: scan row")
		}
		cells := make([]string, len(cols))
		for i, v := range vals {
			cells[i] = sqlCell(v)
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "dataset: iterate rows")
	}
	return t, nil
}

func sqlCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

func newTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, eris.New("table is empty")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	return &Table{Header: header, Rows: rows[1:]}, nil
}
