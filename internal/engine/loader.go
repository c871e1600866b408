package engine

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/labstack/gommon/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/xxh3"
)

// RequiredColumns must appear in the CSV header. Other columns are ignored.
var RequiredColumns = []string{"country", "year", "co2", "co2_per_capita"}

var columnTypes = map[string]arrow.DataType{
	"country":        arrow.BinaryTypes.String,
	"year":           arrow.PrimitiveTypes.Int64,
	"co2":            arrow.PrimitiveTypes.Float64,
	"co2_per_capita": arrow.PrimitiveTypes.Float64,
}

const csvChunkRows = 4096

// --- 1. TABLE BUILDER ---

// builder dictionary-encodes countries while rows are appended.
type builder struct {
	table *Table
	ids   map[string]int32
}

func newBuilder() *builder {
	return &builder{table: &Table{}, ids: make(map[string]int32)}
}

func (b *builder) add(country string, year int64, co2, perCapita float64) error {
	if year < math.MinInt32 || year > math.MaxInt32 {
		return unavailable("year %d out of range", year)
	}
	id, ok := b.ids[country]
	if !ok {
		id = int32(len(b.table.CountryDict))
		str := strings.Clone(country) // detach from the arrow buffer
		b.table.CountryDict = append(b.table.CountryDict, str)
		b.ids[str] = id
	}
	t := b.table
	t.CountryIDs = append(t.CountryIDs, id)
	t.Years = append(t.Years, int32(year))
	t.CO2 = append(t.CO2, co2)
	t.PerCapita = append(t.PerCapita, perCapita)
	return nil
}

func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// --- 2. MAIN LOADER ---

// Load reads the emissions table at path. Files ending in .db, .sqlite or
// .sqlite3 are read from the "emissions" table; anything else is parsed as CSV.
func Load(ctx context.Context, path string) (*Table, error) {
	start := time.Now()
	log.Infof("loading emissions data from %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, unavailable("%v", err)
	}

	var t *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		t, err = readSQLite(ctx, path)
	default:
		t, err = readCSV(content)
	}
	if err != nil {
		return nil, err
	}
	t.Fingerprint = xxh3.Hash(content)

	log.Infof("load complete: rows=%d countries=%d time=%v", t.Len(), len(t.CountryDict), time.Since(start))
	return t, nil
}

// checkHeader reads only the first CSV line so a missing column is reported by name.
func checkHeader(content []byte) error {
	header, err := csv.NewReader(bytes.NewReader(content)).Read()
	if err != nil {
		return unavailable("reading header: %v", err)
	}
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[strings.TrimSpace(h)] = true
	}
	for _, col := range RequiredColumns {
		if !seen[col] {
			return unavailable("missing column %q", col)
		}
	}
	return nil
}

func readCSV(content []byte) (*Table, error) {
	if err := checkHeader(content); err != nil {
		return nil, err
	}

	r := arrowcsv.NewInferringReader(bytes.NewReader(content),
		arrowcsv.WithHeader(true),
		arrowcsv.WithAllocator(memory.NewGoAllocator()),
		arrowcsv.WithChunk(csvChunkRows),
		arrowcsv.WithIncludeColumns(RequiredColumns),
		arrowcsv.WithColumnTypes(columnTypes),
		arrowcsv.WithNullReader(true, "", "NA"),
	)
	defer r.Release()

	b := newBuilder()
	row := 1
	for r.Next() {
		rec := r.Record()
		if err := b.appendRecord(rec, row); err != nil {
			return nil, err
		}
		row += int(rec.NumRows())
	}
	if err := r.Err(); err != nil {
		return nil, unavailable("parsing csv: %v", err)
	}
	return b.table, nil
}

func column[T arrow.Array](rec arrow.Record, name string) (T, error) {
	var zero T
	idx := rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return zero, unavailable("missing column %q", name)
	}
	arr, ok := rec.Column(idx[0]).(T)
	if !ok {
		return zero, unavailable("column %q has type %s", name, rec.Column(idx[0]).DataType())
	}
	return arr, nil
}

func (b *builder) appendRecord(rec arrow.Record, firstRow int) error {
	countries, err := column[*array.String](rec, "country")
	if err != nil {
		return err
	}
	years, err := column[*array.Int64](rec, "year")
	if err != nil {
		return err
	}
	co2, err := column[*array.Float64](rec, "co2")
	if err != nil {
		return err
	}
	perCapita, err := column[*array.Float64](rec, "co2_per_capita")
	if err != nil {
		return err
	}

	for i := 0; i < int(rec.NumRows()); i++ {
		if countries.IsNull(i) || years.IsNull(i) {
			return unavailable("row %d: country and year are required", firstRow+i)
		}
		if err := b.add(countries.Value(i), years.Value(i), floatAt(co2, i), floatAt(perCapita, i)); err != nil {
			return fmt.Errorf("row %d: %w", firstRow+i, err)
		}
	}
	return nil
}

func floatAt(arr *array.Float64, i int) float64 {
	if arr.IsNull(i) {
		return math.NaN()
	}
	return arr.Value(i)
}

func readSQLite(ctx context.Context, path string) (*Table, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, unavailable("opening database: %v", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT country, year, co2, co2_per_capita FROM emissions ORDER BY rowid`)
	if err != nil {
		return nil, unavailable("querying emissions: %v", err)
	}
	defer rows.Close()

	b := newBuilder()
	row := 0
	for rows.Next() {
		row++
		var (
			country   sql.NullString
			year      sql.NullInt64
			co2       sql.NullFloat64
			perCapita sql.NullFloat64
		)
		if err := rows.Scan(&country, &year, &co2, &perCapita); err != nil {
			return nil, unavailable("row %d: %v", row, err)
		}
		if !country.Valid || country.String == "" || !year.Valid {
			return nil, unavailable("row %d: country and year are required", row)
		}
		if err := b.add(country.String, year.Int64, nullFloat(co2), nullFloat(perCapita)); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading emissions: %v", err)
	}
	return b.table, nil
}

func nullFloat(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}

// --- 3. MEMOIZATION ---

// Cache loads the table on first use and returns the same result for the
// rest of the process. A failed load is cached as well.
type Cache struct {
	path  string
	once  sync.Once
	table *Table
	err   error
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

func (c *Cache) Path() string { return c.path }

// Get returns the loaded table. Concurrent first callers share one load.
func (c *Cache) Get(ctx context.Context) (*Table, error) {
	c.once.Do(func() {
		c.table, c.err = Load(ctx, c.path)
		if c.err != nil {
			log.Errorf("loading %s: %v", c.path, c.err)
		}
	})
	return c.table, c.err
}
