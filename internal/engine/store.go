package engine

import (
	"errors"
	"fmt"

	"co2dash/internal/models"
)

var (
	// ErrDataUnavailable is returned when the dataset cannot be read or is malformed.
	ErrDataUnavailable = errors.New("data unavailable")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Table holds the emissions records in Struct-of-Arrays format.
// It is never mutated after loading.
type Table struct {
	// Data Columns (Flat Arrays)
	Years     []int32
	CO2       []float64
	PerCapita []float64

	// Dictionary Encoded IDs (0..N)
	CountryIDs []int32

	// Dictionary (ID -> String)
	CountryDict []string

	// xxh3 of the source bytes
	Fingerprint uint64
}

// Record is one row of a Table.
type Record struct {
	Country      string
	Year         int
	CO2          float64
	CO2PerCapita float64
}

func (t *Table) Len() int { return len(t.Years) }

func (t *Table) Record(row int) Record {
	return Record{
		Country:      t.CountryDict[t.CountryIDs[row]],
		Year:         int(t.Years[row]),
		CO2:          t.CO2[row],
		CO2PerCapita: t.PerCapita[row],
	}
}

// All returns a view over every row in file order.
func (t *Table) All() View {
	rows := make([]int, t.Len())
	for i := range rows {
		rows[i] = i
	}
	return View{table: t, rows: rows}
}

func (t *Table) countryID(country string) (int32, bool) {
	for id, name := range t.CountryDict {
		if name == country {
			return int32(id), true
		}
	}
	return 0, false
}

// Column names a numeric column usable for ranking.
type Column string

const (
	ColumnCO2       Column = "co2"
	ColumnPerCapita Column = "co2_per_capita"
	ColumnYear      Column = "year"
)

func ParseColumn(s string) (Column, error) {
	switch c := Column(s); c {
	case ColumnCO2, ColumnPerCapita, ColumnYear:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
}

func (t *Table) value(c Column, row int) float64 {
	switch c {
	case ColumnCO2:
		return t.CO2[row]
	case ColumnPerCapita:
		return t.PerCapita[row]
	default:
		return float64(t.Years[row])
	}
}

// View is an ordered subset of a Table's rows. The zero View is empty.
type View struct {
	table *Table
	rows  []int
}

func (v View) Len() int { return len(v.rows) }

func (v View) Table() *Table { return v.table }

func (v View) Record(i int) Record { return v.table.Record(v.rows[i]) }

// Value returns column c of the i-th record in the view.
func (v View) Value(i int, c Column) float64 { return v.table.value(c, v.rows[i]) }

func (v View) Records() []Record {
	out := make([]Record, len(v.rows))
	for i, row := range v.rows {
		out[i] = v.table.Record(row)
	}
	return out
}

// Rows converts the view into its JSON form.
func (v View) Rows() []models.EmissionRow {
	out := make([]models.EmissionRow, 0, len(v.rows))
	for _, row := range v.rows {
		r := v.table.Record(row)
		out = append(out, models.EmissionRow{
			Country:      r.Country,
			Year:         r.Year,
			CO2:          models.Float(r.CO2),
			CO2PerCapita: models.Float(r.CO2PerCapita),
		})
	}
	return out
}

func (v View) subset(rows []int) View {
	return View{table: v.table, rows: rows}
}

// Slice returns records [from, to) of the view, clamped to its bounds.
func (v View) Slice(from, to int) View {
	n := len(v.rows)
	from = min(max(from, 0), n)
	to = min(max(to, from), n)
	return v.subset(v.rows[from:to])
}
