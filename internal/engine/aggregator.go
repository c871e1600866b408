package engine

import (
	"math"
	"slices"
	"sort"

	"co2dash/internal/models"
)

// YearlyTotal sums co2 per year, ascending by year. Missing values are skipped.
// Duplicate (country, year) rows are summed as they are.
func YearlyTotal(v View) []models.YearTotal {
	// Map keyed by year: the span between min and max year is unbounded.
	sums := make(map[int32]float64)
	for _, row := range v.rows {
		year := v.table.Years[row]
		sum := sums[year]
		if co2 := v.table.CO2[row]; !math.IsNaN(co2) {
			sum += co2
		}
		sums[year] = sum
	}

	years := make([]int32, 0, len(sums))
	for y := range sums {
		years = append(years, y)
	}
	slices.Sort(years)
	out := make([]models.YearTotal, 0, len(years))
	for _, y := range years {
		out = append(out, models.YearTotal{Year: int(y), CO2: sums[y]})
	}
	return out
}

// SortedBy orders the view by column. The sort is stable and missing values go last.
func SortedBy(v View, c Column, descending bool) (View, error) {
	if _, err := ParseColumn(string(c)); err != nil {
		return View{}, err
	}
	rows := append([]int(nil), v.rows...)
	t := v.table
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := t.value(c, rows[i]), t.value(c, rows[j])
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case descending:
			return a > b
		default:
			return a < b
		}
	})
	return v.subset(rows), nil
}

// TopN returns the n records with the largest column value, largest first.
// Ties keep input order. A view shorter than n is returned whole.
func TopN(v View, c Column, n int) (View, error) {
	sorted, err := SortedBy(v, c, true)
	if err != nil {
		return View{}, err
	}
	if n <= 0 {
		return v.subset([]int{}), nil
	}
	if sorted.Len() > n {
		sorted.rows = sorted.rows[:n]
	}
	return sorted, nil
}

// YearRange returns the smallest and largest year in the view.
func YearRange(v View) (minYear, maxYear int, ok bool) {
	if len(v.rows) == 0 {
		return 0, 0, false
	}
	minYear, maxYear = math.MaxInt, math.MinInt
	for _, row := range v.rows {
		y := int(v.table.Years[row])
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	return minYear, maxYear, true
}

// Countries lists the distinct countries in the view in byte order.
func Countries(v View) []string {
	if v.table == nil {
		return []string{}
	}
	present := make([]bool, len(v.table.CountryDict))
	out := make([]string, 0, len(v.table.CountryDict))
	for _, row := range v.rows {
		id := v.table.CountryIDs[row]
		if !present[id] {
			present[id] = true
			out = append(out, v.table.CountryDict[id])
		}
	}
	slices.Sort(out)
	return out
}

// DefaultCountry picks "World" when available, otherwise the first country.
func DefaultCountry(countries []string) string {
	for _, c := range countries {
		if c == "World" {
			return c
		}
	}
	if len(countries) == 0 {
		return ""
	}
	return countries[0]
}
