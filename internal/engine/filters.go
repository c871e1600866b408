package engine

// Filters select rows by predicate. They keep the parent view's order and
// return an empty view, never an error, when nothing matches.

func (v View) where(keep func(t *Table, row int) bool) View {
	rows := make([]int, 0, len(v.rows))
	for _, row := range v.rows {
		if keep(v.table, row) {
			rows = append(rows, row)
		}
	}
	return v.subset(rows)
}

// ByYear keeps records observed in year.
func ByYear(v View, year int) View {
	return v.where(func(t *Table, row int) bool { return int(t.Years[row]) == year })
}

// ByCountry keeps records for a single country.
func ByCountry(v View, country string) View {
	if v.table == nil {
		return v
	}
	id, ok := v.table.countryID(country)
	if !ok {
		return v.subset(nil)
	}
	return v.where(func(t *Table, row int) bool { return t.CountryIDs[row] == id })
}

// ByCountries keeps records whose country is in the given set.
func ByCountries(v View, countries []string) View {
	if v.table == nil {
		return v
	}
	// Array indexing over dictionary IDs instead of a string set.
	keep := make([]bool, len(v.table.CountryDict))
	matched := false
	for _, c := range countries {
		if id, ok := v.table.countryID(c); ok {
			keep[id] = true
			matched = true
		}
	}
	if !matched {
		return v.subset(nil)
	}
	return v.where(func(t *Table, row int) bool { return keep[t.CountryIDs[row]] })
}
