// Package dashboard turns a user selection into every derived view the
// dashboard shows. Each interaction re-runs Build against the cached table.
package dashboard

import (
	"fmt"

	"co2dash/internal/engine"
	"co2dash/internal/models"
)

// NewControls derives slider bounds and selector defaults from the table.
// Preset countries absent from the data are dropped.
func NewControls(t *engine.Table, preset []string, topN int) models.Controls {
	all := t.All()
	minYear, maxYear, _ := engine.YearRange(all)
	countries := engine.Countries(all)

	present := make(map[string]bool, len(countries))
	for _, c := range countries {
		present[c] = true
	}
	compare := make([]string, 0, len(preset))
	for _, c := range preset {
		if present[c] {
			compare = append(compare, c)
		}
	}

	return models.Controls{
		MinYear:        minYear,
		MaxYear:        maxYear,
		Countries:      countries,
		DefaultCountry: engine.DefaultCountry(countries),
		DefaultCompare: compare,
		TopN:           topN,
	}
}

// Defaults is the selection shown before the user touches any control.
func Defaults(c models.Controls) models.Selection {
	return models.Selection{
		Year:      c.MaxYear,
		Country:   c.DefaultCountry,
		Countries: c.DefaultCompare,
		MapYear:   c.MaxYear,
		MapColumn: string(engine.ColumnCO2),
		TopN:      c.TopN,
	}
}

// Normalize fills unset fields from the defaults and clamps years into the
// slider range.
func Normalize(c models.Controls, sel models.Selection) models.Selection {
	def := Defaults(c)
	if sel.Year == 0 {
		sel.Year = def.Year
	}
	if sel.MapYear == 0 {
		sel.MapYear = def.MapYear
	}
	if sel.Country == "" {
		sel.Country = def.Country
	}
	if sel.Countries == nil {
		sel.Countries = def.Countries
	}
	if sel.MapColumn == "" {
		sel.MapColumn = def.MapColumn
	}
	if sel.TopN <= 0 {
		sel.TopN = def.TopN
	}
	sel.Year = clamp(sel.Year, c.MinYear, c.MaxYear)
	sel.MapYear = clamp(sel.MapYear, c.MinYear, c.MaxYear)
	return sel
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Build computes all dashboard views for sel. sel must already be normalized.
func Build(t *engine.Table, sel models.Selection) (*models.DashboardData, error) {
	all := t.All()
	year := engine.ByYear(all, sel.Year)

	topCO2, err := engine.TopN(year, engine.ColumnCO2, sel.TopN)
	if err != nil {
		return nil, err
	}
	topPerCapita, err := engine.TopN(year, engine.ColumnPerCapita, sel.TopN)
	if err != nil {
		return nil, err
	}
	mapColumn, err := engine.ParseColumn(sel.MapColumn)
	if err != nil {
		return nil, err
	}
	if mapColumn == engine.ColumnYear {
		return nil, fmt.Errorf("%w: map cannot color by %s", engine.ErrUnknownColumn, mapColumn)
	}

	return &models.DashboardData{
		Selection:    sel,
		GlobalTrend:  engine.YearlyTotal(all),
		TopEmitters:  topCO2.Rows(),
		TopPerCapita: topPerCapita.Rows(),
		CountryTrend: engine.ByCountry(all, sel.Country).Rows(),
		Comparison:   Comparison(all, sel.Countries, engine.ColumnCO2),
		Map:          Choropleth(engine.ByYear(all, sel.MapYear), mapColumn),
	}, nil
}

// Comparison builds one series per country, in the order given.
func Comparison(v engine.View, countries []string, c engine.Column) []models.Series {
	out := make([]models.Series, 0, len(countries))
	for _, country := range countries {
		rows := engine.ByCountry(v, country)
		s := models.Series{Name: country, Points: make([]models.Point, rows.Len())}
		for i := range s.Points {
			s.Points[i] = models.Point{
				Year:  rows.Record(i).Year,
				Value: models.Float(rows.Value(i, c)),
			}
		}
		out = append(out, s)
	}
	return out
}
