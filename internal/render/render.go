// Package render draws dashboard views as PNG charts.
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"slices"

	"co2dash/internal/models"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

var (
	trendColor     = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	totalBarColor  = color.RGBA{R: 0xff, G: 0x63, B: 0x47, A: 0xff} // tomato
	perCapBarColor = color.RGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff} // seagreen
)

// Charts lists the chart names Dashboard accepts, in display order.
var Charts = []string{"global", "top", "percapita", "country", "compare"}

// Dashboard renders the named chart from a dashboard snapshot.
func Dashboard(w io.Writer, name string, d *models.DashboardData) error {
	sel := d.Selection
	switch name {
	case "global":
		return GlobalTrend(w, d.GlobalTrend)
	case "top":
		return TopBars(w, fmt.Sprintf("Top %d Emitters in %d", sel.TopN, sel.Year),
			"CO₂ Emissions (Million Tonnes)", d.TopEmitters, totalValue, totalBarColor)
	case "percapita":
		return TopBars(w, fmt.Sprintf("Top %d CO₂ per Capita in %d", sel.TopN, sel.Year),
			"Tonnes per Person", d.TopPerCapita, perCapitaValue, perCapBarColor)
	case "country":
		return CountryTrend(w, sel.Country, d.CountryTrend)
	case "compare":
		return Comparison(w, d.Comparison)
	}
	return fmt.Errorf("unknown chart %q", name)
}

// IsChart reports whether name is one of Charts.
func IsChart(name string) bool {
	return slices.Contains(Charts, name)
}

func totalValue(r models.EmissionRow) float64     { return models.Value(r.CO2) }
func perCapitaValue(r models.EmissionRow) float64 { return models.Value(r.CO2PerCapita) }

// GlobalTrend draws total emissions per year.
func GlobalTrend(w io.Writer, totals []models.YearTotal) error {
	p := plot.New()
	p.Title.Text = "Global CO₂ Emissions (All Countries Combined)"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Total Emissions (Million Tonnes)"

	pts := make(plotter.XYs, 0, len(totals))
	for _, t := range totals {
		pts = append(pts, plotter.XY{X: float64(t.Year), Y: t.CO2})
	}
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = trendColor
		line.Width = vg.Points(2)
		p.Add(line)
	}
	return writePNG(p, w)
}

// TopBars draws a horizontal bar chart with the first row on top.
// Rows without a value are left out.
func TopBars(w io.Writer, title, axis string, rows []models.EmissionRow, value func(models.EmissionRow) float64, c color.Color) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = axis

	var (
		values plotter.Values
		names  []string
	)
	// Bars are drawn bottom-up, so walk the ranking backwards.
	for i := len(rows) - 1; i >= 0; i-- {
		v := value(rows[i])
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
		names = append(names, rows[i].Country)
	}

	if len(values) > 0 {
		bars, err := plotter.NewBarChart(values, vg.Points(18))
		if err != nil {
			return err
		}
		bars.Horizontal = true
		bars.Color = c
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.NominalY(names...)
	}
	return writePNG(p, w)
}

// CountryTrend draws one country's emissions over time with point markers.
func CountryTrend(w io.Writer, country string, rows []models.EmissionRow) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Emissions Over Time – %s", country)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "CO₂ Emissions"

	pts := make(plotter.XYs, 0, len(rows))
	for _, r := range rows {
		if r.CO2 == nil {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(r.Year), Y: *r.CO2})
	}
	if len(pts) > 0 {
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = trendColor
		points.Color = trendColor
		p.Add(line, points)
	}
	return writePNG(p, w)
}

// Comparison draws one line per series with a legend.
func Comparison(w io.Writer, series []models.Series) error {
	p := plot.New()
	p.Title.Text = "CO₂ Emissions Comparison"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "CO₂ Emissions (Million Tonnes)"
	p.Legend.Top = true
	p.Legend.Left = true

	var lines []interface{}
	for _, s := range series {
		pts := make(plotter.XYs, 0, len(s.Points))
		for _, pt := range s.Points {
			if pt.Value == nil {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(pt.Year), Y: *pt.Value})
		}
		if len(pts) == 0 {
			continue
		}
		lines = append(lines, s.Name, pts)
	}
	if len(lines) > 0 {
		if err := plotutil.AddLinePoints(p, lines...); err != nil {
			return err
		}
	}
	return writePNG(p, w)
}

func writePNG(p *plot.Plot, w io.Writer) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
