package cli

import (
	"fmt"
	"io"
	"math"
	"strings"

	"co2dash/internal/engine"
	"co2dash/internal/models"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary is the text dashboard: headline numbers plus both rankings.
type Summary struct {
	Rows         int                  `json:"rows"`
	Countries    int                  `json:"countries"`
	MinYear      int                  `json:"min_year"`
	MaxYear      int                  `json:"max_year"`
	Year         int                  `json:"year"`
	GlobalTotal  float64              `json:"global_total"`
	TopEmitters  []models.EmissionRow `json:"top_emitters"`
	TopPerCapita []models.EmissionRow `json:"top_per_capita"`
	Country      string               `json:"country"`
	CountryTrend []models.EmissionRow `json:"country_trend"`
}

func NewSummaryCommand(root *RootOptions) *cobra.Command {
	flags := &selectionFlags{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print headline numbers and top emitters for a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, data, err := snapshot(cmd.Context(), root, flags)
			if err != nil {
				return err
			}
			s := NewSummary(t, data)
			out := &OutputFormatter{Format: root.Format, Writer: cmd.OutOrStdout()}
			if err := out.Success(s, func(w io.Writer) error { return WriteSummary(w, s) }); err != nil {
				return WrapExitError(ExitFailure, "write summary", err)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func NewSummary(t *engine.Table, d *models.DashboardData) Summary {
	s := Summary{
		Rows:         t.Len(),
		Countries:    len(t.CountryDict),
		Year:         d.Selection.Year,
		TopEmitters:  d.TopEmitters,
		TopPerCapita: d.TopPerCapita,
		Country:      d.Selection.Country,
		CountryTrend: d.CountryTrend,
	}
	s.MinYear, s.MaxYear, _ = engine.YearRange(t.All())
	for _, yt := range d.GlobalTrend {
		if yt.Year == s.Year {
			s.GlobalTotal = yt.CO2
		}
	}
	return s
}

// WriteSummary prints s with English digit grouping.
func WriteSummary(w io.Writer, s Summary) error {
	p := message.NewPrinter(language.English)
	tonnes := func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return p.Sprintf("%d Mt", int64(math.Round(*v)))
	}
	perCapita := func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return p.Sprintf("%.2f t", *v)
	}

	var b strings.Builder
	fmt.Fprintln(&b, "Global CO₂ Emissions Dashboard")
	fmt.Fprintf(&b, "Dataset: %s records, %d countries, %d-%d\n", p.Sprintf("%d", s.Rows), s.Countries, s.MinYear, s.MaxYear)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Global total in %d: %s\n", s.Year, tonnes(&s.GlobalTotal))

	ranking := func(title string, rows []models.EmissionRow, value func(models.EmissionRow) string) {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, title)
		if len(rows) == 0 {
			fmt.Fprintln(&b, "  (no data)")
		}
		for i, r := range rows {
			fmt.Fprintf(&b, "%3d. %-24s %14s\n", i+1, r.Country, value(r))
		}
	}
	ranking(fmt.Sprintf("Top %d emitters in %d", len(s.TopEmitters), s.Year), s.TopEmitters,
		func(r models.EmissionRow) string { return tonnes(r.CO2) })
	ranking(fmt.Sprintf("Top %d per capita in %d", len(s.TopPerCapita), s.Year), s.TopPerCapita,
		func(r models.EmissionRow) string { return perCapita(r.CO2PerCapita) })

	fmt.Fprintln(&b)
	if n := len(s.CountryTrend); n > 0 {
		first, last := s.CountryTrend[0], s.CountryTrend[n-1]
		fmt.Fprintf(&b, "Trend for %s: %d-%d, %s -> %s\n", s.Country, first.Year, last.Year, tonnes(first.CO2), tonnes(last.CO2))
	} else {
		fmt.Fprintf(&b, "Trend for %s: no data\n", s.Country)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
