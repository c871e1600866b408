package dashboard

import (
	"math"
	"sort"

	"co2dash/internal/engine"
	"co2dash/internal/models"
	"gonum.org/v1/gonum/stat"
)

// Palette is the choropleth color ramp, light to dark.
var Palette = []string{"#fee5d9", "#fcae91", "#fb6a4a", "#de2d26", "#a50f15"}

// MissingColor fills countries without a value.
const MissingColor = "#cccccc"

// Choropleth assigns each record a quantile bucket of column c within v.
// Records with a missing value get bucket -1.
func Choropleth(v engine.View, c engine.Column) []models.MapEntry {
	values := make([]float64, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if x := v.Value(i, c); !math.IsNaN(x) {
			values = append(values, x)
		}
	}
	sort.Float64s(values)

	var cuts []float64
	if len(values) > 0 {
		cuts = make([]float64, len(Palette)-1)
		for i := range cuts {
			p := float64(i+1) / float64(len(Palette))
			cuts[i] = stat.Quantile(p, stat.Empirical, values, nil)
		}
	}

	out := make([]models.MapEntry, v.Len())
	for i := range out {
		r := v.Record(i)
		x := v.Value(i, c)
		e := models.MapEntry{Country: r.Country, Value: models.Float(x), Bucket: -1, Color: MissingColor}
		if !math.IsNaN(x) {
			e.Bucket = bucket(cuts, x)
			e.Color = Palette[e.Bucket]
		}
		out[i] = e
	}
	return out
}

// bucket counts the cut points strictly below x.
func bucket(cuts []float64, x float64) int {
	b := 0
	for _, cut := range cuts {
		if x > cut {
			b++
		}
	}
	return b
}
