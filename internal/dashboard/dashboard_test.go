package dashboard

import (
	"math"
	"testing"

	"co2dash/internal/engine"
	"co2dash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *engine.Table {
	return &engine.Table{
		Years:       []int32{2018, 2019, 2018, 2019, 2019, 2019, 2019},
		CO2:         []float64{5400, 5000, 9800, 10000, 2500, 36000, math.NaN()},
		PerCapita:   []float64{16.5, 15.2, 7.0, 7.1, 1.9, 4.7, 3.3},
		CountryIDs:  []int32{0, 0, 1, 1, 2, 3, 4},
		CountryDict: []string{"United States", "China", "India", "World", "Chad"},
	}
}

func TestNewControls(t *testing.T) {
	c := NewControls(sampleTable(), []string{"United States", "China", "Germany"}, 10)

	assert.Equal(t, 2018, c.MinYear)
	assert.Equal(t, 2019, c.MaxYear)
	assert.Equal(t, []string{"Chad", "China", "India", "United States", "World"}, c.Countries)
	assert.Equal(t, "World", c.DefaultCountry)
	assert.Equal(t, []string{"United States", "China"}, c.DefaultCompare, "Germany is not in the data")
}

func TestNormalize(t *testing.T) {
	c := NewControls(sampleTable(), []string{"India"}, 5)

	sel := Normalize(c, models.Selection{})
	assert.Equal(t, models.Selection{
		Year:      2019,
		Country:   "World",
		Countries: []string{"India"},
		MapYear:   2019,
		MapColumn: "co2",
		TopN:      5,
	}, sel)

	sel = Normalize(c, models.Selection{Year: 1750, MapYear: 2100, Countries: []string{}})
	assert.Equal(t, 2018, sel.Year)
	assert.Equal(t, 2019, sel.MapYear)
	assert.Empty(t, sel.Countries, "an explicit empty selection stays empty")
}

func TestBuild(t *testing.T) {
	table := sampleTable()
	c := NewControls(table, []string{"United States", "China", "India"}, 2)
	sel := Normalize(c, models.Selection{Country: "China"})

	data, err := Build(table, sel)
	require.NoError(t, err)

	require.Len(t, data.GlobalTrend, 2)
	assert.Equal(t, models.YearTotal{Year: 2018, CO2: 15200}, data.GlobalTrend[0])
	assert.Equal(t, models.YearTotal{Year: 2019, CO2: 53500}, data.GlobalTrend[1])

	require.Len(t, data.TopEmitters, 2)
	assert.Equal(t, "World", data.TopEmitters[0].Country)
	assert.Equal(t, "China", data.TopEmitters[1].Country)

	require.Len(t, data.TopPerCapita, 2)
	assert.Equal(t, "United States", data.TopPerCapita[0].Country)
	assert.Equal(t, "China", data.TopPerCapita[1].Country)

	require.Len(t, data.CountryTrend, 2)
	assert.Equal(t, 2018, data.CountryTrend[0].Year)
	assert.Equal(t, 10000.0, *data.CountryTrend[1].CO2)

	require.Len(t, data.Comparison, 3)
	assert.Equal(t, "India", data.Comparison[2].Name)
	assert.Len(t, data.Comparison[2].Points, 1)

	assert.Len(t, data.Map, 5, "one map entry per 2019 record")
}

func TestBuildRejectsBadMapColumn(t *testing.T) {
	table := sampleTable()
	c := NewControls(table, nil, 10)

	_, err := Build(table, Normalize(c, models.Selection{MapColumn: "gdp"}))
	assert.ErrorIs(t, err, engine.ErrUnknownColumn)

	_, err = Build(table, Normalize(c, models.Selection{MapColumn: "year"}))
	assert.ErrorIs(t, err, engine.ErrUnknownColumn)
}

func TestBuildUnknownCountryIsEmpty(t *testing.T) {
	table := sampleTable()
	c := NewControls(table, nil, 10)

	data, err := Build(table, Normalize(c, models.Selection{Country: "Atlantis", Countries: []string{"Atlantis"}}))
	require.NoError(t, err)
	assert.Empty(t, data.CountryTrend)
	require.Len(t, data.Comparison, 1)
	assert.Empty(t, data.Comparison[0].Points)
}

func TestChoropleth(t *testing.T) {
	table := &engine.Table{
		Years:       []int32{2000, 2000, 2000, 2000, 2000, 2000},
		CO2:         []float64{3, 1, 5, 2, 4, math.NaN()},
		PerCapita:   make([]float64, 6),
		CountryIDs:  []int32{0, 1, 2, 3, 4, 5},
		CountryDict: []string{"C", "A", "E", "B", "D", "X"},
	}
	entries := Choropleth(table.All(), engine.ColumnCO2)
	require.Len(t, entries, 6)

	buckets := map[string]int{}
	for _, e := range entries {
		buckets[e.Country] = e.Bucket
	}
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "E": 4, "X": -1}, buckets)
	assert.Equal(t, Palette[4], entries[2].Color)
	assert.Equal(t, MissingColor, entries[5].Color)
	assert.Nil(t, entries[5].Value)
}

func TestChoroplethEmpty(t *testing.T) {
	assert.Empty(t, Choropleth(engine.View{}, engine.ColumnCO2))
}
