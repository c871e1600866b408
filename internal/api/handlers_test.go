package api

import (
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"co2dash/internal/engine"
	"co2dash/internal/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() *engine.Table {
	return &engine.Table{
		Years:       []int32{2018, 2019, 2019, 2019, 2019},
		CO2:         []float64{5400, 5000, 10000, 2500, math.NaN()},
		PerCapita:   []float64{16.5, 15.2, 7.1, 1.9, 4.7},
		CountryIDs:  []int32{0, 0, 1, 2, 3},
		CountryDict: []string{"United States", "China", "India", "World"},
		Fingerprint: 0xabc,
	}
}

func newTestServer(t *testing.T, load bool) (*Handler, http.Handler) {
	t.Helper()
	h := NewHandler([]string{"United States", "China", "India"}, 10)
	if load {
		h.SetData(testTable(), nil)
	}
	return h, NewServer(h, 0)
}

func get(t *testing.T, srv http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestLoadingAndFailure(t *testing.T) {
	h, srv := newTestServer(t, false)

	rec := get(t, srv, "/api/meta")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetData(nil, errors.New("data unavailable: open cleaned_co2.csv: no such file"))
	rec = get(t, srv, "/api/trend/global")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "data unavailable")
}

func TestGetMeta(t *testing.T) {
	_, srv := newTestServer(t, true)

	rec := get(t, srv, "/api/meta")
	require.Equal(t, http.StatusOK, rec.Code)

	var meta models.Meta
	decode(t, rec, &meta)
	assert.Equal(t, 5, meta.Rows)
	assert.Equal(t, "0000000000000abc", meta.Fingerprint)
	assert.Equal(t, 2018, meta.Controls.MinYear)
	assert.Equal(t, 2019, meta.Controls.MaxYear)
	assert.Equal(t, "World", meta.Controls.DefaultCountry)
	assert.Equal(t, []string{"United States", "China", "India"}, meta.Controls.DefaultCompare)
}

func TestETag(t *testing.T) {
	_, srv := newTestServer(t, true)

	rec := get(t, srv, "/api/trend/global")
	require.Equal(t, http.StatusOK, rec.Code)
	tag := rec.Header().Get("ETag")
	require.NotEmpty(t, tag)

	rec = get(t, srv, "/api/trend/global", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	for _, header := range []string{`"0000000000000001", ` + tag, "W/" + tag, "*"} {
		rec = get(t, srv, "/api/trend/global", "If-None-Match", header)
		assert.Equal(t, http.StatusNotModified, rec.Code, header)
	}

	rec = get(t, srv, "/api/trend/global", "If-None-Match", `"0000000000000001"`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestETagOnlyOnSuccess(t *testing.T) {
	_, srv := newTestServer(t, true)

	rec := get(t, srv, "/api/top?year=soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))

	rec = get(t, srv, "/charts/pie.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestGetGlobalTrend(t *testing.T) {
	_, srv := newTestServer(t, true)

	var totals []models.YearTotal
	decode(t, get(t, srv, "/api/trend/global"), &totals)
	assert.Equal(t, []models.YearTotal{{Year: 2018, CO2: 5400}, {Year: 2019, CO2: 17500}}, totals)
}

type topResponse struct {
	Year   int                  `json:"year"`
	Column string               `json:"column"`
	Data   []models.EmissionRow `json:"data"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func TestGetTop(t *testing.T) {
	_, srv := newTestServer(t, true)

	var resp topResponse
	decode(t, get(t, srv, "/api/top?year=2019&limit=2"), &resp)
	assert.Equal(t, 2019, resp.Year)
	assert.Equal(t, "co2", resp.Column)
	assert.Equal(t, 4, resp.Total)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "China", resp.Data[0].Country)
	assert.Equal(t, "United States", resp.Data[1].Country)

	// Missing values come last and encode as null.
	resp = topResponse{}
	decode(t, get(t, srv, "/api/top?year=2019&offset=3"), &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "World", resp.Data[0].Country)
	assert.Nil(t, resp.Data[0].CO2)

	resp = topResponse{}
	decode(t, get(t, srv, "/api/top?column=co2_per_capita"), &resp)
	assert.Equal(t, 2019, resp.Year, "year defaults to the latest")
	assert.Equal(t, "United States", resp.Data[0].Country)
}

func TestBadParams(t *testing.T) {
	_, srv := newTestServer(t, true)

	for _, target := range []string{
		"/api/top?year=last",
		"/api/top?column=population",
		"/api/map?column=year",
		"/api/dashboard?map_column=gdp",
		"/api/dashboard?n=ten",
	} {
		t.Run(target, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, srv, target).Code)
		})
	}
}

func TestGetCountryTrend(t *testing.T) {
	_, srv := newTestServer(t, true)

	var rows []models.EmissionRow
	decode(t, get(t, srv, "/api/countries/United%20States/trend"), &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, 2018, rows[0].Year)
	assert.Equal(t, 15.2, *rows[1].CO2PerCapita)

	decode(t, get(t, srv, "/api/countries/Atlantis/trend"), &rows)
	assert.Empty(t, rows)
}

func TestGetCountries(t *testing.T) {
	_, srv := newTestServer(t, true)

	var countries []string
	decode(t, get(t, srv, "/api/countries"), &countries)
	assert.Equal(t, []string{"China", "India", "United States", "World"}, countries)
}

func TestGetComparison(t *testing.T) {
	_, srv := newTestServer(t, true)

	var series []models.Series
	decode(t, get(t, srv, "/api/compare?countries=India,%20China"), &series)
	require.Len(t, series, 2)
	assert.Equal(t, "India", series[0].Name)
	assert.Equal(t, "China", series[1].Name)
	require.Len(t, series[1].Points, 1)
	assert.Equal(t, 10000.0, *series[1].Points[0].Value)

	decode(t, get(t, srv, "/api/compare"), &series)
	assert.Len(t, series, 3, "preset applies when no countries are given")
}

func TestGetMap(t *testing.T) {
	_, srv := newTestServer(t, true)

	var entries []models.MapEntry
	decode(t, get(t, srv, "/api/map?year=2019"), &entries)
	require.Len(t, entries, 4)
	assert.Equal(t, "World", entries[3].Country)
	assert.Equal(t, -1, entries[3].Bucket)
}

func TestGetDashboard(t *testing.T) {
	_, srv := newTestServer(t, true)

	var data models.DashboardData
	decode(t, get(t, srv, "/api/dashboard?year=2019&country=China&n=1&countries=India"), &data)
	assert.Equal(t, 2019, data.Selection.Year)
	assert.Equal(t, 2019, data.Selection.MapYear)
	require.Len(t, data.TopEmitters, 1)
	assert.Equal(t, "China", data.TopEmitters[0].Country)
	require.Len(t, data.CountryTrend, 1)
	require.Len(t, data.Comparison, 1)
	assert.Equal(t, "India", data.Comparison[0].Name)
}

func TestGetChart(t *testing.T) {
	_, srv := newTestServer(t, true)

	rec := get(t, srv, "/charts/top.png?year=2019")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	assert.Equal(t, http.StatusNotFound, get(t, srv, "/charts/pie.png").Code)
}
