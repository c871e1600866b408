package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"co2dash/internal/dashboard"
	"co2dash/internal/engine"
	"co2dash/internal/models"
	"co2dash/internal/render"

	"github.com/labstack/echo/v4"
)

type dataset struct {
	table    *engine.Table
	controls models.Controls
	err      error
}

// Handler serves the dashboard API. It answers 503 until SetData is called.
type Handler struct {
	data   atomic.Pointer[dataset]
	preset []string
	topN   int
}

func NewHandler(preset []string, topN int) *Handler {
	return &Handler{preset: preset, topN: topN}
}

// SetData publishes the load result. A non-nil err makes every endpoint fail with 500.
func (h *Handler) SetData(t *engine.Table, err error) {
	d := &dataset{table: t, err: err}
	if err == nil {
		d.controls = dashboard.NewControls(t, h.preset, h.topN)
	}
	h.data.Store(d)
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api", h.ETag)
	api.GET("/meta", h.GetMeta)
	api.GET("/trend/global", h.GetGlobalTrend)
	api.GET("/top", h.GetTop)
	api.GET("/countries", h.GetCountries)
	api.GET("/countries/:country/trend", h.GetCountryTrend)
	api.GET("/compare", h.GetComparison)
	api.GET("/map", h.GetMap)
	api.GET("/dashboard", h.GetDashboard)

	e.GET("/charts/:name", h.GetChart, h.ETag)
}

func (h *Handler) current() (*dataset, error) {
	d := h.data.Load()
	if d == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "dataset is still loading")
	}
	if d.err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, d.err.Error()).SetInternal(d.err)
	}
	return d, nil
}

// ETag tags successful responses with the dataset fingerprint. The data never
// changes while the process runs, so a matching If-None-Match is always fresh.
func (h *Handler) ETag(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		d, err := h.current()
		if err != nil {
			return err
		}
		tag := fmt.Sprintf(`"%016x"`, d.table.Fingerprint)
		if etagMatch(c.Request().Header.Get("If-None-Match"), tag) {
			c.Response().Header().Set("ETag", tag)
			return c.NoContent(http.StatusNotModified)
		}
		res := c.Response()
		res.Before(func() {
			if res.Status == http.StatusOK {
				res.Header().Set("ETag", tag)
			}
		})
		return next(c)
	}
}

// etagMatch applies the weak comparison of If-None-Match: a list of tags,
// optionally W/-prefixed, or "*".
func etagMatch(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}

// --- PARAMS ---

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func intParam(c echo.Context, name string) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, s))
	}
	return v, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// selection reads the dashboard controls from the query string and fills
// whatever is missing from the defaults.
func selection(c echo.Context, d *dataset) (models.Selection, error) {
	var (
		sel models.Selection
		err error
	)
	if sel.Year, err = intParam(c, "year"); err != nil {
		return sel, err
	}
	if sel.MapYear, err = intParam(c, "map_year"); err != nil {
		return sel, err
	}
	if sel.TopN, err = intParam(c, "n"); err != nil {
		return sel, err
	}
	sel.Country = c.QueryParam("country")
	sel.MapColumn = c.QueryParam("map_column")
	if c.QueryParams().Has("countries") {
		sel.Countries = splitList(c.QueryParam("countries"))
	}
	return dashboard.Normalize(d.controls, sel), nil
}

func column(c echo.Context, fallback engine.Column) (engine.Column, error) {
	s := c.QueryParam("column")
	if s == "" {
		return fallback, nil
	}
	col, err := engine.ParseColumn(s)
	if err != nil || col == engine.ColumnYear {
		return "", echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid column %q", s))
	}
	return col, nil
}

func buildError(err error) error {
	if errors.Is(err, engine.ErrUnknownColumn) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return err
}

// --- HANDLERS ---

func (h *Handler) GetMeta(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.Meta{
		Rows:        d.table.Len(),
		Fingerprint: fmt.Sprintf("%016x", d.table.Fingerprint),
		Controls:    d.controls,
	})
}

func (h *Handler) GetGlobalTrend(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, engine.YearlyTotal(d.table.All()))
}

// GetTop ranks the records of one year by column, largest first, with
// limit/offset paging. limit defaults to the configured top N.
func (h *Handler) GetTop(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	sel, err := selection(c, d)
	if err != nil {
		return err
	}
	col, err := column(c, engine.ColumnCO2)
	if err != nil {
		return err
	}

	ranked, err := engine.SortedBy(engine.ByYear(d.table.All(), sel.Year), col, true)
	if err != nil {
		return buildError(err)
	}
	total := ranked.Len()
	limit, offset := getPaginationParams(c, d.controls.TopN)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"year":   sel.Year,
		"column": col,
		"data":   ranked.Slice(offset, offset+limit).Rows(),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetCountries(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d.controls.Countries)
}

func (h *Handler) GetCountryTrend(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	country := c.Param("country")
	if u, err := url.PathUnescape(country); err == nil {
		country = u
	}
	return c.JSON(http.StatusOK, engine.ByCountry(d.table.All(), country).Rows())
}

func (h *Handler) GetComparison(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	sel, err := selection(c, d)
	if err != nil {
		return err
	}
	col, err := column(c, engine.ColumnCO2)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboard.Comparison(d.table.All(), sel.Countries, col))
}

// GetMap returns choropleth values for one year. It reads "year" like the
// other endpoints; "map_year" is only used by the full dashboard.
func (h *Handler) GetMap(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	sel, err := selection(c, d)
	if err != nil {
		return err
	}
	col, err := column(c, engine.ColumnCO2)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboard.Choropleth(engine.ByYear(d.table.All(), sel.Year), col))
}

func (h *Handler) GetDashboard(c echo.Context) error {
	d, err := h.current()
	if err != nil {
		return err
	}
	sel, err := selection(c, d)
	if err != nil {
		return err
	}
	data, err := dashboard.Build(d.table, sel)
	if err != nil {
		return buildError(err)
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) GetChart(c echo.Context) error {
	name := strings.TrimSuffix(c.Param("name"), ".png")
	if !render.IsChart(name) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown chart %q", name))
	}
	d, err := h.current()
	if err != nil {
		return err
	}
	sel, err := selection(c, d)
	if err != nil {
		return err
	}
	data, err := dashboard.Build(d.table, sel)
	if err != nil {
		return buildError(err)
	}

	var buf bytes.Buffer
	if err := render.Dashboard(&buf, name, data); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
