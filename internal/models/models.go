package models

import "math"

// DashboardData is every derived view for one user selection.
type DashboardData struct {
	Selection    Selection     `json:"selection"`
	GlobalTrend  []YearTotal   `json:"global_trend"`
	TopEmitters  []EmissionRow `json:"top_emitters"`
	TopPerCapita []EmissionRow `json:"top_per_capita"`
	CountryTrend []EmissionRow `json:"country_trend"`
	Comparison   []Series      `json:"comparison"`
	Map          []MapEntry    `json:"map"`
}

type Selection struct {
	Year      int      `json:"year"`
	Country   string   `json:"country"`
	Countries []string `json:"countries"`
	MapYear   int      `json:"map_year"`
	MapColumn string   `json:"map_column"`
	TopN      int      `json:"top_n"`
}

// Controls describes the inputs a dashboard client can offer.
type Controls struct {
	MinYear        int      `json:"min_year"`
	MaxYear        int      `json:"max_year"`
	Countries      []string `json:"countries"`
	DefaultCountry string   `json:"default_country"`
	DefaultCompare []string `json:"default_compare"`
	TopN           int      `json:"top_n"`
}

type Meta struct {
	Rows        int      `json:"rows"`
	Fingerprint string   `json:"fingerprint"`
	Controls    Controls `json:"controls"`
}

type YearTotal struct {
	Year int     `json:"year"`
	CO2  float64 `json:"co2"`
}

// EmissionRow is one (country, year) observation. Missing values encode as null.
type EmissionRow struct {
	Country      string   `json:"country"`
	Year         int      `json:"year"`
	CO2          *float64 `json:"co2"`
	CO2PerCapita *float64 `json:"co2_per_capita"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

type Point struct {
	Year  int      `json:"year"`
	Value *float64 `json:"value"`
}

type MapEntry struct {
	Country string   `json:"country"`
	Value   *float64 `json:"value"`
	Bucket  int      `json:"bucket"`
	Color   string   `json:"color"`
}

// Float returns nil for NaN so the value survives JSON encoding.
func Float(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Value is the inverse of Float.
func Value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
