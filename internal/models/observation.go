package models

import (
	"fmt"
	"sort"
	"strings"
)

// Measure selects which ISTAT dataset the values come from
type Measure string

const (
	MeasureCount Measure = "count" // absolute number of reported crimes
	MeasureRate  Measure = "rate"  // crimes per 100k inhabitants
)

// ParseMeasure parses a measure name
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count", "absolute", "":
		return MeasureCount, nil
	case "rate", "criminality":
		return MeasureRate, nil
	}
	return "", fmt.Errorf("%w: unknown measure %q", ErrInvalidInput, s)
}

// YearRange is an inclusive range of years
type YearRange struct {
	Start int `json:"start" toml:"start"`
	End   int `json:"end" toml:"end"`
}

// Contains reports whether year lies in the range
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Validate checks that the range is not inverted
func (r YearRange) Validate() error {
	if r.Start <= 0 || r.End < r.Start {
		return fmt.Errorf("%w: year range %d-%d", ErrInvalidInput, r.Start, r.End)
	}
	return nil
}

func (r YearRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Period is a named year range, e.g. "pre-covid" 2014-2019
type Period struct {
	Key   string    `json:"key" toml:"key"`
	Name  string    `json:"name" toml:"name"`
	Years YearRange `json:"years" toml:"years"`
}

// Observation is one yearly value for a unit and crime type
type Observation struct {
	RefArea   string  `json:"ref_area"`
	CrimeType string  `json:"crime_type"`
	Year      int     `json:"year"`
	Value     float64 `json:"value"`
}

// ObservationQuery scopes a value-provider lookup
type ObservationQuery struct {
	Measure   Measure
	CrimeType string
	Years     YearRange
	Level     GeoLevel
}

type unitYear struct {
	unit string
	year int
}

// ObservationSeries holds at most one value per (unit, year) for one crime type
type ObservationSeries struct {
	CrimeType string
	values    map[unitYear]float64
}

// NewObservationSeries creates an empty series
func NewObservationSeries(crimeType string) *ObservationSeries {
	return &ObservationSeries{
		CrimeType: crimeType,
		values:    make(map[unitYear]float64),
	}
}

// Add stores a value; a second value for the same (unit, year) is rejected
func (s *ObservationSeries) Add(unit string, year int, value float64) error {
	key := unitYear{unit, year}
	if _, exists := s.values[key]; exists {
		return fmt.Errorf("%w: duplicate observation for %s/%d", ErrInvalidInput, unit, year)
	}
	s.values[key] = value
	return nil
}

// Get returns the value for (unit, year)
func (s *ObservationSeries) Get(unit string, year int) (float64, bool) {
	v, ok := s.values[unitYear{unit, year}]
	return v, ok
}

// Len returns the number of stored observations
func (s *ObservationSeries) Len() int {
	return len(s.values)
}

// Units returns the sorted distinct unit codes
func (s *ObservationSeries) Units() []string {
	seen := make(map[string]struct{})
	for k := range s.values {
		seen[k.unit] = struct{}{}
	}
	units := make([]string, 0, len(seen))
	for u := range seen {
		units = append(units, u)
	}
	sort.Strings(units)
	return units
}

// Each calls fn for every observation
func (s *ObservationSeries) Each(fn func(unit string, year int, value float64)) {
	for k, v := range s.values {
		fn(k.unit, k.year, v)
	}
}

// PeriodValue maps a unit code to its mean value over a period.
// A missing key means "no data", never zero.
type PeriodValue map[string]float64

// VariationRecord is the percentage change of one unit against the baseline
type VariationRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Baseline  float64  `json:"baseline"`
	Target    float64  `json:"target"`
	Variation *float64 `json:"variation"` // nil when the baseline is zero
}
