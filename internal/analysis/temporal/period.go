package temporal

import (
	"math"
	"sort"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/stats"
)

// PeriodMean reduces a yearly series to the mean value per unit over an
// inclusive year range. Units without observations in range are absent.
// Each unit's values are summed in ascending year order.
func PeriodMean(series *models.ObservationSeries, years models.YearRange) models.PeriodValue {
	type yearValue struct {
		year  int
		value float64
	}
	byUnit := make(map[string][]yearValue)

	series.Each(func(unit string, year int, value float64) {
		if !years.Contains(year) {
			return
		}
		byUnit[unit] = append(byUnit[unit], yearValue{year, value})
	})

	out := make(models.PeriodValue, len(byUnit))
	for unit, vals := range byUnit {
		sort.Slice(vals, func(i, j int) bool { return vals[i].year < vals[j].year })
		sum := 0.0
		for _, v := range vals {
			sum += v.value
		}
		out[unit] = sum / float64(len(vals))
	}
	return out
}

// FilterLevel keeps observations whose unit code has the length of the level.
// The national aggregate ("IT") never matches any level.
func FilterLevel(observations []models.Observation, level models.GeoLevel) []models.Observation {
	out := make([]models.Observation, 0, len(observations))
	for _, o := range observations {
		if level.Matches(o.RefArea) {
			out = append(out, o)
		}
	}
	return out
}

// BuildSeries collects observations of one crime type into a series.
// Duplicate (unit, year) pairs are rejected.
func BuildSeries(crimeType string, observations []models.Observation) (*models.ObservationSeries, error) {
	series := models.NewObservationSeries(crimeType)
	for _, o := range observations {
		if crimeType != "" && o.CrimeType != crimeType {
			continue
		}
		if err := series.Add(o.RefArea, o.Year, o.Value); err != nil {
			return nil, err
		}
	}
	return series, nil
}

// VariationPercent computes (target - baseline) / baseline * 100.
// The second return is false when the baseline is zero.
func VariationPercent(baseline, target float64) (float64, bool) {
	if baseline == 0 {
		return 0, false
	}
	v := (target - baseline) / baseline * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Variation compares two period means unit by unit. Units missing from
// either side are omitted; a zero baseline yields a nil Variation.
// Records are ordered by unit code.
func Variation(baseline, target models.PeriodValue) []models.VariationRecord {
	units := make([]string, 0, len(target))
	for unit := range target {
		if _, ok := baseline[unit]; ok {
			units = append(units, unit)
		}
	}
	sort.Strings(units)

	records := make([]models.VariationRecord, 0, len(units))
	for _, unit := range units {
		rec := models.VariationRecord{
			ID:       unit,
			Baseline: baseline[unit],
			Target:   target[unit],
		}
		if v, ok := VariationPercent(rec.Baseline, rec.Target); ok {
			rec.Variation = &v
		}
		records = append(records, rec)
	}
	return records
}

// VariationSummary describes the distribution of non-null variations
type VariationSummary struct {
	Units    int     `json:"units"`
	WithData int     `json:"with_data"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Increase int     `json:"increase"`
	Decrease int     `json:"decrease"`
}

// SummarizeVariation aggregates variation records, ignoring nil variations
func SummarizeVariation(records []models.VariationRecord) VariationSummary {
	summary := VariationSummary{Units: len(records)}

	values := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Variation == nil {
			continue
		}
		values = append(values, *r.Variation)
		switch {
		case *r.Variation > 0:
			summary.Increase++
		case *r.Variation < 0:
			summary.Decrease++
		}
	}

	summary.WithData = len(values)
	if len(values) == 0 {
		return summary
	}
	summary.Mean = stats.Mean(values)
	summary.Median = stats.Median(values)
	summary.Min = stats.Min(values)
	summary.Max = stats.Max(values)
	return summary
}
