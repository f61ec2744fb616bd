package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PopStdDev calculates the population (biased) standard deviation
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}

// Median calculates the median value
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Create a copy to avoid modifying the original slice
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Min returns the minimum value
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Min(values)
}

// Max returns the maximum value
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values)
}

// Quantile calculates the q-th quantile (0 <= q <= 1) with linear interpolation
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	q = math.Max(0, math.Min(1, q))

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// degenerateEpsilon absorbs rounding noise in the variance of identical values
const degenerateEpsilon = 1e-12

// Standardize returns population z-scores (mean 0, stddev 1).
// Zero variance fails with ErrDegenerateInput, non-finite values with ErrInvalidInput.
func Standardize(values []float64) ([]float64, error) {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d is not finite", models.ErrInvalidInput, i)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values to standardise", models.ErrInsufficientData)
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	if std <= degenerateEpsilon*math.Max(1, math.Abs(mean)) || math.IsNaN(std) {
		return nil, fmt.Errorf("%w: all %d values are identical", models.ErrDegenerateInput, len(values))
	}

	result := make([]float64, len(values))
	for i, v := range values {
		result[i] = (v - mean) / std
	}
	return result, nil
}
