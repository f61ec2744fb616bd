// Package cluster turns local Moran results into LISA labels and tracks how
// those labels move between periods.
package cluster

import (
	"fmt"

	"github.com/jengzang/crime-lisa-go/internal/models"
)

// DefaultAlpha is the significance threshold applied to local p-values
const DefaultAlpha = 0.05

// Label maps one unit's quadrant and p-value to its LISA label
func Label(q models.Quadrant, p, alpha float64) models.LisaLabel {
	if !(p < alpha) {
		return models.LabelNotSignificant
	}
	switch q {
	case models.QuadrantHH:
		return models.LabelHighHigh
	case models.QuadrantLL:
		return models.LabelLowLow
	case models.QuadrantHL:
		return models.LabelHighLow
	case models.QuadrantLH:
		return models.LabelLowHigh
	}
	return models.LabelNotSignificant
}

// Classify labels every unit of a local Moran result
func Classify(local models.LocalMoranResult, alpha float64) ([]models.LisaLabel, error) {
	n := len(local.Is)
	if len(local.Quadrants) != n || len(local.PValues) != n {
		return nil, fmt.Errorf("%w: local result arrays have lengths %d/%d/%d",
			models.ErrInvalidInput, n, len(local.Quadrants), len(local.PValues))
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: significance threshold %v outside (0, 1]", models.ErrInvalidInput, alpha)
	}

	labels := make([]models.LisaLabel, n)
	for i := range labels {
		labels[i] = Label(local.Quadrants[i], local.PValues[i], alpha)
	}
	return labels, nil
}

// LabelCount is one row of a cluster distribution table
type LabelCount struct {
	Label   models.LisaLabel `json:"label"`
	Count   int              `json:"count"`
	Percent float64          `json:"percent"`
}

// Distribution counts units per label in display order. Every label appears.
func Distribution(units []models.ClassifiedUnit) []LabelCount {
	counts := make(map[models.LisaLabel]int, len(models.LisaLabels))
	for _, u := range units {
		counts[u.Label]++
	}

	out := make([]LabelCount, 0, len(models.LisaLabels))
	for _, label := range models.LisaLabels {
		row := LabelCount{Label: label, Count: counts[label]}
		if len(units) > 0 {
			row.Percent = float64(row.Count) / float64(len(units)) * 100
		}
		out = append(out, row)
	}
	return out
}
