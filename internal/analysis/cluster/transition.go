package cluster

import (
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// ClassifyTransition applies the ordered transition rules; the first match wins
func ClassifyTransition(from, to models.LisaLabel) models.TransitionCategory {
	if from == to {
		switch {
		case from == models.LabelHighHigh:
			return models.TransitionStableHotSpot
		case from == models.LabelLowLow:
			return models.TransitionStableColdSpot
		case from.IsOutlier():
			return models.TransitionStableOutlier
		default:
			return models.TransitionStableNotSignificant
		}
	}

	switch {
	case to == models.LabelHighHigh:
		return models.TransitionNewHotSpot
	case to == models.LabelLowLow:
		return models.TransitionNewColdSpot
	case from == models.LabelHighHigh:
		return models.TransitionDisappearedHotSpot
	case from == models.LabelLowLow:
		return models.TransitionDisappearedColdSpot
	}
	return models.TransitionOther
}

// Transitions joins two period results by unit ID. Units present in only
// one period are excluded. Records follow the order of the from period.
func Transitions(from, to []models.ClassifiedUnit) []models.TransitionRecord {
	toByID := make(map[string]models.ClassifiedUnit, len(to))
	for _, u := range to {
		toByID[u.ID] = u
	}

	records := make([]models.TransitionRecord, 0, len(from))
	for _, f := range from {
		t, ok := toByID[f.ID]
		if !ok {
			continue
		}
		name := f.Name
		if name == "" {
			name = t.Name
		}
		records = append(records, models.TransitionRecord{
			ID:       f.ID,
			Name:     name,
			From:     f.Label,
			To:       t.Label,
			Category: ClassifyTransition(f.Label, t.Label),
		})
	}
	return records
}

// TransitionMatrix is a from-label by to-label crosstab. Rows and columns
// follow models.LisaLabels.
type TransitionMatrix struct {
	Labels    []models.LisaLabel `json:"labels"`
	Counts    [][]int            `json:"counts"`
	RowTotals []int              `json:"row_totals"`
	ColTotals []int              `json:"col_totals"`
	Total     int                `json:"total"`
}

// Matrix builds the label crosstab of a set of transition records
func Matrix(records []models.TransitionRecord) TransitionMatrix {
	n := len(models.LisaLabels)
	pos := make(map[models.LisaLabel]int, n)
	for i, l := range models.LisaLabels {
		pos[l] = i
	}

	m := TransitionMatrix{
		Labels:    models.LisaLabels,
		Counts:    make([][]int, n),
		RowTotals: make([]int, n),
		ColTotals: make([]int, n),
	}
	for i := range m.Counts {
		m.Counts[i] = make([]int, n)
	}

	for _, r := range records {
		i, j := pos[r.From], pos[r.To]
		m.Counts[i][j]++
		m.RowTotals[i]++
		m.ColTotals[j]++
		m.Total++
	}
	return m
}

// CategoryCount is the number of units in one transition category
type CategoryCount struct {
	Category models.TransitionCategory `json:"category"`
	Count    int                       `json:"count"`
}

// TransitionSummary aggregates a set of transition records
type TransitionSummary struct {
	Total         int             `json:"total"`
	Categories    []CategoryCount `json:"categories"`
	HotSpotsFrom  int             `json:"hot_spots_from"`
	HotSpotsTo    int             `json:"hot_spots_to"`
	ColdSpotsFrom int             `json:"cold_spots_from"`
	ColdSpotsTo   int             `json:"cold_spots_to"`
	New           int             `json:"new"`
	Disappeared   int             `json:"disappeared"`
	Stable        int             `json:"stable"`
	StabilityRate float64         `json:"stability_rate"` // percent of units in a Stable-* category
	NewHotSpots   []string        `json:"new_hot_spots"`
	LostHotSpots  []string        `json:"lost_hot_spots"`
	NewColdSpots  []string        `json:"new_cold_spots"`
	LostColdSpots []string        `json:"lost_cold_spots"`
}

// Summarize counts records per category and lists the notable changes
func Summarize(records []models.TransitionRecord) TransitionSummary {
	counts := make(map[models.TransitionCategory]int)
	s := TransitionSummary{
		Total:         len(records),
		NewHotSpots:   []string{},
		LostHotSpots:  []string{},
		NewColdSpots:  []string{},
		LostColdSpots: []string{},
	}

	for _, r := range records {
		counts[r.Category]++
		if r.From == models.LabelHighHigh {
			s.HotSpotsFrom++
		}
		if r.To == models.LabelHighHigh {
			s.HotSpotsTo++
		}
		if r.From == models.LabelLowLow {
			s.ColdSpotsFrom++
		}
		if r.To == models.LabelLowLow {
			s.ColdSpotsTo++
		}

		switch r.Category {
		case models.TransitionNewHotSpot:
			s.New++
			s.NewHotSpots = append(s.NewHotSpots, r.ID)
		case models.TransitionNewColdSpot:
			s.New++
			s.NewColdSpots = append(s.NewColdSpots, r.ID)
		case models.TransitionDisappearedHotSpot:
			s.Disappeared++
			s.LostHotSpots = append(s.LostHotSpots, r.ID)
		case models.TransitionDisappearedColdSpot:
			s.Disappeared++
			s.LostColdSpots = append(s.LostColdSpots, r.ID)
		}
		if r.Category.IsStable() {
			s.Stable++
		}
	}

	for _, c := range models.TransitionCategories {
		s.Categories = append(s.Categories, CategoryCount{Category: c, Count: counts[c]})
	}
	if s.Total > 0 {
		s.StabilityRate = float64(s.Stable) / float64(s.Total) * 100
	}
	return s
}
