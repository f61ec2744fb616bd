package models

import "fmt"

// Quadrant is the Moran scatterplot quadrant of a unit
type Quadrant int

const (
	QuadrantCenter Quadrant = iota // value or lag exactly zero
	QuadrantHH
	QuadrantLL
	QuadrantHL
	QuadrantLH
)

func (q Quadrant) String() string {
	switch q {
	case QuadrantHH:
		return "HH"
	case QuadrantLL:
		return "LL"
	case QuadrantHL:
		return "HL"
	case QuadrantLH:
		return "LH"
	}
	return "Center"
}

// MarshalText implements encoding.TextMarshaler
func (q Quadrant) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// LisaLabel is the LISA cluster category of a unit
type LisaLabel int

const (
	LabelNotSignificant LisaLabel = iota
	LabelHighHigh
	LabelLowLow
	LabelHighLow
	LabelLowHigh
)

// LisaLabels lists labels in display order
var LisaLabels = []LisaLabel{LabelHighHigh, LabelLowLow, LabelHighLow, LabelLowHigh, LabelNotSignificant}

func (l LisaLabel) String() string {
	switch l {
	case LabelHighHigh:
		return "High-High"
	case LabelLowLow:
		return "Low-Low"
	case LabelHighLow:
		return "High-Low"
	case LabelLowHigh:
		return "Low-High"
	}
	return "Not significant"
}

// IsOutlier reports whether the label is a spatial outlier (High-Low or Low-High)
func (l LisaLabel) IsOutlier() bool {
	return l == LabelHighLow || l == LabelLowHigh
}

// MarshalText implements encoding.TextMarshaler
func (l LisaLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *LisaLabel) UnmarshalText(b []byte) error {
	for _, candidate := range LisaLabels {
		if candidate.String() == string(b) {
			*l = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: unknown LISA label %q", ErrInvalidInput, string(b))
}

// MoranResult holds the global Moran's I statistic and its permutation inference
type MoranResult struct {
	I            float64 `json:"i"`
	ExpectedI    float64 `json:"expected_i"`
	PValue       float64 `json:"p_value"`
	ZScore       float64 `json:"z_score"`
	Permutations int     `json:"permutations"`
}

// LocalMoranResult holds per-unit LISA values, aligned to the weights order
type LocalMoranResult struct {
	Is        []float64  `json:"is"`
	Quadrants []Quadrant `json:"quadrants"`
	PValues   []float64  `json:"p_values"`
}

// Len returns the number of units
func (r LocalMoranResult) Len() int {
	return len(r.Is)
}

// ClassifiedUnit is one unit of a period computation. Never mutated after creation.
type ClassifiedUnit struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Level       GeoLevel  `json:"level"`
	Value       float64   `json:"value"`
	StdValue    float64   `json:"std_value"`
	Lag         float64   `json:"lag"`
	LocalI      float64   `json:"local_i"`
	Quadrant    Quadrant  `json:"quadrant"`
	Label       LisaLabel `json:"label"`
	PValue      float64   `json:"p_value"`
	Significant bool      `json:"significant"`
	Neighbors   int       `json:"neighbors"`
}

// TransitionCategory classifies how a unit's LISA label changed between periods
type TransitionCategory int

const (
	TransitionOther TransitionCategory = iota
	TransitionStableHotSpot
	TransitionStableColdSpot
	TransitionStableOutlier
	TransitionStableNotSignificant
	TransitionNewHotSpot
	TransitionNewColdSpot
	TransitionDisappearedHotSpot
	TransitionDisappearedColdSpot
)

// TransitionCategories lists categories in display order
var TransitionCategories = []TransitionCategory{
	TransitionStableHotSpot,
	TransitionStableColdSpot,
	TransitionStableOutlier,
	TransitionStableNotSignificant,
	TransitionNewHotSpot,
	TransitionNewColdSpot,
	TransitionDisappearedHotSpot,
	TransitionDisappearedColdSpot,
	TransitionOther,
}

func (c TransitionCategory) String() string {
	switch c {
	case TransitionStableHotSpot:
		return "Stable Hot Spot"
	case TransitionStableColdSpot:
		return "Stable Cold Spot"
	case TransitionStableOutlier:
		return "Stable Outlier"
	case TransitionStableNotSignificant:
		return "Stable Not Significant"
	case TransitionNewHotSpot:
		return "New Hot Spot"
	case TransitionNewColdSpot:
		return "New Cold Spot"
	case TransitionDisappearedHotSpot:
		return "Disappeared Hot Spot"
	case TransitionDisappearedColdSpot:
		return "Disappeared Cold Spot"
	}
	return "Other Transition"
}

// IsStable reports whether the category is one of the Stable-* categories
func (c TransitionCategory) IsStable() bool {
	switch c {
	case TransitionStableHotSpot, TransitionStableColdSpot, TransitionStableOutlier, TransitionStableNotSignificant:
		return true
	}
	return false
}

// MarshalText implements encoding.TextMarshaler
func (c TransitionCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// TransitionRecord is the label change of one unit between two periods
type TransitionRecord struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	From     LisaLabel          `json:"from"`
	To       LisaLabel          `json:"to"`
	Category TransitionCategory `json:"category"`
}
