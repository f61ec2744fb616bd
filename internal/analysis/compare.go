package analysis

import (
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// TrendThreshold is the |ΔI| below which global autocorrelation is considered unchanged
const TrendThreshold = 0.05

// Global patterns
const (
	PatternClustered = "Clustered"
	PatternDispersed = "Dispersed"
	PatternRandom    = "Random"
)

// Trends between consecutive periods
const (
	TrendIncreased = "increased"
	TrendDecreased = "decreased"
	TrendStable    = "stable"
)

// PeriodPattern is the global Moran summary of one period
type PeriodPattern struct {
	Period  models.Period       `json:"period"`
	Moran   *models.MoranResult `json:"moran,omitempty"`
	Pattern string              `json:"pattern,omitempty"`
	Skipped string              `json:"skipped,omitempty"` // error code when the period has no result
}

// GlobalChange is the ΔI between two consecutive computed periods
type GlobalChange struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	DeltaI float64 `json:"delta_i"`
	Trend  string  `json:"trend"`
}

// GlobalComparison compares global Moran's I across periods
type GlobalComparison struct {
	Periods []PeriodPattern `json:"periods"`
	Changes []GlobalChange  `json:"changes"`
}

// Pattern names the global spatial pattern of a Moran result at alpha
func Pattern(m models.MoranResult, alpha float64) string {
	if m.PValue >= alpha {
		return PatternRandom
	}
	if m.I > 0 {
		return PatternClustered
	}
	if m.I < 0 {
		return PatternDispersed
	}
	return PatternRandom
}

// Trend classifies a change in I
func Trend(delta float64) string {
	switch {
	case delta > TrendThreshold:
		return TrendIncreased
	case delta < -TrendThreshold:
		return TrendDecreased
	}
	return TrendStable
}

// CompareGlobal summarises each period and the change between consecutive
// periods that both produced a result. Skipped periods break no chain: the
// change is taken against the previous computed period.
func CompareGlobal(outcomes []PeriodOutcome, alpha float64) GlobalComparison {
	cmp := GlobalComparison{
		Periods: make([]PeriodPattern, 0, len(outcomes)),
		Changes: []GlobalChange{},
	}

	var prev *PeriodResult
	for _, o := range outcomes {
		pp := PeriodPattern{Period: o.Period}
		if o.Result == nil {
			pp.Skipped = o.Code
			cmp.Periods = append(cmp.Periods, pp)
			continue
		}

		global := o.Result.Global
		pp.Moran = &global
		pp.Pattern = Pattern(global, alpha)
		cmp.Periods = append(cmp.Periods, pp)

		if prev != nil {
			delta := global.I - prev.Global.I
			cmp.Changes = append(cmp.Changes, GlobalChange{
				From:   prev.Period.Key,
				To:     o.Period.Key,
				DeltaI: delta,
				Trend:  Trend(delta),
			})
		}
		prev = o.Result
	}
	return cmp
}
