package models

// LisaFilter represents query parameters for a single-period LISA computation
type LisaFilter struct {
	Level   string `form:"level"`   // macro, regions, provinces
	Measure string `form:"measure"` // count, rate
	Crime   string `form:"crime" binding:"required"`
	Period  string `form:"period"` // period key, e.g. pre-covid
}

// MoranFilter represents query parameters for the all-period comparison
type MoranFilter struct {
	Level   string `form:"level"`
	Measure string `form:"measure"`
	Crime   string `form:"crime" binding:"required"`
}

// TransitionFilter represents query parameters for comparing two periods
type TransitionFilter struct {
	Level   string `form:"level"`
	Measure string `form:"measure"`
	Crime   string `form:"crime" binding:"required"`
	From    string `form:"from" binding:"required"`
	To      string `form:"to" binding:"required"`
}

// VariationFilter represents query parameters for the variation map
type VariationFilter struct {
	Level   string `form:"level"`
	Measure string `form:"measure"`
	Crime   string `form:"crime" binding:"required"`
	Period  string `form:"period" binding:"required"`
}

// TaskFilter represents query parameters for listing analysis tasks
type TaskFilter struct {
	Status string `form:"status"` // pending, running, completed, failed
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// Normalize clamps paging to the defaults used by task listing
func (f *TaskFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
