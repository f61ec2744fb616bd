package models

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// GeoLevel is the NUTS aggregation level a computation runs at
type GeoLevel string

const (
	LevelMacro     GeoLevel = "macro"     // NUTS1, 3-char codes
	LevelRegions   GeoLevel = "regions"   // NUTS2, 4-char codes
	LevelProvinces GeoLevel = "provinces" // NUTS3, 5-char codes
)

// AllLevels lists levels from coarse to fine
var AllLevels = []GeoLevel{LevelMacro, LevelRegions, LevelProvinces}

// ParseGeoLevel parses a level name, accepting the NUTS number as an alias
func ParseGeoLevel(s string) (GeoLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "macro", "nuts1", "1":
		return LevelMacro, nil
	case "regions", "region", "nuts2", "2":
		return LevelRegions, nil
	case "provinces", "province", "nuts3", "3", "":
		return LevelProvinces, nil
	}
	return "", fmt.Errorf("%w: unknown geo level %q", ErrInvalidInput, s)
}

// CodeLength returns the identifier length used by the source data at this level
func (l GeoLevel) CodeLength() int {
	switch l {
	case LevelMacro:
		return 3
	case LevelRegions:
		return 4
	case LevelProvinces:
		return 5
	}
	return 0
}

// NUTS returns the NUTS hierarchy number (1-3)
func (l GeoLevel) NUTS() int {
	return l.CodeLength() - 2
}

// Matches reports whether a unit code belongs to this level
func (l GeoLevel) Matches(code string) bool {
	return len(code) == l.CodeLength()
}

// SpatialUnit is a territorial unit with its boundary
type SpatialUnit struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Level    GeoLevel         `json:"level"`
	Geometry orb.MultiPolygon `json:"-"`
}

// IsEmpty reports whether the unit has no usable boundary ring
func (u SpatialUnit) IsEmpty() bool {
	for _, p := range u.Geometry {
		if len(p) > 0 && len(p[0]) >= 3 {
			return false
		}
	}
	return true
}
