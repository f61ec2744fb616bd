package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/spatial"
	"github.com/paulmach/orb/geojson"
)

// SardiniaRemap translates the historical Sardinian province codes still
// found in NUTS boundary files into the codes used by ISTAT data
var SardiniaRemap = map[string]string{
	"ITG2A": "ITG25",
	"ITG2B": "ITG26",
	"ITG2C": "ITG27",
	"ITG29": "ITG28",
}

// RemapCode applies SardiniaRemap to a unit code
func RemapCode(code string) string {
	if mapped, ok := SardiniaRemap[code]; ok {
		return mapped
	}
	return code
}

// GeometryRepository loads NUTS boundaries from GeoJSON files, one per level.
// Loaded levels are cached for the life of the process.
type GeometryRepository struct {
	paths   map[models.GeoLevel]string
	country string

	mu    sync.RWMutex
	units map[models.GeoLevel][]models.SpatialUnit
}

// NewGeometryRepository creates a repository reading the given files.
// Features whose CNTR_CODE differs from country are dropped.
func NewGeometryRepository(paths map[models.GeoLevel]string, country string) *GeometryRepository {
	return &GeometryRepository{
		paths:   paths,
		country: country,
		units:   make(map[models.GeoLevel][]models.SpatialUnit),
	}
}

// GetGeometry returns the units of a level sorted by code
func (r *GeometryRepository) GetGeometry(ctx context.Context, level models.GeoLevel) ([]models.SpatialUnit, error) {
	r.mu.RLock()
	units, ok := r.units[level]
	r.mu.RUnlock()
	if ok {
		return units, nil
	}

	path, ok := r.paths[level]
	if !ok || path == "" {
		return nil, fmt.Errorf("%w: no geometry configured for level %s", models.ErrInvalidInput, level)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry file: %w", err)
	}
	units, err = ParseFeatureCollection(data, level, r.country)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.units[level] = units
	r.mu.Unlock()

	slog.Info("geometry loaded",
		slog.String("component", "geometry"),
		slog.String("level", string(level)),
		slog.String("path", path),
		slog.Int("units", len(units)))
	return units, nil
}

// Names returns unit code to display name for a level
func (r *GeometryRepository) Names(ctx context.Context, level models.GeoLevel) (map[string]string, error) {
	units, err := r.GetGeometry(ctx, level)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(units))
	for _, u := range units {
		names[u.ID] = u.Name
	}
	return names, nil
}

// ParseFeatureCollection converts a NUTS FeatureCollection into spatial
// units of one level. Codes are remapped and units sorted by code.
func ParseFeatureCollection(data []byte, level models.GeoLevel, country string) ([]models.SpatialUnit, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode geojson: %v", models.ErrInvalidGeometry, err)
	}

	seen := make(map[string]struct{}, len(fc.Features))
	units := make([]models.SpatialUnit, 0, len(fc.Features))
	for _, f := range fc.Features {
		if cc := f.Properties.MustString("CNTR_CODE", ""); country != "" && cc != "" && cc != country {
			continue
		}

		id := f.Properties.MustString("NUTS_ID", "")
		if id == "" {
			if s, ok := f.ID.(string); ok {
				id = s
			}
		}
		id = RemapCode(id)
		if !level.Matches(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate unit %s in geometry", models.ErrInvalidInput, id)
		}
		seen[id] = struct{}{}

		name := f.Properties.MustString("NAME_LATN", "")
		if name == "" {
			name = f.Properties.MustString("NUTS_NAME", id)
		}

		unit := models.SpatialUnit{
			ID:       id,
			Name:     name,
			Level:    level,
			Geometry: spatial.ToMultiPolygon(f.Geometry),
		}
		if unit.IsEmpty() {
			return nil, fmt.Errorf("%w: unit %s has no polygon", models.ErrInvalidGeometry, id)
		}
		units = append(units, unit)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}
