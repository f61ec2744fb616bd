package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nutsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "ITC4C",
     "properties": {"NUTS_ID": "ITC4C", "CNTR_CODE": "IT", "NAME_LATN": "Milano"},
     "geometry": {"type": "Polygon", "coordinates": [[[9,45],[9.5,45],[9.5,45.5],[9,45.5],[9,45]]]}},
    {"type": "Feature",
     "properties": {"NUTS_ID": "ITG2A", "CNTR_CODE": "IT", "NUTS_NAME": "Medio Campidano"},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[8.5,39.4],[9,39.4],[9,39.8],[8.5,39.8],[8.5,39.4]]]]}},
    {"type": "Feature", "id": "ITI43",
     "properties": {"CNTR_CODE": "IT", "NAME_LATN": "Roma"},
     "geometry": {"type": "Polygon", "coordinates": [[[12,41.5],[13,41.5],[13,42.2],[12,42.2],[12,41.5]]]}},
    {"type": "Feature",
     "properties": {"NUTS_ID": "ITC4", "CNTR_CODE": "IT", "NAME_LATN": "Lombardia"},
     "geometry": {"type": "Polygon", "coordinates": [[[8.5,44.7],[11,44.7],[11,46.6],[8.5,46.6],[8.5,44.7]]]}},
    {"type": "Feature",
     "properties": {"NUTS_ID": "FR101", "CNTR_CODE": "FR", "NAME_LATN": "Paris"},
     "geometry": {"type": "Polygon", "coordinates": [[[2.2,48.8],[2.4,48.8],[2.4,48.9],[2.2,48.9],[2.2,48.8]]]}}
  ]
}`

func TestParseFeatureCollection(t *testing.T) {
	units, err := ParseFeatureCollection([]byte(nutsFixture), models.LevelProvinces, "IT")
	require.NoError(t, err)

	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
		assert.Equal(t, models.LevelProvinces, u.Level)
		assert.False(t, u.IsEmpty())
	}
	assert.Equal(t, []string{"ITC4C", "ITG25", "ITI43"}, ids)
	assert.Equal(t, "Milano", units[0].Name)
	assert.Equal(t, "Medio Campidano", units[1].Name)

	regions, err := ParseFeatureCollection([]byte(nutsFixture), models.LevelRegions, "IT")
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "ITC4", regions[0].ID)
}

func TestParseFeatureCollection_Errors(t *testing.T) {
	_, err := ParseFeatureCollection([]byte("not json"), models.LevelProvinces, "IT")
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	dup := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"NUTS_ID":"ITG29"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
	  {"type":"Feature","properties":{"NUTS_ID":"ITG28"},"geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,0]]]}}
	]}`
	_, err = ParseFeatureCollection([]byte(dup), models.LevelProvinces, "IT")
	assert.ErrorIs(t, err, models.ErrInvalidInput, "ITG29 remaps onto ITG28")

	point := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"NUTS_ID":"ITC4C"},"geometry":{"type":"Point","coordinates":[9,45]}}
	]}`
	_, err = ParseFeatureCollection([]byte(point), models.LevelProvinces, "IT")
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)
}

func TestRemapCode(t *testing.T) {
	assert.Equal(t, "ITG25", RemapCode("ITG2A"))
	assert.Equal(t, "ITG28", RemapCode("ITG29"))
	assert.Equal(t, "ITC4C", RemapCode("ITC4C"))
}

func TestGeometryRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuts3.geojson")
	require.NoError(t, os.WriteFile(path, []byte(nutsFixture), 0o644))

	repo := NewGeometryRepository(map[models.GeoLevel]string{models.LevelProvinces: path}, "IT")
	ctx := context.Background()

	units, err := repo.GetGeometry(ctx, models.LevelProvinces)
	require.NoError(t, err)
	assert.Len(t, units, 3)

	// served from memory once loaded
	require.NoError(t, os.Remove(path))
	again, err := repo.GetGeometry(ctx, models.LevelProvinces)
	require.NoError(t, err)
	assert.Equal(t, units, again)

	names, err := repo.Names(ctx, models.LevelProvinces)
	require.NoError(t, err)
	assert.Equal(t, "Roma", names["ITI43"])

	_, err = repo.GetGeometry(ctx, models.LevelMacro)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
