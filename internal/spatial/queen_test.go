package spatial

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// box returns a closed rectangle ring unit with lower-left (x, y)
func box(id string, x, y, w, h float64) models.SpatialUnit {
	ring := orb.Ring{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}, {x, y}}
	return models.SpatialUnit{ID: id, Level: models.LevelProvinces, Geometry: orb.MultiPolygon{{ring}}}
}

// row lays n unit squares side by side along the x axis
func row(n int) []models.SpatialUnit {
	units := make([]models.SpatialUnit, n)
	for i := range units {
		units[i] = box(fmt.Sprintf("IT%03d", i), float64(i), 0, 1, 1)
	}
	return units
}

func TestBuildQueen_Row(t *testing.T) {
	w, err := BuildQueen(row(3), QueenOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, w.N())
	assert.Equal(t, []int{1}, w.Neighbors(0))
	assert.Equal(t, []int{0, 2}, w.Neighbors(1))
	assert.Equal(t, []int{1}, w.Neighbors(2))
	assert.InDelta(t, 0.5, w.Weight(1, 0), 1e-12)
	assert.Zero(t, w.Weight(0, 2))
	assert.Empty(t, w.Islands())
	assert.InDelta(t, 4.0/3.0, w.MeanNeighbors(), 1e-12)
}

func TestBuildQueen_CornerTouchCounts(t *testing.T) {
	units := []models.SpatialUnit{
		box("A", 0, 0, 1, 1),
		box("B", 1, 0, 1, 1),
		box("C", 0, 1, 1, 1),
		box("D", 1, 1, 1, 1),
	}
	w, err := BuildQueen(units, QueenOptions{})
	require.NoError(t, err)

	for i := 0; i < w.N(); i++ {
		assert.Equal(t, 3, w.Cardinality(i), "unit %s", w.ID(i))
	}
	// A and D meet only at (1,1)
	assert.InDelta(t, 1.0/3.0, w.Weight(0, 3), 1e-12)
}

func TestBuildQueen_EdgeTouchWithoutSharedVertex(t *testing.T) {
	units := []models.SpatialUnit{
		box("A", 0, 0, 2, 1),
		box("B", 0.5, 1, 1, 1),
	}
	w, err := BuildQueen(units, QueenOptions{})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, w.Neighbors(0))
	assert.Equal(t, []int{0}, w.Neighbors(1))
	assert.Empty(t, w.Islands())
}

func TestBuildQueen_RowsSumToOne(t *testing.T) {
	units := make([]models.SpatialUnit, 0, 12)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			units = append(units, box(fmt.Sprintf("U%d%d", x, y), float64(x), float64(y), 1, 1))
		}
	}
	w, err := BuildQueen(units, QueenOptions{})
	require.NoError(t, err)

	for i := 0; i < w.N(); i++ {
		assert.InDelta(t, 1.0, w.RowSum(i), 1e-12)
		assert.NotContains(t, w.Neighbors(i), i)
	}
	assert.InDelta(t, float64(w.N()), w.S0(), 1e-9)
}

func TestBuildQueen_IslandGetsNearestNeighbour(t *testing.T) {
	units := append(row(3), box("ISLAND", 5, 0, 1, 1))
	w, err := BuildQueen(units, QueenOptions{})
	require.NoError(t, err)

	island, ok := w.Index("ISLAND")
	require.True(t, ok)
	assert.Equal(t, []int{2}, w.Neighbors(island))
	assert.True(t, w.Repaired(island))
	assert.Equal(t, []string{"ISLAND"}, w.Islands())
	assert.InDelta(t, 1.0, w.Weight(island, 2), 1e-12)

	// the repair edge is directed
	assert.Equal(t, []int{1}, w.Neighbors(2))
}

func TestBuildQueen_NoContiguityAtAll(t *testing.T) {
	units := []models.SpatialUnit{
		box("A", 0, 0, 1, 1),
		box("B", 3, 0, 1, 1),
		box("C", 10, 0, 1, 1),
	}
	w, err := BuildQueen(units, QueenOptions{})
	require.NoError(t, err)

	for i := 0; i < w.N(); i++ {
		assert.Equal(t, 1, w.Cardinality(i), "unit %s", w.ID(i))
	}
	assert.Equal(t, []int{1}, w.Neighbors(0))
	assert.Equal(t, []int{0}, w.Neighbors(1))
	assert.Equal(t, []int{0}, w.Neighbors(2))
}

func TestBuildQueen_Errors(t *testing.T) {
	_, err := BuildQueen(row(1), QueenOptions{})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = BuildQueen(nil, QueenOptions{})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	units := row(3)
	units[1].Geometry = nil
	_, err = BuildQueen(units, QueenOptions{})
	assert.ErrorIs(t, err, models.ErrInvalidGeometry)

	units = row(3)
	units[2].ID = units[0].ID
	_, err = BuildQueen(units, QueenOptions{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestComponents(t *testing.T) {
	comps := Components([][]int{{1}, {0}, {}, {4}, {3}})
	assert.Equal(t, [][]int{{0, 1}, {2}, {3, 4}}, comps)
}

func TestLag(t *testing.T) {
	w, err := BuildQueen(row(3), QueenOptions{})
	require.NoError(t, err)

	lag := w.Lag([]float64{1, 2, 3})
	assert.InDeltaSlice(t, []float64{2, 2, 2}, lag, 1e-12)
}

func TestCentroid(t *testing.T) {
	c := Centroid(box("A", 2, 4, 2, 2).Geometry)
	assert.InDelta(t, 3.0, c.Lon(), 1e-12)
	assert.InDelta(t, 5.0, c.Lat(), 1e-12)
}

func TestPointDistance(t *testing.T) {
	rome := orb.Point{12.4964, 41.9028}
	milan := orb.Point{9.1900, 45.4642}
	assert.InDelta(t, 477_000, PointDistance(rome, milan), 5_000)
	assert.Zero(t, PointDistance(rome, rome))
}

func TestWeightsCache_ReusesMatrix(t *testing.T) {
	cache := NewWeightsCache(4, QueenOptions{})
	units := row(4)

	w1, err := cache.Get(models.LevelProvinces, units)
	require.NoError(t, err)
	w2, err := cache.Get(models.LevelProvinces, units)
	require.NoError(t, err)

	assert.Same(t, w1, w2)
	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Builds)
	assert.Equal(t, 1, stats.Entries)
}

func TestWeightsCache_ConcurrentBuildsOnce(t *testing.T) {
	cache := NewWeightsCache(4, QueenOptions{})
	units := row(6)

	var wg sync.WaitGroup
	results := make([]*Weights, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := cache.Get(models.LevelRegions, units)
			if err == nil {
				results[i] = w
			}
		}()
	}
	wg.Wait()

	for _, w := range results {
		require.NotNil(t, w)
		assert.Same(t, results[0], w)
	}
	assert.Equal(t, int64(1), cache.Stats().Builds)
}

func TestWeightsCache_Evicts(t *testing.T) {
	cache := NewWeightsCache(1, QueenOptions{})

	_, err := cache.Get(models.LevelProvinces, row(3))
	require.NoError(t, err)
	_, err = cache.Get(models.LevelProvinces, row(4))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Stats().Entries)

	cache.Purge()
	assert.Zero(t, cache.Stats().Entries)
}

func TestCacheKey_DependsOnLevelAndOrder(t *testing.T) {
	units := row(2)
	swapped := []models.SpatialUnit{units[1], units[0]}

	assert.NotEqual(t, CacheKey(models.LevelProvinces, units), CacheKey(models.LevelRegions, units))
	assert.NotEqual(t, CacheKey(models.LevelProvinces, units), CacheKey(models.LevelProvinces, swapped))
}
