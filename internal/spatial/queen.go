package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// DefaultTolerance is the snapping distance (degrees) below which two
// boundary points are considered the same point. About 1cm at Italian latitudes.
const DefaultTolerance = 1e-7

// QueenOptions tunes the contiguity builder
type QueenOptions struct {
	Tolerance float64
}

func (o QueenOptions) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

// BuildQueen constructs row-standardised queen contiguity weights. Two units
// are neighbours when their boundaries share a vertex or touch along an edge.
// Units outside the largest connected component receive a directed edge to
// their nearest unit of that component, so every row has at least one neighbour.
func BuildQueen(units []models.SpatialUnit, opts QueenOptions) (*Weights, error) {
	n := len(units)
	if n < 2 {
		return nil, fmt.Errorf("%w: contiguity needs at least 2 units, got %d", models.ErrInsufficientData, n)
	}

	tol := opts.tolerance()
	ids := make([]string, n)
	seen := make(map[string]struct{}, n)
	shapes := make([]shape, n)
	var tr rtree.RTreeG[int]

	for i, u := range units {
		if u.Geometry == nil || u.IsEmpty() {
			return nil, fmt.Errorf("%w: unit %q has no boundary", models.ErrInvalidGeometry, u.ID)
		}
		if _, dup := seen[u.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate unit id %q", models.ErrInvalidInput, u.ID)
		}
		seen[u.ID] = struct{}{}
		ids[i] = u.ID

		shapes[i] = newShape(u.Geometry, tol)
		b := shapes[i].bound.Pad(tol)
		tr.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, i)
	}

	sets := make([]map[int]struct{}, n)
	for i := range sets {
		sets[i] = make(map[int]struct{})
	}
	for i := range shapes {
		b := shapes[i].bound.Pad(tol)
		tr.Search([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]},
			func(_, _ [2]float64, j int) bool {
				if j <= i {
					return true
				}
				if touches(shapes[i], shapes[j], tol) {
					sets[i][j] = struct{}{}
					sets[j][i] = struct{}{}
				}
				return true
			})
	}

	neighbors := make([][]int, n)
	for i, set := range sets {
		neighbors[i] = sortedKeys(set)
	}

	centroids := make([]orb.Point, n)
	for i, u := range units {
		centroids[i] = Centroid(u.Geometry)
	}
	repaired := repairIslands(neighbors, centroids)

	return newWeights(ids, neighbors, repaired), nil
}

// Components returns the connected components of an undirected neighbour
// graph, ordered by their lowest member index. Members are ascending.
func Components(neighbors [][]int) [][]int {
	n := len(neighbors)
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}

	var out [][]int
	for start := 0; start < n; start++ {
		if comp[start] >= 0 {
			continue
		}
		id := len(out)
		members := []int{start}
		comp[start] = id
		for q := 0; q < len(members); q++ {
			for _, j := range neighbors[members[q]] {
				if comp[j] < 0 {
					comp[j] = id
					members = append(members, j)
				}
			}
		}
		sort.Ints(members)
		out = append(out, members)
	}
	return out
}

// repairIslands links every unit outside the dominant component to its
// nearest unit inside it. Ties in size go to the component with the lowest
// member index; ties in distance go to the lowest unit index.
func repairIslands(neighbors [][]int, centroids []orb.Point) []bool {
	repaired := make([]bool, len(neighbors))
	comps := Components(neighbors)
	if len(comps) <= 1 {
		return repaired
	}

	dominant := 0
	for c := range comps {
		if len(comps[c]) > len(comps[dominant]) {
			dominant = c
		}
	}

	for c, members := range comps {
		if c == dominant {
			continue
		}
		for _, i := range members {
			neighbors[i] = insertSorted(neighbors[i], nearest(i, comps[dominant], centroids))
			repaired[i] = true
		}
	}

	// A dominant component of one unit has no edge of its own yet
	if root := comps[dominant]; len(root) == 1 {
		i := root[0]
		others := make([]int, 0, len(neighbors)-1)
		for j := range neighbors {
			if j != i {
				others = append(others, j)
			}
		}
		neighbors[i] = insertSorted(neighbors[i], nearest(i, others, centroids))
		repaired[i] = true
	}
	return repaired
}

// nearest returns the candidate closest to unit i, lowest index on ties
func nearest(i int, candidates []int, centroids []orb.Point) int {
	best, bestDist := -1, math.Inf(1)
	for _, j := range candidates {
		if d := PointDistance(centroids[i], centroids[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
