package spatial

// Weights is a row-standardised sparse spatial weights matrix over an
// ordered set of units. Rows and columns follow the order of IDs.
// A Weights value is immutable once built and safe for concurrent reads.
type Weights struct {
	ids       []string
	index     map[string]int
	neighbors [][]int
	weights   [][]float64
	repaired  []bool
}

// newWeights row-standardises the neighbour lists ("R" transform).
// Every row must be non-empty; BuildQueen guarantees this after island repair.
func newWeights(ids []string, neighbors [][]int, repaired []bool) *Weights {
	w := &Weights{
		ids:       ids,
		index:     make(map[string]int, len(ids)),
		neighbors: neighbors,
		weights:   make([][]float64, len(ids)),
		repaired:  repaired,
	}
	for i, id := range ids {
		w.index[id] = i
		k := len(neighbors[i])
		row := make([]float64, k)
		for j := range row {
			row[j] = 1.0 / float64(k)
		}
		w.weights[i] = row
	}
	return w
}

// N returns the number of units
func (w *Weights) N() int {
	return len(w.ids)
}

// IDs returns a copy of the unit identifiers in matrix order
func (w *Weights) IDs() []string {
	out := make([]string, len(w.ids))
	copy(out, w.ids)
	return out
}

// ID returns the identifier of row i
func (w *Weights) ID(i int) string {
	return w.ids[i]
}

// Index returns the row of a unit identifier
func (w *Weights) Index(id string) (int, bool) {
	i, ok := w.index[id]
	return i, ok
}

// Neighbors returns the column indices of row i, ascending
func (w *Weights) Neighbors(i int) []int {
	return w.neighbors[i]
}

// RowWeights returns the non-zero weights of row i, aligned with Neighbors(i)
func (w *Weights) RowWeights(i int) []float64 {
	return w.weights[i]
}

// Cardinality returns the number of neighbours of unit i
func (w *Weights) Cardinality(i int) int {
	return len(w.neighbors[i])
}

// Weight returns W[i][j]
func (w *Weights) Weight(i, j int) float64 {
	for k, n := range w.neighbors[i] {
		if n == j {
			return w.weights[i][k]
		}
	}
	return 0
}

// RowSum returns the sum of row i (1 for every row after standardisation)
func (w *Weights) RowSum(i int) float64 {
	var sum float64
	for _, v := range w.weights[i] {
		sum += v
	}
	return sum
}

// S0 returns the sum of all weights
func (w *Weights) S0() float64 {
	var sum float64
	for i := range w.weights {
		sum += w.RowSum(i)
	}
	return sum
}

// Lag returns the spatial lag W·z
func (w *Weights) Lag(z []float64) []float64 {
	lag := make([]float64, len(w.ids))
	for i := range w.neighbors {
		lag[i] = w.LagAt(i, z)
	}
	return lag
}

// LagAt returns the spatial lag of a single row
func (w *Weights) LagAt(i int, z []float64) float64 {
	var sum float64
	for k, j := range w.neighbors[i] {
		sum += w.weights[i][k] * z[j]
	}
	return sum
}

// Repaired reports whether row i received a nearest-neighbour edge
func (w *Weights) Repaired(i int) bool {
	return w.repaired[i]
}

// Islands returns the identifiers of units connected by island repair
func (w *Weights) Islands() []string {
	var out []string
	for i, r := range w.repaired {
		if r {
			out = append(out, w.ids[i])
		}
	}
	return out
}

// MeanNeighbors returns the average row cardinality
func (w *Weights) MeanNeighbors() float64 {
	if len(w.ids) == 0 {
		return 0
	}
	var total int
	for _, n := range w.neighbors {
		total += len(n)
	}
	return float64(total) / float64(len(w.ids))
}
