package stats

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/spatial"
)

const (
	// DefaultPermutations is the conventional number of random relabellings
	DefaultPermutations = 999
	// MinUnits is the smallest number of units accepted for inference
	MinUnits = 5
)

// Options controls the permutation inference
type Options struct {
	Permutations int
	// Seed makes runs reproducible. Zero draws a fresh seed per call.
	Seed uint64
}

// Result is the full output of a Moran computation, aligned to the weights order
type Result struct {
	Global models.MoranResult
	Local  models.LocalMoranResult
	Z      []float64 // standardised values
	Lag    []float64 // spatial lag of Z
	Seed   uint64    // seed actually used
}

// Compute runs global and local Moran's I with permutation inference
func Compute(w *spatial.Weights, y []float64, opts Options) (*Result, error) {
	if w == nil || len(y) != w.N() {
		return nil, fmt.Errorf("%w: %d values for %d weight rows", models.ErrInvalidInput, len(y), weightsN(w))
	}
	if len(y) < MinUnits {
		return nil, fmt.Errorf("%w: %d units, need at least %d", models.ErrInsufficientData, len(y), MinUnits)
	}

	z, err := Standardize(y)
	if err != nil {
		return nil, err
	}

	perms := opts.Permutations
	if perms <= 0 {
		perms = DefaultPermutations
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := newRand(seed)

	lag := w.Lag(z)
	return &Result{
		Global: GlobalMoran(w, z, lag, rng, perms),
		Local:  LocalMoran(w, z, lag, rng, perms),
		Z:      z,
		Lag:    lag,
		Seed:   seed,
	}, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func weightsN(w *spatial.Weights) int {
	if w == nil {
		return 0
	}
	return w.N()
}

// MoranI computes I = (N/S0) * Σ z_i·lag_i / Σ z_i²
func MoranI(w *spatial.Weights, z, lag []float64) float64 {
	var num, den float64
	for i := range z {
		num += z[i] * lag[i]
		den += z[i] * z[i]
	}
	if den == 0 {
		return 0
	}
	return float64(w.N()) / w.S0() * num / den
}

// GlobalMoran computes the global statistic and its permutation p-value and z-score
func GlobalMoran(w *spatial.Weights, z, lag []float64, rng *rand.Rand, perms int) models.MoranResult {
	n := w.N()
	observed := MoranI(w, z, lag)

	shuffled := make([]float64, n)
	copy(shuffled, z)
	sims := make([]float64, perms)
	for p := range sims {
		rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		sims[p] = MoranI(w, shuffled, w.Lag(shuffled))
	}

	return models.MoranResult{
		I:            observed,
		ExpectedI:    -1.0 / float64(n-1),
		PValue:       foldedPValue(observed, sims),
		ZScore:       simZScore(observed, sims),
		Permutations: perms,
	}
}

// LocalMoran computes I_i = (N-1)·z_i·lag_i / Σ z² for every unit with
// conditional permutation p-values: z_i stays fixed while its neighbour
// slots are refilled by sampling the other units without replacement.
func LocalMoran(w *spatial.Weights, z, lag []float64, rng *rand.Rand, perms int) models.LocalMoranResult {
	n := w.N()
	var sumSq float64
	for _, v := range z {
		sumSq += v * v
	}
	scale := float64(n-1) / sumSq

	res := models.LocalMoranResult{
		Is:        make([]float64, n),
		Quadrants: make([]models.Quadrant, n),
		PValues:   make([]float64, n),
	}

	pool := make([]int, 0, n-1)
	sims := make([]float64, perms)
	for i := 0; i < n; i++ {
		res.Is[i] = scale * z[i] * lag[i]
		res.Quadrants[i] = AssignQuadrant(z[i], lag[i])

		pool = pool[:0]
		for j := 0; j < n; j++ {
			if j != i {
				pool = append(pool, j)
			}
		}
		row := w.RowWeights(i)
		k := len(row)
		for p := range sims {
			var simLag float64
			for t := 0; t < k; t++ {
				r := t + rng.IntN(len(pool)-t)
				pool[t], pool[r] = pool[r], pool[t]
				simLag += row[t] * z[pool[t]]
			}
			sims[p] = scale * z[i] * simLag
		}
		res.PValues[i] = foldedPValue(res.Is[i], sims)
	}
	return res
}

// AssignQuadrant places a unit on the Moran scatterplot by exact signs
func AssignQuadrant(z, lag float64) models.Quadrant {
	switch {
	case z > 0 && lag > 0:
		return models.QuadrantHH
	case z < 0 && lag < 0:
		return models.QuadrantLL
	case z > 0 && lag < 0:
		return models.QuadrantHL
	case z < 0 && lag > 0:
		return models.QuadrantLH
	}
	return models.QuadrantCenter
}

// tieEpsilon is the relative distance under which a simulated statistic
// counts as equal to the observed one
const tieEpsilon = 1e-9

// foldedPValue counts simulations at least as large as the observed value,
// folds to the smaller tail and applies the (k+1)/(perms+1) correction.
// Simulations within tieEpsilon of the observed value count toward both
// tails, so a statistic that no permutation can move gets p = 1.
func foldedPValue(observed float64, sims []float64) float64 {
	eps := tieEpsilon * math.Max(1, math.Abs(observed))
	above, below := 0, 0
	for _, s := range sims {
		if s >= observed-eps {
			above++
		}
		if s <= observed+eps {
			below++
		}
	}
	return float64(min(above, below)+1) / float64(len(sims)+1)
}

func simZScore(observed float64, sims []float64) float64 {
	mean := Mean(sims)
	std := PopStdDev(sims)
	if math.IsNaN(std) || std <= tieEpsilon*math.Max(1, math.Abs(observed)) {
		return 0
	}
	return (observed - mean) / std
}
