package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Centroid returns the area-weighted centroid of a (multi)polygon.
// Falls back to the vertex mean for degenerate rings with zero area.
func Centroid(mp orb.MultiPolygon) orb.Point {
	c, area := planar.CentroidArea(mp)
	if area != 0 && !math.IsNaN(c[0]) && !math.IsNaN(c[1]) {
		return c
	}

	var sumLon, sumLat float64
	var n int
	for _, poly := range mp {
		for _, ring := range poly {
			for _, p := range ring {
				sumLon += p[0]
				sumLat += p[1]
				n++
			}
		}
	}
	if n == 0 {
		return orb.Point{}
	}
	return orb.Point{sumLon / float64(n), sumLat / float64(n)}
}

// ToMultiPolygon normalises a GeoJSON geometry into a MultiPolygon.
// Non-areal geometries yield nil.
func ToMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		return geom
	case orb.Collection:
		var mp orb.MultiPolygon
		for _, part := range geom {
			mp = append(mp, ToMultiPolygon(part)...)
		}
		return mp
	}
	return nil
}

// vertexKey is a coordinate snapped to the tolerance grid
type vertexKey struct {
	x, y int64
}

func snap(p orb.Point, tol float64) vertexKey {
	return vertexKey{
		x: int64(math.Round(p[0] / tol)),
		y: int64(math.Round(p[1] / tol)),
	}
}

type segment struct {
	a, b  orb.Point
	bound orb.Bound
}

// shape is the precomputed boundary of one unit used by the contiguity test
type shape struct {
	bound    orb.Bound
	vertices map[vertexKey]struct{}
	segments []segment
}

func newShape(mp orb.MultiPolygon, tol float64) shape {
	s := shape{
		bound:    mp.Bound(),
		vertices: make(map[vertexKey]struct{}),
	}
	for _, poly := range mp {
		for _, ring := range poly {
			for i := 0; i < len(ring); i++ {
				s.vertices[snap(ring[i], tol)] = struct{}{}
				if i == 0 {
					continue
				}
				a, b := ring[i-1], ring[i]
				s.segments = append(s.segments, segment{a: a, b: b, bound: orb.MultiPoint{a, b}.Bound()})
			}
		}
	}
	return s
}

// touches reports whether two boundaries share a vertex or touch along an edge
func touches(s1, s2 shape, tol float64) bool {
	small, large := s1, s2
	if len(small.vertices) > len(large.vertices) {
		small, large = large, small
	}
	for k := range small.vertices {
		if _, ok := large.vertices[k]; ok {
			return true
		}
	}

	overlap, ok := intersection(s1.bound.Pad(tol), s2.bound.Pad(tol))
	if !ok {
		return false
	}
	segs1 := clip(s1.segments, overlap)
	segs2 := clip(s2.segments, overlap)
	for _, a := range segs1 {
		for _, b := range segs2 {
			if !a.bound.Pad(tol).Intersects(b.bound) {
				continue
			}
			if segmentsTouch(a.a, a.b, b.a, b.b, tol) {
				return true
			}
		}
	}
	return false
}

func intersection(a, b orb.Bound) (orb.Bound, bool) {
	if !a.Intersects(b) {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{math.Max(a.Min[0], b.Min[0]), math.Max(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Min(a.Max[0], b.Max[0]), math.Min(a.Max[1], b.Max[1])},
	}, true
}

func clip(segs []segment, b orb.Bound) []segment {
	var out []segment
	for _, s := range segs {
		if s.bound.Intersects(b) {
			out = append(out, s)
		}
	}
	return out
}

// segmentsTouch reports whether segments p1p2 and q1q2 intersect or come within tol
func segmentsTouch(p1, p2, q1, q2 orb.Point, tol float64) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return pointSegmentDistance(p1, q1, q2) <= tol ||
		pointSegmentDistance(p2, q1, q2) <= tol ||
		pointSegmentDistance(q1, p1, p2) <= tol ||
		pointSegmentDistance(q2, p1, p2) <= tol
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// pointSegmentDistance is the planar distance (in degrees) from p to segment ab
func pointSegmentDistance(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy))
}
