package geom

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SplitResult holds the outcome of splitting a polygon against a plane.
//
// When Split is true, Front and Back hold freshly constructed fragments and
// the coplanar slots are nil. When Split is false, exactly one slot holds
// the original polygon: Front or Back when the polygon lies entirely on one
// side, CoplanarFront or CoplanarBack when it lies on the plane itself
// (oriented with or against the clip normal).
type SplitResult struct {
	Front         *Polygon
	Back          *Polygon
	CoplanarFront *Polygon
	CoplanarBack  *Polygon
	Split         bool
}

// Split partitions the polygon against clip.
//
// Every vertex distance within OnPlaneEpsilon of the plane is snapped to
// zero before the spanning decision, so a polygon sitting in the epsilon
// band is coplanar rather than spanning, and a single on-plane vertex never
// forces a split by itself. In the spanning case the two fragments share
// each crossing point exactly (one interpolation per crossing edge,
// appended to both loops), so the cut introduces no seam.
//
// The receiver is never mutated. An error is returned only on an internal
// invariant violation: a crossing edge with no computable intersection, or
// a fragment too degenerate to carry a plane.
func (p *Polygon) Split(clip Plane) (SplitResult, error) {
	n := len(p.vertices)
	dists := make([]float64, n)
	var frontCount, backCount int
	for i, v := range p.vertices {
		d := clip.EvalAtPoint(v)
		switch {
		case d > OnPlaneEpsilon:
			frontCount++
		case d < -OnPlaneEpsilon:
			backCount++
		default:
			d = 0
		}
		dists[i] = d
	}

	switch {
	case frontCount == 0 && backCount == 0:
		// Entirely on the clip plane. Orientation relative to the clip
		// normal decides which coplanar slot gets the polygon.
		if p.plane.Normal.Dot(clip.Normal) >= 0 {
			return SplitResult{CoplanarFront: p}, nil
		}
		return SplitResult{CoplanarBack: p}, nil
	case backCount == 0:
		return SplitResult{Front: p}, nil
	case frontCount == 0:
		return SplitResult{Back: p}, nil
	}

	// Spanning: walk the loop as directed edges. On-plane vertices go to
	// both fragments, which keeps both loops closed through a vertex lying
	// exactly on the cut.
	frontVerts := make([]v3.Vec, 0, n+2)
	backVerts := make([]v3.Vec, 0, n+2)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a := p.vertices[i]
		da, db := dists[i], dists[j]

		if da <= 0 {
			backVerts = append(backVerts, a)
		}
		if da >= 0 {
			frontVerts = append(frontVerts, a)
		}
		if (da < 0 && db > 0) || (da > 0 && db < 0) {
			mid, ok := clip.IntersectSegment(a, p.vertices[j])
			if !ok {
				return SplitResult{}, fmt.Errorf(
					"split: edge %d-%d crosses the clip plane but has no intersection", i, j)
			}
			backVerts = append(backVerts, mid)
			frontVerts = append(frontVerts, mid)
		}
	}

	back, err := NewPolygon(backVerts)
	if err != nil {
		return SplitResult{}, fmt.Errorf("split: back fragment: %w", err)
	}
	front, err := NewPolygon(frontVerts)
	if err != nil {
		return SplitResult{}, fmt.Errorf("split: front fragment: %w", err)
	}
	return SplitResult{Front: front, Back: back, Split: true}, nil
}
