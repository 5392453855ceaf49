package geom

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// OnPlaneEpsilon is the distance below which a point is treated as lying
// exactly on a plane. Distances inside this band are snapped to zero before
// any spanning decision is made.
const OnPlaneEpsilon = 1e-6

// Plane is an oriented plane in 3-space, stored as a unit normal and a
// reference point lying on the plane. The normal points toward the plane's
// front side. Plane is a value type and is never mutated after creation.
type Plane struct {
	Normal v3.Vec
	Point  v3.Vec
}

// NewPlane creates a plane from a normal vector and a point on the plane.
// The normal is normalized to unit length.
func NewPlane(normal, point v3.Vec) Plane {
	return Plane{Normal: normal.Normalize(), Point: point}
}

// PlaneFromPoints derives a plane from three points, with the normal taken
// from (b-a) x (c-a). Returns an error if the points are collinear, in which
// case no plane is defined.
func PlaneFromPoints(a, b, c v3.Vec) (Plane, error) {
	cross := b.Sub(a).Cross(c.Sub(a))
	if cross.Length() < OnPlaneEpsilon {
		return Plane{}, fmt.Errorf("plane from points: %v, %v, %v are collinear", a, b, c)
	}
	return Plane{Normal: cross.Normalize(), Point: a}, nil
}

// EvalAtPoint returns the signed distance from pt to the plane: positive in
// front of the plane, negative behind it, zero on it. The result is affine
// in pt, which is what makes linear interpolation of crossing points valid.
func (p Plane) EvalAtPoint(pt v3.Vec) float64 {
	return p.Normal.Dot(pt.Sub(p.Point))
}

// IntersectSegment returns the point where the directed segment a-b crosses
// the plane. The intersection is only defined when the two endpoints are on
// strictly opposite sides; in every other case ok is false.
func (p Plane) IntersectSegment(a, b v3.Vec) (pt v3.Vec, ok bool) {
	da := p.EvalAtPoint(a)
	db := p.EvalAtPoint(b)
	if (da >= 0 && db >= 0) || (da <= 0 && db <= 0) {
		return v3.Vec{}, false
	}
	t := da / (da - db)
	return a.MulScalar(1 - t).Add(b.MulScalar(t)), true
}

// Flipped returns the same plane with its orientation reversed.
func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Neg(), Point: p.Point}
}
