package geom

import (
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultRadius is the half-extent, in world units, of the quad built by
// NewPolygonFromPlane when no radius is given. It stands in for an infinite
// plane during brush carving.
const DefaultRadius = 10000

// Side classifies a polygon relative to a plane.
type Side int

const (
	SideOnPlane  Side = iota // every vertex lies on the plane
	SideFront                // no vertex strictly behind, at least one strictly in front
	SideBack                 // no vertex strictly in front, at least one strictly behind
	SideSpanning             // vertices strictly on both sides
)

func (s Side) String() string {
	switch s {
	case SideOnPlane:
		return "on-plane"
	case SideFront:
		return "front"
	case SideBack:
		return "back"
	case SideSpanning:
		return "spanning"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Polygon is an ordered, directed, coplanar vertex loop with at least three
// vertices and a supporting plane derived at construction. The vertex order
// encodes winding. Polygons are immutable: no operation mutates the vertex
// loop or the plane in place, so a Polygon may be shared freely between
// goroutines once constructed.
type Polygon struct {
	vertices []v3.Vec
	plane    Plane
}

// NewPolygon creates a polygon from an ordered vertex loop. The loop is
// closed implicitly (last vertex connects to first). The supporting plane is
// derived from the first three vertices. Fails if fewer than three vertices
// are given or the first three are collinear.
//
// The input slice is copied; the caller may reuse it afterwards.
func NewPolygon(vertices []v3.Vec) (*Polygon, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("polygon requires at least 3 vertices, got %d", len(vertices))
	}
	plane, err := PlaneFromPoints(vertices[0], vertices[1], vertices[2])
	if err != nil {
		return nil, fmt.Errorf("polygon: %w", err)
	}
	verts := make([]v3.Vec, len(vertices))
	copy(verts, vertices)
	return &Polygon{vertices: verts, plane: plane}, nil
}

// World axes used when deriving in-plane directions for plane quads.
var (
	worldUp      = v3.Vec{Z: 1}
	worldForward = v3.Vec{Y: 1}
)

// closestAxis returns the coordinate axis most nearly aligned with v,
// ignoring sign.
func closestAxis(v v3.Vec) v3.Vec {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax >= ay && ax >= az:
		return v3.Vec{X: 1}
	case ay >= az:
		return v3.Vec{Y: 1}
	default:
		return worldUp
	}
}

// NewPolygonFromPlane builds a large quadrilateral lying on the plane,
// centered at the plane's reference point and spanning 2*radius along two
// in-plane axes. A radius <= 0 selects DefaultRadius.
//
// The corners follow the fixed cyclic order +right+up, -right+up,
// -right-up, +right-up, which gives every plane-derived quad the same
// winding relative to its normal. The polygon stores its own copy of the
// plane, so the caller's plane value cannot affect it afterwards.
func NewPolygonFromPlane(p Plane, radius float64) *Polygon {
	if radius <= 0 {
		radius = DefaultRadius
	}
	// Pick a helper axis that is not parallel to the normal: world up,
	// unless the normal is nearest vertical, then world forward.
	helper := worldUp
	if closestAxis(p.Normal) == worldUp {
		helper = worldForward
	}
	up := helper.Cross(p.Normal).Normalize()
	right := up.Cross(p.Normal)
	up = up.MulScalar(radius)
	right = right.MulScalar(radius)

	o := p.Point
	verts := []v3.Vec{
		o.Add(right).Add(up),
		o.Sub(right).Add(up),
		o.Sub(right).Sub(up),
		o.Add(right).Sub(up),
	}
	return &Polygon{vertices: verts, plane: p}
}

// Vertices returns a copy of the polygon's vertex loop.
func (p *Polygon) Vertices() []v3.Vec {
	verts := make([]v3.Vec, len(p.vertices))
	copy(verts, p.vertices)
	return verts
}

// VertexCount returns the number of vertices in the loop.
func (p *Polygon) VertexCount() int {
	return len(p.vertices)
}

// Vertex returns the vertex at index i.
func (p *Polygon) Vertex(i int) v3.Vec {
	return p.vertices[i]
}

// Plane returns the polygon's supporting plane.
func (p *Polygon) Plane() Plane {
	return p.plane
}

// Origin returns the polygon's centroid, the arithmetic mean of its
// vertices. It is recomputed on every call rather than cached.
func (p *Polygon) Origin() v3.Vec {
	var sum v3.Vec
	for _, v := range p.vertices {
		sum = sum.Add(v)
	}
	return sum.MulScalar(1 / float64(len(p.vertices)))
}

// ClassifyAgainst reports which side of clip the polygon lies on, using the
// raw sign of each vertex's distance. A polygon with vertices strictly on
// both sides is SideSpanning. This is a pure query; use Split for the
// epsilon-robust partition.
func (p *Polygon) ClassifyAgainst(clip Plane) Side {
	var front, back, zero int
	for _, v := range p.vertices {
		d := clip.EvalAtPoint(v)
		switch {
		case d > 0:
			front++
		case d < 0:
			back++
		default:
			zero++
		}
	}
	switch {
	case front == 0 && back == 0:
		return SideOnPlane
	case back == 0:
		return SideFront
	case front == 0:
		return SideBack
	default:
		return SideSpanning
	}
}
