package geom

import "fmt"

// Severity indicates whether a validation finding violates the polygon
// contract outright or is merely advisory.
type Severity int

const (
	SeverityError   Severity = iota // contract violation
	SeverityWarning                 // advisory
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationIssue describes a single validation finding on a polygon.
type ValidationIssue struct {
	Index    int // vertex index the finding refers to, -1 for loop-level findings
	Message  string
	Severity Severity
}

func (e ValidationIssue) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] vertex %d: %s", e.Severity, e.Index, e.Message)
}

// CoplanarTolerance is the maximum distance a vertex may sit off the
// supporting plane before Validate flags it.
const CoplanarTolerance = 1e-4

// Validate runs defensive checks on the polygon and returns its findings.
// Construction only rejects loops that cannot carry a plane at all; callers
// are otherwise trusted to supply convex coplanar loops, and these checks
// exist to surface inputs that break that trust. All findings on a
// constructible polygon are warnings. Validate is read-only.
func (p *Polygon) Validate() []ValidationIssue {
	var issues []ValidationIssue
	issues = append(issues, p.checkDuplicateVertices()...)
	issues = append(issues, p.checkCoplanarity()...)
	issues = append(issues, p.checkConvexity()...)
	return issues
}

// checkDuplicateVertices flags adjacent vertices that coincide. A duplicate
// produces a zero-length edge, which later splitting tolerates but
// downstream consumers usually do not expect.
func (p *Polygon) checkDuplicateVertices() []ValidationIssue {
	var issues []ValidationIssue
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if p.vertices[i].Equals(p.vertices[j], OnPlaneEpsilon) {
			issues = append(issues, ValidationIssue{
				Index:    i,
				Message:  fmt.Sprintf("duplicate of vertex %d (zero-length edge)", j),
				Severity: SeverityWarning,
			})
		}
	}
	return issues
}

// checkCoplanarity flags vertices lying off the supporting plane by more
// than CoplanarTolerance.
func (p *Polygon) checkCoplanarity() []ValidationIssue {
	var issues []ValidationIssue
	for i, v := range p.vertices {
		d := p.plane.EvalAtPoint(v)
		if d > CoplanarTolerance || d < -CoplanarTolerance {
			issues = append(issues, ValidationIssue{
				Index:    i,
				Message:  fmt.Sprintf("off the supporting plane by %g", d),
				Severity: SeverityWarning,
			})
		}
	}
	return issues
}

// checkConvexity flags reflex corners. A corner is reflex when the cross
// product of its incoming and outgoing edges points against the supporting
// plane normal.
func (p *Polygon) checkConvexity() []ValidationIssue {
	var issues []ValidationIssue
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		prev := p.vertices[(i+n-1)%n]
		cur := p.vertices[i]
		next := p.vertices[(i+1)%n]
		turn := cur.Sub(prev).Cross(next.Sub(cur)).Dot(p.plane.Normal)
		if turn < -OnPlaneEpsilon {
			issues = append(issues, ValidationIssue{
				Index:    i,
				Message:  "reflex corner (polygon is not convex)",
				Severity: SeverityWarning,
			})
		}
	}
	return issues
}
