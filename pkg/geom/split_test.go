package geom

import (
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func mustSplit(t *testing.T, p *Polygon, clip Plane) SplitResult {
	t.Helper()
	res, err := p.Split(clip)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	return res
}

func loopEquals(t *testing.T, p *Polygon, want []v3.Vec) {
	t.Helper()
	if p == nil {
		t.Fatal("expected a polygon, got nil")
	}
	got := p.Vertices()
	if len(got) != len(want) {
		t.Fatalf("expected %d vertices, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("vertex %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSplitSpanningSquare(t *testing.T) {
	square := unitSquare(t)
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 0.5})

	res := mustSplit(t, square, clip)
	if !res.Split {
		t.Fatal("expected a real split")
	}
	if res.CoplanarFront != nil || res.CoplanarBack != nil {
		t.Error("expected empty coplanar slots on a real split")
	}

	loopEquals(t, res.Front, []v3.Vec{
		{X: 0.5, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0},
		{X: 0.5, Y: 1, Z: 0},
	})
	loopEquals(t, res.Back, []v3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 0.5, Y: 0, Z: 0},
		{X: 0.5, Y: 1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	})

	// Both fragments keep the original winding.
	if res.Front.Plane().Normal.Dot(square.Plane().Normal) <= 0 {
		t.Error("front fragment winding flipped")
	}
	if res.Back.Plane().Normal.Dot(square.Plane().Normal) <= 0 {
		t.Error("back fragment winding flipped")
	}
}

func TestSplitEntirelyBehind(t *testing.T) {
	square := unitSquare(t)
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 2})

	res := mustSplit(t, square, clip)
	if res.Split {
		t.Fatal("expected no split")
	}
	if res.Back != square {
		t.Error("expected the original polygon back in the Back slot")
	}
	if res.Front != nil || res.CoplanarFront != nil || res.CoplanarBack != nil {
		t.Error("expected all other slots empty")
	}
}

func TestSplitEntirelyInFront(t *testing.T) {
	square := unitSquare(t)
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: -3})

	res := mustSplit(t, square, clip)
	if res.Split {
		t.Fatal("expected no split")
	}
	if res.Front != square {
		t.Error("expected the original polygon back in the Front slot")
	}
	if res.Back != nil || res.CoplanarFront != nil || res.CoplanarBack != nil {
		t.Error("expected all other slots empty")
	}
}

func TestSplitCoplanarFront(t *testing.T) {
	square := unitSquare(t)
	clip := NewPlane(v3.Vec{Z: 1}, v3.Vec{})

	res := mustSplit(t, square, clip)
	if res.Split {
		t.Fatal("expected no split")
	}
	if res.CoplanarFront != square {
		t.Error("expected the original polygon in the CoplanarFront slot")
	}
	if res.Front != nil || res.Back != nil || res.CoplanarBack != nil {
		t.Error("expected all other slots empty")
	}
}

func TestSplitCoplanarBack(t *testing.T) {
	square := unitSquare(t)
	clip := NewPlane(v3.Vec{Z: -1}, v3.Vec{})

	res := mustSplit(t, square, clip)
	if res.Split {
		t.Fatal("expected no split")
	}
	if res.CoplanarBack != square {
		t.Error("expected the original polygon in the CoplanarBack slot")
	}
}

func TestSplitVertexOnPlaneSpanning(t *testing.T) {
	// Triangle with its apex exactly on the clip plane and the base
	// straddling it: the apex must appear in both fragments.
	tri, err := NewPolygon([]v3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 1})

	res := mustSplit(t, tri, clip)
	if !res.Split {
		t.Fatal("expected a real split")
	}
	loopEquals(t, res.Back, []v3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0},
	})
	loopEquals(t, res.Front, []v3.Vec{
		{X: 1, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 0},
	})
}

func TestSplitVertexOnPlaneNotSpanning(t *testing.T) {
	// One vertex exactly on the plane, the rest in front: the on-plane
	// vertex must not force a split.
	tri, err := NewPolygon([]v3.Vec{
		{X: 1, Y: 0, Z: 0},
		{X: 3, Y: 0, Z: 0},
		{X: 2, Y: 1, Z: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 1})

	res := mustSplit(t, tri, clip)
	if res.Split {
		t.Fatal("expected no split")
	}
	if res.Front != tri {
		t.Error("expected the original triangle in the Front slot")
	}
}

func TestSplitEpsilonBandIsCoplanar(t *testing.T) {
	// Every vertex within OnPlaneEpsilon of the clip plane: coplanar, never
	// spanning, even though the raw signs alternate.
	noisy, err := NewPolygon([]v3.Vec{
		{X: 0, Y: 0, Z: 1e-8},
		{X: 1, Y: 0, Z: -1e-8},
		{X: 1, Y: 1, Z: 1e-8},
		{X: 0, Y: 1, Z: -1e-8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if side := noisy.ClassifyAgainst(NewPlane(v3.Vec{Z: 1}, v3.Vec{})); side != SideSpanning {
		t.Fatalf("raw classification should span, got %s", side)
	}

	res := mustSplit(t, noisy, NewPlane(v3.Vec{Z: 1}, v3.Vec{}))
	if res.Split {
		t.Fatal("expected no split inside the epsilon band")
	}
	if res.CoplanarFront != noisy {
		t.Error("expected the polygon in the CoplanarFront slot")
	}
}

func TestSplitSeamIdentity(t *testing.T) {
	square := unitSquare(t)
	// 0.3 is not exactly representable, so the interpolation is inexact;
	// the two fragments must still share bit-identical crossing points.
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 0.3})

	res := mustSplit(t, square, clip)
	if !res.Split {
		t.Fatal("expected a real split")
	}

	original := make(map[v3.Vec]bool)
	for _, v := range square.Vertices() {
		original[v] = true
	}
	backSet := make(map[v3.Vec]bool)
	for _, v := range res.Back.Vertices() {
		backSet[v] = true
	}

	var seams int
	for _, v := range res.Front.Vertices() {
		if original[v] {
			continue
		}
		seams++
		if !backSet[v] {
			t.Errorf("seam vertex %v of front is not bit-identical in back", v)
		}
	}
	if seams != 2 {
		t.Errorf("expected 2 seam vertices, got %d", seams)
	}
}

func TestSplitVertexConservation(t *testing.T) {
	square := unitSquare(t)
	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 0.5})
	res := mustSplit(t, square, clip)

	frontSet := make(map[v3.Vec]bool)
	for _, v := range res.Front.Vertices() {
		frontSet[v] = true
	}
	backSet := make(map[v3.Vec]bool)
	for _, v := range res.Back.Vertices() {
		backSet[v] = true
	}

	for _, v := range square.Vertices() {
		d := clip.EvalAtPoint(v)
		switch {
		case d > 0 && !frontSet[v]:
			t.Errorf("front vertex %v missing from front fragment", v)
		case d < 0 && !backSet[v]:
			t.Errorf("back vertex %v missing from back fragment", v)
		case d == 0 && (!frontSet[v] || !backSet[v]):
			t.Errorf("on-plane vertex %v missing from a fragment", v)
		}
	}
}

func TestSplitDoesNotMutateReceiver(t *testing.T) {
	square := unitSquare(t)
	before := square.Vertices()

	clip := NewPlane(v3.Vec{X: 1}, v3.Vec{X: 0.5})
	if _, err := square.Split(clip); err != nil {
		t.Fatalf("split failed: %v", err)
	}

	after := square.Vertices()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("vertex %d changed from %v to %v", i, before[i], after[i])
		}
	}
}

func TestSplitFragmentsAreValid(t *testing.T) {
	// A slanted cut through a hexagon: both fragments must come out as
	// constructible, coplanar, convex loops.
	hex, err := NewPolygon([]v3.Vec{
		{X: 2, Y: 0, Z: 0},
		{X: 1, Y: 2, Z: 0},
		{X: -1, Y: 2, Z: 0},
		{X: -2, Y: 0, Z: 0},
		{X: -1, Y: -2, Z: 0},
		{X: 1, Y: -2, Z: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clip := NewPlane(v3.Vec{X: 1, Y: 0.25}, v3.Vec{X: 0.1, Y: 0.1})

	res := mustSplit(t, hex, clip)
	if !res.Split {
		t.Fatal("expected a real split")
	}
	for _, frag := range []*Polygon{res.Front, res.Back} {
		if frag.VertexCount() < 3 {
			t.Fatalf("fragment has %d vertices", frag.VertexCount())
		}
		if issues := frag.Validate(); len(issues) > 0 {
			t.Errorf("fragment has validation issues: %v", issues)
		}
		if frag.Plane().Normal.Dot(hex.Plane().Normal) <= 0 {
			t.Error("fragment winding flipped")
		}
	}
}

// splitSignOnly reproduces the superseded sign-only splitter. Away from the
// epsilon band it must agree with Split exactly, which makes it a handy
// oracle for spanning cases.
func splitSignOnly(p *Polygon, clip Plane) (back, front []v3.Vec) {
	n := p.VertexCount()
	for i := 0; i < n; i++ {
		a := p.Vertex(i)
		b := p.Vertex((i + 1) % n)
		da := clip.EvalAtPoint(a)
		db := clip.EvalAtPoint(b)
		if da <= 0 {
			back = append(back, a)
		}
		if da >= 0 {
			front = append(front, a)
		}
		if (da < 0 && db > 0) || (da > 0 && db < 0) {
			mid, _ := clip.IntersectSegment(a, b)
			back = append(back, mid)
			front = append(front, mid)
		}
	}
	return back, front
}

func TestSplitMatchesSignOnlyOracle(t *testing.T) {
	hex, err := NewPolygon([]v3.Vec{
		{X: 2, Y: 0, Z: 0},
		{X: 1, Y: 2, Z: 0},
		{X: -1, Y: 2, Z: 0},
		{X: -2, Y: 0, Z: 0},
		{X: -1, Y: -2, Z: 0},
		{X: 1, Y: -2, Z: 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clips := []Plane{
		NewPlane(v3.Vec{X: 1}, v3.Vec{X: 0.37}),
		NewPlane(v3.Vec{X: 1, Y: 1}, v3.Vec{X: 0.2, Y: -0.1}),
		NewPlane(v3.Vec{Y: 1}, v3.Vec{Y: 1.1}),
	}
	for _, clip := range clips {
		res := mustSplit(t, hex, clip)
		if !res.Split {
			t.Fatalf("clip %+v: expected a real split", clip)
		}
		oracleBack, oracleFront := splitSignOnly(hex, clip)
		loopEquals(t, res.Back, oracleBack)
		loopEquals(t, res.Front, oracleFront)
	}
}
