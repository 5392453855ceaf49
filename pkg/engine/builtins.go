package engine

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/facet3d/facet/pkg/geom"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms Facet Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: plane-polygon -> plane_polygon
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus
		// operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec wraps a v3.Vec so it can be passed between builtins.
type sexpVec struct {
	vec v3.Vec
}

func (v *sexpVec) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec) Type() *zygo.RegisteredType { return nil }

// sexpPlane wraps a geom.Plane.
type sexpPlane struct {
	plane geom.Plane
}

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	n, o := p.plane.Normal, p.plane.Point
	return fmt.Sprintf("(plane :normal (vec3 %g %g %g) :point (vec3 %g %g %g))",
		n.X, n.Y, n.Z, o.X, o.Y, o.Z)
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

// sexpPolygon wraps a *geom.Polygon.
type sexpPolygon struct {
	poly *geom.Polygon
}

func (p *sexpPolygon) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(polygon %d vertices)", p.poly.VertexCount())
}
func (p *sexpPolygon) Type() *zygo.RegisteredType { return nil }

// sexpSplit wraps a geom.SplitResult so its parts can be picked apart with
// the split-part builtin.
type sexpSplit struct {
	res geom.SplitResult
}

func (s *sexpSplit) SexpString(ps *zygo.PrintState) string {
	if s.res.Split {
		return "(split :split? true)"
	}
	return "(split :split? false)"
}
func (s *sexpSplit) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value — treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_front) and plain strings ("front").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec extracts a v3.Vec from a sexpVec.
func toVec(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toPlane extracts a geom.Plane from a sexpPlane.
func toPlane(s zygo.Sexp) (geom.Plane, error) {
	if p, ok := s.(*sexpPlane); ok {
		return p.plane, nil
	}
	return geom.Plane{}, fmt.Errorf("expected plane, got %T (%s)", s, s.SexpString(nil))
}

// toPolygon extracts a *geom.Polygon from a sexpPolygon.
func toPolygon(s zygo.Sexp) (*geom.Polygon, error) {
	if p, ok := s.(*sexpPolygon); ok {
		return p.poly, nil
	}
	return nil, fmt.Errorf("expected polygon, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all Facet DSL builtins into a zygomys
// environment. The builtins operate on the provided Result, populating it as
// defpoly forms are evaluated.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, result *Result) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (plane :normal (vec3 0 0 1) :point (vec3 0 0 0))
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		nv, ok := pa.kw["normal"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("plane requires a :normal argument")
		}
		normal, err := toVec(nv)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: normal: %w", err)
		}
		if normal.Length() == 0 {
			return zygo.SexpNull, fmt.Errorf("plane: normal must be non-zero")
		}

		var point v3.Vec
		if pv, ok := pa.kw["point"]; ok {
			point, err = toVec(pv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: point: %w", err)
			}
		}

		return &sexpPlane{plane: geom.NewPlane(normal, point)}, nil
	})

	// -----------------------------------------------------------------------
	// (plane-from-points a b c)
	// -----------------------------------------------------------------------
	env.AddFunction("plane_from_points", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("plane-from-points requires exactly 3 points, got %d", len(args))
		}

		var pts [3]v3.Vec
		for i, a := range args {
			v, err := toVec(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane-from-points: point %d: %w", i, err)
			}
			pts[i] = v
		}

		p, err := geom.PlaneFromPoints(pts[0], pts[1], pts[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane-from-points: %w", err)
		}
		return &sexpPlane{plane: p}, nil
	})

	// -----------------------------------------------------------------------
	// (polygon (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 3 {
			return zygo.SexpNull, fmt.Errorf("polygon requires at least 3 vertices, got %d", len(args))
		}

		verts := make([]v3.Vec, len(args))
		for i, a := range args {
			v, err := toVec(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygon: vertex %d: %w", i, err)
			}
			verts[i] = v
		}

		p, err := geom.NewPolygon(verts)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon: %w", err)
		}
		return &sexpPolygon{poly: p}, nil
	})

	// -----------------------------------------------------------------------
	// (plane-polygon (plane ...) :radius 100)
	// -----------------------------------------------------------------------
	env.AddFunction("plane_polygon", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("plane-polygon requires a plane as first argument")
		}

		plane, err := toPlane(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane-polygon: %w", err)
		}

		radius := float64(geom.DefaultRadius)
		if rv, ok := pa.kw["radius"]; ok {
			radius, err = toFloat64(rv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane-polygon: radius: %w", err)
			}
		}

		return &sexpPolygon{poly: geom.NewPolygonFromPlane(plane, radius)}, nil
	})

	// -----------------------------------------------------------------------
	// (classify poly (plane ...)) -> "front" | "back" | "on-plane" | "spanning"
	// -----------------------------------------------------------------------
	env.AddFunction("classify", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("classify requires a polygon and a plane")
		}

		poly, err := toPolygon(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("classify: %w", err)
		}
		clip, err := toPlane(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("classify: %w", err)
		}

		return &zygo.SexpStr{S: poly.ClassifyAgainst(clip).String()}, nil
	})

	// -----------------------------------------------------------------------
	// (split poly (plane ...)) -> split record
	// -----------------------------------------------------------------------
	env.AddFunction("split", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("split requires a polygon and a plane")
		}

		poly, err := toPolygon(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: %w", err)
		}
		clip, err := toPlane(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: %w", err)
		}

		res, err := poly.Split(clip)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split: %w", err)
		}
		return &sexpSplit{res: res}, nil
	})

	// -----------------------------------------------------------------------
	// (split-part rec :front) -> polygon or nil
	// (split-part rec :split) -> bool
	// -----------------------------------------------------------------------
	env.AddFunction("split_part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("split-part requires a split record and a slot keyword")
		}

		rec, ok := args[0].(*sexpSplit)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("split-part: expected split record, got %T (%s)",
				args[0], args[0].SexpString(nil))
		}
		slot, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("split-part: slot: %w", err)
		}

		var poly *geom.Polygon
		switch slot {
		case "front":
			poly = rec.res.Front
		case "back":
			poly = rec.res.Back
		case "coplanar-front":
			poly = rec.res.CoplanarFront
		case "coplanar-back":
			poly = rec.res.CoplanarBack
		case "split":
			return &zygo.SexpBool{Val: rec.res.Split}, nil
		default:
			return zygo.SexpNull, fmt.Errorf(
				"split-part: invalid slot %q, expected front/back/coplanar-front/coplanar-back/split", slot)
		}
		if poly == nil {
			return zygo.SexpNull, nil
		}
		return &sexpPolygon{poly: poly}, nil
	})

	// -----------------------------------------------------------------------
	// (origin poly) -> vec3 centroid
	// -----------------------------------------------------------------------
	env.AddFunction("origin", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("origin requires a polygon argument")
		}

		poly, err := toPolygon(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("origin: %w", err)
		}
		return &sexpVec{vec: poly.Origin()}, nil
	})

	// -----------------------------------------------------------------------
	// (defpoly "name" poly) -> registers the polygon into the result
	// -----------------------------------------------------------------------
	env.AddFunction("defpoly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defpoly requires a name and a polygon")
		}

		polyName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpoly: name: %w", err)
		}

		// (defpoly "x" (split-part rec :front)) with an empty slot is a
		// no-op rather than an error, so scripts can register whichever
		// fragments a split actually produced.
		if args[1] == zygo.SexpNull {
			return zygo.SexpNull, nil
		}

		poly, err := toPolygon(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpoly: %w", err)
		}

		result.Add(polyName, poly)
		return args[1], nil
	})
}
