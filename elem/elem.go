/*package elem enumerates the finite element types understood by the
rendering core and exposes their basis algebra: reference node positions,
basis evaluation at local (xi, eta, zeta) coordinates, face decompositions,
and the interior triangulations used when refining topologies into drawable
meshes.

Type names are canonical strings of the form <Shape><Order><Kind>, e.g.
"Tet1NL" for a linear nodal-Lagrange tetrahedron or "Line1PCR" for a
Catmull-Rom control point curve. The registry is closed: all types are built
at package init.
*/
package elem

import (
	"fmt"
	"sort"

	"github.com/medview/medview/geom"
)

// Shape is the reference domain of an element type.
type Shape int

const (
	Point Shape = iota
	Line
	Tri
	Quad
	Tet
	Hex
)

var shapeNames = map[Shape]string{
	Point: "Point", Line: "Line", Tri: "Tri", Quad: "Quad", Tet: "Tet", Hex: "Hex",
}

func (s Shape) String() string { return shapeNames[s] }

// Dim returns the dimension of the shape's reference domain.
func (s Shape) Dim() int {
	switch s {
	case Point:
		return 0
	case Line:
		return 1
	case Tri, Quad:
		return 2
	default:
		return 3
	}
}

// BasisKind selects the interpolation family of an element type.
type BasisKind int

const (
	// NodalLagrange bases interpolate node values exactly at reference
	// nodes and form a partition of unity everywhere.
	NodalLagrange BasisKind = iota
	// PointCatmullRom bases treat nodes as control points of a Catmull-Rom
	// segment; the curve passes through the middle two points.
	PointCatmullRom
	// PointCubic bases treat nodes as Bernstein control points of a cubic
	// Bezier segment.
	PointCubic
)

var kindSuffixes = map[BasisKind]string{
	NodalLagrange: "NL", PointCatmullRom: "PCR", PointCubic: "PC",
}

func (k BasisKind) String() string { return kindSuffixes[k] }

// Face is one face of a solid element's reference domain, or one edge of a
// surface element. Nodes lists every element node on the face; Corners the
// subset at the face's corners, ordered so the face normal points out of the
// element. CornerXis are the reference coordinates of those corners.
type Face struct {
	Shape     Shape
	Nodes     []int
	Corners   []int
	CornerXis []geom.Vec
}

// Type is one element type. Implementations are value types registered at
// init; callers treat them as immutable.
type Type interface {
	Name() string
	Shape() Shape
	Order() int
	Kind() BasisKind
	Dim() int
	NumNodes() int

	// RefXis returns the reference coordinates of the element's nodes.
	RefXis() []geom.Vec

	// Basis evaluates the basis at a local coordinate, writing one
	// coefficient per node into out, which is grown if needed.
	Basis(xi, eta, zeta float64, out []float64) []float64

	// Faces returns the face decomposition: 2D faces for solids, line
	// edges for surface shapes, nil otherwise.
	Faces() []Face
}

var registry = map[string]Type{}

func register(t Type) {
	if _, dup := registry[t.Name()]; dup {
		panic(fmt.Sprintf("elem: duplicate type %q", t.Name()))
	}
	registry[t.Name()] = t
}

// Get returns the element type with the given canonical name.
func Get(name string) (Type, error) {
	t, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("elem: unknown element type %q", name)
	}
	return t, nil
}

// MustGet is Get for types known to exist at compile time.
func MustGet(name string) Type {
	t, err := Get(name)
	if err != nil {
		panic(err)
	}
	return t
}

// TypeName builds the canonical name for a (shape, order, kind) triple.
func TypeName(s Shape, order int, k BasisKind) string {
	return fmt.Sprintf("%s%d%s", s, order, k)
}

// Names returns all registered type names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InteriorTriCount returns the number of triangles the refiner emits for one
// element of type t at refinement level r with all faces included: the sum
// of every face's patch triangle count for solids, or the element's own
// patch count for surface shapes.
func InteriorTriCount(t Type, r int) int {
	switch t.Shape().Dim() {
	case 2:
		return PatchTriCount(t.Shape(), r)
	case 3:
		n := 0
		for _, f := range t.Faces() {
			n += PatchTriCount(f.Shape, r)
		}
		return n
	default:
		return 0
	}
}

// XiInside reports whether xi lies in the reference domain of shape s,
// within tol on each constraint.
func XiInside(s Shape, xi geom.Vec, tol float64) bool {
	x, y, z := float64(xi[0]), float64(xi[1]), float64(xi[2])
	switch s {
	case Point:
		return true
	case Line:
		return x >= -tol && x <= 1+tol
	case Quad:
		return x >= -tol && x <= 1+tol && y >= -tol && y <= 1+tol
	case Hex:
		return x >= -tol && x <= 1+tol && y >= -tol && y <= 1+tol &&
			z >= -tol && z <= 1+tol
	case Tri:
		return x >= -tol && y >= -tol && x+y <= 1+tol
	case Tet:
		return x >= -tol && y >= -tol && z >= -tol && x+y+z <= 1+tol
	}
	return false
}

// ClampXi projects xi onto the reference domain of shape s.
func ClampXi(s Shape, xi geom.Vec) geom.Vec {
	clamp01 := func(v float32) float32 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	switch s {
	case Line:
		return geom.Vec{clamp01(xi[0]), 0, 0}
	case Quad:
		return geom.Vec{clamp01(xi[0]), clamp01(xi[1]), 0}
	case Hex:
		return geom.Vec{clamp01(xi[0]), clamp01(xi[1]), clamp01(xi[2])}
	case Tri, Tet:
		out := xi
		for i := 0; i < 3; i++ {
			if out[i] < 0 {
				out[i] = 0
			}
		}
		if s == Tri {
			out[2] = 0
		}
		sum := out[0] + out[1] + out[2]
		if sum > 1 {
			out = out.Scale(1 / sum)
		}
		return out
	default:
		return geom.Vec{}
	}
}
