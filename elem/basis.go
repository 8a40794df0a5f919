package elem

import (
	"github.com/medview/medview/geom"
)

type baseType struct {
	name   string
	shape  Shape
	order  int
	kind   BasisKind
	refXis []geom.Vec
	faces  []Face
}

func (b *baseType) Name() string      { return b.name }
func (b *baseType) Shape() Shape      { return b.shape }
func (b *baseType) Order() int        { return b.order }
func (b *baseType) Kind() BasisKind   { return b.kind }
func (b *baseType) Dim() int          { return b.shape.Dim() }
func (b *baseType) NumNodes() int     { return len(b.refXis) }
func (b *baseType) RefXis() []geom.Vec { return b.refXis }
func (b *baseType) Faces() []Face     { return b.faces }

func grow(out []float64, n int) []float64 {
	if cap(out) < n {
		return make([]float64, n)
	}
	return out[:n]
}

// lagrange1D evaluates the i-th 1D Lagrange polynomial of order p with
// uniform nodes j/p at x.
func lagrange1D(p, i int, x float64) float64 {
	xi := float64(i) / float64(p)
	out := 1.0
	for j := 0; j <= p; j++ {
		if j == i {
			continue
		}
		xj := float64(j) / float64(p)
		out *= (x - xj) / (xi - xj)
	}
	return out
}

// pointType is the trivial single node element.
type pointType struct{ baseType }

func (t *pointType) Basis(xi, eta, zeta float64, out []float64) []float64 {
	out = grow(out, 1)
	out[0] = 1
	return out
}

// tensorType covers Line, Quad, and Hex nodal Lagrange elements of any
// order. Nodes lie on the (p+1)^d lattice in lexicographic order with xi
// running fastest.
type tensorType struct{ baseType }

func (t *tensorType) Basis(xi, eta, zeta float64, out []float64) []float64 {
	p := t.order
	n := p + 1
	out = grow(out, t.NumNodes())

	var bx, by, bz [4]float64
	for i := 0; i <= p; i++ {
		bx[i] = lagrange1D(p, i, xi)
	}
	dim := t.Dim()
	if dim >= 2 {
		for i := 0; i <= p; i++ {
			by[i] = lagrange1D(p, i, eta)
		}
	}
	if dim >= 3 {
		for i := 0; i <= p; i++ {
			bz[i] = lagrange1D(p, i, zeta)
		}
	}

	switch dim {
	case 1:
		copy(out, bx[:n])
	case 2:
		for j := 0; j <= p; j++ {
			for i := 0; i <= p; i++ {
				out[i+n*j] = bx[i] * by[j]
			}
		}
	case 3:
		for k := 0; k <= p; k++ {
			for j := 0; j <= p; j++ {
				for i := 0; i <= p; i++ {
					out[i+n*j+n*n*k] = bx[i] * by[j] * bz[k]
				}
			}
		}
	}
	return out
}

// simplexType covers Tri and Tet nodal Lagrange elements with the classic
// corners-then-edges node convention.
type simplexType struct{ baseType }

func (t *simplexType) Basis(xi, eta, zeta float64, out []float64) []float64 {
	out = grow(out, t.NumNodes())

	switch {
	case t.shape == Tri && t.order == 1:
		out[0], out[1], out[2] = 1-xi-eta, xi, eta

	case t.shape == Tri && t.order == 2:
		l0, l1, l2 := 1-xi-eta, xi, eta
		out[0] = l0 * (2*l0 - 1)
		out[1] = l1 * (2*l1 - 1)
		out[2] = l2 * (2*l2 - 1)
		out[3] = 4 * l0 * l1
		out[4] = 4 * l1 * l2
		out[5] = 4 * l0 * l2

	case t.shape == Tri && t.order == 3:
		l0, l1, l2 := 1-xi-eta, xi, eta
		c := func(l float64) float64 { return 0.5 * l * (3*l - 1) * (3*l - 2) }
		e := func(la, lb float64) float64 { return 4.5 * la * lb * (3*la - 1) }
		out[0], out[1], out[2] = c(l0), c(l1), c(l2)
		out[3], out[4] = e(l0, l1), e(l1, l0) // edge 0-1
		out[5], out[6] = e(l1, l2), e(l2, l1) // edge 1-2
		out[7], out[8] = e(l0, l2), e(l2, l0) // edge 0-2
		out[9] = 27 * l0 * l1 * l2

	case t.shape == Tet && t.order == 1:
		out[0], out[1], out[2], out[3] = 1-xi-eta-zeta, xi, eta, zeta

	case t.shape == Tet && t.order == 2:
		l := [4]float64{1 - xi - eta - zeta, xi, eta, zeta}
		for i := 0; i < 4; i++ {
			out[i] = l[i] * (2*l[i] - 1)
		}
		k := 4
		for _, pair := range tetEdges {
			out[k] = 4 * l[pair[0]] * l[pair[1]]
			k++
		}

	case t.shape == Tet && t.order == 3:
		l := [4]float64{1 - xi - eta - zeta, xi, eta, zeta}
		c := func(v float64) float64 { return 0.5 * v * (3*v - 1) * (3*v - 2) }
		e := func(va, vb float64) float64 { return 4.5 * va * vb * (3*va - 1) }
		for i := 0; i < 4; i++ {
			out[i] = c(l[i])
		}
		k := 4
		for _, pair := range tetEdges {
			out[k] = e(l[pair[0]], l[pair[1]])
			out[k+1] = e(l[pair[1]], l[pair[0]])
			k += 2
		}
		for _, f := range tetFaceCorners {
			out[k] = 27 * l[f[0]] * l[f[1]] * l[f[2]]
			k++
		}
	}
	return out
}

// Edge pairs of a tetrahedron, in mid-node registration order.
var tetEdges = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

// curveType covers the control point bases: Catmull-Rom and Bezier cubic
// segments over four nodes.
type curveType struct{ baseType }

func (t *curveType) Basis(xi, eta, zeta float64, out []float64) []float64 {
	out = grow(out, 4)
	x := xi
	switch t.kind {
	case PointCatmullRom:
		x2, x3 := x*x, x*x*x
		out[0] = -0.5*x3 + x2 - 0.5*x
		out[1] = 1.5*x3 - 2.5*x2 + 1
		out[2] = -1.5*x3 + 2*x2 + 0.5*x
		out[3] = 0.5*x3 - 0.5*x2
	case PointCubic:
		u := 1 - x
		out[0] = u * u * u
		out[1] = 3 * x * u * u
		out[2] = 3 * x * x * u
		out[3] = x * x * x
	}
	return out
}
