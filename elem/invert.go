package elem

import (
	"math"

	"github.com/medview/medview/geom"
)

const (
	// Newton iteration bound and convergence tolerance, relative to the
	// element diameter.
	xiMaxIters = 32
	xiRelTol   = 1e-8

	// Components this close to a face are snapped onto it so that points
	// exactly on shared faces resolve the same way from both sides,
	// lexicographically in (xi, eta, zeta).
	xiSnapTol = 1e-9
)

// Point evaluates the world-space position of a local coordinate by weighing
// the element nodes with the basis. basisBuf is reused when large enough.
func PointAt(t Type, nodes []geom.Vec, xi geom.Vec, basisBuf []float64) (geom.Vec, []float64) {
	basisBuf = t.Basis(float64(xi[0]), float64(xi[1]), float64(xi[2]), basisBuf)
	var x, y, z float64
	for i, c := range basisBuf {
		x += c * float64(nodes[i][0])
		y += c * float64(nodes[i][1])
		z += c * float64(nodes[i][2])
	}
	return geom.Vec{float32(x), float32(y), float32(z)}, basisBuf
}

// Centroid returns the reference-domain centroid used to seed Newton
// iteration.
func Centroid(s Shape) geom.Vec {
	switch s {
	case Line:
		return geom.Vec{0.5}
	case Quad:
		return geom.Vec{0.5, 0.5}
	case Hex:
		return geom.Vec{0.5, 0.5, 0.5}
	case Tri:
		return geom.Vec{1. / 3, 1. / 3}
	case Tet:
		return geom.Vec{0.25, 0.25, 0.25}
	default:
		return geom.Vec{}
	}
}

// XiOf inverts the element mapping: it finds the local coordinate whose
// world-space image is pt. Newton iteration runs from the centroid seed with
// a finite difference Jacobian; for surface and line elements the step
// solves the normal equations, so the result is the in-surface projection.
// On failure the nearest in-domain projection is returned with inside=false.
func XiOf(t Type, nodes []geom.Vec, pt geom.Vec) (xi geom.Vec, inside bool) {
	dim := t.Dim()
	if dim == 0 {
		return geom.Vec{}, true
	}
	if len(nodes) != t.NumNodes() {
		return geom.Vec{}, false
	}

	diam := float64(geom.BoundPoints(nodes).Diag())
	if diam == 0 {
		return Centroid(t.Shape()), false
	}
	tol := xiRelTol * diam

	xi = Centroid(t.Shape())
	var basis []float64
	luf := newLUFactors(dim)
	h := 1e-6

	jac := make([]float64, 3*dim)    // column-major: jac[d*3+c]
	ata := make([]float64, dim*dim)  // J^T J
	atb := make([]float64, dim)      // J^T r
	dx := make([]float64, dim)

	converged := false
	for iter := 0; iter < xiMaxIters; iter++ {
		var cur geom.Vec
		cur, basis = PointAt(t, nodes, xi, basis)
		r := [3]float64{
			float64(cur[0]) - float64(pt[0]),
			float64(cur[1]) - float64(pt[1]),
			float64(cur[2]) - float64(pt[2]),
		}
		if math.Sqrt(r[0]*r[0]+r[1]*r[1]+r[2]*r[2]) <= tol {
			converged = true
			break
		}

		for d := 0; d < dim; d++ {
			hi, lo := xi, xi
			hi[d] += float32(h)
			lo[d] -= float32(h)
			var phi, plo geom.Vec
			phi, basis = PointAt(t, nodes, hi, basis)
			plo, basis = PointAt(t, nodes, lo, basis)
			for c := 0; c < 3; c++ {
				jac[d*3+c] = (float64(phi[c]) - float64(plo[c])) / (2 * h)
			}
		}

		for a := 0; a < dim; a++ {
			for b := 0; b < dim; b++ {
				sum := 0.0
				for c := 0; c < 3; c++ {
					sum += jac[a*3+c] * jac[b*3+c]
				}
				ata[a*dim+b] = sum
			}
			sum := 0.0
			for c := 0; c < 3; c++ {
				sum += jac[a*3+c] * r[c]
			}
			atb[a] = sum
		}

		if err := luf.factorize(ata); err != nil {
			break
		}
		luf.solve(atb, dx)

		for d := 0; d < dim; d++ {
			xi[d] -= float32(dx[d])
		}
	}

	xi = snapXi(xi, dim)
	if !converged {
		return ClampXi(t.Shape(), xi), false
	}
	return xi, XiInside(t.Shape(), xi, xiRelTol)
}

// snapXi resolves face-boundary ties by snapping near-face components in
// lexicographic component order.
func snapXi(xi geom.Vec, dim int) geom.Vec {
	for d := 0; d < dim; d++ {
		if math.Abs(float64(xi[d])) <= xiSnapTol {
			xi[d] = 0
		} else if math.Abs(float64(xi[d])-1) <= xiSnapTol {
			xi[d] = 1
		}
	}
	return xi
}
