package elem

import (
	"math/rand"
	"testing"

	"github.com/medview/medview/geom"
	"github.com/stretchr/testify/assert"
	gmat "gonum.org/v1/gonum/mat"
)

// refSamples returns points covering the reference domain of a shape,
// including corners, face centres, and random interior points.
func refSamples(s Shape, rng *rand.Rand) []geom.Vec {
	var pts []geom.Vec
	switch s.Dim() {
	case 0:
		pts = append(pts, geom.Vec{})
	case 1:
		pts = append(pts, geom.Vec{0}, geom.Vec{1}, geom.Vec{0.5})
		for i := 0; i < 20; i++ {
			pts = append(pts, geom.Vec{rng.Float32()})
		}
	case 2:
		pts = append(pts, geom.Vec{0, 0}, geom.Vec{1, 0}, geom.Vec{0, 1})
		for i := 0; i < 30; i++ {
			x, y := rng.Float32(), rng.Float32()
			if s == Tri && x+y > 1 {
				x, y = 1-x, 1-y
			}
			pts = append(pts, geom.Vec{x, y})
		}
	case 3:
		pts = append(pts, geom.Vec{0, 0, 0}, geom.Vec{1, 0, 0},
			geom.Vec{0, 1, 0}, geom.Vec{0, 0, 1})
		for i := 0; i < 40; i++ {
			x, y, z := rng.Float32(), rng.Float32(), rng.Float32()
			if s == Tet && x+y+z > 1 {
				x, y, z = x/3, y/3, z/3
			}
			pts = append(pts, geom.Vec{x, y, z})
		}
	}
	return pts
}

func TestPartitionOfUnity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var buf []float64

	for _, name := range Names() {
		et := MustGet(name)
		for _, xi := range refSamples(et.Shape(), rng) {
			buf = et.Basis(float64(xi[0]), float64(xi[1]), float64(xi[2]), buf)
			assert.Len(t, buf, et.NumNodes(), name)

			sum := 0.0
			for _, c := range buf {
				sum += c
			}
			assert.InDelta(t, 1.0, sum, 1e-9,
				"%s basis does not sum to 1 at %v", name, xi)
		}
	}
}

func TestBasisInterpolatesNodes(t *testing.T) {
	var buf []float64
	for _, name := range Names() {
		et := MustGet(name)
		if et.Kind() != NodalLagrange {
			continue
		}
		for i, xi := range et.RefXis() {
			buf = et.Basis(float64(xi[0]), float64(xi[1]), float64(xi[2]), buf)
			for j, c := range buf {
				want := 0.0
				if j == i {
					want = 1.0
				}
				// Third-point nodes are float32, a hair off the exact
				// polynomial roots.
				assert.InDelta(t, want, c, 1e-6, "%s node %d coeff %d", name, i, j)
			}
		}
	}
}

func TestTet1NLBasisValues(t *testing.T) {
	tet := MustGet("Tet1NL")
	var buf []float64

	buf = tet.Basis(0, 0, 0, buf)
	assert.Equal(t, []float64{1, 0, 0, 0}, buf)

	buf = tet.Basis(1, 0, 0, buf)
	assert.Equal(t, []float64{0, 1, 0, 0}, buf)

	third := 1.0 / 3
	buf = tet.Basis(third, third, third, buf)
	assert.InDelta(t, 0, buf[0], 1e-12)
	for i := 1; i < 4; i++ {
		assert.InDelta(t, third, buf[i], 1e-12)
	}
}

func TestTet3NLLayout(t *testing.T) {
	tet := MustGet("Tet3NL")
	assert.Equal(t, 20, tet.NumNodes())

	// 4 corners, 2 nodes per edge, 1 face centre per face.
	faces := tet.Faces()
	assert.Len(t, faces, 4)
	for _, f := range faces {
		assert.Equal(t, Tri, f.Shape)
		assert.Len(t, f.Nodes, 10)
		assert.Len(t, f.Corners, 3)
	}

	// Cubic interpolation reproduces a cubic function exactly.
	var buf []float64
	f := func(v geom.Vec) float64 {
		x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
		return x*x*x + 2*y*y*z + 3*z + 1
	}
	xi := geom.Vec{0.2, 0.3, 0.1}
	buf = tet.Basis(float64(xi[0]), float64(xi[1]), float64(xi[2]), buf)
	sum := 0.0
	for i, c := range buf {
		sum += c * f(tet.RefXis()[i])
	}
	assert.InDelta(t, f(xi), sum, 1e-5)
}

func TestFaceDecompositions(t *testing.T) {
	assert.Len(t, MustGet("Hex1NL").Faces(), 6)
	assert.Len(t, MustGet("Hex2NL").Faces(), 6)
	assert.Len(t, MustGet("Tet1NL").Faces(), 4)
	assert.Len(t, MustGet("Tet2NL").Faces(), 4)
	assert.Len(t, MustGet("Quad1NL").Faces(), 4)
	assert.Len(t, MustGet("Tri2NL").Faces(), 3)

	// Each Hex1NL face is a quad of 4 distinct element nodes.
	for _, f := range MustGet("Hex1NL").Faces() {
		assert.Equal(t, Quad, f.Shape)
		assert.Len(t, f.Nodes, 4)
		assert.Len(t, f.Corners, 4)
	}

	// A Hex2NL face carries the full 9-node quad lattice.
	for _, f := range MustGet("Hex2NL").Faces() {
		assert.Len(t, f.Nodes, 9)
	}
	for _, f := range MustGet("Tet2NL").Faces() {
		assert.Len(t, f.Nodes, 6)
	}
}

func TestHexFacesPointOutward(t *testing.T) {
	hex := MustGet("Hex1NL")
	nodes := hex.RefXis()
	centre := geom.Vec{0.5, 0.5, 0.5}

	for fi, f := range hex.Faces() {
		a := nodes[f.Corners[0]]
		b := nodes[f.Corners[1]]
		c := nodes[f.Corners[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		mid := a.Add(b).Add(c).Add(nodes[f.Corners[3]]).Scale(0.25)
		out := mid.Sub(centre)
		assert.True(t, n.Dot(out) > 0, "face %d normal points inward", fi)
	}
}

func TestInteriorTriCount(t *testing.T) {
	// A Hex1NL at r=2: 6 faces x (2+1)^2 quads x 2 triangles.
	assert.Equal(t, 108, InteriorTriCount(MustGet("Hex1NL"), 2))
	assert.Equal(t, 12, InteriorTriCount(MustGet("Hex1NL"), 0))
	// A Tet at r=1: 4 faces x (1+1)^2 triangles.
	assert.Equal(t, 16, InteriorTriCount(MustGet("Tet1NL"), 1))
	// Surface elements triangulate themselves.
	assert.Equal(t, 2, InteriorTriCount(MustGet("Quad1NL"), 0))
	assert.Equal(t, 9, InteriorTriCount(MustGet("Tri1NL"), 2))
	// Lines and points emit no triangles.
	assert.Equal(t, 0, InteriorTriCount(MustGet("Line1NL"), 3))
}

func TestPatchCounts(t *testing.T) {
	for r := 0; r <= 4; r++ {
		assert.Len(t, QuadPatch(r), PatchTriCount(Quad, r))
		assert.Len(t, TriPatch(r), PatchTriCount(Tri, r))
		assert.Len(t, LinePatch(r), r+1)
	}
}

func TestXiOfRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// A distorted hexahedron: unit cube corners plus noise.
	hex := MustGet("Hex1NL")
	nodes := make([]geom.Vec, 8)
	for i, xi := range hex.RefXis() {
		nodes[i] = xi.Add(geom.Vec{
			0.1 * (rng.Float32() - 0.5),
			0.1 * (rng.Float32() - 0.5),
			0.1 * (rng.Float32() - 0.5),
		})
	}

	var buf []float64
	for i := 0; i < 25; i++ {
		want := geom.Vec{rng.Float32(), rng.Float32(), rng.Float32()}
		var pt geom.Vec
		pt, buf = PointAt(hex, nodes, want, buf)

		got, inside := XiOf(hex, nodes, pt)
		assert.True(t, inside, "xi %v not recovered as interior", want)
		for d := 0; d < 3; d++ {
			assert.InDelta(t, float64(want[d]), float64(got[d]), 1e-4)
		}
	}
}

func TestXiOfOutsidePoint(t *testing.T) {
	tet := MustGet("Tet1NL")
	nodes := tet.RefXis()

	xi, inside := XiOf(tet, nodes, geom.Vec{2, 2, 2})
	assert.False(t, inside)
	assert.True(t, XiInside(Tet, xi, 1e-6), "projection %v not clamped", xi)
}

func TestXiOfDegenerateElement(t *testing.T) {
	tet := MustGet("Tet1NL")
	nodes := []geom.Vec{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}, {1, 1, 1}}
	_, inside := XiOf(tet, nodes, geom.Vec{1, 1, 1})
	assert.False(t, inside)
}

func TestUnknownType(t *testing.T) {
	_, err := Get("Dodeca1NL")
	assert.Error(t, err)
}

func TestCatmullRomPassesThroughMiddleControlPoints(t *testing.T) {
	pcr := MustGet("Line1PCR")
	var buf []float64

	buf = pcr.Basis(0, 0, 0, buf)
	assert.InDelta(t, 1, buf[1], 1e-12)
	assert.InDelta(t, 0, buf[0]+buf[2]+buf[3], 1e-12)

	buf = pcr.Basis(1, 0, 0, buf)
	assert.InDelta(t, 1, buf[2], 1e-12)
}

func TestClampXi(t *testing.T) {
	v := ClampXi(Hex, geom.Vec{-1, 0.5, 2})
	assert.Equal(t, geom.Vec{0, 0.5, 1}, v)

	v = ClampXi(Tet, geom.Vec{1, 1, 1})
	sum := v[0] + v[1] + v[2]
	assert.InDelta(t, 1, float64(sum), 1e-6)
}

func TestXiInsideBoundary(t *testing.T) {
	assert.True(t, XiInside(Tri, geom.Vec{0.5, 0.5, 0}, 1e-9))
	assert.False(t, XiInside(Tri, geom.Vec{0.6, 0.5, 0}, 1e-9))
	assert.True(t, XiInside(Hex, geom.Vec{1, 1, 1}, 0))
}

func TestLUSolve(t *testing.T) {
	luf := newLUFactors(3)
	m := []float64{
		1, 3, 5,
		2, 4, 7,
		1, 1, 0,
	}
	assert.NoError(t, luf.factorize(m))

	b := []float64{1, 2, 3}
	x := make([]float64, 3)
	luf.solve(b, x)

	// Check M x = b.
	for i := 0; i < 3; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += m[i*3+j] * x[j]
		}
		assert.InDelta(t, b[i], sum, 1e-10)
	}

	// Cross-check against gonum's dense solver.
	var ref gmat.VecDense
	a := gmat.NewDense(3, 3, append([]float64(nil), m...))
	rhs := gmat.NewVecDense(3, append([]float64(nil), b...))
	assert.NoError(t, ref.SolveVec(a, rhs))
	for i := 0; i < 3; i++ {
		assert.InDelta(t, ref.AtVec(i), x[i], 1e-10)
	}

	sing := []float64{1, 2, 0, 2, 4, 0, 0, 0, 1}
	assert.Error(t, luf.factorize(sing))
}

func TestLineBasisMatchesMath(t *testing.T) {
	line := MustGet("Line2NL")
	var buf []float64
	buf = line.Basis(0.25, 0, 0, buf)
	// Quadratic Lagrange on nodes {0, 0.5, 1} at x = 0.25.
	assert.InDelta(t, 2*(0.25-0.5)*(0.25-1), buf[0], 1e-12)
	assert.InDelta(t, -4*0.25*(0.25-1)*1, buf[1], 1e-12)
	assert.InDelta(t, 2*0.25*(0.25-0.5), buf[2], 1e-12)
}
