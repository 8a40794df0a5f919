package elem

import (
	"github.com/medview/medview/geom"
)

func init() {
	register(&pointType{baseType{
		name:   TypeName(Point, 1, NodalLagrange),
		shape:  Point,
		order:  1,
		kind:   NodalLagrange,
		refXis: []geom.Vec{{}},
	}})

	for p := 1; p <= 3; p++ {
		register(newTensor(Line, p))
		register(newTensor(Quad, p))
		register(newTensor(Hex, p))
	}

	register(newTri(1))
	register(newTri(2))
	register(newTri(3))
	register(newTet(1))
	register(newTet(2))
	register(newTet(3))

	register(&curveType{baseType{
		name:  TypeName(Line, 1, PointCatmullRom),
		shape: Line, order: 1, kind: PointCatmullRom,
		refXis: []geom.Vec{{-1, 0, 0}, {0, 0, 0}, {1, 0, 0}, {2, 0, 0}},
	}})
	register(&curveType{baseType{
		name:  TypeName(Line, 1, PointCubic),
		shape: Line, order: 1, kind: PointCubic,
		refXis: []geom.Vec{{0, 0, 0}, {1. / 3, 0, 0}, {2. / 3, 0, 0}, {1, 0, 0}},
	}})
}

func newTensor(s Shape, p int) *tensorType {
	t := &tensorType{baseType{
		name:  TypeName(s, p, NodalLagrange),
		shape: s, order: p, kind: NodalLagrange,
	}}
	n := p + 1

	switch s {
	case Line:
		for i := 0; i <= p; i++ {
			t.refXis = append(t.refXis, geom.Vec{float32(i) / float32(p)})
		}
	case Quad:
		for j := 0; j <= p; j++ {
			for i := 0; i <= p; i++ {
				t.refXis = append(t.refXis,
					geom.Vec{float32(i) / float32(p), float32(j) / float32(p)})
			}
		}
		t.faces = quadEdges(t.refXis, p)
	case Hex:
		for k := 0; k <= p; k++ {
			for j := 0; j <= p; j++ {
				for i := 0; i <= p; i++ {
					t.refXis = append(t.refXis, geom.Vec{
						float32(i) / float32(p),
						float32(j) / float32(p),
						float32(k) / float32(p),
					})
				}
			}
		}
		t.faces = hexFaces(t.refXis, p, n)
	}
	return t
}

// quadEdges lists the four boundary edges of a quad lattice counterclockwise.
func quadEdges(refXis []geom.Vec, p int) []Face {
	n := p + 1
	at := func(i, j int) int { return i + n*j }

	mk := func(idx []int) Face {
		a, b := idx[0], idx[len(idx)-1]
		return Face{
			Shape:     Line,
			Nodes:     idx,
			Corners:   []int{a, b},
			CornerXis: []geom.Vec{refXis[a], refXis[b]},
		}
	}

	var bottom, right, top, left []int
	for i := 0; i <= p; i++ {
		bottom = append(bottom, at(i, 0))
		right = append(right, at(p, i))
		top = append(top, at(p-i, p))
		left = append(left, at(0, p-i))
	}
	return []Face{mk(bottom), mk(right), mk(top), mk(left)}
}

// hexFaces builds the six outward-oriented quad faces of a hex lattice. The
// (u, v) axis assignment per face keeps du x dv pointing out of the element.
func hexFaces(refXis []geom.Vec, p, n int) []Face {
	type faceAxes struct {
		fix, fixVal, uAxis, vAxis int
	}
	axes := []faceAxes{
		{2, 0, 1, 0}, // zeta = 0
		{2, 1, 0, 1}, // zeta = 1
		{1, 0, 0, 2}, // eta = 0
		{1, 1, 2, 0}, // eta = 1
		{0, 0, 2, 1}, // xi = 0
		{0, 1, 1, 2}, // xi = 1
	}

	at := func(c [3]int) int { return c[0] + n*c[1] + n*n*c[2] }

	faces := make([]Face, 0, 6)
	for _, fa := range axes {
		var nodes []int
		for vj := 0; vj <= p; vj++ {
			for ui := 0; ui <= p; ui++ {
				var c [3]int
				c[fa.uAxis], c[fa.vAxis], c[fa.fix] = ui, vj, fa.fixVal*p
				nodes = append(nodes, at(c))
			}
		}
		corners := []int{nodes[0], nodes[p], nodes[p*(p+1)], nodes[p*(p+2)]}
		xis := make([]geom.Vec, 4)
		for i, c := range corners {
			xis[i] = refXis[c]
		}
		faces = append(faces, Face{
			Shape: Quad, Nodes: nodes, Corners: corners, CornerXis: xis,
		})
	}
	return faces
}

func newTri(p int) *simplexType {
	t := &simplexType{baseType{
		name:  TypeName(Tri, p, NodalLagrange),
		shape: Tri, order: p, kind: NodalLagrange,
	}}

	var edges [][]int
	switch p {
	case 1:
		t.refXis = []geom.Vec{{0, 0}, {1, 0}, {0, 1}}
		edges = [][]int{{0, 1}, {1, 2}, {2, 0}}
	case 2:
		t.refXis = []geom.Vec{
			{0, 0}, {1, 0}, {0, 1},
			{0.5, 0}, {0.5, 0.5}, {0, 0.5},
		}
		edges = [][]int{{0, 3, 1}, {1, 4, 2}, {2, 5, 0}}
	case 3:
		third := float32(1) / 3
		t.refXis = []geom.Vec{
			{0, 0}, {1, 0}, {0, 1},
			{third, 0}, {2 * third, 0},
			{2 * third, third}, {third, 2 * third},
			{0, third}, {0, 2 * third},
			{third, third},
		}
		edges = [][]int{{0, 3, 4, 1}, {1, 5, 6, 2}, {2, 8, 7, 0}}
	}

	for _, e := range edges {
		a, b := e[0], e[len(e)-1]
		t.faces = append(t.faces, Face{
			Shape:     Line,
			Nodes:     e,
			Corners:   []int{a, b},
			CornerXis: []geom.Vec{t.refXis[a], t.refXis[b]},
		})
	}
	return t
}

// Outward-oriented corner triples of the four tetrahedron faces.
var tetFaceCorners = [4][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}}

func newTet(p int) *simplexType {
	t := &simplexType{baseType{
		name:  TypeName(Tet, p, NodalLagrange),
		shape: Tet, order: p, kind: NodalLagrange,
	}}

	t.refXis = []geom.Vec{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	switch p {
	case 2:
		for _, e := range tetEdges {
			a, b := t.refXis[e[0]], t.refXis[e[1]]
			t.refXis = append(t.refXis, a.Add(b).Scale(0.5))
		}
	case 3:
		third := float32(1) / 3
		for _, e := range tetEdges {
			a, b := t.refXis[e[0]], t.refXis[e[1]]
			d := b.Sub(a)
			t.refXis = append(t.refXis,
				a.Add(d.Scale(third)), a.Add(d.Scale(2*third)))
		}
		for _, f := range tetFaceCorners {
			c := t.refXis[f[0]].Add(t.refXis[f[1]]).Add(t.refXis[f[2]]).Scale(third)
			t.refXis = append(t.refXis, c)
		}
	}

	mid := func(a, b int) int {
		for i, e := range tetEdges {
			if (e[0] == a && e[1] == b) || (e[0] == b && e[1] == a) {
				return 4 + i
			}
		}
		panic("elem: no such tet edge")
	}
	// Thirds of edge a->b for the cubic tet: near-a node first.
	thirds := func(a, b int) (int, int) {
		for i, e := range tetEdges {
			if e[0] == a && e[1] == b {
				return 4 + 2*i, 5 + 2*i
			}
			if e[0] == b && e[1] == a {
				return 5 + 2*i, 4 + 2*i
			}
		}
		panic("elem: no such tet edge")
	}

	for fi, c := range tetFaceCorners {
		nodes := []int{c[0], c[1], c[2]}
		switch p {
		case 2:
			nodes = append(nodes, mid(c[0], c[1]), mid(c[1], c[2]), mid(c[0], c[2]))
		case 3:
			ab0, ab1 := thirds(c[0], c[1])
			bc0, bc1 := thirds(c[1], c[2])
			ca0, ca1 := thirds(c[0], c[2])
			nodes = append(nodes, ab0, ab1, bc0, bc1, ca0, ca1, 16+fi)
		}
		xis := make([]geom.Vec, 3)
		for i := 0; i < 3; i++ {
			xis[i] = t.refXis[c[i]]
		}
		t.faces = append(t.faces, Face{
			Shape:     Tri,
			Nodes:     nodes,
			Corners:   []int{c[0], c[1], c[2]},
			CornerXis: xis,
		})
	}
	return t
}
