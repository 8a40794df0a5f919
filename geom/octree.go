package geom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Octree defaults. Both are tunable through OctreeParams.
const (
	DefaultOctreeDepth    = 8
	DefaultOctreeLeafSize = 16
)

// OctreeParams controls octree construction.
type OctreeParams struct {
	MaxDepth int
	LeafSize int
}

// Tri is a triangle with an attached primitive index, normally the row of
// the triangle in a refined index matrix.
type Tri struct {
	V   [3]Vec
	Idx int32
}

func (t *Tri) bounds() Box {
	b := EmptyBox()
	b.Extend(t.V[0])
	b.Extend(t.V[1])
	b.Extend(t.V[2])
	return b
}

// Octree holds triangles for picking and slice-candidate queries.
type Octree struct {
	root   *octNode
	bounds Box
	params OctreeParams
}

type octNode struct {
	bounds   Box
	tris     []Tri
	children [8]*octNode
	leaf     bool
}

// NewOctree builds an octree over the given triangles. Zero-valued params
// fields fall back to the package defaults.
func NewOctree(tris []Tri, params OctreeParams) *Octree {
	if params.MaxDepth <= 0 {
		params.MaxDepth = DefaultOctreeDepth
	}
	if params.LeafSize <= 0 {
		params.LeafSize = DefaultOctreeLeafSize
	}

	bounds := EmptyBox()
	for i := range tris {
		b := tris[i].bounds()
		bounds.ExtendBox(b)
	}

	oc := &Octree{bounds: bounds, params: params}
	oc.root = oc.build(tris, bounds, 0)
	return oc
}

func (oc *Octree) build(tris []Tri, bounds Box, depth int) *octNode {
	n := &octNode{bounds: bounds}
	if len(tris) <= oc.params.LeafSize || depth >= oc.params.MaxDepth {
		n.leaf = true
		n.tris = tris
		return n
	}

	var kept []Tri
	parts := make([][]Tri, 8)
	for _, t := range tris {
		tb := t.bounds()
		child := -1
		for i := 0; i < 8; i++ {
			ob := bounds.Octant(i)
			if ob.Contains(tb.Min) && ob.Contains(tb.Max) {
				child = i
				break
			}
		}
		if child == -1 {
			// Straddles a split plane; stays at this level.
			kept = append(kept, t)
		} else {
			parts[child] = append(parts[child], t)
		}
	}

	n.tris = kept
	for i := 0; i < 8; i++ {
		if len(parts[i]) > 0 {
			n.children[i] = oc.build(parts[i], bounds.Octant(i), depth+1)
		}
	}
	return n
}

// Bounds returns the bounding box of all triangles in the tree.
func (oc *Octree) Bounds() Box { return oc.bounds }

// PlaneCandidates appends to out the triangles whose bounding boxes meet the
// plane, the candidate set for slicing.
func (oc *Octree) PlaneCandidates(p Plane, out []Tri) []Tri {
	return oc.root.planeCandidates(p, out)
}

func (n *octNode) planeCandidates(p Plane, out []Tri) []Tri {
	if !boxMeetsPlane(n.bounds, p) {
		return out
	}
	for _, t := range n.tris {
		if boxMeetsPlane(t.bounds(), p) {
			out = append(out, t)
		}
	}
	for _, c := range n.children {
		if c != nil {
			out = c.planeCandidates(p, out)
		}
	}
	return out
}

func boxMeetsPlane(b Box, p Plane) bool {
	if b.Empty() {
		return false
	}
	neg, pos := false, false
	for i := 0; i < 8; i++ {
		corner := Vec{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		if p.Dist(corner) >= 0 {
			pos = true
		} else {
			neg = true
		}
		if neg && pos {
			return true
		}
	}
	return false
}

// PickHit is a ray intersection result.
type PickHit struct {
	Tri  int32
	T    float64
	Bary [3]float64
}

// Pick returns ray-triangle intersections ordered by distance along the ray.
func (oc *Octree) Pick(origin, dir Vec) []PickHit {
	var hits []PickHit
	hits = oc.root.pick(origin, dir, hits)
	sort.Slice(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
	return hits
}

func (n *octNode) pick(origin, dir Vec, hits []PickHit) []PickHit {
	if !rayMeetsBox(origin, dir, n.bounds) {
		return hits
	}
	for i := range n.tris {
		if t, bary, ok := rayTri(origin, dir, &n.tris[i]); ok {
			hits = append(hits, PickHit{Tri: n.tris[i].Idx, T: t, Bary: bary})
		}
	}
	for _, c := range n.children {
		if c != nil {
			hits = c.pick(origin, dir, hits)
		}
	}
	return hits
}

func rayMeetsBox(origin, dir Vec, b Box) bool {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		o, d := float64(origin[i]), float64(dir[i])
		lo, hi := float64(b.Min[i]), float64(b.Max[i])
		if math.Abs(d) < 1e-18 {
			if o < lo || o > hi {
				return false
			}
			continue
		}
		t0, t1 := (lo-o)/d, (hi-o)/d
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmin > tmax {
			return false
		}
	}
	return tmax >= 0
}

// rayTri is the Moeller-Trumbore intersection test.
func rayTri(origin, dir Vec, tri *Tri) (t float64, bary [3]float64, ok bool) {
	e1 := tri.V[1].Sub(tri.V[0]).R3()
	e2 := tri.V[2].Sub(tri.V[0]).R3()
	d := dir.R3()

	p := r3.Cross(d, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < 1e-18 {
		return 0, bary, false
	}
	inv := 1 / det

	s := origin.Sub(tri.V[0]).R3()
	u := r3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, bary, false
	}

	q := r3.Cross(s, e1)
	v := r3.Dot(d, q) * inv
	if v < 0 || u+v > 1 {
		return 0, bary, false
	}

	t = r3.Dot(e2, q) * inv
	if t < 0 {
		return 0, bary, false
	}
	return t, [3]float64{1 - u - v, u, v}, true
}
