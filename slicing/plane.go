/*package slicing clips refined geometry against planes and boxes. Plane
slices rewrite the triangle and line buffers on the CPU; box slices only
emit fragment-program uniforms and leave geometry alone.
*/
package slicing

import (
	"log"

	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
	"github.com/medview/medview/parallel"
)

// PlaneEpsFrac scales the mesh AABB diagonal into the plane offset that
// avoids duplicate-coplanar artefacts.
const PlaneEpsFrac = 1e-5

// MeshBuffers are the renderable buffers of one figure. Cols may be nil
// for uncoloured geometry; Norms may be nil for line figures.
type MeshBuffers struct {
	Nodes *mat.Vec3Matrix
	Norms *mat.Vec3Matrix
	Cols  *mat.ColMatrix
	Inds  *mat.IndexMatrix
}

// Triangle classification against the plane.
const (
	triKeep = iota
	triDrop
	triSplit
)

// SlicePlane clips a triangle mesh against the half-space behind the
// plane: vertices with positive signed distance are cut away. Bisected
// triangles are split at the zero crossings with colour and normal
// interpolated; new vertices are appended past the input node count. A
// degenerate plane is a no-op.
func SlicePlane(in MeshBuffers, pln geom.Plane, procs int, task parallel.Task) (MeshBuffers, error) {
	if pln.Degenerate() {
		log.Printf("slicing: degenerate plane ignored")
		return in, nil
	}

	n := pln.Normal.Unit()
	p := pln.Point.Add(n.Scale(PlaneEpsFrac * boundsDiag(in.Nodes)))

	// Signed distances per vertex, then a per-triangle case code. Both
	// passes are data parallel; emission below is sequential so appended
	// vertex order is deterministic.
	dist := make([]float32, in.Nodes.Rows())
	results := parallel.RunRanged(in.Nodes.Rows(), procs, task,
		func(worker int, rows parallel.Range) error {
			for i := rows.Start; i < rows.End; i++ {
				if task != nil && task.Cancelled() {
					return parallel.ErrCancelled
				}
				v, err := in.Nodes.At(i, 0)
				if err != nil {
					return err
				}
				dist[i] = v.Sub(p).Dot(n)
			}
			return nil
		})
	if err := parallel.CheckResultMap(results); err != nil {
		return MeshBuffers{}, err
	}

	cases := make([]byte, in.Inds.Rows())
	caseResults := parallel.RunRanged(in.Inds.Rows(), procs, task,
		func(worker int, rows parallel.Range) error {
			for t := rows.Start; t < rows.End; t++ {
				if task != nil && task.Cancelled() {
					return parallel.ErrCancelled
				}
				tri, err := in.Inds.Row(t)
				if err != nil {
					return err
				}
				above := 0
				for _, vi := range tri {
					if dist[vi] > 0 {
						above++
					}
				}
				switch above {
				case 0:
					cases[t] = triKeep
				case 3:
					cases[t] = triDrop
				default:
					cases[t] = triSplit
				}
			}
			return nil
		})
	if err := parallel.CheckResultMap(caseResults); err != nil {
		return MeshBuffers{}, err
	}

	out := cloneBuffers(in, "sliced")
	em := newEmitter(out, dist)

	for t := 0; t < in.Inds.Rows(); t++ {
		tri, err := in.Inds.Row(t)
		if err != nil {
			return MeshBuffers{}, err
		}
		switch cases[t] {
		case triKeep:
			if err := out.Inds.Append(tri[0], tri[1], tri[2]); err != nil {
				return MeshBuffers{}, err
			}
		case triSplit:
			if err := em.splitTri([3]int32{tri[0], tri[1], tri[2]}); err != nil {
				return MeshBuffers{}, err
			}
		}
	}
	return out, nil
}

// emitter appends interpolated crossing vertices and clipped triangles.
type emitter struct {
	out  MeshBuffers
	dist []float32
}

func newEmitter(out MeshBuffers, dist []float32) *emitter {
	return &emitter{out: out, dist: dist}
}

// crossing appends the zero-crossing vertex between a (kept) and b
// (dropped) and returns its index.
func (em *emitter) crossing(a, b int32) (int32, error) {
	da, db := em.dist[a], em.dist[b]
	t := da / (da - db)

	idx := int32(em.out.Nodes.Rows())
	pa, _ := em.out.Nodes.At(int(a), 0)
	pb, _ := em.out.Nodes.At(int(b), 0)
	if err := em.out.Nodes.Append(pa.Lerp(pb, t)); err != nil {
		return 0, err
	}
	if em.out.Norms != nil {
		na, _ := em.out.Norms.At(int(a), 0)
		nb, _ := em.out.Norms.At(int(b), 0)
		if err := em.out.Norms.Append(na.Lerp(nb, t).Unit()); err != nil {
			return 0, err
		}
	}
	if em.out.Cols != nil {
		ca, _ := em.out.Cols.At(int(a), 0)
		cb, _ := em.out.Cols.At(int(b), 0)
		var c mat.Col
		for k := 0; k < 4; k++ {
			c[k] = ca[k] + (cb[k]-ca[k])*t
		}
		if err := em.out.Cols.Append(c); err != nil {
			return 0, err
		}
	}
	return idx, nil
}

// splitTri emits the kept part of a bisected triangle. Vertices are
// rotated so the lone-sign vertex comes first.
func (em *emitter) splitTri(tri [3]int32) error {
	above := func(i int32) bool { return em.dist[i] > 0 }

	// Rotate until vertex 0 is the lone one.
	lone := -1
	for k := 0; k < 3; k++ {
		a, b, c := tri[k], tri[(k+1)%3], tri[(k+2)%3]
		if above(a) != above(b) && above(a) != above(c) {
			lone = k
			break
		}
	}
	a, b, c := tri[lone], tri[(lone+1)%3], tri[(lone+2)%3]

	if above(a) {
		// Lone vertex dropped; the kept quad becomes two triangles.
		ab, err := em.crossing(b, a)
		if err != nil {
			return err
		}
		ac, err := em.crossing(c, a)
		if err != nil {
			return err
		}
		if err := em.out.Inds.Append(b, c, ac); err != nil {
			return err
		}
		return em.out.Inds.Append(b, ac, ab)
	}

	// Lone vertex kept.
	ab, err := em.crossing(a, b)
	if err != nil {
		return err
	}
	ac, err := em.crossing(a, c)
	if err != nil {
		return err
	}
	return em.out.Inds.Append(a, ab, ac)
}

// SliceLines clips a line-segment mesh against the plane with the same
// sign convention as SlicePlane.
func SliceLines(in MeshBuffers, pln geom.Plane) (MeshBuffers, error) {
	if pln.Degenerate() {
		log.Printf("slicing: degenerate plane ignored")
		return in, nil
	}
	n := pln.Normal.Unit()
	p := pln.Point.Add(n.Scale(PlaneEpsFrac * boundsDiag(in.Nodes)))

	dist := make([]float32, in.Nodes.Rows())
	for i := range dist {
		v, err := in.Nodes.At(i, 0)
		if err != nil {
			return MeshBuffers{}, err
		}
		dist[i] = v.Sub(p).Dot(n)
	}

	out := cloneBuffers(in, "sliced")
	em := newEmitter(out, dist)

	for s := 0; s < in.Inds.Rows(); s++ {
		seg, err := in.Inds.Row(s)
		if err != nil {
			return MeshBuffers{}, err
		}
		a, b := seg[0], seg[1]
		aUp, bUp := dist[a] > 0, dist[b] > 0
		switch {
		case !aUp && !bUp:
			if err := out.Inds.Append(a, b); err != nil {
				return MeshBuffers{}, err
			}
		case aUp && bUp:
			// dropped
		case aUp:
			x, err := em.crossing(b, a)
			if err != nil {
				return MeshBuffers{}, err
			}
			if err := out.Inds.Append(b, x); err != nil {
				return MeshBuffers{}, err
			}
		default:
			x, err := em.crossing(a, b)
			if err != nil {
				return MeshBuffers{}, err
			}
			if err := out.Inds.Append(a, x); err != nil {
				return MeshBuffers{}, err
			}
		}
	}
	return out, nil
}

func cloneBuffers(in MeshBuffers, name string) MeshBuffers {
	out := MeshBuffers{
		Nodes: in.Nodes.Clone(name + " nodes"),
		Inds:  mat.NewIndex(name+" inds", 0, in.Inds.Cols()),
	}
	out.Inds.SetElemType(in.Inds.ElemType())
	if in.Norms != nil {
		out.Norms = in.Norms.Clone(name + " norms")
	}
	if in.Cols != nil {
		out.Cols = in.Cols.Clone(name + " cols")
	}
	return out
}

func boundsDiag(nodes *mat.Vec3Matrix) float32 {
	box := geom.EmptyBox()
	for i := 0; i < nodes.Rows(); i++ {
		v, _ := nodes.At(i, 0)
		if v.IsFinite() {
			box.Extend(v)
		}
	}
	return box.Diag()
}
