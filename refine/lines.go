package refine

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/medview/medview/dataset"
	"github.com/medview/medview/elem"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
	"github.com/medview/medview/parallel"
)

type workerSegs struct {
	verts    []patchVert
	segs     [][2]int32
	segElem  []int32
	warnings int
}

// Lines refines the named line or curve topology into straight segments.
func Lines(ds *dataset.DataSet, indexName string, opt Options) (*LineMesh, error) {
	ind, ok := ds.Index(indexName)
	if !ok {
		return nil, fmt.Errorf("refine: no topology %q in dataset %q", indexName, ds.Name)
	}
	et, err := elem.Get(ind.ElemType())
	if err != nil {
		return nil, err
	}
	if et.Dim() != 1 {
		return nil, fmt.Errorf("refine: %s topology %q is not a line type",
			ind.ElemType(), indexName)
	}

	nodes, err := gatherNodes(ds)
	if err != nil {
		return nil, err
	}
	spans := elem.LinePatch(opt.Level)

	nElems := ind.Rows()
	procs := opt.Procs
	if procs <= 0 {
		procs = parallel.AutoProcs(nElems)
	}
	outs := make([]workerSegs, procs)

	results := parallel.RunRanged(nElems, procs, opt.Task,
		func(worker int, rows parallel.Range) error {
			return lineKernel(rows, ind, et, nodes, spans, opt.Task, &outs[worker])
		})
	if err := parallel.CheckResultMap(results); err != nil {
		return nil, err
	}

	return mergeSegs(ds, outs)
}

func lineKernel(rows parallel.Range, ind *mat.IndexMatrix, et elem.Type,
	nodes []geom.Vec, spans [][2]float64, task parallel.Task,
	out *workerSegs) error {

	if task == nil {
		task = parallel.NullTask{}
	}
	elemNodes := make([]geom.Vec, et.NumNodes())
	var basis []float64

	for ei := rows.Start; ei < rows.End; ei++ {
		if task.Cancelled() {
			return parallel.ErrCancelled
		}

		row, err := ind.Row(ei)
		if err != nil {
			return err
		}
		bad := false
		for i, n := range row {
			elemNodes[i] = nodes[n]
			if !elemNodes[i].IsFinite() {
				bad = true
			}
		}
		if bad {
			out.warnings++
			continue
		}

		for _, span := range spans {
			var seg [2]int32
			for c := 0; c < 2; c++ {
				xi := geom.Vec{float32(span[c]), 0, 0}
				var pos geom.Vec
				pos, basis = elem.PointAt(et, elemNodes, xi, basis)
				seg[c] = int32(len(out.verts))
				out.verts = append(out.verts, patchVert{pos, xi, int32(ei)})
			}
			out.segs = append(out.segs, seg)
			out.segElem = append(out.segElem, int32(ei))
		}
		task.SetProgress(ei + 1)
	}
	return nil
}

func mergeSegs(ds *dataset.DataSet, outs []workerSegs) (*LineMesh, error) {
	diag := meshDiag(ds)
	hash := geom.NewPointHash(float32(MergeTolFrac) * diag)

	mesh := &LineMesh{
		Nodes: mat.NewVec3("refined line nodes", 0, 1),
		Inds:  mat.NewIndex("refined segments", 0, 2),
	}
	mesh.Inds.SetElemType("Line1NL")

	for wi := range outs {
		w := &outs[wi]
		mesh.Warnings += w.warnings
		remap := make([]int32, len(w.verts))
		for vi, v := range w.verts {
			idx, merged := hash.Add(v.pos)
			remap[vi] = idx
			if !merged {
				mesh.NodeElem = append(mesh.NodeElem, v.elem)
				mesh.NodeXi = append(mesh.NodeXi, v.xi)
			}
		}
		for si, seg := range w.segs {
			a, b := remap[seg[0]], remap[seg[1]]
			if a == b {
				mesh.Warnings++
				continue
			}
			if err := mesh.Inds.Append(a, b); err != nil {
				return nil, err
			}
			mesh.SegElem = append(mesh.SegElem, w.segElem[si])
		}
	}

	pts := hash.Points()
	if err := mesh.Nodes.Resize(len(pts)); err != nil {
		return nil, err
	}
	for i, p := range pts {
		mesh.Nodes.Set(i, 0, p)
	}
	return mesh, nil
}

// RadiusFunc gives the tube radius at a refined line node.
type RadiusFunc func(node int) float32

// ConstantRadius wraps a fixed tube radius.
func ConstantRadius(r float32) RadiusFunc {
	return func(int) float32 { return r }
}

// Cylinders sweeps a circular tube of radSegs sides along each segment of a
// line mesh. Endpoint rings of adjacent segments are not stitched, so
// sharply bent polylines render with visible joints at very low radSegs.
func Cylinders(lm *LineMesh, radius RadiusFunc, radSegs int) (*TriMesh, error) {
	if radSegs < 3 {
		return nil, fmt.Errorf("refine: cylinder needs at least 3 sides, got %d", radSegs)
	}
	mesh := &TriMesh{
		Nodes: mat.NewVec3("cylinder nodes", 0, 1),
		Norms: mat.NewVec3("cylinder norms", 0, 1),
		Inds:  mat.NewIndex("cylinder tris", 0, 3),
	}
	mesh.Inds.SetElemType("Tri1NL")

	for s := 0; s < lm.Inds.Rows(); s++ {
		seg, err := lm.Inds.Row(s)
		if err != nil {
			return nil, err
		}
		a, _ := lm.Nodes.At(int(seg[0]), 0)
		b, _ := lm.Nodes.At(int(seg[1]), 0)
		axis := b.Sub(a)
		if axis.Norm() == 0 {
			mesh.Warnings++
			continue
		}
		axis = axis.Unit()
		u := perpTo(axis)
		v := axis.Cross(u)

		base := int32(mesh.Nodes.Rows())
		for end := 0; end < 2; end++ {
			ni := int(seg[end])
			center := a
			if end == 1 {
				center = b
			}
			r := radius(ni)
			for k := 0; k < radSegs; k++ {
				ang := 2 * math32.Pi * float32(k) / float32(radSegs)
				dir := u.Scale(math32.Cos(ang)).Add(v.Scale(math32.Sin(ang)))
				if err := mesh.Nodes.Append(center.Add(dir.Scale(r))); err != nil {
					return nil, err
				}
				if err := mesh.Norms.Append(dir); err != nil {
					return nil, err
				}
				mesh.NodeElem = append(mesh.NodeElem, lm.NodeElem[ni])
				mesh.NodeXi = append(mesh.NodeXi, lm.NodeXi[ni])
			}
		}

		for k := 0; k < radSegs; k++ {
			k1 := (k + 1) % radSegs
			a0 := base + int32(k)
			a1 := base + int32(k1)
			b0 := base + int32(radSegs+k)
			b1 := base + int32(radSegs+k1)
			if err := mesh.Inds.Append(a0, b0, b1); err != nil {
				return nil, err
			}
			if err := mesh.Inds.Append(a0, b1, a1); err != nil {
				return nil, err
			}
			mesh.TriElem = append(mesh.TriElem, lm.SegElem[s], lm.SegElem[s])
		}
	}
	return mesh, nil
}

// perpTo returns a unit vector perpendicular to the given unit axis.
func perpTo(axis geom.Vec) geom.Vec {
	ref := geom.Vec{1, 0, 0}
	if math32.Abs(axis[0]) > 0.9 {
		ref = geom.Vec{0, 1, 0}
	}
	return axis.Cross(ref).Unit()
}
