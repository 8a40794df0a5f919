/*package refine converts element-typed topologies into the refined triangle
and line meshes that figures are built from. Each refined node remembers the
element and local coordinate it came from, so fields can be interpolated onto
the refined mesh later without re-deriving the mapping.
*/
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

// MergeTolFrac scales the mesh AABB diagonal into the node merge tolerance
// for welding duplicate nodes along shared refined edges.
const MergeTolFrac = 1e-5

// Options controls a refinement run.
type Options struct {
	// Level is the refinement level r; each face patch is subdivided into
	// (r+1)^2 cells.
	Level int
	// ExternalOnly refines only boundary faces of solid elements.
	ExternalOnly bool
	// InternalOnly refines only shared interior faces of solid elements.
	InternalOnly bool
	// Procs is the worker count; 0 selects automatically.
	Procs int
	// Task receives progress and cancellation; nil means no reporting.
	Task parallel.Task
	// Octree overrides the acceleration structure parameters.
	Octree geom.OctreeParams
}

// TriMesh is a refined triangle mesh. Nodes, Norms, and Cols (filled later
// by the colourer) are parallel; NodeElem and NodeXi record each node's
// parent element and local coordinate; TriElem records each triangle's
// parent element.
type TriMesh struct {
	Nodes *mat.Vec3Matrix
	Norms *mat.Vec3Matrix
	Inds  *mat.IndexMatrix

	NodeElem []int32
	NodeXi   []geom.Vec
	TriElem  []int32

	// Warnings counts elements skipped for degeneracy or non-finite
	// coordinates.
	Warnings int

	octree *geom.Octree
}

// LineMesh is a refined line-segment mesh with the same per-node records as
// TriMesh.
type LineMesh struct {
	Nodes *mat.Vec3Matrix
	Inds  *mat.IndexMatrix

	NodeElem []int32
	NodeXi   []geom.Vec
	SegElem  []int32

	Warnings int
}

type patchVert struct {
	pos  geom.Vec
	xi   geom.Vec
	elem int32
}

type workerTris struct {
	verts    []patchVert
	tris     [][3]int32
	triElem  []int32
	warnings int
}

// Mesh refines the named spatial topology of ds into a triangle mesh.
// An empty topology produces an empty mesh, not an error.
func Mesh(ds *dataset.DataSet, indexName string, opt Options) (*TriMesh, error) {
	ind, ok := ds.Index(indexName)
	if !ok {
		return nil, fmt.Errorf("refine: no topology %q in dataset %q", indexName, ds.Name)
	}
	et, err := elem.Get(ind.ElemType())
	if err != nil {
		return nil, err
	}
	if et.Dim() < 2 {
		return nil, fmt.Errorf("refine: %s topology %q cannot form triangles",
			ind.ElemType(), indexName)
	}

	// Which faces of which elements get refined.
	elemFaces, err := selectFaces(ind, et, opt)
	if err != nil {
		return nil, err
	}

	nodes, err := gatherNodes(ds)
	if err != nil {
		return nil, err
	}

	patches := facePatches(et, opt.Level)

	nElems := ind.Rows()
	procs := opt.Procs
	if procs <= 0 {
		procs = parallel.AutoProcs(nElems)
	}
	outs := make([]workerTris, procs)

	results := parallel.RunRanged(nElems, procs, opt.Task,
		func(worker int, rows parallel.Range) error {
			return refineKernel(worker, rows, ind, et, nodes, elemFaces,
				patches, opt.Task, &outs[worker])
		})
	if err := parallel.CheckResultMap(results); err != nil {
		return nil, err
	}

	return mergeTris(ds, outs)
}

// selectFaces returns, per element, the faces to refine. For surface
// elements the pseudo-face index -1 means the element's own patch.
func selectFaces(ind *mat.IndexMatrix, et elem.Type, opt Options) ([][]int, error) {
	nElems := ind.Rows()
	out := make([][]int, nElems)

	if et.Dim() == 2 {
		for i := range out {
			out[i] = []int{-1}
		}
		return out, nil
	}

	external, err := ExternalFaces(ind, et)
	if err != nil {
		return nil, err
	}

	nFaces := len(et.Faces())
	for i := range out {
		ext := external[i]
		for f := 0; f < nFaces; f++ {
			isExt := ext[f]
			if opt.ExternalOnly && !isExt {
				continue
			}
			if opt.InternalOnly && isExt {
				continue
			}
			out[i] = append(out[i], f)
		}
	}
	return out, nil
}

// facePatches returns the patch triangulations keyed by face shape.
func facePatches(et elem.Type, r int) map[elem.Shape][]elem.PatchTri {
	out := map[elem.Shape][]elem.PatchTri{}
	add := func(s elem.Shape) {
		if _, ok := out[s]; ok {
			return
		}
		switch s {
		case elem.Tri:
			out[s] = elem.TriPatch(r)
		case elem.Quad:
			out[s] = elem.QuadPatch(r)
		}
	}
	if et.Dim() == 2 {
		add(et.Shape())
	}
	for _, f := range et.Faces() {
		add(f.Shape)
	}
	return out
}

func gatherNodes(ds *dataset.DataSet) ([]geom.Vec, error) {
	if ds.Nodes == nil {
		return nil, nil
	}
	out := make([]geom.Vec, ds.Nodes.Rows())
	for i := range out {
		row, err := ds.Nodes.Row(i)
		if err != nil {
			return nil, err
		}
		out[i] = row[0]
	}
	return out, nil
}

// surfacePatchFace fabricates a face covering the whole reference domain of
// a surface element.
func surfacePatchFace(et elem.Type) elem.Face {
	if et.Shape() == elem.Tri {
		return elem.Face{
			Shape:     elem.Tri,
			CornerXis: []geom.Vec{{0, 0}, {1, 0}, {0, 1}},
		}
	}
	return elem.Face{
		Shape:     elem.Quad,
		CornerXis: []geom.Vec{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	}
}

func refineKernel(worker int, rows parallel.Range, ind *mat.IndexMatrix,
	et elem.Type, nodes []geom.Vec, elemFaces [][]int,
	patches map[elem.Shape][]elem.PatchTri, task parallel.Task,
	out *workerTris) error {

	if task == nil {
		task = parallel.NullTask{}
	}
	elemNodes := make([]geom.Vec, et.NumNodes())
	var basis []float64
	faces := et.Faces()
	own := surfacePatchFace(et)

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

		for _, fi := range elemFaces[ei] {
			face := own
			if fi >= 0 {
				face = faces[fi]
			}
			for _, pt := range patches[face.Shape] {
				var tri [3]int32
				for c := 0; c < 3; c++ {
					xi := elem.FaceXi(face, pt.UV[c][0], pt.UV[c][1])
					var pos geom.Vec
					pos, basis = elem.PointAt(et, elemNodes, xi, basis)
					tri[c] = int32(len(out.verts))
					out.verts = append(out.verts, patchVert{pos, xi, int32(ei)})
				}
				out.tris = append(out.tris, tri)
				out.triElem = append(out.triElem, int32(ei))
			}
		}
		task.SetProgress(ei + 1)
	}
	return nil
}

// mergeTris welds the per-worker buffers into one mesh. Workers are merged
// in ascending index order, so output is deterministic for a fixed
// partition.
func mergeTris(ds *dataset.DataSet, outs []workerTris) (*TriMesh, error) {
	diag := meshDiag(ds)
	hash := geom.NewPointHash(float32(MergeTolFrac) * diag)

	mesh := &TriMesh{
		Nodes: mat.NewVec3("refined nodes", 0, 1),
		Norms: mat.NewVec3("refined norms", 0, 1),
		Inds:  mat.NewIndex("refined tris", 0, 3),
	}
	mesh.Inds.SetElemType("Tri1NL")

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

		for ti, tri := range w.tris {
			a, b, c := remap[tri[0]], remap[tri[1]], remap[tri[2]]
			if a == b || b == c || a == c {
				// Collapsed by welding: zero-area triangle.
				mesh.Warnings++
				continue
			}
			if err := mesh.Inds.Append(a, b, c); err != nil {
				return nil, err
			}
			mesh.TriElem = append(mesh.TriElem, w.triElem[ti])
		}
	}

	pts := hash.Points()
	if err := mesh.Nodes.Resize(len(pts)); err != nil {
		return nil, err
	}
	for i, p := range pts {
		mesh.Nodes.Set(i, 0, p)
	}

	if err := computeNormals(mesh); err != nil {
		return nil, err
	}
	return mesh, nil
}

func meshDiag(ds *dataset.DataSet) float32 {
	if ds.Nodes == nil {
		return 0
	}
	box := geom.EmptyBox()
	for i := 0; i < ds.Nodes.Rows(); i++ {
		row, _ := ds.Nodes.Row(i)
		if row[0].IsFinite() {
			box.Extend(row[0])
		}
	}
	return box.Diag()
}

// computeNormals averages incident triangle normals per node, weighted by
// triangle area (the cross product magnitude).
func computeNormals(mesh *TriMesh) error {
	if err := mesh.Norms.Resize(mesh.Nodes.Rows()); err != nil {
		return err
	}
	acc := make([]geom.Vec, mesh.Nodes.Rows())

	for t := 0; t < mesh.Inds.Rows(); t++ {
		tri, err := mesh.Inds.Row(t)
		if err != nil {
			return err
		}
		a, _ := mesh.Nodes.At(int(tri[0]), 0)
		b, _ := mesh.Nodes.At(int(tri[1]), 0)
		c, _ := mesh.Nodes.At(int(tri[2]), 0)

		n := b.Sub(a).Cross(c.Sub(a))
		for _, vi := range tri {
			acc[vi] = acc[vi].Add(n)
		}
	}

	for i, n := range acc {
		len := n.Norm()
		if len > 0 && !math32.IsNaN(len) {
			n = n.Scale(1 / len)
		}
		mesh.Norms.Set(i, 0, n)
	}
	return nil
}

// Octree lazily builds and caches the acceleration structure over the
// refined triangles.
func (m *TriMesh) Octree(params geom.OctreeParams) *geom.Octree {
	if m.octree != nil {
		return m.octree
	}
	tris := make([]geom.Tri, 0, m.Inds.Rows())
	for t := 0; t < m.Inds.Rows(); t++ {
		row, _ := m.Inds.Row(t)
		a, _ := m.Nodes.At(int(row[0]), 0)
		b, _ := m.Nodes.At(int(row[1]), 0)
		c, _ := m.Nodes.At(int(row[2]), 0)
		tris = append(tris, geom.Tri{V: [3]geom.Vec{a, b, c}, Idx: int32(t)})
	}
	m.octree = geom.NewOctree(tris, params)
	return m.octree
}

// Bounds returns the AABB of the refined nodes.
func (m *TriMesh) Bounds() geom.Box {
	box := geom.EmptyBox()
	for i := 0; i < m.Nodes.Rows(); i++ {
		v, _ := m.Nodes.At(i, 0)
		box.Extend(v)
	}
	return box
}
