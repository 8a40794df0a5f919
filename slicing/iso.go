package slicing

import (
	"fmt"
	"math"
	"sort"

	"github.com/medview/medview/dataset"
	"github.com/medview/medview/elem"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
)

// IsoMesh is the constructive plane-element intersection surface. NodeElem
// and NodeXi let the caller colour it by sampling the bound field at the
// cut coordinates.
type IsoMesh struct {
	Nodes *mat.Vec3Matrix
	Norms *mat.Vec3Matrix
	Inds  *mat.IndexMatrix

	NodeElem []int32
	NodeXi   []geom.Vec
}

// IsoPlane intersects the plane with every element of the named solid
// topology and triangulates the cut polygons. Elements the plane misses
// contribute nothing.
func IsoPlane(ds *dataset.DataSet, indexName string, pln geom.Plane) (*IsoMesh, error) {
	if pln.Degenerate() {
		return &IsoMesh{
			Nodes: mat.NewVec3("iso nodes", 0, 1),
			Norms: mat.NewVec3("iso norms", 0, 1),
			Inds:  newTriInds("iso tris"),
		}, nil
	}

	ind, ok := ds.Index(indexName)
	if !ok {
		return nil, fmt.Errorf("slicing: no topology %q in dataset %q", indexName, ds.Name)
	}
	et, err := elem.Get(ind.ElemType())
	if err != nil {
		return nil, err
	}
	if et.Dim() != 3 {
		return nil, fmt.Errorf("slicing: iso-plane needs a solid topology, got %s",
			ind.ElemType())
	}

	n := pln.Normal.Unit()
	edges := cornerEdges(et)

	mesh := &IsoMesh{
		Nodes: mat.NewVec3("iso nodes", 0, 1),
		Norms: mat.NewVec3("iso norms", 0, 1),
		Inds:  newTriInds("iso tris"),
	}

	for ei := 0; ei < ind.Rows(); ei++ {
		row, err := ind.Row(ei)
		if err != nil {
			return nil, err
		}

		// Zero crossings along the element's corner edges.
		var pts []geom.Vec
		var xis []geom.Vec
		for _, e := range edges {
			pa, err := nodeAt(ds, row[e.a])
			if err != nil {
				return nil, err
			}
			pb, err := nodeAt(ds, row[e.b])
			if err != nil {
				return nil, err
			}
			da := pa.Sub(pln.Point).Dot(n)
			db := pb.Sub(pln.Point).Dot(n)
			if (da > 0) == (db > 0) || da == db {
				continue
			}
			t := da / (da - db)
			pts = append(pts, pa.Lerp(pb, t))
			xis = append(xis, e.xiA.Lerp(e.xiB, t))
		}
		if len(pts) < 3 {
			continue
		}

		order := polygonOrder(pts, n)
		base := int32(mesh.Nodes.Rows())
		for _, oi := range order {
			if err := mesh.Nodes.Append(pts[oi]); err != nil {
				return nil, err
			}
			if err := mesh.Norms.Append(n); err != nil {
				return nil, err
			}
			mesh.NodeElem = append(mesh.NodeElem, int32(ei))
			mesh.NodeXi = append(mesh.NodeXi, xis[oi])
		}
		// Fan triangulation of the ordered polygon.
		for k := 1; k+1 < len(order); k++ {
			if err := mesh.Inds.Append(base, base+int32(k), base+int32(k+1)); err != nil {
				return nil, err
			}
		}
	}
	return mesh, nil
}

func newTriInds(name string) *mat.IndexMatrix {
	m := mat.NewIndex(name, 0, 3)
	m.SetElemType("Tri1NL")
	return m
}

func nodeAt(ds *dataset.DataSet, i int32) (geom.Vec, error) {
	return ds.Nodes.At(int(i), 0)
}

type cornerEdge struct {
	a, b       int
	xiA, xiB   geom.Vec
}

// cornerEdges derives the corner edge set of a solid element from its face
// boundaries.
func cornerEdges(et elem.Type) []cornerEdge {
	type key [2]int
	seen := map[key]bool{}
	var out []cornerEdge

	for _, f := range et.Faces() {
		cyc := faceCycle(f)
		for i := range cyc {
			a, b := cyc[i], cyc[(i+1)%len(cyc)]
			ca, cb := f.Corners[a], f.Corners[b]
			k := key{ca, cb}
			if ca > cb {
				k = key{cb, ca}
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, cornerEdge{
				a: ca, b: cb,
				xiA: f.CornerXis[a], xiB: f.CornerXis[b],
			})
		}
	}
	return out
}

// faceCycle gives the boundary order of a face's corner slots. Quad
// corners are stored in tensor order, so the cycle swaps the last two.
func faceCycle(f elem.Face) []int {
	if f.Shape == elem.Quad {
		return []int{0, 1, 3, 2}
	}
	return []int{0, 1, 2}
}

// polygonOrder sorts the cut points counterclockwise about their centroid
// in the plane with normal n.
func polygonOrder(pts []geom.Vec, n geom.Vec) []int {
	var centroid geom.Vec
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float32(len(pts)))

	u := perpInPlane(n)
	v := n.Cross(u)

	order := make([]int, len(pts))
	angles := make([]float64, len(pts))
	for i, p := range pts {
		d := p.Sub(centroid)
		angles[i] = math.Atan2(float64(d.Dot(v)), float64(d.Dot(u)))
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return angles[order[a]] < angles[order[b]]
	})
	return order
}

func perpInPlane(n geom.Vec) geom.Vec {
	ref := geom.Vec{1, 0, 0}
	if n[0]*n[0] > 0.8*n.Dot(n) {
		ref = geom.Vec{0, 1, 0}
	}
	return n.Cross(ref).Unit()
}
