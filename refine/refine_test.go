package refine

import (
	"testing"

	"github.com/medview/medview/dataset"
	"github.com/medview/medview/elem"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitHex builds a dataset with nx unit cubes stacked along x.
func unitHex(t *testing.T, nx int) *dataset.DataSet {
	t.Helper()

	nodes := mat.NewVec3("nodes", 0, 1)
	for i := 0; i <= nx; i++ {
		for _, y := range []float32{0, 1} {
			for _, z := range []float32{0, 1} {
				require.NoError(t, nodes.Append(geom.Vec{float32(i), y, z}))
			}
		}
	}
	// Node at (i, y, z) is i*4 + int(y)*1 + int(z)*2 with the loop order
	// above: (y=0,z=0), (y=0,z=1), (y=1,z=0), (y=1,z=1).
	at := func(i int, y, z float32) int32 {
		return int32(i*4 + int(y)*2 + int(z))
	}

	ind := mat.NewIndex("hexes", 0, 8)
	ind.SetElemType("Hex1NL")
	for i := 0; i < nx; i++ {
		require.NoError(t, ind.Append(
			at(i, 0, 0), at(i+1, 0, 0), at(i, 1, 0), at(i+1, 1, 0),
			at(i, 0, 1), at(i+1, 0, 1), at(i, 1, 1), at(i+1, 1, 1),
		))
	}

	ds := dataset.New("cubes", nodes)
	ds.SetIndex("hexes", ind)
	require.NoError(t, ds.Validate())
	return ds
}

func TestMeshSingleHexLevel2(t *testing.T) {
	ds := unitHex(t, 1)
	mesh, err := Mesh(ds, "hexes", Options{Level: 2, ExternalOnly: true, Procs: 1})
	require.NoError(t, err)

	// 6 faces, each split 3x3 into 2 triangles per cell.
	assert.Equal(t, 108, mesh.Inds.Rows())
	// 4x4 grid per face, welded along the cube edges and corners: the
	// surface of a 4x4x4 lattice.
	assert.Equal(t, 56, mesh.Nodes.Rows())
	assert.Equal(t, 0, mesh.Warnings)
	assert.Len(t, mesh.TriElem, 108)
	assert.Len(t, mesh.NodeElem, mesh.Nodes.Rows())
	assert.Len(t, mesh.NodeXi, mesh.Nodes.Rows())
}

func TestMeshNormalsOutward(t *testing.T) {
	ds := unitHex(t, 1)
	mesh, err := Mesh(ds, "hexes", Options{Level: 1, ExternalOnly: true, Procs: 1})
	require.NoError(t, err)

	center := geom.Vec{0.5, 0.5, 0.5}
	for i := 0; i < mesh.Nodes.Rows(); i++ {
		p, err := mesh.Nodes.At(i, 0)
		require.NoError(t, err)
		n, err := mesh.Norms.At(i, 0)
		require.NoError(t, err)
		assert.InDelta(t, 1, float64(n.Norm()), 1e-5)
		assert.Greater(t, float64(n.Dot(p.Sub(center))), 0.0,
			"node %d normal points inward", i)
	}
}

func TestMeshTwoHexesAdjacency(t *testing.T) {
	ds := unitHex(t, 2)

	ext, err := Mesh(ds, "hexes", Options{Level: 0, ExternalOnly: true, Procs: 2})
	require.NoError(t, err)
	// 5 boundary faces per hex, 2 triangles each.
	assert.Equal(t, 20, ext.Inds.Rows())

	in, err := Mesh(ds, "hexes", Options{Level: 0, InternalOnly: true, Procs: 2})
	require.NoError(t, err)
	// The shared face, once from each side.
	assert.Equal(t, 4, in.Inds.Rows())

	all, err := Mesh(ds, "hexes", Options{Level: 0, Procs: 2})
	require.NoError(t, err)
	assert.Equal(t, 24, all.Inds.Rows())
}

func TestExternalFaces(t *testing.T) {
	ds := unitHex(t, 2)
	ind, ok := ds.Index("hexes")
	require.True(t, ok)
	et, err := elem.Get(ind.ElemType())
	require.NoError(t, err)

	ext, err := ExternalFaces(ind, et)
	require.NoError(t, err)
	require.Len(t, ext, 2)
	for ei := range ext {
		n := 0
		for _, isExt := range ext[ei] {
			if isExt {
				n++
			}
		}
		assert.Equal(t, 5, n, "element %d", ei)
	}
}

func TestMeshEmptyTopology(t *testing.T) {
	nodes := mat.NewVec3("nodes", 0, 1)
	ind := mat.NewIndex("hexes", 0, 8)
	ind.SetElemType("Hex1NL")
	ds := dataset.New("empty", nodes)
	ds.SetIndex("hexes", ind)

	mesh, err := Mesh(ds, "hexes", Options{Level: 2, ExternalOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, mesh.Nodes.Rows())
	assert.Equal(t, 0, mesh.Inds.Rows())
	assert.Equal(t, 0, mesh.Warnings)
}

func TestMeshUnknownTopology(t *testing.T) {
	ds := unitHex(t, 1)
	_, err := Mesh(ds, "nope", Options{})
	assert.Error(t, err)
}

func TestMeshDegenerateElementSkipped(t *testing.T) {
	ds := unitHex(t, 1)
	// Collapse every node of the hex onto the origin.
	for i := 0; i < ds.Nodes.Rows(); i++ {
		require.NoError(t, ds.Nodes.Set(i, 0, geom.Vec{}))
	}
	mesh, err := Mesh(ds, "hexes", Options{Level: 0, ExternalOnly: true, Procs: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, mesh.Inds.Rows())
	assert.Greater(t, mesh.Warnings, 0)
}

func TestMeshNodeXiRoundTrip(t *testing.T) {
	ds := unitHex(t, 1)
	mesh, err := Mesh(ds, "hexes", Options{Level: 1, ExternalOnly: true, Procs: 1})
	require.NoError(t, err)

	et, err := elem.Get("Hex1NL")
	require.NoError(t, err)
	elemNodes, err := gatherNodes(ds)
	require.NoError(t, err)

	for i := 0; i < mesh.Nodes.Rows(); i++ {
		p, _ := mesh.Nodes.At(i, 0)
		want, _ := elem.PointAt(et, elemNodes, mesh.NodeXi[i], nil)
		assert.InDelta(t, float64(want[0]), float64(p[0]), 1e-5)
		assert.InDelta(t, float64(want[1]), float64(p[1]), 1e-5)
		assert.InDelta(t, float64(want[2]), float64(p[2]), 1e-5)
	}
}

func TestMeshOctreePick(t *testing.T) {
	ds := unitHex(t, 1)
	mesh, err := Mesh(ds, "hexes", Options{Level: 1, ExternalOnly: true, Procs: 1})
	require.NoError(t, err)

	tree := mesh.Octree(geom.OctreeParams{})
	hits := tree.Pick(geom.Vec{0.5, 0.5, 5}, geom.Vec{0, 0, -1})
	require.NotEmpty(t, hits)
	// Nearest hit is the top face, the farthest the bottom.
	assert.InDelta(t, 4, hits[0].T, 1e-4)
	assert.InDelta(t, 5, hits[len(hits)-1].T, 1e-4)
}

func lineDataSet(t *testing.T) *dataset.DataSet {
	t.Helper()
	nodes := mat.NewVec3("nodes", 0, 1)
	require.NoError(t, nodes.Append(geom.Vec{0, 0, 0}))
	require.NoError(t, nodes.Append(geom.Vec{1, 0, 0}))
	require.NoError(t, nodes.Append(geom.Vec{2, 0, 0}))

	ind := mat.NewIndex("lines", 0, 2)
	ind.SetElemType("Line1NL")
	require.NoError(t, ind.Append(0, 1))
	require.NoError(t, ind.Append(1, 2))

	ds := dataset.New("polyline", nodes)
	ds.SetIndex("lines", ind)
	require.NoError(t, ds.Validate())
	return ds
}

func TestLines(t *testing.T) {
	ds := lineDataSet(t)
	lm, err := Lines(ds, "lines", Options{Level: 3, Procs: 1})
	require.NoError(t, err)

	// Two elements, 4 segments each; interior joint welded.
	assert.Equal(t, 8, lm.Inds.Rows())
	assert.Equal(t, 9, lm.Nodes.Rows())
	assert.Equal(t, 0, lm.Warnings)
}

func TestLinesRejectsSurfaces(t *testing.T) {
	ds := unitHex(t, 1)
	_, err := Lines(ds, "hexes", Options{})
	assert.Error(t, err)
}

func TestCylinders(t *testing.T) {
	ds := lineDataSet(t)
	lm, err := Lines(ds, "lines", Options{Level: 0, Procs: 1})
	require.NoError(t, err)
	require.Equal(t, 2, lm.Inds.Rows())

	cyl, err := Cylinders(lm, ConstantRadius(0.1), 8)
	require.NoError(t, err)
	// 8 sides, 2 rings per segment, 2 triangles per side.
	assert.Equal(t, 2*2*8, cyl.Nodes.Rows())
	assert.Equal(t, 2*2*8, cyl.Inds.Rows())

	// Tube nodes sit at the radius from the axis.
	for i := 0; i < cyl.Nodes.Rows(); i++ {
		p, _ := cyl.Nodes.At(i, 0)
		r := geom.Vec{0, p[1], p[2]}.Norm()
		assert.InDelta(t, 0.1, float64(r), 1e-5)
	}

	_, err = Cylinders(lm, ConstantRadius(0.1), 2)
	assert.Error(t, err)
}
