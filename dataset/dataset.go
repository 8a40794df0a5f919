/*package dataset defines the in-memory data model produced by loader
plugins and consumed by the refinement and rendering pipeline: a DataSet of
nodes, topologies, and fields, and the mesh and image scene object variants
built from them.
*/
package dataset

import (
	"errors"
	"fmt"

	"github.com/medview/medview/elem"
	"github.com/medview/medview/mat"
)

var (
	// ErrFieldTopologyMissing is returned by Validate when a field names a
	// topology that neither the DataSet nor its parent holds.
	ErrFieldTopologyMissing = errors.New("dataset: field topology missing")
	// ErrIndexOutOfRange is returned when a topology references a node
	// beyond the node matrix.
	ErrIndexOutOfRange = errors.New("dataset: node index out of range")
	// ErrRowCountMismatch is returned when a field's row count matches
	// neither the node count nor its topology's element count.
	ErrRowCountMismatch = errors.New("dataset: row count mismatch")
)

// IndexRole distinguishes geometry-defining topologies from the alternative
// connectivities that fields with a different basis interpolate over.
type IndexRole string

const (
	RoleSpatial       IndexRole = "spatial"
	RoleFieldTopology IndexRole = "fieldtopology"
)

// DataSet aggregates one node matrix with named topology and field matrices.
// Index matrices carry their element type and role in matrix metadata; field
// matrices carry their topology, spatial index, and per-element flag the
// same way.
type DataSet struct {
	Name   string
	Nodes  *mat.Vec3Matrix
	Parent *DataSet

	indexNames []string
	indices    map[string]*mat.IndexMatrix
	fieldNames []string
	fields     map[string]*mat.RealMatrix
}

// New creates a DataSet around a node matrix.
func New(name string, nodes *mat.Vec3Matrix) *DataSet {
	return &DataSet{
		Name:    name,
		Nodes:   nodes,
		indices: map[string]*mat.IndexMatrix{},
		fields:  map[string]*mat.RealMatrix{},
	}
}

// SetIndex adds or replaces a topology matrix.
func (ds *DataSet) SetIndex(name string, m *mat.IndexMatrix) {
	if _, ok := ds.indices[name]; !ok {
		ds.indexNames = append(ds.indexNames, name)
	}
	ds.indices[name] = m
}

// SetField adds or replaces a field matrix.
func (ds *DataSet) SetField(name string, m *mat.RealMatrix) {
	if _, ok := ds.fields[name]; !ok {
		ds.fieldNames = append(ds.fieldNames, name)
	}
	ds.fields[name] = m
}

// Index returns the named topology, searching the parent if not found here.
func (ds *DataSet) Index(name string) (*mat.IndexMatrix, bool) {
	if m, ok := ds.indices[name]; ok {
		return m, true
	}
	if ds.Parent != nil {
		return ds.Parent.Index(name)
	}
	return nil, false
}

// Field returns the named field.
func (ds *DataSet) Field(name string) (*mat.RealMatrix, bool) {
	m, ok := ds.fields[name]
	return m, ok
}

// IndexNames returns topology names in insertion order.
func (ds *DataSet) IndexNames() []string { return append([]string(nil), ds.indexNames...) }

// FieldNames returns field names in insertion order.
func (ds *DataSet) FieldNames() []string { return append([]string(nil), ds.fieldNames...) }

// SpatialIndices returns the names of the topologies that define geometry.
func (ds *DataSet) SpatialIndices() []string {
	var out []string
	for _, name := range ds.indexNames {
		if IndexRole(ds.indices[name].Meta(mat.MetaRole)) != RoleFieldTopology {
			out = append(out, name)
		}
	}
	return out
}

// Validate checks the cross-references of the DataSet: every field's
// topology exists, row counts are consistent, spatial indices reference
// legal nodes, and index matrices declare a known element type whose node
// count matches their width.
func (ds *DataSet) Validate() error {
	nodeCount := 0
	if ds.Nodes != nil {
		nodeCount = ds.Nodes.Rows()
	}

	for _, name := range ds.indexNames {
		ind := ds.indices[name]

		etName := ind.ElemType()
		et, err := elem.Get(etName)
		if err != nil {
			return fmt.Errorf("topology %q of %q: %w", name, ds.Name, err)
		}
		if et.NumNodes() != ind.Cols() {
			return fmt.Errorf("%w: topology %q is %s but has %d columns",
				ErrRowCountMismatch, name, etName, ind.Cols())
		}

		for i := 0; i < ind.Rows(); i++ {
			row, err := ind.Row(i)
			if err != nil {
				return err
			}
			for _, n := range row {
				if int(n) < 0 || int(n) >= nodeCount {
					return fmt.Errorf("%w: topology %q row %d references node %d of %d",
						ErrIndexOutOfRange, name, i, n, nodeCount)
				}
			}
		}
	}

	for _, name := range ds.fieldNames {
		f := ds.fields[name]

		topName := f.Meta(mat.MetaTopology)
		if topName == "" {
			// Plain nodal field over the spatial topology.
			if f.Rows() != nodeCount {
				return fmt.Errorf("%w: field %q has %d rows for %d nodes",
					ErrRowCountMismatch, name, f.Rows(), nodeCount)
			}
			continue
		}

		top, ok := ds.Index(topName)
		if !ok {
			return fmt.Errorf("%w: field %q wants topology %q",
				ErrFieldTopologyMissing, name, topName)
		}

		perElem := f.Meta(mat.MetaPerElem) == "true"
		if perElem {
			if f.Rows() != top.Rows() {
				return fmt.Errorf("%w: per-element field %q has %d rows for %d elements",
					ErrRowCountMismatch, name, f.Rows(), top.Rows())
			}
		} else if f.Rows() != nodeCount && f.Rows() != topologyNodeCount(top) {
			return fmt.Errorf("%w: field %q has %d rows (nodes %d)",
				ErrRowCountMismatch, name, f.Rows(), nodeCount)
		}
	}

	return nil
}

// topologyNodeCount returns the number of distinct field nodes a
// field-topology addresses: one more than its largest index.
func topologyNodeCount(top *mat.IndexMatrix) int {
	max := mat.Index(-1)
	for i := 0; i < top.Rows(); i++ {
		row, _ := top.Row(i)
		for _, n := range row {
			if n > max {
				max = n
			}
		}
	}
	return int(max) + 1
}
