package mat

// The four matrix kinds. Each is a thin wrapper over the generic table so
// that signatures stay concrete at API boundaries: a DataSet's nodes are a
// *Vec3Matrix, its topologies *IndexMatrix, and so on.

// RealMatrix holds float64 scalars: field values and image pixels.
type RealMatrix struct{ table[Real] }

// IndexMatrix holds int32 node indices. Its element type name lives in the
// MetaElemType metadata key.
type IndexMatrix struct{ table[Index] }

// Vec3Matrix holds 3-component float32 vectors: nodes and normals.
type Vec3Matrix struct{ table[Vec3] }

// ColMatrix holds RGBA colours.
type ColMatrix struct{ table[Col] }

func NewReal(name string, rows, cols int) *RealMatrix {
	return &RealMatrix{*newTable[Real](name, rows, cols)}
}

func NewIndex(name string, rows, cols int) *IndexMatrix {
	return &IndexMatrix{*newTable[Index](name, rows, cols)}
}

func NewVec3(name string, rows, cols int) *Vec3Matrix {
	return &Vec3Matrix{*newTable[Vec3](name, rows, cols)}
}

func NewCol(name string, rows, cols int) *ColMatrix {
	return &ColMatrix{*newTable[Col](name, rows, cols)}
}

// ElemType returns the element type name declared for an index matrix.
func (m *IndexMatrix) ElemType() string { return m.Meta(MetaElemType) }

// SetElemType declares the element type for an index matrix.
func (m *IndexMatrix) SetElemType(name string) { m.SetMeta(MetaElemType, name) }

// Sub returns a view of part of the matrix sharing the parent's storage.
func (m *RealMatrix) Sub(name string, ofsN, ofsM, n, cols int) (*RealMatrix, error) {
	t, err := m.subTable(name, ofsN, ofsM, n, cols)
	if err != nil {
		return nil, err
	}
	return &RealMatrix{*t}, nil
}

func (m *IndexMatrix) Sub(name string, ofsN, ofsM, n, cols int) (*IndexMatrix, error) {
	t, err := m.subTable(name, ofsN, ofsM, n, cols)
	if err != nil {
		return nil, err
	}
	return &IndexMatrix{*t}, nil
}

func (m *Vec3Matrix) Sub(name string, ofsN, ofsM, n, cols int) (*Vec3Matrix, error) {
	t, err := m.subTable(name, ofsN, ofsM, n, cols)
	if err != nil {
		return nil, err
	}
	return &Vec3Matrix{*t}, nil
}

func (m *ColMatrix) Sub(name string, ofsN, ofsM, n, cols int) (*ColMatrix, error) {
	t, err := m.subTable(name, ofsN, ofsM, n, cols)
	if err != nil {
		return nil, err
	}
	return &ColMatrix{*t}, nil
}

// Clone copies the matrix, metadata included, into fresh heap storage.
func (m *RealMatrix) Clone(name string) *RealMatrix {
	return &RealMatrix{*m.cloneTable(name)}
}

func (m *IndexMatrix) Clone(name string) *IndexMatrix {
	return &IndexMatrix{*m.cloneTable(name)}
}

func (m *Vec3Matrix) Clone(name string) *Vec3Matrix {
	return &Vec3Matrix{*m.cloneTable(name)}
}

func (m *ColMatrix) Clone(name string) *ColMatrix {
	return &ColMatrix{*m.cloneTable(name)}
}
