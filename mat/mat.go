/*package mat implements the typed two dimensional matrices that carry mesh
nodes, topology indices, field values, and image pixels through the rendering
core. A matrix may live on the heap or, after promotion with SetShared, in a
ref-counted shared memory region that worker processes can map.
*/
package mat

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/medview/medview/geom"
)

var (
	// ErrOutOfRange is returned for any access outside [0, rows) x [0, cols).
	ErrOutOfRange = errors.New("mat: index out of range")
	// ErrStorageLocked is returned when a matrix cannot change its backing
	// storage, either because sub-matrix handles exist or because it is
	// already shared.
	ErrStorageLocked = errors.New("mat: storage locked")
)

// Metadata keys with meaning to the rest of the core.
const (
	MetaElemType = "elemtype"
	MetaRole     = "role"
	MetaSpatial  = "spatial"
	MetaTopology = "topology"
	MetaTimeCopy = "timecopy"
	MetaPerElem  = "perelem"
)

// Real is the scalar element kind used for fields and image pixels.
type Real = float64

// Index is the element kind used for topology matrices.
type Index = int32

// Vec3 is the element kind used for node and normal matrices.
type Vec3 = geom.Vec

// Col is an RGBA colour with components in [0, 1].
type Col [4]float32

type storage[T any] struct {
	data []T
	shm  *Region
	// Count of handles besides the owner: sub-matrices and clones that share
	// this storage. While nonzero the backing may not move.
	foreign int
}

// table is the untyped core shared by the four matrix kinds.
type table[T any] struct {
	name         string
	rows, cols   int
	ofs, stride  int
	store        *storage[T]
	meta         map[string]string
	sub          bool
	elemSize     int
}

func newTable[T any](name string, rows, cols int) *table[T] {
	if cols < 1 {
		panic("mat: cols must be at least 1")
	}
	if rows < 0 {
		panic("mat: rows must be non-negative")
	}
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	return &table[T]{
		name:     name,
		rows:     rows,
		cols:     cols,
		stride:   cols,
		store:    &storage[T]{data: make([]T, rows*cols)},
		elemSize: elemSize,
	}
}

func (t *table[T]) Name() string        { return t.name }
func (t *table[T]) SetName(name string) { t.name = name }
func (t *table[T]) Rows() int           { return t.rows }
func (t *table[T]) Cols() int           { return t.cols }
func (t *table[T]) IsShared() bool      { return t.store.shm != nil }
func (t *table[T]) IsSub() bool         { return t.sub }

// Meta returns the metadata value for key, or "".
func (t *table[T]) Meta(key string) string { return t.meta[key] }

// SetMeta sets a metadata key.
func (t *table[T]) SetMeta(key, val string) {
	if t.meta == nil {
		t.meta = make(map[string]string)
	}
	t.meta[key] = val
}

// MetaMap returns a copy of all metadata.
func (t *table[T]) MetaMap() map[string]string {
	out := make(map[string]string, len(t.meta))
	for k, v := range t.meta {
		out[k] = v
	}
	return out
}

func (t *table[T]) idx(i, j int) (int, error) {
	if i < 0 || i >= t.rows || j < 0 || j >= t.cols {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d matrix %q",
			ErrOutOfRange, i, j, t.rows, t.cols, t.name)
	}
	return t.ofs + i*t.stride + j, nil
}

// At returns the element at (i, j).
func (t *table[T]) At(i, j int) (T, error) {
	var zero T
	n, err := t.idx(i, j)
	if err != nil {
		return zero, err
	}
	return t.store.data[n], nil
}

// Set writes the element at (i, j).
func (t *table[T]) Set(i, j int, v T) error {
	n, err := t.idx(i, j)
	if err != nil {
		return err
	}
	t.store.data[n] = v
	return nil
}

// Row returns row i as a slice aliasing the matrix storage.
func (t *table[T]) Row(i int) ([]T, error) {
	n, err := t.idx(i, 0)
	if err != nil {
		return nil, err
	}
	return t.store.data[n : n+t.cols : n+t.cols], nil
}

// SetRow copies vals into row i. len(vals) must equal Cols.
func (t *table[T]) SetRow(i int, vals ...T) error {
	if len(vals) != t.cols {
		return fmt.Errorf("%w: SetRow given %d values for %d columns",
			ErrOutOfRange, len(vals), t.cols)
	}
	row, err := t.Row(i)
	if err != nil {
		return err
	}
	copy(row, vals)
	return nil
}

// Append adds a row at index Rows(), growing the matrix by one.
func (t *table[T]) Append(vals ...T) error {
	if len(vals) != t.cols {
		return fmt.Errorf("%w: Append given %d values for %d columns",
			ErrOutOfRange, len(vals), t.cols)
	}
	if err := t.Resize(t.rows + 1); err != nil {
		return err
	}
	return t.SetRow(t.rows-1, vals...)
}

// Resize changes the row count. Sub-matrices cannot be resized. A shared
// matrix can grow only within the capacity it was promoted with.
func (t *table[T]) Resize(newRows int) error {
	if t.sub {
		return fmt.Errorf("%w: cannot resize sub-matrix %q", ErrStorageLocked, t.name)
	}
	if newRows < 0 {
		return fmt.Errorf("%w: resize to %d rows", ErrOutOfRange, newRows)
	}
	need := newRows * t.stride
	if need <= cap(t.store.data) {
		old := len(t.store.data)
		t.store.data = t.store.data[:need]
		for i := old; i < need; i++ {
			var zero T
			t.store.data[i] = zero
		}
		t.rows = newRows
		return nil
	}
	if t.store.shm != nil {
		return fmt.Errorf("%w: shared matrix %q cannot grow past its mapping",
			ErrStorageLocked, t.name)
	}
	if t.store.foreign > 0 {
		return fmt.Errorf("%w: %d outstanding handles on %q",
			ErrStorageLocked, t.store.foreign, t.name)
	}
	grown := make([]T, need, need*2)
	copy(grown, t.store.data)
	t.store.data = grown
	t.rows = newRows
	return nil
}

// sub creates a view of the region (ofsN, ofsM) to (ofsN+n, ofsM+m) sharing
// storage with t. Sub-matrices must not outlive their parent.
func (t *table[T]) subTable(name string, ofsN, ofsM, n, m int) (*table[T], error) {
	if ofsN < 0 || ofsM < 0 || n < 0 || m < 1 ||
		ofsN+n > t.rows || ofsM+m > t.cols {
		return nil, fmt.Errorf("%w: sub (%d,%d)+(%d,%d) of %dx%d matrix %q",
			ErrOutOfRange, ofsN, ofsM, n, m, t.rows, t.cols, t.name)
	}
	t.store.foreign++
	return &table[T]{
		name:     name,
		rows:     n,
		cols:     m,
		ofs:      t.ofs + ofsN*t.stride + ofsM,
		stride:   t.stride,
		store:    t.store,
		sub:      true,
		elemSize: t.elemSize,
	}, nil
}

// cloneTable copies the matrix into fresh heap storage with its own header.
func (t *table[T]) cloneTable(name string) *table[T] {
	out := newTable[T](name, t.rows, t.cols)
	for i := 0; i < t.rows; i++ {
		src, _ := t.Row(i)
		dst, _ := out.Row(i)
		copy(dst, src)
	}
	for k, v := range t.meta {
		out.SetMeta(k, v)
	}
	return out
}

// Release drops a sub-matrix handle, unlocking the parent when the last
// handle goes, and unmaps shared storage for owning matrices.
func (t *table[T]) Release() {
	if t.sub {
		if t.store.foreign > 0 {
			t.store.foreign--
		}
		t.store = nil
		return
	}
	if t.store.shm != nil {
		t.store.shm.Release()
		t.store.shm = nil
		t.store.data = nil
	}
}
