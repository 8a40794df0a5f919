package geom

// PointHash merges nearly coincident points. Points within tol of one
// another (per axis, via cell quantisation) map to a single index. The
// refiner uses this to weld the duplicate nodes produced along shared
// refined edges.
type PointHash struct {
	tol   float32
	cells map[[3]int32][]int32
	pts   []Vec
}

// NewPointHash creates a hash with the given merge tolerance. A zero or
// negative tolerance disables merging: every added point is unique.
func NewPointHash(tol float32) *PointHash {
	return &PointHash{
		tol:   tol,
		cells: make(map[[3]int32][]int32),
	}
}

func (h *PointHash) cellOf(v Vec) [3]int32 {
	return [3]int32{
		int32(v[0] / h.tol),
		int32(v[1] / h.tol),
		int32(v[2] / h.tol),
	}
}

// Add returns the index for v, either a previously added point within
// tolerance or a fresh index.
func (h *PointHash) Add(v Vec) (idx int32, merged bool) {
	if h.tol > 0 {
		c := h.cellOf(v)
		// Check the cell and its neighbours so points straddling a cell
		// boundary still merge.
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					key := [3]int32{c[0] + dx, c[1] + dy, c[2] + dz}
					for _, i := range h.cells[key] {
						d := h.pts[i].Sub(v)
						if d.Norm() <= h.tol {
							return i, true
						}
					}
				}
			}
		}
	}

	idx = int32(len(h.pts))
	h.pts = append(h.pts, v)
	if h.tol > 0 {
		c := h.cellOf(v)
		h.cells[c] = append(h.cells[c], idx)
	}
	return idx, false
}

// Len returns the number of unique points added so far.
func (h *PointHash) Len() int { return len(h.pts) }

// Points returns the unique points in insertion order. The returned slice is
// owned by the hash.
func (h *PointHash) Points() []Vec { return h.pts }
