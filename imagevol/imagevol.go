/*package imagevol organises oriented 2D image planes into stacks, volumes,
and time series, and converts between image lists and dense pixel arrays.
*/
package imagevol

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/medview/medview/dataset"
	"github.com/medview/medview/geom"
)

// DefaultEps is the tolerance used for colinearity and orientation checks
// when the caller passes 0.
const DefaultEps = 1e-5

// IsVolume reports whether the images form a single 3D volume: all share
// one orientation and their positions lie on a common line.
func IsVolume(images []*dataset.SharedImage, eps float64) bool {
	if len(images) == 0 {
		return false
	}
	if eps <= 0 {
		eps = DefaultEps
	}

	first := images[0]
	for _, im := range images[1:] {
		if !first.Orient.Equal(im.Orient, eps) {
			return false
		}
	}
	if len(images) < 3 {
		return true
	}

	// Colinearity: every position offset is parallel to the first
	// non-zero offset.
	var axis geom.Vec
	for _, im := range images[1:] {
		d := im.Pos.Sub(first.Pos)
		if d.Norm() > float32(eps) {
			axis = d.Unit()
			break
		}
	}
	if axis.Norm() == 0 {
		return true
	}
	for _, im := range images[1:] {
		d := im.Pos.Sub(first.Pos)
		if d.Norm() <= float32(eps) {
			continue
		}
		if d.Cross(axis).Norm() > float32(eps)*d.Norm() {
			return false
		}
	}
	return true
}

// SortStack orders a volume's images bottom-up along the shared plane
// normal. Sorting is stable, so an already sorted stack is unchanged.
func SortStack(images []*dataset.SharedImage) {
	if len(images) < 2 {
		return
	}
	n := images[0].Normal()
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Pos.Dot(n) < images[j].Pos.Dot(n)
	})
}

// orientKey quantises a plane pose for grouping. Double-cover of the
// rotation quaternion is folded by sign-normalising on w.
type orientKey struct {
	px, py, pz int64
	qw, qx, qy, qz int64
}

func poseKey(im *dataset.SharedImage, eps float64) orientKey {
	q := func(v float64) int64 { return int64(math32.Round(float32(v / eps))) }
	w, x, y, z := im.Orient.Quat()
	if w < 0 {
		w, x, y, z = -w, -x, -y, -z
	}
	return orientKey{
		q(float64(im.Pos[0])), q(float64(im.Pos[1])), q(float64(im.Pos[2])),
		q(w), q(x), q(y), q(z),
	}
}

// TimeOrientMap groups an object's images by plane pose. Each group is
// ordered by timestep: one group per physical slice location, holding that
// slice at every time.
func TimeOrientMap(obj *dataset.ImageSceneObject) [][]int {
	groups := map[orientKey][]int{}
	var order []orientKey
	for i, im := range obj.Images {
		k := poseKey(im, DefaultEps)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := make([][]int, 0, len(order))
	for _, k := range order {
		idx := groups[k]
		sort.Slice(idx, func(a, b int) bool {
			return obj.Images[idx[a]].Timestep < obj.Images[idx[b]].Timestep
		})
		out = append(out, idx)
	}
	return out
}

// VolumeStacks returns, per timestep, the bottom-up image index list
// forming that timestep's volume.
func VolumeStacks(obj *dataset.ImageSceneObject) map[float64][]int {
	byTime := map[float64][]int{}
	for i, im := range obj.Images {
		byTime[im.Timestep] = append(byTime[im.Timestep], i)
	}

	for ts, idx := range byTime {
		if len(idx) < 2 {
			continue
		}
		n := obj.Images[idx[0]].Normal()
		sort.SliceStable(idx, func(a, b int) bool {
			return obj.Images[idx[a]].Pos.Dot(n) < obj.Images[idx[b]].Pos.Dot(n)
		})
		byTime[ts] = idx
	}
	return byTime
}

// Array is a dense (cols, rows, depth, time) pixel array together with the
// pose of the first slice. Data is indexed time-major:
// data[((t*depth + z)*rows + y)*cols + x].
type Array struct {
	Cols, Rows, Depth, Time int

	Pos    geom.Vec
	Orient geom.Rotator
	Sx, Sy float32
	// Sz is the spacing between slice planes along the normal.
	Sz float32

	Times []float64
	Data  []float64
}

func (a *Array) index(x, y, z, t int) int {
	return ((t*a.Depth+z)*a.Rows+y)*a.Cols + x
}

// At reads the pixel at (x, y) of slice z at timestep index t.
func (a *Array) At(x, y, z, t int) float64 { return a.Data[a.index(x, y, z, t)] }

// Set writes the pixel at (x, y) of slice z at timestep index t.
func (a *Array) Set(x, y, z, t int, v float64) { a.Data[a.index(x, y, z, t)] = v }

// ArrayFromImages packs an image object into a dense array. The images
// must form a volume (or time series of identical volumes).
func ArrayFromImages(obj *dataset.ImageSceneObject) (*Array, error) {
	if len(obj.Images) == 0 {
		return nil, fmt.Errorf("imagevol: object %q has no images", obj.Name)
	}
	stacks := VolumeStacks(obj)
	times := obj.Timesteps()

	first := obj.Images[stacks[times[0]][0]]
	depth := len(stacks[times[0]])
	for _, ts := range times {
		if len(stacks[ts]) != depth {
			return nil, fmt.Errorf("imagevol: object %q has %d slices at t=%g, %d at t=%g",
				obj.Name, len(stacks[ts]), ts, depth, times[0])
		}
	}

	a := &Array{
		Cols: first.Cols, Rows: first.Rows,
		Depth: depth, Time: len(times),
		Pos: first.Pos, Orient: first.Orient,
		Sx: first.Sx, Sy: first.Sy,
		Times: times,
		Data:  make([]float64, first.Cols*first.Rows*depth*len(times)),
	}
	if depth > 1 {
		second := obj.Images[stacks[times[0]][1]]
		a.Sz = second.Pos.Sub(first.Pos).Dot(first.Normal())
	}

	for ti, ts := range times {
		for z, ii := range stacks[ts] {
			im := obj.Images[ii]
			if im.Cols != a.Cols || im.Rows != a.Rows {
				return nil, fmt.Errorf("imagevol: object %q slice %d is %dx%d, expected %dx%d",
					obj.Name, ii, im.Cols, im.Rows, a.Cols, a.Rows)
			}
			for y := 0; y < a.Rows; y++ {
				row, err := im.Img.Row(y)
				if err != nil {
					return nil, err
				}
				copy(a.Data[a.index(0, y, z, ti):a.index(0, y, z, ti)+a.Cols], row)
			}
		}
	}
	return a, nil
}

// ImagesFromArray unpacks a dense array into an image object, one shared
// pixel matrix per slice, in row-major YX order.
func ImagesFromArray(name string, a *Array) (*dataset.ImageSceneObject, error) {
	if a.Cols < 1 || a.Rows < 1 || a.Depth < 1 || a.Time < 1 {
		return nil, fmt.Errorf("imagevol: array %q has empty extent", name)
	}
	if len(a.Data) != a.Cols*a.Rows*a.Depth*a.Time {
		return nil, fmt.Errorf("imagevol: array %q data length %d does not match extents",
			name, len(a.Data))
	}

	normal := a.Orient.Rotate(geom.Vec{0, 0, 1})
	obj := &dataset.ImageSceneObject{Name: name}

	for ti := 0; ti < a.Time; ti++ {
		ts := float64(ti)
		if ti < len(a.Times) {
			ts = a.Times[ti]
		}
		for z := 0; z < a.Depth; z++ {
			pos := a.Pos.Add(normal.Scale(float32(z) * a.Sz))
			im := dataset.NewSharedImage(
				fmt.Sprintf("%s[t=%g,z=%d]", name, ts, z),
				pos, a.Orient, a.Cols, a.Rows, a.Sx, a.Sy, ts)
			for y := 0; y < a.Rows; y++ {
				if err := im.Img.SetRow(y, a.Data[a.index(0, y, z, ti):a.index(0, y, z, ti)+a.Cols]...); err != nil {
					return nil, err
				}
			}
			obj.Images = append(obj.Images, im)
		}
	}
	return obj, nil
}

// VolumeTransform returns the world transform of a sorted image stack: the
// pose of the bottom slice with scale covering the full extent. With
// make2D set (a single-slice volume rendered as a thin slab) the thickness
// is twice the larger in-plane spacing.
func VolumeTransform(images []*dataset.SharedImage, make2D bool) (geom.Transform, error) {
	if len(images) == 0 {
		return geom.Transform{}, fmt.Errorf("imagevol: empty stack")
	}
	first := images[0]

	var depth float32
	switch {
	case make2D || len(images) == 1:
		depth = 2 * math32.Max(math32.Abs(first.Sx), math32.Abs(first.Sy))
	default:
		last := images[len(images)-1]
		span := last.Pos.Sub(first.Pos).Dot(first.Normal())
		// One slice spacing past the last plane.
		depth = span * float32(len(images)) / float32(len(images)-1)
	}

	return geom.Transform{
		Pos: first.Pos,
		Scale: geom.Vec{
			float32(first.Cols) * first.Sx,
			float32(first.Rows) * first.Sy,
			depth,
		},
		Rot: first.Orient,
	}, nil
}

// InformativeBounds is the inclusive pixel sub-rectangle of one slice whose
// values exceed a threshold; Empty marks a fully uninformative slice.
type InformativeBounds struct {
	X0, Y0, X1, Y1 int
	Empty          bool
}

// SliceBounds scans one image for its informative sub-rectangle.
func SliceBounds(im *dataset.SharedImage, threshold float64) (InformativeBounds, error) {
	b := InformativeBounds{X0: im.Cols, Y0: im.Rows, X1: -1, Y1: -1}
	for y := 0; y < im.Rows; y++ {
		row, err := im.Img.Row(y)
		if err != nil {
			return b, err
		}
		for x, v := range row {
			if v <= threshold {
				continue
			}
			if x < b.X0 {
				b.X0 = x
			}
			if x > b.X1 {
				b.X1 = x
			}
			if y < b.Y0 {
				b.Y0 = y
			}
			if y > b.Y1 {
				b.Y1 = y
			}
		}
	}
	b.Empty = b.X1 < 0
	return b, nil
}

// Union merges two informative bounds.
func (b InformativeBounds) Union(o InformativeBounds) InformativeBounds {
	if b.Empty {
		return o
	}
	if o.Empty {
		return b
	}
	out := b
	if o.X0 < out.X0 {
		out.X0 = o.X0
	}
	if o.Y0 < out.Y0 {
		out.Y0 = o.Y0
	}
	if o.X1 > out.X1 {
		out.X1 = o.X1
	}
	if o.Y1 > out.Y1 {
		out.Y1 = o.Y1
	}
	return out
}

// PromoteShared moves every pixel matrix of a stack into shared memory,
// the caller's obligation before a parallel texture fill.
func PromoteShared(images []*dataset.SharedImage) error {
	for _, im := range images {
		if err := im.Img.SetShared(true); err != nil {
			return err
		}
	}
	return nil
}
