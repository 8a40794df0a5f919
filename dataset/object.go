package dataset

import (
	"fmt"
	"sort"

	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
)

// TimeScheme describes the timesteps of a time-dependent object. Times are
// in milliseconds throughout the core; loaders convert at ingress. Either
// Explicit is set, or (Start, Step) describe a uniform scheme.
type TimeScheme struct {
	Start, Step float64
	Explicit    []float64
}

// Times materialises n timestep values.
func (ts TimeScheme) Times(n int) []float64 {
	if ts.Explicit != nil {
		return append([]float64(nil), ts.Explicit...)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = ts.Start + float64(i)*ts.Step
	}
	return out
}

// SceneObject is a loaded dataset as the Repr layer sees it: a name and a
// timestep list. The two variants are MeshSceneObject and ImageSceneObject.
type SceneObject interface {
	ObjName() string
	Timesteps() []float64
}

// MeshSceneObject is an ordered list of DataSets, one per timestep. A static
// mesh has a single DataSet.
type MeshSceneObject struct {
	Name     string
	DataSets []*DataSet
	Scheme   TimeScheme
}

func (o *MeshSceneObject) ObjName() string { return o.Name }

func (o *MeshSceneObject) Timesteps() []float64 {
	return o.Scheme.Times(len(o.DataSets))
}

// Validate checks every DataSet and, for time series, that all timesteps
// share topology names and element types.
func (o *MeshSceneObject) Validate() error {
	for _, ds := range o.DataSets {
		if err := ds.Validate(); err != nil {
			return err
		}
	}
	if len(o.DataSets) < 2 {
		return nil
	}

	first := o.DataSets[0]
	for ti, ds := range o.DataSets[1:] {
		names := ds.IndexNames()
		firstNames := first.IndexNames()
		if len(names) != len(firstNames) {
			return fmt.Errorf("mesh %q: timestep %d has %d topologies, first has %d",
				o.Name, ti+1, len(names), len(firstNames))
		}
		for _, name := range firstNames {
			a, _ := first.Index(name)
			b, ok := ds.Index(name)
			if !ok {
				return fmt.Errorf("mesh %q: timestep %d lacks topology %q",
					o.Name, ti+1, name)
			}
			if a.ElemType() != b.ElemType() {
				return fmt.Errorf("mesh %q: topology %q changes type %s -> %s at timestep %d",
					o.Name, name, a.ElemType(), b.ElemType(), ti+1)
			}
		}
	}
	return nil
}

// SharedImage is one oriented 2D image plane. Pixel values live in a
// rows x cols real matrix in row-major YX order; the matrix is promoted to
// shared memory before parallel texture fills.
type SharedImage struct {
	Pos      geom.Vec
	Orient   geom.Rotator
	Cols     int
	Rows     int
	Sx, Sy   float32
	Timestep float64
	Img      *mat.RealMatrix
}

// NewSharedImage allocates an image plane with a zero pixel matrix.
func NewSharedImage(name string, pos geom.Vec, orient geom.Rotator,
	cols, rows int, sx, sy float32, timestep float64) *SharedImage {

	return &SharedImage{
		Pos: pos, Orient: orient,
		Cols: cols, Rows: rows,
		Sx: sx, Sy: sy,
		Timestep: timestep,
		Img:      mat.NewReal(name, rows, cols),
	}
}

// Normal returns the plane normal: the image's local +Z axis.
func (im *SharedImage) Normal() geom.Vec {
	return im.Orient.Rotate(geom.Vec{0, 0, 1})
}

// Center returns the world-space centre of the image rectangle. Pos is the
// minimum corner of the plane.
func (im *SharedImage) Center() geom.Vec {
	half := geom.Vec{
		float32(im.Cols) * im.Sx / 2,
		float32(im.Rows) * im.Sy / 2,
		0,
	}
	return im.Pos.Add(im.Orient.Rotate(half))
}

// Corners returns the four world-space corners of the image rectangle in
// quad tensor order.
func (im *SharedImage) Corners() [4]geom.Vec {
	w := float32(im.Cols) * im.Sx
	h := float32(im.Rows) * im.Sy
	local := [4]geom.Vec{{0, 0, 0}, {w, 0, 0}, {0, h, 0}, {w, h, 0}}
	var out [4]geom.Vec
	for i, l := range local {
		out[i] = im.Pos.Add(im.Orient.Rotate(l))
	}
	return out
}

// Clone copies the image, pixel matrix included.
func (im *SharedImage) Clone(name string) *SharedImage {
	out := *im
	out.Img = im.Img.Clone(name)
	return &out
}

// ImageSceneObject is a set of image planes: a single slice, a stack, a
// volume, or a time series of any of those.
type ImageSceneObject struct {
	Name   string
	Images []*SharedImage
}

func (o *ImageSceneObject) ObjName() string { return o.Name }

// Timesteps returns the sorted distinct timesteps of the images.
func (o *ImageSceneObject) Timesteps() []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, im := range o.Images {
		if !seen[im.Timestep] {
			seen[im.Timestep] = true
			out = append(out, im.Timestep)
		}
	}
	sort.Float64s(out)
	return out
}
