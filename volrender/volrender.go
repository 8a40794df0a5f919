/*package volrender fills texture pixel buffers from image stacks and
assembles the view-aligned plane slab a volume figure renders with.
*/
package volrender

import (
	"fmt"
	"math"

	"github.com/medview/medview/color"
	"github.com/medview/medview/dataset"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/imagevol"
	"github.com/medview/medview/parallel"
)

// TexFormat selects the texel layout of a filled buffer.
type TexFormat int

const (
	// TexRGBA32 is 4 bytes per texel: red, green, blue, alpha.
	TexRGBA32 TexFormat = iota
	// TexLumAlpha8 is 2 bytes per texel: luminance, alpha.
	TexLumAlpha8
	// TexLum8 is 1 byte per texel.
	TexLum8
)

func (f TexFormat) BytesPerTexel() int {
	switch f {
	case TexRGBA32:
		return 4
	case TexLumAlpha8:
		return 2
	default:
		return 1
	}
}

// Texture is a CPU-side texel buffer handed to the scene backend. Depth 1
// marks a 2D texture.
type Texture struct {
	Name   string
	Width  int
	Height int
	Depth  int
	Format TexFormat
	Data   []byte
}

// Plane slab sizing.
const (
	DefaultSlabPlanes = 600
	MinSlabPlanes     = 100
	MaxSlabPlanes     = 5000
)

// ClampSlabPlanes maps a requested plane count into the supported range;
// zero or negative requests take the default.
func ClampSlabPlanes(n int) int {
	switch {
	case n <= 0:
		return DefaultSlabPlanes
	case n < MinSlabPlanes:
		return MinSlabPlanes
	case n > MaxSlabPlanes:
		return MaxSlabPlanes
	}
	return n
}

// ImageRange returns the min and max pixel values across a stack. Equal
// values widen to a unit range around the value so normalisation stays
// defined.
func ImageRange(images []*dataset.SharedImage) (min, max float64, err error) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, im := range images {
		for y := 0; y < im.Rows; y++ {
			row, err := im.Img.Row(y)
			if err != nil {
				return 0, 0, err
			}
			for _, v := range row {
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
		}
	}
	if math.IsInf(min, 1) {
		return 0, 1, nil
	}
	if min == max {
		return min, min + 1, nil
	}
	return min, max, nil
}

// unitPixel is the bit-exact pixel normalisation shared by every fill:
// clamp((v - min) / (max - min), 0, 1).
func unitPixel(v, min, max float64) float64 {
	if max == min {
		return 0
	}
	u := (v - min) / (max - min)
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

func b8(u float64) byte { return byte(u*255 + 0.5) }

// FillOpts controls how pixel values become texels.
type FillOpts struct {
	// Min and Max span the pixel value range mapped onto [0, 1].
	Min, Max float64
	Format   TexFormat
	// Material supplies the spectrum or direct colour multiplier; nil
	// writes plain intensity.
	Material *color.Material
	// AlphaMask, when non-nil, gives the per-pixel alpha unit value in
	// place of the intensity.
	AlphaMask *dataset.SharedImage
}

// texel writes the texel for unit value u (and alpha unit ua) at offset o.
func (opt *FillOpts) texel(data []byte, o int, u, ua float64) {
	m := opt.Material
	useSpec := m != nil && m.Spectrum != nil

	switch opt.Format {
	case TexRGBA32:
		var r, g, b float64
		a := ua
		switch {
		case useSpec:
			c := m.Spectrum.At(u)
			r, g, b = u*float64(c[0]), u*float64(c[1]), u*float64(c[2])
			if m.SpectrumOnGPU {
				// The shader resamples; keep the raw intensity.
				r, g, b = u, u, u
			}
			a = ua * m.Spectrum.AlphaAt(u)
		case m != nil:
			r = u * float64(m.Diffuse[0])
			g = u * float64(m.Diffuse[1])
			b = u * float64(m.Diffuse[2])
			a = ua * float64(m.Alpha)
		default:
			r, g, b = u, u, u
		}
		data[o], data[o+1], data[o+2], data[o+3] = b8(r), b8(g), b8(b), b8(a)
	case TexLumAlpha8:
		a := ua
		if useSpec {
			a = ua * m.Spectrum.AlphaAt(u)
		}
		data[o], data[o+1] = b8(u), b8(a)
	default:
		data[o] = b8(u)
	}
}

// FillStackTexture fills a 2D texture from one image plane. The texel at
// (x, y) corresponds to pixel (x, y) of the image.
func FillStackTexture(name string, im *dataset.SharedImage, opt FillOpts) (*Texture, error) {
	tex := &Texture{
		Name:   name,
		Width:  im.Cols,
		Height: im.Rows,
		Depth:  1,
		Format: opt.Format,
		Data:   make([]byte, im.Cols*im.Rows*opt.Format.BytesPerTexel()),
	}
	if err := fillSlice(tex, 0, im, imagevol.InformativeBounds{
		X0: 0, Y0: 0, X1: im.Cols - 1, Y1: im.Rows - 1,
	}, opt); err != nil {
		return nil, err
	}
	return tex, nil
}

func fillSlice(tex *Texture, z int, im *dataset.SharedImage,
	b imagevol.InformativeBounds, opt FillOpts) error {

	bpt := tex.Format.BytesPerTexel()
	var maskRow []float64
	for y := b.Y0; y <= b.Y1; y++ {
		row, err := im.Img.Row(y)
		if err != nil {
			return err
		}
		if opt.AlphaMask != nil {
			maskRow, err = opt.AlphaMask.Img.Row(y)
			if err != nil {
				return err
			}
		}
		for x := b.X0; x <= b.X1; x++ {
			u := unitPixel(row[x], opt.Min, opt.Max)
			ua := u
			if maskRow != nil {
				ua = unitPixel(maskRow[x], opt.Min, opt.Max)
			}
			o := ((z*tex.Height+(y-b.Y0))*tex.Width + (x - b.X0)) * bpt
			opt.texel(tex.Data, o, u, ua)
		}
	}
	return nil
}

// VolumeOpts controls the 3D texture assembly.
type VolumeOpts struct {
	Fill FillOpts
	// Threshold bounds the informative-pixel scan; pixels at or below it
	// do not grow the texture rectangle.
	Threshold float64
	Procs     int
	Task      parallel.Task
}

// BuildVolumeTexture assembles a 3D texture from a bottom-up image stack,
// cropped to the union of per-slice informative bounds. The texel at
// (x, y, z) corresponds to pixel (x + bounds.X0, y + bounds.Y0) of the
// z-th image. A stack with no informative pixels yields a nil texture.
func BuildVolumeTexture(name string, images []*dataset.SharedImage,
	opt VolumeOpts) (*Texture, imagevol.InformativeBounds, error) {

	empty := imagevol.InformativeBounds{Empty: true}
	if len(images) == 0 {
		return nil, empty, fmt.Errorf("volrender: empty image stack")
	}

	// Per-slice informative scan, reduced across workers.
	sliceBounds := make([]imagevol.InformativeBounds, len(images))
	results := parallel.RunRanged(len(images), opt.Procs, opt.Task,
		func(worker int, rows parallel.Range) error {
			for i := rows.Start; i < rows.End; i++ {
				if opt.Task != nil && opt.Task.Cancelled() {
					return parallel.ErrCancelled
				}
				b, err := imagevol.SliceBounds(images[i], opt.Threshold)
				if err != nil {
					return err
				}
				sliceBounds[i] = b
			}
			return nil
		})
	if err := parallel.CheckResultMap(results); err != nil {
		return nil, empty, err
	}

	bounds := empty
	for _, b := range sliceBounds {
		bounds = bounds.Union(b)
	}
	if bounds.Empty {
		return nil, bounds, nil
	}

	w := bounds.X1 - bounds.X0 + 1
	h := bounds.Y1 - bounds.Y0 + 1
	tex := &Texture{
		Name:   name,
		Width:  w,
		Height: h,
		Depth:  len(images),
		Format: opt.Fill.Format,
		Data:   make([]byte, w*h*len(images)*opt.Fill.Format.BytesPerTexel()),
	}

	fillResults := parallel.RunRanged(len(images), opt.Procs, opt.Task,
		func(worker int, rows parallel.Range) error {
			for z := rows.Start; z < rows.End; z++ {
				if opt.Task != nil && opt.Task.Cancelled() {
					return parallel.ErrCancelled
				}
				if err := fillSlice(tex, z, images[z], bounds, opt.Fill); err != nil {
					return err
				}
			}
			return nil
		})
	if err := parallel.CheckResultMap(fillResults); err != nil {
		return nil, bounds, err
	}
	return tex, bounds, nil
}

// SlabPlanes returns n view-aligned planes spanning the bounding box along
// the view direction, back to front.
func SlabPlanes(bounds geom.Box, viewDir geom.Vec, n int) []geom.Plane {
	n = ClampSlabPlanes(n)
	if viewDir.Norm() == 0 || bounds.Empty() {
		return nil
	}
	dir := viewDir.Unit()

	// Project the box corners to find the slab extent.
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	for i := 0; i < 8; i++ {
		c := bounds.Min
		if i&1 != 0 {
			c[0] = bounds.Max[0]
		}
		if i&2 != 0 {
			c[1] = bounds.Max[1]
		}
		if i&4 != 0 {
			c[2] = bounds.Max[2]
		}
		d := c.Dot(dir)
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}

	planes := make([]geom.Plane, n)
	for i := 0; i < n; i++ {
		f := (float32(i) + 0.5) / float32(n)
		d := hi - (hi-lo)*f
		planes[i] = geom.Plane{
			Point:  dir.Scale(d),
			Normal: dir,
		}
	}
	return planes
}
