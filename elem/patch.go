package elem

import (
	"github.com/medview/medview/geom"
)

// PatchTri is one triangle of a refined reference patch, in the local (u, v)
// coordinates of the patch.
type PatchTri struct {
	UV [3][2]float64
}

// PatchTriCount returns how many triangles a patch of the given shape emits
// at refinement level r.
func PatchTriCount(s Shape, r int) int {
	n := r + 1
	switch s {
	case Tri:
		return n * n
	case Quad:
		return 2 * n * n
	default:
		return 0
	}
}

// QuadPatch subdivides the unit square into 2(r+1)^2 counterclockwise
// triangles.
func QuadPatch(r int) []PatchTri {
	n := r + 1
	d := 1 / float64(n)
	out := make([]PatchTri, 0, 2*n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			x0, y0 := float64(i)*d, float64(j)*d
			x1, y1 := x0+d, y0+d
			out = append(out,
				PatchTri{[3][2]float64{{x0, y0}, {x1, y0}, {x1, y1}}},
				PatchTri{[3][2]float64{{x0, y0}, {x1, y1}, {x0, y1}}},
			)
		}
	}
	return out
}

// TriPatch subdivides the unit triangle into (r+1)^2 triangles.
func TriPatch(r int) []PatchTri {
	n := r + 1
	d := 1 / float64(n)
	p := func(i, j int) [2]float64 { return [2]float64{float64(i) * d, float64(j) * d} }

	out := make([]PatchTri, 0, n*n)
	for j := 0; j < n; j++ {
		for i := 0; i+j < n; i++ {
			out = append(out, PatchTri{[3][2]float64{p(i, j), p(i + 1, j), p(i, j + 1)}})
			if i+j < n-1 {
				out = append(out, PatchTri{[3][2]float64{p(i + 1, j), p(i + 1, j + 1), p(i, j + 1)}})
			}
		}
	}
	return out
}

// LinePatch subdivides the unit interval into r+1 segments given by their
// endpoint parameters.
func LinePatch(r int) [][2]float64 {
	n := r + 1
	d := 1 / float64(n)
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		out[i] = [2]float64{float64(i) * d, float64(i+1) * d}
	}
	return out
}

// FaceXi maps a patch coordinate (u, v) on a face to the owning element's
// reference coordinates. Reference faces are flat, so corner interpolation
// is exact for every order.
func FaceXi(f Face, u, v float64) geom.Vec {
	switch f.Shape {
	case Line:
		return f.CornerXis[0].Lerp(f.CornerXis[1], float32(u))
	case Tri:
		c0, c1, c2 := f.CornerXis[0], f.CornerXis[1], f.CornerXis[2]
		out := c0
		out = out.Add(c1.Sub(c0).Scale(float32(u)))
		out = out.Add(c2.Sub(c0).Scale(float32(v)))
		return out
	case Quad:
		c0, c1, c2, c3 := f.CornerXis[0], f.CornerXis[1], f.CornerXis[2], f.CornerXis[3]
		uu, vv := float32(u), float32(v)
		bottom := c0.Lerp(c1, uu)
		top := c2.Lerp(c3, uu)
		return bottom.Lerp(top, vv)
	default:
		return geom.Vec{}
	}
}
