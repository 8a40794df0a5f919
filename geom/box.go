package geom

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis-aligned bounding box. An empty box has Min > Max and is the
// identity for Extend.
type Box struct {
	Min, Max Vec
}

// EmptyBox returns a box that contains nothing.
func EmptyBox() Box {
	inf := math32.Inf(1)
	return Box{Vec{inf, inf, inf}, Vec{-inf, -inf, -inf}}
}

// Extend grows the box to contain the point v.
func (b *Box) Extend(v Vec) {
	for i := 0; i < 3; i++ {
		if v[i] < b.Min[i] {
			b.Min[i] = v[i]
		}
		if v[i] > b.Max[i] {
			b.Max[i] = v[i]
		}
	}
}

// ExtendBox grows the box to contain another box.
func (b *Box) ExtendBox(b2 Box) {
	b.Extend(b2.Min)
	b.Extend(b2.Max)
}

// Empty returns true if the box contains no points.
func (b Box) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Diag returns the length of the main diagonal, or 0 for an empty box.
func (b Box) Diag() float32 {
	if b.Empty() {
		return 0
	}
	return b.Max.Sub(b.Min).Norm()
}

// Center returns the box midpoint.
func (b Box) Center() Vec {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Contains returns true if the point lies inside or on the box.
func (b Box) Contains(v Vec) bool {
	for i := 0; i < 3; i++ {
		if v[i] < b.Min[i] || v[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects returns true if the two boxes overlap.
func (b Box) Intersects(b2 Box) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < b2.Min[i] || b2.Max[i] < b.Min[i] {
			return false
		}
	}
	return true
}

// Octant returns the i-th (0..7) sub-box of an equal eight-way split.
func (b Box) Octant(i int) Box {
	c := b.Center()
	out := b
	for d := 0; d < 3; d++ {
		if i&(1<<d) == 0 {
			out.Max[d] = c[d]
		} else {
			out.Min[d] = c[d]
		}
	}
	return out
}

// BoundPoints returns the bounding box of a point set.
func BoundPoints(vs []Vec) Box {
	b := EmptyBox()
	for _, v := range vs {
		b.Extend(v)
	}
	return b
}

// Plane is an oriented plane given by a point and a unit normal.
type Plane struct {
	Point, Normal Vec
}

// Degenerate returns true if the plane's normal is (numerically) zero.
func (p Plane) Degenerate() bool {
	return p.Normal.Norm() < 1e-12
}

// Dist returns the signed distance from v to the plane; positive on the
// normal side. Computed in float64 so that classification near the plane is
// stable for large coordinates.
func (p Plane) Dist(v Vec) float64 {
	d := r3.Sub(v.R3(), p.Point.R3())
	return r3.Dot(d, p.Normal.R3())
}

// RayHit returns the parameter t along origin+t*dir at which the ray meets
// the plane, and false if the ray is parallel to it.
func (p Plane) RayHit(origin, dir Vec) (float64, bool) {
	denom := r3.Dot(dir.R3(), p.Normal.R3())
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	t := r3.Dot(r3.Sub(p.Point.R3(), origin.R3()), p.Normal.R3()) / denom
	return t, true
}
