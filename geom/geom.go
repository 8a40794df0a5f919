/*package geom contains the small geometric types shared by the rendering
core: float32 vectors, rotators, axis-aligned boxes, planes, and the spatial
acceleration structures built over refined meshes.
*/
package geom

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a three dimensional float32 vector. Mesh nodes, normals, and image
// plane positions are stored in this form; world-space math that needs the
// extra precision converts to r3.Vec first.
type Vec [3]float32

func (v Vec) Add(u Vec) Vec { return Vec{v[0] + u[0], v[1] + u[1], v[2] + u[2]} }
func (v Vec) Sub(u Vec) Vec { return Vec{v[0] - u[0], v[1] - u[1], v[2] - u[2]} }

func (v Vec) Scale(s float32) Vec { return Vec{v[0] * s, v[1] * s, v[2] * s} }

func (v Vec) Dot(u Vec) float32 {
	return v[0]*u[0] + v[1]*u[1] + v[2]*u[2]
}

func (v Vec) Cross(u Vec) Vec {
	return Vec{
		v[1]*u[2] - v[2]*u[1],
		v[2]*u[0] - v[0]*u[2],
		v[0]*u[1] - v[1]*u[0],
	}
}

func (v Vec) Norm() float32 { return math32.Sqrt(v.Dot(v)) }

// Unit returns v scaled to unit length, or the zero vector if v is zero.
func (v Vec) Unit() Vec {
	n := v.Norm()
	if n == 0 {
		return Vec{}
	}
	return v.Scale(1 / n)
}

// Lerp interpolates between v and u at parameter t in [0, 1].
func (v Vec) Lerp(u Vec, t float32) Vec {
	return Vec{
		v[0] + (u[0]-v[0])*t,
		v[1] + (u[1]-v[1])*t,
		v[2] + (u[2]-v[2])*t,
	}
}

// R3 converts to a gonum r3 vector.
func (v Vec) R3() r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// FromR3 converts a gonum r3 vector back to a Vec.
func FromR3(v r3.Vec) Vec {
	return Vec{float32(v.X), float32(v.Y), float32(v.Z)}
}

// IsFinite returns false if any component is NaN or infinite.
func (v Vec) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math32.IsNaN(v[i]) || math32.IsInf(v[i], 0) {
			return false
		}
	}
	return true
}

// Rotator is a unit quaternion representing an orientation. The zero value is
// not valid; use IdentityRotator or FromAxisAngle.
type Rotator struct {
	q quat.Number
}

// IdentityRotator returns the identity orientation.
func IdentityRotator() Rotator {
	return Rotator{quat.Number{Real: 1}}
}

// FromAxisAngle constructs a rotator for a rotation of angle radians about
// the given axis. A zero axis yields the identity.
func FromAxisAngle(axis Vec, angle float64) Rotator {
	u := axis.Unit()
	if u == (Vec{}) {
		return IdentityRotator()
	}
	s, c := math32.Sincos(float32(angle / 2))
	return Rotator{quat.Number{
		Real: float64(c),
		Imag: float64(u[0] * s),
		Jmag: float64(u[1] * s),
		Kmag: float64(u[2] * s),
	}}
}

// Mul composes two rotators: the result applies r2 first, then r.
func (r Rotator) Mul(r2 Rotator) Rotator {
	return Rotator{quat.Mul(r.q, r2.q)}
}

// Inverse returns the opposite rotation.
func (r Rotator) Inverse() Rotator {
	return Rotator{quat.Conj(r.q)}
}

// Rotate applies the rotation to a vector.
func (r Rotator) Rotate(v Vec) Vec {
	p := quat.Number{Imag: float64(v[0]), Jmag: float64(v[1]), Kmag: float64(v[2])}
	p = quat.Mul(quat.Mul(r.q, p), quat.Conj(r.q))
	return Vec{float32(p.Imag), float32(p.Jmag), float32(p.Kmag)}
}

// Equal reports whether two rotators represent the same orientation within
// eps, accounting for the q/-q double cover.
func (r Rotator) Equal(r2 Rotator, eps float64) bool {
	d := quat.Mul(quat.Conj(r.q), r2.q)
	return 1-math32.Abs(float32(d.Real)) <= float32(eps)
}

// Quat exposes the underlying quaternion for serialisation.
func (r Rotator) Quat() (w, x, y, z float64) {
	return r.q.Real, r.q.Imag, r.q.Jmag, r.q.Kmag
}

// NewRotator builds a rotator directly from quaternion components, which are
// normalised.
func NewRotator(w, x, y, z float64) Rotator {
	q := quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
	n := quat.Abs(q)
	if n == 0 {
		return IdentityRotator()
	}
	return Rotator{quat.Scale(1/n, q)}
}

// Transform is a position, per-axis scale, and rotation, applied in
// scale-rotate-translate order.
type Transform struct {
	Pos   Vec
	Scale Vec
	Rot   Rotator
}

// IdentityTransform returns the do-nothing transform.
func IdentityTransform() Transform {
	return Transform{Scale: Vec{1, 1, 1}, Rot: IdentityRotator()}
}

// Apply maps a point through the transform.
func (t Transform) Apply(v Vec) Vec {
	v = Vec{v[0] * t.Scale[0], v[1] * t.Scale[1], v[2] * t.Scale[2]}
	return t.Rot.Rotate(v).Add(t.Pos)
}

// Compose returns the transform equivalent to applying child then t.
func (t Transform) Compose(child Transform) Transform {
	return Transform{
		Pos: t.Apply(child.Pos),
		Scale: Vec{
			t.Scale[0] * child.Scale[0],
			t.Scale[1] * child.Scale[1],
			t.Scale[2] * child.Scale[2],
		},
		Rot: t.Rot.Mul(child.Rot),
	}
}
