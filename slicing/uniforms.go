package slicing

import (
	"github.com/medview/medview/geom"
)

// PlaneMode selects which side of the slice plane the fragment program
// keeps.
type PlaneMode int

const (
	PlaneBelow PlaneMode = iota
	PlaneAbove
	PlaneOn
	PlaneOrtho
)

// BoxMode selects whether fragments inside or outside the box survive.
type BoxMode int

const (
	BoxInside BoxMode = iota
	BoxOutside
)

// Uniform is one named fragment-program parameter: either a scalar or a
// vec3.
type Uniform struct {
	Vec    geom.Vec
	Scalar float64
	IsVec  bool
}

func vecUniform(v geom.Vec) Uniform   { return Uniform{Vec: v, IsVec: true} }
func scalarUniform(s float64) Uniform { return Uniform{Scalar: s} }

// UniformSet maps uniform names to values, keyed by the shader contract
// names: planept, planenorm, planeright, planemode, v0..v7, boxmode.
type UniformSet map[string]Uniform

// SlicePlaneObject is a plane slicer: a point and a rotator whose local +Z
// is the plane normal. Targets names the Reprs it clips.
type SlicePlaneObject struct {
	Name    string
	Point   geom.Vec
	Rot     geom.Rotator
	Mode    PlaneMode
	Targets []string
}

// Plane returns the world-space slicing plane.
func (o *SlicePlaneObject) Plane() geom.Plane {
	return geom.Plane{
		Point:  o.Point,
		Normal: o.Rot.Rotate(geom.Vec{0, 0, 1}),
	}
}

// Uniforms encodes the plane for the fragment program.
func (o *SlicePlaneObject) Uniforms() UniformSet {
	n := o.Rot.Rotate(geom.Vec{0, 0, 1})
	right := o.Rot.Rotate(geom.Vec{1, 0, 0})
	return UniformSet{
		"planept":    vecUniform(o.Point),
		"planenorm":  vecUniform(n),
		"planeright": vecUniform(right),
		"planemode":  scalarUniform(float64(o.Mode)),
	}
}

// SliceBoxObject is a box slicer: centre, half extents, and orientation.
// The shader receives the eight corners and discards fragments by mode; no
// geometry changes.
type SliceBoxObject struct {
	Name    string
	Center  geom.Vec
	Half    geom.Vec
	Rot     geom.Rotator
	Mode    BoxMode
	Targets []string
}

// Corners returns the eight world-space box corners, x fastest.
func (o *SliceBoxObject) Corners() [8]geom.Vec {
	var out [8]geom.Vec
	for i := 0; i < 8; i++ {
		local := geom.Vec{
			o.Half[0] * sign(i&1 != 0),
			o.Half[1] * sign(i&2 != 0),
			o.Half[2] * sign(i&4 != 0),
		}
		out[i] = o.Center.Add(o.Rot.Rotate(local))
	}
	return out
}

func sign(pos bool) float32 {
	if pos {
		return 1
	}
	return -1
}

// Uniforms encodes the corners and mode as v0..v7 plus boxmode.
func (o *SliceBoxObject) Uniforms() UniformSet {
	set := UniformSet{
		"boxmode": scalarUniform(float64(o.Mode)),
	}
	names := [8]string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"}
	for i, c := range o.Corners() {
		set[names[i]] = vecUniform(c)
	}
	return set
}

// NeutralUniforms are applied when a slice object detaches from a Repr:
// uniforms are reset rather than removed, so the shader keeps everything.
func NeutralUniforms() UniformSet {
	set := UniformSet{
		"planept":    vecUniform(geom.Vec{}),
		"planenorm":  vecUniform(geom.Vec{}),
		"planeright": vecUniform(geom.Vec{}),
		"planemode":  scalarUniform(float64(PlaneAbove)),
		"boxmode":    scalarUniform(float64(BoxOutside)),
	}
	for _, nm := range [8]string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7"} {
		set[nm] = vecUniform(geom.Vec{})
	}
	return set
}
