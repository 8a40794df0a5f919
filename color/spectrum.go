/*package color maps scalar field values onto per-vertex colours through
spectrums and materials.
*/
package color

import (
	"fmt"

	"github.com/medview/medview/mat"
)

// AlphaInterp selects how the alpha curve is interpolated between control
// points.
type AlphaInterp int

const (
	AlphaLinear AlphaInterp = iota
	AlphaCatmullRom
)

// Stop is one colour stop of a spectrum at a unit-interval position.
type Stop struct {
	T   float64
	RGB [3]float32
}

// AlphaPoint is one control point of a spectrum's alpha curve.
type AlphaPoint struct {
	X float64
	A float64
}

// Spectrum is a 1-D colour ramp with an independent alpha curve. Stops and
// alpha points must be strictly increasing in position. A validated
// spectrum is immutable and safe for concurrent readers.
type Spectrum struct {
	Name   string
	Stops  []Stop
	Alpha  []AlphaPoint
	Interp AlphaInterp
}

// Validate checks the monotonicity invariants.
func (s *Spectrum) Validate() error {
	if len(s.Stops) == 0 {
		return fmt.Errorf("color: spectrum %q has no colour stops", s.Name)
	}
	for i := 1; i < len(s.Stops); i++ {
		if s.Stops[i].T <= s.Stops[i-1].T {
			return fmt.Errorf("color: spectrum %q stop positions not "+
				"strictly increasing at %d", s.Name, i)
		}
	}
	for i := 1; i < len(s.Alpha); i++ {
		if s.Alpha[i].X <= s.Alpha[i-1].X {
			return fmt.Errorf("color: spectrum %q alpha positions not "+
				"strictly increasing at %d", s.Name, i)
		}
	}
	return nil
}

// At returns the colour and alpha at unit position t. t is clamped to
// [0, 1]; positions outside the stop range take the nearest stop.
func (s *Spectrum) At(t float64) mat.Col {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	rgb := s.colourAt(t)
	return mat.Col{rgb[0], rgb[1], rgb[2], float32(s.AlphaAt(t))}
}

func (s *Spectrum) colourAt(t float64) [3]float32 {
	stops := s.Stops
	if t <= stops[0].T {
		return stops[0].RGB
	}
	last := stops[len(stops)-1]
	if t >= last.T {
		return last.RGB
	}
	i := 1
	for stops[i].T < t {
		i++
	}
	a, b := stops[i-1], stops[i]
	f := float32((t - a.T) / (b.T - a.T))
	var out [3]float32
	for c := 0; c < 3; c++ {
		out[c] = a.RGB[c] + (b.RGB[c]-a.RGB[c])*f
	}
	return out
}

// AlphaAt evaluates the alpha curve at unit position t. An empty curve
// means fully opaque.
func (s *Spectrum) AlphaAt(t float64) float64 {
	pts := s.Alpha
	switch {
	case len(pts) == 0:
		return 1
	case t <= pts[0].X:
		return pts[0].A
	case t >= pts[len(pts)-1].X:
		return pts[len(pts)-1].A
	}
	i := 1
	for pts[i].X < t {
		i++
	}
	if s.Interp == AlphaCatmullRom && len(pts) >= 3 {
		return catmullRomAt(pts, i, t)
	}
	a, b := pts[i-1], pts[i]
	f := (t - a.X) / (b.X - a.X)
	return a.A + (b.A-a.A)*f
}

// catmullRomAt evaluates a centripetal-free Catmull-Rom segment between
// points i-1 and i, clamping the tangent neighbours at the curve ends.
func catmullRomAt(pts []AlphaPoint, i int, t float64) float64 {
	p1, p2 := pts[i-1], pts[i]
	p0, p3 := p1, p2
	if i-2 >= 0 {
		p0 = pts[i-2]
	}
	if i+1 < len(pts) {
		p3 = pts[i+1]
	}
	u := (t - p1.X) / (p2.X - p1.X)
	u2, u3 := u*u, u*u*u
	return 0.5 * ((2 * p1.A) +
		(p2.A-p0.A)*u +
		(2*p0.A-5*p1.A+4*p2.A-p3.A)*u2 +
		(3*p1.A-p0.A-3*p2.A+p3.A)*u3)
}

// GreyScale is a two-stop black-to-white spectrum with opaque alpha, used
// as the default when a material declares no spectrum.
func GreyScale() *Spectrum {
	return &Spectrum{
		Name:  "greyscale",
		Stops: []Stop{{0, [3]float32{0, 0, 0}}, {1, [3]float32{1, 1, 1}}},
		Alpha: []AlphaPoint{{0, 1}, {1, 1}},
	}
}
