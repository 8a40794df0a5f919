package repr

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/medview/medview/color"
	"github.com/medview/medview/slicing"
)

// Slicer is the common face of plane and box slice objects: a uniform set
// and the names of the Reprs it clips.
type Slicer interface {
	SlicerName() string
	TargetNames() []string
	Uniforms() slicing.UniformSet
}

// PlaneSlicer adapts slicing.SlicePlaneObject to the registry.
type PlaneSlicer struct{ *slicing.SlicePlaneObject }

func (s PlaneSlicer) SlicerName() string    { return s.Name }
func (s PlaneSlicer) TargetNames() []string { return s.Targets }

// BoxSlicer adapts slicing.SliceBoxObject to the registry.
type BoxSlicer struct{ *slicing.SliceBoxObject }

func (s BoxSlicer) SlicerName() string    { return s.Name }
func (s BoxSlicer) TargetNames() []string { return s.Targets }

// Registry is the main-thread owner of Reprs, materials, spectrums, and
// slice objects, keyed by name. Slice objects reference their targets by
// name and never own the geometry they clip.
type Registry struct {
	mu sync.Mutex

	backend   SceneBackend
	reprs     map[string]*Repr
	materials map[string]*color.Material
	spectrums map[string]*color.Spectrum
	slicers   map[string]Slicer
}

func NewRegistry(backend SceneBackend) *Registry {
	return &Registry{
		backend:   backend,
		reprs:     map[string]*Repr{},
		materials: map[string]*color.Material{},
		spectrums: map[string]*color.Spectrum{},
		slicers:   map[string]Slicer{},
	}
}

// AddRepr registers a Repr. Names are unique.
func (g *Registry) AddRepr(r *Repr) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.reprs[r.Name]; ok {
		return fmt.Errorf("repr: %q already registered", r.Name)
	}
	g.reprs[r.Name] = r
	return nil
}

// Repr looks a Repr up by name.
func (g *Registry) Repr(name string) (*Repr, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.reprs[name]
	return r, ok
}

// RemoveRepr takes the Repr out of the scene and drops it from the
// registry. Slice objects keep their target names; a re-added Repr with
// the same name is clipped again.
func (g *Registry) RemoveRepr(name string) error {
	g.mu.Lock()
	r, ok := g.reprs[name]
	delete(g.reprs, name)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if err := r.RemoveFromScene(g.backend); err != nil {
		log.Printf("repr: remove %q: %v", name, err)
	}
	return nil
}

// ReprNames returns the registered names, sorted.
func (g *Registry) ReprNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.reprs))
	for name := range g.reprs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AddMaterial registers a material and creates its backend counterpart.
func (g *Registry) AddMaterial(m *color.Material) error {
	if m.Spectrum != nil {
		if err := m.Spectrum.Validate(); err != nil {
			return err
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.materials[m.Name]; ok {
		return fmt.Errorf("repr: material %q already registered", m.Name)
	}
	if err := g.backend.CreateMaterial(m.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	g.materials[m.Name] = m
	return nil
}

// Material looks a material up by name.
func (g *Registry) Material(name string) (*color.Material, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.materials[name]
	return m, ok
}

// AddSpectrum registers a validated spectrum.
func (g *Registry) AddSpectrum(s *color.Spectrum) error {
	if err := s.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.spectrums[s.Name]; ok {
		return fmt.Errorf("repr: spectrum %q already registered", s.Name)
	}
	g.spectrums[s.Name] = s
	return nil
}

// Spectrum looks a spectrum up by name.
func (g *Registry) Spectrum(name string) (*color.Spectrum, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.spectrums[name]
	return s, ok
}

// AttachSlicer registers a slice object and pushes its uniforms to every
// target Repr currently registered. Unknown targets are skipped; they pick
// the slicer up when re-attached.
func (g *Registry) AttachSlicer(s Slicer) error {
	g.mu.Lock()
	if _, ok := g.slicers[s.SlicerName()]; ok {
		g.mu.Unlock()
		return fmt.Errorf("repr: slicer %q already attached", s.SlicerName())
	}
	g.slicers[s.SlicerName()] = s
	targets := g.targetsOf(s)
	g.mu.Unlock()

	set := s.Uniforms()
	for _, r := range targets {
		if err := r.SetGPUParams(g.backend, set); err != nil {
			return err
		}
	}
	return nil
}

// DetachSlicer removes a slice object and resets its former targets to
// neutral uniforms, restoring their full visibility.
func (g *Registry) DetachSlicer(name string) error {
	g.mu.Lock()
	s, ok := g.slicers[name]
	delete(g.slicers, name)
	var targets []*Repr
	if ok {
		targets = g.targetsOf(s)
	}
	g.mu.Unlock()
	if !ok {
		return nil
	}

	neutral := slicing.NeutralUniforms()
	for _, r := range targets {
		if err := r.SetGPUParams(g.backend, neutral); err != nil {
			return err
		}
	}
	return nil
}

// targetsOf resolves a slicer's target names; the caller holds g.mu.
func (g *Registry) targetsOf(s Slicer) []*Repr {
	var out []*Repr
	for _, name := range s.TargetNames() {
		if r, ok := g.reprs[name]; ok {
			out = append(out, r)
		}
	}
	return out
}
