package repr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/medview/medview/dataset"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/slicing"
)

var (
	// ErrBadState marks a lifecycle operation called in the wrong state.
	// Callers log it and treat the operation as a no-op.
	ErrBadState = errors.New("repr: operation in wrong lifecycle state")
	// ErrResource marks a backend resource failure; the Repr creation
	// fails but the parent object stays usable.
	ErrResource = errors.New("repr: backend resource failure")
)

// Kind is the visual style of a Repr.
type Kind int

const (
	KindPoint Kind = iota
	KindGlyph
	KindLine
	KindCylinder
	KindRibbon
	KindSurface
	KindVolume
	KindIsoSurface
	KindIsoLine
	KindImageStack
	KindImageTimeStack
	KindImageVolume
	KindImageTimeVolume
	KindSlicePlane
	KindSliceBox
)

var kindNames = map[Kind]string{
	KindPoint: "point", KindGlyph: "glyph", KindLine: "line",
	KindCylinder: "cylinder", KindRibbon: "ribbon", KindSurface: "surface",
	KindVolume: "volume", KindIsoSurface: "iso-surface", KindIsoLine: "iso-line",
	KindImageStack: "image-stack", KindImageTimeStack: "image-time-stack",
	KindImageVolume: "image-volume", KindImageTimeVolume: "image-time-volume",
	KindSlicePlane: "slice-plane", KindSliceBox: "slice-box",
}

func (k Kind) String() string { return kindNames[k] }

// Primitive maps a Repr kind to its backend primitive.
func (k Kind) Primitive() PrimitiveKind {
	switch k {
	case KindPoint, KindGlyph:
		return BillboardPoint
	case KindLine, KindIsoLine:
		return LineList
	case KindRibbon:
		return Ribbon
	case KindVolume, KindImageVolume, KindImageTimeVolume:
		return TextureVolume
	default:
		return TriangleList
	}
}

// State is the lifecycle position of a Repr.
type State int

const (
	StateCreated State = iota
	StateBuffersPending
	StateInSceneHidden
	StateInSceneVisible
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateBuffersPending:
		return "buffers-pending"
	case StateInSceneHidden:
		return "in-scene-hidden"
	case StateInSceneVisible:
		return "in-scene-visible"
	case StateRemoved:
		return "removed"
	}
	return "unknown"
}

// Repr is one visual incarnation of a scene object. The mutex serialises
// worker-side buffer preparation against main-thread scene mutation; the
// backend itself is only ever touched from the main thread.
type Repr struct {
	mu sync.Mutex

	Name   string
	Parent string
	kind   Kind
	state  State

	Refinement int

	// Transform is applied on top of the parent object's world transform.
	Transform       geom.Transform
	ParentTransform geom.Transform

	MaterialName string
	FieldBinding string

	Figures  []string
	Textures []string

	GPUParams slicing.UniformSet

	// Buffers filled by PrepareBuffers, consumed by Update.
	Buffers  slicing.MeshBuffers
	Warnings int

	prepared bool
}

// New creates a Repr in the initial state.
func New(name string, kind Kind, parent string) *Repr {
	return &Repr{
		Name:            name,
		Parent:          parent,
		kind:            kind,
		Transform:       geom.IdentityTransform(),
		ParentTransform: geom.IdentityTransform(),
		GPUParams:       slicing.UniformSet{},
	}
}

func (r *Repr) Kind() Kind { return r.kind }

func (r *Repr) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// WorldTransform composes the Repr's own transform on top of the parent
// object's.
func (r *Repr) WorldTransform() geom.Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ParentTransform.Compose(r.Transform)
}

// PrepareBuffers runs fill (typically on a worker) and stores the result.
// It is idempotent: a second call before Invalidate is a no-op. Calling it
// while the Repr is visible is a state error.
func (r *Repr) PrepareBuffers(fill func() (slicing.MeshBuffers, error)) error {
	r.mu.Lock()
	if r.state == StateInSceneVisible || r.state == StateRemoved {
		r.mu.Unlock()
		return fmt.Errorf("%w: PrepareBuffers in %v", ErrBadState, r.state)
	}
	if r.prepared {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	buf, err := fill()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Buffers = buf
	r.prepared = true
	if r.state == StateCreated {
		r.state = StateBuffersPending
	}
	return nil
}

// Invalidate marks the buffers stale so the next PrepareBuffers runs
// again.
func (r *Repr) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prepared = false
}

// AddToScene creates the backend figure and pushes the prepared buffers.
// Main thread only. A Repr entering the scene must carry a material.
func (r *Repr) AddToScene(b SceneBackend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateBuffersPending {
		return fmt.Errorf("%w: AddToScene in %v", ErrBadState, r.state)
	}
	if r.MaterialName == "" {
		return fmt.Errorf("%w: repr %q has no material", ErrResource, r.Name)
	}

	fig := r.Name + ".fig"
	if err := b.CreateFigure(fig, r.MaterialName, r.kind.Primitive()); err != nil {
		return fmt.Errorf("%w: %v", ErrResource, err)
	}
	r.Figures = append(r.Figures, fig)

	if err := r.push(b); err != nil {
		return err
	}
	r.state = StateInSceneHidden
	return b.SetVisible(fig, false)
}

// push sends buffers, transform, and gpu params for every figure.
func (r *Repr) push(b SceneBackend) error {
	world := r.ParentTransform.Compose(r.Transform)
	for _, fig := range r.Figures {
		if err := b.SetFigureData(fig, r.Buffers); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
		if err := b.SetFigureTransform(fig, world); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	for name, u := range r.GPUParams {
		if err := b.SetGPUParam(r.MaterialName, StageFragment, name, u); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	return nil
}

// Update re-pushes buffers and transforms after a mutation. Main thread
// only; legal only while in scene.
func (r *Repr) Update(b SceneBackend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInSceneHidden && r.state != StateInSceneVisible {
		return fmt.Errorf("%w: Update in %v", ErrBadState, r.state)
	}
	return r.push(b)
}

// SetVisible toggles between the two in-scene states.
func (r *Repr) SetVisible(b SceneBackend, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInSceneHidden && r.state != StateInSceneVisible {
		return fmt.Errorf("%w: SetVisible in %v", ErrBadState, r.state)
	}
	for _, fig := range r.Figures {
		if err := b.SetVisible(fig, visible); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	if visible {
		r.state = StateInSceneVisible
	} else {
		r.state = StateInSceneHidden
	}
	return nil
}

// RemoveFromScene tears the figures down. The Repr cannot be reused.
func (r *Repr) RemoveFromScene(b SceneBackend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRemoved {
		return fmt.Errorf("%w: already removed", ErrBadState)
	}
	for _, fig := range r.Figures {
		if err := b.RemoveFigure(fig); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	r.Figures = nil
	r.state = StateRemoved
	return nil
}

// SetGPUParams merges uniforms into the Repr and, when in scene, forwards
// them to the backend immediately.
func (r *Repr) SetGPUParams(b SceneBackend, set slicing.UniformSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, u := range set {
		r.GPUParams[name] = u
	}
	if r.state != StateInSceneHidden && r.state != StateInSceneVisible {
		return nil
	}
	for name, u := range set {
		if err := b.SetGPUParam(r.MaterialName, StageFragment, name, u); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	return nil
}

// ImageTransforms bakes per-image poses into the figure transform list of
// an image-stack Repr.
func ImageTransforms(images []*dataset.SharedImage) []geom.Transform {
	out := make([]geom.Transform, len(images))
	for i, im := range images {
		out[i] = geom.Transform{
			Pos: im.Pos,
			Scale: geom.Vec{
				float32(im.Cols) * im.Sx,
				float32(im.Rows) * im.Sy,
				1,
			},
			Rot: im.Orient,
		}
	}
	return out
}
