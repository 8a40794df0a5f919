package repr

import (
	"fmt"
	"math"
	"sort"

	"github.com/medview/medview/dataset"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/imagevol"
	"github.com/medview/medview/mat"
	"github.com/medview/medview/parallel"
	"github.com/medview/medview/slicing"
	"github.com/medview/medview/volrender"
)

// ImageRepr drives the image incarnations of an ImageSceneObject. Stack
// kinds get one textured quad per source image; volume kinds get one 3D
// texture per timestep, rendered as a texture-volume figure. Visibility is
// narrowed to the current timestep and, for stacks, an optional chosen
// slice.
type ImageRepr struct {
	*Repr
	Object *dataset.ImageSceneObject

	Fill      volrender.FillOpts
	Threshold float64
	Procs     int
	Task      parallel.Task

	// Timestep selects the visible image group; ChosenSlice, when >= 0,
	// narrows a stack to a single slice of that group.
	Timestep    float64
	ChosenSlice int

	textures []*volrender.Texture
	figInfo  []figInfo
	groups   []imageGroup
}

// figInfo ties one backend figure to its timestep group and, for stacks,
// its slice position within the group. Volume figures carry slice -1.
type figInfo struct {
	fig   string
	group int
	slice int
}

type imageGroup struct {
	time   float64
	images []int
}

// NewImageRepr creates an image Repr over obj. Only the four image kinds
// are accepted.
func NewImageRepr(name string, kind Kind, parent string,
	obj *dataset.ImageSceneObject) (*ImageRepr, error) {

	switch kind {
	case KindImageStack, KindImageTimeStack, KindImageVolume, KindImageTimeVolume:
	default:
		return nil, fmt.Errorf("repr: %v is not an image kind", kind)
	}
	return &ImageRepr{
		Repr:        New(name, kind, parent),
		Object:      obj,
		ChosenSlice: -1,
	}, nil
}

func (r *ImageRepr) volumeKind() bool {
	return r.Kind() == KindImageVolume || r.Kind() == KindImageTimeVolume
}

// PrepareTextures fills the per-image (stack) or per-timestep (volume)
// textures, typically on a worker. It shares PrepareBuffers' state rules:
// idempotent until Invalidate, illegal while visible.
func (r *ImageRepr) PrepareTextures() error {
	return r.Repr.PrepareBuffers(func() (slicing.MeshBuffers, error) {
		if r.volumeKind() {
			return slicing.MeshBuffers{}, r.buildVolumeTextures()
		}
		if err := r.buildStackTextures(); err != nil {
			return slicing.MeshBuffers{}, err
		}
		return unitQuad(), nil
	})
}

func (r *ImageRepr) buildStackTextures() error {
	r.groups = timeGroups(r.Object)
	r.textures = r.textures[:0]
	for _, im := range r.Object.Images {
		name := fmt.Sprintf("%s.%d.tex", r.Name, len(r.textures))
		tex, err := volrender.FillStackTexture(name, im, r.Fill)
		if err != nil {
			return err
		}
		r.textures = append(r.textures, tex)
	}
	return nil
}

func (r *ImageRepr) buildVolumeTextures() error {
	stacks := imagevol.VolumeStacks(r.Object)
	times := make([]float64, 0, len(stacks))
	for t := range stacks {
		times = append(times, t)
	}
	sort.Float64s(times)

	r.groups = r.groups[:0]
	r.textures = r.textures[:0]
	opt := volrender.VolumeOpts{
		Fill: r.Fill, Threshold: r.Threshold,
		Procs: r.Procs, Task: r.Task,
	}
	for k, t := range times {
		name := fmt.Sprintf("%s.t%d.tex", r.Name, k)
		images := make([]*dataset.SharedImage, len(stacks[t]))
		for i, idx := range stacks[t] {
			images[i] = r.Object.Images[idx]
		}
		tex, _, err := volrender.BuildVolumeTexture(name, images, opt)
		if err != nil {
			return err
		}
		// A stack with no informative pixels gets no figure.
		if tex == nil {
			continue
		}
		r.groups = append(r.groups, imageGroup{time: t, images: stacks[t]})
		r.textures = append(r.textures, tex)
	}
	return nil
}

// AddToScene creates the textures and figures and enters the scene hidden.
// Main thread only.
func (r *ImageRepr) AddToScene(b SceneBackend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateBuffersPending {
		return fmt.Errorf("%w: AddToScene in %v", ErrBadState, r.state)
	}
	if r.MaterialName == "" {
		return fmt.Errorf("%w: repr %q has no material", ErrResource, r.Name)
	}

	for _, tex := range r.textures {
		err := b.CreateTexture(tex.Name, tex.Width, tex.Height, tex.Depth, tex.Format)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
		r.Textures = append(r.Textures, tex.Name)
	}

	world := r.ParentTransform.Compose(r.Transform)
	if r.volumeKind() {
		if err := r.addVolumeFigures(b, world); err != nil {
			return err
		}
	} else {
		if err := r.addStackFigures(b, world); err != nil {
			return err
		}
	}

	for name, u := range r.GPUParams {
		if err := b.SetGPUParam(r.MaterialName, StageFragment, name, u); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	for _, info := range r.figInfo {
		if err := b.SetVisible(info.fig, false); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	r.state = StateInSceneHidden
	return nil
}

func (r *ImageRepr) addStackFigures(b SceneBackend, world geom.Transform) error {
	poses := ImageTransforms(r.Object.Images)
	for g, grp := range r.groups {
		for slice, im := range grp.images {
			fig := fmt.Sprintf("%s.%d.fig", r.Name, im)
			err := b.CreateFigure(fig, r.MaterialName, TriangleList)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrResource, err)
			}
			if err := b.SetFigureData(fig, r.Buffers); err != nil {
				return fmt.Errorf("%w: %v", ErrResource, err)
			}
			err = b.SetFigureTransform(fig, world.Compose(poses[im]))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrResource, err)
			}
			r.Figures = append(r.Figures, fig)
			r.figInfo = append(r.figInfo, figInfo{fig: fig, group: g, slice: slice})
		}
	}
	return nil
}

func (r *ImageRepr) addVolumeFigures(b SceneBackend, world geom.Transform) error {
	for g, grp := range r.groups {
		images := make([]*dataset.SharedImage, len(grp.images))
		for i, idx := range grp.images {
			images[i] = r.Object.Images[idx]
		}
		pose, err := imagevol.VolumeTransform(images, len(images) == 1)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}

		fig := fmt.Sprintf("%s.t%d.fig", r.Name, g)
		err = b.CreateFigure(fig, r.MaterialName, TextureVolume)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
		if err := b.SetFigureTransform(fig, world.Compose(pose)); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
		r.Figures = append(r.Figures, fig)
		r.figInfo = append(r.figInfo, figInfo{fig: fig, group: g, slice: -1})
	}
	return nil
}

// Update re-pushes buffers, per-figure transforms, and gpu params after a
// mutation. Main thread only; legal only while in scene.
func (r *ImageRepr) Update(b SceneBackend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInSceneHidden && r.state != StateInSceneVisible {
		return fmt.Errorf("%w: Update in %v", ErrBadState, r.state)
	}

	world := r.ParentTransform.Compose(r.Transform)
	poses := ImageTransforms(r.Object.Images)
	for _, info := range r.figInfo {
		grp := r.groups[info.group]
		var pose geom.Transform
		if info.slice >= 0 {
			if err := b.SetFigureData(info.fig, r.Buffers); err != nil {
				return fmt.Errorf("%w: %v", ErrResource, err)
			}
			pose = poses[grp.images[info.slice]]
		} else {
			images := make([]*dataset.SharedImage, len(grp.images))
			for i, idx := range grp.images {
				images[i] = r.Object.Images[idx]
			}
			var err error
			pose, err = imagevol.VolumeTransform(images, len(images) == 1)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrResource, err)
			}
		}
		if err := b.SetFigureTransform(info.fig, world.Compose(pose)); err != nil {
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

// SetVisible shows the figures of the current timestep group (and chosen
// slice, for stacks) or hides everything.
func (r *ImageRepr) SetVisible(b SceneBackend, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInSceneHidden && r.state != StateInSceneVisible {
		return fmt.Errorf("%w: SetVisible in %v", ErrBadState, r.state)
	}
	if err := r.apply(b, visible); err != nil {
		return err
	}
	if visible {
		r.state = StateInSceneVisible
	} else {
		r.state = StateInSceneHidden
	}
	return nil
}

// SetTimestep moves the Repr to a new current time. Visible figures follow
// immediately.
func (r *ImageRepr) SetTimestep(b SceneBackend, t float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Timestep = t
	if r.state != StateInSceneVisible {
		return nil
	}
	return r.apply(b, true)
}

// SetChosenSlice narrows a visible stack to one slice; -1 shows the whole
// group again. Ignored by volume kinds.
func (r *ImageRepr) SetChosenSlice(b SceneBackend, slice int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ChosenSlice = slice
	if r.state != StateInSceneVisible {
		return nil
	}
	return r.apply(b, true)
}

func (r *ImageRepr) apply(b SceneBackend, visible bool) error {
	cur := r.currentGroup()
	for _, info := range r.figInfo {
		on := visible && info.group == cur
		if on && !r.volumeKind() && r.ChosenSlice >= 0 {
			on = info.slice == r.ChosenSlice
		}
		if err := b.SetVisible(info.fig, on); err != nil {
			return fmt.Errorf("%w: %v", ErrResource, err)
		}
	}
	return nil
}

// currentGroup returns the group whose timestep is nearest r.Timestep;
// ties go to the earlier group.
func (r *ImageRepr) currentGroup() int {
	best, bestDist := 0, math.Inf(1)
	for g, grp := range r.groups {
		d := math.Abs(grp.time - r.Timestep)
		if d < bestDist {
			best, bestDist = g, d
		}
	}
	return best
}

// timeGroups buckets an object's images by timestep, keeping first-seen
// group order and input slice order within a group.
func timeGroups(obj *dataset.ImageSceneObject) []imageGroup {
	var groups []imageGroup
	at := map[float64]int{}
	for i, im := range obj.Images {
		g, ok := at[im.Timestep]
		if !ok {
			g = len(groups)
			at[im.Timestep] = g
			groups = append(groups, imageGroup{time: im.Timestep})
		}
		groups[g].images = append(groups[g].images, i)
	}
	return groups
}

// unitQuad returns the shared quad geometry every stack figure draws; the
// per-image pose and pixel extent live in the figure transform.
func unitQuad() slicing.MeshBuffers {
	buf := slicing.MeshBuffers{
		Nodes: mat.NewVec3("quad nodes", 0, 1),
		Norms: mat.NewVec3("quad norms", 0, 1),
		Cols:  mat.NewCol("quad cols", 0, 1),
		Inds:  mat.NewIndex("quad tris", 0, 3),
	}
	for _, v := range []geom.Vec{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}} {
		buf.Nodes.Append(v)
		buf.Norms.Append(geom.Vec{0, 0, 1})
		buf.Cols.Append(mat.Col{1, 1, 1, 1})
	}
	buf.Inds.Append(0, 1, 2)
	buf.Inds.Append(0, 2, 3)
	return buf
}
