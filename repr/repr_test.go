package repr

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medview/medview/color"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/mat"
	"github.com/medview/medview/parallel"
	"github.com/medview/medview/slicing"
	"github.com/medview/medview/volrender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every call so tests can assert on the traffic.
type fakeBackend struct {
	mu        sync.Mutex
	figures   map[string]bool
	textures  map[string]fakeTexture
	visible   map[string]bool
	materials map[string]bool
	data      map[string]slicing.MeshBuffers
	transform map[string]geom.Transform
	params    map[string]slicing.Uniform
	failNext  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		figures:   map[string]bool{},
		textures:  map[string]fakeTexture{},
		visible:   map[string]bool{},
		materials: map[string]bool{},
		data:      map[string]slicing.MeshBuffers{},
		transform: map[string]geom.Transform{},
		params:    map[string]slicing.Uniform{},
	}
}

func (f *fakeBackend) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBackend) CreateFigure(name, material string, kind PrimitiveKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.figures[name] = true
	return nil
}

type fakeTexture struct {
	w, h, depth int
	format      volrender.TexFormat
}

func (f *fakeBackend) CreateTexture(name string, w, h, depth int, format volrender.TexFormat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.textures[name] = fakeTexture{w: w, h: h, depth: depth, format: format}
	return nil
}

func (f *fakeBackend) CreateMaterial(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(); err != nil {
		return err
	}
	f.materials[name] = true
	return nil
}

func (f *fakeBackend) CreateLight(string, LightKind) error { return nil }

func (f *fakeBackend) SetFigureData(fig string, buf slicing.MeshBuffers) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[fig] = buf
	return nil
}

func (f *fakeBackend) SetFigureTransform(fig string, t geom.Transform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transform[fig] = t
	return nil
}

func (f *fakeBackend) SetVisible(fig string, v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[fig] = v
	return nil
}

func (f *fakeBackend) SetRenderQueue(string, string) error { return nil }

func (f *fakeBackend) SetGPUParam(mat string, stage ProgramStage, name string, u slicing.Uniform) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params[name] = u
	return nil
}

func (f *fakeBackend) RemoveFigure(fig string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.figures, fig)
	return nil
}

func emptyBuffers() slicing.MeshBuffers {
	return slicing.MeshBuffers{
		Nodes: mat.NewVec3("n", 0, 1),
		Inds:  mat.NewIndex("i", 0, 3),
	}
}

func prepared(t *testing.T, name string) *Repr {
	t.Helper()
	r := New(name, KindSurface, "obj")
	r.MaterialName = "m"
	require.NoError(t, r.PrepareBuffers(func() (slicing.MeshBuffers, error) {
		return emptyBuffers(), nil
	}))
	return r
}

func TestLifecycleHappyPath(t *testing.T) {
	b := newFakeBackend()
	r := New("surf", KindSurface, "obj")
	r.MaterialName = "m"
	assert.Equal(t, StateCreated, r.State())

	require.NoError(t, r.PrepareBuffers(func() (slicing.MeshBuffers, error) {
		return emptyBuffers(), nil
	}))
	assert.Equal(t, StateBuffersPending, r.State())

	require.NoError(t, r.AddToScene(b))
	assert.Equal(t, StateInSceneHidden, r.State())
	assert.True(t, b.figures["surf.fig"])
	assert.False(t, b.visible["surf.fig"])

	require.NoError(t, r.SetVisible(b, true))
	assert.Equal(t, StateInSceneVisible, r.State())
	assert.True(t, b.visible["surf.fig"])

	require.NoError(t, r.SetVisible(b, false))
	assert.Equal(t, StateInSceneHidden, r.State())

	require.NoError(t, r.RemoveFromScene(b))
	assert.Equal(t, StateRemoved, r.State())
	assert.Empty(t, b.figures)
}

func TestPrepareBuffersIdempotent(t *testing.T) {
	r := New("surf", KindSurface, "obj")
	calls := 0
	fill := func() (slicing.MeshBuffers, error) {
		calls++
		return emptyBuffers(), nil
	}
	require.NoError(t, r.PrepareBuffers(fill))
	require.NoError(t, r.PrepareBuffers(fill))
	assert.Equal(t, 1, calls)

	r.Invalidate()
	require.NoError(t, r.PrepareBuffers(fill))
	assert.Equal(t, 2, calls)
}

func TestPrepareBuffersWhileVisible(t *testing.T) {
	b := newFakeBackend()
	r := prepared(t, "surf")
	require.NoError(t, r.AddToScene(b))
	require.NoError(t, r.SetVisible(b, true))

	r.Invalidate()
	err := r.PrepareBuffers(func() (slicing.MeshBuffers, error) {
		return emptyBuffers(), nil
	})
	assert.ErrorIs(t, err, ErrBadState)
}

func TestAddToSceneRequiresMaterial(t *testing.T) {
	b := newFakeBackend()
	r := New("surf", KindSurface, "obj")
	require.NoError(t, r.PrepareBuffers(func() (slicing.MeshBuffers, error) {
		return emptyBuffers(), nil
	}))
	assert.ErrorIs(t, r.AddToScene(b), ErrResource)
}

func TestAddToSceneStateChecks(t *testing.T) {
	b := newFakeBackend()
	r := New("surf", KindSurface, "obj")
	r.MaterialName = "m"
	// Not prepared yet.
	assert.ErrorIs(t, r.AddToScene(b), ErrBadState)
	// Backend failure surfaces as a resource error.
	require.NoError(t, r.PrepareBuffers(func() (slicing.MeshBuffers, error) {
		return emptyBuffers(), nil
	}))
	b.failNext = errors.New("out of figures")
	assert.ErrorIs(t, r.AddToScene(b), ErrResource)
}

func TestUpdateOutOfScene(t *testing.T) {
	b := newFakeBackend()
	r := prepared(t, "surf")
	assert.ErrorIs(t, r.Update(b), ErrBadState)

	require.NoError(t, r.AddToScene(b))
	require.NoError(t, r.Update(b))
	require.NoError(t, r.RemoveFromScene(b))
	assert.ErrorIs(t, r.Update(b), ErrBadState)
	assert.ErrorIs(t, r.RemoveFromScene(b), ErrBadState)
}

func TestWorldTransformComposition(t *testing.T) {
	r := New("surf", KindSurface, "obj")
	r.ParentTransform = geom.Transform{
		Pos:   geom.Vec{10, 0, 0},
		Scale: geom.Vec{2, 2, 2},
		Rot:   geom.IdentityRotator(),
	}
	r.Transform = geom.Transform{
		Pos:   geom.Vec{1, 0, 0},
		Scale: geom.Vec{1, 1, 1},
		Rot:   geom.IdentityRotator(),
	}
	w := r.WorldTransform()
	// Own transform applies inside the parent's: 10 + 2*1.
	assert.Equal(t, geom.Vec{12, 0, 0}, w.Pos)
	assert.Equal(t, geom.Vec{2, 2, 2}, w.Scale)
}

func TestKindPrimitives(t *testing.T) {
	assert.Equal(t, TriangleList, KindSurface.Primitive())
	assert.Equal(t, LineList, KindLine.Primitive())
	assert.Equal(t, TextureVolume, KindImageVolume.Primitive())
	assert.Equal(t, BillboardPoint, KindPoint.Primitive())
	assert.Equal(t, "iso-surface", KindIsoSurface.String())
}

func TestRegistrySlicerAttachDetach(t *testing.T) {
	b := newFakeBackend()
	g := NewRegistry(b)

	m := color.DefaultMaterial("m")
	require.NoError(t, g.AddMaterial(m))
	assert.True(t, b.materials["m"])

	r := prepared(t, "surf")
	require.NoError(t, g.AddRepr(r))
	require.NoError(t, r.AddToScene(b))

	pl := &slicing.SlicePlaneObject{
		Name:    "cut",
		Point:   geom.Vec{1, 2, 3},
		Rot:     geom.IdentityRotator(),
		Targets: []string{"surf", "missing"},
	}
	require.NoError(t, g.AttachSlicer(PlaneSlicer{pl}))
	assert.Equal(t, geom.Vec{1, 2, 3}, b.params["planept"].Vec)
	assert.Equal(t, geom.Vec{0, 0, 1}, b.params["planenorm"].Vec)

	// Detach resets the uniforms instead of removing them.
	require.NoError(t, g.DetachSlicer("cut"))
	u, ok := b.params["planenorm"]
	require.True(t, ok)
	assert.Equal(t, geom.Vec{}, u.Vec)

	// Detaching twice is harmless.
	require.NoError(t, g.DetachSlicer("cut"))
}

func TestRegistryDuplicates(t *testing.T) {
	b := newFakeBackend()
	g := NewRegistry(b)

	r := New("surf", KindSurface, "obj")
	require.NoError(t, g.AddRepr(r))
	assert.Error(t, g.AddRepr(New("surf", KindLine, "obj")))

	require.NoError(t, g.AddMaterial(color.DefaultMaterial("m")))
	assert.Error(t, g.AddMaterial(color.DefaultMaterial("m")))

	s := color.GreyScale()
	require.NoError(t, g.AddSpectrum(s))
	assert.Error(t, g.AddSpectrum(s))

	bad := &color.Spectrum{Name: "bad", Stops: []color.Stop{{T: 0.5, RGB: [3]float32{}}, {T: 0.5, RGB: [3]float32{}}}}
	assert.Error(t, g.AddSpectrum(bad))

	assert.Equal(t, []string{"surf"}, g.ReprNames())
	require.NoError(t, g.RemoveRepr("surf"))
	assert.Empty(t, g.ReprNames())
}

func TestCoalescerCollapsesBursts(t *testing.T) {
	c := NewCoalescer(20*time.Millisecond, nil)
	var mu sync.Mutex
	runs := 0
	for i := 0; i < 10; i++ {
		c.Trigger(func() {
			mu.Lock()
			runs++
			mu.Unlock()
		})
	}
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()
}

func TestCoalescerFlushAndStop(t *testing.T) {
	c := NewCoalescer(time.Hour, nil)
	runs := 0
	c.Trigger(func() { runs++ })
	c.Flush()
	assert.Equal(t, 1, runs)

	c.Trigger(func() { runs++ })
	c.Stop()
	c.Flush()
	assert.Equal(t, 1, runs)
}

func TestCoalescerDispatchesToMain(t *testing.T) {
	d := parallel.NewMainDispatcher()
	c := NewCoalescer(time.Millisecond, d)

	done := make(chan struct{})
	c.Trigger(func() { close(done) })

	// The callback lands on the dispatcher queue, not the timer
	// goroutine.
	deadline := time.After(time.Second)
	for d.Pending() == 0 {
		select {
		case <-deadline:
			t.Fatal("callback never queued")
		case <-time.After(time.Millisecond):
		}
	}
	select {
	case <-done:
		t.Fatal("ran before Drain")
	default:
	}
	d.Drain()
	<-done
}
