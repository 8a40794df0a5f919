package repr

import (
	"testing"

	"github.com/medview/medview/dataset"
	"github.com/medview/medview/geom"
	"github.com/medview/medview/volrender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageAt(t *testing.T, z float32, timestep float64) *dataset.SharedImage {
	t.Helper()
	im := dataset.NewSharedImage("img", geom.Vec{0, 0, z},
		geom.IdentityRotator(), 2, 2, 1, 1, timestep)
	for y := 0; y < im.Rows; y++ {
		for x := 0; x < im.Cols; x++ {
			require.NoError(t, im.Img.Set(y, x, 1))
		}
	}
	return im
}

func TestImageReprKindCheck(t *testing.T) {
	_, err := NewImageRepr("bad", KindSurface, "obj", &dataset.ImageSceneObject{})
	assert.Error(t, err)
}

func TestImageStackRepr(t *testing.T) {
	obj := &dataset.ImageSceneObject{
		Name: "mri",
		Images: []*dataset.SharedImage{
			imageAt(t, 0, 0), imageAt(t, 1, 0),
			imageAt(t, 0, 10), imageAt(t, 1, 10),
		},
	}
	ir, err := NewImageRepr("mri", KindImageTimeStack, "mri", obj)
	require.NoError(t, err)
	ir.MaterialName = "bone"
	ir.Fill = volrender.FillOpts{Min: 0, Max: 1, Format: volrender.TexLum8}

	require.NoError(t, ir.PrepareTextures())
	assert.Equal(t, StateBuffersPending, ir.State())
	// A second prepare is a no-op.
	require.NoError(t, ir.PrepareTextures())

	b := newFakeBackend()
	require.NoError(t, ir.AddToScene(b))
	assert.Equal(t, StateInSceneHidden, ir.State())

	// One texture and one quad figure per source image, entered hidden.
	require.Len(t, b.textures, 4)
	assert.Equal(t, fakeTexture{w: 2, h: 2, depth: 1, format: volrender.TexLum8},
		b.textures["mri.0.tex"])
	require.Len(t, b.figures, 4)
	for fig := range b.figures {
		assert.False(t, b.visible[fig])
	}

	// Quads share the unit geometry; the pose and pixel extent live in
	// the figure transform.
	quad := b.data["mri.0.fig"]
	assert.Equal(t, 4, quad.Nodes.Rows())
	assert.Equal(t, 2, quad.Inds.Rows())
	xf := b.transform["mri.1.fig"]
	assert.Equal(t, geom.Vec{0, 0, 1}, xf.Pos)
	assert.Equal(t, geom.Vec{2, 2, 1}, xf.Scale)

	// Visibility follows the current timestep group.
	require.NoError(t, ir.SetVisible(b, true))
	assert.True(t, b.visible["mri.0.fig"])
	assert.True(t, b.visible["mri.1.fig"])
	assert.False(t, b.visible["mri.2.fig"])

	require.NoError(t, ir.SetTimestep(b, 10))
	assert.False(t, b.visible["mri.0.fig"])
	assert.True(t, b.visible["mri.2.fig"])
	assert.True(t, b.visible["mri.3.fig"])

	// A chosen slice narrows the group to one quad; -1 widens it again.
	require.NoError(t, ir.SetChosenSlice(b, 1))
	assert.False(t, b.visible["mri.2.fig"])
	assert.True(t, b.visible["mri.3.fig"])
	require.NoError(t, ir.SetChosenSlice(b, -1))
	assert.True(t, b.visible["mri.2.fig"])

	require.NoError(t, ir.SetVisible(b, false))
	for fig := range b.figures {
		assert.False(t, b.visible[fig])
	}
	assert.Equal(t, StateInSceneHidden, ir.State())
}

func TestImageStackReprUpdateKeepsPoses(t *testing.T) {
	obj := &dataset.ImageSceneObject{
		Name: "mri",
		Images: []*dataset.SharedImage{
			imageAt(t, 0, 0), imageAt(t, 1, 0),
		},
	}
	ir, err := NewImageRepr("mri", KindImageStack, "mri", obj)
	require.NoError(t, err)
	ir.MaterialName = "bone"
	ir.Fill = volrender.FillOpts{Min: 0, Max: 1, Format: volrender.TexLum8}
	require.NoError(t, ir.PrepareTextures())

	b := newFakeBackend()
	require.NoError(t, ir.AddToScene(b))

	// Moving the parent re-bakes every per-image pose on Update.
	ir.ParentTransform = geom.Transform{
		Pos: geom.Vec{5, 0, 0}, Scale: geom.Vec{1, 1, 1},
		Rot: geom.IdentityRotator(),
	}
	require.NoError(t, ir.Update(b))
	assert.Equal(t, geom.Vec{5, 0, 0}, b.transform["mri.0.fig"].Pos)
	assert.Equal(t, geom.Vec{5, 0, 1}, b.transform["mri.1.fig"].Pos)
}

func TestImageVolumeRepr(t *testing.T) {
	obj := &dataset.ImageSceneObject{
		Name: "ct",
		Images: []*dataset.SharedImage{
			imageAt(t, 0, 0), imageAt(t, 1, 0), imageAt(t, 2, 0),
		},
	}
	ir, err := NewImageRepr("ct", KindImageVolume, "ct", obj)
	require.NoError(t, err)
	ir.MaterialName = "flesh"
	ir.Fill = volrender.FillOpts{Min: 0, Max: 1, Format: volrender.TexLum8}

	require.NoError(t, ir.PrepareTextures())
	b := newFakeBackend()
	require.NoError(t, ir.AddToScene(b))

	// One 3D texture and one texture-volume figure for the whole stack.
	require.Len(t, b.textures, 1)
	assert.Equal(t, fakeTexture{w: 2, h: 2, depth: 3, format: volrender.TexLum8},
		b.textures["ct.t0.tex"])
	require.Len(t, b.figures, 1)

	xf := b.transform["ct.t0.fig"]
	assert.Equal(t, geom.Vec{0, 0, 0}, xf.Pos)
	assert.InDelta(t, 2, float64(xf.Scale[0]), 1e-6)
	assert.InDelta(t, 2, float64(xf.Scale[1]), 1e-6)
	// Two slice spacings of span stretched one spacing past the last
	// plane.
	assert.InDelta(t, 3, float64(xf.Scale[2]), 1e-6)

	require.NoError(t, ir.SetVisible(b, true))
	assert.True(t, b.visible["ct.t0.fig"])

	// Chosen slice has no meaning for a volume.
	require.NoError(t, ir.SetChosenSlice(b, 0))
	assert.True(t, b.visible["ct.t0.fig"])
}

func TestImageVolumeReprEmptyStack(t *testing.T) {
	// All-zero pixels give no informative bounds, hence no figure.
	im := dataset.NewSharedImage("img", geom.Vec{0, 0, 0},
		geom.IdentityRotator(), 2, 2, 1, 1, 0)
	obj := &dataset.ImageSceneObject{Name: "blank",
		Images: []*dataset.SharedImage{im}}

	ir, err := NewImageRepr("blank", KindImageVolume, "blank", obj)
	require.NoError(t, err)
	ir.MaterialName = "flesh"
	require.NoError(t, ir.PrepareTextures())

	b := newFakeBackend()
	require.NoError(t, ir.AddToScene(b))
	assert.Empty(t, b.textures)
	assert.Empty(t, b.figures)
}
