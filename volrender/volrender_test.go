package volrender

import (
	"testing"

	"github.com/medview/medview/color"
	"github.com/medview/medview/dataset"
	"github.com/medview/medview/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grad(t *testing.T, cols, rows int, z float32) *dataset.SharedImage {
	t.Helper()
	im := dataset.NewSharedImage("img", geom.Vec{0, 0, z},
		geom.IdentityRotator(), cols, rows, 1, 1, 0)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			require.NoError(t, im.Img.Set(y, x, float64(x+y*cols)))
		}
	}
	return im
}

func TestClampSlabPlanes(t *testing.T) {
	assert.Equal(t, DefaultSlabPlanes, ClampSlabPlanes(0))
	assert.Equal(t, DefaultSlabPlanes, ClampSlabPlanes(-3))
	assert.Equal(t, MinSlabPlanes, ClampSlabPlanes(5))
	assert.Equal(t, MaxSlabPlanes, ClampSlabPlanes(100000))
	assert.Equal(t, 640, ClampSlabPlanes(640))
}

func TestImageRange(t *testing.T) {
	im := grad(t, 4, 4, 0)
	min, max, err := ImageRange([]*dataset.SharedImage{im})
	require.NoError(t, err)
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 15.0, max)

	// Constant stacks widen to a unit range.
	flat := dataset.NewSharedImage("flat", geom.Vec{}, geom.IdentityRotator(),
		2, 2, 1, 1, 0)
	for y := 0; y < 2; y++ {
		require.NoError(t, flat.Img.SetRow(y, 7, 7))
	}
	min, max, err = ImageRange([]*dataset.SharedImage{flat})
	require.NoError(t, err)
	assert.Equal(t, 7.0, min)
	assert.Equal(t, 8.0, max)

	min, max, err = ImageRange(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, min)
	assert.Equal(t, 1.0, max)
}

func TestFillStackTextureLum8(t *testing.T) {
	im := grad(t, 4, 4, 0)
	tex, err := FillStackTexture("t", im, FillOpts{Min: 0, Max: 15, Format: TexLum8})
	require.NoError(t, err)
	assert.Equal(t, 4, tex.Width)
	assert.Equal(t, 4, tex.Height)
	assert.Equal(t, 1, tex.Depth)
	require.Len(t, tex.Data, 16)

	// Bit-exact: texel (x, y) is pixel (x, y) rescaled into a byte.
	assert.Equal(t, byte(0), tex.Data[0])
	assert.Equal(t, byte(255), tex.Data[15])
	assert.Equal(t, byte(85), tex.Data[5])
}

func TestFillStackTextureClamp(t *testing.T) {
	im := grad(t, 4, 1, 0)
	tex, err := FillStackTexture("t", im, FillOpts{Min: 1, Max: 2, Format: TexLum8})
	require.NoError(t, err)
	assert.Equal(t, byte(0), tex.Data[0])   // below Min clamps to 0
	assert.Equal(t, byte(0), tex.Data[1])   // == Min
	assert.Equal(t, byte(255), tex.Data[2]) // == Max
	assert.Equal(t, byte(255), tex.Data[3]) // above Max clamps to 1
}

func TestFillStackTextureSpectrum(t *testing.T) {
	im := grad(t, 2, 1, 0)

	m := color.DefaultMaterial("m")
	m.Spectrum = &color.Spectrum{
		Name: "rb",
		Stops: []color.Stop{
			{T: 0, RGB: [3]float32{1, 0, 0}},
			{T: 1, RGB: [3]float32{0, 0, 1}},
		},
		Alpha: []color.AlphaPoint{{X: 0, A: 0}, {X: 1, A: 1}},
	}

	tex, err := FillStackTexture("t", im, FillOpts{
		Min: 0, Max: 1, Format: TexRGBA32, Material: m,
	})
	require.NoError(t, err)
	require.Len(t, tex.Data, 8)

	// Pixel 0: u=0, spectrum red but zero intensity and zero alpha.
	assert.Equal(t, []byte{0, 0, 0, 0}, tex.Data[:4])
	// Pixel 1: u=1 mapped through the blue end at full alpha.
	assert.Equal(t, []byte{0, 0, 255, 255}, tex.Data[4:])
}

func TestFillStackTextureDirectColour(t *testing.T) {
	im := grad(t, 2, 1, 0)
	m := color.DefaultMaterial("m")
	m.Diffuse = [3]float32{0, 1, 0}
	m.Alpha = 0.5

	tex, err := FillStackTexture("t", im, FillOpts{
		Min: 0, Max: 1, Format: TexRGBA32, Material: m,
	})
	require.NoError(t, err)
	// Pixel 1: full intensity times the material colour and alpha.
	assert.Equal(t, []byte{0, 255, 0, 128}, tex.Data[4:])
}

func TestFillAlphaMask(t *testing.T) {
	im := grad(t, 2, 1, 0)
	mask := dataset.NewSharedImage("mask", geom.Vec{}, geom.IdentityRotator(),
		2, 1, 1, 1, 0)
	require.NoError(t, mask.Img.SetRow(0, 1, 0))

	tex, err := FillStackTexture("t", im, FillOpts{
		Min: 0, Max: 1, Format: TexLumAlpha8, AlphaMask: mask,
	})
	require.NoError(t, err)
	require.Len(t, tex.Data, 4)
	assert.Equal(t, byte(0), tex.Data[0])   // lum of pixel 0
	assert.Equal(t, byte(255), tex.Data[1]) // alpha from mask
	assert.Equal(t, byte(255), tex.Data[2]) // lum of pixel 1
	assert.Equal(t, byte(0), tex.Data[3])   // alpha from mask
}

func TestBuildVolumeTexture(t *testing.T) {
	// Three 8x8 slices with informative pixels confined to [2,5]x[1,4].
	var stack []*dataset.SharedImage
	for z := 0; z < 3; z++ {
		im := dataset.NewSharedImage("s", geom.Vec{0, 0, float32(z)},
			geom.IdentityRotator(), 8, 8, 1, 1, 0)
		for y := 1; y <= 4; y++ {
			for x := 2; x <= 5; x++ {
				require.NoError(t, im.Img.Set(y, x, float64(10+z)))
			}
		}
		stack = append(stack, im)
	}

	tex, bounds, err := BuildVolumeTexture("vol", stack, VolumeOpts{
		Fill:      FillOpts{Min: 0, Max: 12, Format: TexLum8},
		Threshold: 0.5,
		Procs:     2,
	})
	require.NoError(t, err)
	require.NotNil(t, tex)

	assert.Equal(t, 2, bounds.X0)
	assert.Equal(t, 5, bounds.X1)
	assert.Equal(t, 1, bounds.Y0)
	assert.Equal(t, 4, bounds.Y1)

	assert.Equal(t, 4, tex.Width)
	assert.Equal(t, 4, tex.Height)
	assert.Equal(t, 3, tex.Depth)
	require.Len(t, tex.Data, 4*4*3)

	// Texel (0,0,z) is pixel (X0, Y0) of slice z.
	for z := 0; z < 3; z++ {
		want := byte(float64(10+z)/12*255 + 0.5)
		assert.Equal(t, want, tex.Data[z*16])
	}
}

func TestBuildVolumeTextureEmpty(t *testing.T) {
	blank := dataset.NewSharedImage("b", geom.Vec{}, geom.IdentityRotator(),
		4, 4, 1, 1, 0)
	tex, bounds, err := BuildVolumeTexture("vol",
		[]*dataset.SharedImage{blank}, VolumeOpts{
			Fill:      FillOpts{Min: 0, Max: 1, Format: TexLum8},
			Threshold: 0.5,
		})
	require.NoError(t, err)
	assert.Nil(t, tex)
	assert.True(t, bounds.Empty)

	_, _, err = BuildVolumeTexture("vol", nil, VolumeOpts{})
	assert.Error(t, err)
}

func TestSlabPlanes(t *testing.T) {
	box := geom.EmptyBox()
	box.Extend(geom.Vec{0, 0, 0})
	box.Extend(geom.Vec{1, 1, 1})

	planes := SlabPlanes(box, geom.Vec{0, 0, 1}, 100)
	require.Len(t, planes, 100)
	for i, p := range planes {
		assert.Equal(t, geom.Vec{0, 0, 1}, p.Normal)
		z := p.Point[2]
		assert.GreaterOrEqual(t, float64(z), 0.0)
		assert.LessOrEqual(t, float64(z), 1.0)
		if i > 0 {
			assert.Less(t, float64(z), float64(planes[i-1].Point[2]))
		}
	}

	assert.Nil(t, SlabPlanes(box, geom.Vec{}, 100))
	assert.Nil(t, SlabPlanes(geom.EmptyBox(), geom.Vec{0, 0, 1}, 100))
}
