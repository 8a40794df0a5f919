package color

// Material carries the render-state a figure is drawn with. Fields mirror
// the fixed-function surface parameters plus optional shader program names.
type Material struct {
	Name string

	Diffuse   [3]float32
	Specular  [3]float32
	Shininess float32
	Alpha     float32

	Lighting     bool
	DepthCheck   bool
	DepthWrite   bool
	TexFilter    bool
	VertexColour bool

	PointSize float32

	FragmentProgram string
	VertexProgram   string

	// Spectrum maps field values to colours; nil falls back to greyscale.
	Spectrum *Spectrum

	// SpectrumOnGPU marks fragment programs that do the spectrum lookup
	// in the shader; the colourer then emits raw unit values instead of
	// resolved colours.
	SpectrumOnGPU bool
}

// DefaultMaterial returns an opaque lit material with vertex colours
// enabled, the state most mesh figures start from.
func DefaultMaterial(name string) *Material {
	return &Material{
		Name:         name,
		Diffuse:      [3]float32{1, 1, 1},
		Specular:     [3]float32{0, 0, 0},
		Shininess:    0,
		Alpha:        1,
		Lighting:     true,
		DepthCheck:   true,
		DepthWrite:   true,
		TexFilter:    true,
		VertexColour: true,
		PointSize:    1,
	}
}

// ActiveSpectrum returns the material's spectrum, or the greyscale
// fallback.
func (m *Material) ActiveSpectrum() *Spectrum {
	if m != nil && m.Spectrum != nil {
		return m.Spectrum
	}
	return GreyScale()
}
