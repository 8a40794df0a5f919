/*package repr owns the visual incarnations of scene objects: their
figures, materials, textures, and transforms, and the lifecycle that moves
buffers from worker threads into the scene backend on the main thread.
*/
package repr

import (
	"github.com/medview/medview/geom"
	"github.com/medview/medview/slicing"
	"github.com/medview/medview/volrender"
)

// PrimitiveKind selects how a figure's vertex buffer is drawn.
type PrimitiveKind int

const (
	PointList PrimitiveKind = iota
	LineList
	TriangleList
	TextureVolume
	Ribbon
	BillboardPoint
	Text
)

func (k PrimitiveKind) String() string {
	switch k {
	case PointList:
		return "point-list"
	case LineList:
		return "line-list"
	case TriangleList:
		return "triangle-list"
	case TextureVolume:
		return "texture-volume"
	case Ribbon:
		return "ribbon"
	case BillboardPoint:
		return "billboard-point"
	case Text:
		return "text"
	}
	return "unknown"
}

// LightKind selects a scene light model.
type LightKind int

const (
	LightDirectional LightKind = iota
	LightPoint
	LightSpot
)

// ProgramStage addresses one half of a material's shader pair.
type ProgramStage int

const (
	StageVertex ProgramStage = iota
	StageFragment
)

// SceneBackend is the rendering engine as the Repr layer sees it. Every
// method must be called from the main thread only; workers reach it
// through parallel.MainDispatcher.
type SceneBackend interface {
	CreateFigure(name, materialName string, kind PrimitiveKind) error
	CreateTexture(name string, w, h, depth int, format volrender.TexFormat) error
	CreateMaterial(name string) error
	CreateLight(name string, kind LightKind) error

	SetFigureData(figure string, buf slicing.MeshBuffers) error
	SetFigureTransform(figure string, t geom.Transform) error
	SetVisible(figure string, visible bool) error
	SetRenderQueue(figure, queue string) error
	SetGPUParam(material string, stage ProgramStage, name string, val slicing.Uniform) error

	RemoveFigure(figure string) error
}
