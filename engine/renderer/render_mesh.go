package renderer

import (
	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// RenderMesh is a drawable as seen by the lighting feature: its entity group, world bounds and
// the parameter collections it contributes to effect compilation, in increasing priority.
type RenderMesh struct {
	Name       string
	EffectName string

	Group            common.EntityGroup
	BoundingBox      common.BoundingBox
	IsShadowReceiver bool

	Material parameter.ParameterCollection
	Model    parameter.ParameterCollection
	Mesh     parameter.ParameterCollection
}

// NewRenderMesh creates a shadow receiving mesh with empty parameter collections.
//
// Parameters:
//   - name: the debug name
//   - effectName: the effect the mesh is drawn with
//   - bounds: the world-space bounding box
//
// Returns:
//   - *RenderMesh: the mesh
func NewRenderMesh(name, effectName string, bounds common.BoundingBox) *RenderMesh {
	return &RenderMesh{
		Name:             name,
		EffectName:       effectName,
		BoundingBox:      bounds,
		IsShadowReceiver: true,
		Material:         parameter.NewParameterCollection(parameter.WithName(name + ".material")),
		Model:            parameter.NewParameterCollection(parameter.WithName(name + ".model")),
		Mesh:             parameter.NewParameterCollection(parameter.WithName(name + ".mesh")),
	}
}

// ParameterCollections returns the material, model and mesh collections.
func (m *RenderMesh) ParameterCollections() []parameter.ParameterCollection {
	return []parameter.ParameterCollection{m.Material, m.Model, m.Mesh}
}
