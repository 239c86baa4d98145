package renderer

import (
	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// RenderView is one camera's per-frame rendering context. Views are indexed in the order
// they are handed to the lighting feature; per-view lighting state is never shared.
type RenderView struct {
	Name  string
	Index int

	// CullingMask selects the entity groups rendered by the view.
	CullingMask common.EntityGroupMask

	View           common.Mat4
	Projection     common.Mat4
	ViewProjection common.Mat4
	Frustum        common.Frustum
	Position       common.Vec3

	Width  int
	Height int
}

// NewRenderView creates a view with an identity camera and applies the given options.
//
// Parameters:
//   - name: the debug name of the view
//   - options: variadic list of RenderViewBuilderOption functions
//
// Returns:
//   - *RenderView: the view
func NewRenderView(name string, options ...RenderViewBuilderOption) *RenderView {
	v := &RenderView{
		Name:        name,
		CullingMask: common.EntityGroupMaskAll,
		View:        common.Identity4(),
		Projection:  common.Identity4(),
		Width:       1280,
		Height:      720,
	}
	for _, opt := range options {
		opt(v)
	}
	v.UpdateMatrices()
	return v
}

// SetCamera replaces the camera matrices and recomputes the derived state.
//
// Parameters:
//   - view: the world to view matrix
//   - projection: the projection matrix
//   - position: the camera position in world space
func (v *RenderView) SetCamera(view, projection common.Mat4, position common.Vec3) {
	v.View = view
	v.Projection = projection
	v.Position = position
	v.UpdateMatrices()
}

// UpdateMatrices recomputes the view-projection matrix and the frustum.
func (v *RenderView) UpdateMatrices() {
	v.ViewProjection = common.Mul4(v.Projection, v.View)
	v.Frustum = common.ExtractFrustumFromMatrix(v.ViewProjection)
}
