package renderer

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// RenderViewBuilderOption is a function that configures a RenderView during construction.
type RenderViewBuilderOption func(*RenderView)

// WithViewIndex sets the index of the view.
//
// Parameters:
//   - index: the view index
//
// Returns:
//   - RenderViewBuilderOption: a function that applies the index option to a RenderView
func WithViewIndex(index int) RenderViewBuilderOption {
	return func(v *RenderView) {
		v.Index = index
	}
}

// WithViewCullingMask sets the entity groups rendered by the view.
//
// Parameters:
//   - mask: the culling mask
//
// Returns:
//   - RenderViewBuilderOption: a function that applies the culling mask option to a RenderView
func WithViewCullingMask(mask common.EntityGroupMask) RenderViewBuilderOption {
	return func(v *RenderView) {
		v.CullingMask = mask
	}
}

// WithViewport sets the size of the view in pixels.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RenderViewBuilderOption: a function that applies the viewport option to a RenderView
func WithViewport(width, height int) RenderViewBuilderOption {
	return func(v *RenderView) {
		v.Width = width
		v.Height = height
	}
}

// WithLookAt places a perspective camera at eye looking at target.
//
// Parameters:
//   - eye: the camera position
//   - target: the point looked at
//   - fovYDeg: the vertical field of view in degrees
//   - near: the near plane distance
//   - far: the far plane distance
//
// Returns:
//   - RenderViewBuilderOption: a function that applies the camera option to a RenderView
func WithLookAt(eye, target common.Vec3, fovYDeg, near, far float32) RenderViewBuilderOption {
	return func(v *RenderView) {
		aspect := float32(1)
		if v.Height > 0 {
			aspect = float32(v.Width) / float32(v.Height)
		}
		v.Position = eye
		v.View = common.LookAt(eye, target, common.Vec3{0, 1, 0})
		v.Projection = common.Perspective(fovYDeg*math32.Pi/180, aspect, near, far)
	}
}
