package camera

import (
	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// OrbitCameraOption is a functional option for configuring an OrbitCamera.
type OrbitCameraOption func(*orbitCameraImpl)

// WithTarget sets the orbit center.
//
// Parameters:
//   - target: the point the camera looks at
//
// Returns:
//   - OrbitCameraOption: functional option to set the target
func WithTarget(target common.Vec3) OrbitCameraOption {
	return func(c *orbitCameraImpl) {
		c.target = target
	}
}

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - OrbitCameraOption: functional option to set the radius
func WithRadius(radius float32) OrbitCameraOption {
	return func(c *orbitCameraImpl) {
		c.radius = radius
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - minRadius: closest distance to the target
//   - maxRadius: farthest distance from the target
//
// Returns:
//   - OrbitCameraOption: functional option to set the bounds
func WithRadiusBounds(minRadius, maxRadius float32) OrbitCameraOption {
	return func(c *orbitCameraImpl) {
		c.minRadius = minRadius
		c.maxRadius = maxRadius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - OrbitCameraOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) OrbitCameraOption {
	return func(c *orbitCameraImpl) {
		c.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - OrbitCameraOption: functional option to set the elevation
func WithElevation(elevation float32) OrbitCameraOption {
	return func(c *orbitCameraImpl) {
		c.elevation = elevation
	}
}

// WithPerspective sets the projection.
//
// Parameters:
//   - fovYDeg: vertical field of view in degrees
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - OrbitCameraOption: functional option to set the projection
func WithPerspective(fovYDeg, near, far float32) OrbitCameraOption {
	return func(c *orbitCameraImpl) {
		c.fovY = fovYDeg * math32.Pi / 180
		c.near = near
		c.far = far
	}
}
