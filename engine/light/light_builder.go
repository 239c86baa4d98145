package light

import (
	"github.com/chewxy/math32"
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithID is an option builder that sets a fixed identity instead of a random one.
//
// Parameters:
//   - id: the light id
//
// Returns:
//   - LightBuilderOption: a function that applies the id option to a lightImpl
func WithID(id uuid.UUID) LightBuilderOption {
	return func(l *lightImpl) {
		l.id = id
	}
}

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = common.Vec3{x, y, z}
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing.
//
// Parameters:
//   - x: the x direction component
//   - y: the y direction component
//   - z: the z direction component
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = common.Vec3{x, y, z}.Normalize()
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = common.Vec3{r, g, b}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange is an option builder that sets the attenuation cutoff distance for point and spot lights.
//
// Parameters:
//   - r: the range in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightImpl
func WithRange(r float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = r
	}
}

// WithSpotCone is an option builder that sets the inner and outer cone half-angles for spot lights.
// The angles are converted to cosines before storing.
//
// Parameters:
//   - innerDeg: the inner cone half-angle in degrees (full intensity)
//   - outerDeg: the outer cone half-angle in degrees (falloff to zero)
//
// Returns:
//   - LightBuilderOption: a function that applies the spot cone option to a lightImpl
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.innerCone = cosDeg(innerDeg)
		l.outerCone = cosDeg(outerDeg)
	}
}

// WithEnabled is an option builder that sets whether the light is active.
//
// Parameters:
//   - enabled: true to enable the light, false to disable
//
// Returns:
//   - LightBuilderOption: a function that applies the enabled option to a lightImpl
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

// WithGroup is an option builder that sets the entity group of the light.
//
// Parameters:
//   - group: the entity group
//
// Returns:
//   - LightBuilderOption: a function that applies the group option to a lightImpl
func WithGroup(group common.EntityGroup) LightBuilderOption {
	return func(l *lightImpl) {
		l.group = group
	}
}

// WithCullingMask is an option builder that sets the entity groups the light illuminates.
//
// Parameters:
//   - mask: the culling mask
//
// Returns:
//   - LightBuilderOption: a function that applies the culling mask option to a lightImpl
func WithCullingMask(mask common.EntityGroupMask) LightBuilderOption {
	return func(l *lightImpl) {
		l.cullingMask = mask
	}
}

// WithShadow is an option builder that attaches a shadow descriptor to a direct light.
// NewLight panics when the option is used on an environment light.
//
// Parameters:
//   - shadow: the shadow descriptor, copied
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a lightImpl
func WithShadow(shadow Shadow) LightBuilderOption {
	return func(l *lightImpl) {
		l.shadow = &shadow
	}
}

func cosDeg(deg float32) float32 {
	return math32.Cos(deg * math32.Pi / 180)
}
