package light

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

// LightType identifies the variant of a light. The set is closed; renderers dispatch on it.
type LightType uint8

const (
	// LightTypeDirectional represents an infinitely distant light source with parallel rays (e.g. the sun).
	// Has no bounding box and is never frustum culled.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light emitting in all directions from a position, attenuated by range.
	LightTypePoint

	// LightTypeSpot represents a cone-shaped light at a position pointing along a direction.
	LightTypeSpot

	// LightTypeAmbient represents uniform environment lighting.
	LightTypeAmbient

	// LightTypeSkybox represents image based environment lighting from a skybox.
	LightTypeSkybox
)

// LightTypeCount is the number of light variants.
const LightTypeCount = 5

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	case LightTypeSkybox:
		return "skybox"
	default:
		return fmt.Sprintf("LightType(%d)", uint8(t))
	}
}

// IsDirect reports whether lights of this type illuminate along a direction and may cast shadows.
func (t LightType) IsDirect() bool {
	return t <= LightTypeSpot
}

// IsEnvironment reports whether lights of this type are environment lights.
func (t LightType) IsEnvironment() bool {
	return t == LightTypeAmbient || t == LightTypeSkybox
}

type lightImpl struct {
	id          uuid.UUID
	lightType   LightType
	group       common.EntityGroup
	cullingMask common.EntityGroupMask
	position    common.Vec3
	direction   common.Vec3
	color       common.Vec3
	intensity   float32
	lightRange  float32
	innerCone   float32 // stored as cos(angle in radians)
	outerCone   float32 // stored as cos(angle in radians)
	enabled     bool
	shadow      *Shadow
}

// Light is one active light instance. Every variant shares the same capability record: an
// identity, entity group and culling mask, a color and intensity, an optional shadow
// descriptor (direct lights only) and an optional bounding box (point and spot lights).
// Lights are owned by the scene and read by the lighting renderers once per frame.
type Light interface {
	// ID returns the stable identity of the light. Permutation parameter keys are built from it.
	//
	// Returns:
	//   - uuid.UUID: the light id
	ID() uuid.UUID

	// Type returns the variant of the light.
	//
	// Returns:
	//   - LightType: the light variant
	Type() LightType

	// Group returns the entity group the light entity belongs to.
	//
	// Returns:
	//   - common.EntityGroup: the entity group
	Group() common.EntityGroup

	// CullingMask returns the entity groups the light illuminates.
	//
	// Returns:
	//   - common.EntityGroupMask: the culling mask
	CullingMask() common.EntityGroupMask

	// Position returns the world-space position of the light.
	// Only meaningful for point and spot lights.
	//
	// Returns:
	//   - common.Vec3: the position
	Position() common.Vec3

	// Direction returns the normalized world-space direction the light travels.
	// Only meaningful for directional and spot lights.
	//
	// Returns:
	//   - common.Vec3: the direction
	Direction() common.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - common.Vec3: the color
	Color() common.Vec3

	// Intensity returns the scalar intensity multiplier.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// ComputeColor returns the color premultiplied by the intensity, as uploaded to shaders.
	//
	// Returns:
	//   - common.Vec3: color * intensity
	ComputeColor() common.Vec3

	// Range returns the attenuation cutoff distance of point and spot lights.
	//
	// Returns:
	//   - float32: the range in world units
	Range() float32

	// InnerCone returns the cosine of the spot light inner half-angle.
	//
	// Returns:
	//   - float32: cos(inner half-angle)
	InnerCone() float32

	// OuterCone returns the cosine of the spot light outer half-angle.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// Enabled reports whether the light participates in rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Shadow returns the shadow descriptor of a direct light.
	//
	// Returns:
	//   - *Shadow: the descriptor, nil for lights without one
	Shadow() *Shadow

	// HasBoundingBox reports whether the light has a finite volume of influence.
	// Point and spot lights do; directional and environment lights do not.
	//
	// Returns:
	//   - bool: true if BoundingBox is meaningful
	HasBoundingBox() bool

	// BoundingBox returns the world-space box enclosing the light's volume of influence.
	//
	// Returns:
	//   - common.BoundingBox: the bounding box, the zero box when HasBoundingBox is false
	BoundingBox() common.BoundingBox

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - p: the new position
	SetPosition(p common.Vec3)

	// SetDirection sets the direction of the light. The direction is normalized before storing.
	//
	// Parameters:
	//   - d: the new direction
	SetDirection(d common.Vec3)

	// SetColor sets the linear RGB color of the light.
	//
	// Parameters:
	//   - c: the new color
	SetColor(c common.Vec3)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the new intensity
	SetIntensity(intensity float32)

	// SetRange sets the attenuation cutoff distance.
	//
	// Parameters:
	//   - lightRange: the new range
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer half-angles of a spot light.
	//
	// Parameters:
	//   - innerDeg: inner half-angle in degrees
	//   - outerDeg: outer half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: the new state
	SetEnabled(enabled bool)

	// SetGroup sets the entity group of the light.
	//
	// Parameters:
	//   - group: the entity group
	SetGroup(group common.EntityGroup)

	// SetCullingMask sets the entity groups the light illuminates.
	//
	// Parameters:
	//   - mask: the culling mask
	SetCullingMask(mask common.EntityGroupMask)

	// SetShadow replaces the shadow descriptor. Passing nil removes it.
	// Panics for environment lights, which cannot cast shadows.
	//
	// Parameters:
	//   - shadow: the new descriptor
	SetShadow(shadow *Shadow)
}

var _ Light = &lightImpl{}

// NewLight creates a new light of the given type with default values and applies the given options.
// Defaults: white color, intensity 1, range 10, direction (0, -1, 0), spot cone 25/35 degrees,
// entity group 0, every group in the culling mask, enabled, no shadow, random id.
//
// Parameters:
//   - lightType: the variant of the light
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	if lightType >= LightTypeCount {
		panic(fmt.Sprintf("light: unknown light type %d", lightType))
	}
	l := &lightImpl{
		id:          uuid.New(),
		lightType:   lightType,
		cullingMask: common.EntityGroupMaskAll,
		direction:   common.Vec3{0, -1, 0},
		color:       common.Vec3{1, 1, 1},
		intensity:   1.0,
		lightRange:  10.0,
		innerCone:   0.9063, // cos(25°)
		outerCone:   0.8192, // cos(35°)
		enabled:     true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.shadow != nil && !lightType.IsDirect() {
		panic(fmt.Sprintf("light: %s lights cannot cast shadows", lightType))
	}
	return l
}

func (l *lightImpl) ID() uuid.UUID {
	return l.id
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Group() common.EntityGroup {
	return l.group
}

func (l *lightImpl) CullingMask() common.EntityGroupMask {
	return l.cullingMask
}

func (l *lightImpl) Position() common.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() common.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() common.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) ComputeColor() common.Vec3 {
	return l.color.Scale(l.intensity)
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) Shadow() *Shadow {
	return l.shadow
}

func (l *lightImpl) HasBoundingBox() bool {
	return l.lightType == LightTypePoint || l.lightType == LightTypeSpot
}

func (l *lightImpl) BoundingBox() common.BoundingBox {
	if !l.HasBoundingBox() {
		return common.BoundingBox{}
	}
	return common.BoundingBoxFromSphere(l.position, l.lightRange)
}

func (l *lightImpl) SetPosition(p common.Vec3) {
	l.position = p
}

func (l *lightImpl) SetDirection(d common.Vec3) {
	l.direction = d.Normalize()
}

func (l *lightImpl) SetColor(c common.Vec3) {
	l.color = c
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = lightRange
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetGroup(group common.EntityGroup) {
	l.group = group
}

func (l *lightImpl) SetCullingMask(mask common.EntityGroupMask) {
	l.cullingMask = mask
}

func (l *lightImpl) SetShadow(shadow *Shadow) {
	if shadow != nil && !l.lightType.IsDirect() {
		panic(fmt.Sprintf("light: %s lights cannot cast shadows", l.lightType))
	}
	l.shadow = shadow
}

// ShadowEnabled reports whether l has an enabled shadow descriptor.
func ShadowEnabled(l Light) bool {
	s := l.Shadow()
	return s != nil && s.Enabled
}

// Compare orders lights by id. Renderers sort with it so light order never depends on
// insertion order.
func Compare(a, b Light) int {
	ia, ib := a.ID(), b.ID()
	for i := range ia {
		if ia[i] != ib[i] {
			if ia[i] < ib[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
