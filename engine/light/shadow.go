package light

// ShadowMapResolution is the width and height in texels of a shadow map of size ShadowMapSizeLarge.
// Smaller sizes divide it by powers of two.
const ShadowMapResolution = 2048

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum. Controls how much of the scene
// around the view position is captured in the shadow map.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane for shadow projections.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane for the directional light's
// orthographic shadow projection.
const DefaultShadowFar float32 = 200.0

// DefaultShadowBias is the constant depth bias applied to shadow comparisons
// to reduce shadow acne artifacts.
const DefaultShadowBias float32 = 0.001

// DefaultShadowNormalBiasScale is the multiplier applied to the shadow map
// texel world-size to compute the normal-offset bias. Typical values are 2.0–4.0.
const DefaultShadowNormalBiasScale float32 = 3.0

// ShadowMapSize selects the resolution of a light's shadow map.
type ShadowMapSize uint8

const (
	ShadowMapSizeSmall ShadowMapSize = iota
	ShadowMapSizeMedium
	ShadowMapSizeLarge
)

// Resolution returns the width and height of a shadow map of this size in texels.
func (s ShadowMapSize) Resolution() int {
	switch s {
	case ShadowMapSizeSmall:
		return ShadowMapResolution / 4
	case ShadowMapSizeMedium:
		return ShadowMapResolution / 2
	default:
		return ShadowMapResolution
	}
}

// ShadowFilter selects how shadow map samples are filtered.
type ShadowFilter uint8

const (
	ShadowFilterNone ShadowFilter = iota
	ShadowFilterPCF
)

func (f ShadowFilter) String() string {
	if f == ShadowFilterPCF {
		return "pcf"
	}
	return "none"
}

// Shadow is the shadow descriptor of a direct light.
type Shadow struct {
	Enabled bool
	Size    ShadowMapSize

	// CascadeCount is the number of cascades of a directional light shadow: 1, 2 or 4.
	// Other light types ignore it.
	CascadeCount int

	Filter     ShadowFilter
	DepthBias  float32
	NormalBias float32
}

// DefaultShadow returns an enabled, medium sized, single cascade PCF shadow.
func DefaultShadow() Shadow {
	return Shadow{
		Enabled:      true,
		Size:         ShadowMapSizeMedium,
		CascadeCount: 1,
		Filter:       ShadowFilterPCF,
		DepthBias:    DefaultShadowBias,
		NormalBias:   DefaultShadowNormalBiasScale,
	}
}

// Cascades returns the effective cascade count for a light type: 1, 2 or 4 for
// directional lights and 1 otherwise.
func (s Shadow) Cascades(t LightType) int {
	if t != LightTypeDirectional {
		return 1
	}
	switch {
	case s.CascadeCount >= 4:
		return 4
	case s.CascadeCount >= 2:
		return 2
	default:
		return 1
	}
}

// ShadowType packs the shader-relevant shadow configuration into one byte:
// the cascade code in the low bits and the filter in the high nibble.
// Lights with equal shadow types can share one shader group.
type ShadowType byte

const (
	ShadowTypeCascade1    ShadowType = 0x1
	ShadowTypeCascade2    ShadowType = 0x2
	ShadowTypeCascade4    ShadowType = 0x3
	ShadowTypeCascadeMask ShadowType = 0x3

	ShadowTypeFilterPCF  ShadowType = 0x10
	ShadowTypeFilterMask ShadowType = 0xF0
)

// Type returns the shadow type of s for a light of type t. Zero means no shadow.
func (s Shadow) Type(t LightType) ShadowType {
	if !s.Enabled || !t.IsDirect() {
		return 0
	}
	var st ShadowType
	switch s.Cascades(t) {
	case 4:
		st = ShadowTypeCascade4
	case 2:
		st = ShadowTypeCascade2
	default:
		st = ShadowTypeCascade1
	}
	if s.Filter == ShadowFilterPCF {
		st |= ShadowTypeFilterPCF
	}
	return st
}

// CascadeCount decodes the cascade count of st.
func (st ShadowType) CascadeCount() int {
	switch st & ShadowTypeCascadeMask {
	case ShadowTypeCascade4:
		return 4
	case ShadowTypeCascade2:
		return 2
	case ShadowTypeCascade1:
		return 1
	default:
		return 0
	}
}

// Filter decodes the filter of st.
func (st ShadowType) Filter() ShadowFilter {
	if st&ShadowTypeFilterMask == ShadowTypeFilterPCF {
		return ShadowFilterPCF
	}
	return ShadowFilterNone
}
