package lighting

import (
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
)

// LightingResourceGroup is the logical resource group holding every light group member.
const LightingResourceGroup = "PerLighting"

// ForwardShadingEffect is the effect generator registered by RegisterShaders.
const ForwardShadingEffect = "ForwardShadingEffect"

// Composition slot bases. Slot i of a list is ComposeName(base, i).
const (
	DirectLightGroupsSlot = "directLightGroups"
	EnvironmentLightsSlot = "environmentLights"
)

// Permutation keys validated on every lit render effect.
var (
	DirectLightGroupsKey = parameter.NewKey("Lighting.DirectLightGroups", parameter.KindShaderSources)
	EnvironmentLightsKey = parameter.NewKey("Lighting.EnvironmentLights", parameter.KindShaderSources)
)

// Light group members. The compiled names are composed with the group's slot.
var (
	lightCountKey = parameter.NewKey("DirectLightGroup.LightCount", parameter.KindInt)

	directionalDirectionsKey = parameter.NewKey("LightDirectionalGroup.DirectionsWS", parameter.KindVector3)
	directionalColorsKey     = parameter.NewKey("LightDirectionalGroup.Colors", parameter.KindVector3)

	pointPositionsKey = parameter.NewKey("LightPointGroup.PositionsWS", parameter.KindVector3)
	pointColorsKey    = parameter.NewKey("LightPointGroup.Colors", parameter.KindVector3)
	pointRangesKey    = parameter.NewKey("LightPointGroup.Ranges", parameter.KindFloat)

	spotPositionsKey  = parameter.NewKey("LightSpotGroup.PositionsWS", parameter.KindVector3)
	spotDirectionsKey = parameter.NewKey("LightSpotGroup.DirectionsWS", parameter.KindVector3)
	spotColorsKey     = parameter.NewKey("LightSpotGroup.Colors", parameter.KindVector3)
	spotRangesKey     = parameter.NewKey("LightSpotGroup.Ranges", parameter.KindFloat)
	spotConesKey      = parameter.NewKey("LightSpotGroup.Cones", parameter.KindVector4)

	tiledTileCountXKey = parameter.NewKey("LightTiledGroup.TileCountX", parameter.KindInt)
	tiledLightCountKey = parameter.NewKey("LightTiledGroup.LightCount", parameter.KindInt)
	tiledLightsKey     = parameter.NewKey("LightTiledGroup.Lights", parameter.KindResource)
	tiledTileLightsKey = parameter.NewKey("LightTiledGroup.TileLights", parameter.KindResource)

	ambientColorKey = parameter.NewKey("EnvironmentLightAmbient.Color", parameter.KindVector3)

	skyboxColorKey     = parameter.NewKey("EnvironmentLightSkybox.Color", parameter.KindVector3)
	skyboxIntensityKey = parameter.NewKey("EnvironmentLightSkybox.Intensity", parameter.KindFloat)
)

// shadowReceiverKeys names the members of one shadow receiver class.
type shadowReceiverKeys struct {
	class         string
	worldToShadow parameter.Key
	atlasRects    parameter.Key
	biases        parameter.Key
	cascadeSplits parameter.Key
	texture       parameter.Key
	sampler       parameter.Key
}

func newShadowReceiverKeys(class string) shadowReceiverKeys {
	return shadowReceiverKeys{
		class:         class,
		worldToShadow: parameter.NewKey(class+".WorldToShadow", parameter.KindMatrix),
		atlasRects:    parameter.NewKey(class+".AtlasRects", parameter.KindVector4),
		biases:        parameter.NewKey(class+".Biases", parameter.KindVector4),
		cascadeSplits: parameter.NewKey(class+".CascadeSplits", parameter.KindVector4),
		texture:       parameter.NewKey(class+".ShadowMapTexture", parameter.KindResource),
		sampler:       parameter.NewKey(class+".ShadowMapSampler", parameter.KindResource),
	}
}

var (
	directionalReceiverKeys = newShadowReceiverKeys("ShadowMapReceiverDirectional")
	spotReceiverKeys        = newShadowReceiverKeys("ShadowMapReceiverSpot")
	pointReceiverKeys       = newShadowReceiverKeys("ShadowMapReceiverPoint")
)

func composed(key parameter.Key, slot string) string {
	return key.ComposeWith(slot).Name()
}
