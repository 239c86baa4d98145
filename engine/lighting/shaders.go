package lighting

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// Shader class names of the light groups.
const (
	classForwardShading      = "ForwardShadingBase"
	classDirectionalGroup    = "LightDirectionalGroup"
	classPointGroup          = "LightPointGroup"
	classSpotGroup           = "LightSpotGroup"
	classTiledGroup          = "LightTiledGroup"
	classAmbient             = "EnvironmentLightAmbient"
	classSkybox              = "EnvironmentLightSkybox"
	classShadowFilters       = "ShadowFilters"
	classDirectionalReceiver = "ShadowMapReceiverDirectional"
	classSpotReceiver        = "ShadowMapReceiverSpot"
	classPointReceiver       = "ShadowMapReceiverPoint"
	structLight              = "Light"
	structLightHeader        = "LightHeader"
)

const forwardShadingBody = `//@oxy:member ForwardShading.World mat4
//@oxy:member ForwardShading.EyePositionWS vec4
//@oxy:include ShadowFilters

struct SurfaceInput {
    position_ws: vec3<f32>,
    normal_ws: vec3<f32>,
    albedo: vec3<f32>,
};

fn attenuate(distance: f32, light_range: f32) -> f32 {
    let ratio = clamp(distance / light_range, 0.0, 1.0);
    let falloff = 1.0 - ratio * ratio;
    return falloff * falloff / (distance * distance + 1.0);
}`

const shadowFiltersStruct = `const SHADOW_FILTER_none: u32 = 0u;
const SHADOW_FILTER_pcf: u32 = 1u;`

const directionalGroupBody = `//@oxy:member DirectLightGroup.LightCount i32
//@oxy:member LightDirectionalGroup.DirectionsWS vec3 $0
//@oxy:member LightDirectionalGroup.Colors vec3 $0

fn directional_$slot(s: SurfaceInput, i: i32) -> vec3<f32> {
    let l = -normalize(PerLighting.LightDirectionalGroup_DirectionsWS_$slot[i]);
    let n_dot_l = max(dot(s.normal_ws, l), 0.0);
    return PerLighting.LightDirectionalGroup_Colors_$slot[i] * n_dot_l * s.albedo;
}`

const pointGroupBody = `//@oxy:member DirectLightGroup.LightCount i32
//@oxy:member LightPointGroup.PositionsWS vec3 $0
//@oxy:member LightPointGroup.Colors vec3 $0
//@oxy:member LightPointGroup.Ranges f32 $0

fn point_$slot(s: SurfaceInput, i: i32) -> vec3<f32> {
    let to_light = PerLighting.LightPointGroup_PositionsWS_$slot[i] - s.position_ws;
    let distance = length(to_light);
    let n_dot_l = max(dot(s.normal_ws, to_light / distance), 0.0);
    let att = attenuate(distance, PerLighting.LightPointGroup_Ranges_$slot[i]);
    return PerLighting.LightPointGroup_Colors_$slot[i] * n_dot_l * att * s.albedo;
}`

const spotGroupBody = `//@oxy:member DirectLightGroup.LightCount i32
//@oxy:member LightSpotGroup.PositionsWS vec3 $0
//@oxy:member LightSpotGroup.DirectionsWS vec3 $0
//@oxy:member LightSpotGroup.Colors vec3 $0
//@oxy:member LightSpotGroup.Ranges f32 $0
//@oxy:member LightSpotGroup.Cones vec4 $0

fn spot_$slot(s: SurfaceInput, i: i32) -> vec3<f32> {
    let to_light = PerLighting.LightSpotGroup_PositionsWS_$slot[i] - s.position_ws;
    let distance = length(to_light);
    let l = to_light / distance;
    let cones = PerLighting.LightSpotGroup_Cones_$slot[i];
    let cos_angle = dot(-l, normalize(PerLighting.LightSpotGroup_DirectionsWS_$slot[i]));
    let cone = smoothstep(cones.y, cones.x, cos_angle);
    let att = attenuate(distance, PerLighting.LightSpotGroup_Ranges_$slot[i]);
    return PerLighting.LightSpotGroup_Colors_$slot[i] * max(dot(s.normal_ws, l), 0.0) * cone * att * s.albedo;
}`

const directionalReceiverBody = `//@oxy:member ShadowMapReceiverDirectional.WorldToShadow mat4 $2
//@oxy:member ShadowMapReceiverDirectional.AtlasRects vec4 $2
//@oxy:member ShadowMapReceiverDirectional.CascadeSplits vec4 $0
//@oxy:member ShadowMapReceiverDirectional.Biases vec4 $0
//@oxy:resource ShadowMapReceiverDirectional.ShadowMapTexture texture_depth
//@oxy:resource ShadowMapReceiverDirectional.ShadowMapSampler sampler_comparison

const CASCADES_$slot: i32 = $1;
const FILTER_$slot: u32 = SHADOW_FILTER_$3;

fn shadow_$slot(s: SurfaceInput, i: i32, view_depth: f32) -> f32 {
    var cascade = CASCADES_$slot - 1;
    for (var c = 0; c < CASCADES_$slot; c++) {
        if (view_depth < PerLighting.ShadowMapReceiverDirectional_CascadeSplits_$slot[i][c]) {
            cascade = c;
            break;
        }
    }
    return 1.0;
}`

const spotReceiverBody = `//@oxy:member ShadowMapReceiverSpot.WorldToShadow mat4 $0
//@oxy:member ShadowMapReceiverSpot.AtlasRects vec4 $0
//@oxy:member ShadowMapReceiverSpot.Biases vec4 $0
//@oxy:resource ShadowMapReceiverSpot.ShadowMapTexture texture_depth
//@oxy:resource ShadowMapReceiverSpot.ShadowMapSampler sampler_comparison

const FILTER_$slot: u32 = SHADOW_FILTER_$1;

fn shadow_$slot(s: SurfaceInput, i: i32) -> f32 {
    let p = PerLighting.ShadowMapReceiverSpot_WorldToShadow_$slot[i] * vec4<f32>(s.position_ws, 1.0);
    let rect = PerLighting.ShadowMapReceiverSpot_AtlasRects_$slot[i];
    let uv = rect.xy + (p.xy / p.w * vec2<f32>(0.5, -0.5) + 0.5) * rect.zw;
    let bias = PerLighting.ShadowMapReceiverSpot_Biases_$slot[i].x;
    return textureSampleCompare(ShadowMapReceiverSpot_ShadowMapTexture_$slot, ShadowMapReceiverSpot_ShadowMapSampler_$slot, uv, p.z / p.w - bias);
}`

const pointReceiverBody = `//@oxy:member ShadowMapReceiverPoint.WorldToShadow mat4 $1
//@oxy:member ShadowMapReceiverPoint.AtlasRects vec4 $1
//@oxy:member ShadowMapReceiverPoint.Biases vec4 $0
//@oxy:resource ShadowMapReceiverPoint.ShadowMapTexture texture_depth
//@oxy:resource ShadowMapReceiverPoint.ShadowMapSampler sampler_comparison

const FILTER_$slot: u32 = SHADOW_FILTER_$2;

fn cube_face_$slot(d: vec3<f32>) -> i32 {
    let a = abs(d);
    if (a.x >= a.y && a.x >= a.z) { return select(1, 0, d.x > 0.0); }
    if (a.y >= a.z) { return select(3, 2, d.y > 0.0); }
    return select(5, 4, d.z > 0.0);
}`

const tiledGroupBody = `//@oxy:member LightTiledGroup.TileCountX u32
//@oxy:member LightTiledGroup.LightCount u32
//@oxy:resource LightTiledGroup.Lights storage
//@oxy:resource LightTiledGroup.TileLights storage
//@oxy:include Light
//@oxy:include LightHeader

fn tiled_$slot(s: SurfaceInput, frag_coord: vec2<f32>) -> vec3<f32> {
    let tile = vec2<u32>(frag_coord) / 16u;
    let tile_index = tile.y * PerLighting.LightTiledGroup_TileCountX_$slot + tile.x;
    let offset = LightTiledGroup_TileLights_$slot[tile_index * 2u];
    let count = LightTiledGroup_TileLights_$slot[tile_index * 2u + 1u];
    var color = vec3<f32>(0.0);
    for (var i = 0u; i < count; i++) {
        let light_index = LightTiledGroup_TileLights_$slot[offset + i];
        color += vec3<f32>(f32(light_index) * 0.0);
    }
    return color;
}`

const ambientBody = `//@oxy:member EnvironmentLightAmbient.Color vec3

fn environment_$slot(s: SurfaceInput) -> vec3<f32> {
    return PerLighting.EnvironmentLightAmbient_Color_$slot * s.albedo;
}`

const skyboxBody = `//@oxy:member EnvironmentLightSkybox.Color vec3
//@oxy:member EnvironmentLightSkybox.Intensity f32

fn environment_$slot(s: SurfaceInput) -> vec3<f32> {
    let up = s.normal_ws.y * 0.5 + 0.5;
    return PerLighting.EnvironmentLightSkybox_Color_$slot * PerLighting.EnvironmentLightSkybox_Intensity_$slot * up * s.albedo;
}`

// RegisterShaders declares the light shader classes and the ForwardShadingEffect generator.
// The generator mixes the shading base and composes the DirectLightGroupsKey and
// EnvironmentLightsKey sources into the directLightGroups[i] and environmentLights[i] slots.
//
// Parameters:
//   - registry: the registry to populate
//
// Returns:
//   - error: an error if any class or the effect is already registered
func RegisterShaders(registry *shader.Registry) error {
	registry.RegisterStruct(classShadowFilters, shadowFiltersStruct)
	registry.RegisterStruct(structLight, light.GPULightSource)
	registry.RegisterStruct(structLightHeader, light.GPULightHeaderSource)

	classes := []shader.ClassDecl{
		{Name: classForwardShading, Body: forwardShadingBody},
		{Name: classDirectionalGroup, ResourceGroup: LightingResourceGroup, Body: directionalGroupBody},
		{Name: classPointGroup, ResourceGroup: LightingResourceGroup, Body: pointGroupBody},
		{Name: classSpotGroup, ResourceGroup: LightingResourceGroup, Body: spotGroupBody},
		{Name: classDirectionalReceiver, ResourceGroup: LightingResourceGroup, Body: directionalReceiverBody},
		{Name: classSpotReceiver, ResourceGroup: LightingResourceGroup, Body: spotReceiverBody},
		{Name: classPointReceiver, ResourceGroup: LightingResourceGroup, Body: pointReceiverBody},
		{Name: classTiledGroup, ResourceGroup: LightingResourceGroup, Body: tiledGroupBody},
		{Name: classAmbient, ResourceGroup: LightingResourceGroup, Body: ambientBody},
		{Name: classSkybox, ResourceGroup: LightingResourceGroup, Body: skyboxBody},
	}
	for _, decl := range classes {
		if err := registry.RegisterClass(decl); err != nil {
			return fmt.Errorf("lighting: %w", err)
		}
	}
	if err := registry.RegisterEffect(ForwardShadingEffect, forwardShading); err != nil {
		return fmt.Errorf("lighting: %w", err)
	}
	return nil
}

func forwardShading(ctx *shader.MixinContext) error {
	ctx.Mixin(shader.NewClassSource(classForwardShading))
	for i, src := range ctx.Sources(DirectLightGroupsKey) {
		ctx.Compose(shader.ComposeName(DirectLightGroupsSlot, i), src)
	}
	for i, src := range ctx.Sources(EnvironmentLightsKey) {
		ctx.Compose(shader.ComposeName(EnvironmentLightsSlot, i), src)
	}
	return nil
}
