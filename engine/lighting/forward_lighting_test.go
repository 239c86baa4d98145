package lighting

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/dynamic_effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader/compiler"
)

const unlitEffect = "UnlitEffect"

type lightingHarness struct {
	t         *testing.T
	fl        ForwardLighting
	system    effect.EffectSystem
	compilers map[string]dynamic_effect.DynamicEffectCompiler
	view      *renderer.RenderView
	views     []*renderer.RenderView
}

func newLightingHarness(t *testing.T, options ...ForwardLightingBuilderOption) *lightingHarness {
	t.Helper()
	reg := newLightingRegistry(t)
	require.NoError(t, reg.RegisterEffect(unlitEffect, func(ctx *shader.MixinContext) error {
		ctx.Mixin(shader.NewClassSource(classForwardShading))
		return nil
	}))
	system, err := effect.NewEffectSystem(compiler.NewEffectCompiler(reg))
	require.NoError(t, err)
	t.Cleanup(system.Destroy)

	view := testView()
	return &lightingHarness{
		t:         t,
		fl:        NewForwardLighting(options...),
		system:    system,
		compilers: make(map[string]dynamic_effect.DynamicEffectCompiler),
		view:      view,
		views:     []*renderer.RenderView{view},
	}
}

func (h *lightingHarness) node(name, effectName string, receiver bool) *renderer.RenderNode {
	bounds := common.BoundingBox{Min: common.Vec3{-5, -5, -5}, Max: common.Vec3{5, 5, 5}}
	mesh := renderer.NewRenderMesh(name, effectName, bounds)
	mesh.IsShadowReceiver = receiver
	return renderer.NewRenderNode(mesh, h.view, renderer.NewRenderEffect(mesh))
}

// meshNode creates a forward shaded node of a receiver mesh with the given bounds.
func (h *lightingHarness) meshNode(name string, bounds common.BoundingBox) *renderer.RenderNode {
	mesh := renderer.NewRenderMesh(name, ForwardShadingEffect, bounds)
	return renderer.NewRenderNode(mesh, h.view, renderer.NewRenderEffect(mesh))
}

// frame runs one full frame and returns the number of lit nodes.
func (h *lightingHarness) frame(nodes []*renderer.RenderNode, lights []light.Light) int {
	h.t.Helper()
	h.fl.Collect(h.views, lights)
	h.fl.PrepareEffectPermutations(nodes)

	updated := make(map[*renderer.RenderEffect]struct{})
	for _, n := range nodes {
		if _, ok := updated[n.Effect]; ok {
			continue
		}
		updated[n.Effect] = struct{}{}
		c, ok := h.compilers[n.Effect.EffectName]
		if !ok {
			c = dynamic_effect.NewDynamicEffectCompiler(h.system, n.Effect.EffectName)
			h.compilers[n.Effect.EffectName] = c
		}
		_, err := c.Update(context.Background(), n.Effect.Instance, nil)
		require.NoError(h.t, err)
		n.Effect.Sync()
	}
	return h.fl.Prepare(nodes)
}

func (h *lightingHarness) entry(node *renderer.RenderNode) *LightParametersPermutationEntry {
	h.t.Helper()
	e, ok := h.fl.ParameterEntry(node)
	require.True(h.t, ok)
	return e
}

func readVec3(data []byte, offset int) common.Vec3 {
	var v common.Vec3
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset+i*4:]))
	}
	return v
}

func sunLight(id int) light.Light {
	return light.NewLight(light.LightTypeDirectional, light.WithID(lightID(id)),
		light.WithDirection(0, -1, 0), light.WithColor(0.25, 0.5, 1), light.WithIntensity(2))
}

func TestForwardLightingBindsLightValues(t *testing.T) {
	h := newLightingHarness(t)
	node := h.node("crate", ForwardShadingEffect, true)
	sun := sunLight(1)
	ambient := light.NewLight(light.LightTypeAmbient, light.WithID(lightID(2)), light.WithColor(0.1, 0.1, 0.1))

	require.Equal(t, 1, h.frame([]*renderer.RenderNode{node}, []light.Light{ambient, sun}))
	assert.Equal(t, renderer.RenderEffectStateNormal, node.Effect.State)

	group := node.ResourceGroup(LightingResourceGroup)
	require.NotNil(t, group)
	slot := shader.ComposeName(DirectLightGroupsSlot, 0)
	colors, ok := group.Layout.Member(composed(directionalColorsKey, slot))
	require.True(t, ok)
	assert.Equal(t, sun.ComputeColor(), readVec3(group.ConstantBuffer.Data, colors.Offset))
	count, ok := group.Layout.Member(composed(lightCountKey, slot))
	require.True(t, ok)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(group.ConstantBuffer.Data[count.Offset:]))

	amb, ok := group.Layout.Member(composed(ambientColorKey, shader.ComposeName(EnvironmentLightsSlot, 0)))
	require.True(t, ok)
	assert.Equal(t, ambient.ComputeColor(), readVec3(group.ConstantBuffer.Data, amb.Offset))

	e := h.entry(node)
	assert.Len(t, e.ShaderEntry.DirectLightSources, 1)
	assert.Len(t, e.ShaderEntry.EnvironmentLightSources, 1)
	assert.Contains(t, node.Effect.Effect.Bytecode().Source, "fn directional_directLightGroups_0(")
}

func TestForwardLightingKeysIgnoreLightOrder(t *testing.T) {
	h := newLightingHarness(t)
	node := h.node("crate", ForwardShadingEffect, true)
	sun := sunLight(1)
	points := pointLights(2, 3)

	require.Equal(t, 1, h.frame([]*renderer.RenderNode{node}, []light.Light{points[2], sun, points[0], points[1]}))
	first := h.entry(node)
	key, shaderEntry := first.Key, first.ShaderEntry
	data := bytes.Clone(node.ResourceGroup(LightingResourceGroup).ConstantBuffer.Data)

	require.Equal(t, 1, h.frame([]*renderer.RenderNode{node}, []light.Light{points[1], points[0], sun, points[2]}))
	second := h.entry(node)
	assert.Equal(t, key, second.Key)
	assert.Same(t, shaderEntry, second.ShaderEntry)
	assert.True(t, bytes.Equal(data, node.ResourceGroup(LightingResourceGroup).ConstantBuffer.Data))
	assert.Equal(t, 1, h.fl.ShaderEntryCount())
}

func TestForwardLightingIsDeterministicAcrossFrames(t *testing.T) {
	h := newLightingHarness(t)
	nodes := []*renderer.RenderNode{h.node("a", ForwardShadingEffect, true), h.node("b", ForwardShadingEffect, true)}
	lights := append([]light.Light{sunLight(1)}, pointLights(2, 2, shadowed())...)

	require.Equal(t, 2, h.frame(nodes, lights))
	group := nodes[0].ResourceGroup(LightingResourceGroup)
	assert.Same(t, group, nodes[1].ResourceGroup(LightingResourceGroup), "nodes with the same lights share a group")
	assert.Equal(t, 1, h.fl.ParameterEntryCount())
	version := group.Version
	data := bytes.Clone(group.ConstantBuffer.Data)

	require.Equal(t, 2, h.frame(nodes, lights))
	group = nodes[0].ResourceGroup(LightingResourceGroup)
	assert.True(t, bytes.Equal(data, group.ConstantBuffer.Data))
	assert.Equal(t, version+1, group.Version, "the group is written once per frame")
	assert.Equal(t, uint64(2), h.fl.Frame())
}

func TestForwardLightingNonReceiversSkipShadowFragments(t *testing.T) {
	h := newLightingHarness(t)
	a := h.node("a", ForwardShadingEffect, false)
	b := h.node("b", ForwardShadingEffect, true)
	bulb := light.NewLight(light.LightTypePoint, light.WithID(lightID(2)), light.WithRange(3), shadowed())
	sun := sunLight(1)

	require.Equal(t, 2, h.frame([]*renderer.RenderNode{a, b}, []light.Light{bulb, sun}))
	sa, sb := h.entry(a).ShaderEntry, h.entry(b).ShaderEntry
	assert.NotEqual(t, sa.Key, sb.Key)
	require.Len(t, sa.DirectLightSources, 2)
	require.Len(t, sb.DirectLightSources, 2)

	assert.Same(t, sa.DirectLightSources[0], sb.DirectLightSources[0], "both meshes share the directional fragment")
	_, mixin := sa.DirectLightSources[1].(*shader.MixinSource)
	assert.False(t, mixin, "a mesh that does not receive shadows has no receiver fragment")
	_, mixin = sb.DirectLightSources[1].(*shader.MixinSource)
	assert.True(t, mixin)

	d, ok := h.fl.ViewLightData(0)
	require.True(t, ok)
	shadow := d.ShadowTexture(bulb)
	require.NotNil(t, shadow)
	group := b.ResourceGroup(LightingResourceGroup)
	slot, ok := group.Layout.EntrySlot(composed(pointReceiverKeys.texture, shader.ComposeName(DirectLightGroupsSlot, 1)))
	require.True(t, ok)
	assert.Equal(t, shadow.Atlas.Texture, group.DescriptorSet.Value(slot))
	assert.NotSame(t, group, a.ResourceGroup(LightingResourceGroup))
}

func TestForwardLightingMeshBoundsFilterLights(t *testing.T) {
	h := newLightingHarness(t)
	a := h.meshNode("a", common.BoundingBox{Min: common.Vec3{20, -1, -1}, Max: common.Vec3{22, 1, 1}})
	b := h.meshNode("b", common.BoundingBox{Min: common.Vec3{-1, -1, -1}, Max: common.Vec3{1, 1, 1}})
	bulb := light.NewLight(light.LightTypePoint, light.WithID(lightID(2)), light.WithRange(3))

	require.Equal(t, 2, h.frame([]*renderer.RenderNode{a, b}, []light.Light{bulb, sunLight(1)}))
	sa, sb := h.entry(a).ShaderEntry, h.entry(b).ShaderEntry
	require.Len(t, sa.DirectLightSources, 1, "the point light does not reach mesh a")
	require.Len(t, sb.DirectLightSources, 2)
	assert.Same(t, sb.DirectLightSources[0], sa.DirectLightSources[0])
	assert.NotContains(t, a.Effect.Effect.Bytecode().Source, "fn point_")
}

func TestForwardLightingMeshInSeveralViews(t *testing.T) {
	h := newLightingHarness(t)
	back := renderer.NewRenderView("back", renderer.WithViewport(256, 128),
		renderer.WithLookAt(common.Vec3{0, 0, 60}, common.Vec3{}, 60, 0.1, 100))
	h.views = append(h.views, back)
	bounds := common.BoundingBox{Min: common.Vec3{-5, -5, -5}, Max: common.Vec3{5, 5, 25}}
	// behind the main camera, in front of the back one
	bulb := light.NewLight(light.LightTypePoint, light.WithID(lightID(2)), light.WithPosition(0, 0, 20), light.WithRange(3), shadowed())
	lights := []light.Light{sunLight(1), bulb}

	t.Run("node per view", func(t *testing.T) {
		front := h.meshNode("crate", bounds)
		mesh := front.Mesh
		rear := renderer.NewRenderNode(mesh, back, renderer.NewRenderEffect(mesh))

		require.Equal(t, 2, h.frame([]*renderer.RenderNode{front, rear}, lights))
		assert.Len(t, h.entry(front).ShaderEntry.DirectLightSources, 1)
		assert.Len(t, h.entry(rear).ShaderEntry.DirectLightSources, 2)
		assert.NotContains(t, front.Effect.Effect.Bytecode().Source, "fn point_")
		assert.Contains(t, rear.Effect.Effect.Bytecode().Source, "fn point_directLightGroups_1(")

		group := rear.ResourceGroup(LightingResourceGroup)
		require.NotNil(t, group)
		_, ok := group.Layout.Member(composed(lightCountKey, shader.ComposeName(DirectLightGroupsSlot, 1)))
		assert.True(t, ok, "the point light group is part of the bound layout")
	})

	t.Run("shared render effect", func(t *testing.T) {
		front := h.meshNode("barrel", bounds)
		rear := renderer.NewRenderNode(front.Mesh, back, front.Effect)

		require.Equal(t, 1, h.frame([]*renderer.RenderNode{front, rear}, lights))
		assert.NotNil(t, front.ResourceGroup(LightingResourceGroup))
		assert.Nil(t, rear.ResourceGroup(LightingResourceGroup), "the effect was compiled for the main view's lights")
	})
}

func TestCompareNodeGroupsOrdersNoShadowLast(t *testing.T) {
	r := NewPointLightRenderer(WithShadowMapRenderer(NewShadowMapRenderer()))
	g := r.NoShadowGroup(2)
	regular := nodeGroup{renderer: r, id: 1, group: g}
	noShadow := nodeGroup{renderer: r, id: 1, group: g, noShadow: true}

	assert.Negative(t, compareNodeGroups(regular, noShadow))
	assert.Positive(t, compareNodeGroups(noShadow, regular))
	assert.Zero(t, compareNodeGroups(noShadow, noShadow))
}

func TestForwardLightingShadowMapOptions(t *testing.T) {
	h := newLightingHarness(t, WithShadowMapOptions(
		WithShadowTextureFactory(func(index, size int) any { return fmt.Sprintf("atlas-%d-%d", index, size) }),
	))
	node := h.node("crate", ForwardShadingEffect, true)
	bulb := light.NewLight(light.LightTypePoint, light.WithID(lightID(1)), light.WithRange(3), shadowed())

	require.Equal(t, 1, h.frame([]*renderer.RenderNode{node}, []light.Light{bulb}))
	d, ok := h.fl.ViewLightData(0)
	require.True(t, ok)
	shadow := d.ShadowTexture(bulb)
	require.NotNil(t, shadow)
	assert.Equal(t, "atlas-0-4096", shadow.Atlas.Texture)
}

func TestForwardLightingWithoutShadows(t *testing.T) {
	h := newLightingHarness(t, WithShadows(nil))
	node := h.node("crate", ForwardShadingEffect, true)
	lights := pointLights(0, 2, shadowed())

	require.Equal(t, 1, h.frame([]*renderer.RenderNode{node}, lights))
	d, ok := h.fl.ViewLightData(0)
	require.True(t, ok)
	assert.Empty(t, d.VisibleLightsWithShadows)
	assert.Len(t, d.VisibleLights, 2)
	require.Len(t, d.ActiveRenderers, 1)
	assert.False(t, d.ActiveRenderers[0].WithShadows)

	for _, src := range h.entry(node).ShaderEntry.DirectLightSources {
		_, mixin := src.(*shader.MixinSource)
		assert.False(t, mixin)
	}
}

func TestForwardLightingUnbindsNodesItCannotLight(t *testing.T) {
	h := newLightingHarness(t)
	lit := h.node("lit", ForwardShadingEffect, true)
	unlit := h.node("unlit", unlitEffect, true)
	lights := []light.Light{sunLight(1)}

	require.Equal(t, 1, h.frame([]*renderer.RenderNode{lit, unlit}, lights))
	assert.NotNil(t, lit.ResourceGroup(LightingResourceGroup))
	assert.Nil(t, unlit.ResourceGroup(LightingResourceGroup), "the effect has no lighting layout")
	assert.False(t, h.entry(unlit).ShaderEntry.IsEmpty())

	lit.Effect.State = renderer.RenderEffectStateFallback
	assert.Zero(t, h.fl.Prepare([]*renderer.RenderNode{lit}))
	assert.Nil(t, lit.ResourceGroup(LightingResourceGroup), "fallback effects are left unlit")

	_, ok := h.fl.ParameterEntry(h.node("other", ForwardShadingEffect, true))
	assert.False(t, ok)
}

func TestForwardLightingCulling(t *testing.T) {
	h := newLightingHarness(t)
	node := h.node("crate", ForwardShadingEffect, true)
	node.Mesh.Group = 1

	masked := light.NewLight(light.LightTypeDirectional, light.WithID(lightID(1)),
		light.WithCullingMask(common.EntityGroup(3).Mask()))
	far := light.NewLight(light.LightTypePoint, light.WithID(lightID(2)), light.WithPosition(500, 0, 0), light.WithRange(1))
	disabled := light.NewLight(light.LightTypePoint, light.WithID(lightID(3)), light.WithEnabled(false))

	assert.Zero(t, h.frame([]*renderer.RenderNode{node}, []light.Light{masked, far, disabled}))
	d, ok := h.fl.ViewLightData(0)
	require.True(t, ok)
	assert.Equal(t, []light.Light{masked}, d.VisibleLights, "only the masked light is in the view")
	assert.True(t, h.entry(node).ShaderEntry.IsEmpty(), "the mesh is outside the light's culling mask")
	assert.Nil(t, node.ResourceGroup(LightingResourceGroup))

	_, ok = h.fl.ViewLightData(1)
	assert.False(t, ok)
}
