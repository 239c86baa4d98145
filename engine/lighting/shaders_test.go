package lighting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader/compiler"
)

func newLightingRegistry(t *testing.T) *shader.Registry {
	t.Helper()
	r := shader.NewRegistry()
	require.NoError(t, RegisterShaders(r))
	return r
}

func compileForward(t *testing.T, direct, env shader.SourceCollection) *effect.Bytecode {
	t.Helper()
	c := compiler.NewEffectCompiler(newLightingRegistry(t))
	params := effect.NewCompilerParameters()
	params.Set(DirectLightGroupsKey, direct)
	params.Set(EnvironmentLightsKey, env)
	res, err := c.Compile(context.Background(), ForwardShadingEffect, params)
	require.NoError(t, err)
	bc, err := res.Bytecode.Wait(context.Background())
	require.NoError(t, err)
	require.False(t, bc.HasErrors(), "%v", bc.Messages)
	return bc.Bytecode
}

func member(t *testing.T, cb *effect.ConstantBufferDescription, name string) effect.ConstantBufferMember {
	t.Helper()
	for _, m := range cb.Members {
		if m.KeyName == name {
			return m
		}
	}
	require.Failf(t, "missing member", "%s not in %s", name, cb.Name)
	return effect.ConstantBufferMember{}
}

func binding(layout *effect.DescriptorSetLayout, name string) (effect.ResourceBinding, bool) {
	for _, e := range layout.Entries {
		if e.KeyName == name {
			return e, true
		}
	}
	return effect.ResourceBinding{}, false
}

func TestRegisterShadersTwiceFails(t *testing.T) {
	r := newLightingRegistry(t)
	assert.Error(t, RegisterShaders(r))
}

func TestForwardShadingComposesLightGroups(t *testing.T) {
	slot0 := shader.ComposeName(DirectLightGroupsSlot, 0)
	slot1 := shader.ComposeName(DirectLightGroupsSlot, 1)
	env0 := shader.ComposeName(EnvironmentLightsSlot, 0)

	bc := compileForward(t,
		shader.SourceCollection{shader.NewClassSource(classDirectionalGroup, 8), shader.NewClassSource(classTiledGroup)},
		shader.SourceCollection{shader.NewClassSource(classAmbient)},
	)

	cb, ok := bc.Reflection.ConstantBuffer(LightingResourceGroup)
	require.True(t, ok)
	dirs := member(t, cb, composed(directionalDirectionsKey, slot0))
	assert.Equal(t, 8, dirs.Elements)
	assert.Equal(t, 16, dirs.Stride)
	member(t, cb, composed(lightCountKey, slot0))
	member(t, cb, composed(tiledTileCountXKey, slot1))
	member(t, cb, composed(ambientColorKey, env0))

	layout, ok := bc.Reflection.Layout(LightingResourceGroup)
	require.True(t, ok)
	e, ok := binding(layout, composed(tiledLightsKey, slot1))
	require.True(t, ok)
	assert.Equal(t, effect.ResourceTypeStorageBuffer, e.Type)

	assert.Contains(t, bc.Source, "fn directional_directLightGroups_0(")
	assert.Contains(t, bc.Source, "fn environment_environmentLights_0(")
}

func TestForwardShadingComposesShadowReceivers(t *testing.T) {
	view := testView()
	shadows := NewShadowMapRenderer()
	r := NewPointLightRenderer(WithShadowMapRenderer(shadows))
	lights := pointLights(0, 2, shadowed())
	assigned := make(map[uuid.UUID]*LightShadowMapTexture)
	shadows.Assign(view, 0, lights, assigned)
	runFrame(r, view, lights, assigned)
	g, ok := r.ShaderGroupFor(0, lights[0])
	require.True(t, ok)

	bc := compileForward(t, shader.SourceCollection{g.ShaderSource()}, nil)
	slot := shader.ComposeName(DirectLightGroupsSlot, 0)

	cb, ok := bc.Reflection.ConstantBuffer(LightingResourceGroup)
	require.True(t, ok)
	assert.Equal(t, 2, member(t, cb, composed(pointPositionsKey, slot)).Elements, "shadowed groups are sized exactly")
	assert.Equal(t, 12, member(t, cb, composed(pointReceiverKeys.worldToShadow, slot)).Elements, "six faces per light")

	layout, ok := bc.Reflection.Layout(LightingResourceGroup)
	require.True(t, ok)
	tex, ok := binding(layout, composed(pointReceiverKeys.texture, slot))
	require.True(t, ok)
	assert.Equal(t, effect.ResourceTypeDepthTexture, tex.Type)
	smp, ok := binding(layout, composed(pointReceiverKeys.sampler, slot))
	require.True(t, ok)
	assert.Equal(t, effect.ResourceTypeComparisonSampler, smp.Type)
	assert.Contains(t, bc.Source, "const FILTER_directLightGroups_0: u32 = SHADOW_FILTER_"+light.ShadowFilterPCF.String()+";")
}
