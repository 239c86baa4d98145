package lighting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

func testView() *renderer.RenderView {
	return renderer.NewRenderView("main", renderer.WithViewport(256, 128),
		renderer.WithLookAt(common.Vec3{0, 0, 10}, common.Vec3{}, 60, 0.1, 100))
}

// lightID returns a deterministic id whose order follows n.
func lightID(n int) uuid.UUID {
	var id uuid.UUID
	id[14] = byte(n >> 8)
	id[15] = byte(n)
	return id
}

func pointLights(first, n int, opts ...light.LightBuilderOption) []light.Light {
	lights := make([]light.Light, n)
	for i := range lights {
		o := append([]light.LightBuilderOption{
			light.WithID(lightID(first + i)),
			light.WithPosition(float32(i), 0, 0),
			light.WithRange(2),
		}, opts...)
		lights[i] = light.NewLight(light.LightTypePoint, o...)
	}
	return lights
}

func shadowed() light.LightBuilderOption {
	return light.WithShadow(light.DefaultShadow())
}

// runFrame drives one frame of a single renderer in one view.
func runFrame(r LightGroupRenderer, view *renderer.RenderView, lights []light.Light, shadows map[uuid.UUID]*LightShadowMapTexture) *ProcessLightsContext {
	r.Initialize()
	r.Reset()
	r.SetViews([]*renderer.RenderView{view})
	ctx := &ProcessLightsContext{View: view, Lights: lights, Shadows: shadows}
	r.ProcessLights(ctx)
	r.UpdateShaderGroups()
	return ctx
}

func TestComputeLightCount(t *testing.T) {
	r := NewPointLightRenderer(WithLightMaxCount(64))
	tests := []struct {
		name     string
		n        int
		shadowed bool
		want     int
	}{
		{"single light uses the floor", 1, false, 8},
		{"below floor", 5, false, 8},
		{"floor", 8, false, 8},
		{"just above floor", 9, false, 16},
		{"not a power of two", 13, false, 16},
		{"power of two", 32, false, 32},
		{"capped by max", 100, false, 64},
		{"shadowed is exact", 3, true, 3},
		{"shadowed above floor is exact", 9, true, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ComputeLightCount(tt.n, tt.shadowed))
		})
	}

	all := NewPointLightRenderer(WithLightMaxCount(64), WithAllocateLightMaxCount(true))
	assert.Equal(t, 64, all.ComputeLightCount(3, false))
	assert.Equal(t, 3, all.ComputeLightCount(3, true))
}

func TestDynamicRendererRejectsInvalidConfiguration(t *testing.T) {
	assert.Panics(t, func() { NewSpotLightRenderer(WithLightMaxCount(0)) })
	assert.Panics(t, func() { newDynamicLightStrategy(light.LightTypeAmbient) })
}

func TestDynamicRendererGroupsByShadowType(t *testing.T) {
	view := testView()
	shadows := NewShadowMapRenderer()
	r := NewPointLightRenderer(WithShadowMapRenderer(shadows))

	plain := pointLights(0, 3)
	cast := pointLights(10, 2, shadowed())
	assigned := make(map[uuid.UUID]*LightShadowMapTexture)
	shadows.Assign(view, 0, cast, assigned)
	require.Len(t, assigned, 2)

	ctx := runFrame(r, view, append(append([]light.Light{}, plain...), cast...), assigned)
	assert.Empty(t, ctx.Remaining)

	g, ok := r.ShaderGroupFor(0, cast[0])
	require.True(t, ok)
	assert.Equal(t, 2, g.LightCurrentCount(), "shadowed groups are exact")
	assert.NotZero(t, g.ShadowType())
	mixin, ok := g.ShaderSource().(*shader.MixinSource)
	require.True(t, ok, "shadowed groups mix in a receiver")
	assert.Len(t, mixin.Mixins, 2)

	u, ok := r.ShaderGroupFor(0, plain[0])
	require.True(t, ok)
	assert.Equal(t, 8, u.LightCurrentCount())
	assert.Zero(t, u.ShadowType())
	assert.True(t, u.ShaderSource().Equal(shader.NewClassSource(classPointGroup, 8)))

	dyn := g.(*LightShaderGroupDynamic)
	assert.Equal(t, []light.Light{cast[0], cast[1]}, dyn.Lights(0))
	assert.Equal(t, []LightViewRange{{ViewIndex: 0, Start: 0, Count: 2}}, dyn.Views())
}

func TestDynamicRendererHandsUnshadowedLightsDownstream(t *testing.T) {
	view := testView()
	shadows := NewShadowMapRenderer()
	tiled := NewTiledLightRenderer()
	r := NewSpotLightRenderer(WithShadowMapRenderer(shadows), WithNonShadowRenderer(tiled))
	assert.Same(t, tiled, r.NonShadowRenderer())

	spot := func(id int, opts ...light.LightBuilderOption) light.Light {
		return light.NewLight(light.LightTypeSpot, append([]light.LightBuilderOption{light.WithID(lightID(id))}, opts...)...)
	}
	cast := spot(1, shadowed())
	plain := []light.Light{spot(3), spot(2)}
	assigned := make(map[uuid.UUID]*LightShadowMapTexture)
	shadows.Assign(view, 0, []light.Light{cast}, assigned)

	ctx := runFrame(r, view, []light.Light{plain[0], cast, plain[1]}, assigned)
	assert.Equal(t, []light.Light{plain[1], plain[0]}, ctx.Remaining, "remaining lights are sorted by id")

	_, ok := r.ShaderGroupFor(0, plain[0])
	assert.False(t, ok)
	g, ok := r.ShaderGroupFor(0, cast)
	require.True(t, ok)
	assert.Equal(t, 1, g.LightCurrentCount())
}

func TestDynamicRendererWithoutShadowRendererIgnoresShadows(t *testing.T) {
	r := NewPointLightRenderer()
	assert.False(t, r.CanHaveShadows())

	lights := pointLights(0, 2, shadowed())
	runFrame(r, testView(), lights, nil)
	g, ok := r.ShaderGroupFor(0, lights[1])
	require.True(t, ok)
	assert.Zero(t, g.ShadowType())
}

func TestLightShaderGroupRegeneratesOnlyOnCountChange(t *testing.T) {
	view := testView()
	r := NewPointLightRenderer()

	frame := func(n int) *LightShaderGroupDynamic {
		lights := pointLights(0, n)
		runFrame(r, view, lights, nil)
		g, ok := r.ShaderGroupFor(0, lights[0])
		require.True(t, ok)
		return g.(*LightShaderGroupDynamic)
	}

	g := frame(3)
	first := g.ShaderSource()
	require.NotNil(t, first)
	assert.Equal(t, 8, g.LightCurrentCount())

	g = frame(5)
	assert.Equal(t, 8, g.LightLastCount())
	assert.Same(t, first, g.ShaderSource(), "same count keeps the fragment")
	assert.False(t, g.UpdateLightCount())

	g = frame(9)
	assert.Equal(t, 8, g.LightLastCount())
	assert.Equal(t, 16, g.LightCurrentCount())
	assert.NotSame(t, first, g.ShaderSource())

	g = frame(2)
	assert.Same(t, first, g.ShaderSource(), "fragments are cached per count")
}

func TestDynamicRendererDropsLightsBeyondMaxCount(t *testing.T) {
	r := NewPointLightRenderer(WithLightMaxCount(4), WithRendererLogger(zerolog.Nop()))
	lights := pointLights(0, 6)
	runFrame(r, testView(), lights, nil)

	kept := 0
	for _, l := range lights {
		if _, ok := r.ShaderGroupFor(0, l); ok {
			kept++
		}
	}
	assert.Equal(t, 4, kept)
	_, ok := r.ShaderGroupFor(0, lights[5])
	assert.False(t, ok, "the lights with the highest ids are dropped")

	g, _ := r.ShaderGroupFor(0, lights[0])
	assert.Equal(t, 4, g.LightCurrentCount())
}

func TestDynamicRendererNoShadowGroups(t *testing.T) {
	r := NewDirectionalLightRenderer(WithShadowMapRenderer(NewShadowMapRenderer()))
	a := r.NoShadowGroup(3)
	assert.Same(t, a, r.NoShadowGroup(7))
	assert.NotSame(t, a, r.NoShadowGroup(9))
	assert.Zero(t, a.ShadowType())
	assert.True(t, a.ShaderSource().Equal(shader.NewClassSource(classDirectionalGroup, 8)))
}

func TestDynamicRendererProcessesEveryView(t *testing.T) {
	r := NewPointLightRenderer()
	views := []*renderer.RenderView{testView(), testView()}
	r.Initialize()
	r.Reset()
	r.SetViews(views)
	r.ProcessLights(&ProcessLightsContext{View: views[0], ViewIndex: 0, Lights: pointLights(0, 3)})
	r.ProcessLights(&ProcessLightsContext{View: views[1], ViewIndex: 1, Lights: pointLights(0, 12)})
	r.UpdateShaderGroups()

	g, ok := r.ShaderGroupFor(1, pointLights(0, 1)[0])
	require.True(t, ok)
	assert.Equal(t, 16, g.LightCurrentCount(), "the group covers the largest view")
	assert.Len(t, g.(*LightShaderGroupDynamic).Lights(0), 3)
	assert.Len(t, g.(*LightShaderGroupDynamic).Lights(1), 12)
}

func TestEnvironmentRenderers(t *testing.T) {
	ambient := NewAmbientLightRenderer()
	sky := NewSkyboxLightRenderer()
	assert.True(t, ambient.IsEnvironment())
	assert.Equal(t, "skybox", sky.Name())

	l := light.NewLight(light.LightTypeAmbient, light.WithColor(0.1, 0.2, 0.3))
	runFrame(ambient, testView(), []light.Light{l}, nil)
	g, ok := ambient.ShaderGroupFor(0, l)
	require.True(t, ok)
	assert.Equal(t, 1, g.LightCurrentCount())
	assert.True(t, g.ShaderSource().Equal(shader.NewClassSource(classAmbient)))

	_, ok = sky.ShaderGroupFor(0, l)
	assert.False(t, ok)
}

func TestRendererRegistry(t *testing.T) {
	g := DefaultRendererRegistry(NewShadowMapRenderer(), zerolog.Nop())

	names := make([]string, 0, len(g.Renderers()))
	for i, r := range g.Renderers() {
		id, ok := g.ID(r)
		require.True(t, ok)
		assert.Equal(t, i, id)
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"directional", "point", "tiled", "spot", "ambient", "skybox"}, names)
	assert.Equal(t, []light.LightType{
		light.LightTypeDirectional, light.LightTypePoint, light.LightTypeSpot, light.LightTypeAmbient, light.LightTypeSkybox,
	}, g.Types())

	point, _ := g.RendererFor(light.LightTypePoint)
	spot, _ := g.RendererFor(light.LightTypeSpot)
	assert.Same(t, point.NonShadowRenderer(), spot.NonShadowRenderer(), "point and spot share the tiled renderer")

	assert.Error(t, g.Register(light.LightTypePoint, NewPointLightRenderer()))
	assert.Error(t, g.Register(light.LightType(9), NewPointLightRenderer()))
	_, ok := NewRendererRegistry().RendererFor(light.LightTypeSpot)
	assert.False(t, ok)
}
