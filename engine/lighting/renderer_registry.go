package lighting

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
)

// RendererRegistry maps light types to their renderers and gives every renderer a small id.
// Ids follow registration order, a renderer's NonShadowRenderer chain right after it, so
// permutation keys built from them are reproducible.
type RendererRegistry struct {
	byType    [light.LightTypeCount]LightGroupRenderer
	types     []light.LightType
	renderers []LightGroupRenderer
	ids       map[LightGroupRenderer]int
}

// NewRendererRegistry creates an empty registry.
func NewRendererRegistry() *RendererRegistry {
	return &RendererRegistry{ids: make(map[LightGroupRenderer]int)}
}

// Register makes r the renderer of light type t.
//
// Parameters:
//   - t: the light type
//   - r: the renderer
//
// Returns:
//   - error: an error if t already has a renderer
func (g *RendererRegistry) Register(t light.LightType, r LightGroupRenderer) error {
	if r == nil {
		panic("lighting: renderer must not be nil")
	}
	if int(t) >= light.LightTypeCount {
		return fmt.Errorf("lighting: unknown light type %v", t)
	}
	if g.byType[t] != nil {
		return fmt.Errorf("lighting: light type %v already has renderer %q", t, g.byType[t].Name())
	}
	g.byType[t] = r
	g.types = append(g.types, t)
	for next := r; next != nil; next = next.NonShadowRenderer() {
		if _, ok := g.ids[next]; ok {
			continue
		}
		g.ids[next] = len(g.renderers)
		g.renderers = append(g.renderers, next)
	}
	return nil
}

// RendererFor returns the renderer of a light type.
func (g *RendererRegistry) RendererFor(t light.LightType) (LightGroupRenderer, bool) {
	if int(t) >= light.LightTypeCount || g.byType[t] == nil {
		return nil, false
	}
	return g.byType[t], true
}

// Types returns the light types with a renderer, in registration order.
func (g *RendererRegistry) Types() []light.LightType {
	return g.types
}

// ID returns the id of a registered renderer.
func (g *RendererRegistry) ID(r LightGroupRenderer) (int, bool) {
	id, ok := g.ids[r]
	return id, ok
}

// Renderers returns every registered renderer in id order.
func (g *RendererRegistry) Renderers() []LightGroupRenderer {
	return g.renderers
}

// DefaultRendererRegistry registers the dynamic directional, point and spot renderers, with a
// shared tiled renderer taking the unshadowed point and spot lights, and the ambient and skybox
// renderers.
//
// Parameters:
//   - shadows: the shadow map renderer, nil to render every light without shadow
//   - logger: the logger handed to the renderers
//
// Returns:
//   - *RendererRegistry: the registry
func DefaultRendererRegistry(shadows ShadowMapRenderer, logger zerolog.Logger) *RendererRegistry {
	tiled := NewTiledLightRenderer(WithTiledLogger(logger))
	opts := []LightGroupRendererBuilderOption{WithRendererLogger(logger)}
	if shadows != nil {
		opts = append(opts, WithShadowMapRenderer(shadows))
	}
	withTiled := append(opts[:len(opts):len(opts)], WithNonShadowRenderer(tiled))

	g := NewRendererRegistry()
	for _, reg := range []struct {
		t light.LightType
		r LightGroupRenderer
	}{
		{light.LightTypeDirectional, NewDirectionalLightRenderer(opts...)},
		{light.LightTypePoint, NewPointLightRenderer(withTiled...)},
		{light.LightTypeSpot, NewSpotLightRenderer(withTiled...)},
		{light.LightTypeAmbient, NewAmbientLightRenderer()},
		{light.LightTypeSkybox, NewSkyboxLightRenderer()},
	} {
		if err := g.Register(reg.t, reg.r); err != nil {
			panic(err)
		}
	}
	return g
}
