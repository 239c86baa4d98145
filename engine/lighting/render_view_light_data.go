package lighting

import (
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// ActiveRenderer is a renderer with visible lights in a view.
type ActiveRenderer struct {
	LightType light.LightType
	Renderer  LightGroupRenderer

	// WithShadows is set when some of the lights have a shadow map and the renderer can use it.
	WithShadows bool
}

// RenderViewLightData is the lighting state of one view for the current frame.
type RenderViewLightData struct {
	View      *renderer.RenderView
	ViewIndex int

	// VisibleLights holds the visible lights rendered without shadow, VisibleLightsWithShadows
	// the direct lights with an enabled shadow when a shadow map renderer is configured.
	VisibleLights            []light.Light
	VisibleLightsWithShadows []light.Light
	ShadowMapTextures        map[uuid.UUID]*LightShadowMapTexture

	// ActiveRenderers lists the renderers with lights in the view, in registration order.
	ActiveRenderers []ActiveRenderer

	collections [light.LightTypeCount]*light.LightComponentCollectionGroup
}

func newRenderViewLightData() *RenderViewLightData {
	d := &RenderViewLightData{ShadowMapTextures: make(map[uuid.UUID]*LightShadowMapTexture)}
	for t := range d.collections {
		d.collections[t] = light.NewLightComponentCollectionGroup(light.LightType(t))
	}
	return d
}

func (d *RenderViewLightData) reset(view *renderer.RenderView, viewIndex int) {
	d.View = view
	d.ViewIndex = viewIndex
	clear(d.VisibleLights)
	d.VisibleLights = d.VisibleLights[:0]
	clear(d.VisibleLightsWithShadows)
	d.VisibleLightsWithShadows = d.VisibleLightsWithShadows[:0]
	clear(d.ShadowMapTextures)
	d.ActiveRenderers = d.ActiveRenderers[:0]
	for _, c := range d.collections {
		c.Clear()
	}
}

// Lights returns the visible lights of one type, partitioned by culling mask.
func (d *RenderViewLightData) Lights(t light.LightType) *light.LightComponentCollectionGroup {
	return d.collections[t]
}

// ShadowTexture returns the shadow map assigned to l in the view, nil if it has none.
func (d *RenderViewLightData) ShadowTexture(l light.Light) *LightShadowMapTexture {
	return d.ShadowMapTextures[l.ID()]
}
