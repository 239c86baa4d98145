package lighting

import (
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// DefaultLightMaxCount is the default maximum number of lights one group handles per view.
const DefaultLightMaxCount = 512

// minDynamicLightCount is the smallest light count an unshadowed fragment is generated for.
const minDynamicLightCount = 8

type sourceKey struct {
	shadowType light.ShadowType
	count      int
}

// LightGroupRendererDynamic renders the direct lights of one type with groups generated for the
// number of visible lights. Lights are batched by shadow configuration; each configuration gets
// its own pooled LightShaderGroupDynamic.
type LightGroupRendererDynamic struct {
	name                  string
	strategy              *dynamicLightStrategy
	lightMaxCount         int
	allocateLightMaxCount bool
	shadows               ShadowMapRenderer
	nonShadow             LightGroupRenderer
	logger                zerolog.Logger

	initialized    bool
	groups         map[light.ShadowType]*LightShaderGroupDynamic
	noShadowGroups map[int]*LightShaderGroupDynamic
	sources        map[sourceKey]shader.ShaderSource
	assignments    []map[uuid.UUID]*LightShaderGroupDynamic
	sorted         []light.Light
}

var _ LightGroupRenderer = &LightGroupRendererDynamic{}

// NewDirectionalLightRenderer creates the dynamic renderer of directional lights.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *LightGroupRendererDynamic: the renderer
func NewDirectionalLightRenderer(options ...LightGroupRendererBuilderOption) *LightGroupRendererDynamic {
	return newLightGroupRendererDynamic("directional", light.LightTypeDirectional, options)
}

// NewPointLightRenderer creates the dynamic renderer of point lights.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *LightGroupRendererDynamic: the renderer
func NewPointLightRenderer(options ...LightGroupRendererBuilderOption) *LightGroupRendererDynamic {
	return newLightGroupRendererDynamic("point", light.LightTypePoint, options)
}

// NewSpotLightRenderer creates the dynamic renderer of spot lights.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *LightGroupRendererDynamic: the renderer
func NewSpotLightRenderer(options ...LightGroupRendererBuilderOption) *LightGroupRendererDynamic {
	return newLightGroupRendererDynamic("spot", light.LightTypeSpot, options)
}

func newLightGroupRendererDynamic(name string, t light.LightType, options []LightGroupRendererBuilderOption) *LightGroupRendererDynamic {
	r := &LightGroupRendererDynamic{
		name:          name,
		strategy:      newDynamicLightStrategy(t),
		lightMaxCount: DefaultLightMaxCount,
		logger:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.lightMaxCount < 1 {
		panic("lighting: light max count must be positive")
	}
	r.logger = r.logger.With().Str("component", "light_group_renderer").Str("renderer", r.name).Logger()
	return r
}

// LightType returns the type of the lights the renderer handles.
func (r *LightGroupRendererDynamic) LightType() light.LightType {
	return r.strategy.lightType
}

func (r *LightGroupRendererDynamic) Name() string {
	return r.name
}

func (r *LightGroupRendererDynamic) IsEnvironment() bool {
	return false
}

func (r *LightGroupRendererDynamic) CanHaveShadows() bool {
	return r.shadows != nil
}

func (r *LightGroupRendererDynamic) LightMaxCount() int {
	return r.lightMaxCount
}

func (r *LightGroupRendererDynamic) AllocateLightMaxCount() bool {
	return r.allocateLightMaxCount
}

func (r *LightGroupRendererDynamic) NonShadowRenderer() LightGroupRenderer {
	return r.nonShadow
}

func (r *LightGroupRendererDynamic) Initialize() {
	if r.initialized {
		return
	}
	r.groups = make(map[light.ShadowType]*LightShaderGroupDynamic)
	r.noShadowGroups = make(map[int]*LightShaderGroupDynamic)
	r.sources = make(map[sourceKey]shader.ShaderSource)
	r.initialized = true
	r.logger.Debug().Int("max_lights", r.lightMaxCount).Bool("shadows", r.CanHaveShadows()).Msg("initialized")
}

func (r *LightGroupRendererDynamic) Reset() {
	r.Initialize()
	for _, g := range r.groups {
		g.Reset()
	}
	for _, g := range r.noShadowGroups {
		g.resetData()
	}
	for _, a := range r.assignments {
		clear(a)
	}
}

func (r *LightGroupRendererDynamic) SetViews(views []*renderer.RenderView) {
	r.ensureViews(len(views))
}

func (r *LightGroupRendererDynamic) ensureViews(n int) {
	for len(r.assignments) < n {
		r.assignments = append(r.assignments, make(map[uuid.UUID]*LightShaderGroupDynamic))
	}
}

// ComputeLightCount returns the light count a group is generated for when a view needs n lights:
// n itself for shadowed groups, otherwise LightMaxCount when AllocateLightMaxCount is set, or the
// next power of two of at least 8.
//
// Parameters:
//   - n: the number of lights
//   - shadowed: whether the group is shadowed
//
// Returns:
//   - int: the allocated light count
func (r *LightGroupRendererDynamic) ComputeLightCount(n int, shadowed bool) int {
	if shadowed {
		return n
	}
	if r.allocateLightMaxCount {
		return r.lightMaxCount
	}
	return min(max(minDynamicLightCount, common.NextPowerOfTwo(n)), r.lightMaxCount)
}

func (r *LightGroupRendererDynamic) shadowTypeOf(ctx *ProcessLightsContext, l light.Light) light.ShadowType {
	if r.shadows == nil {
		return 0
	}
	if t := ctx.ShadowTexture(l); t != nil {
		return t.ShadowType
	}
	return 0
}

func (r *LightGroupRendererDynamic) ProcessLights(ctx *ProcessLightsContext) {
	if len(ctx.Lights) == 0 {
		return
	}
	r.Initialize()
	r.ensureViews(ctx.ViewIndex + 1)
	assign := r.assignments[ctx.ViewIndex]

	// shadowed first, grouped by shadow type, then by id
	r.sorted = append(r.sorted[:0], ctx.Lights...)
	slices.SortFunc(r.sorted, func(a, b light.Light) int {
		sa, sb := r.shadowTypeOf(ctx, a), r.shadowTypeOf(ctx, b)
		if (sa == 0) != (sb == 0) {
			if sa != 0 {
				return -1
			}
			return 1
		}
		if sa != sb {
			return int(sa) - int(sb)
		}
		return light.Compare(a, b)
	})

	for i := 0; i < len(r.sorted); {
		st := r.shadowTypeOf(ctx, r.sorted[i])
		if st == 0 && r.nonShadow != nil {
			ctx.Remaining = append(ctx.Remaining[:0], r.sorted[i:]...)
			break
		}
		j := i + 1
		for j < len(r.sorted) && r.shadowTypeOf(ctx, r.sorted[j]) == st {
			j++
		}
		r.flush(ctx, st, r.sorted[i:j], assign)
		i = j
	}
}

func (r *LightGroupRendererDynamic) flush(ctx *ProcessLightsContext, st light.ShadowType, batch []light.Light, assign map[uuid.UUID]*LightShaderGroupDynamic) {
	if len(batch) > r.lightMaxCount {
		r.logger.Warn().
			Int("view", ctx.ViewIndex).
			Int("lights", len(batch)).
			Int("dropped", len(batch)-r.lightMaxCount).
			Uint8("shadow_type", uint8(st)).
			Msg("too many lights in one group, dropping the rest")
		batch = batch[:r.lightMaxCount]
	}

	g, ok := r.groups[st]
	if !ok {
		g = newLightShaderGroupDynamic(r, st)
		r.groups[st] = g
	}
	g.AddView(ctx.ViewIndex, len(batch))
	for _, l := range batch {
		var shadow *LightShadowMapTexture
		if st != 0 {
			shadow = ctx.ShadowTexture(l)
		}
		g.AddLight(l, shadow)
		assign[l.ID()] = g
	}
}

func (r *LightGroupRendererDynamic) UpdateShaderGroups() {
	for _, g := range r.groups {
		if g.UpdateLightCount() {
			r.logger.Debug().
				Uint8("shadow_type", uint8(g.shadowType)).
				Int("lights", g.lightCurrentCount).
				Int("previous", g.lightLastCount).
				Msg("light group regenerated")
		}
	}
}

func (r *LightGroupRendererDynamic) ShaderGroupFor(viewIndex int, l light.Light) (LightShaderGroup, bool) {
	if viewIndex < 0 || viewIndex >= len(r.assignments) {
		return nil, false
	}
	g, ok := r.assignments[viewIndex][l.ID()]
	if !ok {
		return nil, false
	}
	return g, true
}

func (r *LightGroupRendererDynamic) NoShadowGroup(count int) LightShaderGroup {
	r.Initialize()
	c := r.ComputeLightCount(count, false)
	g, ok := r.noShadowGroups[c]
	if !ok {
		g = newLightShaderGroupDynamic(r, 0)
		g.lightCurrentCount = c
		g.UpdateLightCount()
		r.noShadowGroups[c] = g
	}
	return g
}

// source returns the fragment for count lights of shadow type st. Fragments are cached so every
// group with the same configuration shares one instance.
func (r *LightGroupRendererDynamic) source(st light.ShadowType, count int) shader.ShaderSource {
	key := sourceKey{shadowType: st, count: count}
	if src, ok := r.sources[key]; ok {
		return src
	}
	var src shader.ShaderSource = shader.NewClassSource(r.strategy.class, count)
	if st != 0 {
		src = shader.NewMixinSource(src, r.strategy.receiverSource(st, count))
	}
	r.sources[key] = src
	return src
}

func (r *LightGroupRendererDynamic) shadowSampler() any {
	if r.shadows == nil {
		return nil
	}
	return r.shadows.Sampler()
}
