package lighting

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// DefaultLayoutCacheSize is the number of effect bytecodes whose lighting layout is cached.
const DefaultLayoutCacheSize = 1024

// ForwardLighting selects the light shader permutation of every render node and binds the
// values of its lights.
//
// Usage per frame, strictly in this order:
//  1. Collect culls the lights of every view and assigns shadow maps
//  2. PrepareEffectPermutations groups the lights, resolves the permutation entries of every
//     node and validates the light sources on the node's render effect
//  3. the dynamic effect compilers update the render effects
//  4. Prepare writes the light values into the PerLighting resource group of every node
type ForwardLighting interface {
	// Collect starts a frame with the given views and lights. Parameter entries of the previous
	// frame are released; shader entries are kept.
	//
	// Parameters:
	//   - views: the views of the frame, indexed by position
	//   - lights: every light of the scene
	Collect(views []*renderer.RenderView, lights []light.Light)

	// PrepareEffectPermutations resolves the permutation entries of nodes and requires their
	// light sources from the nodes' render effects.
	//
	// Parameters:
	//   - nodes: the render nodes of the frame; their views must have been collected
	PrepareEffectPermutations(nodes []*renderer.RenderNode)

	// Prepare binds the PerLighting resource group of every node whose effect is the compiled
	// permutation. Other nodes are unbound and left unlit.
	//
	// Parameters:
	//   - nodes: the render nodes of the frame
	//
	// Returns:
	//   - int: the number of bound nodes
	Prepare(nodes []*renderer.RenderNode) int

	// ViewLightData returns the lighting state of a view for the current frame.
	//
	// Parameters:
	//   - viewIndex: the index of the view
	//
	// Returns:
	//   - *RenderViewLightData: the state
	//   - bool: false if the view was not collected this frame
	ViewLightData(viewIndex int) (*RenderViewLightData, bool)

	// ParameterEntry returns the parameter entry a node resolved to this frame.
	//
	// Parameters:
	//   - node: the render node
	//
	// Returns:
	//   - *LightParametersPermutationEntry: the entry
	//   - bool: false if the node was not prepared this frame
	ParameterEntry(node *renderer.RenderNode) (*LightParametersPermutationEntry, bool)

	// ShaderEntryCount returns the number of distinct shader permutations seen so far.
	ShaderEntryCount() int

	// ParameterEntryCount returns the number of parameter entries created this frame.
	ParameterEntryCount() int

	// Registry returns the light renderers.
	Registry() *RendererRegistry

	// Frame returns the number of collected frames.
	Frame() uint64
}

type forwardLightingImpl struct {
	registry          *RendererRegistry
	shadows           ShadowMapRenderer
	shadowsConfigured bool
	shadowOptions     []ShadowMapRendererBuilderOption
	allocator         renderer.ResourceAllocator
	logger            zerolog.Logger
	layoutCacheSize   int

	frame       uint64
	views       []*renderer.RenderView
	viewData    []*RenderViewLightData
	initialized map[LightGroupRenderer]struct{}

	shaderEntries map[common.ObjectID]*LightShaderPermutationEntry
	paramEntries  map[common.ObjectID]*LightParametersPermutationEntry
	pool          parametersEntryPool
	nodeEntries   map[*renderer.RenderNode]*LightParametersPermutationEntry
	validated     map[*renderer.RenderEffect]*LightShaderPermutationEntry

	layouts       *lru.Cache[common.ObjectID, *renderer.ResourceGroupLayout]
	layoutsByHash map[common.ObjectID]*renderer.ResourceGroupLayout

	processCtx ProcessLightsContext
	remaining  []light.Light
	pending    []light.Light
	nodeGroups []nodeGroup
	keys       *common.ObjectIDBuilder
}

var _ ForwardLighting = &forwardLightingImpl{}

// nodeGroup is one light group of a node while its permutation is derived. A noShadow group
// collects shadowed lights of a mesh that does not receive shadows; its group is resolved once
// all lights are known.
type nodeGroup struct {
	renderer LightGroupRenderer
	id       int
	env      bool
	noShadow bool
	group    LightShaderGroup
	lights   []light.Light
}

// NewForwardLighting creates the forward lighting feature. Without options it renders with
// DefaultRendererRegistry, a default shadow map renderer and CPU memory resource groups.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - ForwardLighting: the feature
func NewForwardLighting(options ...ForwardLightingBuilderOption) ForwardLighting {
	f := &forwardLightingImpl{
		logger:          zerolog.Nop(),
		layoutCacheSize: DefaultLayoutCacheSize,
		initialized:     make(map[LightGroupRenderer]struct{}),
		shaderEntries:   make(map[common.ObjectID]*LightShaderPermutationEntry),
		paramEntries:    make(map[common.ObjectID]*LightParametersPermutationEntry),
		nodeEntries:     make(map[*renderer.RenderNode]*LightParametersPermutationEntry),
		validated:       make(map[*renderer.RenderEffect]*LightShaderPermutationEntry),
		layoutsByHash:   make(map[common.ObjectID]*renderer.ResourceGroupLayout),
		keys:            common.NewObjectIDBuilder(),
	}
	for _, opt := range options {
		opt(f)
	}
	f.logger = f.logger.With().Str("component", "forward_lighting").Logger()

	if !f.shadowsConfigured {
		opts := append([]ShadowMapRendererBuilderOption{WithShadowLogger(f.logger)}, f.shadowOptions...)
		f.shadows = NewShadowMapRenderer(opts...)
	}
	if f.registry == nil {
		f.registry = DefaultRendererRegistry(f.shadows, f.logger)
	}
	if f.allocator == nil {
		f.allocator = renderer.NewMemoryAllocator()
	}
	layouts, err := lru.New[common.ObjectID, *renderer.ResourceGroupLayout](f.layoutCacheSize)
	if err != nil {
		panic("lighting: " + err.Error())
	}
	f.layouts = layouts
	return f
}

func (f *forwardLightingImpl) Registry() *RendererRegistry {
	return f.registry
}

func (f *forwardLightingImpl) Frame() uint64 {
	return f.frame
}

func (f *forwardLightingImpl) ShaderEntryCount() int {
	return len(f.shaderEntries)
}

func (f *forwardLightingImpl) ParameterEntryCount() int {
	return f.pool.Len()
}

func (f *forwardLightingImpl) ViewLightData(viewIndex int) (*RenderViewLightData, bool) {
	if viewIndex < 0 || viewIndex >= len(f.views) {
		return nil, false
	}
	return f.viewData[viewIndex], true
}

func (f *forwardLightingImpl) ParameterEntry(node *renderer.RenderNode) (*LightParametersPermutationEntry, bool) {
	e, ok := f.nodeEntries[node]
	return e, ok
}

func (f *forwardLightingImpl) Collect(views []*renderer.RenderView, lights []light.Light) {
	f.frame++
	clear(f.paramEntries)
	f.pool.reset()
	clear(f.nodeEntries)
	clear(f.validated)
	if f.shadows != nil {
		f.shadows.Reset()
	}

	f.views = append(f.views[:0], views...)
	for len(f.viewData) < len(views) {
		f.viewData = append(f.viewData, newRenderViewLightData())
	}
	for i, view := range views {
		f.collectView(f.viewData[i], view, i, lights)
	}
}

func (f *forwardLightingImpl) collectView(d *RenderViewLightData, view *renderer.RenderView, viewIndex int, lights []light.Light) {
	d.reset(view, viewIndex)
	for _, l := range lights {
		if !isLightVisible(view, l) {
			continue
		}
		if f.shadows != nil && l.Type().IsDirect() && light.ShadowEnabled(l) {
			d.VisibleLightsWithShadows = append(d.VisibleLightsWithShadows, l)
		} else {
			d.VisibleLights = append(d.VisibleLights, l)
		}
		d.collections[l.Type()].PrepareLight(l)
	}
	for _, c := range d.collections {
		c.AllocateCollectionsPerGroupOfCullingMask()
	}
	for _, l := range d.VisibleLightsWithShadows {
		d.collections[l.Type()].AddLight(l)
	}
	for _, l := range d.VisibleLights {
		d.collections[l.Type()].AddLight(l)
	}

	if f.shadows != nil && len(d.VisibleLightsWithShadows) > 0 {
		f.shadows.Assign(view, viewIndex, d.VisibleLightsWithShadows, d.ShadowMapTextures)
	}

	for _, t := range f.registry.Types() {
		if d.collections[t].Count() == 0 {
			continue
		}
		r, _ := f.registry.RendererFor(t)
		f.initialize(r)
		withShadows := false
		if r.CanHaveShadows() {
			for _, l := range d.VisibleLightsWithShadows {
				if l.Type() == t && d.ShadowTexture(l) != nil {
					withShadows = true
					break
				}
			}
		}
		d.ActiveRenderers = append(d.ActiveRenderers, ActiveRenderer{LightType: t, Renderer: r, WithShadows: withShadows})
	}
}

func isLightVisible(view *renderer.RenderView, l light.Light) bool {
	if !l.Enabled() {
		return false
	}
	if l.CullingMask()&view.CullingMask == 0 {
		return false
	}
	if l.HasBoundingBox() && !view.Frustum.ContainsBox(l.BoundingBox()) {
		return false
	}
	return true
}

// initialize initializes r and the renderers it hands lights to, once.
func (f *forwardLightingImpl) initialize(r LightGroupRenderer) {
	for ; r != nil; r = r.NonShadowRenderer() {
		if _, ok := f.initialized[r]; ok {
			continue
		}
		r.Initialize()
		f.initialized[r] = struct{}{}
		f.logger.Debug().Str("renderer", r.Name()).Msg("renderer activated")
	}
}

func (f *forwardLightingImpl) PrepareEffectPermutations(nodes []*renderer.RenderNode) {
	for _, r := range f.registry.Renderers() {
		if _, ok := f.initialized[r]; !ok {
			continue
		}
		r.Reset()
		r.SetViews(f.views)
	}
	for _, d := range f.viewData[:len(f.views)] {
		for _, a := range d.ActiveRenderers {
			f.processLights(d, a.Renderer, d.collections[a.LightType].All().Lights())
		}
	}
	for _, r := range f.registry.Renderers() {
		if _, ok := f.initialized[r]; ok {
			r.UpdateShaderGroups()
		}
	}

	for _, node := range nodes {
		f.prepareNode(node)
	}
}

// processLights hands lights to r, then whatever r leaves to its NonShadowRenderer chain.
func (f *forwardLightingImpl) processLights(d *RenderViewLightData, r LightGroupRenderer, lights []light.Light) {
	for r != nil && len(lights) > 0 {
		f.processCtx = ProcessLightsContext{
			View:      d.View,
			ViewIndex: d.ViewIndex,
			Lights:    lights,
			Shadows:   d.ShadowMapTextures,
			Remaining: f.remaining[:0],
		}
		r.ProcessLights(&f.processCtx)
		f.remaining = f.processCtx.Remaining
		f.pending = append(f.pending[:0], f.remaining...)
		lights = f.pending
		r = r.NonShadowRenderer()
	}
}

func (f *forwardLightingImpl) viewDataOf(view *renderer.RenderView) *RenderViewLightData {
	for i, v := range f.views {
		if v == view {
			return f.viewData[i]
		}
	}
	return nil
}

// ownerGroup finds the group a light was assigned to, following the NonShadowRenderer chain.
func ownerGroup(r LightGroupRenderer, viewIndex int, l light.Light) (LightGroupRenderer, LightShaderGroup, bool) {
	for ; r != nil; r = r.NonShadowRenderer() {
		if g, ok := r.ShaderGroupFor(viewIndex, l); ok {
			return r, g, true
		}
	}
	return nil, nil, false
}

func (f *forwardLightingImpl) nodeGroupFor(r LightGroupRenderer, g LightShaderGroup, noShadow bool) *nodeGroup {
	for i := range f.nodeGroups {
		ng := &f.nodeGroups[i]
		if noShadow {
			if ng.noShadow && ng.renderer == r {
				return ng
			}
			continue
		}
		if !ng.noShadow && ng.group == g {
			return ng
		}
	}
	id, _ := f.registry.ID(r)
	var lights []light.Light
	if len(f.nodeGroups) < cap(f.nodeGroups) {
		lights = f.nodeGroups[:len(f.nodeGroups)+1][len(f.nodeGroups)].lights[:0]
	}
	f.nodeGroups = append(f.nodeGroups, nodeGroup{
		renderer: r,
		id:       id,
		env:      r.IsEnvironment(),
		noShadow: noShadow,
		lights:   lights,
	})
	ng := &f.nodeGroups[len(f.nodeGroups)-1]
	if !noShadow {
		ng.group = g
	}
	return ng
}

func compareNodeGroups(a, b nodeGroup) int {
	if a.env != b.env {
		if a.env {
			return 1
		}
		return -1
	}
	if a.id != b.id {
		return a.id - b.id
	}
	sa, sb := a.group.ShadowType(), b.group.ShadowType()
	if (sa == 0) != (sb == 0) {
		if sa != 0 {
			return -1
		}
		return 1
	}
	if sa != sb {
		return int(sa) - int(sb)
	}
	if c := a.group.LightCurrentCount() - b.group.LightCurrentCount(); c != 0 {
		return c
	}
	if a.noShadow != b.noShadow {
		if a.noShadow {
			return 1
		}
		return -1
	}
	return 0
}

// prepareNode resolves the permutation entries of one node.
func (f *forwardLightingImpl) prepareNode(node *renderer.RenderNode) {
	d := f.viewDataOf(node.View)
	if d == nil {
		return
	}
	mesh := node.Mesh

	for i := range f.nodeGroups {
		clear(f.nodeGroups[i].lights)
	}
	f.nodeGroups = f.nodeGroups[:0]
	for _, a := range d.ActiveRenderers {
		for _, l := range d.collections[a.LightType].FindLightCollectionByGroup(mesh.Group).Lights() {
			if l.HasBoundingBox() && !l.BoundingBox().Intersects(mesh.BoundingBox) {
				continue
			}
			owner, g, ok := ownerGroup(a.Renderer, d.ViewIndex, l)
			if !ok {
				continue
			}
			noShadow := g.ShadowType() != 0 && !mesh.IsShadowReceiver
			ng := f.nodeGroupFor(owner, g, noShadow)
			ng.lights = append(ng.lights, l)
		}
	}

	// swap instead of overwrite so every slot keeps its own lights backing array
	n := 0
	for i := range f.nodeGroups {
		ng := &f.nodeGroups[i]
		if ng.noShadow {
			ng.group = ng.renderer.NoShadowGroup(len(ng.lights))
		}
		if ng.group.ShaderSource() == nil {
			continue
		}
		slices.SortFunc(ng.lights, light.Compare)
		f.nodeGroups[n], f.nodeGroups[i] = f.nodeGroups[i], f.nodeGroups[n]
		n++
	}
	f.nodeGroups = f.nodeGroups[:n]
	groups := f.nodeGroups
	slices.SortFunc(groups, compareNodeGroups)

	shaderKey := f.shaderKey(node, groups)
	se, ok := f.shaderEntries[shaderKey]
	if !ok {
		se = newShaderEntry(shaderKey, groups)
		f.shaderEntries[shaderKey] = se
		f.logger.Debug().
			Str("key", shaderKey.String()).
			Str("effect", node.Effect.EffectName).
			Int("direct_groups", len(se.DirectLightSources)).
			Int("environment_groups", len(se.EnvironmentLightSources)).
			Msg("shader permutation created")
	}

	paramsKey := f.parametersKey(shaderKey, d.ViewIndex, groups)
	pe, ok := f.paramEntries[paramsKey]
	if !ok {
		pe = f.newParametersEntry(paramsKey, se, d, groups)
		f.paramEntries[paramsKey] = pe
	}
	pe.LastFrameUsed = f.frame
	f.nodeEntries[node] = pe

	f.validate(node.Effect, se)
}

// shaderKey hashes what selects the fragments: the effect, whether the mesh receives shadows,
// then (renderer, shadow type, light count) per group in slot order.
func (f *forwardLightingImpl) shaderKey(node *renderer.RenderNode, groups []nodeGroup) common.ObjectID {
	b := f.keys
	b.Reset()
	b.WriteString(node.Effect.EffectName)
	b.WriteBool(node.Mesh.IsShadowReceiver)
	b.WriteUint32(uint32(len(groups)))
	for _, g := range groups {
		b.WriteBool(g.env)
		b.WriteUint32(uint32(g.id))
		b.WriteUint32(uint32(g.group.ShadowType()))
		b.WriteUint32(uint32(g.group.LightCurrentCount()))
	}
	return b.Sum()
}

// parametersKey hashes the concrete lights bound into a shader permutation in one view.
func (f *forwardLightingImpl) parametersKey(shaderKey common.ObjectID, viewIndex int, groups []nodeGroup) common.ObjectID {
	b := f.keys
	b.Reset()
	b.WriteID(shaderKey)
	b.WriteUint32(uint32(viewIndex))
	for _, g := range groups {
		b.WriteUint32(uint32(len(g.lights)))
		for _, l := range g.lights {
			id := l.ID()
			b.Write(id[:])
		}
	}
	return b.Sum()
}

func newShaderEntry(key common.ObjectID, groups []nodeGroup) *LightShaderPermutationEntry {
	se := &LightShaderPermutationEntry{
		Key:                     key,
		DirectLightSources:      shader.SourceCollection{},
		EnvironmentLightSources: shader.SourceCollection{},
	}
	for _, g := range groups {
		if g.env {
			se.EnvironmentLightSources = append(se.EnvironmentLightSources, g.group.ShaderSource())
		} else {
			se.DirectLightSources = append(se.DirectLightSources, g.group.ShaderSource())
		}
	}
	return se
}

func (f *forwardLightingImpl) newParametersEntry(key common.ObjectID, se *LightShaderPermutationEntry, d *RenderViewLightData, groups []nodeGroup) *LightParametersPermutationEntry {
	pe := f.pool.get()
	pe.Key = key
	pe.ShaderEntry = se
	pe.View = d.View
	for _, g := range groups {
		var data LightShaderGroupData
		if g.env {
			data = g.group.CreateGroupData(shader.ComposeName(EnvironmentLightsSlot, len(pe.EnvironmentLightDatas)))
			pe.EnvironmentLightDatas = append(pe.EnvironmentLightDatas, data)
		} else {
			data = g.group.CreateGroupData(shader.ComposeName(DirectLightGroupsSlot, len(pe.DirectLightGroupDatas)))
			pe.DirectLightGroupDatas = append(pe.DirectLightGroupDatas, data)
		}
		shadowed := g.group.ShadowType() != 0
		for _, l := range g.lights {
			var shadow *LightShadowMapTexture
			if shadowed {
				shadow = d.ShadowTexture(l)
			}
			data.AddLight(l, shadow)
		}
	}
	return pe
}

// validate requires the light sources of se from a render effect. An effect shared by several
// nodes is validated by the first node of the frame; nodes needing another permutation are left
// unbound by Prepare.
func (f *forwardLightingImpl) validate(re *renderer.RenderEffect, se *LightShaderPermutationEntry) {
	if _, ok := f.validated[re]; ok {
		return
	}
	f.validated[re] = se
	v := re.Validator
	v.BeginEffectValidation()
	v.ValidateParameter(DirectLightGroupsKey, se.DirectLightSources)
	v.ValidateParameter(EnvironmentLightsKey, se.EnvironmentLightSources)
	if v.EndEffectValidation() {
		f.logger.Debug().Str("effect", re.EffectName).Str("key", se.Key.String()).Msg("light permutation changed")
	}
}

func (f *forwardLightingImpl) Prepare(nodes []*renderer.RenderNode) int {
	bound := 0
	for _, node := range nodes {
		if f.bindNode(node) {
			bound++
		} else {
			node.Bind(LightingResourceGroup, nil)
		}
	}
	return bound
}

func (f *forwardLightingImpl) bindNode(node *renderer.RenderNode) bool {
	pe, ok := f.nodeEntries[node]
	if !ok || pe.ShaderEntry.IsEmpty() {
		return false
	}
	re := node.Effect
	if re.State != renderer.RenderEffectStateNormal || re.Effect == nil {
		return false
	}
	if f.validated[re] != pe.ShaderEntry {
		f.logger.Warn().
			Str("effect", re.EffectName).
			Str("mesh", node.Mesh.Name).
			Str("view", node.View.Name).
			Msg("render effect validated for another light permutation, node left unlit")
		return false
	}
	layout, ok := f.layoutFor(re.Effect)
	if !ok {
		return false
	}

	group, written := pe.resourceGroup(layout, f.frame)
	if !written {
		if err := f.writeGroup(pe, layout, group); err != nil {
			pe.invalidate(layout)
			f.logger.Error().Err(err).Str("effect", re.EffectName).Str("mesh", node.Mesh.Name).Msg("failed to bind lights")
			return false
		}
	}
	node.Bind(LightingResourceGroup, group)
	return true
}

func (f *forwardLightingImpl) writeGroup(pe *LightParametersPermutationEntry, layout *renderer.ResourceGroupLayout, group *renderer.ResourceGroup) error {
	if err := f.allocator.PrepareResourceGroup(layout, renderer.ResourceUsageDynamic, group); err != nil {
		return err
	}
	if err := pe.apply(group); err != nil {
		return err
	}
	return f.allocator.CommitResourceGroup(group)
}

// layoutFor returns the lighting layout of an effect. Layouts are cached per bytecode and
// shared between bytecodes with the same layout hash; a missing layout is cached as nil.
func (f *forwardLightingImpl) layoutFor(e *effect.Effect) (*renderer.ResourceGroupLayout, bool) {
	bc := e.Bytecode()
	if bc == nil {
		return nil, false
	}
	if layout, ok := f.layouts.Get(bc.ID); ok {
		return layout, layout != nil
	}

	layout, err := renderer.NewResourceGroupLayout(bc, LightingResourceGroup)
	if err != nil {
		f.logger.Warn().Err(err).Str("effect", e.Name()).Msg("effect has no lighting layout, nodes left unlit")
		f.layouts.Add(bc.ID, nil)
		return nil, false
	}
	if shared, ok := f.layoutsByHash[layout.Hash]; ok {
		layout = shared
	} else {
		f.layoutsByHash[layout.Hash] = layout
	}
	f.layouts.Add(bc.ID, layout)
	return layout, true
}
