package lighting

import (
	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/parameter"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// LightViewRange is the run of a group's lights added for one view.
type LightViewRange struct {
	ViewIndex int
	Start     int
	Count     int
}

// LightShaderGroupDynamic is a light group whose fragment is generated for a light count that
// follows the scene. The count is the maximum requested by any view this frame; the fragment is
// only replaced when the count differs from the previous frame's.
type LightShaderGroupDynamic struct {
	owner      *LightGroupRendererDynamic
	shadowType light.ShadowType

	lightCurrentCount int
	lightLastCount    int
	views             []LightViewRange
	lights            []light.Light
	shadows           []*LightShadowMapTexture
	source            shader.ShaderSource

	data     []*dynamicGroupData
	dataUsed int
}

var _ LightShaderGroup = &LightShaderGroupDynamic{}

func newLightShaderGroupDynamic(owner *LightGroupRendererDynamic, shadowType light.ShadowType) *LightShaderGroupDynamic {
	return &LightShaderGroupDynamic{owner: owner, shadowType: shadowType}
}

func (g *LightShaderGroupDynamic) ShaderSource() shader.ShaderSource {
	return g.source
}

func (g *LightShaderGroupDynamic) ShadowType() light.ShadowType {
	return g.shadowType
}

func (g *LightShaderGroupDynamic) LightCurrentCount() int {
	return g.lightCurrentCount
}

// LightLastCount returns the light count of the previous frame.
func (g *LightShaderGroupDynamic) LightLastCount() int {
	return g.lightLastCount
}

// Views returns the view ranges added this frame.
func (g *LightShaderGroupDynamic) Views() []LightViewRange {
	return g.views
}

// Lights returns the lights added for a view this frame.
func (g *LightShaderGroupDynamic) Lights(viewIndex int) []light.Light {
	for _, v := range g.views {
		if v.ViewIndex == viewIndex {
			return g.lights[v.Start : v.Start+v.Count]
		}
	}
	return nil
}

// Reset starts a new frame, remembering the current light count as the last one.
func (g *LightShaderGroupDynamic) Reset() {
	g.lightLastCount = g.lightCurrentCount
	g.lightCurrentCount = 0
	g.views = g.views[:0]
	clear(g.lights)
	g.lights = g.lights[:0]
	clear(g.shadows)
	g.shadows = g.shadows[:0]
	g.resetData()
}

func (g *LightShaderGroupDynamic) resetData() {
	g.dataUsed = 0
}

// AddView records that a view uses lightCount lights of this group and grows the current
// light count according to the owner's allocation policy.
//
// Parameters:
//   - viewIndex: the view
//   - lightCount: the number of lights the view adds
func (g *LightShaderGroupDynamic) AddView(viewIndex, lightCount int) {
	g.views = append(g.views, LightViewRange{ViewIndex: viewIndex, Start: len(g.lights), Count: lightCount})
	g.lightCurrentCount = max(g.lightCurrentCount, g.owner.ComputeLightCount(lightCount, g.shadowType != 0))
}

// AddLight adds a light to the range of the last added view.
func (g *LightShaderGroupDynamic) AddLight(l light.Light, shadow *LightShadowMapTexture) {
	g.lights = append(g.lights, l)
	g.shadows = append(g.shadows, shadow)
}

// UpdateLightCount replaces the fragment when the light count changed since the last frame.
//
// Returns:
//   - bool: true if the fragment was replaced
func (g *LightShaderGroupDynamic) UpdateLightCount() bool {
	if g.lightCurrentCount == 0 {
		return false
	}
	if g.source != nil && g.lightCurrentCount == g.lightLastCount {
		return false
	}
	src := g.owner.source(g.shadowType, g.lightCurrentCount)
	if src == g.source {
		return false
	}
	g.source = src
	return true
}

func (g *LightShaderGroupDynamic) CreateGroupData(composition string) LightShaderGroupData {
	if g.dataUsed == len(g.data) {
		g.data = append(g.data, &dynamicGroupData{group: g})
	}
	d := g.data[g.dataUsed]
	g.dataUsed++
	d.reset(composition, g.lightCurrentCount)
	return d
}

// Member slots of a dynamic light group.
const (
	memberLightCount = iota
	memberPositions
	memberDirections
	memberColors
	memberRanges
	memberCones
	memberWorldToShadow
	memberAtlasRects
	memberBiases
	memberCascadeSplits
	memberShadowTexture
	memberShadowSampler
	memberCount
)

// dynamicLightStrategy describes the class a light type is rendered with and the members it reads.
type dynamicLightStrategy struct {
	lightType light.LightType
	class     string
	receiver  string
	members   [memberCount]parameter.Key
}

func newDynamicLightStrategy(t light.LightType) *dynamicLightStrategy {
	s := &dynamicLightStrategy{lightType: t}
	s.members[memberLightCount] = lightCountKey
	var rk shadowReceiverKeys
	switch t {
	case light.LightTypeDirectional:
		s.class, rk = classDirectionalGroup, directionalReceiverKeys
		s.members[memberDirections] = directionalDirectionsKey
		s.members[memberColors] = directionalColorsKey
		s.members[memberCascadeSplits] = rk.cascadeSplits
	case light.LightTypePoint:
		s.class, rk = classPointGroup, pointReceiverKeys
		s.members[memberPositions] = pointPositionsKey
		s.members[memberColors] = pointColorsKey
		s.members[memberRanges] = pointRangesKey
	case light.LightTypeSpot:
		s.class, rk = classSpotGroup, spotReceiverKeys
		s.members[memberPositions] = spotPositionsKey
		s.members[memberDirections] = spotDirectionsKey
		s.members[memberColors] = spotColorsKey
		s.members[memberRanges] = spotRangesKey
		s.members[memberCones] = spotConesKey
	default:
		panic("lighting: dynamic light groups only render direct lights")
	}
	s.receiver = rk.class
	s.members[memberWorldToShadow] = rk.worldToShadow
	s.members[memberAtlasRects] = rk.atlasRects
	s.members[memberBiases] = rk.biases
	s.members[memberShadowTexture] = rk.texture
	s.members[memberShadowSampler] = rk.sampler
	return s
}

// receiverSource returns the shadow receiver fragment for count lights of shadow type st.
func (s *dynamicLightStrategy) receiverSource(st light.ShadowType, count int) *shader.ClassSource {
	faces := shadowFaceCount(s.lightType, st)
	switch s.lightType {
	case light.LightTypeDirectional:
		return shader.NewClassSource(s.receiver, count, faces, count*faces, st.Filter())
	case light.LightTypePoint:
		return shader.NewClassSource(s.receiver, count, count*faces, st.Filter())
	default:
		return shader.NewClassSource(s.receiver, count, st.Filter())
	}
}

// dynamicGroupData binds the lights of one mesh into a dynamic light group.
type dynamicGroupData struct {
	group *LightShaderGroupDynamic
	count int
	slot  string
	names [memberCount]string

	lights  []light.Light
	shadows []*LightShadowMapTexture

	positions  []common.Vec3
	directions []common.Vec3
	colors     []common.Vec3
	ranges     []float32
	cones      [][4]float32
	matrices   []common.Mat4
	rects      [][4]float32
	biases     [][4]float32
	splits     [][4]float32
}

var _ LightShaderGroupData = &dynamicGroupData{}

func (d *dynamicGroupData) reset(slot string, count int) {
	d.count = count
	clear(d.lights)
	d.lights = d.lights[:0]
	clear(d.shadows)
	d.shadows = d.shadows[:0]
	if slot == d.slot && d.names[memberLightCount] != "" {
		return
	}
	d.slot = slot
	for i, key := range d.group.owner.strategy.members {
		if key.IsZero() {
			d.names[i] = ""
			continue
		}
		d.names[i] = composed(key, slot)
	}
}

func (d *dynamicGroupData) AddLight(l light.Light, shadow *LightShadowMapTexture) {
	if len(d.lights) >= d.count {
		return
	}
	d.lights = append(d.lights, l)
	d.shadows = append(d.shadows, shadow)
}

func (d *dynamicGroupData) set(group *renderer.ResourceGroup, member int, value any) error {
	name := d.names[member]
	if name == "" {
		return nil
	}
	_, err := group.SetMember(name, value)
	return err
}

func (d *dynamicGroupData) ApplyParameters(_ *renderer.RenderView, group *renderer.ResourceGroup) error {
	n := d.count
	d.positions = resize(d.positions, n)
	d.directions = resize(d.directions, n)
	d.colors = resize(d.colors, n)
	d.ranges = resize(d.ranges, n)
	d.cones = resize(d.cones, n)

	for i, l := range d.lights {
		d.positions[i] = l.Position()
		d.directions[i] = l.Direction().Normalize()
		d.colors[i] = l.ComputeColor()
		d.ranges[i] = l.Range()
		d.cones[i] = [4]float32{l.InnerCone(), l.OuterCone(), 0, 0}
	}

	writes := []struct {
		member int
		value  any
	}{
		{memberLightCount, int32(len(d.lights))},
		{memberPositions, d.positions},
		{memberDirections, d.directions},
		{memberColors, d.colors},
		{memberRanges, d.ranges},
		{memberCones, d.cones},
	}
	for _, w := range writes {
		if err := d.set(group, w.member, w.value); err != nil {
			return err
		}
	}

	if d.group.shadowType == 0 {
		return nil
	}
	return d.applyShadows(group)
}

func (d *dynamicGroupData) applyShadows(group *renderer.ResourceGroup) error {
	n := d.count
	faces := shadowFaceCount(d.group.owner.strategy.lightType, d.group.shadowType)
	d.matrices = resize(d.matrices, n*faces)
	d.rects = resize(d.rects, n*faces)
	d.biases = resize(d.biases, n)
	d.splits = resize(d.splits, n)

	var atlas *ShadowMapAtlas
	for i, t := range d.shadows {
		if t == nil {
			continue
		}
		atlas = t.Atlas
		for f := 0; f < faces && f < len(t.WorldToShadow); f++ {
			d.matrices[i*faces+f] = t.WorldToShadow[f]
			d.rects[i*faces+f] = t.AtlasRect(f)
		}
		d.biases[i] = [4]float32{t.DepthBias, t.NormalBias, t.TexelSize, 0}
		d.splits[i] = t.CascadeSplits
	}

	writes := []struct {
		member int
		value  any
	}{
		{memberWorldToShadow, d.matrices},
		{memberAtlasRects, d.rects},
		{memberBiases, d.biases},
		{memberCascadeSplits, d.splits},
	}
	for _, w := range writes {
		if err := d.set(group, w.member, w.value); err != nil {
			return err
		}
	}

	if atlas != nil {
		group.SetResource(d.names[memberShadowTexture], atlas.Texture)
	}
	if s := d.group.owner.shadowSampler(); s != nil {
		group.SetResource(d.names[memberShadowSampler], s)
	}
	return nil
}

// resize returns s with length n and every element zeroed, reusing its capacity.
func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	s = s[:n]
	clear(s)
	return s
}
