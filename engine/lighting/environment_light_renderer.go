package lighting

import (
	"github.com/google/uuid"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// EnvironmentLightRenderer renders ambient or skybox lights with a single fixed fragment.
// Ambient lights add up; a skybox group binds the first of its lights in id order.
type EnvironmentLightRenderer struct {
	lightType light.LightType

	initialized bool
	group       *environmentShaderGroup
	assigned    []map[uuid.UUID]struct{}
}

var _ LightGroupRenderer = &EnvironmentLightRenderer{}

// NewAmbientLightRenderer creates the renderer of ambient lights.
func NewAmbientLightRenderer() *EnvironmentLightRenderer {
	return &EnvironmentLightRenderer{lightType: light.LightTypeAmbient}
}

// NewSkyboxLightRenderer creates the renderer of skybox lights.
func NewSkyboxLightRenderer() *EnvironmentLightRenderer {
	return &EnvironmentLightRenderer{lightType: light.LightTypeSkybox}
}

func (r *EnvironmentLightRenderer) Name() string {
	return r.lightType.String()
}

func (r *EnvironmentLightRenderer) IsEnvironment() bool {
	return true
}

func (r *EnvironmentLightRenderer) CanHaveShadows() bool {
	return false
}

func (r *EnvironmentLightRenderer) LightMaxCount() int {
	return DefaultLightMaxCount
}

func (r *EnvironmentLightRenderer) AllocateLightMaxCount() bool {
	return false
}

func (r *EnvironmentLightRenderer) NonShadowRenderer() LightGroupRenderer {
	return nil
}

func (r *EnvironmentLightRenderer) Initialize() {
	if r.initialized {
		return
	}
	class := classAmbient
	if r.lightType == light.LightTypeSkybox {
		class = classSkybox
	}
	r.group = &environmentShaderGroup{lightType: r.lightType, source: shader.NewClassSource(class)}
	r.initialized = true
}

func (r *EnvironmentLightRenderer) Reset() {
	r.Initialize()
	r.group.dataUsed = 0
	for _, a := range r.assigned {
		clear(a)
	}
}

func (r *EnvironmentLightRenderer) SetViews(views []*renderer.RenderView) {
	for len(r.assigned) < len(views) {
		r.assigned = append(r.assigned, make(map[uuid.UUID]struct{}))
	}
}

func (r *EnvironmentLightRenderer) ProcessLights(ctx *ProcessLightsContext) {
	if len(ctx.Lights) == 0 || ctx.ViewIndex >= len(r.assigned) {
		return
	}
	r.Initialize()
	for _, l := range ctx.Lights {
		r.assigned[ctx.ViewIndex][l.ID()] = struct{}{}
	}
}

func (r *EnvironmentLightRenderer) UpdateShaderGroups() {}

func (r *EnvironmentLightRenderer) ShaderGroupFor(viewIndex int, l light.Light) (LightShaderGroup, bool) {
	if viewIndex < 0 || viewIndex >= len(r.assigned) {
		return nil, false
	}
	if _, ok := r.assigned[viewIndex][l.ID()]; !ok {
		return nil, false
	}
	return r.group, true
}

func (r *EnvironmentLightRenderer) NoShadowGroup(int) LightShaderGroup {
	r.Initialize()
	return r.group
}

type environmentShaderGroup struct {
	lightType light.LightType
	source    shader.ShaderSource
	data      []*environmentGroupData
	dataUsed  int
}

func (g *environmentShaderGroup) ShaderSource() shader.ShaderSource {
	return g.source
}

func (g *environmentShaderGroup) ShadowType() light.ShadowType {
	return 0
}

func (g *environmentShaderGroup) LightCurrentCount() int {
	return 1
}

func (g *environmentShaderGroup) CreateGroupData(composition string) LightShaderGroupData {
	if g.dataUsed == len(g.data) {
		g.data = append(g.data, &environmentGroupData{lightType: g.lightType})
	}
	d := g.data[g.dataUsed]
	g.dataUsed++
	d.color = common.Vec3{}
	d.intensity = 0
	d.count = 0
	if d.slot != composition {
		d.slot = composition
		if g.lightType == light.LightTypeSkybox {
			d.colorName = composed(skyboxColorKey, composition)
			d.intensityName = composed(skyboxIntensityKey, composition)
		} else {
			d.colorName = composed(ambientColorKey, composition)
			d.intensityName = ""
		}
	}
	return d
}

type environmentGroupData struct {
	lightType light.LightType
	slot      string

	colorName     string
	intensityName string

	color     common.Vec3
	intensity float32
	count     int
}

func (d *environmentGroupData) AddLight(l light.Light, _ *LightShadowMapTexture) {
	d.count++
	if d.lightType == light.LightTypeSkybox {
		if d.count == 1 {
			d.color = l.Color()
			d.intensity = l.Intensity()
		}
		return
	}
	d.color = d.color.Add(l.ComputeColor())
}

func (d *environmentGroupData) ApplyParameters(_ *renderer.RenderView, group *renderer.ResourceGroup) error {
	if _, err := group.SetMember(d.colorName, d.color); err != nil {
		return err
	}
	if d.intensityName != "" {
		if _, err := group.SetMember(d.intensityName, d.intensity); err != nil {
			return err
		}
	}
	return nil
}
