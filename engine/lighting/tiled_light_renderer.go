package lighting

import (
	"encoding/binary"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

// DefaultTiledLightMaxCount is the default maximum number of lights the tiled renderer handles per view.
const DefaultTiledLightMaxCount = 1024

// tiledViewData holds the light and tile buffers of one view. The tile buffer starts with an
// (offset, count) pair per tile followed by the light indices of every tile, all u32.
type tiledViewData struct {
	view     *renderer.RenderView
	lights   []light.Light
	assigned map[uuid.UUID]struct{}

	lightBuffer []byte
	tileBuffer  []byte
	tileCountX  uint32
	tileCountY  uint32
	tileCounts  []uint32
	tileLights  [][]uint32
}

func (d *tiledViewData) reset() {
	clear(d.lights)
	d.lights = d.lights[:0]
	clear(d.assigned)
}

// TiledLightRenderer renders unshadowed point and spot lights from one storage buffer per view.
// Lights are binned into screen tiles of light.TileSize pixels, so the fragment only depends on
// the view and never on the number of lights. It is used as the NonShadowRenderer of the point
// and spot renderers.
type TiledLightRenderer struct {
	lightMaxCount int
	logger        zerolog.Logger

	initialized bool
	group       *tiledShaderGroup
	views       []*renderer.RenderView
	perView     []*tiledViewData
}

var _ LightGroupRenderer = &TiledLightRenderer{}

// NewTiledLightRenderer creates a tiled renderer.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *TiledLightRenderer: the renderer
func NewTiledLightRenderer(options ...TiledLightRendererBuilderOption) *TiledLightRenderer {
	r := &TiledLightRenderer{
		lightMaxCount: DefaultTiledLightMaxCount,
		logger:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.lightMaxCount < 1 {
		panic("lighting: light max count must be positive")
	}
	r.logger = r.logger.With().Str("component", "light_group_renderer").Str("renderer", r.Name()).Logger()
	return r
}

func (r *TiledLightRenderer) Name() string {
	return "tiled"
}

func (r *TiledLightRenderer) IsEnvironment() bool {
	return false
}

func (r *TiledLightRenderer) CanHaveShadows() bool {
	return false
}

func (r *TiledLightRenderer) LightMaxCount() int {
	return r.lightMaxCount
}

func (r *TiledLightRenderer) AllocateLightMaxCount() bool {
	return false
}

func (r *TiledLightRenderer) NonShadowRenderer() LightGroupRenderer {
	return nil
}

func (r *TiledLightRenderer) Initialize() {
	if r.initialized {
		return
	}
	r.group = &tiledShaderGroup{owner: r, source: shader.NewClassSource(classTiledGroup)}
	r.initialized = true
	r.logger.Debug().Int("max_lights", r.lightMaxCount).Msg("initialized")
}

func (r *TiledLightRenderer) Reset() {
	r.Initialize()
	r.group.dataUsed = 0
	for _, d := range r.perView {
		d.reset()
	}
}

func (r *TiledLightRenderer) SetViews(views []*renderer.RenderView) {
	r.views = append(r.views[:0], views...)
	for len(r.perView) < len(views) {
		r.perView = append(r.perView, &tiledViewData{assigned: make(map[uuid.UUID]struct{})})
	}
	for i, v := range views {
		r.perView[i].view = v
	}
}

// ComputeLightCount returns the light count the tiled fragment is generated for, always 1.
func (r *TiledLightRenderer) ComputeLightCount(int) int {
	return 1
}

func (r *TiledLightRenderer) ProcessLights(ctx *ProcessLightsContext) {
	if len(ctx.Lights) == 0 || ctx.ViewIndex >= len(r.perView) {
		return
	}
	r.Initialize()
	d := r.perView[ctx.ViewIndex]
	for _, l := range ctx.Lights {
		if len(d.lights) >= r.lightMaxCount {
			r.logger.Warn().
				Int("view", ctx.ViewIndex).
				Int("dropped", len(ctx.Lights)).
				Msg("too many tiled lights, dropping the rest")
			break
		}
		d.lights = append(d.lights, l)
		d.assigned[l.ID()] = struct{}{}
	}
}

func (r *TiledLightRenderer) UpdateShaderGroups() {
	for _, d := range r.perView[:len(r.views)] {
		if len(d.lights) == 0 {
			continue
		}
		r.buildTiles(d)
	}
}

func (r *TiledLightRenderer) buildTiles(d *tiledViewData) {
	slices.SortFunc(d.lights, light.Compare)
	d.lightBuffer = light.MarshalLightBuffer(d.lightBuffer, [3]float32{}, d.lights)

	view := d.view
	d.tileCountX, d.tileCountY = light.TileCounts(view.Width, view.Height)
	tiles := int(d.tileCountX * d.tileCountY)
	d.tileCounts = resize(d.tileCounts, tiles)
	for len(d.tileLights) < tiles {
		d.tileLights = append(d.tileLights, nil)
	}
	for i := range tiles {
		d.tileLights[i] = d.tileLights[i][:0]
	}

	for li, l := range d.lights {
		rect, ok := light.TileRectForBox(view.ViewProjection, view.Width, view.Height, l.BoundingBox())
		if !ok {
			continue
		}
		for y := rect.MinY; y <= rect.MaxY; y++ {
			for x := rect.MinX; x <= rect.MaxX; x++ {
				t := y*d.tileCountX + x
				if len(d.tileLights[t]) < light.MaxLightsPerTile {
					d.tileLights[t] = append(d.tileLights[t], uint32(li))
				}
			}
		}
	}

	total := tiles * 2
	for t := range tiles {
		total += len(d.tileLights[t])
	}
	d.tileBuffer = resize(d.tileBuffer, total*4)
	offset := uint32(tiles * 2)
	for t := range tiles {
		indices := d.tileLights[t]
		binary.LittleEndian.PutUint32(d.tileBuffer[t*8:], offset)
		binary.LittleEndian.PutUint32(d.tileBuffer[t*8+4:], uint32(len(indices)))
		for i, idx := range indices {
			binary.LittleEndian.PutUint32(d.tileBuffer[(int(offset)+i)*4:], idx)
		}
		offset += uint32(len(indices))
	}
}

func (r *TiledLightRenderer) ShaderGroupFor(viewIndex int, l light.Light) (LightShaderGroup, bool) {
	if viewIndex < 0 || viewIndex >= len(r.perView) {
		return nil, false
	}
	if _, ok := r.perView[viewIndex].assigned[l.ID()]; !ok {
		return nil, false
	}
	return r.group, true
}

func (r *TiledLightRenderer) NoShadowGroup(int) LightShaderGroup {
	r.Initialize()
	return r.group
}

func (r *TiledLightRenderer) viewData(view *renderer.RenderView) *tiledViewData {
	for _, d := range r.perView[:len(r.views)] {
		if d.view == view {
			return d
		}
	}
	return nil
}

// TileLights returns the light indices binned into tile (x, y) of a view.
//
// Parameters:
//   - viewIndex: the view
//   - x, y: the tile
//
// Returns:
//   - []uint32: indices into the view's light buffer
func (r *TiledLightRenderer) TileLights(viewIndex int, x, y uint32) []uint32 {
	if viewIndex < 0 || viewIndex >= len(r.perView) {
		return nil
	}
	d := r.perView[viewIndex]
	if x >= d.tileCountX || y >= d.tileCountY {
		return nil
	}
	return d.tileLights[y*d.tileCountX+x]
}

type tiledShaderGroup struct {
	owner    *TiledLightRenderer
	source   shader.ShaderSource
	data     []*tiledGroupData
	dataUsed int
}

func (g *tiledShaderGroup) ShaderSource() shader.ShaderSource {
	return g.source
}

func (g *tiledShaderGroup) ShadowType() light.ShadowType {
	return 0
}

func (g *tiledShaderGroup) LightCurrentCount() int {
	return g.owner.ComputeLightCount(0)
}

func (g *tiledShaderGroup) CreateGroupData(composition string) LightShaderGroupData {
	if g.dataUsed == len(g.data) {
		g.data = append(g.data, &tiledGroupData{owner: g.owner})
	}
	d := g.data[g.dataUsed]
	g.dataUsed++
	if d.slot != composition {
		d.slot = composition
		d.tileCountX = composed(tiledTileCountXKey, composition)
		d.lightCount = composed(tiledLightCountKey, composition)
		d.lights = composed(tiledLightsKey, composition)
		d.tileLights = composed(tiledTileLightsKey, composition)
	}
	return d
}

// tiledGroupData binds the per-view buffers of the tiled renderer; every mesh of a view shares them.
type tiledGroupData struct {
	owner *TiledLightRenderer
	slot  string

	tileCountX string
	lightCount string
	lights     string
	tileLights string
}

func (d *tiledGroupData) AddLight(light.Light, *LightShadowMapTexture) {}

func (d *tiledGroupData) ApplyParameters(view *renderer.RenderView, group *renderer.ResourceGroup) error {
	vd := d.owner.viewData(view)
	if vd == nil {
		return nil
	}
	if _, err := group.SetMember(d.tileCountX, vd.tileCountX); err != nil {
		return err
	}
	if _, err := group.SetMember(d.lightCount, uint32(len(vd.lights))); err != nil {
		return err
	}
	group.SetResource(d.lights, vd.lightBuffer)
	group.SetResource(d.tileLights, vd.tileBuffer)
	return nil
}
