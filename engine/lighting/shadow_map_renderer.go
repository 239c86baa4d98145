package lighting

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer"
)

// DefaultShadowAtlasSize is the width and height in texels of a view's shadow map atlas.
const DefaultShadowAtlasSize = 4096

// ShadowMapRect is a square region of a shadow map atlas, in texels.
type ShadowMapRect struct {
	X, Y, Size int
}

// ShadowMapAtlas is the depth texture every shadow map of one view is packed into.
// Rects are packed in rows from the top left corner.
type ShadowMapAtlas struct {
	Index int
	Size  int

	// Texture is the backend texture bound as the receivers' shadow map. It defaults to the
	// atlas itself when no texture factory is configured.
	Texture any

	x, y, rowHeight int
}

func (a *ShadowMapAtlas) reset() {
	a.x, a.y, a.rowHeight = 0, 0, 0
}

// allocate reserves count squares of size texels, either all of them or none.
func (a *ShadowMapAtlas) allocate(size, count int, dst []ShadowMapRect) ([]ShadowMapRect, bool) {
	x, y, row := a.x, a.y, a.rowHeight
	start := len(dst)
	for range count {
		if x+size > a.Size {
			x, y, row = 0, y+row, 0
		}
		if x+size > a.Size || y+size > a.Size {
			return dst[:start], false
		}
		dst = append(dst, ShadowMapRect{X: x, Y: y, Size: size})
		x += size
		row = max(row, size)
	}
	a.x, a.y, a.rowHeight = x, y, row
	return dst, true
}

// LightShadowMapTexture is the shadow map assignment of one light in one view: the atlas
// rects it renders into and the matrices receivers project with, one per cascade or cube face.
type LightShadowMapTexture struct {
	Light      light.Light
	ShadowType light.ShadowType
	Resolution int
	Atlas      *ShadowMapAtlas

	Rects         []ShadowMapRect
	WorldToShadow []common.Mat4

	// CascadeSplits holds the view distance covered by each directional cascade.
	CascadeSplits [4]float32

	DepthBias  float32
	NormalBias float32
	TexelSize  float32
}

// AtlasRect returns rect i in normalized atlas coordinates (x, y, width, height).
func (t *LightShadowMapTexture) AtlasRect(i int) [4]float32 {
	r := t.Rects[i]
	s := float32(t.Atlas.Size)
	return [4]float32{float32(r.X) / s, float32(r.Y) / s, float32(r.Size) / s, float32(r.Size) / s}
}

// ShadowMapRenderer assigns shadow maps to the shadowed lights of every view. Lights that do
// not fit in the view's atlas get no assignment and are lit without shadows.
type ShadowMapRenderer interface {
	// Reset releases every assignment of the previous frame. Atlases and their textures are kept.
	Reset()

	// Assign packs the shadow maps of lights into the atlas of a view and computes their
	// matrices. Lights are packed largest first, then by id, so the result does not depend on
	// the order of lights.
	//
	// Parameters:
	//   - view: the view the shadows are rendered for
	//   - viewIndex: the index of the view this frame
	//   - lights: the shadowed lights visible in the view
	//   - out: receives one assignment per light that got a shadow map
	Assign(view *renderer.RenderView, viewIndex int, lights []light.Light, out map[uuid.UUID]*LightShadowMapTexture)

	// Atlas returns the atlas of a view.
	//
	// Parameters:
	//   - viewIndex: the index of the view
	//
	// Returns:
	//   - *ShadowMapAtlas: the atlas, nil if the view never had shadows
	Atlas(viewIndex int) *ShadowMapAtlas

	// Sampler returns the comparison sampler bound next to the shadow maps.
	//
	// Returns:
	//   - any: the backend sampler, nil when none is configured
	Sampler() any
}

type shadowMapRendererImpl struct {
	atlasSize      int
	textureFactory func(index, size int) any
	sampler        any
	logger         zerolog.Logger

	atlases  []*ShadowMapAtlas
	textures []*LightShadowMapTexture
	used     int
	sorted   []light.Light
}

var _ ShadowMapRenderer = &shadowMapRendererImpl{}

// NewShadowMapRenderer creates a shadow map renderer.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - ShadowMapRenderer: the renderer
func NewShadowMapRenderer(options ...ShadowMapRendererBuilderOption) ShadowMapRenderer {
	s := &shadowMapRendererImpl{
		atlasSize: DefaultShadowAtlasSize,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.atlasSize <= 0 {
		panic("lighting: shadow atlas size must be positive")
	}
	s.logger = s.logger.With().Str("component", "shadow_map_renderer").Logger()
	return s
}

func (s *shadowMapRendererImpl) Reset() {
	s.used = 0
}

func (s *shadowMapRendererImpl) Atlas(viewIndex int) *ShadowMapAtlas {
	if viewIndex < 0 || viewIndex >= len(s.atlases) {
		return nil
	}
	return s.atlases[viewIndex]
}

func (s *shadowMapRendererImpl) Sampler() any {
	return s.sampler
}

func (s *shadowMapRendererImpl) atlas(viewIndex int) *ShadowMapAtlas {
	for len(s.atlases) <= viewIndex {
		a := &ShadowMapAtlas{Index: len(s.atlases), Size: s.atlasSize}
		if s.textureFactory != nil {
			a.Texture = s.textureFactory(a.Index, a.Size)
		} else {
			a.Texture = a
		}
		s.atlases = append(s.atlases, a)
	}
	return s.atlases[viewIndex]
}

func (s *shadowMapRendererImpl) texture() *LightShadowMapTexture {
	if s.used == len(s.textures) {
		s.textures = append(s.textures, &LightShadowMapTexture{})
	}
	t := s.textures[s.used]
	s.used++
	rects, matrices := t.Rects[:0], t.WorldToShadow[:0]
	*t = LightShadowMapTexture{Rects: rects, WorldToShadow: matrices}
	return t
}

func (s *shadowMapRendererImpl) Assign(view *renderer.RenderView, viewIndex int, lights []light.Light, out map[uuid.UUID]*LightShadowMapTexture) {
	atlas := s.atlas(viewIndex)
	atlas.reset()

	s.sorted = append(s.sorted[:0], lights...)
	slices.SortFunc(s.sorted, func(a, b light.Light) int {
		ra, rb := a.Shadow().Size.Resolution(), b.Shadow().Size.Resolution()
		if ra != rb {
			return rb - ra
		}
		return light.Compare(a, b)
	})

	for _, l := range s.sorted {
		sh := l.Shadow()
		if sh == nil {
			continue
		}
		st := sh.Type(l.Type())
		if st == 0 {
			continue
		}
		res := sh.Size.Resolution()
		faces := shadowFaceCount(l.Type(), st)

		t := s.texture()
		rects, ok := atlas.allocate(res, faces, t.Rects)
		if !ok {
			s.used--
			s.logger.Debug().
				Str("light", l.ID().String()).
				Int("view", viewIndex).
				Int("resolution", res).
				Msg("shadow atlas full, light is rendered without shadow")
			continue
		}
		t.Light = l
		t.ShadowType = st
		t.Resolution = res
		t.Atlas = atlas
		t.Rects = rects
		t.DepthBias = sh.DepthBias
		t.NormalBias = sh.NormalBias
		t.WorldToShadow, t.TexelSize = shadowMatrices(t.WorldToShadow, &t.CascadeSplits, view, l, st, res)
		out[l.ID()] = t
	}
}

// shadowFaceCount returns the number of shadow maps a light renders: one per cascade for
// directional lights, six cube faces for point lights and one for spot lights.
func shadowFaceCount(t light.LightType, st light.ShadowType) int {
	switch t {
	case light.LightTypeDirectional:
		return st.CascadeCount()
	case light.LightTypePoint:
		return 6
	default:
		return 1
	}
}

var cubeFaces = [6][2]common.Vec3{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

func shadowMatrices(dst []common.Mat4, splits *[4]float32, view *renderer.RenderView, l light.Light, st light.ShadowType, res int) ([]common.Mat4, float32) {
	dst = dst[:0]
	*splits = [4]float32{}
	up := common.Vec3{0, 1, 0}

	switch l.Type() {
	case light.LightTypeDirectional:
		dir := l.Direction().Normalize()
		if math32.Abs(dir[1]) > 0.99 {
			up = common.Vec3{0, 0, 1}
		}
		n := st.CascadeCount()
		center := view.Position
		eye := center.Sub(dir.Scale(light.DefaultShadowFar * 0.5))
		lightView := common.LookAt(eye, center, up)
		var texel float32
		for i := range n {
			// each cascade doubles the extent of the previous one
			h := light.DefaultShadowHalfExtent * float32(int(1)<<i) / float32(int(1)<<(n-1))
			splits[i] = h
			proj := common.Orthographic(-h, h, -h, h, light.DefaultShadowNear, light.DefaultShadowFar)
			dst = append(dst, common.Mul4(proj, lightView))
			if i == 0 {
				texel = 2 * h / float32(res)
			}
		}
		return dst, texel

	case light.LightTypeSpot:
		pos := l.Position()
		dir := l.Direction().Normalize()
		if math32.Abs(dir[1]) > 0.99 {
			up = common.Vec3{0, 0, 1}
		}
		fov := 2 * math32.Acos(common.Clamp(l.OuterCone(), -1, 1))
		proj := common.Perspective(fov, 1, light.DefaultShadowNear, math32.Max(l.Range(), light.DefaultShadowNear*2))
		dst = append(dst, common.Mul4(proj, common.LookAt(pos, pos.Add(dir), up)))
		return dst, 2 * math32.Tan(fov/2) * l.Range() / float32(res)

	default:
		pos := l.Position()
		proj := common.Perspective(math32.Pi/2, 1, light.DefaultShadowNear, math32.Max(l.Range(), light.DefaultShadowNear*2))
		for _, f := range cubeFaces {
			dst = append(dst, common.Mul4(proj, common.LookAt(pos, pos.Add(f[0]), f[1])))
		}
		return dst, 2 * l.Range() / float32(res)
	}
}
