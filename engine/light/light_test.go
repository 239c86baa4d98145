package light

import (
	"encoding/binary"
	"math"
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight(LightTypePoint, WithPosition(1, 2, 3), WithRange(2), WithIntensity(2), WithColor(1, 0.5, 0))

	assert.Equal(t, LightTypePoint, l.Type())
	assert.Equal(t, common.EntityGroupMaskAll, l.CullingMask())
	assert.True(t, l.Enabled())
	assert.Nil(t, l.Shadow())
	assert.False(t, ShadowEnabled(l))
	assert.Equal(t, common.Vec3{2, 1, 0}, l.ComputeColor())

	require.True(t, l.HasBoundingBox())
	assert.Equal(t, common.BoundingBox{Min: common.Vec3{-1, 0, 1}, Max: common.Vec3{3, 4, 5}}, l.BoundingBox())
}

func TestLightVariants(t *testing.T) {
	dir := NewLight(LightTypeDirectional, WithDirection(0, 0, -2))
	assert.False(t, dir.HasBoundingBox())
	assert.Equal(t, common.BoundingBox{}, dir.BoundingBox())
	assert.InDelta(t, -1, dir.Direction()[2], 1e-6)

	spot := NewLight(LightTypeSpot, WithSpotCone(30, 45))
	assert.InDelta(t, math32.Cos(math32.Pi/6), spot.InnerCone(), 1e-5)
	assert.InDelta(t, math32.Cos(math32.Pi/4), spot.OuterCone(), 1e-5)

	for _, lt := range []LightType{LightTypeAmbient, LightTypeSkybox} {
		assert.True(t, lt.IsEnvironment())
		assert.False(t, lt.IsDirect())
		assert.False(t, NewLight(lt).HasBoundingBox())
	}
	assert.Equal(t, "spot", LightTypeSpot.String())
	assert.Equal(t, "LightType(9)", LightType(9).String())
}

func TestLightShadowRestrictedToDirectLights(t *testing.T) {
	assert.Panics(t, func() { NewLight(LightTypeAmbient, WithShadow(DefaultShadow())) })
	assert.Panics(t, func() { NewLight(LightType(42)) })

	sky := NewLight(LightTypeSkybox)
	assert.Panics(t, func() { sky.SetShadow(&Shadow{Enabled: true}) })
	assert.NotPanics(t, func() { sky.SetShadow(nil) })

	spot := NewLight(LightTypeSpot)
	s := DefaultShadow()
	spot.SetShadow(&s)
	assert.True(t, ShadowEnabled(spot))
	s.Enabled = false
	assert.False(t, ShadowEnabled(spot))
}

func TestShadowType(t *testing.T) {
	s := DefaultShadow()
	s.CascadeCount = 4

	st := s.Type(LightTypeDirectional)
	assert.Equal(t, ShadowTypeCascade4|ShadowTypeFilterPCF, st)
	assert.Equal(t, 4, st.CascadeCount())
	assert.Equal(t, ShadowFilterPCF, st.Filter())

	// cascades only apply to directional lights
	assert.Equal(t, 1, s.Type(LightTypeSpot).CascadeCount())

	s.CascadeCount = 3
	assert.Equal(t, 2, s.Cascades(LightTypeDirectional))

	s.Filter = ShadowFilterNone
	assert.Equal(t, ShadowFilterNone, s.Type(LightTypePoint).Filter())

	s.Enabled = false
	assert.Zero(t, s.Type(LightTypeDirectional))
	assert.Zero(t, ShadowType(0).CascadeCount())
	assert.Zero(t, DefaultShadow().Type(LightTypeAmbient))

	assert.Equal(t, 512, ShadowMapSizeSmall.Resolution())
	assert.Equal(t, ShadowMapResolution, ShadowMapSizeLarge.Resolution())
}

func TestCompareOrdersByID(t *testing.T) {
	a := NewLight(LightTypePoint, WithID(uuid.MustParse("00000000-0000-0000-0000-000000000001")))
	b := NewLight(LightTypePoint, WithID(uuid.MustParse("00000000-0000-0000-0000-000000000002")))
	c := NewLight(LightTypeSpot, WithID(uuid.MustParse("10000000-0000-0000-0000-000000000000")))

	lights := []Light{c, b, a}
	slices.SortFunc(lights, Compare)
	assert.Equal(t, []Light{a, b, c}, lights)
	assert.Zero(t, Compare(a, a))
}

func TestLightComponentCollectionGroup(t *testing.T) {
	g0, g1, g2 := common.EntityGroup(0), common.EntityGroup(1), common.EntityGroup(2)

	everyone := NewLight(LightTypePoint)
	onlyG1 := NewLight(LightTypePoint, WithCullingMask(g1.Mask()))
	g0g2 := NewLight(LightTypePoint, WithCullingMask(g0.Mask()|g2.Mask()))

	group := NewLightComponentCollectionGroup(LightTypePoint)
	assert.Equal(t, LightTypePoint, group.LightType())

	lights := []Light{everyone, onlyG1, g0g2}
	for _, l := range lights {
		group.PrepareLight(l)
	}
	group.AllocateCollectionsPerGroupOfCullingMask()
	for _, l := range lights {
		group.AddLight(l)
	}

	assert.Equal(t, 3, group.Count())
	assert.Equal(t, lights, group.All().Lights())

	c0 := group.FindLightCollectionByGroup(g0)
	c1 := group.FindLightCollectionByGroup(g1)
	c2 := group.FindLightCollectionByGroup(g2)
	assert.Same(t, c0, c2, "groups lit by the same masks share a collection")
	assert.NotSame(t, c0, c1)
	assert.Equal(t, []Light{everyone, g0g2}, c0.Lights())
	assert.Equal(t, []Light{everyone, onlyG1}, c1.Lights())
	assert.True(t, c0.Groups().Contains(g2))

	// every group is reached by the catch-all light
	assert.Equal(t, 1, group.FindLightCollectionByGroup(common.EntityGroup(7)).Len())

	group.Clear()
	assert.Zero(t, group.Count())
	empty := group.FindLightCollectionByGroup(g0)
	require.NotNil(t, empty)
	assert.Zero(t, empty.Len())
}

func TestLightComponentCollectionGroupUnreachedGroup(t *testing.T) {
	group := NewLightComponentCollectionGroup(LightTypeSpot)
	l := NewLight(LightTypeSpot, WithCullingMask(common.EntityGroup(3).Mask()))
	group.PrepareLight(l)
	group.AllocateCollectionsPerGroupOfCullingMask()
	group.AddLight(l)

	assert.Equal(t, 1, group.FindLightCollectionByGroup(3).Len())
	assert.Zero(t, group.FindLightCollectionByGroup(4).Len())
}

func TestTileRectForBox(t *testing.T) {
	proj := common.Perspective(math32.Pi/2, 1, 0.1, 100)
	view := common.LookAt(common.Vec3{0, 0, 5}, common.Vec3{0, 0, 0}, common.Vec3{0, 1, 0})
	vp := common.Mul4(proj, view)

	tx, ty := TileCounts(256, 256)
	require.Equal(t, uint32(16), tx)
	require.Equal(t, uint32(16), ty)

	rect, ok := TileRectForBox(vp, 256, 256, common.BoundingBoxFromSphere(common.Vec3{0, 0, 0}, 0.5))
	require.True(t, ok)
	assert.LessOrEqual(t, rect.MinX, uint32(7))
	assert.GreaterOrEqual(t, rect.MaxX, uint32(8))
	assert.LessOrEqual(t, rect.MinY, uint32(7))
	assert.GreaterOrEqual(t, rect.MaxY, uint32(8))
	assert.Less(t, rect.MaxX-rect.MinX, uint32(15))

	// top-right quadrant in world space maps to small row indices
	rect, ok = TileRectForBox(vp, 256, 256, common.BoundingBox{Min: common.Vec3{2, 2, 0}, Max: common.Vec3{3, 3, 0.5}})
	require.True(t, ok)
	assert.GreaterOrEqual(t, rect.MinX, uint32(8))
	assert.LessOrEqual(t, rect.MaxY, uint32(7))

	_, ok = TileRectForBox(vp, 256, 256, common.BoundingBox{Min: common.Vec3{50, -1, -1}, Max: common.Vec3{51, 1, 1}})
	assert.False(t, ok)

	rect, ok = TileRectForBox(vp, 256, 256, common.BoundingBoxFromSphere(common.Vec3{0, 0, 5}, 2))
	require.True(t, ok)
	assert.Equal(t, TileRect{MaxX: 15, MaxY: 15}, rect, "boxes around the camera cover the screen")
}

func TestMarshalLightBuffer(t *testing.T) {
	s := DefaultShadow()
	l := NewLight(LightTypeSpot, WithPosition(1, 2, 3), WithRange(7), WithShadow(s))

	buf := MarshalLightBuffer(nil, [3]float32{0.1, 0.2, 0.3}, []Light{l, NewLight(LightTypePoint)})
	require.Len(t, buf, GPULightHeaderSize+2*GPULightSize)

	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[12:]))
	assert.Equal(t, float32(0.2), f32(4))

	rec := GPULightHeaderSize
	assert.Equal(t, float32(2), f32(rec+4))
	assert.Equal(t, uint32(LightTypeSpot), binary.LittleEndian.Uint32(buf[rec+12:]))
	assert.Equal(t, float32(7), f32(rec+44))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(buf[rec+56:]))
	assert.Zero(t, binary.LittleEndian.Uint32(buf[rec+GPULightSize+56:]))

	reused := MarshalLightBuffer(buf, [3]float32{}, []Light{l})
	assert.Len(t, reused, GPULightHeaderSize+GPULightSize)
	assert.Same(t, &buf[0], &reused[0])

	g := ToGPULight(l)
	assert.Equal(t, buf[rec:rec+GPULightSize], g.Marshal())

	u := GPUTileUniforms{TileCountX: 80, MaxLightsPerTile: MaxLightsPerTile}
	assert.Equal(t, uint32(80), binary.LittleEndian.Uint32(u.Marshal()))
}
