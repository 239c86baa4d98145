package lighting

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/common"
	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
)

func TestShadowMapAtlasAllocate(t *testing.T) {
	a := &ShadowMapAtlas{Size: 100}

	rects, ok := a.allocate(40, 2, nil)
	require.True(t, ok)
	assert.Equal(t, []ShadowMapRect{{X: 0, Y: 0, Size: 40}, {X: 40, Y: 0, Size: 40}}, rects)

	rects, ok = a.allocate(40, 2, nil)
	require.True(t, ok)
	assert.Equal(t, []ShadowMapRect{{X: 0, Y: 40, Size: 40}, {X: 40, Y: 40, Size: 40}}, rects, "a full row wraps")

	prefix := []ShadowMapRect{{Size: 1}}
	rects, ok = a.allocate(40, 2, prefix)
	assert.False(t, ok)
	assert.Equal(t, prefix, rects, "a failed allocation reserves nothing")

	rects, ok = a.allocate(20, 1, nil)
	require.True(t, ok, "the failed allocation left the cursor in place")
	assert.Equal(t, []ShadowMapRect{{X: 80, Y: 40, Size: 20}}, rects)

	a.reset()
	rects, _ = a.allocate(10, 1, nil)
	assert.Equal(t, ShadowMapRect{Size: 10}, rects[0])
}

func shadowOf(size light.ShadowMapSize, cascades int) light.Shadow {
	s := light.DefaultShadow()
	s.Size = size
	s.CascadeCount = cascades
	return s
}

func TestShadowMapRendererSkipsLightsThatDoNotFit(t *testing.T) {
	s := NewShadowMapRenderer(WithShadowAtlasSize(light.ShadowMapResolution))
	large := light.NewLight(light.LightTypeSpot, light.WithID(lightID(2)), light.WithShadow(shadowOf(light.ShadowMapSizeLarge, 1)))
	small := light.NewLight(light.LightTypeSpot, light.WithID(lightID(1)), light.WithShadow(shadowOf(light.ShadowMapSizeSmall, 1)))
	point := light.NewLight(light.LightTypePoint, light.WithID(lightID(3)), light.WithShadow(shadowOf(light.ShadowMapSizeMedium, 1)))

	out := make(map[uuid.UUID]*LightShadowMapTexture)
	s.Assign(testView(), 0, []light.Light{small, point, large}, out)

	require.Len(t, out, 1, "the largest map is packed first and fills the atlas")
	tex := out[large.ID()]
	require.NotNil(t, tex)
	assert.Equal(t, []ShadowMapRect{{Size: light.ShadowMapResolution}}, tex.Rects)
	assert.Equal(t, [4]float32{0, 0, 1, 1}, tex.AtlasRect(0))
	assert.Len(t, tex.WorldToShadow, 1)
	assert.Same(t, s.Atlas(0), tex.Atlas)
	assert.Equal(t, light.DefaultShadowBias, tex.DepthBias)
}

func TestShadowMapRendererFaces(t *testing.T) {
	s := NewShadowMapRenderer(
		WithShadowTextureFactory(func(index, size int) any { return fmt.Sprintf("atlas-%d-%d", index, size) }),
		WithShadowSampler("cmp"),
	)
	view := testView()
	sun := light.NewLight(light.LightTypeDirectional, light.WithID(lightID(1)),
		light.WithDirection(0, -1, 0), light.WithShadow(shadowOf(light.ShadowMapSizeMedium, 4)))
	bulb := light.NewLight(light.LightTypePoint, light.WithID(lightID(2)),
		light.WithPosition(0, 2, 0), light.WithRange(5), light.WithShadow(shadowOf(light.ShadowMapSizeMedium, 1)))

	out := make(map[uuid.UUID]*LightShadowMapTexture)
	s.Assign(view, 0, []light.Light{bulb, sun}, out)
	require.Len(t, out, 2)

	cascades := out[sun.ID()]
	assert.Equal(t, 4, cascades.ShadowType.CascadeCount())
	assert.Len(t, cascades.Rects, 4)
	assert.Len(t, cascades.WorldToShadow, 4)
	assert.Equal(t, [4]float32{5, 10, 20, 40}, cascades.CascadeSplits)
	for i, m := range cascades.WorldToShadow {
		p, _ := common.TransformPoint(m, view.Position)
		assert.InDelta(t, 0, p[0], 1e-3, "cascade %d is centered on the view", i)
		assert.InDelta(t, 0, p[1], 1e-3, "cascade %d is centered on the view", i)
	}

	cube := out[bulb.ID()]
	assert.Len(t, cube.Rects, 6)
	assert.Len(t, cube.WorldToShadow, 6)
	assert.Equal(t, ShadowMapRect{X: 0, Y: 1024, Size: 1024}, cube.Rects[0], "the point light starts a new row")

	assert.Equal(t, "atlas-0-4096", s.Atlas(0).Texture)
	assert.Nil(t, s.Atlas(1))
	assert.Equal(t, "cmp", s.Sampler())

	s.Reset()
	again := make(map[uuid.UUID]*LightShadowMapTexture)
	s.Assign(view, 0, []light.Light{sun, bulb}, again)
	assert.Same(t, cascades, again[sun.ID()], "assignments are pooled")
	assert.Equal(t, cube.Rects, again[bulb.ID()].Rects, "packing does not depend on light order")
}
