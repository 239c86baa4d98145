package lighting

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-lighting/engine/light"
	"github.com/Carmen-Shannon/oxy-lighting/engine/renderer/shader"
)

func TestTiledLightRendererBinsLights(t *testing.T) {
	view := testView()
	r := NewTiledLightRenderer()
	center := light.NewLight(light.LightTypePoint, light.WithID(lightID(1)), light.WithRange(1))
	offscreen := light.NewLight(light.LightTypePoint, light.WithID(lightID(2)), light.WithPosition(100, 0, 0), light.WithRange(1))

	runFrame(r, view, []light.Light{offscreen, center}, nil)
	d := r.perView[0]

	assert.Equal(t, uint32(16), d.tileCountX)
	assert.Equal(t, uint32(8), d.tileCountY)
	assert.Len(t, d.lightBuffer, light.GPULightHeaderSize+2*light.GPULightSize)

	assert.Equal(t, []uint32{0}, r.TileLights(0, 8, 4), "the light at the origin covers the center tile")
	assert.Empty(t, r.TileLights(0, 0, 0))
	assert.Nil(t, r.TileLights(0, 16, 0))
	assert.Nil(t, r.TileLights(3, 0, 0))

	for y := range d.tileCountY {
		for x := range d.tileCountX {
			assert.NotContains(t, r.TileLights(0, x, y), uint32(1), "tile (%d, %d)", x, y)
		}
	}

	tiles := d.tileCountX * d.tileCountY
	tile := 4*d.tileCountX + 8
	offset := binary.LittleEndian.Uint32(d.tileBuffer[tile*8:])
	count := binary.LittleEndian.Uint32(d.tileBuffer[tile*8+4:])
	assert.GreaterOrEqual(t, offset, tiles*2)
	require.Equal(t, uint32(1), count)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(d.tileBuffer[offset*4:]))

	first := binary.LittleEndian.Uint32(d.tileBuffer[0:])
	assert.Equal(t, tiles*2, first, "indices start after the header pairs")
}

func TestTiledLightRendererSharesOneGroup(t *testing.T) {
	r := NewTiledLightRenderer(WithTiledLightMaxCount(2))
	lights := pointLights(0, 3)
	runFrame(r, testView(), lights, nil)

	a, ok := r.ShaderGroupFor(0, lights[0])
	require.True(t, ok)
	b, ok := r.ShaderGroupFor(0, lights[1])
	require.True(t, ok)
	assert.Same(t, a, b)
	_, ok = r.ShaderGroupFor(0, lights[2])
	assert.False(t, ok, "lights beyond the max count are dropped")

	assert.Equal(t, 1, a.LightCurrentCount())
	assert.Zero(t, a.ShadowType())
	assert.True(t, a.ShaderSource().Equal(shader.NewClassSource(classTiledGroup)))
	assert.Same(t, a, r.NoShadowGroup(12))
	assert.False(t, r.CanHaveShadows())
	assert.Panics(t, func() { NewTiledLightRenderer(WithTiledLightMaxCount(0)) })
}
