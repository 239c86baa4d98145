package light

import (
	"encoding/binary"
	"math"
)

// GPULightSize is the size in bytes of one GPULight record.
const GPULightSize = 64

// GPULightHeaderSize is the size in bytes of the GPULightHeader record.
const GPULightHeaderSize = 16

// GPULightSource is the WGSL definition of the Light struct. Matches GPULight exactly.
const GPULightSource = `struct Light {
    position: vec3<f32>,
    light_type: u32,
    color: vec3<f32>,
    intensity: f32,
    direction: vec3<f32>,
    light_range: f32,
    inner_cone: f32,
    outer_cone: f32,
    casts_shadows: u32,
    _pad: u32,
};`

// GPULightHeaderSource is the WGSL definition of the LightHeader struct. Matches GPULightHeader exactly.
const GPULightHeaderSource = `struct LightHeader {
    ambient_color: vec3<f32>,
    light_count: u32,
};`

// GPULight is the GPU-aligned representation of a single light source, as stored in the
// light storage buffer of the tiled renderer.
// Size: 64 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position     [3]float32 // offset  0: world-space position (point/spot) or unused (directional)
	LightType    uint32     // offset 12: LightType value
	Color        [3]float32 // offset 16: RGB color
	Intensity    float32    // offset 28: scalar multiplier
	Direction    [3]float32 // offset 32: normalized direction (directional/spot) or unused (point)
	LightRange   float32    // offset 44: attenuation cutoff distance
	InnerCone    float32    // offset 48: cos(inner half-angle) for spot
	OuterCone    float32    // offset 52: cos(outer half-angle) for spot
	CastsShadows uint32     // offset 56: 1 = casts shadows, 0 = does not
}

// MarshalTo serializes the record into buf, which must hold GPULightSize bytes.
//
// Parameters:
//   - buf: the destination
func (g *GPULight) MarshalTo(buf []byte) {
	putVec3(buf[0:], g.Position)
	binary.LittleEndian.PutUint32(buf[12:], g.LightType)
	putVec3(buf[16:], g.Color)
	putFloat(buf[28:], g.Intensity)
	putVec3(buf[32:], g.Direction)
	putFloat(buf[44:], g.LightRange)
	putFloat(buf[48:], g.InnerCone)
	putFloat(buf[52:], g.OuterCone)
	binary.LittleEndian.PutUint32(buf[56:], g.CastsShadows)
	binary.LittleEndian.PutUint32(buf[60:], 0)
}

// Marshal serializes the GPULight struct into a new buffer.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, GPULightSize)
	g.MarshalTo(buf)
	return buf
}

// GPULightHeader is the header prepended to the light storage buffer.
// Size: 16 bytes (vec3 + u32, std430 aligned).
type GPULightHeader struct {
	AmbientColor [3]float32 // offset 0: scene ambient RGB
	LightCount   uint32     // offset 12: number of lights following the header
}

// MarshalTo serializes the header into buf, which must hold GPULightHeaderSize bytes.
func (h *GPULightHeader) MarshalTo(buf []byte) {
	putVec3(buf[0:], h.AmbientColor)
	binary.LittleEndian.PutUint32(buf[12:], h.LightCount)
}

// GPUTileUniforms is the uniform data the fragment shader reads to find its tile's light list.
// Size: 8 bytes.
type GPUTileUniforms struct {
	TileCountX       uint32
	MaxLightsPerTile uint32
}

// Marshal serializes GPUTileUniforms into an 8-byte little-endian buffer.
func (u *GPUTileUniforms) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], u.TileCountX)
	binary.LittleEndian.PutUint32(buf[4:8], u.MaxLightsPerTile)
	return buf
}

// ToGPULight converts a Light into the GPU-aligned GPULight struct.
//
// Parameters:
//   - l: the Light to convert
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light) GPULight {
	shadowVal := uint32(0)
	if ShadowEnabled(l) {
		shadowVal = 1
	}
	return GPULight{
		Position:     l.Position(),
		LightType:    uint32(l.Type()),
		Color:        l.Color(),
		Intensity:    l.Intensity(),
		Direction:    l.Direction(),
		LightRange:   l.Range(),
		InnerCone:    l.InnerCone(),
		OuterCone:    l.OuterCone(),
		CastsShadows: shadowVal,
	}
}

// MarshalLightBuffer serializes a header followed by one GPULight per light into dst,
// growing it when needed.
//
// Parameters:
//   - dst: the buffer to reuse, may be nil
//   - ambient: the ambient color stored in the header
//   - lights: the lights
//
// Returns:
//   - []byte: the serialized buffer
func MarshalLightBuffer(dst []byte, ambient [3]float32, lights []Light) []byte {
	size := GPULightHeaderSize + len(lights)*GPULightSize
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]

	header := GPULightHeader{AmbientColor: ambient, LightCount: uint32(len(lights))}
	header.MarshalTo(dst)
	for i, l := range lights {
		g := ToGPULight(l)
		g.MarshalTo(dst[GPULightHeaderSize+i*GPULightSize:])
	}
	return dst
}

func putFloat(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

func putVec3(buf []byte, v [3]float32) {
	putFloat(buf[0:], v[0])
	putFloat(buf[4:], v[1])
	putFloat(buf[8:], v[2])
}
