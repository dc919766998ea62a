package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPULightUniformSource is the canonical WGSL definition of the LightUniform struct.
// Matches GPULightUniform layout exactly (96 bytes).
//
//go:embed assets/light_uniform.wgsl
var GPULightUniformSource string

// GPULightUniform is the GPU-aligned representation of the directional light uniform buffer.
// Matches the WGSL LightUniform struct layout exactly (see GPULightUniformSource).
// Size: 96 bytes, 24 floats.
type GPULightUniform struct {
	Direction  [3]float32  // offset  0: normalized world-space direction the light travels
	_pad0      float32     // offset 12: padding
	Color      [3]float32  // offset 16: RGB color premultiplied by intensity
	_pad1      float32     // offset 28: padding
	LightSpace [16]float32 // offset 32: light view-projection matrix (mat4x4<f32>)
}

// Size returns the size of the GPULightUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPULightUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULightUniform struct into a byte buffer suitable for GPU upload.
// Both padding floats are written as zero.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload
func (g *GPULightUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Direction[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Color[i]))
	}
	binary.LittleEndian.PutUint32(buf[12:], 0) // _pad0
	binary.LittleEndian.PutUint32(buf[28:], 0) // _pad1
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[32+i*4:], math.Float32bits(g.LightSpace[i]))
	}
	return buf
}
