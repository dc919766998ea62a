package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUModelUniformSource is the canonical WGSL definition of the ModelUniform struct.
// Matches GPUModelUniform layout exactly (64 bytes).
//
//go:embed assets/model_uniform.wgsl
var GPUModelUniformSource string

// GPUModelUniform is the GPU-aligned representation of the per-model uniform buffer.
// Size: 64 bytes, 16 floats.
type GPUModelUniform struct {
	Model [16]float32 // offset 0: model-to-world transform (mat4x4<f32>), column-major
}

// Size returns the size of the GPUModelUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUModelUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUModelUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPUModelUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	return buf
}
