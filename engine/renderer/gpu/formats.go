package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatSizes maps each supported vertex format to its size in bytes.
var vertexFormatSizes = map[wgpu.VertexFormat]uint64{
	wgpu.VertexFormatUint8x2:   2,
	wgpu.VertexFormatUint8x4:   4,
	wgpu.VertexFormatSint8x2:   2,
	wgpu.VertexFormatSint8x4:   4,
	wgpu.VertexFormatUnorm8x2:  2,
	wgpu.VertexFormatUnorm8x4:  4,
	wgpu.VertexFormatSnorm8x2:  2,
	wgpu.VertexFormatSnorm8x4:  4,
	wgpu.VertexFormatUint16x2:  4,
	wgpu.VertexFormatUint16x4:  8,
	wgpu.VertexFormatSint16x2:  4,
	wgpu.VertexFormatSint16x4:  8,
	wgpu.VertexFormatUnorm16x2: 4,
	wgpu.VertexFormatUnorm16x4: 8,
	wgpu.VertexFormatSnorm16x2: 4,
	wgpu.VertexFormatSnorm16x4: 8,
	wgpu.VertexFormatFloat16x2: 4,
	wgpu.VertexFormatFloat16x4: 8,
	wgpu.VertexFormatFloat32:   4,
	wgpu.VertexFormatFloat32x2: 8,
	wgpu.VertexFormatFloat32x3: 12,
	wgpu.VertexFormatFloat32x4: 16,
	wgpu.VertexFormatUint32:    4,
	wgpu.VertexFormatUint32x2:  8,
	wgpu.VertexFormatUint32x3:  12,
	wgpu.VertexFormatUint32x4:  16,
	wgpu.VertexFormatSint32:    4,
	wgpu.VertexFormatSint32x2:  8,
	wgpu.VertexFormatSint32x3:  12,
	wgpu.VertexFormatSint32x4:  16,
}

// VertexFormatSize returns the size in bytes of a single attribute of the given format.
//
// Parameters:
//   - f: the vertex format
//
// Returns:
//   - uint64: the attribute size in bytes
//   - bool: false if the format is not a known vertex format
func VertexFormatSize(f wgpu.VertexFormat) (uint64, bool) {
	size, ok := vertexFormatSizes[f]
	return size, ok
}

// IsDepthFormat reports whether f is a depth (or depth-stencil) texture format.
func IsDepthFormat(f wgpu.TextureFormat) bool {
	switch f {
	case wgpu.TextureFormatDepth16Unorm,
		wgpu.TextureFormatDepth24Plus,
		wgpu.TextureFormatDepth24PlusStencil8,
		wgpu.TextureFormatDepth32Float,
		wgpu.TextureFormatDepth32FloatStencil8:
		return true
	}
	return false
}

// BytesPerTexel returns the size of one texel for the uncompressed color formats the renderer uploads to.
// It returns 0 for formats that cannot be written from the host.
func BytesPerTexel(f wgpu.TextureFormat) uint32 {
	switch f {
	case wgpu.TextureFormatR8Unorm:
		return 1
	case wgpu.TextureFormatRG8Unorm:
		return 2
	case wgpu.TextureFormatRGBA8Unorm, wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb,
		wgpu.TextureFormatR32Float:
		return 4
	case wgpu.TextureFormatRGBA16Float:
		return 8
	case wgpu.TextureFormatRGBA32Float:
		return 16
	}
	return 0
}
