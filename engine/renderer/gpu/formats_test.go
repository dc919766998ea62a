package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestVertexFormatSize(t *testing.T) {
	tests := []struct {
		format wgpu.VertexFormat
		want   uint64
	}{
		{wgpu.VertexFormatFloat32, 4},
		{wgpu.VertexFormatFloat32x2, 8},
		{wgpu.VertexFormatFloat32x3, 12},
		{wgpu.VertexFormatFloat32x4, 16},
		{wgpu.VertexFormatUnorm8x4, 4},
		{wgpu.VertexFormatUint16x2, 4},
		{wgpu.VertexFormatSint32x3, 12},
	}

	for _, tt := range tests {
		got, ok := VertexFormatSize(tt.format)
		if !ok {
			t.Errorf("VertexFormatSize(%v) reported unknown format", tt.format)
			continue
		}
		if got != tt.want {
			t.Errorf("VertexFormatSize(%v) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestVertexFormatSize_Unknown(t *testing.T) {
	if _, ok := VertexFormatSize(wgpu.VertexFormatUndefined); ok {
		t.Error("VertexFormatSize(Undefined) should report unknown")
	}
}

func TestIsDepthFormat(t *testing.T) {
	tests := []struct {
		format wgpu.TextureFormat
		want   bool
	}{
		{wgpu.TextureFormatDepth32Float, true},
		{wgpu.TextureFormatDepth24Plus, true},
		{wgpu.TextureFormatDepth24PlusStencil8, true},
		{wgpu.TextureFormatRGBA8Unorm, false},
		{wgpu.TextureFormatBGRA8Unorm, false},
		{wgpu.TextureFormatRGBA16Float, false},
	}

	for _, tt := range tests {
		if got := IsDepthFormat(tt.format); got != tt.want {
			t.Errorf("IsDepthFormat(%v) = %v, want %v", tt.format, got, tt.want)
		}
	}
}

func TestBytesPerTexel(t *testing.T) {
	if got := BytesPerTexel(wgpu.TextureFormatRGBA8Unorm); got != 4 {
		t.Errorf("BytesPerTexel(RGBA8Unorm) = %d, want 4", got)
	}
	if got := BytesPerTexel(wgpu.TextureFormatDepth32Float); got != 0 {
		t.Errorf("BytesPerTexel(Depth32Float) = %d, want 0", got)
	}
}

func TestResourceKindString(t *testing.T) {
	tests := map[ResourceKind]string{
		ResourceKindBuffer:  "buffer",
		ResourceKindSampler: "sampler",
		ResourceKindTexture: "texture",
		ResourceKind(42):    "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("ResourceKind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
