// Package resource creates the typed GPU objects the renderer uses: buffers, textures, samplers, bind group layouts
// and bind groups. Every function takes the backend explicitly; nothing here holds device state.
package resource

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoDevice is returned when a resource is requested before a backend exists.
	ErrNoDevice = errors.New("resource: no GPU device")

	// ErrNilBuffer is returned when an update targets no buffer.
	ErrNilBuffer = errors.New("resource: buffer is nil")

	// ErrEmptyBuffer is returned when a buffer would be created from no data.
	ErrEmptyBuffer = errors.New("resource: buffer data is empty")

	// ErrPayloadTooLarge is returned when an update is larger than the buffer it targets.
	ErrPayloadTooLarge = errors.New("resource: payload larger than buffer")

	// ErrBindingCountMismatch is returned when a bind group does not supply exactly one resource per layout slot.
	ErrBindingCountMismatch = errors.New("resource: resource count does not match layout slot count")

	// ErrBindingKindMismatch is returned when a resource kind differs from the kind its slot declares.
	ErrBindingKindMismatch = errors.New("resource: resource kind does not match layout slot kind")
)

// BufferKind selects the primary usage of a buffer.
type BufferKind int

const (
	BufferKindVertex BufferKind = iota
	BufferKindIndex
	BufferKindUniform
)

func (k BufferKind) usage() wgpu.BufferUsage {
	switch k {
	case BufferKindVertex:
		return wgpu.BufferUsageVertex
	case BufferKindIndex:
		return wgpu.BufferUsageIndex
	default:
		return wgpu.BufferUsageUniform
	}
}

// BufferOption adjusts a buffer descriptor before allocation.
type BufferOption func(*gpu.BufferDescriptor)

// WithReadback adds copy-src usage so the buffer can be read back with Backend.ReadBuffer on every backend.
func WithReadback() BufferOption {
	return func(d *gpu.BufferDescriptor) {
		d.Usage |= wgpu.BufferUsageCopySrc
	}
}

// CreateBuffer allocates a buffer sized to data and uploads data immediately. The buffer always carries copy-dst
// usage so it can be updated later with UpdateBuffer.
//
// Parameters:
//   - b: the backend to allocate on
//   - label: debug label
//   - data: the initial contents, which also fix the buffer size
//   - kind: the primary usage
//   - opts: optional descriptor adjustments
//
// Returns:
//   - gpu.Buffer: the created buffer
//   - error: ErrNoDevice, ErrEmptyBuffer, or a backend error
func CreateBuffer(b gpu.Backend, label string, data []byte, kind BufferKind, opts ...BufferOption) (gpu.Buffer, error) {
	if b == nil {
		return nil, ErrNoDevice
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", label, ErrEmptyBuffer)
	}

	desc := gpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: kind.usage() | wgpu.BufferUsageCopyDst,
	}
	for _, opt := range opts {
		opt(&desc)
	}

	buf, err := b.CreateBuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	if err := b.WriteBuffer(buf, 0, data); err != nil {
		buf.Release()
		return nil, fmt.Errorf("upload buffer %s: %w", label, err)
	}
	return buf, nil
}

// UpdateBuffer writes data into buf at offset 0. A payload larger than the buffer is rejected, never truncated.
//
// Parameters:
//   - b: the backend owning buf
//   - buf: the buffer to update
//   - data: the new contents
//
// Returns:
//   - error: ErrNoDevice, ErrNilBuffer, ErrPayloadTooLarge, or a backend error
func UpdateBuffer(b gpu.Backend, buf gpu.Buffer, data []byte) error {
	if b == nil {
		return ErrNoDevice
	}
	if buf == nil {
		return ErrNilBuffer
	}
	if uint64(len(data)) > buf.Size() {
		return fmt.Errorf("update %s with %d bytes into %d: %w", buf.Label(), len(data), buf.Size(), ErrPayloadTooLarge)
	}
	return b.WriteBuffer(buf, 0, data)
}

// CreateTexture allocates an uninitialised 2-D texture. The caller must clear or write it before it is sampled.
//
// Parameters:
//   - b: the backend to allocate on
//   - label: debug label
//   - width, height: extent in texels
//   - format: pixel format
//   - usage: usage flags
//
// Returns:
//   - gpu.Texture: the created texture
//   - error: ErrNoDevice or a backend error
func CreateTexture(b gpu.Backend, label string, width, height uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (gpu.Texture, error) {
	if b == nil {
		return nil, ErrNoDevice
	}
	tex, err := b.CreateTexture(gpu.TextureDescriptor{
		Label:  label,
		Width:  width,
		Height: height,
		Format: format,
		Usage:  usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	return tex, nil
}

// CreateTextureFromImage creates an RGBA8Unorm texture sized to the bitmap and uploads its pixels in one copy.
// With flipY set the rows are reversed first, moving the decoder's top-left origin to the texture's bottom-left
// UV origin.
//
// Parameters:
//   - b: the backend to allocate on
//   - label: debug label
//   - bitmap: decoded RGBA8 pixels
//   - flipY: whether to reverse the row order before upload
//
// Returns:
//   - gpu.Texture: the created texture
//   - error: ErrNoDevice, a bitmap shape error, or a backend error
func CreateTextureFromImage(b gpu.Backend, label string, bitmap common.Bitmap, flipY bool) (gpu.Texture, error) {
	if b == nil {
		return nil, ErrNoDevice
	}
	if err := bitmap.Validate(); err != nil {
		return nil, fmt.Errorf("texture %s: %w", label, err)
	}
	if flipY {
		bitmap = bitmap.FlipY()
	}

	tex, err := CreateTexture(b, label, bitmap.Width, bitmap.Height, wgpu.TextureFormatRGBA8Unorm,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst|wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return nil, err
	}
	if err := b.WriteTexture(tex, bitmap.Pixels, bitmap.Width*4); err != nil {
		tex.Release()
		return nil, fmt.Errorf("upload texture %s: %w", label, err)
	}
	return tex, nil
}

// CreateSampler creates a sampler, filling unset fields with repeat addressing and linear filtering.
//
// Parameters:
//   - b: the backend to allocate on
//   - label: debug label
//   - staging: the sampler configuration
//
// Returns:
//   - gpu.Sampler: the created sampler
//   - error: ErrNoDevice or a backend error
func CreateSampler(b gpu.Backend, label string, staging common.SamplerStagingData) (gpu.Sampler, error) {
	if b == nil {
		return nil, ErrNoDevice
	}
	s, err := b.CreateSampler(gpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(staging.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(staging.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(staging.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(staging.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(staging.MaxAnisotropy, 1),
		Compare:       staging.Compare,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %s: %w", label, err)
	}
	return s, nil
}

// CreateComparisonSampler creates the clamp-to-edge "less" comparison sampler used to read shadow maps.
func CreateComparisonSampler(b gpu.Backend, label string) (gpu.Sampler, error) {
	return CreateSampler(b, label, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
		Compare:      wgpu.CompareFunctionLess,
	})
}
