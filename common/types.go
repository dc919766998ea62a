// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Bitmap holds decoded RGBA pixel data pending GPU upload.
type Bitmap struct {
	// Pixels is the byte slice representing the actual pixel data. It is in RGBA format, with 4 bytes per pixel, rows top to bottom.
	Pixels []byte
	// Width is the width of the image in pixels.
	Width uint32
	// Height is the height of the image in pixels.
	Height uint32
}

// Validate reports an error if the pixel slice does not hold exactly Width*Height RGBA texels.
func (b Bitmap) Validate() error {
	if b.Width == 0 || b.Height == 0 {
		return fmt.Errorf("bitmap has zero extent %dx%d", b.Width, b.Height)
	}
	if want := int(b.Width) * int(b.Height) * 4; len(b.Pixels) != want {
		return fmt.Errorf("bitmap %dx%d needs %d bytes, has %d", b.Width, b.Height, want, len(b.Pixels))
	}
	return nil
}

// FlipY returns a copy of the bitmap with its rows in reverse order.
func (b Bitmap) FlipY() Bitmap {
	row := int(b.Width) * 4
	out := make([]byte, len(b.Pixels))
	for y := 0; y < int(b.Height); y++ {
		src := b.Pixels[y*row : (y+1)*row]
		dst := out[(int(b.Height)-1-y)*row:]
		copy(dst[:row], src)
	}
	return Bitmap{Pixels: out, Width: b.Width, Height: b.Height}
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// Compare specifies the comparison function for comparison samplers, used in shadow mapping.
	Compare wgpu.CompareFunction
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}
