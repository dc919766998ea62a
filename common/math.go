package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Float32sToBytes encodes floats as a freshly allocated little-endian byte slice, the byte order of every GPU
// uniform buffer.
//
// Parameters:
//   - data: the floats to encode
//
// Returns:
//   - []byte: 4 bytes per float
func Float32sToBytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// BytesToFloat32s decodes little-endian floats. Trailing bytes that do not form a whole float are ignored.
//
// Parameters:
//   - data: the encoded bytes
//
// Returns:
//   - []float32: the decoded floats
func BytesToFloat32s(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// WebGPUClipCorrection remaps OpenGL-style clip depth in [-w, w] to WebGPU's [0, w] (z' = 0.5z + 0.5w).
// Left-multiply it onto a projection built with mgl32.
var WebGPUClipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// lookAtParallelEpsilon is the smallest |forward × up| at which up still defines a stable basis.
const lookAtParallelEpsilon = 1e-4

// LookAt builds a right-handed view matrix like mgl32.LookAtV, but stays finite when the view direction is
// parallel to up. In that case (0, 0, 1) is used as the up vector instead.
//
// Parameters:
//   - eye: the viewer position
//   - center: the point looked at
//   - up: the preferred up direction
//
// Returns:
//   - mgl32.Mat4: the view matrix
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	forward := center.Sub(eye)
	if forward.Len() > 0 && forward.Normalize().Cross(up).Len() < lookAtParallelEpsilon {
		up = mgl32.Vec3{0, 0, 1}
		if forward.Normalize().Cross(up).Len() < lookAtParallelEpsilon {
			up = mgl32.Vec3{1, 0, 0}
		}
	}
	return mgl32.LookAtV(eye, center, up)
}
