package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-sss/common"
)

// =============================================================================
// Uniform Layout Tests
// =============================================================================

func TestUniform_IdentityCameraLayout(t *testing.T) {
	cam := NewCamera(
		WithPosition(0, 0, 0),
		WithTarget(0, 0, -1),
		WithUp(0, 1, 0),
	)

	u := cam.Uniform()
	if got := u.Size(); got != 144 {
		t.Fatalf("Size() = %d, want 144", got)
	}

	floats := common.BytesToFloat32s(u.Marshal())
	if len(floats) != 36 {
		t.Fatalf("marshalled %d floats, want 36", len(floats))
	}

	proj := cam.ProjectionMatrix()
	for i := range 16 {
		if floats[i] != proj[i] {
			t.Errorf("float %d = %v, want projection[%d] = %v", i, floats[i], i, proj[i])
		}
	}

	identity := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	for i := range 16 {
		if floats[16+i] != identity[i] {
			t.Errorf("view float %d = %v, want %v", i, floats[16+i], identity[i])
		}
	}
	for i := 32; i < 35; i++ {
		if floats[i] != 0 {
			t.Errorf("position float %d = %v, want 0", i, floats[i])
		}
	}
	if floats[35] != 0 {
		t.Errorf("pad = %v, want 0", floats[35])
	}
}

func TestUniform_MarshalPositionAndPad(t *testing.T) {
	u := GPUCameraUniform{Position: [3]float32{1, 2, 3}}
	buf := u.Marshal()
	for i, want := range []float32{1, 2, 3, 0} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[128+i*4:]))
		if got != want {
			t.Errorf("float at %d = %v, want %v", 32+i, got, want)
		}
	}
}

// =============================================================================
// Projection Tests
// =============================================================================

func TestProjection_DepthRange(t *testing.T) {
	cam := NewCamera(WithPosition(0, 0, 0), WithTarget(0, 0, -1), WithNear(1), WithFar(10))
	proj := cam.ProjectionMatrix()

	depth := func(z float32) float32 {
		// clip = P * (0, 0, z, 1); column-major so row 2 is proj[2], proj[6], proj[10], proj[14].
		clipZ := proj[10]*z + proj[14]
		clipW := proj[11]*z + proj[15]
		return clipZ / clipW
	}

	tests := []struct {
		name string
		z    float32
		want float32
	}{
		{"near plane", -1, 0},
		{"far plane", -10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := depth(tt.z); math.Abs(float64(got-tt.want)) > 1e-5 {
				t.Errorf("NDC depth at z=%v = %v, want %v", tt.z, got, tt.want)
			}
		})
	}
}

func TestNewCamera_Defaults(t *testing.T) {
	cam := NewCamera()
	if x, y, z := cam.Position(); x != 0 || y != 0 || z != 50 {
		t.Errorf("Position() = (%v, %v, %v), want (0, 0, 50)", x, y, z)
	}
	if cam.Fov() != DefaultFov || cam.Near() != DefaultNear || cam.Far() != DefaultFar {
		t.Errorf("fov/near/far = %v/%v/%v, want defaults", cam.Fov(), cam.Near(), cam.Far())
	}
}

func TestSetAspect_RecomputesProjection(t *testing.T) {
	cam := NewCamera()
	before := cam.ProjectionMatrix()
	cam.SetAspect(2)
	after := cam.ProjectionMatrix()
	if after[0] != before[0]/2 {
		t.Errorf("proj[0] = %v after aspect 2, want %v", after[0], before[0]/2)
	}
	if after[5] != before[5] {
		t.Errorf("proj[5] changed from %v to %v", before[5], after[5])
	}
}

func TestViewMatrix_LookingStraightDownIsFinite(t *testing.T) {
	cam := NewCamera(WithPosition(0, 10, 0), WithTarget(0, 0, 0))
	for i, f := range cam.ViewMatrix() {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			t.Fatalf("ViewMatrix()[%d] = %v, want finite", i, f)
		}
	}
}
