package light

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/go-gl/mathgl/mgl32"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

// =============================================================================
// Uniform Layout Tests
// =============================================================================

func TestUniform_Layout(t *testing.T) {
	l := NewDirectionalLight(
		WithPosition(0, 10, 0),
		WithTarget(0, 0, 0),
		WithColor(1, 0.5, 0.25),
		WithIntensity(2),
	)

	u := l.Uniform()
	if got := u.Size(); got != 96 {
		t.Fatalf("Size() = %d, want 96", got)
	}

	floats := common.BytesToFloat32s(u.Marshal())
	if len(floats) != 24 {
		t.Fatalf("marshalled %d floats, want 24", len(floats))
	}

	want := []float32{0, -1, 0, 0, 2, 1, 0.5, 0}
	for i, w := range want {
		if !approx(floats[i], w) {
			t.Errorf("float %d = %v, want %v", i, floats[i], w)
		}
	}

	m := l.LightSpaceMatrix()
	for i := range 16 {
		if floats[8+i] != m[i] {
			t.Errorf("light-space float %d = %v, want %v", i, floats[8+i], m[i])
		}
	}
}

// =============================================================================
// Light Space Tests
// =============================================================================

func TestLightSpaceMatrix_DepthRange(t *testing.T) {
	l := NewDirectionalLight(WithPosition(0, 0, 50), WithTarget(0, 0, 0))
	m := mgl32.Mat4(l.LightSpaceMatrix())

	tests := []struct {
		name  string
		point mgl32.Vec3
		depth float32
	}{
		{"near plane", mgl32.Vec3{0, 0, 50 - 0.1}, 0},
		{"far plane", mgl32.Vec3{0, 0, 50 - 100}, 1},
		{"target", mgl32.Vec3{0, 0, 0}, (50 - 0.1) / (100 - 0.1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := m.Mul4x1(tt.point.Vec4(1))
			if got := clip[2] / clip[3]; !approx(got, tt.depth) {
				t.Errorf("depth = %v, want %v", got, tt.depth)
			}
		})
	}
}

func TestLightSpaceMatrix_Extent(t *testing.T) {
	l := NewDirectionalLight(WithPosition(0, 0, 50), WithTarget(0, 0, 0))
	m := mgl32.Mat4(l.LightSpaceMatrix())

	clip := m.Mul4x1(mgl32.Vec4{10, 10, 0, 1})
	if !approx(clip[0], 1) || !approx(clip[1], 1) {
		t.Errorf("corner (10, 10) maps to (%v, %v), want (1, 1)", clip[0], clip[1])
	}
}

// =============================================================================
// Color Tests
// =============================================================================

func TestUpdateColorAndIntensity(t *testing.T) {
	tests := []struct {
		name  string
		color [3]float32
		want  [3]float32
	}{
		{"normalizes", [3]float32{3, 0, 4}, [3]float32{0.6, 0, 0.8}},
		{"unit unchanged", [3]float32{0, 1, 0}, [3]float32{0, 1, 0}},
		{"zero stays zero", [3]float32{0, 0, 0}, [3]float32{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewDirectionalLight()
			l.UpdateColorAndIntensity(tt.color, 5)
			got := l.Color()
			for i := range 3 {
				if !approx(got[i], tt.want[i]) {
					t.Errorf("Color() = %v, want %v", got, tt.want)
					break
				}
			}
			if l.Intensity() != 5 {
				t.Errorf("Intensity() = %v, want 5", l.Intensity())
			}
		})
	}
}

func TestDirection_Degenerate(t *testing.T) {
	l := NewDirectionalLight(WithPosition(1, 1, 1), WithTarget(1, 1, 1))
	if got := l.Direction(); got != [3]float32{0, -1, 0} {
		t.Errorf("Direction() = %v, want straight down", got)
	}
}

func TestLightSpaceMatrix_VerticalLightIsFinite(t *testing.T) {
	tests := []struct {
		name     string
		position [3]float32
	}{
		{"above", [3]float32{0, 10, 0}},
		{"below", [3]float32{0, -10, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewDirectionalLight(WithPosition(tt.position[0], tt.position[1], tt.position[2]), WithTarget(0, 0, 0))
			m := l.LightSpaceMatrix()
			for i, f := range m {
				if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
					t.Fatalf("LightSpaceMatrix()[%d] = %v, want finite", i, f)
				}
			}

			// The target must still land inside the clip volume.
			clip := mgl32.Mat4(m).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
			if clip.W() == 0 {
				t.Fatalf("target clip w = 0")
			}
			z := clip.Z() / clip.W()
			if z < 0 || z > 1 {
				t.Errorf("target depth = %v, want within [0, 1]", z)
			}
		})
	}
}
