package app

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/Carmen-Shannon/oxy-sss/engine/camera"
	"github.com/Carmen-Shannon/oxy-sss/engine/light"
	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu/headless"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	testWidth      = 64
	testHeight     = 48
	testShadowSize = 128
)

var chainOrder = []string{"shadow", "irradiance", "blur 1", "blur 3", "blur 2", "blur 4", "composite"}

// memorySource serves solid 2x2 bitmaps for any requested name, or fails with err.
type memorySource struct {
	err error
}

func (s memorySource) Load(_ context.Context, names ...string) ([]common.Bitmap, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]common.Bitmap, len(names))
	for i := range names {
		out[i] = common.Bitmap{Pixels: slices.Repeat([]byte{200, 150, 120, 255}, 4), Width: 2, Height: 2}
	}
	return out, nil
}

func testCamera() camera.Camera {
	return camera.NewCamera(camera.WithPosition(0, 0, 5), camera.WithAspect(float32(testWidth)/testHeight))
}

func testLight(shadows bool) light.DirectionalLight {
	return light.NewDirectionalLight(light.WithPosition(4, 6, 8), light.WithShadows(shadows))
}

// setupApp runs every setup step up to InitPipelines on a fresh headless backend.
func setupApp(t *testing.T, shadows bool) (App, *headless.Backend) {
	t.Helper()
	b := headless.NewBackend()
	a := NewApp(WithShadowMapSize(testShadowSize))

	shaders, err := DefaultShaders(DefaultBlurScale)
	if err != nil {
		t.Fatalf("DefaultShaders: %v", err)
	}
	steps := []struct {
		name string
		run  func() error
	}{
		{"CreateCanvas", func() error { return a.CreateCanvas(testWidth, testHeight) }},
		{"InitGPU", func() error { return a.InitGPU(b) }},
		{"LoadTextures", func() error { return a.LoadTextures(context.Background(), memorySource{}) }},
		{"InitBuffers", func() error { return a.InitBuffers(testCamera(), testLight(shadows)) }},
		{"InitPipelines", func() error { return a.InitPipelines(shaders) }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
	}
	return a, b
}

func passLabels(b *headless.Backend) []string {
	var out []string
	for _, p := range b.Passes() {
		out = append(out, p.Label)
	}
	return out
}

// =============================================================================
// Pass chain
// =============================================================================

func TestDrawRecordsFullChain(t *testing.T) {
	a, b := setupApp(t, true)
	defer a.Release()

	if _, err := a.UploadModel(model.Sphere(1, 16, 24)); err != nil {
		t.Fatalf("UploadModel: %v", err)
	}
	if err := a.Draw(wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if got := passLabels(b); !slices.Equal(got, chainOrder) {
		t.Errorf("passes = %v, want %v", got, chainOrder)
	}
	if b.Submits() != 1 {
		t.Errorf("Submits() = %d, want 1", b.Submits())
	}
	if b.Presents() != 1 {
		t.Errorf("Presents() = %d, want 1", b.Presents())
	}
	if a.State() != StateRendering {
		t.Errorf("State() = %v, want Rendering", a.State())
	}
}

func TestDrawQuadWritesSurfaceFromComposite(t *testing.T) {
	a, b := setupApp(t, true)
	defer a.Release()

	if _, err := a.UploadModel(model.Quad()); err != nil {
		t.Fatalf("UploadModel: %v", err)
	}
	if err := a.Draw(wgpu.Color{A: 1}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if got := b.LastWriter(b.SurfaceTexture()); got != "composite" {
		t.Errorf("surface last written by %q, want composite", got)
	}

	passes := b.Passes()
	composite := passes[len(passes)-1]
	if len(composite.Draws) != 1 {
		t.Fatalf("composite draws = %d, want 1", len(composite.Draws))
	}
	if composite.Draws[0].IndexCount != 6 {
		t.Errorf("composite index count = %d, want 6", composite.Draws[0].IndexCount)
	}
	for _, p := range passes {
		if strings.HasPrefix(p.Label, "blur") && len(p.ColorTargets) != 3 {
			t.Errorf("%s writes %d targets, want 3", p.Label, len(p.ColorTargets))
		}
	}
}

func TestDrawMultipleModels(t *testing.T) {
	a, b := setupApp(t, true)
	defer a.Release()

	for i := range 3 {
		idx, err := a.UploadModel(model.Quad())
		if err != nil {
			t.Fatalf("UploadModel %d: %v", i, err)
		}
		if idx != i {
			t.Errorf("UploadModel index = %d, want %d", idx, i)
		}
	}
	if err := a.Draw(wgpu.Color{}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	want := map[string]int{"shadow": 3, "irradiance": 3, "composite": 3, "blur 1": 1}
	for _, p := range b.Passes() {
		if n, ok := want[p.Label]; ok && len(p.Draws) != n {
			t.Errorf("%s draws = %d, want %d", p.Label, len(p.Draws), n)
		}
	}
}

func TestShadowPassSkipsDrawsWithoutShadows(t *testing.T) {
	a, b := setupApp(t, false)
	defer a.Release()

	if _, err := a.UploadModel(model.Quad()); err != nil {
		t.Fatalf("UploadModel: %v", err)
	}
	if err := a.Draw(wgpu.Color{}); err != nil {
		t.Fatalf("Draw: %v", err)
	}

	shadow := b.Passes()[0]
	if shadow.Label != "shadow" || len(shadow.Draws) != 0 {
		t.Errorf("first pass = %q with %d draws, want shadow with 0", shadow.Label, len(shadow.Draws))
	}
	if shadow.DepthTarget == nil || b.LastWriter(shadow.DepthTarget) != "shadow" {
		t.Error("shadow map was not cleared by the shadow pass")
	}
}

func TestPassTargetsKeepDimensionsAcrossDraws(t *testing.T) {
	a, _ := setupApp(t, true)
	defer a.Release()

	if _, err := a.UploadModel(model.Quad()); err != nil {
		t.Fatalf("UploadModel: %v", err)
	}
	before := a.PassTargets()
	if len(before) != 3+2*blurRadii+1 {
		t.Fatalf("PassTargets() has %d entries, want %d", len(before), 3+2*blurRadii+1)
	}
	for _, ti := range before {
		wantW, wantH := uint32(testWidth), uint32(testHeight)
		if ti.Label == "shadow depth" {
			wantW, wantH = testShadowSize, testShadowSize
		}
		if ti.Width != wantW || ti.Height != wantH {
			t.Errorf("%s is %dx%d, want %dx%d", ti.Label, ti.Width, ti.Height, wantW, wantH)
		}
	}

	for i := range 5 {
		if err := a.Draw(wgpu.Color{}); err != nil {
			t.Fatalf("Draw %d: %v", i, err)
		}
	}
	if after := a.PassTargets(); !slices.Equal(before, after) {
		t.Errorf("PassTargets changed across draws:\nbefore %v\nafter  %v", before, after)
	}
}

// =============================================================================
// Setup ordering
// =============================================================================

func TestSetupRejectsOutOfOrderSteps(t *testing.T) {
	shaders, err := DefaultShaders(0)
	if err != nil {
		t.Fatalf("DefaultShaders: %v", err)
	}

	tests := []struct {
		name string
		run  func(a App) error
	}{
		{"InitGPU before canvas", func(a App) error { return a.InitGPU(headless.NewBackend()) }},
		{"LoadTextures before device", func(a App) error { return a.LoadTextures(context.Background(), memorySource{}) }},
		{"InitBuffers before textures", func(a App) error { return a.InitBuffers(testCamera(), testLight(true)) }},
		{"InitPipelines before buffers", func(a App) error { return a.InitPipelines(shaders) }},
		{"UploadModel before pipelines", func(a App) error { _, err := a.UploadModel(model.Quad()); return err }},
		{"Draw before model", func(a App) error { return a.Draw(wgpu.Color{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewApp()
			if err := tt.run(a); !errors.Is(err, ErrOutOfOrder) {
				t.Errorf("err = %v, want ErrOutOfOrder", err)
			}
			if a.State() != StateUninitialized {
				t.Errorf("State() = %v, want Uninitialized", a.State())
			}
		})
	}
}

func TestSetupStepsRunOnce(t *testing.T) {
	a, _ := setupApp(t, true)
	defer a.Release()

	if err := a.CreateCanvas(10, 10); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("second CreateCanvas err = %v, want ErrOutOfOrder", err)
	}
	if err := a.InitBuffers(testCamera(), testLight(true)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("second InitBuffers err = %v, want ErrOutOfOrder", err)
	}
	if a.State() != StatePipelinesBuilt {
		t.Errorf("State() = %v, want PipelinesBuilt", a.State())
	}
}

func TestFailedTextureLoadStaysInDeviceReady(t *testing.T) {
	a := NewApp()
	if err := a.CreateCanvas(testWidth, testHeight); err != nil {
		t.Fatalf("CreateCanvas: %v", err)
	}
	if err := a.InitGPU(headless.NewBackend()); err != nil {
		t.Fatalf("InitGPU: %v", err)
	}

	loadErr := errors.New("decode albedo.png: corrupt")
	if err := a.LoadTextures(context.Background(), memorySource{err: loadErr}); !errors.Is(err, loadErr) {
		t.Fatalf("LoadTextures err = %v, want %v", err, loadErr)
	}
	if a.State() != StateDeviceReady {
		t.Errorf("State() = %v, want DeviceReady", a.State())
	}
	if err := a.InitBuffers(testCamera(), testLight(true)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("InitBuffers after failed load err = %v, want ErrOutOfOrder", err)
	}

	if err := a.LoadTextures(context.Background(), memorySource{}); err != nil {
		t.Errorf("retrying LoadTextures: %v", err)
	}
}

func TestCreateCanvasRejectsZeroDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewApp()
			if err := a.CreateCanvas(tt.width, tt.height); !errors.Is(err, ErrInvalidCanvas) {
				t.Errorf("err = %v, want ErrInvalidCanvas", err)
			}
			if a.State() != StateUninitialized {
				t.Errorf("State() = %v, want Uninitialized", a.State())
			}
		})
	}
}

func TestInitGPURejectsNilBackend(t *testing.T) {
	a := NewApp()
	if err := a.CreateCanvas(testWidth, testHeight); err != nil {
		t.Fatalf("CreateCanvas: %v", err)
	}
	if err := a.InitGPU(nil); !errors.Is(err, resource.ErrNoDevice) {
		t.Errorf("err = %v, want resource.ErrNoDevice", err)
	}
}

// =============================================================================
// Per-frame updates
// =============================================================================

func TestPerFrameUpdates(t *testing.T) {
	a, _ := setupApp(t, true)
	defer a.Release()

	if err := a.UpdateModelTransform(0, model.Identity()); !errors.Is(err, ErrNoModel) {
		t.Errorf("UpdateModelTransform without models err = %v, want ErrNoModel", err)
	}
	if _, err := a.UploadModel(model.Quad()); err != nil {
		t.Fatalf("UploadModel: %v", err)
	}
	if err := a.UpdateModelTransform(0, model.Identity()); err != nil {
		t.Errorf("UpdateModelTransform: %v", err)
	}

	cam := testCamera()
	cam.SetPosition(1, 2, 3)
	if err := a.UpdateCamera(cam); err != nil {
		t.Errorf("UpdateCamera: %v", err)
	}
	if err := a.UpdateLight(testLight(false)); err != nil {
		t.Errorf("UpdateLight: %v", err)
	}
	if err := a.Draw(wgpu.Color{}); err != nil {
		t.Errorf("Draw after updates: %v", err)
	}
}

func TestUpdatesBeforeBuffersAreRejected(t *testing.T) {
	a := NewApp()
	if err := a.UpdateCamera(testCamera()); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("UpdateCamera err = %v, want ErrOutOfOrder", err)
	}
	if err := a.UpdateLight(testLight(true)); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("UpdateLight err = %v, want ErrOutOfOrder", err)
	}
	if got := a.PassTargets(); got != nil {
		t.Errorf("PassTargets() = %v, want nil", got)
	}
}

// =============================================================================
// Blur table and shaders
// =============================================================================

func TestBlurStagesOrderAndCoverage(t *testing.T) {
	var order []int
	seen := map[blurDirection][]int{}
	for i, s := range blurStages {
		order = append(order, s.pipeline)
		seen[s.direction] = append(seen[s.direction], s.radii[:]...)
		if s.direction == blurVertical {
			fed := slices.ContainsFunc(blurStages[:i], func(prev blurStage) bool {
				return prev.direction == blurHorizontal && prev.radii == s.radii
			})
			if !fed {
				t.Errorf("%s has no earlier horizontal stage over radii %v", s.label, s.radii)
			}
		}
	}
	if want := []int{1, 3, 2, 4}; !slices.Equal(order, want) {
		t.Errorf("pipeline order = %v, want %v", order, want)
	}
	for dir, radii := range seen {
		slices.Sort(radii)
		if !slices.Equal(radii, []int{0, 1, 2, 3, 4, 5}) {
			t.Errorf("%v stages cover radii %v, want 0..5 once", dir, radii)
		}
	}
}

func TestGaussianTapsAreNormalisedAndSymmetric(t *testing.T) {
	taps := gaussianTaps(3)
	if len(taps) != 7 {
		t.Fatalf("len = %d, want 7", len(taps))
	}
	var sum float32
	for i, tap := range taps {
		sum += tap.Weight
		mirror := taps[len(taps)-1-i]
		if tap.Weight != mirror.Weight || tap.Offset != -mirror.Offset {
			t.Errorf("tap %d %+v does not mirror %+v", i, tap, mirror)
		}
	}
	if sum < 0.9999 || sum > 1.0001 {
		t.Errorf("weights sum to %f, want 1", sum)
	}
	if taps[3].Weight <= taps[2].Weight {
		t.Errorf("center weight %f not the peak", taps[3].Weight)
	}
}

func TestBlurShaderScalesWithProfile(t *testing.T) {
	tests := []struct {
		name     string
		stage    blurStage
		scale    float32
		contains []string
	}{
		{
			name:     "horizontal small radii",
			stage:    blurStages[0],
			scale:    1,
			contains: []string{"direction * 0.080000", "direction * 0.220000", "vec2<f32>(1.0, 0.0)"},
		},
		{
			name:     "vertical wide radii at default scale",
			stage:    blurStages[3],
			scale:    0,
			contains: []string{"vec2<f32>(0.0, 1.0)", "out.radius2 = blur(source2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := blurShader(tt.stage, tt.scale)
			if err != nil {
				t.Fatalf("blurShader: %v", err)
			}
			if s.EntryPoint() != "fragmentMain" {
				t.Errorf("EntryPoint() = %q", s.EntryPoint())
			}
			for _, want := range tt.contains {
				if !strings.Contains(s.Source(), want) {
					t.Errorf("source missing %q", want)
				}
			}
			if n := len(s.Bindings()); n != 4 {
				t.Errorf("reflected %d bindings, want 4", n)
			}
		})
	}
}

func TestDefaultShadersResolveIncludes(t *testing.T) {
	s, err := DefaultShaders(DefaultBlurScale)
	if err != nil {
		t.Fatalf("DefaultShaders: %v", err)
	}
	if strings.Contains(s.SurfaceVertex.Source(), "@oxy:") {
		t.Error("surface vertex source still holds annotations")
	}
	for _, name := range []string{"struct CameraUniform", "struct LightUniform", "struct ModelUniform"} {
		if !strings.Contains(s.SurfaceVertex.Source(), name) {
			t.Errorf("surface vertex source missing %q", name)
		}
	}
	if got := len(s.ShadowVertex.VertexInputs()); got != 1 {
		t.Errorf("shadow vertex consumes %d inputs, want 1", got)
	}
	if got := len(s.CompositeFragment.Bindings()); got != 15 {
		t.Errorf("composite binds %d resources, want 15", got)
	}
	for i, blur := range s.Blur {
		if blur == nil {
			t.Errorf("blur shader %d missing", i)
		}
	}
}
