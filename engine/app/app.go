// Package app drives the subsurface-scattering pass chain: shadow, irradiance, four separable blur passes and the
// final composite, recorded into one command encoder per frame.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-sss/engine/camera"
	"github.com/Carmen-Shannon/oxy-sss/engine/light"
	"github.com/Carmen-Shannon/oxy-sss/engine/loader"
	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrOutOfOrder is returned when a setup step or Draw is called from a state that does not accept it.
	ErrOutOfOrder = errors.New("app: step called out of order")

	// ErrInvalidCanvas is returned when the canvas has a zero dimension.
	ErrInvalidCanvas = errors.New("app: canvas dimensions must be non-zero")

	// ErrNoModel is returned when a per-model update names a model that was never uploaded.
	ErrNoModel = errors.New("app: no model at index")
)

// State is the setup progress of an App.
type State int

const (
	StateUninitialized State = iota
	StateCanvasReady
	StateDeviceReady
	StateTexturesLoaded
	StateBuffersInitialized
	StatePipelinesBuilt
	StateModelUploaded
	StateRendering
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateCanvasReady:
		return "CanvasReady"
	case StateDeviceReady:
		return "DeviceReady"
	case StateTexturesLoaded:
		return "TexturesLoaded"
	case StateBuffersInitialized:
		return "BuffersInitialized"
	case StatePipelinesBuilt:
		return "PipelinesBuilt"
	case StateModelUploaded:
		return "ModelUploaded"
	case StateRendering:
		return "Rendering"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// app is the implementation of the App interface.
type app struct {
	state  State
	logger *log.Entry

	shadowSize   uint32
	textureNames [3]string

	fc frameContext
}

// App owns the device-facing state of the renderer and records one frame per Draw.
//
// Setup runs strictly in order: CreateCanvas, InitGPU, LoadTextures, InitBuffers, InitPipelines, UploadModel. Each
// step is accepted once, from the state its predecessor leaves behind. A failed step leaves the state unchanged.
// An App is not safe for concurrent use.
type App interface {
	// State returns the current setup state.
	State() State

	// CreateCanvas fixes the device-pixel size of the surface and every screen-space target.
	//
	// Parameters:
	//   - width: canvas width in pixels
	//   - height: canvas height in pixels
	//
	// Returns:
	//   - error: ErrInvalidCanvas or ErrOutOfOrder
	CreateCanvas(width, height uint32) error

	// InitGPU takes ownership of b and configures its surface at the canvas size in RGBA8Unorm.
	//
	// Parameters:
	//   - b: the backend to render with
	//
	// Returns:
	//   - error: resource.ErrNoDevice, ErrOutOfOrder or a surface configuration error
	InitGPU(b gpu.Backend) error

	// LoadTextures decodes the albedo, specular and scattering maps from source and uploads them flipped
	// vertically. Nothing is kept on failure.
	//
	// Parameters:
	//   - ctx: cancels decoding
	//   - source: where the images come from
	//
	// Returns:
	//   - error: ErrOutOfOrder, a load error or an upload error
	LoadTextures(ctx context.Context, source loader.ImageSource) error

	// InitBuffers creates the global uniforms from cam and l, the samplers, the full-screen quad and every pass
	// target.
	//
	// Parameters:
	//   - cam: the camera whose uniform seeds the camera buffer
	//   - l: the light whose uniform seeds the light buffer
	//
	// Returns:
	//   - error: ErrOutOfOrder or a resource error
	InitBuffers(cam camera.Camera, l light.DirectionalLight) error

	// InitPipelines builds the bind group layouts, the seven pipelines and the bind groups of the pass chain.
	//
	// Parameters:
	//   - shaders: the programs to build the pipelines from
	//
	// Returns:
	//   - error: ErrOutOfOrder or a pipeline or binding error
	InitPipelines(shaders Shaders) error

	// UploadModel creates a drawable from mesh. It may be called again once a model is uploaded.
	//
	// Parameters:
	//   - mesh: the CPU mesh data
	//
	// Returns:
	//   - int: the model's index for UpdateModelTransform
	//   - error: ErrOutOfOrder or a model creation error
	UploadModel(mesh model.Mesh) (int, error)

	// Draw records the full pass chain into one encoder, submits it once and presents the surface.
	//
	// Parameters:
	//   - clear: the surface clear color
	//
	// Returns:
	//   - error: ErrOutOfOrder or any encoding, validation or submission error
	Draw(clear wgpu.Color) error

	// UpdateModelTransform uploads a new model matrix for the i-th uploaded model.
	UpdateModelTransform(i int, m [16]float32) error

	// UpdateCamera rewrites the camera uniform from cam.
	UpdateCamera(cam camera.Camera) error

	// UpdateLight rewrites the light uniform from l.
	UpdateLight(l light.DirectionalLight) error

	// PassTargets reports every offscreen target as allocated. The result is empty before InitBuffers.
	PassTargets() []TargetInfo

	// Release frees every GPU object the App created and the backend it was given.
	Release()
}

var _ App = &app{}

// NewApp creates an App in StateUninitialized.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - App: the created App
func NewApp(options ...AppBuilderOption) App {
	a := &app{
		logger:       log.WithField("component", "app"),
		shadowSize:   DefaultShadowMapSize,
		textureNames: DefaultTextureNames,
	}
	for _, opt := range options {
		opt(a)
	}
	a.fc.logger = a.logger
	a.fc.shadowSize = a.shadowSize
	return a
}

func (a *app) State() State { return a.state }

// expect fails with ErrOutOfOrder unless the App is in one of the allowed states.
func (a *app) expect(step string, allowed ...State) error {
	if !slices.Contains(allowed, a.state) {
		return fmt.Errorf("%s in state %v: %w", step, a.state, ErrOutOfOrder)
	}
	return nil
}

func (a *app) advance(to State) {
	a.logger.WithFields(log.Fields{
		"from": a.state,
		"to":   to,
	}).Info("setup step complete")
	a.state = to
}

func (a *app) CreateCanvas(width, height uint32) error {
	if err := a.expect("CreateCanvas", StateUninitialized); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("canvas %dx%d: %w", width, height, ErrInvalidCanvas)
	}
	a.fc.width, a.fc.height = width, height
	a.advance(StateCanvasReady)
	return nil
}

func (a *app) InitGPU(b gpu.Backend) error {
	if err := a.expect("InitGPU", StateCanvasReady); err != nil {
		return err
	}
	if b == nil {
		return resource.ErrNoDevice
	}
	if err := b.ConfigureSurface(a.fc.width, a.fc.height, wgpu.TextureFormatRGBA8Unorm); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	a.fc.backend = b
	a.logger.WithField("format", b.SurfaceFormat()).Debug("surface configured")
	a.advance(StateDeviceReady)
	return nil
}

func (a *app) LoadTextures(ctx context.Context, source loader.ImageSource) error {
	if err := a.expect("LoadTextures", StateDeviceReady); err != nil {
		return err
	}
	bitmaps, err := source.Load(ctx, a.textureNames[:]...)
	if err != nil {
		return fmt.Errorf("load skin textures: %w", err)
	}
	if len(bitmaps) != len(a.textureNames) {
		return fmt.Errorf("load skin textures: %d images for %d names: %w", len(bitmaps), len(a.textureNames), loader.ErrNoImages)
	}

	labels := [3]string{"albedo", "specular", "scattering"}
	var loaded [3]target
	for i, bm := range bitmaps {
		tex, err := resource.CreateTextureFromImage(a.fc.backend, labels[i], bm, true)
		if err != nil {
			releaseTargets(loaded[:])
			return fmt.Errorf("upload %s: %w", labels[i], err)
		}
		view, err := tex.CreateView()
		if err != nil {
			tex.Release()
			releaseTargets(loaded[:])
			return fmt.Errorf("view of %s: %w", labels[i], err)
		}
		loaded[i] = target{texture: tex, view: view}
	}
	a.fc.textures = skinTextures{albedo: loaded[0], specular: loaded[1], scattering: loaded[2]}
	a.advance(StateTexturesLoaded)
	return nil
}

func releaseTargets(ts []target) {
	for _, t := range ts {
		t.release()
	}
}

func (a *app) InitBuffers(cam camera.Camera, l light.DirectionalLight) error {
	if err := a.expect("InitBuffers", StateTexturesLoaded); err != nil {
		return err
	}
	camUniform := cam.Uniform()
	lightUniform := l.Uniform()
	if err := a.fc.createGlobals(camUniform.Marshal(), lightUniform.Marshal()); err != nil {
		a.fc.releaseGlobals()
		return err
	}
	a.fc.castShadows = l.CastsShadows()
	a.logger.WithFields(log.Fields{
		"canvas":     fmt.Sprintf("%dx%d", a.fc.width, a.fc.height),
		"shadow_map": a.fc.shadowSize,
	}).Debug("pass targets allocated")
	a.advance(StateBuffersInitialized)
	return nil
}

func (a *app) InitPipelines(shaders Shaders) error {
	if err := a.expect("InitPipelines", StateBuffersInitialized); err != nil {
		return err
	}
	if err := a.fc.createLayouts(); err != nil {
		a.fc.releasePipelines()
		return err
	}
	if err := a.fc.createPipelines(shaders); err != nil {
		a.fc.releasePipelines()
		return err
	}
	if err := a.fc.createBindGroups(); err != nil {
		a.fc.releasePipelines()
		return err
	}
	a.advance(StatePipelinesBuilt)
	return nil
}

func (a *app) UploadModel(mesh model.Mesh) (int, error) {
	if err := a.expect("UploadModel", StatePipelinesBuilt, StateModelUploaded); err != nil {
		return 0, err
	}
	t := a.fc.textures
	m, err := model.NewModel(a.fc.backend, mesh, a.fc.layouts.model, model.Textures{
		Sampler:    a.fc.surfaceSampler,
		Albedo:     t.albedo.view,
		Specular:   t.specular.view,
		Scattering: t.scattering.view,
	})
	if err != nil {
		return 0, fmt.Errorf("upload model: %w", err)
	}
	a.fc.models = append(a.fc.models, m)
	a.logger.WithFields(log.Fields{
		"model":    m.Name(),
		"vertices": m.VertexCount(),
		"indices":  m.IndexCount(),
	}).Info("model uploaded")
	if a.state != StateModelUploaded {
		a.advance(StateModelUploaded)
	}
	return len(a.fc.models) - 1, nil
}

func (a *app) Draw(clear wgpu.Color) error {
	if err := a.expect("Draw", StateModelUploaded, StateRendering); err != nil {
		return err
	}
	if err := a.fc.encodeFrame(clear); err != nil {
		return err
	}
	if a.state != StateRendering {
		a.advance(StateRendering)
	}
	return nil
}

func (a *app) UpdateModelTransform(i int, m [16]float32) error {
	if i < 0 || i >= len(a.fc.models) {
		return fmt.Errorf("model %d of %d: %w", i, len(a.fc.models), ErrNoModel)
	}
	return a.fc.models[i].UpdateTransform(a.fc.backend, m)
}

func (a *app) UpdateCamera(cam camera.Camera) error {
	if a.fc.cameraBuffer == nil {
		return fmt.Errorf("UpdateCamera in state %v: %w", a.state, ErrOutOfOrder)
	}
	u := cam.Uniform()
	return resource.UpdateBuffer(a.fc.backend, a.fc.cameraBuffer, u.Marshal())
}

func (a *app) UpdateLight(l light.DirectionalLight) error {
	if a.fc.lightBuffer == nil {
		return fmt.Errorf("UpdateLight in state %v: %w", a.state, ErrOutOfOrder)
	}
	u := l.Uniform()
	if err := resource.UpdateBuffer(a.fc.backend, a.fc.lightBuffer, u.Marshal()); err != nil {
		return err
	}
	a.fc.castShadows = l.CastsShadows()
	return nil
}

func (a *app) PassTargets() []TargetInfo {
	if a.fc.targets.shadowDepth.texture == nil {
		return nil
	}
	all := a.fc.targets.all()
	out := make([]TargetInfo, len(all))
	for i, t := range all {
		out[i] = t.info()
	}
	return out
}

func (a *app) Release() {
	a.fc.release()
	if a.fc.backend != nil {
		a.fc.backend.Release()
		a.fc.backend = nil
	}
	a.state = StateUninitialized
}
