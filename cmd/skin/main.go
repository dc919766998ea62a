// Command skin renders a subsurface-scattered skin model in a window, or for a fixed number of frames on the
// headless backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-sss/common"
	"github.com/Carmen-Shannon/oxy-sss/engine/app"
	"github.com/Carmen-Shannon/oxy-sss/engine/camera"
	"github.com/Carmen-Shannon/oxy-sss/engine/light"
	"github.com/Carmen-Shannon/oxy-sss/engine/loader"
	"github.com/Carmen-Shannon/oxy-sss/engine/loop"
	"github.com/Carmen-Shannon/oxy-sss/engine/model"
	"github.com/Carmen-Shannon/oxy-sss/engine/profiler"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu/headless"
	"github.com/Carmen-Shannon/oxy-sss/engine/window"
	"github.com/Carmen-Shannon/oxy-sss/internal/config"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// rotationRate is the model's spin about +Y in radians per millisecond.
const rotationRate = 0.001

var clearColor = wgpu.Color{R: 0.02, G: 0.02, B: 0.03, A: 1}

func init() {
	// GLFW and the WebGPU surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	envFile := os.Getenv("OXY_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	cfg, err := config.Load(envFile)
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}

	logLevel := cfg.LogLevel.String()
	flag.IntVar(&cfg.Width, "width", cfg.Width, "canvas width in pixels")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "canvas height in pixels")
	flag.IntVar(&cfg.ShadowMapSize, "shadow-map", cfg.ShadowMapSize, "shadow map edge length in texels")
	flag.StringVar(&cfg.PresentMode, "present", cfg.PresentMode, "present mode: vsync or uncapped")
	flag.StringVar(&cfg.AssetDir, "assets", cfg.AssetDir, "directory holding the skin textures")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "glTF, GLB or OBJ model to render (default: built-in sphere)")
	flag.IntVar(&cfg.HeadlessFrames, "headless", cfg.HeadlessFrames, "render this many frames without a window")
	flag.Float64Var(&cfg.BlurScale, "blur-scale", cfg.BlurScale, "texels per unit of diffusion profile deviation")
	flag.StringVar(&logLevel, "log-level", logLevel, "logrus log level")
	profile := flag.Bool("profile", false, "log frame rate and memory once per second")
	flag.Parse()

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.WithError(err).Fatal("parse log level")
	}
	cfg.LogLevel = level
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, *profile); err != nil {
		log.WithError(err).Fatal("skin renderer failed")
	}
}

// run opens the backend, performs every setup step and drives the render loop until the window closes or the
// headless frame budget is spent.
func run(ctx context.Context, cfg config.Config, profile bool) error {
	logger := log.WithField("component", "skin")

	backend, source, closeWindow, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWindow()

	width, height := uint32(cfg.Width), uint32(cfg.Height)
	if w, ok := source.(window.Window); ok {
		width, height = uint32(w.Width()), uint32(w.Height())
	}

	a := app.NewApp(
		app.WithShadowMapSize(uint32(cfg.ShadowMapSize)),
		app.WithTextureNames(cfg.Albedo, cfg.Specular, cfg.Scattering),
	)
	defer a.Release()

	cam := camera.NewCamera(
		camera.WithPosition(0, 0, 20),
		camera.WithAspect(float32(width)/float32(height)),
	)
	sun := light.NewDirectionalLight(
		light.WithPosition(10, 15, 20),
		light.WithColor(1, 0.96, 0.9),
		light.WithIntensity(1.2),
		light.WithShadows(true),
	)
	shaders, err := app.DefaultShaders(float32(cfg.BlurScale))
	if err != nil {
		return err
	}
	meshes, err := loadMeshes(cfg.Model)
	if err != nil {
		return err
	}

	if err := a.CreateCanvas(width, height); err != nil {
		return err
	}
	if err := a.InitGPU(backend); err != nil {
		return err
	}
	images := loader.NewFileImageSource(cfg.AssetDir)
	if err := a.LoadTextures(ctx, images); err != nil {
		return err
	}
	if err := a.InitBuffers(cam, sun); err != nil {
		return err
	}
	if err := a.InitPipelines(shaders); err != nil {
		return err
	}
	for _, m := range meshes {
		if _, err := a.UploadModel(m); err != nil {
			return err
		}
	}

	// Space pauses the spin.
	paused := false
	if w, ok := source.(window.Window); ok {
		w.SetKeyDownCallback(func(keyCode uint32) {
			if keyCode == common.KeySpace {
				paused = !paused
			}
		})
	}

	var drawErr error
	var spun time.Duration
	last := time.Now()
	frame := func() {
		now := time.Now()
		if !paused {
			spun += now.Sub(last)
		}
		last = now
		angle := float32(spun.Milliseconds()) * rotationRate
		spin := mgl32.HomogRotate3DY(angle)
		for i, m := range meshes {
			if drawErr = a.UpdateModelTransform(i, [16]float32(spin.Mul4(mgl32.Mat4(m.Transform)))); drawErr != nil {
				return
			}
		}
		drawErr = a.Draw(clearColor)
	}

	var opts []loop.RunOption
	if profile {
		opts = append(opts, loop.WithProfiler(profiler.NewProfiler()))
	}
	frames := loop.Run(loop.While(source, func() bool { return drawErr == nil && ctx.Err() == nil }), frame, opts...)
	logger.WithField("frames", frames).Info("done")
	return drawErr
}

// openBackend returns the headless backend with a ticker refresh source when a frame budget is configured, and a
// window with the WebGPU backend otherwise.
func openBackend(ctx context.Context, cfg config.Config) (gpu.Backend, loop.RefreshSource, func(), error) {
	if cfg.HeadlessFrames > 0 {
		b := headless.NewBackend()
		source := loop.Limit(loop.NewTickerSource(ctx, 60), cfg.HeadlessFrames)
		return b, source, func() {}, nil
	}

	win, err := window.NewWindow(
		window.WithTitle("oxy-sss"),
		window.WithSize(cfg.Width, cfg.Height),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	closeWindow := func() {
		if err := win.Close(); err != nil {
			log.WithError(err).Debug("close window")
		}
	}

	presentMode := wgpu.PresentModeFifo
	if cfg.PresentMode == config.PresentUncapped {
		presentMode = wgpu.PresentModeImmediate
	}
	b, err := gpu.NewWGPUBackend(win.SurfaceDescriptor(),
		gpu.WithPresentMode(presentMode),
		gpu.WithLogger(log.WithField("component", "gpu")),
	)
	if err != nil {
		closeWindow()
		return nil, nil, nil, fmt.Errorf("create WebGPU backend: %w", err)
	}
	return b, win, closeWindow, nil
}

// loadMeshes loads every mesh of path, or returns the built-in sphere when path is empty.
func loadMeshes(path string) ([]model.Mesh, error) {
	if path == "" {
		sphere := model.Sphere(8, 64, 128)
		sphere.Name = "sphere"
		return []model.Mesh{sphere}, nil
	}
	meshes, err := loader.NewLoader().Load(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return meshes, nil
}
