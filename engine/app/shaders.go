package app

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"text/template"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/shader"
)

//go:embed assets/*.wgsl assets/*.tmpl
var assets embed.FS

// DefaultBlurScale converts the diffusion profile variances into texel steps on a canvas-sized target.
const DefaultBlurScale float32 = 4.0

// profileVariances are the six Gaussian variances of the skin diffusion profile, smallest first.
var profileVariances = [6]float32{0.0064, 0.0484, 0.187, 0.567, 1.99, 7.41}

var blurTemplate = template.Must(template.ParseFS(assets, "assets/blur.frag.wgsl.tmpl"))

// Shaders are the seven programs the pass chain is built from. Blur holds one fragment shader per entry of the
// blur stage table, in table order.
type Shaders struct {
	ShadowVertex       shader.Shader
	SurfaceVertex      shader.Shader
	IrradianceFragment shader.Shader
	QuadVertex         shader.Shader
	Blur               [4]shader.Shader
	CompositeFragment  shader.Shader
}

type blurTap struct {
	Offset float32
	Weight float32
}

type blurTemplateData struct {
	Label     string
	Direction string
	DirX      float32
	DirY      float32
	Taps      []blurTap
	Sigmas    [3]float32
}

// DefaultShaders loads the embedded WGSL programs and renders the blur shaders for blurScale. A non-positive
// blurScale uses DefaultBlurScale.
//
// Parameters:
//   - blurScale: texels per unit of profile standard deviation
//
// Returns:
//   - Shaders: the processed shaders
//   - error: a read, template or shader processing error
func DefaultShaders(blurScale float32) (Shaders, error) {
	var s Shaders
	var err error

	load := func(path string, t shader.ShaderType) shader.Shader {
		if err != nil {
			return nil
		}
		var sh shader.Shader
		sh, err = shader.NewShaderFromFS(assets, path, t)
		return sh
	}
	s.ShadowVertex = load("assets/shadow.vert.wgsl", shader.ShaderTypeVertex)
	s.SurfaceVertex = load("assets/surface.vert.wgsl", shader.ShaderTypeVertex)
	s.IrradianceFragment = load("assets/irradiance.frag.wgsl", shader.ShaderTypeFragment)
	s.QuadVertex = load("assets/quad.vert.wgsl", shader.ShaderTypeVertex)
	s.CompositeFragment = load("assets/composite.frag.wgsl", shader.ShaderTypeFragment)
	if err != nil {
		return Shaders{}, err
	}

	for i, stage := range blurStages {
		if s.Blur[i], err = blurShader(stage, blurScale); err != nil {
			return Shaders{}, err
		}
	}
	return s, nil
}

// blurShader renders the separable Gaussian fragment shader for one blur stage. Each of the stage's three radii
// is blurred with a 7-tap kernel whose taps sit one standard deviation apart.
func blurShader(stage blurStage, blurScale float32) (shader.Shader, error) {
	if blurScale <= 0 {
		blurScale = DefaultBlurScale
	}

	data := blurTemplateData{
		Label:     stage.label,
		Direction: stage.direction.String(),
		Taps:      gaussianTaps(3),
	}
	if stage.direction == blurHorizontal {
		data.DirX = 1
	} else {
		data.DirY = 1
	}
	for i, radius := range stage.radii {
		data.Sigmas[i] = float32(math.Sqrt(float64(profileVariances[radius]))) * blurScale
	}

	var buf bytes.Buffer
	if err := blurTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s shader: %w", stage.label, err)
	}
	return shader.NewShader(stage.label+".frag", shader.ShaderTypeFragment, buf.String())
}

// gaussianTaps returns 2*half+1 taps at integer offsets with normalised weights exp(-k²/2).
func gaussianTaps(half int) []blurTap {
	taps := make([]blurTap, 0, 2*half+1)
	var sum float32
	for k := -half; k <= half; k++ {
		w := float32(math.Exp(-float64(k*k) / 2))
		taps = append(taps, blurTap{Offset: float32(k), Weight: w})
		sum += w
	}
	for i := range taps {
		taps[i].Weight /= sum
	}
	return taps
}
