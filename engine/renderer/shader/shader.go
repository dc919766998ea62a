// Package shader loads WGSL programs, runs the @oxy pre-processor over them and reflects the bindings and vertex
// inputs each program declares so pipelines can be checked against their layouts before the driver sees them.
package shader

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrEmptySource is returned when a shader is created from blank source text.
	ErrEmptySource = errors.New("shader: empty source")

	// ErrEntryPoint is returned when the source lacks the fixed entry point for its stage.
	ErrEntryPoint = errors.New("shader: missing entry point")

	// ErrVertexInput is returned when a vertex input uses a type with no vertex format equivalent.
	ErrVertexInput = errors.New("shader: unsupported vertex input type")
)

// ShaderType identifies the pipeline stage a shader runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the stage name.
func (t ShaderType) String() string {
	if t == ShaderTypeFragment {
		return "fragment"
	}
	return "vertex"
}

// Stage returns the wgpu stage flag for the shader type.
func (t ShaderType) Stage() wgpu.ShaderStage {
	if t == ShaderTypeFragment {
		return wgpu.ShaderStageFragment
	}
	return wgpu.ShaderStageVertex
}

// shader is the implementation of the Shader interface.
type shader struct {
	key          string
	source       string
	shaderType   ShaderType
	entryPoint   string
	bindings     []Binding
	vertexInputs map[uint32]wgpu.VertexFormat
	declarations []Annotation
}

// Shader defines the interface for a pre-processed and reflected single-stage WGSL program.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader (vertexMain or fragmentMain).
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// Bindings returns the resource declarations of the shader sorted by group then binding.
	// Each entry's visibility is the shader's own stage.
	//
	// Returns:
	//   - []Binding: the reflected bindings
	Bindings() []Binding

	// VertexInputs returns the vertex formats consumed by a vertex shader keyed by shader location.
	// Fragment shaders return an empty map.
	//
	// Returns:
	//   - map[uint32]wgpu.VertexFormat: the reflected inputs
	VertexInputs() map[uint32]wgpu.VertexFormat

	// Declarations returns the @oxy:group annotations the pre-processor expanded.
	//
	// Returns:
	//   - []Annotation: the expanded group annotations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and reflects WGSL source for one stage. The source must declare the stage's fixed entry
// point: vertexMain for vertex shaders, fragmentMain for fragment shaders.
//
// Parameters:
//   - key: a unique identifier for the shader, used for labels and errors
//   - shaderType: the stage the source implements
//   - source: raw WGSL, possibly containing @oxy annotations
//
// Returns:
//   - Shader: the processed shader
//   - error: ErrEmptySource, ErrEntryPoint, ErrVertexInput, or a pre-processor error
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("shader %s: %w", key, ErrEmptySource)
	}

	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}

	want := gpu.ShaderEntryVertex
	if shaderType == ShaderTypeFragment {
		want = gpu.ShaderEntryFragment
	}
	entry := parseEntryPoint(processed, shaderType)
	if entry != want {
		return nil, fmt.Errorf("shader %s: %s entry point %q, want %q: %w", key, shaderType, entry, want, ErrEntryPoint)
	}

	s := &shader{
		key:          key,
		source:       processed,
		shaderType:   shaderType,
		entryPoint:   entry,
		bindings:     parseBindings(processed, shaderType.Stage()),
		vertexInputs: map[uint32]wgpu.VertexFormat{},
		declarations: pp.Declarations(),
	}
	if shaderType == ShaderTypeVertex {
		inputs, ok := parseVertexInputs(processed)
		if !ok {
			return nil, fmt.Errorf("shader %s: %w", key, ErrVertexInput)
		}
		s.vertexInputs = inputs
	}
	return s, nil
}

// NewShaderFromFS reads path from fsys and passes its contents to NewShader. The path doubles as the key.
//
// Parameters:
//   - fsys: the file system holding the source, typically an embed.FS
//   - path: the file path within fsys
//   - shaderType: the stage the source implements
//
// Returns:
//   - Shader: the processed shader
//   - error: a read error or any error from NewShader
func NewShaderFromFS(fsys fs.FS, path string, shaderType ShaderType) (Shader, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", path, err)
	}
	return NewShader(path, shaderType, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) VertexInputs() map[uint32]wgpu.VertexFormat {
	return maps.Clone(s.vertexInputs)
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
