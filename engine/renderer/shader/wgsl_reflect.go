package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-sss/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex format
var wgslVertexFormatMap = map[string]wgpu.VertexFormat{
	"f32":       wgpu.VertexFormatFloat32,
	"vec2f":     wgpu.VertexFormatFloat32x2,
	"vec2<f32>": wgpu.VertexFormatFloat32x2,
	"vec3f":     wgpu.VertexFormatFloat32x3,
	"vec3<f32>": wgpu.VertexFormatFloat32x3,
	"vec4f":     wgpu.VertexFormatFloat32x4,
	"vec4<f32>": wgpu.VertexFormatFloat32x4,
	"i32":       wgpu.VertexFormatSint32,
	"vec2i":     wgpu.VertexFormatSint32x2,
	"vec2<i32>": wgpu.VertexFormatSint32x2,
	"vec3i":     wgpu.VertexFormatSint32x3,
	"vec3<i32>": wgpu.VertexFormatSint32x3,
	"vec4i":     wgpu.VertexFormatSint32x4,
	"vec4<i32>": wgpu.VertexFormatSint32x4,
	"u32":       wgpu.VertexFormatUint32,
	"vec2u":     wgpu.VertexFormatUint32x2,
	"vec2<u32>": wgpu.VertexFormatUint32x2,
	"vec3u":     wgpu.VertexFormatUint32x3,
	"vec3<u32>": wgpu.VertexFormatUint32x3,
	"vec4u":     wgpu.VertexFormatUint32x4,
	"vec4<u32>": wgpu.VertexFormatUint32x4,
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions up to the opening parenthesis and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`@vertex\s+fn\s+(\w+)\s*\(`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`@fragment\s+fn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> camera: CameraUniform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Binding is one resource declaration reflected from WGSL source.
type Binding struct {
	// Group is the @group index.
	Group uint32

	// Name is the WGSL variable name.
	Name string

	// Entry is the layout slot the declaration requires. Visibility holds the declaring stage.
	Entry gpu.LayoutEntry
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL source,
// sorted by group then binding.
//
// Parameters:
//   - source: the WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - []Binding: the reflected bindings
func parseBindings(source string, visibility wgpu.ShaderStage) []Binding {
	cleaned := stripComments(source)
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)

	bindings := make([]Binding, 0, len(matches))
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		bindings = append(bindings, Binding{
			Group: uint32(group),
			Name:  strings.TrimSpace(match[4]),
			Entry: classifyResource(uint32(binding), visibility, strings.TrimSpace(match[3]), strings.TrimSpace(match[5])),
		})
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Entry.Binding < bindings[j].Entry.Binding
	})
	return bindings
}

// classifyResource builds the layout slot a single WGSL resource declaration requires.
// The address space qualifier marks buffers; handle types are classified by type name.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the address space qualifier (e.g. "uniform"), empty for handle types
//   - typeName: the WGSL type string (e.g. "CameraUniform", "texture_2d<f32>", "sampler")
//
// Returns:
//   - gpu.LayoutEntry: the layout slot for the resource
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) gpu.LayoutEntry {
	entry := gpu.LayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	if addressSpace != "" {
		entry.Kind = gpu.ResourceKindBuffer
		switch {
		case addressSpace == "uniform":
			entry.Buffer = wgpu.BufferBindingTypeUniform
		case strings.Contains(addressSpace, "read_write"):
			entry.Buffer = wgpu.BufferBindingTypeStorage
		default:
			entry.Buffer = wgpu.BufferBindingTypeReadOnlyStorage
		}
		return entry
	}

	switch {
	case typeName == "sampler":
		entry.Kind = gpu.ResourceKindSampler
		entry.Sampler = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Kind = gpu.ResourceKindSampler
		entry.Sampler = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_depth_"):
		entry.Kind = gpu.ResourceKindTexture
		entry.Texture = wgpu.TextureSampleTypeDepth
	case strings.HasPrefix(typeName, "texture_"):
		entry.Kind = gpu.ResourceKindTexture
		_, param := splitTypeParams(typeName)
		entry.Texture = wgslSampleTypeMap[param]
	}
	return entry
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point is found.
//
// Parameters:
//   - source: the WGSL source code string
//   - shaderType: ShaderTypeVertex or ShaderTypeFragment
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseVertexInputs reflects the vertex attributes consumed by the vertex entry point.
// The entry point's parameter types are matched against struct declarations; every
// @location field of a pure input struct (no @builtin fields) contributes one attribute.
// Bare @location parameters are reflected as well.
//
// Parameters:
//   - source: the WGSL source code string
//
// Returns:
//   - map[uint32]wgpu.VertexFormat: vertex format keyed by shader location
//   - bool: false if an input type has no vertex format equivalent
func parseVertexInputs(source string) (map[uint32]wgpu.VertexFormat, bool) {
	cleaned := stripComments(source)
	inputs := make(map[uint32]wgpu.VertexFormat)

	loc := vertexEntryRegex.FindStringIndex(cleaned)
	if loc == nil {
		return inputs, true
	}
	params := enclosedParams(cleaned[loc[1]:])

	structs := make(map[string]parsedStruct)
	for _, ps := range parseStructBlocks(cleaned) {
		structs[ps.name] = ps
	}

	for _, param := range parseStructFields(params) {
		if param.isBuiltin {
			continue
		}
		if param.location >= 0 {
			format, ok := wgslVertexFormatMap[param.typeName]
			if !ok {
				return nil, false
			}
			inputs[uint32(param.location)] = format
			continue
		}
		ps, ok := structs[param.typeName]
		if !ok || !isVertexInputStruct(ps) {
			continue
		}
		for _, f := range ps.fields {
			format, ok := wgslVertexFormatMap[f.typeName]
			if !ok {
				return nil, false
			}
			inputs[uint32(f.location)] = format
		}
	}
	return inputs, true
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

// parseStructFields parses a comma separated field (or parameter) list into individual
// fields, extracting @location and @builtin attributes along with the name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration, or a parameter list
//
// Returns:
//   - []parsedField: all fields found in the body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location field and zero @builtin fields.
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// enclosedParams returns the text up to the parenthesis that closes an already opened
// parameter list, skipping over nested attribute parentheses such as @location(0).
func enclosedParams(s string) string {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i]
			}
		}
	}
	return s
}

// splitTypeParams splits a WGSL parameterized type into its base name and parameter string.
// For "texture_2d<f32>" returns ("texture_2d", "f32").
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
// Block comments may be nested.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source.
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments (/* ... */) from WGSL source, handling nesting.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' {
				if depth > 0 {
					depth--
				}
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a string at commas that are not nested inside angle brackets.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
