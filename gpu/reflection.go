package gpu

import "github.com/cogentcore/webgpu/wgpu"

// MaxBindGroupIndexCount bounds the number of bind group sets a single
// pipeline may declare (spec §4.3 "Shader Reflection"). wgpu itself allows
// four on most backends; the engine never exceeds that.
const MaxBindGroupIndexCount = 4

// BindingKind distinguishes the WGSL resource kind behind a single
// @group/@binding declaration, mirroring the distinction the teacher's
// shader.PreProcessor annotations already draw between struct bindings and
// raw-WGSL-type bindings (textures, samplers).
type BindingKind int

const (
	BindingKindUniformBuffer BindingKind = iota
	BindingKindStorageBuffer
	BindingKindReadOnlyStorageBuffer
	BindingKindTexture
	BindingKindSampler
)

// BindingReflection describes one binding slot discovered by reflecting a
// shader module, generalizing the teacher's @oxy:group / @oxy:provider
// annotation pairs (engine/renderer/shader/annotations.go) into a
// driver-agnostic description the Renderer Core uses to build bind group
// layouts automatically (spec §4.3).
type BindingReflection struct {
	Group   uint32
	Binding uint32
	Kind    BindingKind
	// StructName names the WGSL struct type bound here when Kind is a buffer
	// kind, e.g. "Material_Properties" (spec §4.3 example). Empty for
	// texture/sampler bindings, which carry no struct.
	StructName string
}

// VertexAttributeReflection describes a single attribute within a vertex
// input binding (spec §4.3 "Vertex Input Reflection").
type VertexAttributeReflection struct {
	Location uint32
	Format   wgpu.VertexFormat
	Offset   uint64
}

// VertexInputReflection describes one vertex buffer binding's stride and
// attribute layout, generalizing the teacher's static-vertex vs.
// skinned-vertex struct distinction (annotationArgVertex /
// annotationArgSkinnedVertex) into data rather than two hardcoded WGSL
// includes.
type VertexInputReflection struct {
	Stride     uint64
	StepMode   wgpu.VertexStepMode
	Attributes []VertexAttributeReflection
}

// ShaderReflection is the full set of binding and vertex-input information
// extracted from a shader module at load time, used to synthesize bind group
// layouts and pipeline vertex-buffer layouts without hand-written
// boilerplate per shader (spec §4.3).
type ShaderReflection struct {
	Bindings     [MaxBindGroupIndexCount][]BindingReflection
	VertexInputs []VertexInputReflection
}

// BindGroupLayoutFor synthesizes the wgpu bind group layout entries for the
// given group index from its reflected bindings.
func (r *ShaderReflection) BindGroupLayoutFor(group uint32) []wgpu.BindGroupLayoutEntry {
	if int(group) >= len(r.Bindings) {
		return nil
	}
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(r.Bindings[group]))
	for _, b := range r.Bindings[group] {
		entry := wgpu.BindGroupLayoutEntry{Binding: b.Binding}
		switch b.Kind {
		case BindingKindUniformBuffer:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}
		case BindingKindStorageBuffer:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}
		case BindingKindReadOnlyStorageBuffer:
			entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}
		case BindingKindTexture:
			entry.Texture = wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat}
		case BindingKindSampler:
			entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		}
		entries = append(entries, entry)
	}
	return entries
}

// shaderResource is the slab payload for the shader handle pool.
type shaderResource struct {
	module     *wgpu.ShaderModule
	reflection ShaderReflection
}

// pipelineResource is the slab payload for the pipeline handle pool.
type pipelineResource struct {
	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
	layouts []BindGroupLayoutHandle
}
