package gpu

import "github.com/cogentcore/webgpu/wgpu"

// PipelineDescriptor describes a render or compute pipeline creation request
// (spec §4.3 "Pipelines"). A compute pipeline sets only ComputeShader; a
// render pipeline sets VertexShader, FragmentShader, and RenderPass so the
// driver can read back each color attachment's format and the pass's sample
// count, mirroring the teacher's RegisterRenderPipeline reading
// b.surfaceFormat/b.sampleCount off the backend rather than the caller.
type PipelineDescriptor struct {
	Label string

	VertexShader   ShaderHandle
	FragmentShader ShaderHandle
	ComputeShader  ShaderHandle

	Layouts []BindGroupLayoutHandle

	// RenderPass supplies target attachment formats/sample count; unused for
	// a compute pipeline.
	RenderPass RenderPassHandle

	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	CullMode  wgpu.CullMode

	BlendEnabled bool
	Blend        *wgpu.BlendState
	WriteMask    wgpu.ColorWriteMask

	DepthTestEnabled    bool
	DepthWriteEnabled   bool
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// IsCompute reports whether desc describes a compute pipeline rather than a
// render pipeline.
func (d PipelineDescriptor) IsCompute() bool { return d.ComputeShader != InvalidShader }
