package gpu

import "github.com/oxy-forge/engine/gpu/handlepool"

// Each resource kind the Renderer Core owns (spec §4.3) gets its own named
// handle type over the shared generational handlepool.Handle, so a
// BufferHandle can never be passed where a TextureHandle is expected even
// though both are backed by the same {index, generation} representation.

type BufferHandle handlepool.Handle
type TextureHandle handlepool.Handle
type SamplerHandle handlepool.Handle
type ShaderHandle handlepool.Handle
type PipelineHandle handlepool.Handle
type BindGroupLayoutHandle handlepool.Handle
type BindGroupHandle handlepool.Handle
type RenderPassHandle handlepool.Handle
type FrameBufferHandle handlepool.Handle
type SemaphoreHandle handlepool.Handle

var (
	InvalidBuffer          = BufferHandle(handlepool.Invalid)
	InvalidTexture         = TextureHandle(handlepool.Invalid)
	InvalidSampler         = SamplerHandle(handlepool.Invalid)
	InvalidShader          = ShaderHandle(handlepool.Invalid)
	InvalidPipeline        = PipelineHandle(handlepool.Invalid)
	InvalidBindGroupLayout = BindGroupLayoutHandle(handlepool.Invalid)
	InvalidBindGroup       = BindGroupHandle(handlepool.Invalid)
	InvalidRenderPass      = RenderPassHandle(handlepool.Invalid)
	InvalidFrameBuffer     = FrameBufferHandle(handlepool.Invalid)
	InvalidSemaphore       = SemaphoreHandle(handlepool.Invalid)
)
