package gpu

// AttachmentDescriptor describes one color, resolve, or depth-stencil
// attachment of a render pass (spec §4.3 / §6). wgpu has no persistent
// render-pass object — BeginRenderPass takes a descriptor per call — so
// RenderPass here is an engine-level, handle-pooled descriptor that the
// Frame Driver and Render Graph hold onto across frames and translate into a
// fresh wgpu.RenderPassDescriptor on each Execute (spec §4.6 step 5,
// §4.7 step 4). This is the documented substitution for the original
// Vulkan-style persistent VkRenderPass object; see DESIGN.md.
type AttachmentDescriptor struct {
	Texture     TextureHandle
	ResolveFrom TextureHandle // InvalidTexture unless this is an MSAA resolve target
	LoadOp      AttachmentOp
	ClearColor  [4]float32
	ClearDepth  float32
	ClearStencil uint32
}

// renderPassResource is the slab payload for the render pass handle pool.
type renderPassResource struct {
	colorAttachments      []AttachmentDescriptor
	depthStencilAttachment *AttachmentDescriptor
	sampleCount           uint32
}

// frameBufferResource is the slab payload for the framebuffer handle pool.
// Unlike a Vulkan VkFramebuffer, it carries no texture views of its own —
// AttachmentDescriptor.Texture already pins each attachment to a concrete
// texture on the owning RenderPassHandle, so the framebuffer only needs the
// pass it binds to and the extent it was created at; see rendergraph's
// DESIGN.md entry for why a render pass, not just a framebuffer, must be
// rebuilt whenever its concrete attachment textures change.
type frameBufferResource struct {
	pass          RenderPassHandle
	width, height uint32
}
